package main

import (
	"io"
	"sync"
)

// audioRing is a bounded ring buffer carrying PCM bytes from the render
// loop to oto's player. Write blocks while the buffer is full and Read
// blocks while it is empty, so rendering runs exactly at playback
// speed. Read returns io.EOF once the buffer is closed and drained.
type audioRing struct {
	buf      []byte
	readPos  int
	writePos int
	count    int
	capacity int
	mu       sync.Mutex
	cond     *sync.Cond
	closed   bool
}

// newAudioRing creates a ring buffer with the given capacity in bytes.
func newAudioRing(capacity int) *audioRing {
	rb := &audioRing{
		buf:      make([]byte, capacity),
		capacity: capacity,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// Write adds data to the buffer, blocking until all of it is stored.
// Returns early if the buffer is closed while waiting.
func (rb *audioRing) Write(p []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for len(p) > 0 {
		for rb.count == rb.capacity && !rb.closed {
			rb.cond.Wait()
		}
		if rb.closed {
			return
		}

		n := min(len(p), rb.capacity-rb.count)

		// Write data to buffer (may wrap around)
		firstChunk := rb.capacity - rb.writePos
		if firstChunk >= n {
			copy(rb.buf[rb.writePos:], p[:n])
		} else {
			copy(rb.buf[rb.writePos:], p[:firstChunk])
			copy(rb.buf[0:], p[firstChunk:n])
		}
		rb.writePos = (rb.writePos + n) % rb.capacity
		rb.count += n
		p = p[n:]

		rb.cond.Broadcast()
	}
}

// Read implements io.Reader for oto. Blocks until data is available or
// the buffer is closed.
func (rb *audioRing) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	// Wait for data
	for rb.count == 0 {
		if rb.closed {
			return 0, io.EOF
		}
		rb.cond.Wait()
	}

	n := min(len(p), rb.count)

	// Copy data from buffer (may wrap around)
	firstChunk := rb.capacity - rb.readPos
	if firstChunk >= n {
		copy(p, rb.buf[rb.readPos:rb.readPos+n])
	} else {
		copy(p, rb.buf[rb.readPos:])
		copy(p[firstChunk:], rb.buf[:n-firstChunk])
	}
	rb.readPos = (rb.readPos + n) % rb.capacity
	rb.count -= n

	rb.cond.Broadcast()
	return n, nil
}

// Buffered returns the number of bytes currently in the buffer.
func (rb *audioRing) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Close unblocks all waiters. Buffered data can still be read; Read
// returns io.EOF once it is gone.
func (rb *audioRing) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}
