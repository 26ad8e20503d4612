package main

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ringCapacity is ~250ms of 16-bit stereo at the chip's ~49.7kHz rate.
const ringCapacity = 49152

// audioPlayer plays rendered samples through oto. The render loop
// pushes int16 stereo samples into a blocking ring buffer which oto's
// player drains in a pull model.
type audioPlayer struct {
	player *oto.Player
	ring   *audioRing
	bytes  []byte // conversion buffer for int16-to-byte
}

// newAudioPlayer opens the audio device at the given sample rate and
// starts playback.
func newAudioPlayer(sampleRate int) (*audioPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   50 * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("audio device: %w", err)
	}
	<-ready

	ring := newAudioRing(ringCapacity)
	player := ctx.NewPlayer(ring)
	player.Play()

	return &audioPlayer{
		player: player,
		ring:   ring,
		bytes:  make([]byte, 0, 4096),
	}, nil
}

// queue converts int16 stereo samples to little-endian bytes and
// blocks until the ring buffer has taken them all.
func (a *audioPlayer) queue(samples []int16) {
	if len(samples) == 0 {
		return
	}

	needed := len(samples) * 2
	if cap(a.bytes) < needed {
		a.bytes = make([]byte, 0, needed)
	}
	a.bytes = a.bytes[:0]
	for _, sample := range samples {
		a.bytes = append(a.bytes, byte(sample), byte(sample>>8))
	}

	a.ring.Write(a.bytes)
}

// drain waits until every queued sample has been handed to the device,
// then lets the device's own buffer play out.
func (a *audioPlayer) drain() {
	for a.ring.Buffered() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	for a.player.BufferedSize() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
}

// close releases the device.
func (a *audioPlayer) close() {
	a.ring.Close()
	a.player.Close()
}
