package main

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV renders the whole song to a 16-bit stereo PCM WAV file at
// the chip's native sample rate, one chunk at a time.
func writeWAV(r *renderer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, r.rate, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: r.rate},
		SourceBitDepth: 16,
	}

	samples := make([]int16, 2*renderFrames)
	ints := make([]int, 2*renderFrames)
	for {
		n := r.next(samples)
		if n == 0 {
			break
		}
		for i := 0; i < 2*n; i++ {
			ints[i] = int(samples[i])
		}
		buf.Data = ints[:2*n]
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("wav write: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav finalize: %w", err)
	}
	return f.Close()
}
