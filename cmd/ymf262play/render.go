package main

import (
	"github.com/user-none/go-chip-ymf262"
)

// renderFrames is the number of stereo frames produced per chunk.
const renderFrames = 512

// renderer drives a YMF262 through a parsed VGM stream, mixing the 18
// channel buffers into gain-scaled 16-bit stereo at the chip's native
// rate. VGM waits are in 1/44100 s units and are converted to chip
// samples with the division remainder carried across calls, so long
// songs do not drift.
type renderer struct {
	chip  *ymf262.YMF262
	song  *vgmFile
	rate  int
	gain  float64
	loops int

	bufs  [][]int32
	store [][]int32

	pos     int    // next write in song.Writes
	filePos uint64 // stream position of the last applied command, VGM samples
	rem     uint64 // wait-conversion remainder
	pending int    // chip samples to generate before the next write applies
	clock   uint64 // chip sample clock, anchors WriteReg timing
	done    bool
}

// newRenderer builds a renderer around a fresh chip clocked from the
// song header. loops is the number of times the looped section plays.
func newRenderer(song *vgmFile, gain float64, loops int) *renderer {
	r := &renderer{
		chip:  ymf262.New(),
		song:  song,
		rate:  ymf262.SampleRate(int(song.ClockHz)),
		gain:  gain,
		loops: max(loops, 1),
		bufs:  make([][]int32, ymf262.NumChannels),
		store: make([][]int32, ymf262.NumChannels),
	}
	for i := range r.store {
		r.store[i] = make([]int32, 2*renderFrames)
	}
	return r
}

// duration returns the total play time in seconds, loops included.
func (r *renderer) duration() float64 {
	total := r.song.TotalSamples
	if r.song.HasLoop && r.loops > 1 {
		total += uint64(r.loops-1) * (r.song.TotalSamples - r.song.LoopSample)
	}
	return float64(total) / 44100
}

// next fills out with up to len(out)/2 stereo frames and returns the
// number of frames produced. Zero means the song is over.
func (r *renderer) next(out []int16) int {
	frames := len(out) / 2
	if frames > renderFrames {
		frames = renderFrames
	}

	produced := 0
	for produced < frames {
		if r.pending == 0 {
			r.advanceStream()
			if r.done {
				break
			}
		}
		n := min(r.pending, frames-produced)
		r.mix(out[2*produced:2*(produced+n)], n)
		r.pending -= n
		produced += n
	}
	return produced
}

// advanceStream applies every register write due at the current stream
// position and computes the wait, in chip samples, until the next one.
// At the end of the stream it rewinds to the loop point or finishes.
func (r *renderer) advanceStream() {
	for {
		if r.pos < len(r.song.Writes) {
			w := r.song.Writes[r.pos]
			if w.Sample > r.filePos {
				r.pending = r.waitToChip(w.Sample - r.filePos)
				r.filePos = w.Sample
				if r.pending > 0 {
					return
				}
				continue
			}
			r.chip.WriteReg(w.Reg, w.Value, r.clock)
			r.pos++
			continue
		}

		// End of a pass: play out the trailing wait, then loop or stop.
		if r.song.TotalSamples > r.filePos {
			r.pending = r.waitToChip(r.song.TotalSamples - r.filePos)
			r.filePos = r.song.TotalSamples
			if r.pending > 0 {
				return
			}
		}
		if r.song.HasLoop && r.loops > 1 {
			r.loops--
			r.pos = r.song.LoopIndex
			r.filePos = r.song.LoopSample
			continue
		}
		r.done = true
		return
	}
}

// waitToChip converts a wait in VGM samples to chip samples, carrying
// the division remainder.
func (r *renderer) waitToChip(n uint64) int {
	total := n*uint64(r.rate) + r.rem
	r.rem = total % 44100
	return int(total / 44100)
}

// mix generates n frames from the chip and folds the per-channel
// stereo buffers into out with gain applied.
func (r *renderer) mix(out []int16, n int) {
	for i := range r.store {
		r.bufs[i] = r.store[i][:2*n]
	}
	r.chip.GenerateChannels(r.bufs, n)
	r.clock += uint64(n)

	for j := 0; j < n; j++ {
		var sumL, sumR int32
		for i := 0; i < ymf262.NumChannels; i++ {
			buf := r.bufs[i]
			if buf == nil {
				continue
			}
			sumL += buf[2*j]
			sumR += buf[2*j+1]
		}
		mixL := clampInt32(int32(float64(sumL)*r.gain), -32768, 32767)
		mixR := clampInt32(int32(float64(sumR)*r.gain), -32768, 32767)
		out[2*j] = int16(mixL)
		out[2*j+1] = int16(mixR)
	}
}

// clampInt32 clamps v to [min, max].
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
