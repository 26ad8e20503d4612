package main

import (
	"testing"

	"github.com/user-none/go-chip-ymf262"
)

// --- Wait conversion ---

func TestRender_WaitConversionExact(t *testing.T) {
	r := newRenderer(&vgmFile{ClockHz: ymf262.DefaultClock}, 1.0, 1)
	if r.rate != 49715 {
		t.Fatalf("rate = %d, want 49715", r.rate)
	}

	// One second of VGM waits converts to one second of chip samples
	// with no residue, however it is sliced.
	total := 0
	for i := 0; i < 44100; i++ {
		total += r.waitToChip(1)
	}
	if total != 49715 {
		t.Errorf("44100 single-sample waits = %d chip samples, want 49715", total)
	}
	if r.rem != 0 {
		t.Errorf("remainder = %d, want 0", r.rem)
	}

	if n := r.waitToChip(44100); n != 49715 {
		t.Errorf("bulk one-second wait = %d chip samples, want 49715", n)
	}
}

func TestRender_FrameCountWithLoop(t *testing.T) {
	song := &vgmFile{
		ClockHz:      ymf262.DefaultClock,
		TotalSamples: 4410,
		LoopSample:   2205,
		HasLoop:      true,
	}
	r := newRenderer(song, 1.0, 2)

	out := make([]int16, 2*renderFrames)
	frames := 0
	for {
		n := r.next(out)
		if n == 0 {
			break
		}
		frames += n
	}

	// First pass: floor(4410*49715/44100) = 4971, carrying 22050.
	// Loop pass: floor((2205*49715+22050)/44100) = 2486.
	if frames != 4971+2486 {
		t.Errorf("frames = %d, want %d", frames, 4971+2486)
	}
}

func TestRender_DurationIncludesLoops(t *testing.T) {
	song := &vgmFile{
		ClockHz:      ymf262.DefaultClock,
		TotalSamples: 4410,
		LoopSample:   2205,
		HasLoop:      true,
	}
	r := newRenderer(song, 1.0, 3)
	if d, want := r.duration(), 8820.0/44100.0; d != want {
		t.Errorf("duration = %v, want %v", d, want)
	}

	// Without a loop the declared length stands regardless of -loops.
	r = newRenderer(&vgmFile{ClockHz: ymf262.DefaultClock, TotalSamples: 44100}, 1.0, 5)
	if d := r.duration(); d != 1.0 {
		t.Errorf("duration = %v, want 1", d)
	}
}

// --- Mixing ---

func TestRender_SilentStreamIsZero(t *testing.T) {
	song := &vgmFile{ClockHz: ymf262.DefaultClock, TotalSamples: 1000}
	r := newRenderer(song, 1.0, 1)

	out := make([]int16, 2*renderFrames)
	frames := 0
	for {
		n := r.next(out)
		if n == 0 {
			break
		}
		for _, s := range out[:2*n] {
			if s != 0 {
				t.Fatalf("sample = %d, want 0", s)
			}
		}
		frames += n
	}
	if frames != 1127 {
		t.Errorf("frames = %d, want floor(1000*49715/44100) = 1127", frames)
	}
}

func TestRender_WritesProduceAudio(t *testing.T) {
	r := newRenderer(channelZeroSong(2000), 1.0, 1)

	out := make([]int16, 2*renderFrames)
	heard := false
	for {
		n := r.next(out)
		if n == 0 {
			break
		}
		for _, s := range out[:2*n] {
			if s != 0 {
				heard = true
			}
		}
	}
	if !heard {
		t.Error("keyed channel produced only silence")
	}
}

func TestRender_GainScalesOutput(t *testing.T) {
	loud := newRenderer(channelZeroSong(2000), 1.0, 1)
	mute := newRenderer(channelZeroSong(2000), 0, 1)

	loudOut := make([]int16, 2*renderFrames)
	muteOut := make([]int16, 2*renderFrames)
	heard := false
	for {
		ln := loud.next(loudOut)
		mn := mute.next(muteOut)
		if ln != mn {
			t.Fatalf("frame counts diverged: %d vs %d", ln, mn)
		}
		if ln == 0 {
			break
		}
		for _, s := range loudOut[:2*ln] {
			if s != 0 {
				heard = true
			}
		}
		for _, s := range muteOut[:2*mn] {
			if s != 0 {
				t.Fatalf("zero gain produced sample %d", s)
			}
		}
	}
	if !heard {
		t.Error("unity gain produced only silence")
	}
}

// --- Helpers ---

// channelZeroSong returns a stream that keys channel 0 with a fast
// attack at time zero. Slot register offsets 0x00 and 0x03 are channel
// 0's two operators.
func channelZeroSong(total uint64) *vgmFile {
	return &vgmFile{
		ClockHz:      ymf262.DefaultClock,
		TotalSamples: total,
		Writes: []chipWrite{
			{0, 0x20, 0x01}, // slot 0: MUL=1
			{0, 0x23, 0x01}, // slot 1: MUL=1
			{0, 0x40, 0x00}, // slot 0: TL=0
			{0, 0x43, 0x00}, // slot 1: TL=0
			{0, 0x60, 0xF0}, // slot 0: AR=15, DR=0
			{0, 0x63, 0xF0}, // slot 1: AR=15, DR=0
			{0, 0x80, 0x0F}, // slot 0: SL=0, RR=15
			{0, 0x83, 0x0F}, // slot 1: SL=0, RR=15
			{0, 0xC0, 0x31}, // both slots to output
			{0, 0xA0, 0x6B}, // fnum low
			{0, 0xB0, 0x32}, // key on, block 4, fnum 0x26B
		},
	}
}
