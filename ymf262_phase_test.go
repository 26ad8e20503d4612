package ymf262

import "testing"

// --- Phase generator ---

func TestPhase_IncrementFormula(t *testing.T) {
	// each block doubles the rate of the 10-bit fnum
	tests := []struct {
		blockFnum uint32
		want      uint32
	}{
		{0x0000, 0},
		{0x0001, 1 << 5},
		{0x0401, 1 << 6},
		{0x1C01, 1 << 12},
		{0x1FFF, 0x3FF << 12},
		{0x1C00 | 0x155, 0x155 << 12},
	}
	for _, tt := range tests {
		if got := fnumToIncrement(tt.blockFnum); got != tt.want {
			t.Errorf("fnumToIncrement(0x%04X): got 0x%X, want 0x%X",
				tt.blockFnum, got, tt.want)
		}
	}
}

func TestPhase_CounterFollowsIncrement(t *testing.T) {
	y := New()
	setupMelodicChannel(y, 0)

	s := &y.ch[0].slot[0]
	if s.incr == 0 {
		t.Fatal("expected a non-zero increment")
	}
	for i := 0; i < 10; i++ {
		y.advance()
	}
	if s.cnt != 10*s.incr {
		t.Errorf("phase after 10 samples: got 0x%X, want 0x%X", s.cnt, 10*s.incr)
	}
}

func TestPhase_MultiplierScalesIncrement(t *testing.T) {
	y := New()
	y.WriteReg(0xA0, 0x6B, 0)
	y.WriteReg(0xB0, 0x12, 0) // block 4

	s := &y.ch[0].slot[0]
	y.WriteReg(0x20, 0x00, 0) // MUL=0 is x0.5
	half := s.incr
	y.WriteReg(0x20, 0x01, 0) // MUL=1
	if s.incr != 2*half {
		t.Errorf("MUL=1 increment: got 0x%X, want 0x%X", s.incr, 2*half)
	}
	y.WriteReg(0x20, 0x04, 0) // MUL=4
	if s.incr != 8*half {
		t.Errorf("MUL=4 increment: got 0x%X, want 0x%X", s.incr, 8*half)
	}
}

// --- Vibrato ---

func TestPhase_VibratoShiftsPhase(t *testing.T) {
	plain := New()
	setupVibratoChannel(plain, false)

	vib := New()
	setupVibratoChannel(vib, true)

	plain.GenerateChannels(makeBufs(10), 10)
	vib.GenerateChannels(makeBufs(10), 10)

	if plain.ch[0].slot[0].cnt == vib.ch[0].slot[0].cnt {
		t.Error("deep vibrato should move the phase off the base increment")
	}
}

func TestPhase_VibratoReadsOwnChannelLatch(t *testing.T) {
	// both chips play the same 4-op pair; they differ only in the
	// second half's frequency latch, which pairing leaves unused by
	// the phase increment but vibrato still reads
	a := New()
	b := New()
	for _, y := range []*YMF262{a, b} {
		y.WriteReg(0x105, 0x01, 0)
		y.WriteReg(0x104, 0x01, 0)
		y.WriteReg(0x28, 0x41, 0) // vibrato on channel 3 slot 1
		y.WriteReg(0xBD, 0x40, 0) // deep vibrato
		y.WriteReg(0xA0, 0x80, 0)
		y.WriteReg(0xB0, 0x33, 0) // key on, fnum 0x380, block 4
	}
	b.WriteReg(0xA3, 0x80, 0)
	b.WriteReg(0xB3, 0x13, 0) // latch only, no key bit

	a.GenerateChannels(makeBufs(10), 10)
	b.GenerateChannels(makeBufs(10), 10)

	if a.ch[3].slot[0].cnt == b.ch[3].slot[0].cnt {
		t.Error("vibrato should follow the slot's own frequency latch")
	}
}

// --- Tremolo ---

func TestPhase_TremoloDepth(t *testing.T) {
	y := New()

	y.WriteReg(0xBD, 0x80, 0) // deep tremolo
	var deepMax uint32
	for i := 0; i < len(lfoAMTable)*64; i++ {
		y.advanceLFO()
		if y.lfoAM > deepMax {
			deepMax = y.lfoAM
		}
	}
	if deepMax != 26 {
		t.Errorf("deep tremolo peak: got %d, want 26", deepMax)
	}

	y.WriteReg(0xBD, 0x00, 0)
	var max uint32
	for i := 0; i < len(lfoAMTable)*64; i++ {
		y.advanceLFO()
		if y.lfoAM > max {
			max = y.lfoAM
		}
	}
	if max != 26/4 {
		t.Errorf("shallow tremolo peak: got %d, want %d", max, 26/4)
	}
}

func TestPhase_VibratoPosition(t *testing.T) {
	y := New()
	y.WriteReg(0xBD, 0x40, 0)

	for i := 0; i < 1023; i++ {
		y.advanceLFO()
	}
	if y.lfoPM != 8 {
		t.Errorf("vibrato position before the step: got %d, want 8", y.lfoPM)
	}
	y.advanceLFO()
	if y.lfoPM != 9 {
		t.Errorf("vibrato position after 1024 samples: got %d, want 9", y.lfoPM)
	}
}

// --- Noise generator ---

func TestPhase_NoiseSequence(t *testing.T) {
	y := New()
	y.advanceNoise()
	if y.noiseRng != 0x400181 {
		t.Fatalf("noise after one step: got 0x%X, want 0x400181", y.noiseRng)
	}
	y.advanceNoise()
	if y.noiseRng != 0x600141 {
		t.Fatalf("noise after two steps: got 0x%X, want 0x600141", y.noiseRng)
	}
	for i := 0; i < 1000; i++ {
		y.advanceNoise()
		if y.noiseRng == 0 {
			t.Fatal("noise generator locked up")
		}
	}
}

// setupVibratoChannel keys channel 0 on a frequency whose vibrato table
// row is non-zero, optionally with the vibrato enable set.
func setupVibratoChannel(y *YMF262, vib bool) {
	mul := uint8(0x01)
	if vib {
		mul |= 0x40
	}
	y.WriteReg(0x20, mul, 0)
	y.WriteReg(0xBD, 0x40, 0) // deep vibrato
	y.WriteReg(0xA0, 0x80, 0)
	y.WriteReg(0xB0, 0x33, 0) // key on, fnum 0x380, block 4
}
