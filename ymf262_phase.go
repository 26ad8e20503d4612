package ymf262

// fnumToIncrement converts a 13-bit block/fnum value to a phase
// increment in 16.16 fixed point. The result is half a step per
// sample; the doubled multiplier table restores the scale.
func fnumToIncrement(blockFnum uint32) uint32 {
	block := (blockFnum & 0x1C00) >> 10
	return (blockFnum & 0x03FF) << (5 + block)
}

// advancePhase advances the slot's phase generator by one sample.
// Vibrato recomputes the increment from the channel's own frequency
// latch with the LFO offset applied, even for slots driven by the
// first channel of a 4-op pair.
func (s *slot) advancePhase(ch *channel, lfoPM uint8) {
	if !s.vib {
		s.cnt += s.incr
		return
	}
	fnumLFO := (ch.blockFnum & 0x0380) >> 7
	off := lfoPMTable[uint32(lfoPM)+16*fnumLFO]
	if off == 0 {
		s.cnt += s.incr
		return
	}
	s.cnt += fnumToIncrement(uint32(int32(ch.blockFnum)+int32(off))) * uint32(s.mul)
}

// advanceLFO advances the tremolo and vibrato LFOs by one sample.
// Tremolo steps through its 210-entry table every 64 samples (~3.7 Hz
// cycle), vibrato through 8 positions every 1024 samples (~6.1 Hz).
func (y *YMF262) advanceLFO() {
	y.lfoAMCnt++
	if y.lfoAMCnt == uint32(len(lfoAMTable))<<6 {
		y.lfoAMCnt = 0
	}
	tmp := uint32(lfoAMTable[y.lfoAMCnt>>6])
	if y.lfoAMDepth {
		y.lfoAM = tmp
	} else {
		y.lfoAM = tmp / 4
	}

	y.lfoPMCnt++
	y.lfoPM = uint8((y.lfoPMCnt>>10)&7) | y.lfoPMDepthRange
}

// advanceNoise clocks the noise generator once. The hardware is a
// 23-bit shift register with a period of 2^23-2 samples, feeding back
// bit0 XOR bit14 XOR bit15 XOR bit22. XORing the taps into the top on
// a set bit 0 produces the same sequence using bit 0 as the output.
func (y *YMF262) advanceNoise() {
	if y.noiseRng&1 != 0 {
		y.noiseRng ^= 0x800302
	}
	y.noiseRng >>= 1
}
