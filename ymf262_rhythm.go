package ymf262

// writeRhythm handles register 0xBD: LFO depths, rhythm mode enable
// and the five percussion key bits. Percussion keys use their own key
// source so they coexist with the channel key bits.
func (y *YMF262) writeRhythm(v uint8) {
	y.lfoAMDepth = v&0x80 != 0
	if v&0x40 != 0 {
		y.lfoPMDepthRange = 8
	} else {
		y.lfoPMDepthRange = 0
	}
	y.rhythm = v & 0x3F

	if y.rhythm&0x20 != 0 {
		// bass drum
		if v&0x10 != 0 {
			y.ch[6].slot[0].keyOn(keySourceRhythm)
			y.ch[6].slot[1].keyOn(keySourceRhythm)
		} else {
			y.ch[6].slot[0].keyOff(keySourceRhythm)
			y.ch[6].slot[1].keyOff(keySourceRhythm)
		}
		// high hat
		if v&0x01 != 0 {
			y.ch[7].slot[0].keyOn(keySourceRhythm)
		} else {
			y.ch[7].slot[0].keyOff(keySourceRhythm)
		}
		// snare drum
		if v&0x08 != 0 {
			y.ch[7].slot[1].keyOn(keySourceRhythm)
		} else {
			y.ch[7].slot[1].keyOff(keySourceRhythm)
		}
		// tom tom
		if v&0x04 != 0 {
			y.ch[8].slot[0].keyOn(keySourceRhythm)
		} else {
			y.ch[8].slot[0].keyOff(keySourceRhythm)
		}
		// top cymbal
		if v&0x02 != 0 {
			y.ch[8].slot[1].keyOn(keySourceRhythm)
		} else {
			y.ch[8].slot[1].keyOff(keySourceRhythm)
		}
	} else {
		// leaving rhythm mode releases all percussion keys
		y.ch[6].slot[0].keyOff(keySourceRhythm)
		y.ch[6].slot[1].keyOff(keySourceRhythm)
		y.ch[7].slot[0].keyOff(keySourceRhythm)
		y.ch[7].slot[1].keyOff(keySourceRhythm)
		y.ch[8].slot[0].keyOff(keySourceRhythm)
		y.ch[8].slot[1].keyOff(keySourceRhythm)
	}
}

// chanCalcRhythm generates one sample for channels 6-8 in rhythm
// mode. Phases come from channel 7 slot 1 and channel 8 slot 2 plus
// the noise generator; envelopes come from the slot that owns each
// voice. Every percussion output is doubled.
func (y *YMF262) chanCalcRhythm() {
	noise := y.noiseRng & 1

	// Bass drum, a 2-op voice on channel 6. With CON set only the
	// carrier reaches the output; slot 1 keeps running for feedback.
	s61 := &y.ch[6].slot[0]
	s62 := &y.ch[6].slot[1]
	s61.prevOut[0] = s61.prevOut[1]
	pm := int32(0)
	if !s61.con {
		// the carrier is modulated by the previous sample's output
		pm = s61.prevOut[0]
	}
	out := int32(0)
	if s61.fbShift != 0 {
		out = s61.prevOut[0] + s61.prevOut[1]
	}
	s61.prevOut[1] = s61.opCalc(int32(s61.cnt>>16)+(out>>s61.fbShift), y.lfoAM)
	y.out[6] += 2 * s62.opCalc(int32(s62.cnt>>16)+pm, y.lfoAM)

	s71 := &y.ch[7].slot[0]
	s72 := &y.ch[7].slot[1]
	s81 := &y.ch[8].slot[0]
	s82 := &y.ch[8].slot[1]

	// High hat: phase 0xd0 or 0x234 from the channel 7 slot 1 and
	// channel 8 slot 2 counters, further scrambled by noise.
	p71 := s71.cnt >> 16
	bit7 := (p71 >> 7) & 1
	bit3 := (p71 >> 3) & 1
	bit2 := (p71 >> 2) & 1
	res1 := (bit2 ^ bit7) | bit3

	p82 := s82.cnt >> 16
	bit5e := (p82 >> 5) & 1
	bit3e := (p82 >> 3) & 1
	res2 := bit3e ^ bit5e

	phase := uint32(0xd0)
	if res1 != 0 {
		phase = 0x200 | 0xd0>>2
	}
	if res2 != 0 {
		phase = 0x200 | 0xd0>>2
	}
	if phase&0x200 != 0 {
		if noise != 0 {
			phase = 0x200 | 0xd0
		}
	} else {
		if noise != 0 {
			phase = 0xd0 >> 2
		}
	}
	y.out[7] += 2 * s71.opCalc(int32(phase), y.lfoAM)

	// Snare drum: phase 0x100 or 0x200 from bit 8 of the channel 7
	// slot 1 counter, noise flips between the sine halves.
	phase = 0x100
	if (p71>>8)&1 != 0 {
		phase = 0x200
	}
	if noise != 0 {
		phase ^= 0x100
	}
	y.out[7] += 2 * s72.opCalc(int32(phase), y.lfoAM)

	// Tom tom runs its own phase like a melodic slot.
	y.out[8] += 2 * s81.opCalc(int32(s81.cnt>>16), y.lfoAM)

	// Top cymbal: same counter bits as the high hat but without the
	// noise scramble.
	phase = 0x100
	if res1 != 0 {
		phase = 0x300
	}
	if res2 != 0 {
		phase = 0x300
	}
	y.out[8] += 2 * s82.opCalc(int32(phase), y.lfoAM)
}
