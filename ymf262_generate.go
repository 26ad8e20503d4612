package ymf262

// advance steps every per-sample generator except the LFOs: envelopes,
// phase counters, the noise register, the sample clock and the timers.
func (y *YMF262) advance() {
	y.egCnt++
	for i := range y.ch {
		ch := &y.ch[i]
		for j := range ch.slot {
			s := &ch.slot[j]
			s.advanceEnvelope(y.egCnt)
			s.advancePhase(ch, y.lfoPM)
		}
	}
	y.advanceNoise()
	y.clock++
	y.stepTimers()
}

// calcPair generates one sample for a channel and its partner three
// above, honoring 4-op pairing.
func (y *YMF262) calcPair(first int) {
	y.chanCalc(&y.ch[first])
	if y.ch[first].extended {
		y.chanCalcExt(&y.ch[first+3])
	} else {
		y.chanCalc(&y.ch[first+3])
	}
}

// checkMute reports whether every slot is silent: envelope off, or
// releasing below the audible threshold.
func (y *YMF262) checkMute() bool {
	for i := range y.ch {
		for j := range y.ch[i].slot {
			s := &y.ch[i].slot[j]
			if s.state == egOff {
				continue
			}
			if s.state == egRelease && s.tll+s.volume >= envQuiet {
				continue
			}
			return false
		}
	}
	return true
}

// GenerateChannels produces num samples for each of the 18 channels
// into per-channel stereo interleaved buffers. Each buffer must hold
// at least 2*num entries; sample j of channel i lands in bufs[i][2j]
// (left) and bufs[i][2j+1] (right), masked by the channel's output
// enables. When every slot is silent all buffer slices are set to nil
// and only the internal state advances, so timers and envelopes stay
// exact across silent stretches.
func (y *YMF262) GenerateChannels(bufs [][]int32, num int) {
	if y.checkMute() {
		for i := 0; i < NumChannels; i++ {
			bufs[i] = nil
		}
		for j := 0; j < num; j++ {
			y.advanceLFO()
			y.advance()
		}
		return
	}

	rhythmMode := y.rhythm&0x20 != 0

	for j := 0; j < num; j++ {
		y.advanceLFO()

		for i := 0; i < NumChannels; i++ {
			y.out[i] = 0
		}

		// channels 0-5 in 2-op or 4-op mode
		y.calcPair(0)
		y.calcPair(1)
		y.calcPair(2)

		// channels 6-8 are the percussion voices in rhythm mode
		if rhythmMode {
			y.chanCalcRhythm()
		} else {
			y.chanCalc(&y.ch[6])
			y.chanCalc(&y.ch[7])
			y.chanCalc(&y.ch[8])
		}

		// channels 9-14 in 2-op or 4-op mode
		y.calcPair(9)
		y.calcPair(10)
		y.calcPair(11)

		// channels 15-17 are always 2-op
		y.chanCalc(&y.ch[15])
		y.chanCalc(&y.ch[16])
		y.chanCalc(&y.ch[17])

		// enables C and D address the secondary DAC pair and are not
		// mixed into the stereo output
		for i := 0; i < NumChannels; i++ {
			buf := bufs[i]
			buf[2*j+0] = (y.out[i] & y.pan[4*i+0]) << 2
			buf[2*j+1] = (y.out[i] & y.pan[4*i+1]) << 2
		}

		y.advance()
	}
}
