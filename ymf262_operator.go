package ymf262

// Modulation bus indices in the out array, after the 18 channel
// accumulators. Bus 1 carries a modulator's output to the next slot
// in the chain, bus 2 crosses from the first half of a 4-op pair to
// the second.
const (
	modBus1 = NumChannels
	modBus2 = NumChannels + 1
)

// opCalc produces the slot's output for one sample. phase is a sine
// table index with any modulation already added; wrapping happens in
// the table lookup. Attenuations quiet enough to fall off the end of
// the level table output zero.
func (s *slot) opCalc(phase int32, lfoAM uint32) int32 {
	env := (uint32(s.tll+s.volume) + (lfoAM & s.amMask)) << 4
	p := env + sinTab[uint32(s.waveSel)*sinLen+(uint32(phase)&sinMask)]
	if p >= tlTabLen {
		return 0
	}
	return tlTab[p]
}

// chanCalc generates one sample for a 2-op channel, or for the first
// half of a 4-op pair. Slot 1 modulates itself with its output history
// shifted by the feedback depth; the history rolls over before the sum
// is taken.
func (y *YMF262) chanCalc(ch *channel) {
	y.out[modBus1] = 0
	y.out[modBus2] = 0
	s1 := &ch.slot[0]
	s2 := &ch.slot[1]

	s1.prevOut[0] = s1.prevOut[1]
	out := int32(0)
	if s1.fbShift != 0 {
		out = s1.prevOut[0] + s1.prevOut[1]
	}
	s1.prevOut[1] = s1.opCalc(int32(s1.cnt>>16)+(out>>s1.fbShift), y.lfoAM)
	y.out[s1.connect] += s1.prevOut[1]

	y.out[s2.connect] += s2.opCalc(int32(s2.cnt>>16)+y.out[modBus1], y.lfoAM)
}

// chanCalcExt generates one sample for the second half of a 4-op
// pair. Slot 1 is modulated by whatever the first half left on bus 2;
// there is no feedback on this half.
func (y *YMF262) chanCalcExt(ch *channel) {
	y.out[modBus1] = 0
	s1 := &ch.slot[0]
	s2 := &ch.slot[1]

	y.out[s1.connect] += s1.opCalc(int32(s1.cnt>>16)+y.out[modBus2], y.lfoAM)
	y.out[s2.connect] += s2.opCalc(int32(s2.cnt>>16)+y.out[modBus1], y.lfoAM)
}

// setFeedbackShift converts the 3-bit feedback depth to the shift
// applied to the summed slot 1 output history. Zero keeps feedback
// off entirely.
func (s *slot) setFeedbackShift(v uint8) {
	if v != 0 {
		s.fbShift = 9 - v
	} else {
		s.fbShift = 0
	}
}

// panMask converts an output enable bit to an accumulator mask.
func panMask(bit uint8) int32 {
	if bit != 0 {
		return -1
	}
	return 0
}

// updateRouting rebuilds the slot output targets for a channel after
// its connection bit or pairing changed. In OPL3 mode channels in an
// active 4-op pair route as a unit from the first half; outside OPL3
// mode every channel routes as a plain 2-op channel.
func (y *YMF262) updateRouting(chanNo int) {
	switch chanNo {
	case 0, 1, 2, 9, 10, 11:
		if y.opl3Mode && y.ch[chanNo].extended {
			y.routePair(chanNo)
			return
		}
	case 3, 4, 5, 12, 13, 14:
		if y.opl3Mode && y.ch[chanNo-3].extended {
			y.routePair(chanNo - 3)
			return
		}
	}
	ch := &y.ch[chanNo]
	if ch.slot[0].con {
		ch.slot[0].connect = uint8(chanNo)
	} else {
		ch.slot[0].connect = modBus1
	}
	ch.slot[1].connect = uint8(chanNo)
}

// routePair wires the four slots of a 4-op pair. The two connection
// bits select one of the four operator algorithms.
func (y *YMF262) routePair(first int) {
	ch1 := &y.ch[first]
	ch2 := &y.ch[first+3]
	conn := uint8(0)
	if ch1.slot[0].con {
		conn |= 0x02
	}
	if ch2.slot[0].con {
		conn |= 0x01
	}
	switch conn {
	case 0:
		// 1 -> 2 -> 3 -> 4 -> out
		ch1.slot[0].connect = modBus1
		ch1.slot[1].connect = modBus2
		ch2.slot[0].connect = modBus1
		ch2.slot[1].connect = uint8(first + 3)
	case 1:
		// 1 -> 2 -> out, 3 -> 4 -> out
		ch1.slot[0].connect = modBus1
		ch1.slot[1].connect = uint8(first)
		ch2.slot[0].connect = modBus1
		ch2.slot[1].connect = uint8(first + 3)
	case 2:
		// 1 -> out, 2 -> 3 -> 4 -> out
		ch1.slot[0].connect = uint8(first)
		ch1.slot[1].connect = modBus2
		ch2.slot[0].connect = modBus1
		ch2.slot[1].connect = uint8(first + 3)
	case 3:
		// 1 -> out, 2 -> 3 -> out, 4 -> out
		ch1.slot[0].connect = uint8(first)
		ch1.slot[1].connect = modBus2
		ch2.slot[0].connect = uint8(first + 3)
		ch2.slot[1].connect = uint8(first + 3)
	}
}
