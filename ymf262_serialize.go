package ymf262

import (
	"encoding/binary"
	"errors"
)

const (
	ymf262SerializeVersion = 1
	// Per-slot serialization size:
	// key(1) + state(1) + volume(2) + cnt(4) + prevOut[0](4) + prevOut[1](4) +
	// waveSel(1) + ksr(1) + incr(4) + tll(2) + connect(1) = 25
	ymfSlotSerializeSize = 25
	// Per-channel (non-slot fields):
	// pan enables(1) + kcode(1) = 2
	ymfChannelSerializeSize = 2
	// Per-timer:
	// running(1) + preset(1) + expiry(8) = 10
	ymfTimerSerializeSize = 10
	// Global state:
	// egCnt(4) + lfoAMCnt(4) + lfoPMCnt(4) + noiseRng(4) +
	// status(1) + status2(1) + statusMask(1) + clock(8) = 27
	ymfGlobalSerializeSize = 27
	// YMF262SerializeSize is the total bytes needed for YMF262 serialization.
	// version(1) + registers(512) + 36 slots * 25 + 18 channels * 2 + 2 timers * 10 + global(27) = 1496
	YMF262SerializeSize = 1 + 512 + 36*ymfSlotSerializeSize + 18*ymfChannelSerializeSize +
		2*ymfTimerSerializeSize + ymfGlobalSerializeSize
)

// Serialize writes YMF262 state to buf. buf must be at least
// YMF262SerializeSize bytes. Fields that are a pure function of the
// register image are not stored; Deserialize rebuilds them.
func (y *YMF262) Serialize(buf []byte) error {
	if len(buf) < YMF262SerializeSize {
		return errors.New("YMF262 serialize buffer too small")
	}

	offset := 0

	// Version
	buf[offset] = ymf262SerializeVersion
	offset++

	// Register image
	copy(buf[offset:], y.reg[:])
	offset += len(y.reg)

	// Slots (18 channels x 2 slots = 36)
	for ch := 0; ch < 18; ch++ {
		for sl := 0; sl < 2; sl++ {
			offset = serializeSlot(&y.ch[ch].slot[sl], buf, offset)
		}
	}

	// Channel fields (non-slot). The output enables and key code
	// depend on write-time mode bits, so the image cannot reproduce
	// them.
	for ch := 0; ch < 18; ch++ {
		pans := uint8(0)
		for k := 0; k < 4; k++ {
			if y.pan[4*ch+k] != 0 {
				pans |= 1 << k
			}
		}
		buf[offset] = pans
		offset++
		buf[offset] = y.ch[ch].kcode
		offset++
	}

	// Timers
	offset = serializeTimer(&y.timer1, buf, offset)
	offset = serializeTimer(&y.timer2, buf, offset)

	// Counters
	binary.LittleEndian.PutUint32(buf[offset:], y.egCnt)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], y.lfoAMCnt)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], y.lfoPMCnt)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], y.noiseRng)
	offset += 4

	// Status
	buf[offset] = y.status
	offset++
	buf[offset] = y.status2
	offset++
	buf[offset] = y.statusMask
	offset++

	binary.LittleEndian.PutUint64(buf[offset:], y.clock)
	offset += 8

	return nil
}

// Deserialize reads YMF262 state from buf. buf must be at least
// YMF262SerializeSize bytes. The IRQ handler stays registered but is
// not invoked for the restored line state.
func (y *YMF262) Deserialize(buf []byte) error {
	if len(buf) < YMF262SerializeSize {
		return errors.New("YMF262 deserialize buffer too small")
	}

	offset := 0

	// Version
	version := buf[offset]
	offset++
	if version > ymf262SerializeVersion {
		return errors.New("unsupported YMF262 state version")
	}

	// Register image
	copy(y.reg[:], buf[offset:offset+len(y.reg)])
	offset += len(y.reg)

	// Slots (18 channels x 2 slots = 36)
	for ch := 0; ch < 18; ch++ {
		for sl := 0; sl < 2; sl++ {
			offset = deserializeSlot(&y.ch[ch].slot[sl], buf, offset)
		}
	}

	// Channel fields (non-slot)
	for ch := 0; ch < 18; ch++ {
		pans := buf[offset]
		offset++
		for k := 0; k < 4; k++ {
			y.pan[4*ch+k] = panMask(pans & (1 << k))
		}
		y.ch[ch].kcode = buf[offset]
		offset++
	}

	// Timers
	offset = deserializeTimer(&y.timer1, buf, offset)
	offset = deserializeTimer(&y.timer2, buf, offset)

	// Counters
	y.egCnt = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	y.lfoAMCnt = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	y.lfoPMCnt = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	y.noiseRng = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4

	// Status
	y.status = buf[offset]
	offset++
	y.status2 = buf[offset]
	offset++
	y.statusMask = buf[offset]
	offset++

	y.clock = binary.LittleEndian.Uint64(buf[offset:])
	offset += 8

	// Rebuild everything derived from the register image. The LFO
	// outputs are recomputed before the next sample.
	y.rederive()
	y.irqLine = y.status&statusIRQ != 0

	return nil
}

// serializeSlot writes the runtime state of a single slot to buf at the
// given offset.
func serializeSlot(s *slot, buf []byte, offset int) int {
	buf[offset] = s.key
	offset++
	buf[offset] = s.state
	offset++
	binary.LittleEndian.PutUint16(buf[offset:], uint16(s.volume))
	offset += 2
	binary.LittleEndian.PutUint32(buf[offset:], s.cnt)
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(s.prevOut[0]))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(s.prevOut[1]))
	offset += 4
	// the resolved waveform depends on the mode at write time
	buf[offset] = s.waveSel
	offset++
	// ksr, incr, tll and the routing target may carry pair data from
	// write time
	buf[offset] = s.ksr
	offset++
	binary.LittleEndian.PutUint32(buf[offset:], s.incr)
	offset += 4
	binary.LittleEndian.PutUint16(buf[offset:], uint16(s.tll))
	offset += 2
	buf[offset] = s.connect
	offset++
	return offset
}

// deserializeSlot reads the runtime state of a single slot from buf at
// the given offset.
func deserializeSlot(s *slot, buf []byte, offset int) int {
	s.key = buf[offset]
	offset++
	s.state = buf[offset]
	offset++
	s.volume = int32(binary.LittleEndian.Uint16(buf[offset:]))
	offset += 2
	s.cnt = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	s.prevOut[0] = int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	s.prevOut[1] = int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	s.waveSel = buf[offset]
	offset++
	s.ksr = buf[offset]
	offset++
	s.incr = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	s.tll = int32(binary.LittleEndian.Uint16(buf[offset:]))
	offset += 2
	s.connect = buf[offset]
	offset++
	return offset
}

// serializeTimer writes a single timer to buf at the given offset.
func serializeTimer(t *timer, buf []byte, offset int) int {
	buf[offset] = boolByte(t.running)
	offset++
	buf[offset] = t.preset
	offset++
	binary.LittleEndian.PutUint64(buf[offset:], t.expiry)
	offset += 8
	return offset
}

// deserializeTimer reads a single timer from buf at the given offset.
func deserializeTimer(t *timer, buf []byte, offset int) int {
	t.running = buf[offset] != 0
	offset++
	t.preset = buf[offset]
	offset++
	t.expiry = binary.LittleEndian.Uint64(buf[offset:])
	offset += 8
	return offset
}

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// chanRegBase returns a channel's offset within the 0xA0, 0xB0 and
// 0xC0 register blocks, including the page bit for channels 9-17.
func chanRegBase(ch int) uint16 {
	if ch < 9 {
		return uint16(ch)
	}
	return uint16(ch-9) | 0x100
}

// slotRegOffset returns a slot's offset within the 0x20, 0x40, 0x60,
// 0x80 and 0xE0 register blocks, including the page bit for slots
// 18-35. It is the inverse of slotArray.
func slotRegOffset(sl int) uint16 {
	q := sl % 18
	off := uint16(q/6*8 + q%2*3 + q%6/2)
	if sl >= 18 {
		off |= 0x100
	}
	return off
}

// rederive rebuilds every register-derived field from the restored
// register image, without triggering key, status or IRQ side effects.
func (y *YMF262) rederive() {
	y.nts = y.reg[0x08]&0x40 != 0
	y.opl3Mode = y.reg[0x105]&0x01 != 0

	for i, chanNo := range fourOpFirst {
		y.ch[chanNo].extended = y.reg[0x104]&(1<<i) != 0
	}

	y.lfoAMDepth = y.reg[0xBD]&0x80 != 0
	if y.reg[0xBD]&0x40 != 0 {
		y.lfoPMDepthRange = 8
	} else {
		y.lfoPMDepthRange = 0
	}
	y.rhythm = y.reg[0xBD] & 0x3F

	// Frequency latches. The key code is restored, not derived: note
	// select applies lazily, so the image alone cannot reproduce it.
	for i := range y.ch {
		ch := &y.ch[i]
		base := chanRegBase(i)
		ch.blockFnum = uint32(y.reg[0xB0|base]&0x1F)<<8 | uint32(y.reg[0xA0|base])
		ch.kslBase = kslTab[ch.blockFnum>>6]
		ch.fc = fnumToIncrement(ch.blockFnum)
	}

	// incr, ksr, tll and the routing targets were restored with the
	// slots. They depend on the pairing and mode at write time, so the
	// image cannot rebuild them.
	for n := 0; n < 36; n++ {
		s := &y.ch[n/2].slot[n&1]
		off := slotRegOffset(n)

		v := y.reg[0x20|off]
		s.mul = mulTab[v&0x0F]
		if v&0x10 != 0 {
			s.ksrShift = 0
		} else {
			s.ksrShift = 2
		}
		s.egHold = v&0x20 != 0
		s.vib = v&0x40 != 0
		if v&0x80 != 0 {
			s.amMask = ^uint32(0)
		} else {
			s.amMask = 0
		}

		// rebuild the envelope rate lookups with the restored ksr
		s.writeArDr(y.reg[0x60|off])
		s.writeSlRr(y.reg[0x80|off])

		v = y.reg[0x40|off]
		ksl := v >> 6
		if ksl != 0 {
			s.ksl = 3 - ksl
		} else {
			s.ksl = 31
		}
		s.tl = int32(v&0x3F) << (envBits - 1 - 7)
	}

	for i := range y.ch {
		v := y.reg[0xC0|chanRegBase(i)]
		y.ch[i].slot[0].setFeedbackShift(v >> 1 & 0x07)
		y.ch[i].slot[0].con = v&0x01 != 0
	}
}
