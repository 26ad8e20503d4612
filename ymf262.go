// Package ymf262 emulates the Yamaha YMF262 (OPL3) FM synthesizer.
package ymf262

// NumChannels is the number of melodic channels the chip can produce.
const NumChannels = 18

// DefaultClock is the common master clock of the YMF262 in Hz
// (NTSC colorburst * 4).
const DefaultClock = 14318180

// SampleRate returns the chip's native output rate for a given master
// clock. The chip produces one sample per 288 input clocks.
func SampleRate(clockHz int) int {
	return clockHz / 288
}

// Envelope states
const (
	egAttack  = 0
	egDecay   = 1
	egSustain = 2
	egRelease = 3
	egOff     = 4
)

// Key-on sources. A slot sounds while any source bit is set; it enters
// release only when the last one clears.
const (
	keySourceNote   = 0x01 // Channel key bit (register 0xB0 bit 5)
	keySourceRhythm = 0x02 // Rhythm voice key bit (register 0xBD)
)

// Status register bits
const (
	statusIRQ = 0x80
	statusT1  = 0x40
	statusT2  = 0x20
)

// slot holds the decoded register state and generators for one of the
// two operators in a channel.
type slot struct {
	// Register fields
	ar       uint8 // Attack rate, pre-scaled (0 or 16+raw*4)
	dr       uint8 // Decay rate, pre-scaled
	rr       uint8 // Release rate, pre-scaled
	ksrShift uint8 // Key scale rate shift (0 when KSR bit set, else 2)
	ksl      uint8 // Key scale level shift (31 = off)
	mul      uint8 // Frequency multiplier, doubled so x0.5 stays integral

	egHold bool   // Hold at sustain level (EG-TYP bit)
	vib    bool   // Vibrato enable
	amMask uint32 // Tremolo mask: all ones when AM enabled

	// Phase generator state (16.16 fixed point)
	cnt  uint32 // Phase counter
	incr uint32 // Phase increment

	// Feedback and routing
	fbShift uint8    // Feedback shift, 0 when feedback is off
	con     bool     // Connection bit (carrier vs modulator)
	connect uint8    // Output accumulator index
	prevOut [2]int32 // Previous two outputs, feeds slot 1 self-modulation

	// Envelope generator state
	state  uint8 // egAttack..egOff
	tl     int32 // Total level attenuation
	tll    int32 // Total level adjusted for key scale level
	volume int32 // Envelope attenuation (0 = loudest, 511 = silent)
	sl     int32 // Sustain level
	key    uint8 // Key-on source bits

	// Envelope rate lookups derived from ar/dr/rr and key scaling
	ksr      uint8
	egShAR   uint8
	egSelAR  uint8
	egMaskAR uint32
	egShDR   uint8
	egSelDR  uint8
	egMaskDR uint32
	egShRR   uint8
	egSelRR  uint8
	egMaskRR uint32

	waveSel uint8 // Selected waveform (0-7)
}

// channel holds the per-channel frequency latch and its two slots.
type channel struct {
	slot [2]slot

	blockFnum uint32 // Block (3 bits) and F-number (10 bits)
	fc        uint32 // Base phase increment for the current frequency
	kslBase   uint32 // Key scale level base for the current frequency
	kcode     uint8  // Key code for envelope rate scaling
	extended  bool   // Owns a 4-op pair with the channel three above
}

// YMF262 implements the Yamaha YMF262 (OPL3) FM synthesizer.
type YMF262 struct {
	reg [512]uint8 // Raw register image, the authoritative store

	ch  [18]channel
	out [20]int32     // Channel accumulators plus the two modulation buses
	pan [18 * 4]int32 // Output enable masks, four per channel

	// Envelope generator global counter
	egCnt uint32

	// LFOs
	lfoAMDepth      bool
	lfoPMDepthRange uint8  // 0 or 8, selects the deep vibrato table half
	lfoAMCnt        uint32 // Tremolo position, 6 fractional bits
	lfoPMCnt        uint32 // Vibrato position, 10 fractional bits
	lfoAM           uint32 // Current tremolo attenuation
	lfoPM           uint8  // Current vibrato table index base

	noiseRng uint32 // 23-bit noise shift register

	rhythm   uint8 // Rhythm mode and key bits (register 0xBD bits 0-5)
	nts      bool  // Note select, picks the fnum bit feeding the key code
	opl3Mode bool  // OPL3 extensions enabled (register 0x105 bit 0)

	// Status register and IRQ line
	status     uint8
	status2    uint8 // OPL3 "new mode" latch, cleared by ReadStatus
	statusMask uint8
	irqLine    bool
	irqHandler func(active bool)

	// Timers
	timer1 timer
	timer2 timer

	clock uint64 // Sample clock, counts samples since creation
}

// fourOpFirst lists the channels that can own a 4-op pair; each pairs
// with the channel three above it.
var fourOpFirst = [6]int{0, 1, 2, 9, 10, 11}

// New creates a YMF262 in its power-on state.
func New() *YMF262 {
	y := &YMF262{}
	y.Reset()
	return y
}

// Reset returns the chip to its power-on state: every register zeroed,
// all slots silent, timers stopped, OPL3 mode and 4-op pairing off.
// The sample clock and the IRQ handler survive a reset.
func (y *YMF262) Reset() {
	y.reg = [512]uint8{}
	y.egCnt = 0
	y.noiseRng = 1
	y.nts = false
	y.lfoAMCnt = 0
	y.lfoPMCnt = 0
	y.lfoAM = 0
	y.lfoPM = 0
	y.status2 = 0
	y.resetStatus(statusT1 | statusT2)

	// reset with register writes
	y.writeRegForce(0x105, 0, y.clock) // OPL3 extensions off
	y.writeRegForce(0x104, 0, y.clock) // 4-op pairing off
	y.writeRegForce(0x01, 0, y.clock)  // test register
	y.writeRegForce(0x02, 0, y.clock)  // timer 1 preset
	y.writeRegForce(0x03, 0, y.clock)  // timer 2 preset
	y.writeRegForce(0x04, 0, y.clock)  // IRQ masks cleared, timers stopped

	for r := 0xFF; r >= 0x20; r-- {
		y.writeRegForce(uint16(r), 0, y.clock)
	}
	for r := 0x1FF; r >= 0x120; r-- {
		y.writeRegForce(uint16(r), 0, y.clock)
	}

	for i := range y.ch {
		for j := range y.ch[i].slot {
			s := &y.ch[i].slot[j]
			s.state = egOff
			s.volume = maxAttIndex
		}
	}
}

// SetIRQHandler registers a callback invoked whenever the IRQ line
// changes state.
func (y *YMF262) SetIRQHandler(fn func(active bool)) {
	y.irqHandler = fn
}

// ReadStatus returns the status register. Reading clears the OPL3
// new-mode latch; PeekStatus does not.
func (y *YMF262) ReadStatus() uint8 {
	result := y.status | y.status2
	y.status2 = 0
	return result
}

// PeekStatus returns the status register without side effects.
func (y *YMF262) PeekStatus() uint8 {
	return y.status | y.status2
}

// ReadReg returns the last value written to a register.
func (y *YMF262) ReadReg(reg uint16) uint8 {
	return y.PeekReg(reg)
}

// PeekReg returns the last value written to a register. Reads have no
// side effects on this chip, so ReadReg and PeekReg are equivalent.
func (y *YMF262) PeekReg(reg uint16) uint8 {
	return y.reg[reg&0x1FF]
}

// WriteReg writes a chip register. time is the absolute sample clock
// value of the write, used to anchor timer starts. In OPL2 mode the
// second register page mirrors the first, except for 0x105 itself.
func (y *YMF262) WriteReg(reg uint16, v uint8, time uint64) {
	if !y.opl3Mode && reg != 0x105 {
		reg &^= 0x100
	}
	y.writeRegForce(reg, v, time)
}

// writeRegForce writes a register bypassing the OPL2 page mirror.
func (y *YMF262) writeRegForce(reg uint16, v uint8, time uint64) {
	reg &= 0x1FF
	y.reg[reg] = v

	chOffset := 0
	if reg&0x100 != 0 {
		switch reg {
		case 0x101:
			// test register
			return
		case 0x104:
			y.writeConnectionSel(v)
			return
		case 0x105:
			// OPL3 extensions enable
			y.opl3Mode = v&0x01 != 0
			if y.opl3Mode {
				// the status port reports the new-mode latch until read
				y.status2 = 0x02
			}
			// switching modes leaves waveforms, output enables and
			// 4-op pairings as they are
			return
		default:
			// second register page addresses channels 9-17
			chOffset = 9
		}
	}

	rn := reg & 0xFF
	switch rn & 0xE0 {
	case 0x00:
		switch rn & 0x1F {
		case 0x01:
			// test register
		case 0x02:
			y.timer1.preset = v
		case 0x03:
			y.timer2.preset = v
		case 0x04:
			// IRQ reset / status masks / timer start bits
			if v&0x80 != 0 {
				y.resetStatus(statusT1 | statusT2)
			} else {
				y.changeStatusMask(^v & (statusT1 | statusT2))
				y.timer1.setStart(v&0x01 != 0, timer1Scale, time)
				y.timer2.setStart(v&0x02 != 0, timer2Scale, time)
			}
		case 0x08:
			y.nts = v&0x40 != 0
		}
	case 0x20:
		// AM, vibrato, envelope hold, key scale rate, multiplier
		sl := slotArray[rn&0x1F]
		if sl < 0 {
			return
		}
		y.writeMul(sl+chOffset*2, v)
	case 0x40:
		// key scale level, total level
		sl := slotArray[rn&0x1F]
		if sl < 0 {
			return
		}
		y.writeKslTl(sl+chOffset*2, v)
	case 0x60:
		// attack rate, decay rate
		sl := slotArray[rn&0x1F]
		if sl < 0 {
			return
		}
		y.slotByNum(sl + chOffset*2).writeArDr(v)
	case 0x80:
		// sustain level, release rate
		sl := slotArray[rn&0x1F]
		if sl < 0 {
			return
		}
		y.slotByNum(sl + chOffset*2).writeSlRr(v)
	case 0xA0:
		if rn == 0xBD {
			if chOffset != 0 {
				// register 0x1BD has no effect
				return
			}
			y.writeRhythm(v)
			return
		}
		y.writeFreq(int(rn), chOffset, v)
	case 0xC0:
		if rn&0x0F > 8 {
			return
		}
		y.writeFbConPan(int(rn&0x0F)+chOffset, v)
	case 0xE0:
		// waveform select. The raw value is latched in the register
		// image; the resolved waveform is masked by the current mode.
		sl := slotArray[rn&0x1F]
		if sl < 0 {
			return
		}
		w := v & 0x07
		if !y.opl3Mode {
			// only the first four waveforms exist in OPL2 mode
			w &= 0x03
		}
		y.slotByNum(sl + chOffset*2).waveSel = w
	}
}

// slotByNum returns the slot for a global slot number (0-35).
func (y *YMF262) slotByNum(sl int) *slot {
	return &y.ch[sl/2].slot[sl&1]
}

// freqOwner returns the channel whose frequency data drives the given
// channel's slots. In OPL3 mode the second half of an active 4-op pair
// follows its first half; every other channel, and every channel
// outside OPL3 mode, owns itself.
func (y *YMF262) freqOwner(chanNo int) *channel {
	switch chanNo {
	case 3, 4, 5, 12, 13, 14:
		if y.opl3Mode && y.ch[chanNo-3].extended {
			return &y.ch[chanNo-3]
		}
	}
	return &y.ch[chanNo]
}

// writeConnectionSel handles register 0x104, the per-pair 4-op enable
// bits. Pairing ownership and output routing are re-derived on the
// spot rather than on the next channel register write.
func (y *YMF262) writeConnectionSel(v uint8) {
	for i, chanNo := range fourOpFirst {
		y.ch[chanNo].extended = v&(1<<i) != 0
	}
	for _, chanNo := range fourOpFirst {
		y.refreshSlots(chanNo + 3)
		y.updateRouting(chanNo)
		y.updateRouting(chanNo + 3)
	}
}

// writeMul handles the 0x20 register block: tremolo and vibrato
// enables, envelope hold, key scale rate and frequency multiplier.
func (y *YMF262) writeMul(sl int, v uint8) {
	chanNo := sl / 2
	s := &y.ch[chanNo].slot[sl&1]

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
	s.calcFC(y.freqOwner(chanNo))
}

// writeKslTl handles the 0x40 register block: key scale level and
// total level.
func (y *YMF262) writeKslTl(sl int, v uint8) {
	chanNo := sl / 2
	s := &y.ch[chanNo].slot[sl&1]

	ksl := v >> 6 // 0, 1.5, 3 or 6 dB per octave
	if ksl != 0 {
		s.ksl = 3 - ksl
	} else {
		s.ksl = 31
	}
	s.tl = int32(v&0x3F) << (envBits - 1 - 7) // 6 bit TL, in envelope units
	s.tll = s.tl + int32(y.freqOwner(chanNo).kslBase>>s.ksl)
}

// writeArDr handles the 0x60 register block: attack and decay rate.
func (s *slot) writeArDr(v uint8) {
	if v>>4 != 0 {
		s.ar = 16 + (v>>4)<<2
	} else {
		s.ar = 0
	}
	// effective rates 60 and above attack instantly
	if s.ar+s.ksr < 16+60 {
		s.egShAR = egRateShift[s.ar+s.ksr]
		s.egSelAR = egRateSelect[s.ar+s.ksr]
	} else {
		s.egShAR = 0
		s.egSelAR = 13 * rateSteps
	}
	s.egMaskAR = (1 << s.egShAR) - 1

	if v&0x0F != 0 {
		s.dr = 16 + (v&0x0F)<<2
	} else {
		s.dr = 0
	}
	s.egShDR = egRateShift[s.dr+s.ksr]
	s.egSelDR = egRateSelect[s.dr+s.ksr]
	s.egMaskDR = (1 << s.egShDR) - 1
}

// writeSlRr handles the 0x80 register block: sustain level and release
// rate.
func (s *slot) writeSlRr(v uint8) {
	s.sl = slTab[v>>4]
	if v&0x0F != 0 {
		s.rr = 16 + (v&0x0F)<<2
	} else {
		s.rr = 0
	}
	s.egShRR = egRateShift[s.rr+s.ksr]
	s.egSelRR = egRateSelect[s.rr+s.ksr]
	s.egMaskRR = (1 << s.egShRR) - 1
}

// writeFreq handles the 0xA0 and 0xB0 register blocks: the 13-bit
// frequency latch and, on 0xB0 writes, the channel key bit.
func (y *YMF262) writeFreq(rn, chOffset int, v uint8) {
	if rn&0x0F > 8 {
		return
	}
	chanNo := rn&0x0F + chOffset
	ch := &y.ch[chanNo]

	var blockFnum uint32
	if rn&0x10 == 0 {
		// a0-a8: low 8 bits of fnum
		blockFnum = ch.blockFnum&0x1F00 | uint32(v)
	} else {
		// b0-b8: key on, block, high 2 bits of fnum
		blockFnum = uint32(v&0x1F)<<8 | ch.blockFnum&0xFF
		y.writeKeyOn(chanNo, v&0x20 != 0)
	}
	if ch.blockFnum == blockFnum {
		return
	}
	ch.blockFnum = blockFnum
	y.refreshFreq(chanNo)
}

// writeKeyOn applies the key bit of a 0xB0 write. In OPL3 mode the key
// spreads across both halves of an active 4-op pair and key writes to
// the second half are ignored; outside OPL3 mode every channel keys
// plainly, pairing flags included.
func (y *YMF262) writeKeyOn(chanNo int, on bool) {
	ch := &y.ch[chanNo]
	switch chanNo {
	case 0, 1, 2, 9, 10, 11:
		if y.opl3Mode && ch.extended {
			ch2 := &y.ch[chanNo+3]
			if on {
				ch.slot[0].keyOn(keySourceNote)
				ch.slot[1].keyOn(keySourceNote)
				ch2.slot[0].keyOn(keySourceNote)
				ch2.slot[1].keyOn(keySourceNote)
			} else {
				ch.slot[0].keyOff(keySourceNote)
				ch.slot[1].keyOff(keySourceNote)
				ch2.slot[0].keyOff(keySourceNote)
				ch2.slot[1].keyOff(keySourceNote)
			}
			return
		}
	case 3, 4, 5, 12, 13, 14:
		if y.opl3Mode && y.ch[chanNo-3].extended {
			return
		}
	}
	if on {
		ch.slot[0].keyOn(keySourceNote)
		ch.slot[1].keyOn(keySourceNote)
	} else {
		ch.slot[0].keyOff(keySourceNote)
		ch.slot[1].keyOff(keySourceNote)
	}
}

// keyOn raises a key source bit. The first source to arrive restarts
// the phase generator and enters attack; further sources just latch.
func (s *slot) keyOn(source uint8) {
	if s.key == 0 {
		s.cnt = 0
		s.state = egAttack
	}
	s.key |= source
}

// keyOff clears a key source bit. The slot enters release only once
// every source is gone.
func (s *slot) keyOff(source uint8) {
	if s.key == 0 {
		return
	}
	s.key &^= source
	if s.key == 0 && s.state != egOff {
		s.state = egRelease
	}
}

// deriveFreq recomputes key code, key scale base and base increment
// from the channel's 13-bit block/fnum latch.
func (y *YMF262) deriveFreq(ch *channel) {
	// BLK 2,1,0 -> kcode bits 3,2,1
	ch.kcode = uint8((ch.blockFnum & 0x1C00) >> 9)
	// Note select picks the opposite fnum bit from what the datasheet
	// states: nts=0 takes the fnum MSB, nts=1 the bit below it.
	if y.nts {
		ch.kcode |= uint8((ch.blockFnum & 0x100) >> 8)
	} else {
		ch.kcode |= uint8((ch.blockFnum & 0x200) >> 9)
	}
	ch.kslBase = kslTab[ch.blockFnum>>6]
	ch.fc = fnumToIncrement(ch.blockFnum)
}

// refreshFreq re-derives everything that depends on a channel's
// frequency data after the latch changed. In OPL3 mode the first half
// of an active 4-op pair drives all four slots and frequency writes to
// the second half are latched without effect; outside OPL3 mode every
// channel refreshes its own slots.
func (y *YMF262) refreshFreq(chanNo int) {
	ch := &y.ch[chanNo]
	y.deriveFreq(ch)

	switch chanNo {
	case 0, 1, 2, 9, 10, 11:
		if y.opl3Mode && ch.extended {
			y.refreshSlots(chanNo)
			y.refreshSlots(chanNo + 3)
			return
		}
	case 3, 4, 5, 12, 13, 14:
		if y.opl3Mode && y.ch[chanNo-3].extended {
			return
		}
	}
	y.refreshSlots(chanNo)
}

// refreshSlots recomputes the frequency dependent state of a channel's
// slots from its owning channel's data.
func (y *YMF262) refreshSlots(chanNo int) {
	ch := &y.ch[chanNo]
	owner := y.freqOwner(chanNo)
	for i := range ch.slot {
		s := &ch.slot[i]
		s.tll = s.tl + int32(owner.kslBase>>s.ksl)
		s.calcFC(owner)
	}
}

// calcFC updates the slot's phase increment and, when the key scaling
// value changed, its envelope rate lookups.
func (s *slot) calcFC(ch *channel) {
	s.incr = ch.fc * uint32(s.mul)

	ksr := ch.kcode >> s.ksrShift
	if s.ksr == ksr {
		return
	}
	s.ksr = ksr

	// recompute envelope generator rates
	if s.ar+s.ksr < 16+60 {
		s.egShAR = egRateShift[s.ar+s.ksr]
		s.egSelAR = egRateSelect[s.ar+s.ksr]
	} else {
		s.egShAR = 0
		s.egSelAR = 13 * rateSteps
	}
	s.egMaskAR = (1 << s.egShAR) - 1
	s.egShDR = egRateShift[s.dr+s.ksr]
	s.egSelDR = egRateSelect[s.dr+s.ksr]
	s.egMaskDR = (1 << s.egShDR) - 1
	s.egShRR = egRateShift[s.rr+s.ksr]
	s.egSelRR = egRateSelect[s.rr+s.ksr]
	s.egMaskRR = (1 << s.egShRR) - 1
}

// writeFbConPan handles the 0xC0 register block: the four output
// enables, feedback depth and the connection bit.
func (y *YMF262) writeFbConPan(chanNo int, v uint8) {
	ch := &y.ch[chanNo]

	base := chanNo * 4
	if y.opl3Mode {
		// OPL3 mode routes each channel to four selectable outputs
		y.pan[base+0] = panMask(v & 0x10)
		y.pan[base+1] = panMask(v & 0x20)
		y.pan[base+2] = panMask(v & 0x40)
		y.pan[base+3] = panMask(v & 0x80)
	} else {
		// OPL2 mode always outputs on all four
		y.pan[base+0] = -1
		y.pan[base+1] = -1
		y.pan[base+2] = -1
		y.pan[base+3] = -1
	}

	ch.slot[0].setFeedbackShift(v >> 1 & 0x07)
	ch.slot[0].con = v&0x01 != 0
	y.updateRouting(chanNo)
}

// setStatus raises a status flag and updates the IRQ line. The flag
// latches even while masked; the mask gates only the IRQ summary bit
// and the line itself.
func (y *YMF262) setStatus(flag uint8) {
	y.status |= flag
	if y.status&y.statusMask != 0 {
		y.status |= statusIRQ
		y.setIRQ(true)
	}
}

// resetStatus lowers a status flag and updates the IRQ line.
func (y *YMF262) resetStatus(flag uint8) {
	y.status &^= flag
	if y.status&y.statusMask == 0 {
		y.status &^= statusIRQ
		y.setIRQ(false)
	}
}

// changeStatusMask installs a new status mask, dropping latched flags
// the mask no longer covers.
func (y *YMF262) changeStatusMask(mask uint8) {
	y.statusMask = mask
	y.status &= y.statusMask
	if y.status != 0 {
		y.status |= statusIRQ
		y.setIRQ(true)
	} else {
		y.setIRQ(false)
	}
}

// setIRQ drives the host interrupt callback on line transitions.
func (y *YMF262) setIRQ(active bool) {
	if active == y.irqLine {
		return
	}
	y.irqLine = active
	if y.irqHandler != nil {
		y.irqHandler(active)
	}
}
