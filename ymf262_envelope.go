package ymf262

// advanceEnvelope advances the slot's envelope generator by one EG
// step. The rate lookups (shift, select, mask) are pre-derived from
// the register fields and key scaling, so a step is a gate check, a
// table read and an add.
func (s *slot) advanceEnvelope(egCnt uint32) {
	switch s.state {
	case egAttack:
		if egCnt&s.egMaskAR != 0 {
			return
		}
		// Exponential attack: the complement makes the step shrink as
		// attenuation approaches zero.
		s.volume += (^s.volume * int32(egInc[uint32(s.egSelAR)+((egCnt>>s.egShAR)&7)])) >> 3
		if s.volume <= minAttIndex {
			s.volume = minAttIndex
			s.state = egDecay
		}

	case egDecay:
		if egCnt&s.egMaskDR != 0 {
			return
		}
		s.volume += int32(egInc[uint32(s.egSelDR)+((egCnt>>s.egShDR)&7)])
		if s.volume >= s.sl {
			s.state = egSustain
		}

	case egSustain:
		if s.egHold {
			// held envelope: stay at the sustain level until key-off.
			// Clearing the hold bit on the fly resumes the decay below
			// without leaving the sustain state.
			return
		}
		// percussive envelope: keep decaying at the release rate
		if egCnt&s.egMaskRR != 0 {
			return
		}
		s.volume += int32(egInc[uint32(s.egSelRR)+((egCnt>>s.egShRR)&7)])
		if s.volume >= maxAttIndex {
			s.volume = maxAttIndex
		}

	case egRelease:
		if egCnt&s.egMaskRR != 0 {
			return
		}
		s.volume += int32(egInc[uint32(s.egSelRR)+((egCnt>>s.egShRR)&7)])
		if s.volume >= maxAttIndex {
			s.volume = maxAttIndex
			s.state = egOff
		}
	}
}
