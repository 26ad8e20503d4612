package ymf262

import "math"

// Envelope attenuation range: 10 bits, 0 = loudest, 511 = silent.
const (
	envBits = 10
	envLen  = 1 << envBits
	envStep = 128.0 / envLen // dB per attenuation step

	maxAttIndex = (1 << (envBits - 1)) - 1 // 511
	minAttIndex = 0
)

// Sine table resolution: 1024 entries per waveform, eight waveforms.
const (
	sinBits = 10
	sinLen  = 1 << sinBits
	sinMask = sinLen - 1
)

// Total level resolution of the real chip (8 bit addressing).
const tlResLen = 256

// tlTabLen covers 13 shifted copies of the power table, each with a
// positive and a negative half. Lookups at or past the end are silent.
const tlTabLen = 13 * 2 * tlResLen

// envQuiet is the envelope level at which an operator is guaranteed to
// index the silent region of tlTab.
const envQuiet = tlTabLen >> 4

const rateSteps = 8

// slotArray maps a register offset within a 32-entry block to one of
// the 18 operator slots, or -1 for unused offsets.
var slotArray = [32]int{
	0, 2, 4, 1, 3, 5, -1, -1,
	6, 8, 10, 7, 9, 11, -1, -1,
	12, 14, 16, 13, 15, 17, -1, -1,
	-1, -1, -1, -1, -1, -1, -1, -1,
}

// kslTab is the key scale level base per block/fnum combination, in
// attenuation steps of 0.09375 dB. The underlying curve is 3 dB per
// octave; the shift applied later turns it into 1.5, 3 or 6 dB.
var kslTab = [8 * 16]uint32{
	// OCT 0
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	// OCT 1
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 8, 12, 16, 20, 24, 28, 32,
	// OCT 2
	0, 0, 0, 0, 0, 12, 20, 28,
	32, 40, 44, 48, 52, 56, 60, 64,
	// OCT 3
	0, 0, 0, 20, 32, 44, 52, 60,
	64, 72, 76, 80, 84, 88, 92, 96,
	// OCT 4
	0, 0, 32, 52, 64, 76, 84, 92,
	96, 104, 108, 112, 116, 120, 124, 128,
	// OCT 5
	0, 32, 64, 84, 96, 108, 116, 124,
	128, 136, 140, 144, 148, 152, 156, 160,
	// OCT 6
	0, 64, 96, 116, 128, 140, 148, 156,
	160, 168, 172, 176, 180, 184, 188, 192,
	// OCT 7
	0, 96, 128, 148, 160, 172, 180, 188,
	192, 200, 204, 208, 212, 216, 220, 224,
}

// slTab is the sustain level table: 3 dB per step, except the last
// entry which stands for 93 dB.
var slTab = [16]int32{
	0, 16, 32, 48, 64, 80, 96, 112,
	128, 144, 160, 176, 192, 208, 224, 496,
}

// egInc holds the per-cycle envelope increments. Each row covers the
// eight sub-cycles of one rate group.
var egInc = [15 * rateSteps]uint8{
	// cycle: 0 1  2 3  4 5  6 7
	0, 1, 0, 1, 0, 1, 0, 1, //  0  rates 00..12 0 (increment by 0 or 1)
	0, 1, 0, 1, 1, 1, 0, 1, //  1  rates 00..12 1
	0, 1, 1, 1, 0, 1, 1, 1, //  2  rates 00..12 2
	0, 1, 1, 1, 1, 1, 1, 1, //  3  rates 00..12 3

	1, 1, 1, 1, 1, 1, 1, 1, //  4  rate 13 0 (increment by 1)
	1, 1, 1, 2, 1, 1, 1, 2, //  5  rate 13 1
	1, 2, 1, 2, 1, 2, 1, 2, //  6  rate 13 2
	1, 2, 2, 2, 1, 2, 2, 2, //  7  rate 13 3

	2, 2, 2, 2, 2, 2, 2, 2, //  8  rate 14 0 (increment by 2)
	2, 2, 2, 4, 2, 2, 2, 4, //  9  rate 14 1
	2, 4, 2, 4, 2, 4, 2, 4, // 10  rate 14 2
	2, 4, 4, 4, 2, 4, 4, 4, // 11  rate 14 3

	4, 4, 4, 4, 4, 4, 4, 4, // 12  rates 15 0, 15 1, 15 2, 15 3 for decay
	8, 8, 8, 8, 8, 8, 8, 8, // 13  rates 15 0, 15 1, 15 2, 15 3 for attack (zero time)
	0, 0, 0, 0, 0, 0, 0, 0, // 14  infinity rates for attack and decay(s)
}

// egRateSelect picks the egInc row for each of the 16+64+16 effective
// rates. Row 13 (instant attack) is selected directly in the decoder,
// never through this table.
var egRateSelect = [16 + 64 + 16]uint8{
	// 16 infinite time rates
	14 * rateSteps, 14 * rateSteps, 14 * rateSteps, 14 * rateSteps,
	14 * rateSteps, 14 * rateSteps, 14 * rateSteps, 14 * rateSteps,
	14 * rateSteps, 14 * rateSteps, 14 * rateSteps, 14 * rateSteps,
	14 * rateSteps, 14 * rateSteps, 14 * rateSteps, 14 * rateSteps,

	// rates 00-12
	0 * rateSteps, 1 * rateSteps, 2 * rateSteps, 3 * rateSteps,
	0 * rateSteps, 1 * rateSteps, 2 * rateSteps, 3 * rateSteps,
	0 * rateSteps, 1 * rateSteps, 2 * rateSteps, 3 * rateSteps,
	0 * rateSteps, 1 * rateSteps, 2 * rateSteps, 3 * rateSteps,
	0 * rateSteps, 1 * rateSteps, 2 * rateSteps, 3 * rateSteps,
	0 * rateSteps, 1 * rateSteps, 2 * rateSteps, 3 * rateSteps,
	0 * rateSteps, 1 * rateSteps, 2 * rateSteps, 3 * rateSteps,
	0 * rateSteps, 1 * rateSteps, 2 * rateSteps, 3 * rateSteps,
	0 * rateSteps, 1 * rateSteps, 2 * rateSteps, 3 * rateSteps,
	0 * rateSteps, 1 * rateSteps, 2 * rateSteps, 3 * rateSteps,
	0 * rateSteps, 1 * rateSteps, 2 * rateSteps, 3 * rateSteps,
	0 * rateSteps, 1 * rateSteps, 2 * rateSteps, 3 * rateSteps,
	0 * rateSteps, 1 * rateSteps, 2 * rateSteps, 3 * rateSteps,

	// rate 13
	4 * rateSteps, 5 * rateSteps, 6 * rateSteps, 7 * rateSteps,

	// rate 14
	8 * rateSteps, 9 * rateSteps, 10 * rateSteps, 11 * rateSteps,

	// rate 15
	12 * rateSteps, 12 * rateSteps, 12 * rateSteps, 12 * rateSteps,

	// 16 dummy rates (same as 15 3)
	12 * rateSteps, 12 * rateSteps, 12 * rateSteps, 12 * rateSteps,
	12 * rateSteps, 12 * rateSteps, 12 * rateSteps, 12 * rateSteps,
	12 * rateSteps, 12 * rateSteps, 12 * rateSteps, 12 * rateSteps,
	12 * rateSteps, 12 * rateSteps, 12 * rateSteps, 12 * rateSteps,
}

// egRateShift is the envelope counter pre-shift for each effective
// rate. Rate n updates when the counter is a multiple of 1<<shift.
//
// rate  0,    1,    2,    3,   4,   5,   6,  7,  8,  9, 10, 11, 12, 13, 14, 15
// shift 12,   11,   10,   9,   8,   7,   6,  5,  4,  3,  2,  1,  0,  0,  0,  0
var egRateShift = [16 + 64 + 16]uint8{
	// 16 infinite time rates
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,

	// rates 00-15
	12, 12, 12, 12,
	11, 11, 11, 11,
	10, 10, 10, 10,
	9, 9, 9, 9,
	8, 8, 8, 8,
	7, 7, 7, 7,
	6, 6, 6, 6,
	5, 5, 5, 5,
	4, 4, 4, 4,
	3, 3, 3, 3,
	2, 2, 2, 2,
	1, 1, 1, 1,
	0, 0, 0, 0,
	0, 0, 0, 0,
	0, 0, 0, 0,
	0, 0, 0, 0,

	// 16 dummy rates (same as 15 3)
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
}

// mulTab holds the frequency multipliers doubled, so the x0.5 setting
// stays an integer: 1/2, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 10, 12, 12, 15, 15.
var mulTab = [16]uint8{
	1, 2, 4, 6, 8, 10, 12, 14,
	16, 18, 20, 20, 24, 24, 30, 30,
}

// lfoAMTable is the tremolo waveform (verified on real YM3812): a
// triangle with 27 output levels. One entry lasts 64 samples, so the
// full cycle takes 64*210 = 13440 samples. With deep tremolo the value
// is used directly; otherwise it is divided by 4, truncating.
var lfoAMTable = [210]uint8{
	0, 0, 0,
	0, 0, 0, 0,
	1, 1, 1, 1,
	2, 2, 2, 2,
	3, 3, 3, 3,
	4, 4, 4, 4,
	5, 5, 5, 5,
	6, 6, 6, 6,
	7, 7, 7, 7,
	8, 8, 8, 8,
	9, 9, 9, 9,
	10, 10, 10, 10,
	11, 11, 11, 11,
	12, 12, 12, 12,
	13, 13, 13, 13,
	14, 14, 14, 14,
	15, 15, 15, 15,
	16, 16, 16, 16,
	17, 17, 17, 17,
	18, 18, 18, 18,
	19, 19, 19, 19,
	20, 20, 20, 20,
	21, 21, 21, 21,
	22, 22, 22, 22,
	23, 23, 23, 23,
	24, 24, 24, 24,
	25, 25, 25, 25,
	26, 26, 26,
	25, 25, 25, 25,
	24, 24, 24, 24,
	23, 23, 23, 23,
	22, 22, 22, 22,
	21, 21, 21, 21,
	20, 20, 20, 20,
	19, 19, 19, 19,
	18, 18, 18, 18,
	17, 17, 17, 17,
	16, 16, 16, 16,
	15, 15, 15, 15,
	14, 14, 14, 14,
	13, 13, 13, 13,
	12, 12, 12, 12,
	11, 11, 11, 11,
	10, 10, 10, 10,
	9, 9, 9, 9,
	8, 8, 8, 8,
	7, 7, 7, 7,
	6, 6, 6, 6,
	5, 5, 5, 5,
	4, 4, 4, 4,
	3, 3, 3, 3,
	2, 2, 2, 2,
	1, 1, 1, 1,
}

// lfoPMTable holds the vibrato fnum offsets (verified on real YM3812),
// indexed by fnum bits 9-7, the depth bit, and the 8-state vibrato
// counter.
var lfoPMTable = [8 * 8 * 2]int8{
	// FNUM2/FNUM = 00 0xxxxxxx (0x0000)
	0, 0, 0, 0, 0, 0, 0, 0, // LFO PM depth = 0
	0, 0, 0, 0, 0, 0, 0, 0, // LFO PM depth = 1

	// FNUM2/FNUM = 00 1xxxxxxx (0x0080)
	0, 0, 0, 0, 0, 0, 0, 0, // LFO PM depth = 0
	1, 0, 0, 0, -1, 0, 0, 0, // LFO PM depth = 1

	// FNUM2/FNUM = 01 0xxxxxxx (0x0100)
	1, 0, 0, 0, -1, 0, 0, 0, // LFO PM depth = 0
	2, 1, 0, -1, -2, -1, 0, 1, // LFO PM depth = 1

	// FNUM2/FNUM = 01 1xxxxxxx (0x0180)
	1, 0, 0, 0, -1, 0, 0, 0, // LFO PM depth = 0
	3, 1, 0, -1, -3, -1, 0, 1, // LFO PM depth = 1

	// FNUM2/FNUM = 10 0xxxxxxx (0x0200)
	2, 1, 0, -1, -2, -1, 0, 1, // LFO PM depth = 0
	4, 2, 0, -2, -4, -2, 0, 2, // LFO PM depth = 1

	// FNUM2/FNUM = 10 1xxxxxxx (0x0280)
	2, 1, 0, -1, -2, -1, 0, 1, // LFO PM depth = 0
	5, 2, 0, -2, -5, -2, 0, 2, // LFO PM depth = 1

	// FNUM2/FNUM = 11 0xxxxxxx (0x0300)
	3, 1, 0, -1, -3, -1, 0, 1, // LFO PM depth = 0
	6, 3, 0, -3, -6, -3, 0, 3, // LFO PM depth = 1

	// FNUM2/FNUM = 11 1xxxxxxx (0x0380)
	3, 1, 0, -1, -3, -1, 0, 1, // LFO PM depth = 0
	7, 3, 0, -3, -7, -3, 0, 3, // LFO PM depth = 1
}

// tlTab is the shared log-to-linear output table, sinTab the eight
// waveforms in log scale. Both are built once at startup and shared
// read-only by every chip instance.
var (
	tlTab  [tlTabLen]int32
	sinTab [sinLen * 8]uint32
)

func init() {
	for x := 0; x < tlResLen; x++ {
		m := math.Floor((1 << 16) / math.Pow(2, float64(x+1)*(envStep/4.0)/8.0))

		// the (x+1) above keeps the result below 1<<16, so it fits in
		// 16 bits
		n := int32(m)
		n >>= 4                 // 12 bits
		n = (n >> 1) + (n & 1)  // round to nearest, 11 bits
		n <<= 1                 // 12 bits, as on the real chip
		tlTab[x*2+0] = n
		// the negative half is the complement, not the negation; this
		// differs from OPL2 (verified on real YMF262)
		tlTab[x*2+1] = ^tlTab[x*2+0]

		for i := 1; i < 13; i++ {
			tlTab[x*2+0+i*2*tlResLen] = tlTab[x*2+0] >> uint(i)
			tlTab[x*2+1+i*2*tlResLen] = ^tlTab[x*2+0+i*2*tlResLen]
		}
	}

	log2 := math.Log(2)
	for i := 0; i < sinLen; i++ {
		// non-standard sine, checked against the real chip
		m := math.Sin(float64(i*2+1) * math.Pi / sinLen)

		// the (i*2)+1 above means m never reaches zero
		var o float64
		if m > 0 {
			o = 8 * math.Log(1.0/m) / log2 // convert to decibel scale
		} else {
			o = 8 * math.Log(-1.0/m) / log2
		}
		o /= envStep / 4

		n := int32(2 * o)
		n = (n >> 1) + (n & 1) // round to nearest
		if m >= 0 {
			sinTab[i] = uint32(n * 2)
		} else {
			sinTab[i] = uint32(n*2 + 1)
		}
	}

	for i := 0; i < sinLen; i++ {
		// waveform 1: positive half of the sine, second half silent
		if i&(1<<(sinBits-1)) != 0 {
			sinTab[1*sinLen+i] = tlTabLen
		} else {
			sinTab[1*sinLen+i] = sinTab[i]
		}

		// waveform 2: absolute sine
		sinTab[2*sinLen+i] = sinTab[i&(sinMask>>1)]

		// waveform 3: first quarter of the absolute sine, repeated,
		// with every second quarter silent
		if i&(1<<(sinBits-2)) != 0 {
			sinTab[3*sinLen+i] = tlTabLen
		} else {
			sinTab[3*sinLen+i] = sinTab[i&(sinMask>>2)]
		}

		// waveform 4: whole sine at double speed in the first half,
		// silence in the second
		if i&(1<<(sinBits-1)) != 0 {
			sinTab[4*sinLen+i] = tlTabLen
		} else {
			sinTab[4*sinLen+i] = sinTab[(i*2)&sinMask]
		}

		// waveform 5: absolute sine at double speed in the first half,
		// silence in the second
		if i&(1<<(sinBits-1)) != 0 {
			sinTab[5*sinLen+i] = tlTabLen
		} else {
			sinTab[5*sinLen+i] = sinTab[(i*2)&(sinMask>>1)]
		}

		// waveform 6: square wave, maximum for one half of the cycle
		// and minimum for the other
		if i&(1<<(sinBits-1)) != 0 {
			sinTab[6*sinLen+i] = 1 // negative
		} else {
			sinTab[6*sinLen+i] = 0 // positive
		}

		// waveform 7: sawtooth, positive 0..8176 then negative 8177..1,
		// clipped to the table range
		var x int
		if i&(1<<(sinBits-1)) != 0 {
			x = ((sinLen - 1) - i) * 16 + 1
		} else {
			x = i * 16
		}
		if x > tlTabLen {
			x = tlTabLen
		}
		sinTab[7*sinLen+i] = uint32(x)
	}
}
