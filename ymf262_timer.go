package ymf262

// Timer tick periods in output samples. At the default clock one
// timer 1 tick is about 80 microseconds, one timer 2 tick about 320.
const (
	timer1Scale = 4
	timer2Scale = 16
)

// timer represents a YMF262 timer (1 or 2). Expiry is tracked as an
// absolute sample clock value so an idle timer costs nothing.
type timer struct {
	running bool
	preset  uint8  // Loaded preset value, counts 256-preset ticks
	expiry  uint64 // Sample clock value of the next overflow
}

// period returns the timer interval in samples for the current preset.
func (t *timer) period(scale uint64) uint64 {
	return (256 - uint64(t.preset)) * scale
}

// setStart starts or stops the timer. Writing the current state again
// is a no-op: a running timer keeps its phase.
func (t *timer) setStart(start bool, scale uint64, time uint64) {
	if start == t.running {
		return
	}
	t.running = start
	if start {
		t.expiry = time + t.period(scale)
	}
}

// stepTimers fires overflowed timers and reloads them from the preset
// current at overflow time. Called once per generated sample.
func (y *YMF262) stepTimers() {
	if y.timer1.running && y.clock >= y.timer1.expiry {
		y.timer1.expiry += y.timer1.period(timer1Scale)
		y.setStatus(statusT1)
	}
	if y.timer2.running && y.clock >= y.timer2.expiry {
		y.timer2.expiry += y.timer2.period(timer2Scale)
		y.setStatus(statusT2)
	}
}
