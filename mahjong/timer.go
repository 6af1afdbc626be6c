package mahjong

// Timer is a frame-driven one-shot countdown, advanced by the match loop.
type Timer struct {
	remaining float64
	fire      func()
	running   bool
}

func NewTimer() *Timer {
	return &Timer{}
}

// Schedule arms the timer. A previously armed countdown is replaced.
func (t *Timer) Schedule(seconds float64, fire func()) {
	t.remaining = seconds
	t.fire = fire
	t.running = true
}

func (t *Timer) Cancel() {
	t.running = false
	t.fire = nil
}

func (t *Timer) Running() bool { return t.running }

// Update advances the countdown, firing at most once.
func (t *Timer) Update(dt float64) {
	if !t.running {
		return
	}
	t.remaining -= dt
	if t.remaining > 0 {
		return
	}
	fire := t.fire
	t.Cancel()
	if fire != nil {
		fire()
	}
}
