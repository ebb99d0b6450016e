package clock

import "time"

// TrialClock owns the start time of a trial and its two timers.
type TrialClock struct {
	clk      Clock
	t0       time.Time
	timeout  Timer
	feedback Timer
}

// NewTrialClock returns a trial clock on clk. A nil clk uses the wall clock.
func NewTrialClock(clk Clock) *TrialClock {
	if clk == nil {
		clk = Real{}
	}
	return &TrialClock{clk: clk}
}

// Start captures t0.
func (c *TrialClock) Start() time.Time {
	c.t0 = c.clk.Now()
	return c.t0
}

// StartedAt returns t0.
func (c *TrialClock) StartedAt() time.Time { return c.t0 }

// Now returns the current time of the underlying clock.
func (c *TrialClock) Now() time.Time { return c.clk.Now() }

// Elapsed returns the time since Start.
func (c *TrialClock) Elapsed() time.Duration { return c.clk.Now().Sub(c.t0) }

// Since returns the time between Start and at.
func (c *TrialClock) Since(at time.Time) time.Duration { return at.Sub(c.t0) }

// ScheduleTimeout arms the whole-trial timeout. A non-positive duration means
// the trial is unbounded and no timer is armed.
func (c *TrialClock) ScheduleTimeout(d time.Duration, onTimeout func()) {
	if d <= 0 {
		return
	}
	c.timeout = c.clk.AfterFunc(d, onTimeout)
}

// CancelTimeout disarms the whole-trial timeout if it is armed.
func (c *TrialClock) CancelTimeout() {
	if c.timeout == nil {
		return
	}
	c.timeout.Stop()
	c.timeout = nil
}

// TimeoutArmed reports whether a whole-trial timeout is pending.
func (c *TrialClock) TimeoutArmed() bool { return c.timeout != nil }

// ScheduleFeedbackDelay arms the post-completion delay before finalization.
func (c *TrialClock) ScheduleFeedbackDelay(d time.Duration, onFinalize func()) {
	c.feedback = c.clk.AfterFunc(d, onFinalize)
}

// AfterFunc schedules an unrelated one-shot callback on the same clock.
func (c *TrialClock) AfterFunc(d time.Duration, f func()) Timer {
	return c.clk.AfterFunc(d, f)
}
