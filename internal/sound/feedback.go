package sound

import (
	"time"

	"github.com/verte-zerg/keytrial/internal/clock"
	"github.com/verte-zerg/keytrial/internal/model"
)

// DelayedLatency is the gap between a keystroke and its delayed feedback.
const DelayedLatency = 200 * time.Millisecond

// Sink plays keystroke feedback.
type Sink interface {
	PlayImmediate()
	PlayDelayed()
}

// Preparer is implemented by sinks whose output device is opened lazily, on
// the first user interaction.
type Preparer interface {
	Prepare() error
}

// Nop discards all feedback.
type Nop struct{}

// PlayImmediate implements Sink.
func (Nop) PlayImmediate() {}

// PlayDelayed implements Sink.
func (Nop) PlayDelayed() {}

// Feedback turns decided conditions into playback on a sink.
type Feedback struct {
	sink    Sink
	clk     clock.Clock
	latency time.Duration
}

// NewFeedback returns a scheduler for sink. Delayed playback uses clk.
func NewFeedback(sink Sink, clk clock.Clock) *Feedback {
	if sink == nil {
		sink = Nop{}
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Feedback{sink: sink, clk: clk, latency: DelayedLatency}
}

// Sink returns the underlying sink.
func (f *Feedback) Sink() Sink { return f.sink }

// Play starts feedback for cond. Delayed playback is fire-and-forget: the
// timer is never cancelled, so it may sound after the trial has finished.
func (f *Feedback) Play(cond model.SoundCondition) {
	switch cond {
	case model.ConditionImmediate:
		f.sink.PlayImmediate()
	case model.ConditionDelayed:
		f.clk.AfterFunc(f.latency, f.sink.PlayDelayed)
	}
}
