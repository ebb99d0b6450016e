// Package trial runs a single typing trial: it owns the state machine, the
// per-keystroke feedback draw, timing capture and the exactly-once result.
package trial

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/keytrial/internal/clock"
	"github.com/verte-zerg/keytrial/internal/generator"
	"github.com/verte-zerg/keytrial/internal/input"
	"github.com/verte-zerg/keytrial/internal/logging"
	"github.com/verte-zerg/keytrial/internal/model"
	"github.com/verte-zerg/keytrial/internal/rng"
	"github.com/verte-zerg/keytrial/internal/sound"
)

// ErrAlreadyStarted is returned by Start on a controller that left Idle.
var ErrAlreadyStarted = errors.New("trial already started")

// State is a controller lifecycle state.
type State int

// Controller states.
const (
	StateIdle State = iota
	StateRunning
	StateCompleting
	StateTimedOut
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleting:
		return "completing"
	case StateTimedOut:
		return "timed-out"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// KeyEvent is one character key press. A zero At means "now".
type KeyEvent struct {
	Char rune
	At   time.Time
}

// InputSource delivers key presses and user-interaction signals. Subscribe
// must only register the handlers; it must not call them before returning.
type InputSource interface {
	Subscribe(onKey func(KeyEvent), onInteract func()) (unsubscribe func())
}

// ResultSink receives the single result of a trial.
type ResultSink interface {
	FinishTrial(result model.TrialResult)
}

// ResultSinkFunc adapts a function to ResultSink.
type ResultSinkFunc func(model.TrialResult)

// FinishTrial implements ResultSink.
func (f ResultSinkFunc) FinishTrial(result model.TrialResult) { f(result) }

// Options holds the collaborators of a controller. Zero values fall back to the
// wall clock, a time-seeded random source, silent feedback and a no-op logger.
type Options struct {
	Clock   clock.Clock
	Rand    rng.Rand
	Sink    sound.Sink
	Input   InputSource
	Results ResultSink
	Logger  *zap.SugaredLogger
	NewID   func() string
}

// Snapshot is a read-only view of a running trial for renderers.
type Snapshot struct {
	State      State
	Target     string
	Input      string
	Correct    bool
	SoundMode  model.SoundMode
	Keystrokes int
	Elapsed    time.Duration
}

// Controller is the single-trial state machine.
type Controller struct {
	mu sync.Mutex

	cfg      model.TrialConfig
	rnd      rng.Rand
	clock    *clock.TrialClock
	policy   *sound.Policy
	feedback *sound.Feedback
	source   InputSource
	results  ResultSink
	logger   *zap.SugaredLogger
	newID    func() string

	state       State
	id          string
	mode        model.SoundMode
	target      string
	isReal      *bool
	tracker     *input.Tracker
	keystrokes  []model.KeystrokeEvent
	conditions  []model.SoundCondition
	lastOffset  float64
	endOffset   *float64
	prepared    bool
	unsubscribe func()

	result *model.TrialResult
	done   chan struct{}
}

// New returns an idle controller for cfg.
func New(cfg model.TrialConfig, opts Options) (*Controller, error) {
	if cfg.MatchPolicy == "" {
		cfg.MatchPolicy = model.PrefixAbort
	}
	if !cfg.MatchPolicy.Valid() {
		return nil, fmt.Errorf("unknown match policy %q", cfg.MatchPolicy)
	}
	if cfg.SoundMode != nil && !cfg.SoundMode.Valid() {
		return nil, fmt.Errorf("invalid sound mode %d", int(*cfg.SoundMode))
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rng.New()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Controller{
		cfg:      cfg,
		rnd:      rnd,
		clock:    clock.NewTrialClock(clk),
		policy:   sound.NewPolicy(rnd),
		feedback: sound.NewFeedback(opts.Sink, clk),
		source:   opts.Input,
		results:  opts.Results,
		logger:   logging.OrNop(opts.Logger),
		newID:    newID,
		state:    StateIdle,
		done:     make(chan struct{}),
	}, nil
}

// Start moves the trial from Idle to Running. A missing fixed text finalizes
// the trial immediately with a degenerate result instead of failing.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.id = c.newID()
	c.mode = sound.ResolveMode(c.rnd, c.cfg.SoundMode)
	text, isReal, err := generator.New(c.rnd, c.cfg.Text).Target()
	c.clock.Start()
	if err != nil {
		c.logger.Errorw("cannot start trial", "trial", c.id, "error", err)
		res, ok := c.finalizeLocked(model.EndMissingText)
		c.mu.Unlock()
		if ok {
			c.emit(res)
		}
		return nil
	}
	tracker, err := input.NewTracker(c.cfg.MatchPolicy, text)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.target = text
	c.isReal = isReal
	c.tracker = tracker
	c.state = StateRunning
	c.clock.ScheduleTimeout(c.cfg.TrialDuration, c.onTimeout)
	if c.source != nil {
		c.unsubscribe = c.source.Subscribe(c.HandleKey, c.HandleInteraction)
	}
	c.logger.Infow("trial started",
		"trial", c.id,
		"sound_mode", int(c.mode),
		"policy", string(c.cfg.MatchPolicy),
		"target", text,
		"timeout", c.cfg.TrialDuration,
	)
	c.mu.Unlock()
	return nil
}

// HandleKey processes one key press. Keys outside the accepted set, and any
// key outside the Running state, are ignored.
func (c *Controller) HandleKey(ev KeyEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepareLocked()
	if c.state != StateRunning {
		return
	}
	at := ev.At
	if at.IsZero() {
		at = c.clock.Now()
	}
	step, err := c.tracker.Feed(ev.Char)
	if err != nil {
		if !errors.Is(err, input.ErrInvalidCharacter) {
			c.logger.Debugw("key ignored", "trial", c.id, "error", err)
		}
		return
	}
	offset := millis(c.clock.Since(at))
	if offset < c.lastOffset {
		offset = c.lastOffset
	}
	c.lastOffset = offset

	cond := c.policy.Decide(c.mode)
	c.feedback.Play(cond)
	c.keystrokes = append(c.keystrokes, model.KeystrokeEvent{
		Key:       string(ev.Char),
		OffsetMs:  offset,
		Matched:   step.Matched,
		Condition: cond,
	})
	c.conditions = append(c.conditions, cond)

	if step.Completed {
		end := offset
		c.endOffset = &end
		c.clock.CancelTimeout()
		c.state = StateCompleting
		c.clock.ScheduleFeedbackDelay(c.cfg.FeedbackDuration, c.onFeedbackDone)
		c.logger.Debugw("trial completed", "trial", c.id, "reaction_ms", end)
	}
}

// HandleInteraction prepares the feedback output on first user interaction.
func (c *Controller) HandleInteraction() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepareLocked()
}

// Abort ends the trial at the host's request. A trial waiting out its
// feedback delay is finalized as completed; a running one as aborted.
func (c *Controller) Abort() {
	c.mu.Lock()
	var (
		res model.TrialResult
		ok  bool
	)
	switch c.state {
	case StateRunning:
		res, ok = c.finalizeLocked(model.EndAborted)
	case StateCompleting:
		res, ok = c.finalizeLocked(model.EndCompleted)
	}
	c.mu.Unlock()
	if ok {
		c.emit(res)
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current view of the trial.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:      c.state,
		Target:     c.target,
		SoundMode:  c.mode,
		Keystrokes: len(c.keystrokes),
		Correct:    true,
	}
	if c.tracker != nil {
		snap.Input = c.tracker.Input()
		snap.Correct = c.tracker.Correct()
	}
	if c.state != StateIdle {
		snap.Elapsed = c.clock.Elapsed()
	}
	return snap
}

// Done is closed once the result has been emitted.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Result returns the emitted result, if any.
func (c *Controller) Result() (model.TrialResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return model.TrialResult{}, false
	}
	return *c.result, true
}

func (c *Controller) onTimeout() {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	end := millis(c.clock.Elapsed())
	if end < c.lastOffset {
		end = c.lastOffset
	}
	c.endOffset = &end
	c.state = StateTimedOut
	res, ok := c.finalizeLocked(model.EndTimeout)
	c.mu.Unlock()
	if ok {
		c.emit(res)
	}
}

func (c *Controller) onFeedbackDone() {
	c.mu.Lock()
	if c.state != StateCompleting {
		c.mu.Unlock()
		return
	}
	res, ok := c.finalizeLocked(model.EndCompleted)
	c.mu.Unlock()
	if ok {
		c.emit(res)
	}
}

// finalizeLocked enters Finished and builds the result. It reports false when
// the trial was already finished.
func (c *Controller) finalizeLocked(reason model.EndReason) (model.TrialResult, bool) {
	if c.state == StateFinished {
		return model.TrialResult{}, false
	}
	c.state = StateFinished
	c.clock.CancelTimeout()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}

	res := model.TrialResult{
		TrialID:         c.id,
		StartedAt:       c.clock.StartedAt(),
		TargetText:      c.target,
		Keystrokes:      append([]model.KeystrokeEvent{}, c.keystrokes...),
		SoundConditions: append([]model.SoundCondition{}, c.conditions...),
		SoundMode:       c.mode,
		MatchPolicy:     c.cfg.MatchPolicy,
		IsRealSentence:  c.isReal,
		EndReason:       reason,
	}
	if c.tracker != nil {
		res.UserInput = c.tracker.Input()
		res.Accuracy = res.UserInput == res.TargetText
		res.HadErrors = c.tracker.HadErrors()
	}
	if c.endOffset != nil {
		rt := *c.endOffset
		res.ReactionTimeMs = &rt
	}
	c.result = &res
	c.logger.Infow("trial finished",
		"trial", c.id,
		"reason", string(reason),
		"accuracy", res.Accuracy,
		"keystrokes", len(res.Keystrokes),
	)
	return res, true
}

func (c *Controller) emit(res model.TrialResult) {
	if c.results != nil {
		c.results.FinishTrial(res)
	}
	close(c.done)
}

func (c *Controller) prepareLocked() {
	if c.prepared {
		return
	}
	c.prepared = true
	p, ok := c.feedback.Sink().(sound.Preparer)
	if !ok {
		return
	}
	if err := p.Prepare(); err != nil {
		c.logger.Warnw("feedback output unavailable", "error", err)
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
