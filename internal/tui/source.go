package tui

import (
	"sync"
	"time"

	"github.com/verte-zerg/keytrial/internal/trial"
)

// Source is the trial input source fed by the terminal program. Handlers are
// invoked without holding the source lock, so a handler may unsubscribe.
type Source struct {
	mu         sync.Mutex
	onKey      func(trial.KeyEvent)
	onInteract func()
	now        func() time.Time
}

// NewSource returns a source stamping key events with now. A nil now leaves
// stamping to the trial clock.
func NewSource(now func() time.Time) *Source {
	return &Source{now: now}
}

// Subscribe implements trial.InputSource.
func (s *Source) Subscribe(onKey func(trial.KeyEvent), onInteract func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onKey = onKey
	s.onInteract = onInteract
	return s.unsubscribe
}

func (s *Source) unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onKey = nil
	s.onInteract = nil
}

// Key delivers one typed character.
func (s *Source) Key(r rune) {
	s.mu.Lock()
	h := s.onKey
	now := s.now
	s.mu.Unlock()
	if h == nil {
		return
	}
	ev := trial.KeyEvent{Char: r}
	if now != nil {
		ev.At = now()
	}
	h(ev)
}

// Interact delivers a user-interaction signal such as a mouse click.
func (s *Source) Interact() {
	s.mu.Lock()
	h := s.onInteract
	s.mu.Unlock()
	if h != nil {
		h()
	}
}
