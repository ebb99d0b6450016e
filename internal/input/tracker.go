// Package input validates typed characters against a target text.
package input

import (
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/keytrial/internal/model"
)

var (
	// ErrInvalidCharacter is returned for keys outside the accepted set.
	ErrInvalidCharacter = errors.New("character outside accepted set")
	// ErrCompleted is returned for keys arriving after completion.
	ErrCompleted = errors.New("input already completed")
)

// Accepted reports whether r may be typed: ASCII letters, ASCII whitespace
// and the punctuation marks . , ! ?
func Accepted(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r == ' ', r == '\t', r == '\n', r == '\r', r == '\v', r == '\f':
		return true
	case r == '.', r == ',', r == '!', r == '?':
		return true
	default:
		return false
	}
}

// Step is the outcome of feeding one character.
type Step struct {
	Next      string
	Matched   bool
	Completed bool
}

// Matcher compares one new character against the target.
type Matcher interface {
	Match(r rune, target, current string) Step
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(r rune, target, current string) Step

// Match implements Matcher.
func (f MatcherFunc) Match(r rune, target, current string) Step {
	return f(r, target, current)
}

// MatchPrefix accepts every character and matches while the input is still a
// prefix of the target. Only an exact match completes.
func MatchPrefix(r rune, target, current string) Step {
	next := current + string(r)
	return Step{
		Next:      next,
		Matched:   strings.HasPrefix(target, next),
		Completed: next == target,
	}
}

// MatchPosition compares r with the target character at the same position.
// The input completes once it is as long as the target, right or wrong.
func MatchPosition(r rune, target, current string) Step {
	targetRunes := []rune(target)
	pos := len([]rune(current))
	matched := pos < len(targetRunes) && targetRunes[pos] == r
	next := current + string(r)
	return Step{
		Next:      next,
		Matched:   matched,
		Completed: len([]rune(next)) >= len(targetRunes),
	}
}

// MatcherFor returns the matcher implementing policy.
func MatcherFor(policy model.MatchPolicy) (Matcher, error) {
	switch policy {
	case model.PrefixAbort:
		return MatcherFunc(MatchPrefix), nil
	case model.PositionLocked:
		return MatcherFunc(MatchPosition), nil
	default:
		return nil, fmt.Errorf("unknown match policy %q", policy)
	}
}

// Tracker holds the typing state for one target.
type Tracker struct {
	policy    model.MatchPolicy
	matcher   Matcher
	target    string
	input     string
	correct   bool
	hadErrors bool
	completed bool
}

// NewTracker returns a tracker for target under policy.
func NewTracker(policy model.MatchPolicy, target string) (*Tracker, error) {
	matcher, err := MatcherFor(policy)
	if err != nil {
		return nil, err
	}
	return &Tracker{
		policy:  policy,
		matcher: matcher,
		target:  target,
		correct: true,
	}, nil
}

// Feed consumes one character.
func (t *Tracker) Feed(r rune) (Step, error) {
	if t.completed {
		return Step{}, ErrCompleted
	}
	if !Accepted(r) {
		return Step{}, ErrInvalidCharacter
	}
	step := t.matcher.Match(r, t.target, t.input)
	t.input = step.Next
	switch t.policy {
	case model.PositionLocked:
		if !step.Matched {
			t.correct = false
			t.hadErrors = true
		}
	default:
		t.correct = step.Matched
	}
	t.completed = step.Completed
	return step, nil
}

// Target returns the text being typed.
func (t *Tracker) Target() string { return t.target }

// Input returns the typed text so far.
func (t *Tracker) Input() string { return t.input }

// Completed reports whether the completion condition was reached.
func (t *Tracker) Completed() bool { return t.completed }

// Correct is the running correctness flag used for progress feedback.
func (t *Tracker) Correct() bool { return t.correct }

// HadErrors returns the policy-specific error flag recorded in results.
func (t *Tracker) HadErrors() bool {
	if t.policy == model.PositionLocked {
		return t.hadErrors
	}
	return !t.correct
}
