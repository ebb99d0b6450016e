// Package rng provides the random source used for text and feedback draws.
package rng

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the subset of *rand.Rand the trial components draw from.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// New returns a source seeded with the current time.
func New() Rand {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a reproducible source.
func NewSeeded(seed int64) Rand {
	return &locked{rnd: rand.New(rand.NewSource(seed))}
}

// *rand.Rand is not safe for concurrent use and the text provider, the
// feedback policy and the sample command may share one source.
type locked struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (l *locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Float64()
}

func (l *locked) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Intn(n)
}

// Sequence replays a fixed list of values in [0,1), wrapping around at the end.
// Intn(n) is derived as floor(v*n), so one list drives both kinds of draw.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequence returns a Sequence over values. An empty list always yields 0.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: append([]float64(nil), values...)}
}

// Float64 returns the next value.
func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Intn returns floor(Float64()*n), clamped to [0,n).
func (s *Sequence) Intn(n int) int {
	if n <= 0 {
		panic("rng: invalid argument to Intn")
	}
	idx := int(s.Float64() * float64(n))
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// Draws reports how many values have been consumed.
func (s *Sequence) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
