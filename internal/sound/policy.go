// Package sound decides and schedules per-keystroke auditory feedback.
package sound

import (
	"github.com/verte-zerg/keytrial/internal/model"
	"github.com/verte-zerg/keytrial/internal/rng"
)

// Mostly-aligned thresholds on a uniform draw.
const (
	mostlyImmediateBelow = 0.70
	mostlyDelayedBelow   = 0.85
)

// Policy draws one feedback condition per accepted keystroke.
type Policy struct {
	rnd rng.Rand
}

// NewPolicy returns a policy drawing from rnd.
func NewPolicy(rnd rng.Rand) *Policy {
	return &Policy{rnd: rnd}
}

// Decide returns the condition for the next keystroke under mode.
func (p *Policy) Decide(mode model.SoundMode) model.SoundCondition {
	switch mode {
	case model.SoundVariable:
		return model.SoundCondition(p.rnd.Intn(3))
	case model.SoundMostlyAligned:
		v := p.rnd.Float64()
		switch {
		case v < mostlyImmediateBelow:
			return model.ConditionImmediate
		case v < mostlyDelayedBelow:
			return model.ConditionDelayed
		default:
			return model.ConditionNone
		}
	default:
		return model.ConditionImmediate
	}
}

// ResolveMode returns *mode, or a uniform draw over the three modes when mode
// is nil.
func ResolveMode(rnd rng.Rand, mode *model.SoundMode) model.SoundMode {
	if mode != nil {
		return *mode
	}
	return model.SoundMode(rnd.Intn(3))
}

// Describe returns the participant-facing label for mode.
func Describe(mode model.SoundMode) string {
	switch mode {
	case model.SoundAligned:
		return "Aligned (100% immediate sound)"
	case model.SoundVariable:
		return "Variable (33% immediate • 33% delayed • 33% none)"
	case model.SoundMostlyAligned:
		return "Mostly-Aligned (70% immediate • 15% delayed • 15% none)"
	default:
		return "Unknown"
	}
}
