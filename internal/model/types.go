// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// SoundMode selects the per-keystroke feedback distribution for a trial.
type SoundMode int

// Sound modes.
const (
	SoundAligned       SoundMode = 0
	SoundVariable      SoundMode = 1
	SoundMostlyAligned SoundMode = 2
)

// Valid reports whether m is one of the three known modes.
func (m SoundMode) Valid() bool {
	return m >= SoundAligned && m <= SoundMostlyAligned
}

func (m SoundMode) String() string {
	switch m {
	case SoundAligned:
		return "aligned"
	case SoundVariable:
		return "variable"
	case SoundMostlyAligned:
		return "mostly-aligned"
	default:
		return fmt.Sprintf("SoundMode(%d)", int(m))
	}
}

// SoundCondition is the feedback timing class assigned to one keystroke.
type SoundCondition int

// Sound conditions, recorded as 0, 1 and 2.
const (
	ConditionImmediate SoundCondition = 0
	ConditionDelayed   SoundCondition = 1
	ConditionNone      SoundCondition = 2
)

func (c SoundCondition) String() string {
	switch c {
	case ConditionImmediate:
		return "immediate"
	case ConditionDelayed:
		return "delayed"
	case ConditionNone:
		return "none"
	default:
		return fmt.Sprintf("SoundCondition(%d)", int(c))
	}
}

// MatchPolicy decides how typed characters are compared against the target.
type MatchPolicy string

// Matching policies.
const (
	// PrefixAbort keeps accepting input after a mistake; the trial completes
	// only when the input equals the target exactly.
	PrefixAbort MatchPolicy = "prefix-abort"
	// PositionLocked compares each character with the target at the same
	// position; the trial completes once the input is as long as the target.
	PositionLocked MatchPolicy = "position-locked"
)

// Valid reports whether p is a known policy.
func (p MatchPolicy) Valid() bool {
	return p == PrefixAbort || p == PositionLocked
}

// TextMode selects where the target text comes from.
type TextMode string

// Text modes.
const (
	TextFixed     TextMode = "fixed"
	TextGenerated TextMode = "generated"
)

// TextSource describes the target text for a trial.
type TextSource struct {
	Mode     TextMode
	Sentence string

	Subjects                []string
	Verbs                   []string
	Objects                 []string
	RandomStringProbability float64
	PoolSize                int
}

// TrialConfig defines the parameters of one trial.
type TrialConfig struct {
	Text TextSource
	// SoundMode is nil when the mode should be drawn at trial start.
	SoundMode *SoundMode
	// TrialDuration of zero means the trial has no time limit.
	TrialDuration    time.Duration
	FeedbackDuration time.Duration
	MatchPolicy      MatchPolicy
}

// EndReason records how a trial reached finalization.
type EndReason string

// End reasons.
const (
	EndCompleted   EndReason = "completed"
	EndTimeout     EndReason = "timeout"
	EndAborted     EndReason = "aborted"
	EndMissingText EndReason = "missing_text"
)

// KeystrokeEvent is one accepted key press.
type KeystrokeEvent struct {
	Key       string         `json:"key" yaml:"key"`
	OffsetMs  float64        `json:"time" yaml:"time"`
	Matched   bool           `json:"matched" yaml:"matched"`
	Condition SoundCondition `json:"sound_condition" yaml:"sound_condition"`
}

// TrialResult is the record produced exactly once per trial.
type TrialResult struct {
	TrialID         string           `json:"trial_id" yaml:"trial_id"`
	StartedAt       time.Time        `json:"started_at" yaml:"started_at"`
	TargetText      string           `json:"target_text" yaml:"target_text"`
	UserInput       string           `json:"user_input" yaml:"user_input"`
	Accuracy        bool             `json:"accuracy" yaml:"accuracy"`
	ReactionTimeMs  *float64         `json:"reaction_time" yaml:"reaction_time"`
	Keystrokes      []KeystrokeEvent `json:"key_press_times" yaml:"key_press_times"`
	SoundConditions []SoundCondition `json:"sound_conditions" yaml:"sound_conditions"`
	SoundMode       SoundMode        `json:"sound_mode" yaml:"sound_mode"`
	MatchPolicy     MatchPolicy      `json:"match_policy" yaml:"match_policy"`
	// HadErrors is sticky under PositionLocked. Under PrefixAbort it is the
	// running flag: true when the final input is not a prefix of the target.
	HadErrors      bool      `json:"had_errors" yaml:"had_errors"`
	IsRealSentence *bool     `json:"is_real_sentence,omitempty" yaml:"is_real_sentence,omitempty"`
	EndReason      EndReason `json:"end_reason" yaml:"end_reason"`
}

// TrialSummary is a recorded trial as listed by the result store.
type TrialSummary struct {
	ID             int64
	TrialID        string
	StartedAt      time.Time
	TargetText     string
	UserInput      string
	Accuracy       bool
	ReactionTimeMs *float64
	SoundMode      SoundMode
	MatchPolicy    MatchPolicy
	EndReason      EndReason
	Keystrokes     int
}
