package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/keytrial/internal/model"
)

func sampleResult() model.TrialResult {
	rt := 600.0
	return model.TrialResult{
		TargetText: "cat",
		UserInput:  "cxt",
		Keystrokes: []model.KeystrokeEvent{
			{Key: "c", OffsetMs: 100, Matched: true, Condition: model.ConditionImmediate},
			{Key: "x", OffsetMs: 300, Matched: false, Condition: model.ConditionDelayed},
			{Key: "t", OffsetMs: 600, Matched: true, Condition: model.ConditionNone},
		},
		ReactionTimeMs: &rt,
		SoundMode:      model.SoundVariable,
		MatchPolicy:    model.PositionLocked,
		HadErrors:      true,
		EndReason:      model.EndCompleted,
	}
}

func TestComputeTrialMetrics(t *testing.T) {
	m := Compute(sampleResult())
	if m.Keystrokes != 3 || m.Matched != 2 || m.Mismatched != 1 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if m.Conditions != [3]int{1, 1, 1} {
		t.Fatalf("unexpected condition counts: %v", m.Conditions)
	}
	// 2 matched chars over 0.01 minutes.
	if math.Abs(m.CPM-200) > 1e-9 || math.Abs(m.WPM-40) > 1e-9 {
		t.Fatalf("unexpected speed: wpm=%v cpm=%v", m.WPM, m.CPM)
	}
	if math.Abs(m.MatchRate-2.0/3.0) > 1e-9 {
		t.Fatalf("unexpected match rate: %v", m.MatchRate)
	}
	if math.Abs(m.MeanIntervalMs-250) > 1e-9 {
		t.Fatalf("unexpected mean interval: %v", m.MeanIntervalMs)
	}
}

func TestComputeWithoutReactionTime(t *testing.T) {
	res := sampleResult()
	res.ReactionTimeMs = nil
	res.EndReason = model.EndAborted
	m := Compute(res)
	if m.DurationMs != 600 {
		t.Fatalf("expected last keystroke offset as duration, got %v", m.DurationMs)
	}
	if got := Compute(model.TrialResult{}); got.WPM != 0 || got.MatchRate != 0 {
		t.Fatalf("expected zero metrics for empty trial, got %+v", got)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{1, 1, 1}); got != "+++" {
		t.Fatalf("expected flat line, got %q", got)
	}
	if got := Sparkline([]float64{0, 10}); got != " @" {
		t.Fatalf("expected min and max chars, got %q", got)
	}
	if Sparkline(nil) != "" {
		t.Fatalf("expected empty sparkline")
	}
}

func TestRenderTrialSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTrialSummary(&buf, sampleResult()); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"completed", "Reaction time 600 ms", "immediate 1, delayed 1, none 1", "Variable"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in summary:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := RenderTrialSummary(&buf, model.TrialResult{EndReason: model.EndMissingText}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "no target text") {
		t.Fatalf("unexpected degenerate summary: %q", buf.String())
	}
}

func TestRenderTrialList(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTrialList(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "No trials found.\n" {
		t.Fatalf("unexpected empty output: %q", buf.String())
	}

	buf.Reset()
	rt := 1234.4
	trials := []model.TrialSummary{{
		ID:             7,
		StartedAt:      time.Now(),
		TargetText:     "Dogs see toys",
		ReactionTimeMs: &rt,
		SoundMode:      model.SoundMostlyAligned,
		MatchPolicy:    model.PrefixAbort,
		EndReason:      model.EndTimeout,
		Keystrokes:     5,
	}}
	if err := RenderTrialList(&buf, trials); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	for _, want := range []string{"timeout", "mostly-aligned", "1234", "Dogs see toys"} {
		if !strings.Contains(lines[1], want) {
			t.Fatalf("expected %q in row %q", want, lines[1])
		}
	}
}

func TestRenderKeystrokes(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderKeystrokes(&buf, sampleResult().Keystrokes); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d", len(lines))
	}
	if !strings.Contains(lines[2], "delayed") || !strings.Contains(lines[2], "no") {
		t.Fatalf("unexpected row: %q", lines[2])
	}
}
