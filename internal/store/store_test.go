package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/keytrial/internal/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "keytrial.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return st
}

func TestInsertAndListTrials(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	rt := 812.5
	isReal := true
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first := model.TrialResult{
		TrialID:        "a",
		StartedAt:      base,
		TargetText:     "Cats eat food",
		UserInput:      "Cats eat food",
		Accuracy:       true,
		ReactionTimeMs: &rt,
		Keystrokes: []model.KeystrokeEvent{
			{Key: "C", OffsetMs: 120, Matched: true, Condition: model.ConditionImmediate},
			{Key: "a", OffsetMs: 240.5, Matched: true, Condition: model.ConditionDelayed},
		},
		SoundConditions: []model.SoundCondition{0, 1},
		SoundMode:       model.SoundVariable,
		MatchPolicy:     model.PrefixAbort,
		IsRealSentence:  &isReal,
		EndReason:       model.EndCompleted,
	}
	second := model.TrialResult{
		TrialID:     "b",
		StartedAt:   base.Add(time.Minute),
		TargetText:  "abc",
		SoundMode:   model.SoundAligned,
		MatchPolicy: model.PositionLocked,
		EndReason:   model.EndAborted,
	}
	id, err := st.InsertTrial(ctx, first)
	if err != nil {
		t.Fatalf("insert first: %v", err)
	}
	if _, err := st.InsertTrial(ctx, second); err != nil {
		t.Fatalf("insert second: %v", err)
	}

	trials, err := st.ListTrials(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trials) != 2 {
		t.Fatalf("expected 2 trials, got %d", len(trials))
	}
	if trials[0].TrialID != "b" || trials[1].TrialID != "a" {
		t.Fatalf("expected newest first, got %s, %s", trials[0].TrialID, trials[1].TrialID)
	}
	if trials[0].ReactionTimeMs != nil {
		t.Fatalf("aborted trial should have no reaction time")
	}
	got := trials[1]
	if got.ReactionTimeMs == nil || *got.ReactionTimeMs != rt {
		t.Fatalf("unexpected reaction time: %v", got.ReactionTimeMs)
	}
	if !got.Accuracy || got.Keystrokes != 2 || got.SoundMode != model.SoundVariable || got.EndReason != model.EndCompleted {
		t.Fatalf("unexpected summary: %+v", got)
	}
	if !got.StartedAt.Equal(base) {
		t.Fatalf("expected start %v, got %v", base, got.StartedAt)
	}

	keys, err := st.ListKeystrokes(ctx, id)
	if err != nil {
		t.Fatalf("keystrokes: %v", err)
	}
	if len(keys) != 2 || keys[1].Key != "a" || keys[1].OffsetMs != 240.5 || keys[1].Condition != model.ConditionDelayed {
		t.Fatalf("unexpected keystrokes: %+v", keys)
	}

	limited, err := st.ListTrials(ctx, 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestInsertDuplicateTrialRollsBack(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	res := model.TrialResult{
		TrialID:     "dup",
		StartedAt:   time.Now(),
		Keystrokes:  []model.KeystrokeEvent{{Key: "x"}},
		MatchPolicy: model.PrefixAbort,
		EndReason:   model.EndTimeout,
	}
	if _, err := st.InsertTrial(ctx, res); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := st.InsertTrial(ctx, res); err == nil {
		t.Fatalf("expected unique constraint error")
	}
	trials, err := st.ListTrials(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trials) != 1 || trials[0].Keystrokes != 1 {
		t.Fatalf("expected single trial with one keystroke, got %+v", trials)
	}
}
