package statsui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/keytrial/internal/model"
)

type fakeLister struct {
	trials    []model.TrialSummary
	keys      map[int64][]model.KeystrokeEvent
	err       error
	lastLimit int
}

func (f *fakeLister) ListTrials(_ context.Context, limit int) ([]model.TrialSummary, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.trials) {
		return f.trials[:limit], nil
	}
	return f.trials, nil
}

func (f *fakeLister) ListKeystrokes(_ context.Context, id int64) ([]model.KeystrokeEvent, error) {
	return f.keys[id], nil
}

func sampleLister() *fakeLister {
	rt := 420.0
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &fakeLister{
		trials: []model.TrialSummary{
			{ID: 2, TrialID: "b", StartedAt: started.Add(time.Minute), TargetText: "cat", UserInput: "cat", Accuracy: true, ReactionTimeMs: &rt, SoundMode: model.SoundVariable, MatchPolicy: model.PrefixAbort, EndReason: model.EndCompleted, Keystrokes: 3},
			{ID: 1, TrialID: "a", StartedAt: started, TargetText: "dog", UserInput: "d", SoundMode: model.SoundAligned, MatchPolicy: model.PrefixAbort, EndReason: model.EndAborted, Keystrokes: 1},
		},
		keys: map[int64][]model.KeystrokeEvent{
			2: {
				{Key: "c", OffsetMs: 100, Matched: true, Condition: model.ConditionImmediate},
				{Key: "a", OffsetMs: 250, Matched: true, Condition: model.ConditionDelayed},
				{Key: "t", OffsetMs: 420, Matched: true, Condition: model.ConditionNone},
			},
		},
	}
}

func TestModelListsTrials(t *testing.T) {
	m := NewModel(sampleLister(), Filter{})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 20})
	if got := len(m.Trials()); got != 2 {
		t.Fatalf("expected 2 trials, got %d", got)
	}
	view := m.View()
	if !strings.Contains(view, "completed") || !strings.Contains(view, "aborted") {
		t.Fatalf("expected both trials in view:\n%s", view)
	}
	if !strings.Contains(view, "sound-mode=any") {
		t.Fatalf("expected filter summary in view:\n%s", view)
	}
}

func TestModelOpensKeystrokes(t *testing.T) {
	m := NewModel(sampleLister(), Filter{})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeTab != tabDetail {
		t.Fatalf("expected detail tab, got %d", m.activeTab)
	}
	if m.selected != 2 {
		t.Fatalf("expected trial 2 selected, got %d", m.selected)
	}
	view := m.View()
	for _, want := range []string{"Trial 2", "420 ms", "delayed", "Matched"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.activeTab != tabTrials {
		t.Fatalf("expected trials tab after esc, got %d", m.activeTab)
	}
}

func TestModelFilterBySoundMode(t *testing.T) {
	lister := sampleLister()
	m := NewModel(lister, Filter{})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m.filterInputs[0].SetValue("5")
	m.filterInputs[1].SetValue("aligned")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMode {
		t.Fatalf("expected filter applied, got error %q", m.filterError)
	}
	if lister.lastLimit != 5 {
		t.Fatalf("expected limit 5, got %d", lister.lastLimit)
	}
	trials := m.Trials()
	if len(trials) != 1 || trials[0].ID != 1 {
		t.Fatalf("expected only trial 1, got %+v", trials)
	}
}

func TestModelFilterRejectsBadInput(t *testing.T) {
	m := NewModel(sampleLister(), Filter{})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	m.filterInputs[1].SetValue("loud")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.filterMode || m.filterError == "" {
		t.Fatalf("expected filter error, got mode=%v err=%q", m.filterMode, m.filterError)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.filterMode {
		t.Fatalf("expected esc to leave filter mode")
	}
}

func TestModelShowsLoadError(t *testing.T) {
	m := NewModel(&fakeLister{err: errors.New("db locked")}, Filter{})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 12})
	view := m.View()
	if !strings.Contains(view, "db locked") {
		t.Fatalf("expected error in view:\n%s", view)
	}
	if !strings.Contains(view, "No trials found.") {
		t.Fatalf("expected empty notice in view:\n%s", view)
	}
}

func TestModelQuit(t *testing.T) {
	m := NewModel(sampleLister(), Filter{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("abcdefgh", 6); got != "abc..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateLine("abc", 6); got != "abc" {
		t.Fatalf("unexpected truncation %q", got)
	}
}
