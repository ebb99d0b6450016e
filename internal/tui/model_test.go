package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/keytrial/internal/clock"
	"github.com/verte-zerg/keytrial/internal/model"
	"github.com/verte-zerg/keytrial/internal/rng"
	"github.com/verte-zerg/keytrial/internal/trial"
)

type fixture struct {
	clock   *clock.Manual
	results chan model.TrialResult
	source  *Source
	ctrl    *trial.Controller
	model   *Model
}

func newFixture(t *testing.T, sentence string) *fixture {
	t.Helper()
	f := &fixture{
		clock:   clock.NewManual(time.Unix(100, 0)),
		results: make(chan model.TrialResult, 1),
	}
	f.source = NewSource(f.clock.Now)
	mode := model.SoundAligned
	ctrl, err := trial.New(model.TrialConfig{
		Text:             model.TextSource{Mode: model.TextFixed, Sentence: sentence},
		SoundMode:        &mode,
		FeedbackDuration: 500 * time.Millisecond,
	}, trial.Options{
		Clock: f.clock,
		Rand:  rng.NewSeeded(3),
		Input: f.source,
		Results: trial.ResultSinkFunc(func(r model.TrialResult) {
			f.results <- r
		}),
	})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	f.ctrl = ctrl
	f.model = NewModel(ctrl, f.source, f.results, Options{ShowMode: true})
	return f
}

func (f *fixture) typeRunes(s string) {
	f.clock.Advance(10 * time.Millisecond)
	f.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (f *fixture) finish(t *testing.T) model.TrialResult {
	t.Helper()
	msg := waitForResult(f.results)()
	if _, cmd := f.model.Update(msg); cmd == nil {
		t.Fatalf("expected quit command after result")
	}
	res, ok := f.model.Result()
	if !ok {
		t.Fatalf("expected model to hold the result")
	}
	return res
}

func TestModelRunsTrialToCompletion(t *testing.T) {
	f := newFixture(t, "hi there")
	if cmd := f.model.Init(); cmd == nil {
		t.Fatalf("expected init command")
	}
	f.model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	f.typeRunes("hi")
	f.clock.Advance(10 * time.Millisecond)
	f.model.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	view := f.model.View()
	if !strings.Contains(view, "Aligned") || !strings.Contains(view, "Listen carefully") {
		t.Fatalf("unexpected view: %q", view)
	}
	f.typeRunes("there")
	f.clock.Advance(500 * time.Millisecond)

	res := f.finish(t)
	if !res.Accuracy || res.EndReason != model.EndCompleted || res.UserInput != "hi there" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Keystrokes) != 8 {
		t.Fatalf("expected 8 keystrokes, got %d", len(res.Keystrokes))
	}
	if f.model.View() != "" {
		t.Fatalf("view should be empty after the trial ends")
	}
}

func TestModelEscAborts(t *testing.T) {
	f := newFixture(t, "abc")
	f.model.Init()
	f.typeRunes("a")
	f.model.Update(tea.KeyMsg{Type: tea.KeyEsc})

	res := f.finish(t)
	if res.EndReason != model.EndAborted || res.ReactionTimeMs != nil {
		t.Fatalf("unexpected aborted result: %+v", res)
	}
	f.source.Key('b')
	if f.ctrl.Snapshot().Keystrokes != 1 {
		t.Fatalf("source should be released after abort")
	}
}

func TestModelMissingTextQuitsWithDegenerateResult(t *testing.T) {
	f := newFixture(t, "")
	f.model.Init()
	res := f.finish(t)
	if res.EndReason != model.EndMissingText {
		t.Fatalf("expected missing_text, got %q", res.EndReason)
	}
}

func TestSourceUnsubscribe(t *testing.T) {
	src := NewSource(nil)
	var keys []rune
	clicks := 0
	unsubscribe := src.Subscribe(func(ev trial.KeyEvent) {
		if !ev.At.IsZero() {
			t.Errorf("expected zero timestamp without a clock")
		}
		keys = append(keys, ev.Char)
	}, func() { clicks++ })

	src.Key('a')
	src.Interact()
	unsubscribe()
	src.Key('b')
	src.Interact()

	if string(keys) != "a" || clicks != 1 {
		t.Fatalf("unexpected deliveries: keys=%q clicks=%d", string(keys), clicks)
	}
}
