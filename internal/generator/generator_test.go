package generator

import (
	"errors"
	"strings"
	"testing"

	"github.com/verte-zerg/keytrial/internal/model"
	"github.com/verte-zerg/keytrial/internal/rng"
)

func TestFixedTextVerbatim(t *testing.T) {
	gen := New(rng.NewSeeded(1), model.TextSource{Mode: model.TextFixed, Sentence: "The cat sat."})
	text, isReal, err := gen.Target()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "The cat sat." {
		t.Fatalf("expected verbatim text, got %q", text)
	}
	if isReal != nil {
		t.Fatalf("expected no real-sentence flag in fixed mode")
	}
	if len(gen.Pool()) != 0 {
		t.Fatalf("expected no pool in fixed mode")
	}
}

func TestFixedTextMissing(t *testing.T) {
	gen := New(rng.NewSeeded(1), model.TextSource{Mode: model.TextFixed})
	if _, _, err := gen.Target(); !errors.Is(err, ErrMissingText) {
		t.Fatalf("expected ErrMissingText, got %v", err)
	}
}

func TestPoolShape(t *testing.T) {
	gen := New(rng.NewSeeded(7), model.TextSource{Mode: model.TextGenerated})
	pool := gen.Pool()
	if len(pool) != DefaultPoolSize {
		t.Fatalf("expected %d pool entries, got %d", DefaultPoolSize, len(pool))
	}
	for _, entry := range pool {
		words := strings.Split(entry, " ")
		if len(words) != 3 {
			t.Fatalf("expected three words in %q", entry)
		}
		for i, w := range words {
			if len(w) < wordLengths[i][0] || len(w) > wordLengths[i][1] {
				t.Fatalf("word %q out of range %v", w, wordLengths[i])
			}
			for _, r := range w {
				if r < 'a' || r > 'z' {
					t.Fatalf("unexpected rune %q in %q", r, w)
				}
			}
		}
	}
}

func TestAlwaysRandomStringDrawsFromPool(t *testing.T) {
	gen := New(rng.NewSeeded(3), model.TextSource{
		Mode:                    model.TextGenerated,
		RandomStringProbability: 1.0,
		PoolSize:                10,
	})
	pool := map[string]struct{}{}
	for _, p := range gen.Pool() {
		pool[p] = struct{}{}
	}
	for i := 0; i < 200; i++ {
		text, isReal, err := gen.Target()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if isReal == nil || *isReal {
			t.Fatalf("expected random-string draw")
		}
		if _, ok := pool[text]; !ok {
			t.Fatalf("text %q not drawn from pool", text)
		}
	}
}

func TestRealSentenceUsesWordLists(t *testing.T) {
	// 0.9 > 0.5 selects a real sentence, then 0.0, 0.5, 0.99 pick the words.
	seq := rng.NewSequence(0.9, 0.0, 0.5, 0.99)
	gen := New(rng.NewSeeded(1), model.TextSource{
		Mode:                    model.TextGenerated,
		RandomStringProbability: 0.5,
		Subjects:                []string{"Dogs", "Cats"},
		Verbs:                   []string{"eat", "see"},
		Objects:                 []string{"food", "toys"},
	})
	gen.rnd = seq
	text, isReal, err := gen.Target()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if isReal == nil || !*isReal {
		t.Fatalf("expected real sentence")
	}
	if text != "Dogs see toys" {
		t.Fatalf("expected %q, got %q", "Dogs see toys", text)
	}
}

func TestEmptyListsFallBackToDefaults(t *testing.T) {
	gen := New(rng.NewSeeded(5), model.TextSource{Mode: model.TextGenerated})
	for i := 0; i < 50; i++ {
		text, isReal, err := gen.Target()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text == "" {
			t.Fatalf("expected non-empty text")
		}
		if *isReal && len(strings.Fields(text)) != 3 {
			t.Fatalf("expected three words, got %q", text)
		}
	}
}
