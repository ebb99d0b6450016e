package rng

import "testing"

func TestSequenceWraps(t *testing.T) {
	seq := NewSequence(0.1, 0.9)
	got := []float64{seq.Float64(), seq.Float64(), seq.Float64()}
	want := []float64{0.1, 0.9, 0.1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("draw %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if seq.Draws() != 3 {
		t.Fatalf("expected 3 draws, got %d", seq.Draws())
	}
}

func TestSequenceIntn(t *testing.T) {
	seq := NewSequence(0, 0.34, 0.67, 0.999999)
	want := []int{0, 1, 2, 2}
	for i, w := range want {
		if got := seq.Intn(3); got != w {
			t.Fatalf("draw %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestSeededIsReproducible(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 10; i++ {
		if a.Intn(100) != b.Intn(100) {
			t.Fatalf("expected identical draws at %d", i)
		}
	}
}
