package wordlist

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestTypeable(t *testing.T) {
	for _, word := range []string{"hello", "Cats", "ok!", "well,"} {
		if !Typeable(word) {
			t.Fatalf("expected %q to be typeable", word)
		}
	}
	for _, word := range []string{"", "résumé", "naïve", "don’t", "co-op", "r2d2"} {
		if Typeable(word) {
			t.Fatalf("expected %q to be rejected", word)
		}
	}
}

func TestLoadWordsSkipsCommentsAndUntypeable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subjects.txt")
	data := "# subjects\nDogs\n\n  Cats  \nnaïve\nBirds\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	words, err := LoadWords(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"Dogs", "Cats", "Birds"}
	if !reflect.DeepEqual(words, want) {
		t.Fatalf("expected %v, got %v", want, words)
	}
}

func TestLoadWordsRejectsEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verbs.txt")
	if err := os.WriteFile(path, []byte("# nothing\nçà\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWords(path); err == nil {
		t.Fatalf("expected error for list without typeable words")
	}
}
