package wordlist

import "github.com/verte-zerg/keytrial/internal/input"

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// Filter returns the words accepted by keep, in order.
func Filter(words []string, keep FilterFunc) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}

// Typeable reports whether every character of word is accepted as trial input.
func Typeable(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !input.Accepted(r) {
			return false
		}
	}
	return true
}
