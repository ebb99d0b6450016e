// Package generator builds typing target texts.
package generator

import (
	"errors"
	"strings"

	"github.com/verte-zerg/keytrial/internal/model"
	"github.com/verte-zerg/keytrial/internal/rng"
)

// DefaultPoolSize is the number of random-letter sentences built per trial.
const DefaultPoolSize = 65

const letters = "abcdefghijklmnopqrstuvwxyz"

// Word length ranges for the three random-letter words.
var wordLengths = [3][2]int{{3, 6}, {3, 7}, {2, 5}}

// ErrMissingText is returned when fixed-text mode has no sentence.
var ErrMissingText = errors.New("required parameter 'sentence' is missing")

// DefaultSubjects are used when no subject list is configured.
var DefaultSubjects = []string{
	"I", "You", "He", "She", "They", "We", "Dogs", "Cats",
	"Birds", "People", "Children", "Students", "Teachers", "Parents",
	"Artists", "Scientists", "Writers", "Doctors", "Players", "Friends",
}

// DefaultVerbs are used when no verb list is configured.
var DefaultVerbs = []string{
	"eat", "run", "jump", "play", "sing", "dance", "write", "read",
	"watch", "hear", "see", "feel", "build", "create", "make", "find",
	"love", "help", "teach", "learn",
}

// DefaultObjects are used when no object list is configured.
var DefaultObjects = []string{
	"food", "games", "books", "music", "movies", "cards", "toys",
	"sports", "websites", "papers", "stories", "songs", "pictures",
	"ideas", "words", "lessons", "puzzles", "plans", "projects", "art",
}

// Generator produces the target text for one trial.
type Generator struct {
	rnd  rng.Rand
	src  model.TextSource
	pool []string
}

// New returns a Generator for src. In generated mode the random-letter pool is
// built immediately so it stays fixed for the lifetime of the trial.
func New(rnd rng.Rand, src model.TextSource) *Generator {
	g := &Generator{rnd: rnd, src: src}
	if src.Mode != model.TextFixed {
		size := src.PoolSize
		if size <= 0 {
			size = DefaultPoolSize
		}
		g.pool = make([]string, 0, size)
		for i := 0; i < size; i++ {
			g.pool = append(g.pool, g.randomLetterSentence())
		}
	}
	return g
}

// Pool returns a copy of the pre-generated random-letter sentences.
func (g *Generator) Pool() []string {
	return append([]string(nil), g.pool...)
}

// Target returns the text to type. isReal is nil in fixed mode; otherwise it
// reports whether a subject-verb-object sentence was chosen.
func (g *Generator) Target() (text string, isReal *bool, err error) {
	if g.src.Mode == model.TextFixed {
		if g.src.Sentence == "" {
			return "", nil, ErrMissingText
		}
		return g.src.Sentence, nil, nil
	}
	realSentence := g.rnd.Float64() > g.src.RandomStringProbability
	if realSentence {
		return g.sentence(), &realSentence, nil
	}
	return g.pool[g.rnd.Intn(len(g.pool))], &realSentence, nil
}

func (g *Generator) sentence() string {
	subject := pick(g.rnd, g.src.Subjects, DefaultSubjects)
	verb := pick(g.rnd, g.src.Verbs, DefaultVerbs)
	object := pick(g.rnd, g.src.Objects, DefaultObjects)
	return subject + " " + verb + " " + object
}

func (g *Generator) randomLetterSentence() string {
	words := make([]string, 0, len(wordLengths))
	for _, bounds := range wordLengths {
		words = append(words, randomString(g.rnd, bounds[0], bounds[1]))
	}
	return strings.Join(words, " ")
}

func pick(rnd rng.Rand, words, fallback []string) string {
	if len(words) == 0 {
		words = fallback
	}
	return words[rnd.Intn(len(words))]
}

func randomString(rnd rng.Rand, minLen, maxLen int) string {
	n := minLen + rnd.Intn(maxLen-minLen+1)
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(letters[rnd.Intn(len(letters))])
	}
	return b.String()
}
