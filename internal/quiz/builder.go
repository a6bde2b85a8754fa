// Package quiz builds multiple-choice quizzes from the fact catalogue and tracks
// in-progress sessions.
package quiz

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
)

const (
	OptionCount      = 4
	DefaultQuestions = 5
	MaxQuestions     = 15
)

var ErrNotEnoughFacts = errors.New("not enough facts for a quiz")

// FactSource is the part of the fact catalogue the builder needs.
type FactSource interface {
	Sample(th domain.Theme, n int) []domain.Fact
	Count(th domain.Theme) int
}

// Question asks which option is the true drop for a hook. Correct indexes Options.
type Question struct {
	FactID  string
	Theme   domain.Theme
	Prompt  string
	Options []string
	Correct int
}

// CorrectText returns the text of the right answer.
func (q Question) CorrectText() string { return q.Options[q.Correct] }

type Builder struct {
	facts FactSource

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewBuilder(facts FactSource) *Builder {
	return NewBuilderWithRand(facts, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewBuilderWithRand uses rnd for every shuffle, for reproducible quizzes.
func NewBuilderWithRand(facts FactSource, rnd *rand.Rand) *Builder {
	return &Builder{facts: facts, rnd: rnd}
}

// Build returns up to n questions from th. Distractors are other drops from the
// same theme, topped up from the whole catalogue when the theme is small.
func (b *Builder) Build(th domain.Theme, n int) ([]Question, error) {
	if n <= 0 {
		n = DefaultQuestions
	}
	if n > MaxQuestions {
		n = MaxQuestions
	}
	if b.facts.Count(domain.ThemeRandomMix) < OptionCount {
		return nil, ErrNotEnoughFacts
	}
	picked := b.facts.Sample(th, n)
	if len(picked) == 0 {
		return nil, ErrNotEnoughFacts
	}

	themePool := b.facts.Sample(th, b.facts.Count(th))
	mixPool := b.facts.Sample(domain.ThemeRandomMix, b.facts.Count(domain.ThemeRandomMix))

	qs := make([]Question, 0, len(picked))
	for _, f := range picked {
		opts := []string{f.Drop}
		opts = appendDistractors(opts, f, themePool)
		opts = appendDistractors(opts, f, mixPool)

		b.mu.Lock()
		b.rnd.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
		b.mu.Unlock()

		correct := 0
		for i, o := range opts {
			if o == f.Drop {
				correct = i
				break
			}
		}
		qs = append(qs, Question{
			FactID:  f.ID,
			Theme:   f.Theme,
			Prompt:  prompt(f),
			Options: opts,
			Correct: correct,
		})
	}
	return qs, nil
}

func appendDistractors(opts []string, f domain.Fact, pool []domain.Fact) []string {
	for _, p := range pool {
		if len(opts) == OptionCount {
			break
		}
		if p.ID == f.ID || p.Drop == "" || contains(opts, p.Drop) {
			continue
		}
		opts = append(opts, p.Drop)
	}
	return opts
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func prompt(f domain.Fact) string {
	if f.Hook != "" {
		return f.Hook
	}
	return "Which of these is true?"
}
