package quiz

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/facts"
)

func catalog(perTheme int) *facts.Catalog {
	packs := map[domain.Theme][]domain.Fact{}
	for _, th := range domain.ContentThemes() {
		for i := 0; i < perTheme; i++ {
			packs[th] = append(packs[th], domain.Fact{
				ID:    fmt.Sprintf("%s-%d", th, i),
				Theme: th,
				Hook:  fmt.Sprintf("hook %s %d", th, i),
				Drop:  fmt.Sprintf("drop %s %d", th, i),
			})
		}
	}
	return facts.New(packs)
}

func TestBuild_FourShuffledOptions(t *testing.T) {
	b := NewBuilderWithRand(catalog(6), rand.New(rand.NewPCG(1, 2)))

	qs, err := b.Build(domain.ThemeNature, 5)
	require.NoError(t, err)
	require.Len(t, qs, 5)

	seen := map[string]bool{}
	for _, q := range qs {
		require.Len(t, q.Options, OptionCount)
		assert.Equal(t, domain.ThemeNature, q.Theme)
		assert.Equal(t, "drop nature "+q.FactID[len("nature-"):], q.CorrectText(), "correct index tracks the fact")
		assert.NotEmpty(t, q.Prompt)
		assert.False(t, seen[q.FactID], "question repeated")
		seen[q.FactID] = true

		uniq := map[string]bool{}
		for _, o := range q.Options {
			uniq[o] = true
		}
		assert.Len(t, uniq, OptionCount, "duplicate options in %v", q.Options)
	}
}

func TestBuild_SmallThemeBorrowsDistractors(t *testing.T) {
	b := NewBuilder(catalog(1))
	qs, err := b.Build(domain.ThemeOrigins, 3)
	require.NoError(t, err)
	require.Len(t, qs, 1, "only one origins fact exists")
	assert.Len(t, qs[0].Options, OptionCount)
	assert.Equal(t, "drop origins 0", qs[0].CorrectText())
}

func TestBuild_NotEnoughFacts(t *testing.T) {
	b := NewBuilder(facts.New(map[domain.Theme][]domain.Fact{
		domain.ThemeNature: {{ID: "nature-0", Theme: domain.ThemeNature, Drop: "a"}},
	}))
	_, err := b.Build(domain.ThemeNature, 5)
	assert.ErrorIs(t, err, ErrNotEnoughFacts)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func questions(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = Question{Options: []string{"a", "b", "c", "d"}, Correct: i % OptionCount}
	}
	return qs
}

func TestSessions_AnswerFlow(t *testing.T) {
	clk := &clock{t: time.Date(2025, time.May, 1, 10, 0, 0, 0, time.UTC)}
	s := NewSessions(30*time.Minute, clk.now)

	started := s.Start(7, domain.ThemeHistory, questions(3))
	assert.NotEmpty(t, started.ID)

	res, err := s.Answer(7, 0, 0)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.False(t, res.Done)

	_, err = s.Answer(7, 0, 1)
	assert.ErrorIs(t, err, ErrStaleQuestion, "replayed button")

	_, err = s.Answer(7, 1, 9)
	assert.ErrorIs(t, err, ErrBadOption)

	res, err = s.Answer(7, 1, 0)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, "b", res.CorrectText)

	res, err = s.Answer(7, 2, 2)
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, 2, res.Score)

	r, err := s.Finish(7)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Score)
	assert.Equal(t, 3, r.TotalQuestions)
	assert.Equal(t, 67, r.Percentage)
	assert.Equal(t, domain.ThemeHistory, r.Theme)

	_, err = s.Finish(7)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_StartReplaces(t *testing.T) {
	s := NewSessions(time.Hour, nil)
	first := s.Start(1, domain.ThemeNature, questions(2))
	_, err := s.Answer(1, 0, 0)
	require.NoError(t, err)

	second := s.Start(1, domain.ThemeOrigins, questions(2))
	assert.NotEqual(t, first.ID, second.ID)

	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)
	assert.Zero(t, got.Current)
	assert.Zero(t, got.Score)
	assert.Equal(t, 1, s.Len())
}

func TestSessions_Expiry(t *testing.T) {
	clk := &clock{t: time.Date(2025, time.May, 1, 10, 0, 0, 0, time.UTC)}
	s := NewSessions(30*time.Minute, clk.now)
	s.Start(1, domain.ThemeNature, questions(2))
	s.Start(2, domain.ThemeNature, questions(2))

	clk.t = clk.t.Add(20 * time.Minute)
	_, err := s.Answer(2, 0, 0)
	require.NoError(t, err)

	clk.t = clk.t.Add(15 * time.Minute)
	_, ok := s.Get(1)
	assert.False(t, ok, "idle session expires on access")

	_, ok = s.Get(2)
	assert.True(t, ok, "answering refreshes the idle timer")

	assert.Equal(t, 1, s.Sweep(clk.t.Add(time.Hour)))
	assert.Zero(t, s.Len())
}

func TestSessions_JanitorStops(t *testing.T) {
	s := NewSessions(time.Millisecond, nil)
	s.Start(1, domain.ThemeNature, questions(1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
