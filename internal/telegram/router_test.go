package telegram

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/engagement"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/facts"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/leaderboard"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/quiz"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/store"
)

type fakeBot struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	answers  []tgbotapi.CallbackConfig
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.messages = append(b.messages, m)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := c.(tgbotapi.CallbackConfig); ok {
		b.answers = append(b.answers, a)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) last() tgbotapi.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.messages[len(b.messages)-1]
}

func (b *fakeBot) lastAnswer() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.answers[len(b.answers)-1].Text
}

type harness struct {
	bot    *fakeBot
	repo   store.Repo
	router *Router
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	packs := map[domain.Theme][]domain.Fact{}
	for _, th := range domain.ContentThemes() {
		for i := 0; i < 4; i++ {
			id := th.String() + "-" + string(rune('0'+i))
			packs[th] = append(packs[th], domain.Fact{
				ID: id, Theme: th, Hook: "Guess " + id, Drop: "Drop " + id, Expand: "More", CTA: "Tell a friend", ShareText: "Did you know " + id,
			})
		}
	}
	catalog := facts.New(packs)

	h := &harness{bot: &fakeBot{}, repo: repo, now: time.Date(2025, time.July, 1, 10, 0, 0, 0, time.UTC)}
	h.router = NewRouter(Deps{
		Bot:      h.bot,
		Repo:     repo,
		Engine:   engagement.New(repo, time.UTC, nil, nil),
		Board:    leaderboard.New(repo),
		Facts:    catalog,
		Quiz:     quiz.NewBuilder(catalog),
		Sessions: quiz.NewSessions(time.Hour, nil),
		Admins:   []int64{1},
		Now:      func() time.Time { return h.now },
	})
	return h
}

func command(userID int64, text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID, FirstName: "Ada"},
		Chat:     &tgbotapi.Chat{ID: userID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func text(userID int64, s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "Ada"},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: s,
	}}
}

func press(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID, FirstName: "Ada"},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}}
}

func callbackData(kb any) []string {
	markup, ok := kb.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var out []string
	for _, row := range markup.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				out = append(out, *b.CallbackData)
			}
		}
	}
	return out
}

func TestStart_CreatesUser(t *testing.T) {
	h := newHarness(t)
	h.router.HandleUpdate(context.Background(), command(5, "/start"))

	u, err := h.repo.GetUser(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.DisplayName)

	msg := h.bot.last()
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	assert.Contains(t, callbackData(msg.ReplyMarkup), "theme:random_mix")
	assert.Contains(t, callbackData(msg.ReplyMarkup), "action:notif_prefs")
}

func TestTheme_RecordsViewAndDelivers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.router.HandleUpdate(ctx, press(5, "theme:nature"))

	u, err := h.repo.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, u.Stats.FactsViewed)
	assert.Equal(t, 1, u.Stats.CurrentStreak)
	assert.Equal(t, domain.ThemeNature, u.Preferences.FavoriteTheme)

	msg := h.bot.last()
	assert.Contains(t, msg.Text, "Drop nature-")
	data := callbackData(msg.ReplyMarkup)
	assert.Contains(t, data, "theme:nature")
	assert.True(t, strings.HasPrefix(data[1], "save:nature-"))
}

func TestSave_DuplicateAnswered(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.router.HandleUpdate(ctx, press(5, "save:history-1"))
	assert.Equal(t, "💾 Fact saved!", h.bot.lastAnswer())
	h.router.HandleUpdate(ctx, press(5, "save:history-1"))
	assert.Equal(t, "⭐ Already saved!", h.bot.lastAnswer())
	h.router.HandleUpdate(ctx, press(5, "save:history-99"))
	assert.Contains(t, h.bot.lastAnswer(), "no longer available")

	u, err := h.repo.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, u.Stats.FactsSaved)
	assert.Equal(t, "Drop history-1", u.SavedFacts[0].FactText)

	h.router.HandleUpdate(ctx, command(5, "/saved"))
	assert.Contains(t, h.bot.last().Text, "Your Saved Facts (1)")
}

func TestNotifications_EnableDisableTimezone(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.router.HandleUpdate(ctx, press(5, "notif:07:00"))
	u, err := h.repo.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.True(t, u.Preferences.NotificationsEnabled)
	assert.Equal(t, "07:00", u.Preferences.DailyTime)

	h.router.HandleUpdate(ctx, press(5, "notif:tz"))
	h.router.HandleUpdate(ctx, text(5, "Nowhere/Land"))
	assert.Contains(t, h.bot.last().Text, "Invalid timezone")

	h.router.HandleUpdate(ctx, press(5, "notif:tz"))
	h.router.HandleUpdate(ctx, text(5, "Europe/Berlin"))
	u, err = h.repo.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", u.Preferences.Timezone)
	assert.True(t, u.Preferences.NotificationsEnabled)

	h.router.HandleUpdate(ctx, press(5, "notif:disable"))
	u, err = h.repo.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.False(t, u.Preferences.NotificationsEnabled)
	assert.Equal(t, "07:00", u.Preferences.DailyTime, "disabling keeps the chosen time")
}

func TestQuiz_FullRound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.router.HandleUpdate(ctx, press(5, "quiz:start:5:random_mix"))
	s, ok := h.router.sessions.Get(5)
	require.True(t, ok)
	require.Len(t, s.Questions, 5)

	for i, q := range s.Questions {
		assert.Contains(t, callbackData(h.bot.last().ReplyMarkup), "quiz:answer:"+string(rune('0'+i))+":0")
		opt := q.Correct
		if i == 0 {
			opt = (q.Correct + 1) % len(q.Options)
		}
		h.router.HandleUpdate(ctx, press(5, "quiz:answer:"+string(rune('0'+i))+":"+string(rune('0'+opt))))
	}

	_, ok = h.router.sessions.Get(5)
	assert.False(t, ok, "finished session is removed")
	assert.Contains(t, h.bot.last().Text, "4/5")

	u, err := h.repo.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, u.Quiz.TotalQuizzes)
	assert.Equal(t, 4, u.Quiz.BestScore)

	h.router.HandleUpdate(ctx, press(5, "quiz:stats"))
	assert.Contains(t, h.bot.last().Text, "Quizzes Taken: 1")
}

func TestLeaderboard_ShowsRankAndTotal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.router.HandleUpdate(ctx, press(5, "theme:nature"))
	h.router.HandleUpdate(ctx, press(6, "theme:nature"))
	h.router.HandleUpdate(ctx, press(6, "theme:nature"))

	h.router.HandleUpdate(ctx, press(5, "leaderboard:facts:all_time"))
	body := h.bot.last().Text
	assert.Contains(t, body, "Facts Viewed Leaderboard")
	assert.Contains(t, body, "🥇 *Ada* - 2 facts")
	assert.Contains(t, body, "Total Players:* 2")
}

func TestAnalytics_AdminOnly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.router.HandleUpdate(ctx, command(2, "/analytics"))
	assert.Equal(t, adminOnlyText, h.bot.last().Text)

	h.router.HandleUpdate(ctx, command(1, "/analytics"))
	assert.Contains(t, h.bot.last().Text, "Bot Analytics Dashboard")
	assert.Contains(t, h.bot.last().Text, "Total: 2")
}

func TestDeliverFact_Markup(t *testing.T) {
	h := newHarness(t)
	f := domain.Fact{ID: "origins-0", Theme: domain.ThemeOrigins, Drop: "snake_case *bold*", ShareText: "share me"}

	require.NoError(t, h.router.DeliverFact(context.Background(), 9, domain.ThemeRandomMix, f))
	msg := h.bot.last()
	assert.Equal(t, int64(9), msg.ChatID)
	assert.Contains(t, msg.Text, `snake\_case \*bold\*`)
	assert.Equal(t, []string{"theme:random_mix", "save:origins-0", "action:stats", "action:home"}, callbackData(msg.ReplyMarkup))
}
