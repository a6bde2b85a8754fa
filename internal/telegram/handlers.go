package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/quiz"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/store"
)

// ensureUser creates the user on first contact and refreshes the profile names.
func (r *Router) ensureUser(ctx context.Context, c chat) (*domain.User, error) {
	name := strings.TrimSpace(c.user.FirstName + " " + c.user.LastName)
	return r.repo.EnsureUser(ctx, c.userID(), name, c.user.UserName)
}

// --- Generic helpers ---

func (r *Router) send(ctx context.Context, msg tgbotapi.MessageConfig) {
	if err := r.out.Send(ctx, msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

func (r *Router) sendText(ctx context.Context, chatID int64, text string) {
	r.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (r *Router) sendMarkdown(ctx context.Context, chatID int64, text string, kb any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb != nil {
		msg.ReplyMarkup = kb
	}
	r.send(ctx, msg)
}

func (r *Router) announceBadges(ctx context.Context, chatID int64, fresh []domain.Badge) {
	if len(fresh) > 0 {
		r.sendMarkdown(ctx, chatID, formatBadges(fresh), nil)
	}
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, c chat) {
	r.sendMarkdown(ctx, c.id, startText, startKeyboard())
}

func (r *Router) handleStats(ctx context.Context, c chat) {
	u, err := r.repo.GetUser(ctx, c.userID())
	if err != nil {
		r.log.Error("get user failed", zap.Error(err), zap.Int64("user_id", c.userID()))
		r.sendText(ctx, c.id, "Error reading your stats.")
		return
	}
	r.sendMarkdown(ctx, c.id, formatStats(u), homeKeyboard())
}

func (r *Router) handleSaved(ctx context.Context, c chat) {
	u, err := r.repo.GetUser(ctx, c.userID())
	if err != nil {
		r.log.Error("get user failed", zap.Error(err), zap.Int64("user_id", c.userID()))
		r.sendText(ctx, c.id, "Error reading your saved facts.")
		return
	}
	if len(u.SavedFacts) == 0 {
		r.sendMarkdown(ctx, c.id, noSavedText, tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(button("🔍 Find Facts", "theme:random_mix")),
		))
		return
	}
	r.sendMarkdown(ctx, c.id, formatSaved(u.SavedFacts), homeKeyboard())
}

// --- Facts ---

func (r *Router) handleTheme(ctx context.Context, c chat, th domain.Theme) {
	f, ok := r.facts.Random(th)
	if !ok {
		r.sendText(ctx, c.id, "❌ No facts available for this theme!")
		return
	}
	out, err := r.engine.RecordView(ctx, c.userID(), r.now())
	if err != nil {
		r.log.Error("record view failed", zap.Error(err), zap.Int64("user_id", c.userID()))
	}
	if th != domain.ThemeRandomMix {
		if err := r.repo.SetFavoriteTheme(ctx, c.userID(), th); err != nil {
			r.log.Warn("set favorite theme failed", zap.Error(err), zap.Int64("user_id", c.userID()))
		}
	}
	if err := r.DeliverFact(ctx, c.id, th, f); err != nil {
		r.log.Warn("deliver fact failed", zap.Error(err), zap.Int64("chat_id", c.id))
		return
	}
	r.announceBadges(ctx, c.id, out.NewBadges)
}

func (r *Router) handleSave(ctx context.Context, c chat, cbID, factID string) {
	f, ok := r.facts.ByID(factID)
	if !ok {
		_ = r.out.Answer(cbID, "❌ This fact is no longer available.", false)
		return
	}
	_, fresh, err := r.engine.SaveFact(ctx, c.userID(), f, r.now())
	switch {
	case errors.Is(err, store.ErrDuplicateFact):
		_ = r.out.Answer(cbID, "⭐ Already saved!", false)
		return
	case err != nil:
		r.log.Error("save fact failed", zap.Error(err), zap.Int64("user_id", c.userID()))
		_ = r.out.Answer(cbID, "❌ Error", true)
		return
	}
	_ = r.out.Answer(cbID, "💾 Fact saved!", false)
	r.log.Info("fact saved", zap.Int64("user_id", c.userID()), zap.String("fact_id", f.ID))
	r.announceBadges(ctx, c.id, fresh)
}

// --- Leaderboard ---

func (r *Router) handleLeaderboardMenu(ctx context.Context, c chat) {
	r.sendMarkdown(ctx, c.id, leaderboardMenuText, leaderboardKeyboard(domain.PeriodAllTime))
}

func (r *Router) handleLeaderboard(ctx context.Context, c chat, m domain.Metric, p domain.Period) {
	top, err := r.board.Top(ctx, m, p, 0, r.now())
	if err != nil {
		r.log.Error("leaderboard failed", zap.Error(err))
		r.sendText(ctx, c.id, genericErrText)
		return
	}
	me, err := r.board.RankOf(ctx, c.userID(), m)
	if err != nil {
		r.log.Error("rank failed", zap.Error(err), zap.Int64("user_id", c.userID()))
		r.sendText(ctx, c.id, genericErrText)
		return
	}
	r.sendMarkdown(ctx, c.id, formatLeaderboard(m, p, top, me, me.Total), leaderboardKeyboard(p))
}

// --- Notifications ---

func (r *Router) handleNotifPrefs(ctx context.Context, c chat) {
	u, err := r.repo.GetUser(ctx, c.userID())
	if err != nil {
		r.log.Error("get user failed", zap.Error(err), zap.Int64("user_id", c.userID()))
		r.sendText(ctx, c.id, genericErrText)
		return
	}
	local, err := domain.LocalizeTime(r.now(), u.Preferences.Timezone)
	if err != nil {
		local = r.now().Format("15:04")
	}
	r.sendMarkdown(ctx, c.id, fmt.Sprintf(notifPrefsText, md(u.Preferences.Timezone), local), notifKeyboard())
}

func (r *Router) handleNotifTime(ctx context.Context, c chat, clock domain.Clock) {
	if err := r.repo.SetNotifications(ctx, c.userID(), true, clock.String(), ""); err != nil {
		r.log.Error("enable notifications failed", zap.Error(err), zap.Int64("user_id", c.userID()))
		r.sendText(ctx, c.id, "Could not save your notification time.")
		return
	}
	r.sendMarkdown(ctx, c.id,
		fmt.Sprintf("✅ *Notifications Enabled!*\n\nYou'll receive a daily fact at *%s*\n\n🔔 See you tomorrow! 🌍", clock),
		homeKeyboard())
}

func (r *Router) handleNotifDisable(ctx context.Context, c chat) {
	if err := r.repo.SetNotifications(ctx, c.userID(), false, "", ""); err != nil {
		r.log.Error("disable notifications failed", zap.Error(err), zap.Int64("user_id", c.userID()))
		r.sendText(ctx, c.id, "Could not disable notifications.")
		return
	}
	r.sendMarkdown(ctx, c.id, "🔕 Notifications disabled.", homeKeyboard())
}

// --- Free-form dispatcher ---

func (r *Router) handleFreeForm(ctx context.Context, c chat, text string) {
	switch r.getPending(c.userID()) {
	case pendingTZ:
		r.clearPending(c.userID())
		tz, err := domain.ValidateTZ(text)
		if err != nil {
			r.sendText(ctx, c.id, "Invalid timezone. Example: Africa/Lagos")
			return
		}
		u, err := r.repo.GetUser(ctx, c.userID())
		if err == nil {
			err = r.repo.SetNotifications(ctx, c.userID(), u.Preferences.NotificationsEnabled, "", tz)
		}
		if err != nil {
			r.log.Error("update timezone failed", zap.Error(err), zap.Int64("user_id", c.userID()))
			r.sendText(ctx, c.id, "Could not save timezone.")
			return
		}
		r.sendText(ctx, c.id, "Timezone updated: "+tz)
	default:
		// No pending flow: ignore free-form message
	}
}

// --- Quiz ---

func (r *Router) handleQuizMenu(ctx context.Context, c chat) {
	r.sendMarkdown(ctx, c.id, quizMenuText, quizMenuKeyboard())
}

func (r *Router) handleQuizStart(ctx context.Context, c chat, n int, th domain.Theme) {
	qs, err := r.quiz.Build(th, n)
	if err != nil {
		r.sendText(ctx, c.id, "❌ No questions available for this theme!")
		return
	}
	s := r.sessions.Start(c.userID(), th, qs)
	r.log.Info("quiz started",
		zap.Int64("user_id", c.userID()),
		zap.String("session", s.ID),
		zap.Int("questions", len(qs)),
		zap.String("theme", th.String()),
	)
	r.sendQuestion(ctx, c)
}

func (r *Router) sendQuestion(ctx context.Context, c chat) {
	s, ok := r.sessions.Get(c.userID())
	if !ok {
		r.sendText(ctx, c.id, "❌ Quiz session expired!")
		return
	}
	q, ok := s.Question()
	if !ok {
		r.finishQuiz(ctx, c)
		return
	}
	r.sendMarkdown(ctx, c.id, formatQuestion(s, q), questionKeyboard(s.Current, q))
}

func (r *Router) handleQuizAnswer(ctx context.Context, c chat, qIndex, option int) {
	res, err := r.sessions.Answer(c.userID(), qIndex, option)
	switch {
	case errors.Is(err, quiz.ErrNoSession):
		r.sendText(ctx, c.id, "❌ Quiz session expired!")
		return
	case errors.Is(err, quiz.ErrStaleQuestion):
		// Button from a question already answered.
		return
	case err != nil:
		r.log.Warn("quiz answer rejected", zap.Error(err), zap.Int64("user_id", c.userID()))
		return
	}

	if res.Correct {
		r.sendText(ctx, c.id, "✅ Correct!")
	} else {
		r.sendMarkdown(ctx, c.id, "❌ Wrong!\n\n✓ The correct answer is: *"+md(res.CorrectText)+"*", nil)
	}
	if res.Done {
		r.finishQuiz(ctx, c)
		return
	}
	r.sendQuestion(ctx, c)
}

func (r *Router) finishQuiz(ctx context.Context, c chat) {
	result, err := r.sessions.Finish(c.userID())
	if err != nil {
		return
	}
	if _, err := r.repo.RecordQuizResult(ctx, c.userID(), result); err != nil {
		r.log.Error("record quiz result failed", zap.Error(err), zap.Int64("user_id", c.userID()))
	}
	r.log.Info("quiz finished",
		zap.Int64("user_id", c.userID()),
		zap.Int("score", result.Score),
		zap.Int("total", result.TotalQuestions),
	)
	r.sendMarkdown(ctx, c.id, formatQuizResult(result), quizDoneKeyboard())
}

func (r *Router) handleQuizStats(ctx context.Context, c chat) {
	u, err := r.repo.GetUser(ctx, c.userID())
	if err != nil {
		r.log.Error("get user failed", zap.Error(err), zap.Int64("user_id", c.userID()))
		r.sendText(ctx, c.id, genericErrText)
		return
	}
	if u.Quiz.TotalQuizzes == 0 {
		r.sendMarkdown(ctx, c.id, noQuizzesText, tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(button("🧠 Start Quiz", "action:quiz")),
		))
		return
	}
	r.sendMarkdown(ctx, c.id, formatQuizStats(u.Quiz), quizDoneKeyboard())
}

// --- Admin ---

func (r *Router) handleAnalytics(ctx context.Context, c chat) {
	if !r.admins[c.userID()] {
		r.sendText(ctx, c.id, adminOnlyText)
		return
	}
	a, err := r.board.Analytics(ctx, r.now())
	if err != nil {
		r.log.Error("analytics failed", zap.Error(err))
		r.sendText(ctx, c.id, "❌ Error loading analytics")
		return
	}
	r.sendMarkdown(ctx, c.id, formatAnalytics(a), nil)
}
