package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/leaderboard"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/quiz"
)

// UI texts (Markdown)
const (
	startText = "🌍 *Welcome to Knowledge Drop Bot!*\n\n" +
		"I'll share fascinating facts from around the world. Choose a theme or try random:\n\n" +
		"📚 *What would you like to explore?*"
	leaderboardMenuText = "🏆 *Leaderboard*\n\nChoose what you'd like to see:\n\n" +
		"📚 *Facts Viewed* - Who's explored the most\n" +
		"🔥 *Streaks* - Who has the longest streak\n" +
		"💾 *Saved Facts* - Who loves to save"
	notifPrefsText = "🔔 *Notification Preferences*\n\n" +
		"Would you like to receive a daily fact at a specific time?\n" +
		"Your timezone: *%s* (now %s)\n\nChoose your preferred time:"
	quizMenuText = "🧠 *Quiz Mode*\n\nTest your knowledge with multiple choice questions!\n\n" +
		"• 📘 Easy (5 questions) - Random mix\n" +
		"• 📗 Medium (10 questions) - Pick a theme\n" +
		"• 📕 Hard (15 questions) - Challenge mode"
	quizThemeText  = "🎯 *Choose a Theme*\n\nSelect which theme to quiz on:"
	noSavedText    = "📚 You haven't saved any facts yet! Start exploring."
	noQuizzesText  = "📚 You haven't taken any quizzes yet!\n\nStart a quiz to build your stats!"
	askTZText      = "Enter your timezone (e.g., Africa/Lagos, Europe/Berlin):"
	genericErrText = "❌ Something went wrong. Please try again later."
	adminOnlyText  = "❌ Admin only!"
)

func md(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s) }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatFact(f domain.Fact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💡 *%s*", md(f.Drop))
	if f.Expand != "" {
		fmt.Fprintf(&b, "\n\n%s", md(f.Expand))
	}
	if f.CTA != "" {
		fmt.Fprintf(&b, "\n\n👉 %s", md(f.CTA))
	}
	return b.String()
}

func formatStats(u *domain.User) string {
	var b strings.Builder
	b.WriteString("📊 *Your Stats*\n\n")
	fmt.Fprintf(&b, "📚 Facts Viewed: %d\n", u.Stats.FactsViewed)
	fmt.Fprintf(&b, "💾 Facts Saved: %d\n", u.Stats.FactsSaved)
	fmt.Fprintf(&b, "🔥 Current Streak: %d days\n", u.Stats.CurrentStreak)
	fmt.Fprintf(&b, "🏅 Longest Streak: %d days\n", u.Stats.LongestStreak)
	if u.Quiz.TotalQuizzes > 0 {
		fmt.Fprintf(&b, "🧠 Quizzes: %d (best %d)\n", u.Quiz.TotalQuizzes, u.Quiz.BestScore)
	}
	if len(u.Badges) > 0 {
		b.WriteString("\n*Badges*\n")
		for _, badge := range u.Badges {
			b.WriteString(badge.Label() + "\n")
		}
	}
	b.WriteString("\nKeep learning! 🚀")
	return b.String()
}

func formatBadges(fresh []domain.Badge) string {
	var b strings.Builder
	b.WriteString("🎉 *New badge unlocked!*\n")
	for _, badge := range fresh {
		b.WriteString("\n" + badge.Label())
	}
	return b.String()
}

func formatSaved(saved []domain.SavedFact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⭐ *Your Saved Facts (%d)*\n", len(saved))
	for i, f := range saved {
		fmt.Fprintf(&b, "\n%d. *%s* - %s\n%s\n",
			i+1, f.Theme.Title(), f.SavedAt.Format("2006-01-02"), md(truncate(f.FactText, 120)))
	}
	return b.String()
}

func metricTitle(m domain.Metric) (emoji, title string) {
	switch m {
	case domain.MetricLongestStreak:
		return "🔥", "Longest Streak Leaderboard"
	case domain.MetricFactsSaved:
		return "💾", "Saved Facts Leaderboard"
	default:
		return "📚", "Facts Viewed Leaderboard"
	}
}

func medal(pos int) string {
	switch pos {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("#%d", pos)
	}
}

func formatLeaderboard(m domain.Metric, p domain.Period, top []leaderboard.Entry, me leaderboard.Rank, total int) string {
	emoji, title := metricTitle(m)
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n⏰ %s\n\n", emoji, title, p.Title())
	if len(top) == 0 {
		b.WriteString("No data yet! Start exploring! 🌍\n")
	}
	for _, e := range top {
		fmt.Fprintf(&b, "%s *%s* - %d %s\n", medal(e.Position), md(e.Name), e.Value, m.Unit())
	}
	if me.Position > len(top) {
		b.WriteString("\n━━━━━━━━━━━━━━━━━━━\n")
		fmt.Fprintf(&b, "📍 *Your Rank:* #%d - %d %s\n", me.Position, me.Value, m.Unit())
	}
	fmt.Fprintf(&b, "\n👥 *Total Players:* %d", total)
	return b.String()
}

func formatQuestion(s quiz.Session, q quiz.Question) string {
	return fmt.Sprintf("[%d/%d]\n\n❓ *%s*\n\nSelect your answer:", s.Current+1, len(s.Questions), md(q.Prompt))
}

func formatQuizResult(r domain.QuizResult) string {
	emoji, line := "📚", "Keep exploring to improve!"
	switch {
	case r.Percentage >= 90:
		emoji, line = "🏆", "🎉 Outstanding! You're a true fact master!"
	case r.Percentage >= 70:
		emoji, line = "👏", "Great job! Keep learning!"
	case r.Percentage >= 50:
		emoji, line = "💪", "Good effort! Try again!"
	}
	return fmt.Sprintf("%s *Quiz Complete!*\n\n📊 *Your Score:* %d/%d\n📈 *Percentage:* %d%%\n\n%s\n\nTheme: %s",
		emoji, r.Score, r.TotalQuestions, r.Percentage, line, r.Theme.Title())
}

func formatQuizStats(q domain.QuizStats) string {
	var b strings.Builder
	b.WriteString("🧠 *Your Quiz Stats*\n\n")
	fmt.Fprintf(&b, "📝 Quizzes Taken: %d\n", q.TotalQuizzes)
	fmt.Fprintf(&b, "🏆 Best Score: %d\n", q.BestScore)
	fmt.Fprintf(&b, "📊 Average Score: %d\n", q.AverageScore())
	if len(q.RecentScores) > 0 {
		b.WriteString("\n*Recent*\n")
		for i := len(q.RecentScores) - 1; i >= 0; i-- {
			r := q.RecentScores[i]
			fmt.Fprintf(&b, "• %d/%d (%d%%) %s\n", r.Score, r.TotalQuestions, r.Percentage, r.Theme.Title())
		}
	}
	return b.String()
}

func formatAnalytics(a leaderboard.Analytics) string {
	var b strings.Builder
	b.WriteString("📊 *Bot Analytics Dashboard*\n\n")
	fmt.Fprintf(&b, "👥 *Users*\n• Total: %d\n• Active Today: %d\n• Active This Week: %d\n• New This Week: %d\n• Engagement: %d%%\n\n",
		a.TotalUsers, a.ActiveToday, a.ActiveWeek, a.NewUsersWeek, a.EngagementRate)
	fmt.Fprintf(&b, "📈 *Engagement*\n• Total Facts Viewed: %d\n• Total Facts Saved: %d\n• Quizzes Finished: %d\n",
		a.TotalViewed, a.TotalSaved, a.QuizzesFinished)
	if len(a.TopSavedThemes) > 0 {
		b.WriteString("\n🏆 *Top Themes*\n")
		for i, t := range a.TopSavedThemes {
			fmt.Fprintf(&b, "%d. %s: %d saves\n", i+1, t.Theme.Title(), t.Count)
		}
	}
	return b.String()
}

// Keyboards

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func homeRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(button("🏠 Home", "action:home"))
}

func homeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(homeRow())
}

func themeLabel(th domain.Theme) string { return th.Emoji() + " " + th.Title() }

// themeKeyboard lays out every theme two per row; data is prefix + theme id.
func themeKeyboard(prefix string, extra ...[]tgbotapi.InlineKeyboardButton) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, th := range domain.AllThemes() {
		row = append(row, button(themeLabel(th), prefix+th.String()))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, extra...)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func startKeyboard() tgbotapi.InlineKeyboardMarkup {
	return themeKeyboard("theme:",
		tgbotapi.NewInlineKeyboardRow(
			button("⭐ My Saved Facts", "action:view_saved"),
			button("📊 My Stats", "action:stats"),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("🏆 Leaderboard", "action:leaderboard"),
			button("🧠 Quiz", "action:quiz"),
		),
		tgbotapi.NewInlineKeyboardRow(button("🔔 Daily Fact", "action:notif_prefs")),
	)
}

func factKeyboard(th domain.Theme, f domain.Fact) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			button("🔁 Next Fact", "theme:"+th.String()),
			button("💾 Save", "save:"+f.ID),
		),
	}
	second := tgbotapi.NewInlineKeyboardRow(button("📊 Stats", "action:stats"), button("🏠 Menu", "action:home"))
	if f.ShareText != "" {
		second = append([]tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonSwitch("📤 Share", f.ShareText)}, second...)
	}
	rows = append(rows, second)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func leaderboardKeyboard(p domain.Period) tgbotapi.InlineKeyboardMarkup {
	ps := string(p)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("📚 Facts", "leaderboard:facts:"+ps),
			button("🔥 Streaks", "leaderboard:streak:"+ps),
			button("💾 Saved", "leaderboard:saved:"+ps),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("⏰ All Time", "leaderboard:facts:all_time"),
			button("📅 Monthly", "leaderboard:facts:monthly"),
			button("📆 Weekly", "leaderboard:facts:weekly"),
		),
		homeRow(),
	)
}

// notifKeyboard offers the 24 full hours four per row, then timezone and disable.
func notifKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for h := 0; h < 24; h += 4 {
		var row []tgbotapi.InlineKeyboardButton
		for i := h; i < h+4; i++ {
			c := domain.Clock{Hour: i}.String()
			row = append(row, button(c, "notif:"+c))
		}
		rows = append(rows, row)
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(button("🌍 Timezone", "notif:tz")),
		tgbotapi.NewInlineKeyboardRow(button("🔕 Disable Notifications", "notif:disable")),
		homeRow(),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func quizMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("📘 Easy (5)", "quiz:start:5:random_mix"),
			button("📗 Medium (10)", "quiz:theme"),
		),
		tgbotapi.NewInlineKeyboardRow(button("📕 Hard (15)", "quiz:start:15:random_mix")),
		tgbotapi.NewInlineKeyboardRow(
			button("📊 My Stats", "quiz:stats"),
			button("🏆 Leaderboard", "action:leaderboard"),
		),
		homeRow(),
	)
}

func quizThemeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return themeKeyboard("quiz:start:10:", tgbotapi.NewInlineKeyboardRow(button("↩️ Back", "action:quiz")))
}

func questionKeyboard(qIndex int, q quiz.Question) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(q.Options))
	for i, o := range q.Options {
		label := fmt.Sprintf("%c. %s", 'A'+i, truncate(o, 60))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(label, fmt.Sprintf("quiz:answer:%d:%d", qIndex, i))))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func quizDoneKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("🧠 Another Quiz", "action:quiz"),
			button("📊 My Stats", "quiz:stats"),
		),
		homeRow(),
	)
}
