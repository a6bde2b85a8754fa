package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/engagement"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/facts"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/leaderboard"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/quiz"
	"github.com/successdanesy/Knowledge-Drop-Bot/internal/store"
)

// Pending state keys used in conversational flows.
const (
	pendingTZ = "await_tz_text"
)

// Deps are the collaborators a Router dispatches to.
type Deps struct {
	Bot      BotAPI
	SendRate float64
	Repo     store.Repo
	Engine   *engagement.Engine
	Board    *leaderboard.Service
	Facts    *facts.Catalog
	Quiz     *quiz.Builder
	Sessions *quiz.Sessions
	Admins   []int64
	Now      func() time.Time
	Log      *zap.Logger
}

// Router wires Telegram updates to handlers and holds minimal in-memory state.
type Router struct {
	out      *Sender
	log      *zap.Logger
	repo     store.Repo
	engine   *engagement.Engine
	board    *leaderboard.Service
	facts    *facts.Catalog
	quiz     *quiz.Builder
	sessions *quiz.Sessions
	admins   map[int64]bool
	now      func() time.Time

	state map[int64]string // userID -> pending state
	mu    sync.RWMutex
}

func NewRouter(d Deps) *Router {
	r := &Router{
		out:      NewSender(d.Bot, d.SendRate),
		log:      d.Log,
		repo:     d.Repo,
		engine:   d.Engine,
		board:    d.Board,
		facts:    d.Facts,
		quiz:     d.Quiz,
		sessions: d.Sessions,
		admins:   make(map[int64]bool, len(d.Admins)),
		now:      d.Now,
		state:    make(map[int64]string),
	}
	for _, id := range d.Admins {
		r.admins[id] = true
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

func (r *Router) setPending(userID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[userID] = s
}

func (r *Router) getPending(userID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[userID]
}

func (r *Router) clearPending(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, userID)
}

// chat identifies who an update came from and where replies go.
type chat struct {
	id   int64
	user *tgbotapi.User
}

func (c chat) userID() int64 { return c.user.ID }

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		if msg.From == nil {
			return
		}
		c := chat{id: msg.Chat.ID, user: msg.From}
		if _, err := r.ensureUser(ctx, c); err != nil {
			r.log.Error("ensure user failed", zap.Error(err), zap.Int64("user_id", c.userID()))
			r.sendText(ctx, c.id, genericErrText)
			return
		}

		switch msg.Command() {
		case "start":
			r.handleStart(ctx, c)
		case "stats":
			r.handleStats(ctx, c)
		case "saved":
			r.handleSaved(ctx, c)
		case "leaderboard":
			r.handleLeaderboardMenu(ctx, c)
		case "quiz":
			r.handleQuizMenu(ctx, c)
		case "notify":
			r.handleNotifPrefs(ctx, c)
		case "analytics":
			r.handleAnalytics(ctx, c)
		case "":
			r.handleFreeForm(ctx, c, strings.TrimSpace(msg.Text))
		default:
			// Unknown command, ignore
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil || cb.From == nil {
			return
		}
		r.handleCallback(ctx, chat{id: cb.Message.Chat.ID, user: cb.From}, cb)
	}
}

func (r *Router) handleCallback(ctx context.Context, c chat, cb *tgbotapi.CallbackQuery) {
	parsed, err := parseCallback(cb.Data)
	if err != nil {
		r.log.Warn("bad callback", zap.String("data", cb.Data), zap.Error(err))
		_ = r.out.Answer(cb.ID, "", false)
		return
	}
	if _, err := r.ensureUser(ctx, c); err != nil {
		r.log.Error("ensure user failed", zap.Error(err), zap.Int64("user_id", c.userID()))
		_ = r.out.Answer(cb.ID, "❌ Error", true)
		return
	}

	// Save answers its own callback with the outcome.
	if parsed.kind == cbSave {
		r.handleSave(ctx, c, cb.ID, parsed.factID)
		return
	}
	_ = r.out.Answer(cb.ID, "", false)

	switch parsed.kind {
	case cbTheme:
		r.handleTheme(ctx, c, parsed.theme)
	case cbAction:
		switch parsed.action {
		case actionHome:
			r.handleStart(ctx, c)
		case actionStats:
			r.handleStats(ctx, c)
		case actionViewSaved:
			r.handleSaved(ctx, c)
		case actionLeaderboard:
			r.handleLeaderboard(ctx, c, domain.MetricFactsViewed, domain.PeriodAllTime)
		case actionNotifPrefs:
			r.handleNotifPrefs(ctx, c)
		case actionQuiz:
			r.handleQuizMenu(ctx, c)
		}
	case cbLeaderboard:
		r.handleLeaderboard(ctx, c, parsed.metric, parsed.period)
	case cbNotifTime:
		r.handleNotifTime(ctx, c, parsed.clock)
	case cbNotifDisable:
		r.handleNotifDisable(ctx, c)
	case cbNotifTZ:
		r.sendText(ctx, c.id, askTZText)
		r.setPending(c.userID(), pendingTZ)
	case cbQuizTheme:
		r.sendMarkdown(ctx, c.id, quizThemeText, quizThemeKeyboard())
	case cbQuizStart:
		r.handleQuizStart(ctx, c, parsed.count, parsed.theme)
	case cbQuizAnswer:
		r.handleQuizAnswer(ctx, c, parsed.question, parsed.option)
	case cbQuizStats:
		r.handleQuizStats(ctx, c)
	}
}

// DeliverFact sends a fact with its controls. It makes Router satisfy scheduler.Transport.
func (r *Router) DeliverFact(ctx context.Context, chatID int64, th domain.Theme, f domain.Fact) error {
	msg := tgbotapi.NewMessage(chatID, formatFact(f))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = factKeyboard(th, f)
	return r.out.Send(ctx, msg)
}
