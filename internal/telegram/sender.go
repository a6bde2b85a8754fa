package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// BotAPI is the subset of *tgbotapi.BotAPI the transport uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Sender throttles outgoing messages to stay under Telegram's global send limit.
type Sender struct {
	bot     BotAPI
	limiter *rate.Limiter
}

// NewSender allows perSecond messages per second with an equal burst.
// A non-positive perSecond disables throttling.
func NewSender(bot BotAPI, perSecond float64) *Sender {
	lim := rate.NewLimiter(rate.Inf, 0)
	if perSecond > 0 {
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return &Sender{bot: bot, limiter: lim}
}

// Send waits for a token, then sends c.
func (s *Sender) Send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := s.bot.Send(c)
	return err
}

// Answer acknowledges a callback query. It is not throttled.
func (s *Sender) Answer(id, text string, alert bool) error {
	cfg := tgbotapi.NewCallback(id, text)
	cfg.ShowAlert = alert
	_, err := s.bot.Request(cfg)
	return err
}
