package outbox

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Typing simulation bounds: 100ms per character, clamped, then jittered.
const (
	perCharDelay   = 100 * time.Millisecond
	minTypingDelay = 1 * time.Second
	maxTypingDelay = 5 * time.Second
)

// botAPI is the subset of *tgbotapi.BotAPI used for sending.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TelegramSender sends replies through the Telegram Bot API. With pacing
// enabled every bubble is preceded by a typing indicator and a delay
// proportional to its length, so a burst of bubbles reads like a person
// typing.
type TelegramSender struct {
	bot    botAPI
	pacing bool
	jitter func() float64
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewTelegramSender authenticates with token.
func NewTelegramSender(token string, pacing bool) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return newTelegramSender(bot, pacing), nil
}

func newTelegramSender(bot botAPI, pacing bool) *TelegramSender {
	return &TelegramSender{
		bot:    bot,
		pacing: pacing,
		jitter: rand.Float64,
		sleep:  sleepCtx,
	}
}

// Send implements Sender. Bubbles go out in order; cancellation stops
// before the next bubble.
func (s *TelegramSender) Send(ctx context.Context, chatID int64, messages []string) error {
	for i, text := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}

		if s.pacing {
			if _, err := s.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
				return fmt.Errorf("sending typing action to %d: %w", chatID, err)
			}
			if err := s.sleep(ctx, TypingDelay(text, s.jitter())); err != nil {
				return err
			}
		}

		if _, err := s.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			return fmt.Errorf("sending bubble %d to %d: %w", i, chatID, err)
		}

		if s.pacing {
			if err := s.sleep(ctx, BubblePause(s.jitter())); err != nil {
				return err
			}
		}
	}
	return nil
}

// TypingDelay returns how long to show the typing indicator for text.
// u in [0,1) selects the jitter factor in [0.8, 1.3).
func TypingDelay(text string, u float64) time.Duration {
	d := time.Duration(utf8.RuneCountInString(text)) * perCharDelay
	d = min(max(d, minTypingDelay), maxTypingDelay)
	return time.Duration(float64(d) * (0.8 + 0.5*u))
}

// BubblePause returns the gap after a bubble. u in [0,1) maps to
// [300ms, 800ms).
func BubblePause(u float64) time.Duration {
	return 300*time.Millisecond + time.Duration(u*float64(500*time.Millisecond))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
