// Package dispatch turns composer decisions into hub requests and keeps
// the feed consistent with their outcome.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/replydeck/internal/composer"
	"github.com/nhle/replydeck/internal/model"
)

// ErrEmptyReply is reported for a reply decision without messages.
var ErrEmptyReply = errors.New("reply has no messages")

// Backend performs the hub calls for a decision. *feed.Client satisfies
// it.
type Backend interface {
	Reply(ctx context.Context, r model.ReplyRequest) error
	Ignore(ctx context.Context, cardID string) error
}

// Remover drops a card from the visible feed. *feed.Reconciler satisfies
// it.
type Remover interface {
	Remove(id string) bool
}

// ResultMsg is a tea.Msg reporting the completion of one dispatch.
type ResultMsg struct {
	Kind   composer.DecisionKind
	CardID string
	Err    error
}

// defaultTimeout bounds a single dispatch request.
const defaultTimeout = 15 * time.Second

// Dispatcher issues exactly one request per decision.
//
// Replies are fire-and-forget: the card leaves the feed as soon as the
// decision is dispatched, whatever the outcome. An ignored card leaves
// the feed only once the hub confirms, so a failed dismissal can be
// retried from the same card.
type Dispatcher struct {
	backend Backend
	feed    Remover
	timeout time.Duration
}

// New creates a dispatcher. A zero timeout uses the default.
func New(backend Backend, feed Remover, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{backend: backend, feed: feed, timeout: timeout}
}

// Dispatch starts the request for decision on card and returns the
// command that performs it. It must be called from the UI goroutine,
// since a reply removes the card immediately.
func (d *Dispatcher) Dispatch(card model.NotificationCard, decision composer.Decision) tea.Cmd {
	backend := d.backend
	timeout := d.timeout
	cardID := card.ID

	switch decision.Kind {
	case composer.DecisionReply:
		if len(decision.Messages) == 0 {
			return func() tea.Msg {
				return ResultMsg{Kind: decision.Kind, CardID: cardID, Err: ErrEmptyReply}
			}
		}
		req := model.ReplyRequest{
			ChatID: card.ChatID,
			Text:   decision.Messages,
			CardID: cardID,
			Meta:   decision.Meta,
		}
		d.feed.Remove(cardID)
		slog.Info("dispatching reply", "card", cardID, "bubbles", len(req.Text), "custom", req.Meta.IsCustom)

		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return ResultMsg{Kind: composer.DecisionReply, CardID: cardID, Err: backend.Reply(ctx, req)}
		}

	default:
		slog.Info("dispatching ignore", "card", cardID)
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return ResultMsg{Kind: composer.DecisionIgnore, CardID: cardID, Err: backend.Ignore(ctx, cardID)}
		}
	}
}

// Settle applies a finished dispatch to the feed and returns a status
// line for the user. It must be called from the UI goroutine.
func (d *Dispatcher) Settle(msg ResultMsg) string {
	if msg.Err != nil {
		slog.Error("dispatch failed", "kind", msg.Kind.String(), "card", msg.CardID, "error", msg.Err)
		return fmt.Sprintf("%s failed: %v", msg.Kind, msg.Err)
	}

	if msg.Kind == composer.DecisionIgnore {
		d.feed.Remove(msg.CardID)
		return "Ignored"
	}
	return "Reply sent"
}
