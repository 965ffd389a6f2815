// Package hub holds the pending notification cards on the server side
// and pushes changes to connected dashboards.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/outbox"
	"github.com/nhle/replydeck/internal/store"
)

// ErrInvalidReply is returned for a reply without any non-blank message.
var ErrInvalidReply = errors.New("reply must contain at least one message")

// DeleteEvent tells dashboards to drop a card.
type DeleteEvent struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

// Hub stores cards, fans them out to subscribers and turns replies into
// outbound jobs. Only one card per chat is pending at a time: a newer
// card for the same chat supersedes the older one.
type Hub struct {
	store  store.Store
	broker *Broker
	outbox *outbox.Queue
	now    func() time.Time

	// mu serializes Publish so the supersede check and the insert are
	// atomic.
	mu sync.Mutex
}

// New creates a hub.
func New(s store.Store, b *Broker, q *outbox.Queue) *Hub {
	return &Hub{
		store:  s,
		broker: b,
		outbox: q,
		now:    time.Now,
	}
}

// Subscribe registers a live event listener. See Broker.Subscribe.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	return h.broker.Subscribe()
}

// Snapshot returns every pending card, newest first.
func (h *Hub) Snapshot(ctx context.Context) ([]model.NotificationCard, error) {
	return h.store.ListCards(ctx)
}

// Publish stores card and broadcasts it. Missing ids and timestamps are
// filled in, and an unknown urgency becomes low. Older cards for the
// same chat are deleted and a delete event is broadcast for each before
// the new card.
func (h *Hub) Publish(ctx context.Context, card model.NotificationCard) (model.NotificationCard, error) {
	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	if card.Timestamp.IsZero() {
		card.Timestamp = h.now().UTC()
	}
	switch card.Urgency {
	case model.UrgencyLow, model.UrgencyMedium, model.UrgencyHigh:
	default:
		card.Urgency = model.UrgencyLow
	}
	if card.ReplyOptions == nil {
		card.ReplyOptions = []model.ReplyOption{}
	}
	if card.ConversationHistory == nil {
		card.ConversationHistory = []string{}
	}

	payload, err := json.Marshal(card)
	if err != nil {
		return model.NotificationCard{}, fmt.Errorf("encoding card %s: %w", card.ID, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	stale, err := h.store.CardsForChat(ctx, card.ChatID)
	if err != nil {
		return model.NotificationCard{}, err
	}
	for _, old := range stale {
		if old.ID == card.ID {
			continue
		}
		slog.Info("superseding card", "chat_id", card.ChatID, "stale", old.ID, "card", card.ID)
		if _, err := h.remove(ctx, old.ID); err != nil {
			return model.NotificationCard{}, err
		}
	}

	if err := h.store.SaveCard(ctx, card); err != nil {
		return model.NotificationCard{}, err
	}
	n := h.broker.Broadcast(payload)
	slog.Info("card published", "card", card.ID, "chat_id", card.ChatID, "subscribers", n)
	return card, nil
}

// Dismiss deletes a card and reports whether it existed.
func (h *Hub) Dismiss(ctx context.Context, id string) (bool, error) {
	return h.remove(ctx, id)
}

// Reply queues the messages for delivery, records the choice in the
// reply log and removes the card. Blank messages are dropped; a reply
// left with no message is rejected. A card that no longer exists does
// not prevent the reply from being sent.
func (h *Hub) Reply(ctx context.Context, req model.ReplyRequest) ([]string, error) {
	var messages []string
	for _, m := range req.Text {
		if strings.TrimSpace(m) != "" {
			messages = append(messages, m)
		}
	}
	if len(messages) == 0 {
		return nil, ErrInvalidReply
	}

	card, err := h.store.GetCard(ctx, req.CardID)
	known := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if err := h.outbox.Enqueue(outbox.Job{ChatID: req.ChatID, Messages: messages}); err != nil {
		return nil, fmt.Errorf("queueing reply for chat %d: %w", req.ChatID, err)
	}

	if !known {
		slog.Warn("reply for unknown card", "card", req.CardID, "chat_id", req.ChatID)
		return messages, nil
	}

	entry := model.ReplyLogEntry{
		CardID:      req.CardID,
		ChatID:      req.ChatID,
		History:     card.ConversationHistory,
		ChosenReply: messages,
		Meta:        req.Meta,
		CreatedAt:   h.now().UTC(),
	}
	if err := h.store.AppendReplyLog(ctx, entry); err != nil {
		// The reply is already queued, so the request still succeeds.
		slog.Error("writing reply log", "card", req.CardID, "error", err)
	}
	if _, err := h.remove(ctx, req.CardID); err != nil {
		slog.Error("removing replied card", "card", req.CardID, "error", err)
	}

	return messages, nil
}

// ReplyLog returns the most recent reply log entries.
func (h *Hub) ReplyLog(ctx context.Context, limit int) ([]model.ReplyLogEntry, error) {
	return h.store.ListReplyLog(ctx, limit)
}

// remove deletes a card and broadcasts a delete event if it existed.
func (h *Hub) remove(ctx context.Context, id string) (bool, error) {
	deleted, err := h.store.DeleteCard(ctx, id)
	if err != nil || !deleted {
		return false, err
	}
	payload, _ := json.Marshal(DeleteEvent{Action: "delete", ID: id})
	h.broker.Broadcast(payload)
	return true, nil
}
