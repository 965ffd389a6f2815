package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/replydeck/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for prompt templates, pending
// notification cards, and the reply log.
type Store interface {
	// === Prompt templates ===

	// CreatePrompt assigns an id and creation time, applies defaults and
	// returns the stored template.
	CreatePrompt(ctx context.Context, p model.PromptTemplate) (model.PromptTemplate, error)
	ListPrompts(ctx context.Context) ([]model.PromptTemplate, error)
	GetPrompt(ctx context.Context, id string) (*model.PromptTemplate, error)
	UpdatePrompt(ctx context.Context, id string, patch model.PromptPatch) (*model.PromptTemplate, error)
	// DeletePrompt succeeds whether or not the template existed.
	DeletePrompt(ctx context.Context, id string) error

	// === Notification cards ===

	SaveCard(ctx context.Context, c model.NotificationCard) error
	// ListCards returns pending cards, newest first.
	ListCards(ctx context.Context) ([]model.NotificationCard, error)
	GetCard(ctx context.Context, id string) (*model.NotificationCard, error)
	CardsForChat(ctx context.Context, chatID int64) ([]model.NotificationCard, error)
	// DeleteCard reports whether a card was removed.
	DeleteCard(ctx context.Context, id string) (bool, error)

	// === Reply log ===

	AppendReplyLog(ctx context.Context, e model.ReplyLogEntry) error
	// ListReplyLog returns the most recent entries first.
	ListReplyLog(ctx context.Context, limit int) ([]model.ReplyLogEntry, error)

	Close() error
}

// Open connects to the store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg model.ServerConfig) (Store, error) {
	switch cfg.StoreDriver {
	case "", "sqlite":
		return NewSQLiteStore(cfg.StoreDSN)
	case "postgres":
		return NewPostgresStore(ctx, cfg.StoreDSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
