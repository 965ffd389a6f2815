package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/replydeck/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// CreatePrompt inserts a new prompt template.
func (s *SQLiteStore) CreatePrompt(
	ctx context.Context,
	p model.PromptTemplate,
) (model.PromptTemplate, error) {
	p = newPrompt(p, uuid.New().String(), time.Now().UTC())

	args, err := promptArgs(p)
	if err != nil {
		return model.PromptTemplate{}, err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO prompts ("+promptColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		args...,
	)
	if err != nil {
		return model.PromptTemplate{}, fmt.Errorf("creating prompt: %w", err)
	}
	return p, nil
}

// ListPrompts returns all prompt templates, newest first.
func (s *SQLiteStore) ListPrompts(ctx context.Context) ([]model.PromptTemplate, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+promptColumns+" FROM prompts ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("querying prompts: %w", err)
	}
	defer rows.Close()

	prompts := []model.PromptTemplate{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning prompt row: %w", err)
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

// GetPrompt retrieves a single prompt template by its ID.
func (s *SQLiteStore) GetPrompt(ctx context.Context, id string) (*model.PromptTemplate, error) {
	return s.getPrompt(ctx, s.db, id)
}

func (s *SQLiteStore) getPrompt(
	ctx context.Context,
	q sqlx.QueryerContext,
	id string,
) (*model.PromptTemplate, error) {
	row := q.QueryRowxContext(ctx, "SELECT "+promptColumns+" FROM prompts WHERE id = ?", id)
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("prompt %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting prompt %s: %w", id, err)
	}
	return &p, nil
}

// UpdatePrompt merges patch into the stored template.
func (s *SQLiteStore) UpdatePrompt(
	ctx context.Context,
	id string,
	patch model.PromptPatch,
) (*model.PromptTemplate, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := s.getPrompt(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(p)

	args, err := promptArgs(*p)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE prompts SET
			title = ?, summary = ?, system_prompt = ?, add_sys_prompt = ?,
			model = ?, inputs = ?, persist_inputs = ?
		WHERE id = ?`,
		append(slices.Clone(args[1:8]), id)...,
	)
	if err != nil {
		return nil, fmt.Errorf("updating prompt %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing prompt %s: %w", id, err)
	}
	return p, nil
}

// DeletePrompt removes a prompt template.
func (s *SQLiteStore) DeletePrompt(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM prompts WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting prompt %s: %w", id, err)
	}
	return nil
}

// SaveCard inserts or replaces a card.
func (s *SQLiteStore) SaveCard(ctx context.Context, c model.NotificationCard) error {
	args, err := cardArgs(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO cards ("+cardColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		args...,
	)
	if err != nil {
		return fmt.Errorf("saving card %s: %w", c.ID, err)
	}
	return nil
}

// ListCards returns pending cards, newest first.
func (s *SQLiteStore) ListCards(ctx context.Context) ([]model.NotificationCard, error) {
	return s.queryCards(ctx, "SELECT "+cardColumns+" FROM cards ORDER BY timestamp DESC")
}

// CardsForChat returns the pending cards of one conversation.
func (s *SQLiteStore) CardsForChat(ctx context.Context, chatID int64) ([]model.NotificationCard, error) {
	return s.queryCards(ctx,
		"SELECT "+cardColumns+" FROM cards WHERE chat_id = ? ORDER BY timestamp DESC", chatID)
}

func (s *SQLiteStore) queryCards(
	ctx context.Context,
	query string,
	args ...any,
) ([]model.NotificationCard, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cards: %w", err)
	}
	defer rows.Close()

	cards := []model.NotificationCard{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// GetCard retrieves a single card by its ID.
func (s *SQLiteStore) GetCard(ctx context.Context, id string) (*model.NotificationCard, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT "+cardColumns+" FROM cards WHERE id = ?", id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting card %s: %w", id, err)
	}
	return &c, nil
}

// DeleteCard removes a card.
func (s *SQLiteStore) DeleteCard(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM cards WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting card %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// AppendReplyLog records a sent reply.
func (s *SQLiteStore) AppendReplyLog(ctx context.Context, e model.ReplyLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	args, err := replyLogArgs(e)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO reply_log ("+replyLogColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		args...,
	)
	if err != nil {
		return fmt.Errorf("appending reply log for card %s: %w", e.CardID, err)
	}
	return nil
}

// ListReplyLog returns up to limit entries, most recent first.
func (s *SQLiteStore) ListReplyLog(ctx context.Context, limit int) ([]model.ReplyLogEntry, error) {
	query := "SELECT " + replyLogColumns + " FROM reply_log ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying reply log: %w", err)
	}
	defer rows.Close()

	entries := []model.ReplyLogEntry{}
	for rows.Next() {
		e, err := scanReplyLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reply log row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
