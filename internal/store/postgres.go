package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nhle/replydeck/internal/model"
)

// PostgresStore implements the Store interface on a Postgres pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and runs any pending migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx,
		"CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var currentVersion int
	err := s.pool.QueryRow(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range pgMigrations {
		if m.version <= currentVersion {
			continue
		}
		// No arguments: pgx uses the simple protocol, which accepts
		// several statements at once.
		if _, err := s.pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// CreatePrompt inserts a new prompt template.
func (s *PostgresStore) CreatePrompt(
	ctx context.Context,
	p model.PromptTemplate,
) (model.PromptTemplate, error) {
	p = newPrompt(p, uuid.New().String(), time.Now().UTC())

	args, err := promptArgs(p)
	if err != nil {
		return model.PromptTemplate{}, err
	}
	_, err = s.pool.Exec(ctx,
		"INSERT INTO prompts ("+promptColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		args...,
	)
	if err != nil {
		return model.PromptTemplate{}, fmt.Errorf("creating prompt: %w", err)
	}
	return p, nil
}

// ListPrompts returns all prompt templates, newest first.
func (s *PostgresStore) ListPrompts(ctx context.Context) ([]model.PromptTemplate, error) {
	rows, err := s.pool.Query(ctx,
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
func (s *PostgresStore) GetPrompt(ctx context.Context, id string) (*model.PromptTemplate, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+promptColumns+" FROM prompts WHERE id = $1", id)
	p, err := scanPrompt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("prompt %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting prompt %s: %w", id, err)
	}
	return &p, nil
}

// UpdatePrompt merges patch into the stored template.
func (s *PostgresStore) UpdatePrompt(
	ctx context.Context,
	id string,
	patch model.PromptPatch,
) (*model.PromptTemplate, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		"SELECT "+promptColumns+" FROM prompts WHERE id = $1 FOR UPDATE", id)
	p, err := scanPrompt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("prompt %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting prompt %s: %w", id, err)
	}
	patch.Apply(&p)

	args, err := promptArgs(p)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE prompts SET
			title = $1, summary = $2, system_prompt = $3, add_sys_prompt = $4,
			model = $5, inputs = $6, persist_inputs = $7
		WHERE id = $8`,
		args[1], args[2], args[3], args[4], args[5], args[6], args[7], id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating prompt %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing prompt %s: %w", id, err)
	}
	return &p, nil
}

// DeletePrompt removes a prompt template.
func (s *PostgresStore) DeletePrompt(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM prompts WHERE id = $1", id); err != nil {
		return fmt.Errorf("deleting prompt %s: %w", id, err)
	}
	return nil
}

// SaveCard inserts or replaces a card.
func (s *PostgresStore) SaveCard(ctx context.Context, c model.NotificationCard) error {
	args, err := cardArgs(c)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			chat_id = EXCLUDED.chat_id,
			sender = EXCLUDED.sender,
			summary = EXCLUDED.summary,
			urgency = EXCLUDED.urgency,
			suggested_action = EXCLUDED.suggested_action,
			reply_options = EXCLUDED.reply_options,
			conversation_history = EXCLUDED.conversation_history,
			timestamp = EXCLUDED.timestamp,
			calendar_details = EXCLUDED.calendar_details`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("saving card %s: %w", c.ID, err)
	}
	return nil
}

// ListCards returns pending cards, newest first.
func (s *PostgresStore) ListCards(ctx context.Context) ([]model.NotificationCard, error) {
	return s.queryCards(ctx, "SELECT "+cardColumns+" FROM cards ORDER BY timestamp DESC")
}

// CardsForChat returns the pending cards of one conversation.
func (s *PostgresStore) CardsForChat(ctx context.Context, chatID int64) ([]model.NotificationCard, error) {
	return s.queryCards(ctx,
		"SELECT "+cardColumns+" FROM cards WHERE chat_id = $1 ORDER BY timestamp DESC", chatID)
}

func (s *PostgresStore) queryCards(
	ctx context.Context,
	query string,
	args ...any,
) ([]model.NotificationCard, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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
func (s *PostgresStore) GetCard(ctx context.Context, id string) (*model.NotificationCard, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+cardColumns+" FROM cards WHERE id = $1", id)
	c, err := scanCard(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting card %s: %w", id, err)
	}
	return &c, nil
}

// DeleteCard removes a card.
func (s *PostgresStore) DeleteCard(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM cards WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("deleting card %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// AppendReplyLog records a sent reply.
func (s *PostgresStore) AppendReplyLog(ctx context.Context, e model.ReplyLogEntry) error {
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
	_, err = s.pool.Exec(ctx,
		"INSERT INTO reply_log ("+replyLogColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		args...,
	)
	if err != nil {
		return fmt.Errorf("appending reply log for card %s: %w", e.CardID, err)
	}
	return nil
}

// ListReplyLog returns up to limit entries, most recent first.
func (s *PostgresStore) ListReplyLog(ctx context.Context, limit int) ([]model.ReplyLogEntry, error) {
	query := "SELECT " + replyLogColumns + " FROM reply_log ORDER BY created_at DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

// Truncate empties every table. It exists for tests that share one
// database.
func (s *PostgresStore) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE prompts, cards, reply_log"); err != nil {
		return fmt.Errorf("truncating tables: %w", err)
	}
	return nil
}
