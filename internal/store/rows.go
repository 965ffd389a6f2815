package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nhle/replydeck/internal/model"
)

// scanner is satisfied by sqlx rows and by pgx rows.
type scanner interface {
	Scan(dest ...any) error
}

const (
	promptColumns = `id, title, summary, system_prompt, add_sys_prompt,
		model, inputs, persist_inputs, created_at`

	cardColumns = `id, chat_id, sender, summary, urgency, suggested_action,
		reply_options, conversation_history, timestamp, calendar_details`

	replyLogColumns = `id, card_id, chat_id, chat_history, chosen_reply,
		metadata, created_at`
)

// promptArgs returns the values of p in promptColumns order.
func promptArgs(p model.PromptTemplate) ([]any, error) {
	extra, err := json.Marshal(p.AddSysPrompt)
	if err != nil {
		return nil, fmt.Errorf("marshaling add_sys_prompt: %w", err)
	}
	inputs, err := json.Marshal(p.Inputs)
	if err != nil {
		return nil, fmt.Errorf("marshaling inputs: %w", err)
	}
	persist, err := json.Marshal(p.PersistInputs)
	if err != nil {
		return nil, fmt.Errorf("marshaling persist_inputs: %w", err)
	}
	return []any{
		p.ID, p.Title, p.Summary, p.SystemPrompt, string(extra),
		p.Model, string(inputs), string(persist), p.CreatedAt.UTC(),
	}, nil
}

func scanPrompt(row scanner) (model.PromptTemplate, error) {
	var (
		p                      model.PromptTemplate
		extra, inputs, persist string
		createdAt              time.Time
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Summary, &p.SystemPrompt, &extra,
		&p.Model, &inputs, &persist, &createdAt,
	)
	if err != nil {
		return model.PromptTemplate{}, err
	}
	p.CreatedAt = createdAt

	if err := unmarshalColumn("add_sys_prompt", extra, &p.AddSysPrompt); err != nil {
		return model.PromptTemplate{}, err
	}
	if err := unmarshalColumn("inputs", inputs, &p.Inputs); err != nil {
		return model.PromptTemplate{}, err
	}
	if err := unmarshalColumn("persist_inputs", persist, &p.PersistInputs); err != nil {
		return model.PromptTemplate{}, err
	}
	return p, nil
}

// cardArgs returns the values of c in cardColumns order.
func cardArgs(c model.NotificationCard) ([]any, error) {
	options, err := json.Marshal(c.ReplyOptions)
	if err != nil {
		return nil, fmt.Errorf("marshaling reply_options: %w", err)
	}
	history, err := json.Marshal(c.ConversationHistory)
	if err != nil {
		return nil, fmt.Errorf("marshaling conversation_history: %w", err)
	}
	var calendar string
	if c.CalendarDetails != nil {
		raw, err := json.Marshal(c.CalendarDetails)
		if err != nil {
			return nil, fmt.Errorf("marshaling calendar_details: %w", err)
		}
		calendar = string(raw)
	}
	return []any{
		c.ID, c.ChatID, c.Sender, c.Summary, string(c.Urgency), c.SuggestedAction,
		string(options), string(history), c.Timestamp.UTC(), calendar,
	}, nil
}

func scanCard(row scanner) (model.NotificationCard, error) {
	var (
		c                model.NotificationCard
		urgency          string
		options, history string
		calendar         string
		ts               time.Time
	)
	err := row.Scan(
		&c.ID, &c.ChatID, &c.Sender, &c.Summary, &urgency, &c.SuggestedAction,
		&options, &history, &ts, &calendar,
	)
	if err != nil {
		return model.NotificationCard{}, err
	}
	c.Urgency = model.Urgency(urgency)
	c.Timestamp = ts

	if err := unmarshalColumn("reply_options", options, &c.ReplyOptions); err != nil {
		return model.NotificationCard{}, err
	}
	if err := unmarshalColumn("conversation_history", history, &c.ConversationHistory); err != nil {
		return model.NotificationCard{}, err
	}
	if calendar != "" {
		c.CalendarDetails = new(model.CalendarEvent)
		if err := unmarshalColumn("calendar_details", calendar, c.CalendarDetails); err != nil {
			return model.NotificationCard{}, err
		}
	}
	return c, nil
}

// replyLogArgs returns the values of e in replyLogColumns order.
func replyLogArgs(e model.ReplyLogEntry) ([]any, error) {
	history, err := json.Marshal(e.History)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat_history: %w", err)
	}
	chosen, err := json.Marshal(e.ChosenReply)
	if err != nil {
		return nil, fmt.Errorf("marshaling chosen_reply: %w", err)
	}
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}
	return []any{
		e.ID, e.CardID, e.ChatID, string(history), string(chosen),
		string(meta), e.CreatedAt.UTC(),
	}, nil
}

func scanReplyLog(row scanner) (model.ReplyLogEntry, error) {
	var (
		e                     model.ReplyLogEntry
		history, chosen, meta string
		createdAt             time.Time
	)
	err := row.Scan(
		&e.ID, &e.CardID, &e.ChatID, &history, &chosen, &meta, &createdAt,
	)
	if err != nil {
		return model.ReplyLogEntry{}, err
	}
	e.CreatedAt = createdAt

	if err := unmarshalColumn("chat_history", history, &e.History); err != nil {
		return model.ReplyLogEntry{}, err
	}
	if err := unmarshalColumn("chosen_reply", chosen, &e.ChosenReply); err != nil {
		return model.ReplyLogEntry{}, err
	}
	if err := unmarshalColumn("metadata", meta, &e.Meta); err != nil {
		return model.ReplyLogEntry{}, err
	}
	return e, nil
}

func unmarshalColumn(name, raw string, v any) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("unmarshaling %s: %w", name, err)
	}
	return nil
}

// newPrompt prepares a template for insertion.
func newPrompt(p model.PromptTemplate, id string, now time.Time) model.PromptTemplate {
	p.ID = id
	p.CreatedAt = now
	p.ApplyDefaults()
	return p
}
