package model

import (
	"slices"
	"time"
)

// Urgency drives the visual priority of a card.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Sentiment classifies a reply option for color coding.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Valid reports whether s is one of the known sentiments.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Suggested actions attached to a card by the summarizer.
const (
	ActionIgnore   = "ignore"
	ActionReply    = "reply"
	ActionCalendar = "calendar_event"
)

// CalendarEvent is a meeting or deadline the summarizer spotted in a
// conversation.
type CalendarEvent struct {
	Title string `json:"title"`

	// Datetime is a UTC timestamp as written by the summarizer, empty
	// when the conversation gave no time.
	Datetime string `json:"datetime,omitempty"`

	// Duration is in minutes.
	Duration  int    `json:"duration,omitempty"`
	EventType string `json:"event_type,omitempty"`
}

// ReplyOption is a pre-authored response offered on a card. Text holds
// one entry per chat bubble, sent in order.
type ReplyOption struct {
	Label     string    `json:"label"`
	Text      []string  `json:"text"`
	Sentiment Sentiment `json:"sentiment"`
}

// Messages returns a copy of the option's bubbles so callers can edit
// them without touching the card.
func (o ReplyOption) Messages() []string {
	return slices.Clone(o.Text)
}

// Metadata returns the reply metadata for sending this option, edited
// or verbatim.
func (o ReplyOption) Metadata() ReplyMetadata {
	return ReplyMetadata{
		Label:     o.Label,
		Sentiment: o.Sentiment,
		IsCustom:  false,
	}
}

// ReplyMetadata travels with a drafted message sequence so the backend
// can tell a canned option from a custom one.
type ReplyMetadata struct {
	Label     string    `json:"label"`
	Sentiment Sentiment `json:"sentiment"`
	IsCustom  bool      `json:"is_custom"`
}

// CustomReplyMetadata is the metadata of a free-form reply.
func CustomReplyMetadata() ReplyMetadata {
	return ReplyMetadata{
		Label:     "Custom Reply",
		Sentiment: SentimentNeutral,
		IsCustom:  true,
	}
}

// NotificationCard is an AI-generated summary of an incoming chat that
// awaits a decision from the user.
type NotificationCard struct {
	// ID is unique within the feed.
	ID string `json:"id"`

	// ChatID identifies the originating conversation. It is echoed back
	// when replying.
	ChatID int64 `json:"chat_id"`

	// Sender is the display name of the conversation.
	Sender string `json:"sender"`

	// Summary is a one-sentence digest of what was asked.
	Summary string `json:"summary"`

	Urgency         Urgency `json:"urgency"`
	SuggestedAction string  `json:"suggested_action,omitempty"`

	// ReplyOptions are ordered; the first is the most likely response.
	ReplyOptions []ReplyOption `json:"reply_options"`

	// CalendarDetails is set when SuggestedAction is ActionCalendar.
	CalendarDetails *CalendarEvent `json:"calendar_details,omitempty"`

	// ConversationHistory is read-only context, oldest first.
	ConversationHistory []string `json:"conversation_history"`

	// Timestamp is when the card was produced.
	Timestamp time.Time `json:"timestamp"`
}

// ReplyRequest is the body of a reply dispatch.
type ReplyRequest struct {
	ChatID int64         `json:"chat_id"`
	Text   []string      `json:"text"`
	CardID string        `json:"card_id"`
	Meta   ReplyMetadata `json:"meta"`
}

// ReplyLogEntry records which reply was chosen for a conversation.
type ReplyLogEntry struct {
	ID          string        `json:"id"`
	CardID      string        `json:"card_id"`
	ChatID      int64         `json:"chat_id"`
	History     []string      `json:"chat_history"`
	ChosenReply []string      `json:"chosen_reply"`
	Meta        ReplyMetadata `json:"metadata"`
	CreatedAt   time.Time     `json:"timestamp"`
}
