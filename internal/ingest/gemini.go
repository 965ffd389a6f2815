package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/relay"
)

const systemPrompt = `You triage chat messages for a busy person ("Me").
Read the conversation and return one dashboard card.
summary: one sentence on what was asked or said. Leave out the sender's name unless a third person is involved. Include place and time when given.
urgency: low, medium or high.
suggested_action: ignore, reply, or calendar_event when the chat sets up a meeting or deadline.
reply_options: 2-3 distinct replies when the action is reply. Each has a short button label, 1-3 short bubbles sent one after another, and a sentiment.
calendar_details: only when the action is calendar_event. datetime is UTC, duration is in minutes.`

var cardSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {Type: genai.TypeString},
		"urgency": {Type: genai.TypeString, Enum: []string{
			string(model.UrgencyLow), string(model.UrgencyMedium), string(model.UrgencyHigh),
		}},
		"suggested_action": {Type: genai.TypeString, Enum: []string{
			model.ActionIgnore, model.ActionReply, model.ActionCalendar,
		}},
		"reply_options": {
			Type:     genai.TypeArray,
			MaxItems: genai.Ptr[int64](3),
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"label": {Type: genai.TypeString},
					"text": {
						Type:     genai.TypeArray,
						MinItems: genai.Ptr[int64](1),
						MaxItems: genai.Ptr[int64](3),
						Items:    &genai.Schema{Type: genai.TypeString},
					},
					"sentiment": {Type: genai.TypeString, Enum: []string{
						string(model.SentimentPositive), string(model.SentimentNegative), string(model.SentimentNeutral),
					}},
				},
				Required: []string{"label", "text", "sentiment"},
			},
		},
		"calendar_details": {
			Type:     genai.TypeObject,
			Nullable: genai.Ptr(true),
			Properties: map[string]*genai.Schema{
				"title":    {Type: genai.TypeString},
				"datetime": {Type: genai.TypeString},
				"duration": {Type: genai.TypeInteger},
				"event_type": {Type: genai.TypeString, Enum: []string{
					"Work", "Event", "Misc", "Due date", "Meeting", "Trip",
				}},
			},
			Required: []string{"title", "event_type"},
		},
	},
	Required:         []string{"summary", "urgency", "suggested_action", "reply_options"},
	PropertyOrdering: []string{"summary", "urgency", "suggested_action", "reply_options", "calendar_details"},
}

// GeminiSummarizer asks Gemini for a card in structured JSON.
type GeminiSummarizer struct {
	client *genai.Client
	model  string
}

// NewGeminiSummarizer creates a summarizer authenticated with apiKey.
func NewGeminiSummarizer(ctx context.Context, apiKey, modelName string) (*GeminiSummarizer, error) {
	if apiKey == "" {
		return nil, relay.ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiSummarizer{client: client, model: modelName}, nil
}

// Summarize implements Summarizer.
func (g *GeminiSummarizer) Summarize(ctx context.Context, conversation string) (model.NotificationCard, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(conversation), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    cardSchema,
	})
	if err != nil {
		return model.NotificationCard{}, fmt.Errorf("summarizing with %s: %w", g.model, err)
	}
	return decodeCard(resp.Text())
}

// decodeCard parses the structured response. Unknown sentiments are
// neutral and calendar details only survive on calendar suggestions.
func decodeCard(raw string) (model.NotificationCard, error) {
	var out struct {
		Summary         string               `json:"summary"`
		Urgency         model.Urgency        `json:"urgency"`
		SuggestedAction string               `json:"suggested_action"`
		ReplyOptions    []model.ReplyOption  `json:"reply_options"`
		CalendarDetails *model.CalendarEvent `json:"calendar_details"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return model.NotificationCard{}, fmt.Errorf("decoding card: %w", err)
	}
	if out.Summary == "" {
		return model.NotificationCard{}, fmt.Errorf("decoding card: empty summary")
	}

	for i := range out.ReplyOptions {
		if !out.ReplyOptions[i].Sentiment.Valid() {
			out.ReplyOptions[i].Sentiment = model.SentimentNeutral
		}
	}
	if out.SuggestedAction != model.ActionCalendar {
		out.CalendarDetails = nil
	}

	return model.NotificationCard{
		Summary:         out.Summary,
		Urgency:         out.Urgency,
		SuggestedAction: out.SuggestedAction,
		ReplyOptions:    out.ReplyOptions,
		CalendarDetails: out.CalendarDetails,
	}, nil
}
