package relay

import (
	"context"
	"encoding/base64"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"
)

// GeminiGenerator streams completions from the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator creates a generator authenticated with apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

// Stream implements Generator.
func (g *GeminiGenerator) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		contents, err := buildContents(req)
		if err != nil {
			yield("", err)
			return
		}

		for resp, err := range g.client.Models.GenerateContentStream(ctx, req.Model, contents, buildConfig(req)) {
			if err != nil {
				yield("", fmt.Errorf("streaming from %s: %w", req.Model, err))
				return
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}

func buildContents(req Request) ([]*genai.Content, error) {
	parts := []*genai.Part{{Text: req.UserPrompt}}

	if a := req.Attachment; a != nil && a.Data != "" {
		data, err := decodeAttachment(a.Data)
		if err != nil {
			return nil, err
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: a.MIMEType, Data: data},
		})
	}

	return []*genai.Content{{Role: genai.RoleUser, Parts: parts}}, nil
}

// decodeAttachment accepts raw base64 or a full data URL.
func decodeAttachment(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if _, after, ok := strings.Cut(s, ","); ok {
			s = after
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding attachment: %w", err)
	}
	return data, nil
}

func buildConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: req.Config.Temperature,
		TopP:        req.Config.TopP,
		TopK:        req.Config.TopK,
	}
	if req.Config.MaxOutputTokens != nil {
		cfg.MaxOutputTokens = *req.Config.MaxOutputTokens
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	return cfg
}
