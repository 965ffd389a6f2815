// Package library is the client side of the prompt template API.
package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nhle/replydeck/internal/model"
)

// Client manages prompt templates on the server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client rooted at baseURL (for example
// http://localhost:8080/api).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// List returns every stored template.
func (c *Client) List(ctx context.Context) ([]model.PromptTemplate, error) {
	var prompts []model.PromptTemplate
	if err := c.do(ctx, http.MethodGet, "/prompts", nil, &prompts); err != nil {
		return nil, fmt.Errorf("listing prompts: %w", err)
	}
	return prompts, nil
}

// Create stores p and returns it with the server-assigned id and
// defaults.
func (c *Client) Create(ctx context.Context, p model.PromptTemplate) (model.PromptTemplate, error) {
	var created model.PromptTemplate
	if err := c.do(ctx, http.MethodPost, "/prompts", p, &created); err != nil {
		return model.PromptTemplate{}, fmt.Errorf("creating prompt: %w", err)
	}
	return created, nil
}

// Update merges patch into the template with the given id.
func (c *Client) Update(ctx context.Context, id string, patch model.PromptPatch) (model.PromptTemplate, error) {
	var updated model.PromptTemplate
	if err := c.do(ctx, http.MethodPut, "/prompts/"+url.PathEscape(id), patch, &updated); err != nil {
		return model.PromptTemplate{}, fmt.Errorf("updating prompt %s: %w", id, err)
	}
	return updated, nil
}

// Delete removes the template with the given id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/prompts/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("deleting prompt %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
