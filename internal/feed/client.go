// Package feed keeps the dashboard's list of notification cards in sync
// with the hub: a one-shot snapshot, a server-sent event stream of new
// cards, and the reply and dismiss calls that act on them.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nhle/replydeck/internal/model"
)

// StatusError is returned when the hub answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hub returned %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err (or any error in its chain) is a
// StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client talks to the notification endpoints of the hub.
type Client struct {
	baseURL   string
	http      *http.Client
	stream    *http.Client
	retry     time.Duration
	onConnect func(connected bool, err error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for snapshot and dispatch calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the reconnect delay used until the server sends a
// retry hint.
func WithRetry(d time.Duration) Option {
	return func(c *Client) { c.retry = d }
}

// WithConnectHook registers a callback invoked whenever the stream
// connects or drops.
func WithConnectHook(fn func(connected bool, err error)) Option {
	return func(c *Client) { c.onConnect = fn }
}

// NewClient returns a client rooted at baseURL (for example
// http://localhost:8080/user).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		// The stream is long-lived; only the context bounds it.
		stream: &http.Client{},
		retry:  3 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot fetches every card currently held by the hub, newest first.
func (c *Client) Snapshot(ctx context.Context) ([]model.NotificationCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/notifications", nil)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching snapshot: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var cards []model.NotificationCard
	if err := json.NewDecoder(resp.Body).Decode(&cards); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return cards, nil
}

// Reply asks the hub to send a message sequence on behalf of the user.
func (c *Client) Reply(ctx context.Context, r model.ReplyRequest) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling reply: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/reply", bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending reply for card %s: %w", r.CardID, err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// Ignore dismisses a card on the hub.
func (c *Client) Ignore(ctx context.Context, cardID string) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodDelete, c.baseURL+"/notifications/"+url.PathEscape(cardID), nil,
	)
	if err != nil {
		return fmt.Errorf("creating ignore request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ignoring card %s: %w", cardID, err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}
