package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/replydeck/internal/model"
)

// EventKind distinguishes the payloads carried by the push channel.
type EventKind int

const (
	// EventCard carries a new card.
	EventCard EventKind = iota

	// EventDelete announces that a card was withdrawn by the hub,
	// typically because a newer card replaced it.
	EventDelete
)

// Event is one decoded message of the push channel.
type Event struct {
	Kind EventKind
	Card model.NotificationCard

	// ID is the card id for EventDelete.
	ID string
}

// ParseEvent decodes the data of one SSE message. Objects carrying
// "action":"delete" are delete events; anything else must be a card.
func ParseEvent(data []byte) (Event, error) {
	var head struct {
		Action string `json:"action"`
		ID     string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	if head.Action == "delete" {
		if head.ID == "" {
			return Event{}, errors.New("delete event without id")
		}
		return Event{Kind: EventDelete, ID: head.ID}, nil
	}

	var c model.NotificationCard
	if err := json.Unmarshal(data, &c); err != nil {
		return Event{}, fmt.Errorf("decoding card: %w", err)
	}
	if c.ID == "" {
		return Event{}, errors.New("card event without id")
	}
	return Event{Kind: EventCard, Card: c}, nil
}

// Stream consumes the hub's event stream and calls fn for every decoded
// event, in arrival order. When the connection fails or ends it waits for
// the retry delay and reconnects; events sent while disconnected are
// lost. Malformed messages are logged and skipped. Stream only returns
// once ctx is done.
func (c *Client) Stream(ctx context.Context, fn func(Event)) error {
	return c.run(ctx, fn, c.onConnect)
}

func (c *Client) run(ctx context.Context, fn func(Event), hook func(bool, error)) error {
	retry := c.retry
	for {
		err := c.streamOnce(ctx, fn, hook, &retry)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			err = io.EOF
		}
		slog.Warn("event stream disconnected", "error", err, "retry", retry)
		notify(hook, false, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

func notify(hook func(bool, error), connected bool, err error) {
	if hook != nil {
		hook(connected, err)
	}
}

// streamOnce holds one connection open until it ends. retry is updated
// in place when the server sends a retry field.
func (c *Client) streamOnce(
	ctx context.Context, fn func(Event), hook func(bool, error), retry *time.Duration,
) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stream", nil)
	if err != nil {
		return fmt.Errorf("creating stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	slog.Info("event stream connected", "url", c.baseURL+"/stream")
	notify(hook, true, nil)

	return readSSE(resp.Body, func(msg sseMessage) {
		if msg.retry > 0 {
			*retry = msg.retry
		}
		if msg.data == nil {
			return
		}
		ev, err := ParseEvent(msg.data)
		if err != nil {
			slog.Warn("skipping malformed event", "error", err)
			return
		}
		fn(ev)
	})
}

// sseMessage is one dispatched server-sent event. data is nil for
// messages that only carried a retry hint.
type sseMessage struct {
	data  []byte
	retry time.Duration
}

// readSSE parses the text/event-stream format from r, calling emit for
// each message. It returns nil on EOF.
func readSSE(r io.Reader, emit func(sseMessage)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		data    bytes.Buffer
		hasData bool
	)

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if hasData {
				emit(sseMessage{data: bytes.Clone(data.Bytes())})
			}
			data.Reset()
			hasData = false
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
				emit(sseMessage{retry: time.Duration(ms) * time.Millisecond})
			}
		}
	}

	return scanner.Err()
}
