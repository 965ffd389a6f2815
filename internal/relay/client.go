package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Chunk is a piece of a streamed response. The last chunk on a channel
// has Done set; Err is non-nil when the stream broke.
type Chunk struct {
	Text string
	Err  error
	Done bool
}

// Client calls a relay endpoint and hands the response back piece by
// piece.
type Client struct {
	url  string
	http *http.Client
}

// NewClient returns a client for the generate endpoint at url (for
// example http://localhost:8080/api/generate).
func NewClient(url string) *Client {
	return &Client{url: url, http: &http.Client{}}
}

// Generate starts a generation and returns a channel of chunks that is
// closed after the Done chunk. An error is returned when the relay
// rejects the request before streaming.
func (c *Client) Generate(ctx context.Context, req Request) (<-chan Chunk, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling generate request: %w", err)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating generate request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("calling relay: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	ch := make(chan Chunk, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		readChunks(ctx, resp.Body, ch)
	}()
	return ch, nil
}

func readChunks(ctx context.Context, r io.Reader, ch chan<- Chunk) {
	send := func(c Chunk) bool {
		select {
		case ch <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	buf := make([]byte, 4096)
	var pending []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			// Hold back a rune split across reads.
			cut := validPrefix(pending)
			if cut > 0 {
				if !send(Chunk{Text: string(pending[:cut])}) {
					return
				}
				pending = append(pending[:0], pending[cut:]...)
			}
		}
		if errors.Is(err, io.EOF) {
			if len(pending) > 0 && !send(Chunk{Text: string(pending)}) {
				return
			}
			send(Chunk{Done: true})
			return
		}
		if err != nil {
			send(Chunk{Err: fmt.Errorf("reading stream: %w", err), Done: true})
			return
		}
	}
}

// validPrefix returns the length of p without a trailing incomplete
// UTF-8 sequence.
func validPrefix(p []byte) int {
	for i := len(p) - 1; i >= 0 && i >= len(p)-utf8.UTFMax; i-- {
		if utf8.RuneStart(p[i]) {
			if !utf8.FullRune(p[i:]) {
				return i
			}
			break
		}
	}
	return len(p)
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return fmt.Errorf("relay returned %d: %s", resp.StatusCode, msg)
}
