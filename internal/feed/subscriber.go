package feed

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/replydeck/internal/model"
)

// SnapshotMsg is a tea.Msg carrying the result of the initial fetch.
type SnapshotMsg struct {
	Cards []model.NotificationCard
	Err   error
}

// EventMsg is a tea.Msg carrying one push event.
type EventMsg struct {
	Event Event
}

// StreamStatusMsg is a tea.Msg sent when the push channel connects or
// drops.
type StreamStatusMsg struct {
	Connected bool
	Err       error
	At        time.Time
}

// snapshotTimeout bounds the initial fetch.
const snapshotTimeout = 15 * time.Second

// Subscriber bridges a Client's event stream into the Bubble Tea runtime.
// Events are delivered on a buffered channel and read back one at a time
// by the command returned from WaitForEvent. Every Start opens a fresh
// run with its own channel, so a stopped run never leaks into the next.
type Subscriber struct {
	client *Client
	mu     sync.Mutex
	cur    *streamRun
}

// streamRun is one Start..Stop lifetime of the stream.
type streamRun struct {
	msgs   chan tea.Msg
	done   chan struct{}
	cancel context.CancelFunc
}

// NewSubscriber creates a subscriber for client.
func NewSubscriber(client *Client) *Subscriber {
	return &Subscriber{client: client}
}

// Snapshot returns a tea.Cmd that fetches the current cards.
func (s *Subscriber) Snapshot() tea.Cmd {
	client := s.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		cards, err := client.Snapshot(ctx)
		return SnapshotMsg{Cards: cards, Err: err}
	}
}

// Start opens the event stream in the background and returns a command
// that waits for the first message. Calling Start on a running
// subscriber returns nil.
func (s *Subscriber) Start() tea.Cmd {
	s.mu.Lock()
	if s.cur != nil {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &streamRun{
		msgs:   make(chan tea.Msg, 64),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	s.cur = r
	s.mu.Unlock()

	go func() {
		_ = s.client.run(ctx, func(ev Event) {
			r.send(ctx, EventMsg{Event: ev})
		}, func(connected bool, err error) {
			r.send(ctx, StreamStatusMsg{Connected: connected, Err: err, At: time.Now()})
		})
	}()

	return r.wait()
}

// Stop closes the event stream. Pending WaitForEvent commands of the
// stopped run return nil.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil {
		return
	}
	s.cur.cancel()
	close(s.cur.done)
	s.cur = nil
}

// WaitForEvent returns a tea.Cmd that waits for the next message from
// the stream. It should be re-issued after each EventMsg or
// StreamStatusMsg is handled. It returns nil when the subscriber is not
// running.
func (s *Subscriber) WaitForEvent() tea.Cmd {
	s.mu.Lock()
	r := s.cur
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.wait()
}

// send blocks until the message is queued or ctx is done. Card events
// are never dropped while the run is active.
func (r *streamRun) send(ctx context.Context, msg tea.Msg) {
	select {
	case r.msgs <- msg:
	case <-ctx.Done():
	}
}

func (r *streamRun) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-r.msgs:
			return msg
		case <-r.done:
			return nil
		}
	}
}
