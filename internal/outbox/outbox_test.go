package outbox

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeBot struct {
	calls []string
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	b.calls = append(b.calls, "send:"+msg.Text)
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	act := c.(tgbotapi.ChatActionConfig)
	b.calls = append(b.calls, "action:"+act.Action)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestTypingDelayBounds(t *testing.T) {
	tests := []struct {
		name string
		text string
		u    float64
		want time.Duration
	}{
		{"short clamps to one second", "hi", 0.4, time.Second},
		{"proportional", strings.Repeat("a", 30), 0.4, 3 * time.Second},
		{"long clamps to five seconds", strings.Repeat("a", 500), 0.4, 5 * time.Second},
		{"low jitter", strings.Repeat("a", 20), 0, 1600 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TypingDelay(tt.text, tt.u); got != tt.want {
				t.Fatalf("TypingDelay = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBubblePauseRange(t *testing.T) {
	if got := BubblePause(0); got != 300*time.Millisecond {
		t.Fatalf("got %v", got)
	}
	if got := BubblePause(0.999); got >= 800*time.Millisecond || got < 790*time.Millisecond {
		t.Fatalf("got %v", got)
	}
}

func TestTelegramSenderPacesBubblesInOrder(t *testing.T) {
	bot := &fakeBot{}
	s := newTelegramSender(bot, true)
	s.jitter = func() float64 { return 0.4 }
	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	if err := s.Send(context.Background(), 5, []string{"one", "two"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	want := []string{"action:typing", "send:one", "action:typing", "send:two"}
	if !slices.Equal(bot.calls, want) {
		t.Fatalf("calls = %v, want %v", bot.calls, want)
	}
	if len(slept) != 4 || slept[0] != time.Second || slept[1] != BubblePause(0.4) {
		t.Fatalf("unexpected sleeps %v", slept)
	}
}

func TestTelegramSenderWithoutPacing(t *testing.T) {
	bot := &fakeBot{}
	s := newTelegramSender(bot, false)
	s.sleep = func(context.Context, time.Duration) error {
		t.Fatalf("must not sleep without pacing")
		return nil
	}
	if err := s.Send(context.Background(), 5, []string{"a", "b"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !slices.Equal(bot.calls, []string{"send:a", "send:b"}) {
		t.Fatalf("unexpected calls %v", bot.calls)
	}
}

func TestTelegramSenderStopsOnCancel(t *testing.T) {
	bot := &fakeBot{}
	s := newTelegramSender(bot, true)
	ctx, cancel := context.WithCancel(context.Background())
	s.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	err := s.Send(ctx, 5, []string{"a", "b"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if slices.Contains(bot.calls, "send:a") {
		t.Fatalf("bubble sent after cancellation: %v", bot.calls)
	}
}

type recordingSender struct {
	mu   sync.Mutex
	jobs []Job
}

func (r *recordingSender) Send(_ context.Context, chatID int64, messages []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, Job{ChatID: chatID, Messages: messages})
	return nil
}

func TestQueueDeliversInOrder(t *testing.T) {
	rec := &recordingSender{}
	q := NewQueue(rec, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	for i := int64(1); i <= 3; i++ {
		if err := q.Enqueue(Job{ChatID: i, Messages: []string{"x"}}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	q.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.jobs) != 3 || rec.jobs[0].ChatID != 1 || rec.jobs[2].ChatID != 3 {
		t.Fatalf("unexpected jobs %+v", rec.jobs)
	}
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(LogSender{}, 1)
	if err := q.Enqueue(Job{ChatID: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(Job{ChatID: 2}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}
