// Package outbox delivers reply bubbles to the chat network.
package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueFull is returned by Enqueue when the worker is backed up.
var ErrQueueFull = errors.New("outbox queue is full")

// Sender delivers an ordered sequence of messages to one chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, messages []string) error
}

// LogSender only logs the messages. It is used when no chat network is
// configured.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, chatID int64, messages []string) error {
	for i, m := range messages {
		slog.Info("reply bubble", "chat_id", chatID, "index", i, "text", m)
	}
	return nil
}

// Job is one reply waiting to be delivered.
type Job struct {
	ChatID   int64
	Messages []string
}

// Queue hands jobs to a Sender on a single worker goroutine, so bubbles
// of one reply are never interleaved with another.
type Queue struct {
	sender Sender
	jobs   chan Job
	wg     sync.WaitGroup
}

// NewQueue creates a queue holding up to size pending jobs.
func NewQueue(sender Sender, size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{sender: sender, jobs: make(chan Job, size)}
}

// Enqueue schedules a job without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.wg.Add(1)
	select {
	case q.jobs <- job:
		return nil
	default:
		q.wg.Done()
		return ErrQueueFull
	}
}

// Run delivers jobs until ctx is done. Failed jobs are logged and
// dropped.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.sender.Send(ctx, job.ChatID, job.Messages); err != nil {
				slog.Error("delivering reply", "chat_id", job.ChatID, "error", err)
			} else {
				slog.Info("reply delivered", "chat_id", job.ChatID, "bubbles", len(job.Messages))
			}
			q.wg.Done()
		}
	}
}

// Wait blocks until every enqueued job has been handled.
func (q *Queue) Wait() {
	q.wg.Wait()
}
