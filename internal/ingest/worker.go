// Package ingest turns incoming Telegram messages into notification
// cards. Messages are buffered per chat until the conversation goes
// quiet, then the transcript is summarized and published to the hub.
package ingest

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/outbox"
)

// Updates is the subset of *tgbotapi.BotAPI the worker reads from.
type Updates interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Summarizer turns a transcript, one "Name: text" line per message,
// into a card. Identity fields are filled in by the worker.
type Summarizer interface {
	Summarize(ctx context.Context, conversation string) (model.NotificationCard, error)
}

// Publisher receives finished cards. *hub.Hub satisfies it.
type Publisher interface {
	Publish(ctx context.Context, card model.NotificationCard) (model.NotificationCard, error)
}

// Options tune the worker.
type Options struct {
	// Debounce is how long a chat must stay quiet before it is
	// summarized. Each new message restarts the wait.
	Debounce time.Duration

	// HistoryLimit caps the transcript kept per chat.
	HistoryLimit int

	// Muted chats never produce cards.
	Muted []int64

	// OmitGroups skips everything but private chats.
	OmitGroups bool
}

const (
	defaultDebounce     = 15 * time.Second
	defaultHistoryLimit = 20
)

// chat is the buffered state of one conversation.
type chat struct {
	title   string
	lines   []string
	lastOut bool
	timer   *time.Timer
	seq     int
}

// Worker consumes bot updates and publishes a card per quiet chat.
type Worker struct {
	bot  Updates
	sum  Summarizer
	opts Options

	muted map[int64]bool

	mu      sync.Mutex
	chats   map[int64]*chat
	pending sync.WaitGroup
}

// New creates a worker. Zero options fall back to a 15 second debounce
// and a 20 line history.
func New(bot Updates, sum Summarizer, opts Options) *Worker {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	muted := make(map[int64]bool, len(opts.Muted))
	for _, id := range opts.Muted {
		muted[id] = true
	}
	return &Worker{
		bot:   bot,
		sum:   sum,
		opts:  opts,
		muted: muted,
		chats: make(map[int64]*chat),
	}
}

// Run reads updates until ctx is cancelled or the update channel
// closes. Pending summaries are cancelled and in-flight ones awaited
// before it returns.
func (w *Worker) Run(ctx context.Context, pub Publisher) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := w.bot.GetUpdatesChan(u)

	slog.Info("ingest started", "debounce", w.opts.Debounce, "muted", len(w.muted))
	defer func() {
		w.bot.StopReceivingUpdates()
		w.stopTimers()
		w.pending.Wait()
		slog.Info("ingest stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			w.handle(ctx, pub, upd)
		}
	}
}

func (w *Worker) handle(ctx context.Context, pub Publisher, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" || !w.accepts(msg.Chat) {
		return
	}

	name := "Unknown"
	if msg.From != nil && msg.From.FirstName != "" {
		name = msg.From.FirstName
	}
	title := msg.Chat.Title
	if msg.Chat.IsPrivate() || title == "" {
		title = name
	}

	id := msg.Chat.ID
	w.mu.Lock()
	defer w.mu.Unlock()

	c := w.chat(id)
	c.title = title
	c.lastOut = false
	c.append(name+": "+text, w.opts.HistoryLimit)

	if c.timer != nil && c.timer.Stop() {
		w.pending.Done()
	}
	c.seq++
	seq := c.seq
	w.pending.Add(1)
	c.timer = time.AfterFunc(w.opts.Debounce, func() {
		defer w.pending.Done()
		w.flush(ctx, pub, id, seq)
	})
}

func (w *Worker) accepts(c *tgbotapi.Chat) bool {
	switch {
	case c.IsChannel():
		return false
	case w.opts.OmitGroups && !c.IsPrivate():
		return false
	case w.muted[c.ID]:
		slog.Debug("ignoring muted chat", "chat_id", c.ID)
		return false
	}
	return true
}

// flush summarizes chat id if no newer message arrived since seq.
func (w *Worker) flush(ctx context.Context, pub Publisher, id int64, seq int) {
	w.mu.Lock()
	c := w.chats[id]
	if c == nil || c.seq != seq {
		w.mu.Unlock()
		return
	}
	c.timer = nil
	if c.lastOut {
		w.mu.Unlock()
		slog.Info("skipping chat, last message was ours", "chat_id", id)
		return
	}
	history := slices.Clone(c.lines)
	title := c.title
	w.mu.Unlock()

	card, err := w.sum.Summarize(ctx, strings.Join(history, "\n"))
	if err != nil {
		slog.Error("summarizing chat", "chat_id", id, "error", err)
		return
	}
	card.ID = ""
	card.ChatID = id
	card.Sender = title
	card.ConversationHistory = history
	card.Timestamp = time.Time{}

	published, err := pub.Publish(ctx, card)
	if err != nil {
		slog.Error("publishing card", "chat_id", id, "error", err)
		return
	}
	slog.Info("card published", "chat_id", id, "card", published.ID, "urgency", published.Urgency)
}

// recordOutgoing adds our own bubbles to the transcript. A summary still
// pending for the chat is dropped when it fires.
func (w *Worker) recordOutgoing(id int64, messages []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.chat(id)
	for _, m := range messages {
		c.append("Me: "+m, w.opts.HistoryLimit)
	}
	c.lastOut = true
}

func (w *Worker) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.chats {
		if c.timer != nil && c.timer.Stop() {
			w.pending.Done()
		}
		c.timer = nil
	}
}

// chat returns the state of id, creating it. Callers hold mu.
func (w *Worker) chat(id int64) *chat {
	c, ok := w.chats[id]
	if !ok {
		c = &chat{}
		w.chats[id] = c
	}
	return c
}

func (c *chat) append(line string, limit int) {
	c.lines = append(c.lines, line)
	if over := len(c.lines) - limit; over > 0 {
		c.lines = slices.Delete(c.lines, 0, over)
	}
}

// Recorder wraps next so replies sent through it join the transcript
// of their chat.
func (w *Worker) Recorder(next outbox.Sender) outbox.Sender {
	return recorder{w: w, next: next}
}

type recorder struct {
	w    *Worker
	next outbox.Sender
}

func (r recorder) Send(ctx context.Context, chatID int64, messages []string) error {
	if err := r.next.Send(ctx, chatID, messages); err != nil {
		return err
	}
	r.w.recordOutgoing(chatID, messages)
	return nil
}
