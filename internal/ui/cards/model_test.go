package cards

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/replydeck/internal/composer"
	"github.com/nhle/replydeck/internal/dispatch"
	"github.com/nhle/replydeck/internal/feed"
	"github.com/nhle/replydeck/internal/keys"
	"github.com/nhle/replydeck/internal/model"
)

type fakeBackend struct {
	replies []model.ReplyRequest
	ignores []string
	ignErr  error
}

func (f *fakeBackend) Reply(_ context.Context, r model.ReplyRequest) error {
	f.replies = append(f.replies, r)
	return nil
}

func (f *fakeBackend) Ignore(_ context.Context, id string) error {
	f.ignores = append(f.ignores, id)
	return f.ignErr
}

func press(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newModel(t *testing.T, b *fakeBackend) Model {
	t.Helper()
	rec := feed.NewReconciler()
	m := New(rec, dispatch.New(b, rec, 0), keys.DefaultKeyMap(), 80, 40)
	m, _ = m.Update(feed.SnapshotMsg{Cards: []model.NotificationCard{
		{ID: "a", ChatID: 1, Sender: "Ann", ReplyOptions: []model.ReplyOption{
			{Label: "Yes", Text: []string{"yes", "sure"}, Sentiment: model.SentimentPositive},
			{Label: "No", Text: []string{"no"}, Sentiment: model.SentimentNegative},
		}},
		{ID: "b", ChatID: 2, Sender: "Bo"},
	}})
	return m
}

func run(m Model, cmd tea.Cmd) Model {
	if cmd == nil {
		return m
	}
	if res, ok := cmd().(dispatch.ResultMsg); ok {
		m, _ = m.Update(res)
	}
	return m
}

func TestSelectOptionSendsVerbatim(t *testing.T) {
	b := &fakeBackend{}
	m := newModel(t, b)

	m, _ = m.Update(press("r"))
	m, _ = m.Update(press("right"))
	m, cmd := m.Update(press("enter"))

	if m.Count() != 1 {
		t.Fatalf("reply should remove the card at once, have %d", m.Count())
	}
	m = run(m, cmd)

	if len(b.replies) != 1 || b.replies[0].CardID != "a" || !slices.Equal(b.replies[0].Text, []string{"no"}) {
		t.Fatalf("unexpected replies %+v", b.replies)
	}
	if b.replies[0].Meta.Label != "No" || b.replies[0].Meta.IsCustom {
		t.Fatalf("unexpected meta %+v", b.replies[0].Meta)
	}
	if m.Status() != "Reply sent" {
		t.Fatalf("status %q", m.Status())
	}
}

func TestCustomReplyWithTwoBubbles(t *testing.T) {
	b := &fakeBackend{}
	m := newModel(t, b)

	m, _ = m.Update(press("r"))
	m, _ = m.Update(press("c"))
	if !m.Capturing() {
		t.Fatalf("composer should capture keys while composing")
	}
	m, _ = m.Update(press("hi"))
	m, _ = m.Update(press("ctrl+n"))
	m, _ = m.Update(press("there"))
	m, cmd := m.Update(press("ctrl+s"))
	m = run(m, cmd)

	if len(b.replies) != 1 || !slices.Equal(b.replies[0].Text, []string{"hi", "there"}) {
		t.Fatalf("unexpected replies %+v", b.replies)
	}
	if !b.replies[0].Meta.IsCustom {
		t.Fatalf("custom reply must be flagged: %+v", b.replies[0].Meta)
	}
}

func TestSendingBlankDraftIsNoop(t *testing.T) {
	b := &fakeBackend{}
	m := newModel(t, b)

	m, _ = m.Update(press("r"))
	m, _ = m.Update(press("c"))
	m, cmd := m.Update(press("ctrl+s"))
	if cmd != nil || len(b.replies) != 0 || m.Count() != 2 {
		t.Fatalf("blank draft must not dispatch")
	}
	if m.focused().State() != composer.StateComposing {
		t.Fatalf("composer should stay open")
	}
}

func TestFailedIgnoreKeepsCard(t *testing.T) {
	b := &fakeBackend{ignErr: errors.New("offline")}
	m := newModel(t, b)

	m, cmd := m.Update(press("x"))
	m = run(m, cmd)

	if m.Count() != 2 || len(b.ignores) != 1 {
		t.Fatalf("card must stay after failed ignore, count %d", m.Count())
	}

	b.ignErr = nil
	m, cmd = m.Update(press("x"))
	m = run(m, cmd)
	if m.Count() != 1 {
		t.Fatalf("retry should remove the card, count %d", m.Count())
	}
}

func TestEventsReconcile(t *testing.T) {
	m := newModel(t, &fakeBackend{})

	m, _ = m.Update(feed.EventMsg{Event: feed.Event{Kind: feed.EventCard, Card: model.NotificationCard{ID: "a"}}})
	if m.Count() != 2 {
		t.Fatalf("duplicate push must be ignored")
	}
	m, _ = m.Update(feed.EventMsg{Event: feed.Event{Kind: feed.EventCard, Card: model.NotificationCard{ID: "c"}}})
	m, _ = m.Update(feed.EventMsg{Event: feed.Event{Kind: feed.EventDelete, ID: "b"}})
	if m.Count() != 2 || m.feed.Cards()[0].ID != "c" {
		t.Fatalf("unexpected feed %+v", m.feed.Cards())
	}
}

func TestEscFromEditorReturnsToOptions(t *testing.T) {
	m := newModel(t, &fakeBackend{})

	m, _ = m.Update(press("r"))
	m, _ = m.Update(press("e"))
	if m.editor.Value() != "yes" {
		t.Fatalf("editor should hold the first bubble, got %q", m.editor.Value())
	}
	m, _ = m.Update(press("esc"))
	if m.focused().State() != composer.StateSelecting {
		t.Fatalf("expected selecting, got %s", m.focused().State())
	}
	m, _ = m.Update(press("esc"))
	if m.focused().State() != composer.StateInitial || m.Capturing() {
		t.Fatalf("expected initial state")
	}
}

func TestPushDuringComposeKeepsFocus(t *testing.T) {
	b := &fakeBackend{}
	m := newModel(t, b)

	m, _ = m.Update(press("r"))
	m, _ = m.Update(press("c"))
	m, _ = m.Update(feed.EventMsg{Event: feed.Event{Kind: feed.EventCard, Card: model.NotificationCard{ID: "new", ChatID: 9}}})

	if !m.Capturing() {
		t.Fatalf("composer on a must keep capturing keys after a push")
	}
	m, _ = m.Update(press("x"))
	if len(b.ignores) != 0 {
		t.Fatalf("typing must not dismiss a card, got ignores %v", b.ignores)
	}

	c := m.focused()
	if c.Card().ID != "a" || c.State() != composer.StateComposing {
		t.Fatalf("focus moved to %s in state %v", c.Card().ID, c.State())
	}
	if got := c.Draft().At(0); got != "x" {
		t.Fatalf("expected draft of a to hold the typed text, got %q", got)
	}
}

func TestRemovingFocusedCardFocusesNeighbour(t *testing.T) {
	m := newModel(t, &fakeBackend{})
	m, _ = m.Update(feed.EventMsg{Event: feed.Event{Kind: feed.EventCard, Card: model.NotificationCard{ID: "new"}}})
	if c := m.focused(); c.Card().ID != "a" {
		t.Fatalf("push must not steal focus, focused %s", c.Card().ID)
	}

	m, _ = m.Update(feed.EventMsg{Event: feed.Event{Kind: feed.EventDelete, ID: "a"}})
	if c := m.focused(); c.Card().ID != "b" {
		t.Fatalf("expected focus on b after a left, got %s", c.Card().ID)
	}
}

func TestCalendarSuggestionIsShown(t *testing.T) {
	m := newModel(t, &fakeBackend{})
	m, _ = m.Update(feed.EventMsg{Event: feed.Event{Kind: feed.EventCard, Card: model.NotificationCard{
		ID: "cal", ChatID: 3, Sender: "Cy", SuggestedAction: model.ActionCalendar,
		CalendarDetails: &model.CalendarEvent{Title: "Standup", Duration: 90, EventType: "Meeting"},
	}}})

	view := m.View()
	if !strings.Contains(view, "📅 Standup · 1h30m0s · Meeting") {
		t.Fatalf("calendar line missing from view:\n%s", view)
	}
	if strings.Count(view, "📅") != 1 {
		t.Fatalf("only the calendar card carries an event line:\n%s", view)
	}
}
