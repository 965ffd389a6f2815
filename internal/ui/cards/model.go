// Package cards is the notification feed view: the list of pending
// cards with the reply composer of the focused card.
package cards

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/replydeck/internal/composer"
	"github.com/nhle/replydeck/internal/dispatch"
	"github.com/nhle/replydeck/internal/feed"
	"github.com/nhle/replydeck/internal/keys"
	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/theme"
)

// Model is the feed view. It owns the reconciler and one composer per
// card; all of them are mutated only from Update.
type Model struct {
	feed       *feed.Reconciler
	dispatcher *dispatch.Dispatcher
	keys       *keys.KeyMap

	composers   map[string]*composer.Composer
	showContext map[string]bool

	// focusID follows the focused card across pushes and removals;
	// cursor is its index in the feed.
	focusID   string
	cursor    int
	optCursor int
	bubble    int
	editor    textarea.Model

	loaded    bool
	connected bool
	status    string
	width     int
	height    int
}

// New creates the feed view. d must have been created with rec as its
// Remover.
func New(rec *feed.Reconciler, d *dispatch.Dispatcher, k *keys.KeyMap, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.Prompt = "│ "
	ta.SetHeight(3)
	ta.SetWidth(width - 8)
	ta.CharLimit = 4000

	return Model{
		feed:        rec,
		dispatcher:  d,
		keys:        k,
		composers:   make(map[string]*composer.Composer),
		showContext: make(map[string]bool),
		editor:      ta,
		width:       width,
		height:      height,
	}
}

// Update handles messages for the feed view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case feed.SnapshotMsg:
		m.loaded = true
		if msg.Err != nil {
			slog.Error("loading snapshot", "error", msg.Err)
			m.feed.LoadSnapshot(nil)
			m.status = "Could not load notifications: " + msg.Err.Error()
		} else {
			m.feed.LoadSnapshot(msg.Cards)
			m.status = ""
		}
		m.prune()
		return m, nil

	case feed.EventMsg:
		switch msg.Event.Kind {
		case feed.EventCard:
			m.feed.Push(msg.Event.Card)
		case feed.EventDelete:
			m.feed.Remove(msg.Event.ID)
		}
		m.prune()
		return m, nil

	case feed.StreamStatusMsg:
		m.connected = msg.Connected
		return m, nil

	case dispatch.ResultMsg:
		m.status = m.dispatcher.Settle(msg)
		m.prune()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if c := m.focused(); c != nil && c.State() == composer.StateComposing {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Capturing reports whether the focused composer is editing text, in
// which case global single-letter keys must not be intercepted.
func (m Model) Capturing() bool {
	c := m.focused()
	return c != nil && c.State() != composer.StateInitial
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	c := m.focused()
	if c == nil {
		return m, nil
	}

	switch c.State() {
	case composer.StateSelecting:
		return m.handleSelecting(c, msg)
	case composer.StateComposing:
		return m.handleComposing(c, msg)
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Context):
		id := c.Card().ID
		m.showContext[id] = !m.showContext[id]
	case key.Matches(msg, m.keys.Reply):
		if err := c.Reply(); err != nil {
			return m.fail(err)
		}
		m.optCursor = 0
	case key.Matches(msg, m.keys.Ignore):
		d, err := c.Ignore()
		if err != nil {
			return m.fail(err)
		}
		m.status = "Ignoring…"
		return m, m.dispatcher.Dispatch(c.Card(), d)
	}
	return m, nil
}

func (m Model) handleSelecting(c *composer.Composer, msg tea.KeyMsg) (Model, tea.Cmd) {
	n := len(c.Card().ReplyOptions)

	switch {
	case key.Matches(msg, m.keys.Back):
		c.Cancel()
	case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.Down):
		if n > 0 {
			m.optCursor = (m.optCursor + 1) % n
		}
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Up):
		if n > 0 {
			m.optCursor = (m.optCursor - 1 + n) % n
		}
	case key.Matches(msg, m.keys.Select):
		d, err := c.Select(m.optCursor)
		if err != nil {
			return m.fail(err)
		}
		return m.send(c, d)
	case key.Matches(msg, m.keys.Edit):
		if err := c.Edit(m.optCursor); err != nil {
			return m.fail(err)
		}
		return m, m.openEditor(c, 0)
	case key.Matches(msg, m.keys.Custom):
		if err := c.Custom(); err != nil {
			return m.fail(err)
		}
		return m, m.openEditor(c, 0)
	}
	return m, nil
}

func (m Model) handleComposing(c *composer.Composer, msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.editor.Blur()
		if err := c.Back(); err != nil {
			return m.fail(err)
		}
		return m, nil

	case key.Matches(msg, m.keys.NextBubble):
		m.commit(c)
		return m, m.openEditor(c, (m.bubble+1)%c.Draft().Len())

	case key.Matches(msg, m.keys.AddBubble):
		m.commit(c)
		if err := c.AddBubble(); err != nil {
			return m.fail(err)
		}
		return m, m.openEditor(c, c.Draft().Len()-1)

	case key.Matches(msg, m.keys.RemoveBubble):
		if err := c.RemoveBubble(m.bubble); err != nil {
			return m.fail(err)
		}
		return m, m.openEditor(c, min(m.bubble, c.Draft().Len()-1))

	case key.Matches(msg, m.keys.Send):
		m.commit(c)
		d, ok, err := c.Send()
		if err != nil {
			return m.fail(err)
		}
		if !ok {
			m.status = "Nothing to send"
			return m, nil
		}
		m.editor.Blur()
		return m.send(c, d)
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.commit(c)
	return m, cmd
}

// send dispatches a reply. The card leaves the feed immediately.
func (m Model) send(c *composer.Composer, d composer.Decision) (Model, tea.Cmd) {
	cmd := m.dispatcher.Dispatch(c.Card(), d)
	m.status = "Sending…"
	m.prune()
	return m, cmd
}

func (m *Model) openEditor(c *composer.Composer, i int) tea.Cmd {
	m.bubble = i
	m.editor.SetValue(c.Draft().At(i))
	m.editor.CursorEnd()
	return m.editor.Focus()
}

func (m *Model) commit(c *composer.Composer) {
	if err := c.UpdateMessage(m.bubble, m.editor.Value()); err != nil {
		slog.Warn("updating draft", "card", c.Card().ID, "error", err)
	}
}

func (m Model) fail(err error) (Model, tea.Cmd) {
	if errors.Is(err, composer.ErrInvalidTransition) {
		slog.Debug("ignored key", "error", err)
		return m, nil
	}
	m.status = err.Error()
	return m, nil
}

// focused returns the composer of the card under the cursor, creating it
// on first use.
func (m Model) focused() *composer.Composer {
	cards := m.feed.Cards()
	if len(cards) == 0 {
		return nil
	}
	card := cards[min(m.cursor, len(cards)-1)]
	c, ok := m.composers[card.ID]
	if !ok {
		c = composer.New(card)
		m.composers[card.ID] = c
	}
	return c
}

// prune drops composers of cards that left the feed and puts the cursor
// back on the focused card. When that card is gone the cursor stays at
// the same position, clamped to the feed.
func (m *Model) prune() {
	for id := range m.composers {
		if !m.feed.Contains(id) {
			delete(m.composers, id)
			delete(m.showContext, id)
		}
	}

	cards := m.feed.Cards()
	if i := slices.IndexFunc(cards, func(c model.NotificationCard) bool { return c.ID == m.focusID }); i >= 0 {
		m.cursor = i
		return
	}
	m.cursor = min(m.cursor, max(len(cards)-1, 0))
	m.focusID = ""
	if len(cards) > 0 {
		m.focusID = cards[m.cursor].ID
	}
}

func (m *Model) moveCursor(delta int) {
	cards := m.feed.Cards()
	if len(cards) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(cards)-1)
	m.focusID = cards[m.cursor].ID
}

// Status returns the last soft error or dispatch outcome.
func (m Model) Status() string {
	return m.status
}

// Connected reports whether the push channel is up.
func (m Model) Connected() bool {
	return m.connected
}

// Count returns the number of pending cards.
func (m Model) Count() int {
	return m.feed.Len()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.editor.SetWidth(max(width-8, 10))
}

// View renders the cards from the focused one downwards.
func (m Model) View() string {
	if !m.loaded {
		return theme.HelpStyle.Render("Loading notifications…")
	}
	cards := m.feed.Cards()
	if len(cards) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(theme.HelpStyle.Render("No pending notifications."))
	}

	start := max(m.cursor-1, 0)
	var blocks []string
	for i := start; i < len(cards); i++ {
		blocks = append(blocks, m.renderCard(cards[i], i == m.cursor))
	}

	return lipgloss.NewStyle().
		MaxHeight(m.height).
		Render(lipgloss.JoinVertical(lipgloss.Left, blocks...))
}

func (m Model) renderCard(card model.NotificationCard, focused bool) string {
	width := max(m.width-4, 20)

	header := fmt.Sprintf("%s %s  %s",
		theme.UrgencyDot(card.Urgency),
		lipgloss.NewStyle().Bold(true).Render(card.Sender),
		theme.DimmedStyle.Render(relativeTime(card.Timestamp)),
	)
	lines := []string{header, lipgloss.NewStyle().Width(width - 2).Render(card.Summary)}
	if ev := card.CalendarDetails; ev != nil {
		lines = append(lines, theme.DimmedStyle.Render(calendarLine(*ev)))
	}

	if m.showContext[card.ID] && len(card.ConversationHistory) > 0 {
		for _, h := range card.ConversationHistory {
			lines = append(lines, theme.DimmedStyle.Render("  "+h))
		}
	}

	style := theme.CardStyle.Width(width)
	if focused {
		style = theme.FocusedCardStyle.Width(width)
		if c, ok := m.composers[card.ID]; ok {
			lines = append(lines, "", m.renderComposer(c))
		} else {
			lines = append(lines, "", theme.HelpStyle.Render("r reply · x ignore · h context"))
		}
	}

	return style.Render(strings.Join(lines, "\n"))
}

func (m Model) renderComposer(c *composer.Composer) string {
	switch c.State() {
	case composer.StateSelecting:
		opts := c.Card().ReplyOptions
		var rendered []string
		for i, o := range opts {
			style := theme.SentimentStyle(o.Sentiment)
			if i == m.optCursor {
				style = theme.SelectedOptionStyle(o.Sentiment)
			}
			rendered = append(rendered, style.Render(o.Label))
		}
		grid := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
		preview := ""
		if m.optCursor < len(opts) {
			preview = theme.DimmedStyle.Render(strings.Join(opts[m.optCursor].Text, " ⏎ "))
		}
		return lipgloss.JoinVertical(lipgloss.Left,
			grid,
			preview,
			theme.HelpStyle.Render("enter send · e edit · c custom · esc back"),
		)

	case composer.StateComposing:
		d := c.Draft()
		var rows []string
		rows = append(rows, theme.DimmedStyle.Render(c.Meta().Label))
		for i := 0; i < d.Len(); i++ {
			if i == m.bubble {
				rows = append(rows, m.editor.View())
				continue
			}
			rows = append(rows, theme.DimmedStyle.Render(fmt.Sprintf("%d. %s", i+1, d.At(i))))
		}
		hint := "tab next · ctrl+n add · ctrl+d remove · ctrl+s send · esc back"
		if !c.CanSend() {
			hint = "type a message · " + hint
		}
		rows = append(rows, theme.HelpStyle.Render(hint))
		return strings.Join(rows, "\n")

	default:
		return theme.HelpStyle.Render("r reply · x ignore · h context")
	}
}

// calendarLine renders a suggested event as "📅 title · when · length · type".
func calendarLine(ev model.CalendarEvent) string {
	parts := []string{"📅 " + ev.Title}
	if ev.Datetime != "" {
		when := ev.Datetime
		if t, err := time.Parse(time.RFC3339, ev.Datetime); err == nil {
			when = t.Local().Format("Mon Jan 2 15:04")
		}
		parts = append(parts, when)
	}
	if ev.Duration > 0 {
		parts = append(parts, (time.Duration(ev.Duration) * time.Minute).String())
	}
	if ev.EventType != "" {
		parts = append(parts, ev.EventType)
	}
	return strings.Join(parts, " · ")
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Local().Format("Jan 2 15:04")
	}
}
