// Package prompts is the prompt library: a list of templates, a form to
// create and edit them, and a runner that streams generated output.
package prompts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/replydeck/internal/keys"
	"github.com/nhle/replydeck/internal/library"
	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/theme"
)

// LoadedMsg carries the templates fetched from the server.
type LoadedMsg struct {
	Prompts []model.PromptTemplate
	Err     error
}

// ChangedMsg is sent after a create, update or delete completes.
type ChangedMsg struct {
	Action string
	Err    error
}

// RunMsg asks the parent to open the runner for a template.
type RunMsg struct {
	Prompt model.PromptTemplate
}

// EditMsg asks the parent to open the form. A nil Prompt means create.
type EditMsg struct {
	Prompt *model.PromptTemplate
}

// requestTimeout bounds library calls.
const requestTimeout = 15 * time.Second

// item adapts a template to the bubbles list.
type item struct {
	prompt model.PromptTemplate
}

func (i item) FilterValue() string { return i.prompt.Title }

// itemDelegate renders a template as title, summary and accepted inputs.
type itemDelegate struct{}

func (itemDelegate) Height() int                             { return 2 }
func (itemDelegate) Spacing() int                            { return 1 }
func (itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (itemDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(item)
	if !ok {
		return
	}
	p := it.prompt

	inputs := make([]string, len(p.Inputs))
	for i, in := range p.Inputs {
		inputs[i] = string(in)
	}
	title := fmt.Sprintf("%s  %s", p.Title, theme.DimmedStyle.Render("["+strings.Join(inputs, ", ")+"] "+p.Model))
	summary := theme.DimmedStyle.Render(p.Summary)

	style := lipgloss.NewStyle().PaddingLeft(2)
	if index == m.Index() {
		style = lipgloss.NewStyle().
			PaddingLeft(1).
			Bold(true).
			Foreground(theme.ColorBlue).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(theme.ColorBlue)
	}
	fmt.Fprint(w, style.Render(title+"\n"+summary))
}

// List is the template list view.
type List struct {
	list   list.Model
	client *library.Client
	keys   *keys.KeyMap
	status string
	width  int
	height int
}

// NewList creates the list view.
func NewList(client *library.Client, k *keys.KeyMap, width, height int) List {
	l := list.New([]list.Item{}, itemDelegate{}, width, height-2)
	l.Title = "Prompt Library"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = theme.HeaderStyle

	return List{
		list:   l,
		client: client,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init loads the templates.
func (m List) Init() tea.Cmd {
	return m.Load()
}

// Load returns a command that fetches the templates.
func (m List) Load() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		prompts, err := c.List(ctx)
		return LoadedMsg{Prompts: prompts, Err: err}
	}
}

// Update handles messages for the list view.
func (m List) Update(msg tea.Msg) (List, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Err != nil {
			slog.Error("loading prompts", "error", msg.Err)
			m.status = "Could not load prompts: " + msg.Err.Error()
			return m, nil
		}
		m.status = ""
		items := make([]list.Item, len(msg.Prompts))
		for i, p := range msg.Prompts {
			items[i] = item{prompt: p}
		}
		return m, m.list.SetItems(items)

	case ChangedMsg:
		if msg.Err != nil {
			slog.Error("prompt change failed", "action", msg.Action, "error", msg.Err)
			m.status = msg.Action + " failed: " + msg.Err.Error()
			return m, nil
		}
		m.status = "Prompt " + msg.Action + "d"
		return m, m.Load()

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.New):
			return m, func() tea.Msg { return EditMsg{} }
		case key.Matches(msg, m.keys.Edit):
			if p, ok := m.Selected(); ok {
				return m, func() tea.Msg { return EditMsg{Prompt: &p} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if p, ok := m.Selected(); ok {
				return m, m.delete(p.ID)
			}
			return m, nil
		case key.Matches(msg, m.keys.Select):
			if p, ok := m.Selected(); ok {
				return m, func() tea.Msg { return RunMsg{Prompt: p} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Filtering reports whether the list's filter input has focus.
func (m List) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Selected returns the highlighted template.
func (m List) Selected() (model.PromptTemplate, bool) {
	it, ok := m.list.SelectedItem().(item)
	if !ok {
		return model.PromptTemplate{}, false
	}
	return it.prompt, true
}

// Status returns the last soft error or change outcome.
func (m List) Status() string {
	return m.status
}

func (m List) delete(id string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return ChangedMsg{Action: "delete", Err: c.Delete(ctx, id)}
	}
}

// View renders the list.
func (m List) View() string {
	if len(m.list.Items()) == 0 {
		msg := "No prompts yet. Press n to create one."
		if m.status != "" {
			msg = m.status
		}
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(theme.HelpStyle.Render(msg))
	}
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *List) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
