package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/replydeck/internal/dispatch"
	"github.com/nhle/replydeck/internal/feed"
	"github.com/nhle/replydeck/internal/keys"
	"github.com/nhle/replydeck/internal/library"
	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/relay"
	"github.com/nhle/replydeck/internal/theme"
	"github.com/nhle/replydeck/internal/ui"
	"github.com/nhle/replydeck/internal/ui/cards"
	"github.com/nhle/replydeck/internal/ui/command"
	helpview "github.com/nhle/replydeck/internal/ui/help"
	"github.com/nhle/replydeck/internal/ui/prompts"
	"github.com/nhle/replydeck/internal/ui/settings"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewFeed ViewState = iota
	ViewPrompts
	ViewPromptForm
	ViewRunner
	ViewHelp
	ViewCommand
	ViewSettings
)

// Model is the root Bubble Tea model that manages view routing, layout
// and the connection to the hub.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	subscriber   *feed.Subscriber
	cards        cards.Model
	promptList   prompts.List
	promptForm   prompts.Form
	runner       prompts.Runner
	helpView     helpview.Model
	commandView  command.Model
	settingsView settings.Model
	ready        bool
	streamErr    string
	notice       string
}

// New creates the root model from the client configuration. The
// settings view writes changes back to configPath.
func New(cfg *model.AppConfig, configPath string) Model {
	k := keys.DefaultKeyMap()
	timeout := time.Duration(cfg.Feed.RequestTimeoutSec) * time.Second

	client := feed.NewClient(cfg.Feed.BaseURL,
		feed.WithHTTPClient(&http.Client{Timeout: timeout}),
		feed.WithRetry(time.Duration(cfg.Feed.ReconnectSec)*time.Second),
	)
	rec := feed.NewReconciler()
	lib := library.NewClient(cfg.Feed.APIURL, timeout)
	gen := relay.NewClient(strings.TrimRight(cfg.Feed.APIURL, "/") + "/generate")

	save := func(c *model.AppConfig) error { return model.SaveConfig(configPath, c) }

	return Model{
		currentView:  ViewFeed,
		keys:         k,
		subscriber:   feed.NewSubscriber(client),
		cards:        cards.New(rec, dispatch.New(client, rec, timeout), k, 80, 24),
		promptList:   prompts.NewList(lib, k, 80, 24),
		promptForm:   prompts.NewForm(lib, 80, 24),
		runner:       prompts.NewRunner(gen, cfg.AI.Temperature, k, 80, 24),
		helpView:     helpview.New(k, 80, 24),
		commandView:  command.New(80, 24),
		settingsView: settings.New(cfg, save, 80, 24),
	}
}

// Init fetches the snapshot; the stream starts once it arrives.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.subscriber.Snapshot(),
		m.promptList.Init(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.cards.SetSize(w, h)
		m.promptList.SetSize(w, h)
		m.promptForm.SetSize(w, h)
		m.runner.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.settingsView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case feed.SnapshotMsg:
		var cmd tea.Cmd
		m.cards, cmd = m.cards.Update(msg)
		return m, tea.Batch(cmd, m.subscriber.Start())

	case feed.EventMsg:
		var cmd tea.Cmd
		m.cards, cmd = m.cards.Update(msg)
		return m, tea.Batch(cmd, m.subscriber.WaitForEvent())

	case feed.StreamStatusMsg:
		m.streamErr = ""
		if msg.Err != nil {
			m.streamErr = "stream: " + msg.Err.Error()
		}
		var cmd tea.Cmd
		m.cards, cmd = m.cards.Update(msg)
		return m, tea.Batch(cmd, m.subscriber.WaitForEvent())

	case dispatch.ResultMsg:
		var cmd tea.Cmd
		m.cards, cmd = m.cards.Update(msg)
		return m, cmd

	case prompts.LoadedMsg:
		var cmd tea.Cmd
		m.promptList, cmd = m.promptList.Update(msg)
		return m, cmd

	case prompts.ChangedMsg:
		if m.currentView == ViewPromptForm {
			m.currentView = ViewPrompts
		}
		var cmd tea.Cmd
		m.promptList, cmd = m.promptList.Update(msg)
		return m, cmd

	case prompts.EditMsg:
		m.currentView = ViewPromptForm
		return m, m.promptForm.Start(msg.Prompt)

	case prompts.FormCancelMsg:
		m.currentView = ViewPrompts
		return m, nil

	case prompts.RunMsg:
		m.currentView = ViewRunner
		return m, m.runner.Open(msg.Prompt)

	case prompts.RunnerCloseMsg:
		m.currentView = ViewPrompts
		return m, nil

	case settings.DoneMsg:
		m.currentView = ViewFeed
		if msg.Saved {
			m.notice = "settings saved"
		}
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		m.notice = ""
		if msg.String() == "ctrl+c" {
			m.subscriber.Stop()
			return m, tea.Quit
		}
		if m.capturing() {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.currentView == ViewFeed || m.currentView == ViewPrompts {
				m.subscriber.Stop()
				return m, tea.Quit
			}

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.Command):
			if m.currentView == ViewCommand {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.commandView.Focus()

		case key.Matches(msg, m.keys.Back):
			if m.currentView == ViewHelp || m.currentView == ViewCommand {
				m.currentView = m.previousView
				return m, nil
			}
			if m.currentView == ViewPrompts {
				m.currentView = ViewFeed
				return m, nil
			}

		case key.Matches(msg, m.keys.Prompts):
			if m.currentView == ViewFeed {
				m.currentView = ViewPrompts
				return m, m.promptList.Load()
			}

		case key.Matches(msg, m.keys.Feed):
			if m.currentView == ViewPrompts {
				m.currentView = ViewFeed
				return m, nil
			}

		case key.Matches(msg, m.keys.Settings):
			if m.currentView == ViewFeed || m.currentView == ViewPrompts {
				m.currentView = ViewSettings
				return m, m.settingsView.Start()
			}

		case key.Matches(msg, m.keys.Reload):
			if m.currentView == ViewFeed {
				return m, m.subscriber.Snapshot()
			}
		}
	}

	return m.updateActiveView(msg)
}

// capturing reports whether the active view consumes plain keys as text.
func (m Model) capturing() bool {
	switch m.currentView {
	case ViewFeed:
		return m.cards.Capturing()
	case ViewPrompts:
		return m.promptList.Filtering()
	case ViewPromptForm, ViewRunner, ViewCommand, ViewSettings:
		return true
	}
	return false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewFeed:
		m.cards, cmd = m.cards.Update(msg)
	case ViewPrompts:
		m.promptList, cmd = m.promptList.Update(msg)
	case ViewPromptForm:
		m.promptForm, cmd = m.promptForm.Update(msg)
	case ViewRunner:
		m.runner, cmd = m.runner.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEsc {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "Reply Deck"
	if n := m.cards.Count(); n > 0 {
		title = fmt.Sprintf("Reply Deck [%d pending]", n)
	}
	header := m.layout.RenderHeader(title, m.connectionStatus())
	statusBar := m.layout.RenderStatusBar(m.statusLine())

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewFeed:
		return m.cards.View()
	case ViewPrompts:
		return m.promptList.View()
	case ViewPromptForm:
		return m.promptForm.View()
	case ViewRunner:
		return m.runner.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewSettings:
		return m.settingsView.View()
	default:
		return ""
	}
}

func (m Model) connectionStatus() string {
	if m.cards.Connected() {
		return "● live"
	}
	return "○ offline"
}

// statusLine prefers the latest soft error or outcome over key hints.
func (m Model) statusLine() string {
	switch m.currentView {
	case ViewFeed:
		if s := m.cards.Status(); s != "" {
			return s
		}
		if m.streamErr != "" {
			return theme.ErrorStyle.Render(m.streamErr)
		}
		if m.notice != "" {
			return m.notice
		}
		return "q quit | ? help | r reply | x ignore | h context | p prompts | : command"
	case ViewPrompts:
		if s := m.promptList.Status(); s != "" {
			return s
		}
		return "n new | e edit | d delete | enter run | / filter | esc feed"
	case ViewPromptForm:
		return "enter next | esc cancel"
	case ViewRunner:
		return "ctrl+s run | tab switch field | esc back"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewSettings:
		return "enter next | esc cancel"
	}
	return ""
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "feed":
		m.currentView = ViewFeed
		return nil
	case "prompts", "library":
		m.currentView = ViewPrompts
		return m.promptList.Load()
	case "new prompt", "new":
		m.currentView = ViewPromptForm
		return m.promptForm.Start(nil)
	case "settings", "config":
		m.currentView = ViewSettings
		return m.settingsView.Start()
	case "reload", "refresh":
		return m.subscriber.Snapshot()
	case "quit", "q":
		m.subscriber.Stop()
		return tea.Quit
	default:
		slog.Debug("unknown command", "command", cmd)
		return nil
	}
}
