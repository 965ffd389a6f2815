// Package settings edits the dashboard's connection settings and
// credentials, checking the hub is reachable before saving.
package settings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/replydeck/internal/credential"
	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/theme"
)

type mode int

const (
	modeForm mode = iota
	modeChecking
	modeResult
)

// DoneMsg is sent when the view should close. Saved is false when the
// user cancelled.
type DoneMsg struct {
	Saved bool
}

// checkResultMsg carries the outcome of the connection check and save.
type checkResultMsg struct {
	cfg *model.AppConfig
	err error
}

// SaveFunc persists the configuration.
type SaveFunc func(cfg *model.AppConfig) error

// bindings keeps huh's Value pointers stable across model copies.
type bindings struct {
	baseURL  string
	apiURL   string
	gemini   string
	telegram string
	pacing   bool
}

// Model is the settings view.
type Model struct {
	mode    mode
	form    *huh.Form
	fb      *bindings
	cfg     *model.AppConfig
	save    SaveFunc
	setKey  func(key, value string) error
	http    *http.Client
	spinner spinner.Model
	err     error
	width   int
	height  int
}

// New creates the settings view. save is called with the updated config
// once the hub answers.
func New(cfg *model.AppConfig, save SaveFunc, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		fb:      &bindings{},
		cfg:     cfg,
		save:    save,
		setKey:  credential.Set,
		http:    &http.Client{Timeout: 5 * time.Second},
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Start resets the form from the current configuration.
func (m *Model) Start() tea.Cmd {
	*m.fb = bindings{
		baseURL: m.cfg.Feed.BaseURL,
		apiURL:  m.cfg.Feed.APIURL,
		pacing:  m.cfg.Telegram.Pacing,
	}
	m.mode = modeForm
	m.err = nil
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Notification URL").
				Description("Root of the hub's /user endpoints").
				Value(&m.fb.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("API URL").
				Description("Root of the prompt and generation endpoints").
				Value(&m.fb.apiURL).
				Validate(validateURL),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API key").
				Description("Leave blank to keep the stored key").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.gemini),
			huh.NewInput().
				Title("Telegram bot token").
				Description("Leave blank to keep the stored token").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.telegram),
			huh.NewConfirm().
				Title("Simulate typing between bubbles?").
				Value(&m.fb.pacing),
		),
	).WithWidth(m.formWidth()).WithShowHelp(true)
	return m.form.Init()
}

// Update handles messages for the active mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case checkResultMsg:
		m.mode = modeResult
		m.err = msg.err
		if msg.err == nil && msg.cfg != nil {
			*m.cfg = *msg.cfg
		}
		return m, nil

	case spinner.TickMsg:
		if m.mode != modeChecking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case modeChecking:
			if msg.String() == "esc" {
				m.mode = modeForm
			}
			return m, nil
		case modeResult:
			switch msg.String() {
			case "enter", "esc":
				saved := m.err == nil
				return m, func() tea.Msg { return DoneMsg{Saved: saved} }
			case "r":
				if m.err != nil {
					return m.submit()
				}
			}
			return m, nil
		}
		if msg.String() == "esc" {
			return m, func() tea.Msg { return DoneMsg{} }
		}
	}

	if m.mode != modeForm || m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		return m.submit()
	case huh.StateAborted:
		return m, func() tea.Msg { return DoneMsg{} }
	}
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	m.mode = modeChecking
	return m, tea.Batch(m.spinner.Tick, m.checkAndSave(*m.fb))
}

// checkAndSave pings the hub behind the new notification URL and, if it
// answers, stores the credentials and the config.
func (m Model) checkAndSave(fb bindings) tea.Cmd {
	cfg := *m.cfg
	cfg.Feed.BaseURL = strings.TrimSpace(fb.baseURL)
	cfg.Feed.APIURL = strings.TrimSpace(fb.apiURL)
	cfg.Telegram.Pacing = fb.pacing

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ping(ctx, m.http, cfg.Feed.BaseURL); err != nil {
			return checkResultMsg{err: err}
		}

		for key, value := range map[string]string{
			credential.GeminiAPIKey:     fb.gemini,
			credential.TelegramBotToken: fb.telegram,
		} {
			if value = strings.TrimSpace(value); value == "" {
				continue
			}
			if err := m.setKey(key, value); err != nil {
				return checkResultMsg{err: err}
			}
		}

		if err := m.save(&cfg); err != nil {
			return checkResultMsg{err: fmt.Errorf("hub reachable but save failed: %w", err)}
		}
		return checkResultMsg{cfg: &cfg}
	}
}

// ping calls the health endpoint at the root of the hub serving baseURL.
func ping(ctx context.Context, client *http.Client, baseURL string) error {
	u, err := url.JoinPath(baseURL, "..", "healthz")
	if err != nil {
		return fmt.Errorf("invalid notification URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("hub unreachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hub health check returned %s", resp.Status)
	}
	return nil
}

// View renders the active mode.
func (m Model) View() string {
	style := lipgloss.NewStyle().Padding(1, 2).Width(m.width)

	switch m.mode {
	case modeChecking:
		return style.Render(fmt.Sprintf("%s Checking the hub...\n\nPress esc to cancel.", m.spinner.View()))
	case modeResult:
		hint := lipgloss.NewStyle().Foreground(theme.ColorGray)
		if m.err != nil {
			return style.Render(
				theme.ErrorStyle.Bold(true).Render("Settings not saved") + "\n\n" +
					m.err.Error() + "\n\n" + hint.Render("r retry | enter/esc back"))
		}
		ok := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen)
		return style.Render(
			ok.Render("Settings saved") + "\n\n" +
				"Restart the dashboard to connect to the new hub.\n\n" + hint.Render("enter/esc back"))
	}
	if m.form == nil {
		return ""
	}
	return style.Render(m.form.View())
}

// Err returns the last check error, if any.
func (m Model) Err() error { return m.err }

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("URL is required")
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("URL must include scheme and host (e.g., http://localhost:8080/user)")
	}
	return nil
}
