package prompts

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/replydeck/internal/keys"
	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/relay"
	"github.com/nhle/replydeck/internal/theme"
)

// maxAttachmentBytes caps files read for inline upload.
const maxAttachmentBytes = 20 << 20

// RunnerCloseMsg signals the parent to close the runner.
type RunnerCloseMsg struct{}

// streamStartedMsg carries the chunk channel of a started generation.
type streamStartedMsg struct {
	run int
	ch  <-chan relay.Chunk
	err error
}

// ChunkMsg carries one streamed piece of output. Run identifies the
// generation so chunks of a cancelled run are dropped.
type ChunkMsg struct {
	Run   int
	Chunk relay.Chunk
	ch    <-chan relay.Chunk
}

// Runner runs a prompt template against the relay and shows the output
// as it streams in.
type Runner struct {
	prompt      model.PromptTemplate
	client      *relay.Client
	temperature float32
	keys        *keys.KeyMap

	input   textarea.Model
	attach  textinput.Model
	focus   int
	output  viewport.Model
	spinner spinner.Model
	text    *strings.Builder
	errText string
	running bool
	run     int
	cancel  context.CancelFunc
	width   int
	height  int
}

// NewRunner creates the runner view. temperature is sent with every
// request.
func NewRunner(client *relay.Client, temperature float32, k *keys.KeyMap, width, height int) Runner {
	ta := textarea.New()
	ta.Placeholder = "Enter your input..."
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.SetWidth(width - 4)
	ta.SetHeight(4)
	ta.CharLimit = 20000

	ti := textinput.New()
	ti.Placeholder = "path to an image, audio clip or file (optional)"
	ti.Prompt = "📎 "
	ti.Width = width - 8

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Runner{
		client:      client,
		temperature: temperature,
		keys:        k,
		input:       ta,
		attach:      ti,
		output:      viewport.New(width-4, max(height-12, 4)),
		spinner:     sp,
		text:        &strings.Builder{},
		width:       width,
		height:      height,
	}
}

// Open resets the runner for p and focuses the input.
func (m *Runner) Open(p model.PromptTemplate) tea.Cmd {
	m.prompt = p
	m.input.Reset()
	m.attach.Reset()
	m.text.Reset()
	m.errText = ""
	m.running = false
	m.focus = 0
	m.attach.Blur()
	m.refresh()
	return m.input.Focus()
}

// Running reports whether a generation is in flight.
func (m Runner) Running() bool {
	return m.running
}

func (m Runner) acceptsAttachment() bool {
	return m.prompt.Accepts(model.InputImage) ||
		m.prompt.Accepts(model.InputAudio) ||
		m.prompt.Accepts(model.InputFile)
}

// Update handles messages for the runner.
func (m Runner) Update(msg tea.Msg) (Runner, tea.Cmd) {
	switch msg := msg.(type) {
	case streamStartedMsg:
		if msg.run != m.run || !m.running {
			return m, nil
		}
		if msg.err != nil {
			m.stop()
			m.errText = "Error: " + msg.err.Error()
			m.refresh()
			return m, nil
		}
		return m, waitForChunk(msg.run, msg.ch)

	case ChunkMsg:
		if msg.Run != m.run || !m.running {
			return m, nil
		}
		if msg.Chunk.Text != "" {
			m.text.WriteString(msg.Chunk.Text)
		}
		if msg.Chunk.Err != nil {
			m.errText = "Error: " + msg.Chunk.Err.Error()
		}
		m.refresh()
		if msg.Chunk.Done {
			m.stop()
			if msg.Chunk.Err == nil {
				m.clearTransientInputs()
			}
			return m, nil
		}
		return m, waitForChunk(msg.Run, msg.ch)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m Runner) handleKey(msg tea.KeyMsg) (Runner, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		if m.running {
			m.stop()
			m.errText = "Cancelled"
			m.refresh()
			return m, nil
		}
		return m, func() tea.Msg { return RunnerCloseMsg{} }

	case key.Matches(msg, m.keys.NextBubble):
		if !m.acceptsAttachment() {
			return m, nil
		}
		m.focus = 1 - m.focus
		if m.focus == 1 {
			m.input.Blur()
			return m, m.attach.Focus()
		}
		m.attach.Blur()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Send):
		if m.running {
			return m, nil
		}
		return m.start()
	}

	return m.updateFocused(msg)
}

func (m Runner) updateFocused(msg tea.Msg) (Runner, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == 1 {
		m.attach, cmd = m.attach.Update(msg)
		return m, cmd
	}
	var vpCmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.output, vpCmd = m.output.Update(msg)
	return m, tea.Batch(cmd, vpCmd)
}

// start validates the inputs, builds the request and launches it.
func (m Runner) start() (Runner, tea.Cmd) {
	req, err := m.request()
	if err != nil {
		m.errText = err.Error()
		m.refresh()
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.run++
	m.running = true
	m.errText = ""
	m.text.Reset()
	m.refresh()

	c := m.client
	run := m.run
	generate := func() tea.Msg {
		ch, err := c.Generate(ctx, req)
		return streamStartedMsg{run: run, ch: ch, err: err}
	}
	return m, tea.Batch(generate, m.spinner.Tick)
}

func (m Runner) request() (relay.Request, error) {
	text := strings.TrimSpace(m.input.Value())
	path := strings.TrimSpace(m.attach.Value())
	if text == "" && path == "" {
		return relay.Request{}, fmt.Errorf("enter some input first")
	}

	temp := m.temperature
	req := relay.Request{
		SystemPrompt: m.prompt.FinalSystemPrompt(),
		UserPrompt:   text,
		Model:        m.prompt.Model,
		Config:       relay.GenerationConfig{Temperature: &temp},
	}
	if path != "" && m.acceptsAttachment() {
		att, err := LoadAttachment(path)
		if err != nil {
			return relay.Request{}, err
		}
		req.Attachment = att
	}
	return req, nil
}

func (m *Runner) stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.running = false
}

// clearTransientInputs empties the inputs the template does not keep
// between runs.
func (m *Runner) clearTransientInputs() {
	if !slices.Contains(m.prompt.PersistInputs, model.InputText) {
		m.input.Reset()
	}
	keepAttachment := slices.ContainsFunc(m.prompt.PersistInputs, func(t model.InputType) bool {
		return t != model.InputText
	})
	if !keepAttachment {
		m.attach.Reset()
	}
}

func (m *Runner) refresh() {
	content := m.text.String()
	if content == "" && !m.running && m.errText == "" {
		content = theme.HelpStyle.Render("Output appears here. Press ctrl+s to run.")
	}
	if m.errText != "" {
		content += "\n" + theme.ErrorStyle.Render(m.errText)
	}
	m.output.SetContent(lipgloss.NewStyle().Width(m.output.Width).Render(content))
	m.output.GotoBottom()
}

// Output returns the text received so far.
func (m Runner) Output() string {
	return m.text.String()
}

// View renders the runner.
func (m Runner) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	title := titleStyle.Render(m.prompt.Title) + "  " + theme.DimmedStyle.Render(m.prompt.Model)
	if m.running {
		title += "  " + m.spinner.View()
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-6, 80), 0)))

	parts := []string{title, m.output.View(), sep, m.input.View()}
	if m.acceptsAttachment() {
		parts = append(parts, m.attach.View())
	}
	parts = append(parts, theme.HelpStyle.Render("ctrl+s run · tab switch field · esc back/cancel"))

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the runner dimensions.
func (m *Runner) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width - 4)
	m.attach.Width = width - 8
	m.output.Width = width - 4
	m.output.Height = max(height-12, 4)
}

func waitForChunk(run int, ch <-chan relay.Chunk) tea.Cmd {
	return func() tea.Msg {
		chunk, ok := <-ch
		if !ok {
			chunk = relay.Chunk{Done: true}
		}
		return ChunkMsg{Run: run, Chunk: chunk, ch: ch}
	}
}

// LoadAttachment reads path and encodes it for inline upload. The MIME
// type is sniffed from the content, falling back to the extension.
func LoadAttachment(path string) (*relay.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading attachment: %w", err)
	}
	if info.Size() > maxAttachmentBytes {
		return nil, fmt.Errorf("attachment %s is larger than %d MB", filepath.Base(path), maxAttachmentBytes>>20)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading attachment: %w", err)
	}

	mimeType := http.DetectContentType(data)
	if strings.HasPrefix(mimeType, "application/octet-stream") || strings.HasPrefix(mimeType, "text/plain") {
		if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
			mimeType = byExt
		}
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	return &relay.Attachment{
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
	}, nil
}
