package prompts

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/replydeck/internal/library"
	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/theme"
)

// FormCancelMsg is sent when the user aborts the form.
type FormCancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title         string
	summary       string
	systemPrompt  string
	extra         string
	model         string
	inputs        []model.InputType
	persistInputs []model.InputType
}

// Form creates and edits prompt templates.
type Form struct {
	form   *huh.Form
	fb     *formBindings
	client *library.Client
	editID string
	width  int
	height int
}

// NewForm creates the form model.
func NewForm(client *library.Client, width, height int) Form {
	return Form{
		fb:     &formBindings{},
		client: client,
		width:  width,
		height: height,
	}
}

// Start initializes the form for p, or for a new template when p is nil.
func (m *Form) Start(p *model.PromptTemplate) tea.Cmd {
	*m.fb = formBindings{
		model:  model.DefaultPromptModel,
		inputs: []model.InputType{model.InputText},
	}
	m.editID = ""
	if p != nil {
		m.editID = p.ID
		m.fb.title = p.Title
		m.fb.summary = p.Summary
		m.fb.systemPrompt = p.SystemPrompt
		m.fb.extra = strings.Join(p.AddSysPrompt, "\n")
		m.fb.model = p.Model
		m.fb.inputs = slices.Clone(p.Inputs)
		m.fb.persistInputs = slices.Clone(p.PersistInputs)
	}
	m.form = m.build()
	return m.form.Init()
}

// Update handles messages for the form.
func (m Form) Update(msg tea.Msg) (Form, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEsc {
		m.form = nil
		return m, func() tea.Msg { return FormCancelMsg{} }
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		return m, m.save()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return FormCancelMsg{} }
	}
	return m, cmd
}

// View renders the form.
func (m Form) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Prompt"
	if m.editID != "" {
		titleText = "Edit Prompt"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(titleStyle.Render(titleText) + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Form) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Form) build() *huh.Form {
	inputOpts := []huh.Option[model.InputType]{
		huh.NewOption("Text", model.InputText),
		huh.NewOption("Image", model.InputImage),
		huh.NewOption("Audio", model.InputAudio),
		huh.NewOption("File", model.InputFile),
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewInput().
				Title("Summary").
				Placeholder("What this prompt is for (optional)").
				Value(&m.fb.summary),
			huh.NewInput().
				Title("Model").
				Value(&m.fb.model).
				Validate(validateRequired("Model")),
		),
		huh.NewGroup(
			huh.NewText().
				Title("System Prompt").
				Value(&m.fb.systemPrompt),
			huh.NewText().
				Title("Additional Instructions").
				Description("One per line").
				Value(&m.fb.extra),
		),
		huh.NewGroup(
			huh.NewMultiSelect[model.InputType]().
				Title("Inputs").
				Options(inputOpts...).
				Value(&m.fb.inputs).
				Validate(validateInputs),
			huh.NewMultiSelect[model.InputType]().
				Title("Keep Between Runs").
				Options(inputOpts...).
				Value(&m.fb.persistInputs),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// template builds the template described by the current field values.
func (m Form) template() model.PromptTemplate {
	var extra []string
	for _, line := range strings.Split(m.fb.extra, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			extra = append(extra, line)
		}
	}
	if extra == nil {
		extra = []string{}
	}
	persist := m.fb.persistInputs
	if persist == nil {
		persist = []model.InputType{}
	}

	return model.PromptTemplate{
		ID:            m.editID,
		Title:         strings.TrimSpace(m.fb.title),
		Summary:       strings.TrimSpace(m.fb.summary),
		SystemPrompt:  m.fb.systemPrompt,
		AddSysPrompt:  extra,
		Model:         strings.TrimSpace(m.fb.model),
		Inputs:        slices.Clone(m.fb.inputs),
		PersistInputs: slices.Clone(persist),
	}
}

func (m Form) save() tea.Cmd {
	p := m.template()
	c := m.client
	return func() tea.Msg {
		if err := validateTemplate(p); err != nil {
			return ChangedMsg{Action: "save", Err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if p.ID == "" {
			_, err := c.Create(ctx, p)
			return ChangedMsg{Action: "create", Err: err}
		}
		_, err := c.Update(ctx, p.ID, model.PromptPatch{
			Title:         &p.Title,
			Summary:       &p.Summary,
			SystemPrompt:  &p.SystemPrompt,
			AddSysPrompt:  &p.AddSysPrompt,
			Model:         &p.Model,
			Inputs:        &p.Inputs,
			PersistInputs: &p.PersistInputs,
		})
		return ChangedMsg{Action: "update", Err: err}
	}
}

func (m Form) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Form) formHeight() int {
	return max(m.height-4, 10)
}

// validateTemplate rejects a template before any request is made.
func validateTemplate(p model.PromptTemplate) error {
	if p.Title == "" {
		return errors.New("title is required")
	}
	return validateInputs(p.Inputs)
}

func validateInputs(in []model.InputType) error {
	if len(in) == 0 {
		return errors.New("select at least one input type")
	}
	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
