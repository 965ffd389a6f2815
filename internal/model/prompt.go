package model

import (
	"strings"
	"time"
)

// InputType is a kind of input a prompt template accepts.
type InputType string

const (
	InputText  InputType = "text"
	InputImage InputType = "image"
	InputAudio InputType = "audio"
	InputFile  InputType = "file"
)

// Defaults applied to newly created prompt templates.
const (
	DefaultPromptTitle   = "Untitled Prompt"
	DefaultPromptSummary = "No summary provided."
	DefaultPromptModel   = "gemini-2.5-flash"
)

// PromptTemplate is a reusable system prompt run against a model.
type PromptTemplate struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	SystemPrompt string `json:"systemPrompt"`

	// AddSysPrompt holds extra instructions appended as bullet points.
	AddSysPrompt []string `json:"addSysPrompt"`

	Model         string      `json:"model"`
	Inputs        []InputType `json:"inputs"`
	PersistInputs []InputType `json:"persistInputs"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// ApplyDefaults fills empty fields of a template about to be created.
func (p *PromptTemplate) ApplyDefaults() {
	if p.Title == "" {
		p.Title = DefaultPromptTitle
	}
	if p.Summary == "" {
		p.Summary = DefaultPromptSummary
	}
	if len(p.Inputs) == 0 {
		p.Inputs = []InputType{InputText}
	}
	if p.Model == "" {
		p.Model = DefaultPromptModel
	}
	if p.AddSysPrompt == nil {
		p.AddSysPrompt = []string{}
	}
	if p.PersistInputs == nil {
		p.PersistInputs = []InputType{}
	}
}

// Accepts reports whether the template takes inputs of type t.
func (p PromptTemplate) Accepts(t InputType) bool {
	for _, in := range p.Inputs {
		if in == t {
			return true
		}
	}
	return false
}

// FinalSystemPrompt returns the system prompt with the additional
// instructions appended as a bulleted list.
func (p PromptTemplate) FinalSystemPrompt() string {
	var extra []string
	for _, s := range p.AddSysPrompt {
		if s = strings.TrimSpace(s); s != "" {
			extra = append(extra, s)
		}
	}
	if len(extra) == 0 {
		return p.SystemPrompt
	}
	return p.SystemPrompt +
		"\nAdditionally, in your response:\n-" +
		strings.Join(extra, "\n-")
}

// PromptPatch is a partial update of a prompt template. Nil fields are
// left untouched.
type PromptPatch struct {
	Title         *string      `json:"title,omitempty"`
	Summary       *string      `json:"summary,omitempty"`
	SystemPrompt  *string      `json:"systemPrompt,omitempty"`
	AddSysPrompt  *[]string    `json:"addSysPrompt,omitempty"`
	Model         *string      `json:"model,omitempty"`
	Inputs        *[]InputType `json:"inputs,omitempty"`
	PersistInputs *[]InputType `json:"persistInputs,omitempty"`
}

// Apply merges the patch into p.
func (pp PromptPatch) Apply(p *PromptTemplate) {
	if pp.Title != nil {
		p.Title = *pp.Title
	}
	if pp.Summary != nil {
		p.Summary = *pp.Summary
	}
	if pp.SystemPrompt != nil {
		p.SystemPrompt = *pp.SystemPrompt
	}
	if pp.AddSysPrompt != nil {
		p.AddSysPrompt = *pp.AddSysPrompt
	}
	if pp.Model != nil {
		p.Model = *pp.Model
	}
	if pp.Inputs != nil {
		p.Inputs = *pp.Inputs
	}
	if pp.PersistInputs != nil {
		p.PersistInputs = *pp.PersistInputs
	}
}
