package prompts

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/replydeck/internal/keys"
	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/relay"
)

func TestLoadAttachmentSniffsType(t *testing.T) {
	dir := t.TempDir()
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	path := filepath.Join(dir, "shot.bin")
	if err := os.WriteFile(path, png, 0o600); err != nil {
		t.Fatal(err)
	}

	att, err := LoadAttachment(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if att.MIMEType != "image/png" {
		t.Fatalf("mime %q", att.MIMEType)
	}
	raw, _ := base64.StdEncoding.DecodeString(att.Data)
	if string(raw) != string(png) {
		t.Fatalf("data not round-tripped")
	}
}

func TestLoadAttachmentFallsBackToExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")
	if err := os.WriteFile(path, []byte(`{"a":1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	att, err := LoadAttachment(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if att.MIMEType != "application/json" {
		t.Fatalf("mime %q", att.MIMEType)
	}
}

func TestLoadAttachmentMissingFile(t *testing.T) {
	if _, err := LoadAttachment(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFormTemplateTrimsInstructions(t *testing.T) {
	f := NewForm(nil, 80, 24)
	f.Start(&model.PromptTemplate{ID: "p1", Title: " Tone ", Model: "m", Inputs: []model.InputType{model.InputText}})
	f.fb.extra = "be kind\n\n  short  \n"

	p := f.template()
	if p.ID != "p1" || p.Title != "Tone" {
		t.Fatalf("unexpected template %+v", p)
	}
	if !slices.Equal(p.AddSysPrompt, []string{"be kind", "short"}) {
		t.Fatalf("instructions %v", p.AddSysPrompt)
	}
	if p.PersistInputs == nil {
		t.Fatalf("persist inputs must not be nil")
	}
}

func TestValidateTemplate(t *testing.T) {
	if err := validateTemplate(model.PromptTemplate{Inputs: []model.InputType{model.InputText}}); err == nil {
		t.Fatalf("empty title must fail")
	}
	if err := validateTemplate(model.PromptTemplate{Title: "x"}); err == nil {
		t.Fatalf("no inputs must fail")
	}
}

// drain runs cmd and feeds every resulting message back into the runner
// until no command remains. Spinner ticks are dropped.
func drain(t *testing.T, m Runner, cmd tea.Cmd) Runner {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 1000 {
			t.Fatalf("runner did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case spinner.TickMsg:
		default:
			var c tea.Cmd
			m, c = m.Update(msg)
			queue = append(queue, c)
		}
	}
	return m
}

func TestRunnerStreamsOutput(t *testing.T) {
	var got relay.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Hello, "))
		w.(http.Flusher).Flush()
		w.Write([]byte("world"))
	}))
	defer srv.Close()

	m := NewRunner(relay.NewClient(srv.URL), 0.5, keys.DefaultKeyMap(), 80, 30)
	m.Open(model.PromptTemplate{
		Title:        "Greeter",
		SystemPrompt: "greet",
		AddSysPrompt: []string{"be brief"},
		Model:        "gemini-test",
		Inputs:       []model.InputType{model.InputText},
	})
	m.input.SetValue("hi")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if !m.Running() {
		t.Fatalf("runner should be running")
	}
	m = drain(t, m, cmd)

	if m.Running() {
		t.Fatalf("runner should have finished")
	}
	if m.Output() != "Hello, world" {
		t.Fatalf("output %q", m.Output())
	}
	if got.Model != "gemini-test" || got.UserPrompt != "hi" || !strings.Contains(got.SystemPrompt, "- be brief") {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Config.Temperature == nil || *got.Config.Temperature != 0.5 {
		t.Fatalf("temperature not sent")
	}
	if m.input.Value() != "" {
		t.Fatalf("non-persistent input should be cleared")
	}
}

func TestRunnerShowsRelayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to generate content"}`))
	}))
	defer srv.Close()

	m := NewRunner(relay.NewClient(srv.URL), 0.5, keys.DefaultKeyMap(), 80, 30)
	m.Open(model.PromptTemplate{Title: "x", Inputs: []model.InputType{model.InputText}})
	m.input.SetValue("hi")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = drain(t, m, cmd)

	if m.Running() || !strings.Contains(m.errText, "Failed to generate content") {
		t.Fatalf("expected literal error, got %q", m.errText)
	}
	if m.input.Value() != "hi" {
		t.Fatalf("input should be kept after a failure")
	}
}

func TestRunnerRejectsEmptyInput(t *testing.T) {
	m := NewRunner(relay.NewClient("http://unused"), 0, keys.DefaultKeyMap(), 80, 30)
	m.Open(model.PromptTemplate{Title: "x", Inputs: []model.InputType{model.InputText}})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd != nil || m.Running() || m.errText == "" {
		t.Fatalf("empty input must not start a run")
	}
}
