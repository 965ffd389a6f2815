// Package relay streams generated text from an upstream model to a
// client. Fragments are forwarded as soon as they arrive, in order, and
// every stream ends with exactly one of a clean close or a failure.
package relay

import (
	"context"
	"errors"
	"iter"
)

// ErrNoAPIKey is returned when the upstream provider has no credentials.
var ErrNoAPIKey = errors.New("no API key configured for the generation provider")

// GenerationConfig holds the optional sampling knobs forwarded upstream.
// Nil fields are left to the provider's defaults.
type GenerationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"topP,omitempty"`
	TopK            *float32 `json:"topK,omitempty"`
	MaxOutputTokens *int32   `json:"maxOutputTokens,omitempty"`
}

// Attachment is an inline file sent alongside the user prompt. Data is
// base64 encoded without a data-URL prefix.
type Attachment struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Request is one generation call.
type Request struct {
	SystemPrompt string           `json:"systemPrompt"`
	UserPrompt   string           `json:"userPrompt"`
	Model        string           `json:"model,omitempty"`
	Config       GenerationConfig `json:"config"`
	Attachment   *Attachment      `json:"image,omitempty"`
}

// Generator produces the text of a response as an ordered sequence of
// fragments. The sequence yields a non-nil error at most once, as its
// last element.
type Generator interface {
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Sink receives forwarded fragments. Exactly one of Close or Fail is
// called, after the last Write.
type Sink interface {
	Write(p []byte) error
	Close() error
	Fail(err error)
}

// Forward copies fragments into sink until the sequence ends, the
// upstream fails, ctx is cancelled, or a write fails. Empty fragments
// are skipped. The returned error is the one passed to Fail, or nil
// when the sink was closed.
func Forward(ctx context.Context, fragments iter.Seq2[string, error], sink Sink) error {
	for text, err := range fragments {
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			sink.Fail(err)
			return err
		}
		if text == "" {
			continue
		}
		if err := sink.Write([]byte(text)); err != nil {
			sink.Fail(err)
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		sink.Fail(err)
		return err
	}
	return sink.Close()
}

// Unavailable returns a Generator whose every stream fails with err.
// It stands in when the provider cannot be configured, so the rest of
// the server still runs.
func Unavailable(err error) Generator {
	return unavailable{err: err}
}

type unavailable struct{ err error }

func (u unavailable) Stream(context.Context, Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", u.err)
	}
}
