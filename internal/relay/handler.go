package relay

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nhle/replydeck/internal/model"
)

// maxRequestBytes caps the request body; inline attachments make it
// larger than a typical JSON call.
const maxRequestBytes = 32 << 20

// Handler serves POST /api/generate. The response body is the generated
// text in plain UTF-8, written fragment by fragment.
type Handler struct {
	gen          Generator
	defaultModel string
}

// NewHandler returns a handler relaying from gen. Requests without a
// model use defaultModel.
func NewHandler(gen Generator, defaultModel string) *Handler {
	if defaultModel == "" {
		defaultModel = model.DefaultPromptModel
	}
	return &Handler{gen: gen, defaultModel: defaultModel}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Model == "" {
		req.Model = h.defaultModel
	}

	ctx := r.Context()
	sink := newHTTPSink(w)
	err := Forward(ctx, h.gen.Stream(ctx, req), sink)
	if err == nil {
		return
	}

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		slog.Info("generation cancelled by client", "model", req.Model)
	} else {
		slog.Error("generation failed", "model", req.Model, "error", err, "bytes", sink.written)
	}
	if sink.started {
		// Headers and part of the body are out. Abort the connection so
		// the client sees a broken stream instead of a clean end.
		panic(http.ErrAbortHandler)
	}
}

// httpSink commits the 200 status lazily on the first fragment so that
// an upstream failure before any output can still become a 500.
type httpSink struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
	written int
}

func newHTTPSink(w http.ResponseWriter) *httpSink {
	return &httpSink{w: w, rc: http.NewResponseController(w)}
}

func (s *httpSink) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	s.w.WriteHeader(http.StatusOK)
}

func (s *httpSink) Write(p []byte) error {
	s.start()
	n, err := s.w.Write(p)
	s.written += n
	if err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

func (s *httpSink) Close() error {
	s.start()
	return nil
}

func (s *httpSink) Fail(error) {
	if !s.started {
		writeError(s.w, http.StatusInternalServerError, "Failed to generate content")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
