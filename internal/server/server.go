// Package server exposes the prompt library, the generation relay and
// the notification hub over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nhle/replydeck/internal/hub"
	"github.com/nhle/replydeck/internal/store"
)

// Options tunes the server. Zero values pick defaults.
type Options struct {
	// KeepAlive is the interval between SSE comment lines.
	KeepAlive time.Duration

	// Retry is the reconnect delay advertised to SSE clients.
	Retry time.Duration
}

// Server wires the HTTP routes to their backing services.
type Server struct {
	store     store.Store
	hub       *hub.Hub
	generate  http.Handler
	keepAlive time.Duration
	retry     time.Duration
}

// New creates a server. generate serves POST /api/generate.
func New(s store.Store, h *hub.Hub, generate http.Handler, opts Options) *Server {
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}
	if opts.Retry <= 0 {
		opts.Retry = 3 * time.Second
	}
	return &Server{
		store:     s,
		hub:       h,
		generate:  generate,
		keepAlive: opts.KeepAlive,
		retry:     opts.Retry,
	}
}

// Handler returns the fully wrapped route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/prompts", s.listPrompts)
	mux.HandleFunc("POST /api/prompts", s.createPrompt)
	mux.HandleFunc("PUT /api/prompts/{id}", s.updatePrompt)
	mux.HandleFunc("DELETE /api/prompts/{id}", s.deletePrompt)
	mux.Handle("POST /api/generate", s.generate)

	mux.HandleFunc("GET /user/notifications", s.listNotifications)
	mux.HandleFunc("POST /user/notifications", s.publishNotification)
	mux.HandleFunc("DELETE /user/notifications/{id}", s.deleteNotification)
	mux.HandleFunc("GET /user/stream", s.stream)
	mux.HandleFunc("POST /user/reply", s.reply)
	mux.HandleFunc("GET /user/replies", s.listReplies)

	return withRequestID(withAccessLog(withRecover(withCORS(mux))))
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
// Open event streams are cancelled so shutdown does not wait on them.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	slog.Info("server shutting down")
	cancelBase()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
