package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nhle/replydeck/internal/hub"
	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/outbox"
)

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	cards, err := s.hub.Snapshot(r.Context())
	if err != nil {
		slog.Error("listing cards", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch notifications")
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) publishNotification(w http.ResponseWriter, r *http.Request) {
	var card model.NotificationCard
	if err := decodeJSON(w, r, &card); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	published, err := s.hub.Publish(r.Context(), card)
	if err != nil {
		slog.Error("publishing card", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to publish notification")
		return
	}
	writeJSON(w, http.StatusCreated, published)
}

func (s *Server) deleteNotification(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.hub.Dismiss(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("dismissing card", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete notification")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request) {
	var req model.ReplyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CardID == "" {
		writeError(w, http.StatusBadRequest, "card_id is required")
		return
	}

	sent, err := s.hub.Reply(r.Context(), req)
	switch {
	case errors.Is(err, hub.ErrInvalidReply):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, outbox.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, "Outbox is busy, try again")
		return
	case err != nil:
		slog.Error("sending reply", "card", req.CardID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send reply")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "sent", "text": sent})
}

func (s *Server) listReplies(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.hub.ReplyLog(r.Context(), limit)
	if err != nil {
		slog.Error("listing reply log", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch reply log")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// stream serves the live card feed as server-sent events: one JSON
// object per message, a retry hint first and comment lines as keepalive.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", s.retry.Milliseconds()); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		slog.Error("stream flush unsupported", "error", err)
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		case payload, ok := <-events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
