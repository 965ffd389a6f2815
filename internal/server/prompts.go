package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nhle/replydeck/internal/model"
	"github.com/nhle/replydeck/internal/store"
)

func (s *Server) listPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := s.store.ListPrompts(r.Context())
	if err != nil {
		slog.Error("listing prompts", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch prompts")
		return
	}
	writeJSON(w, http.StatusOK, prompts)
}

func (s *Server) createPrompt(w http.ResponseWriter, r *http.Request) {
	var p model.PromptTemplate
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := s.store.CreatePrompt(r.Context(), p)
	if err != nil {
		slog.Error("creating prompt", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save prompt")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) updatePrompt(w http.ResponseWriter, r *http.Request) {
	var patch model.PromptPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := s.store.UpdatePrompt(r.Context(), r.PathValue("id"), patch)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		slog.Error("updating prompt", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update prompt")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deletePrompt(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePrompt(r.Context(), r.PathValue("id")); err != nil {
		slog.Error("deleting prompt", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete prompt")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
