package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/listen-api/internal/auth"
	"github.com/sakif/listen-api/internal/service"
)

// MusicianHandler serves /musicians. There is no POST: profiles are created
// by /register and GitHub sign-in.
type MusicianHandler struct {
	service *service.MusicianService
	logger  *slog.Logger
}

func NewMusicianHandler(svc *service.MusicianService, logger *slog.Logger) *MusicianHandler {
	return &MusicianHandler{service: svc, logger: logger}
}

func (h *MusicianHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	musicians, err := h.service.List(r.Context(), auth.MusicianIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, musicians)
}

func (h *MusicianHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	musician, err := h.service.Get(r.Context(), auth.MusicianIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, musician)
}

func (h *MusicianHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in service.MusicianInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Update(r.Context(), auth.MusicianIDFromContext(r.Context()), id, in); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MusicianHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), auth.MusicianIDFromContext(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
