package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/listen-api/internal/auth"
	"github.com/sakif/listen-api/internal/service"
)

// ExcerptHandler serves /excerpts.
type ExcerptHandler struct {
	service *service.ExcerptService
	logger  *slog.Logger
}

func NewExcerptHandler(svc *service.ExcerptService, logger *slog.Logger) *ExcerptHandler {
	return &ExcerptHandler{service: svc, logger: logger}
}

// HandleList handles GET /excerpts?musician={id}.
func (h *ExcerptHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	musician, err := queryID(r, "musician")
	if err != nil {
		writeError(w, err)
		return
	}

	excerpts, err := h.service.List(r.Context(), auth.MusicianIDFromContext(r.Context()), musician)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, excerpts)
}

// HandleGet handles GET /excerpts/{id}.
func (h *ExcerptHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	excerpt, err := h.service.Get(r.Context(), auth.MusicianIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, excerpt)
}

// HandleCreate handles POST /excerpts.
func (h *ExcerptHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.ExcerptInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	excerpt, err := h.service.Create(r.Context(), auth.MusicianIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, excerpt)
}

// HandleUpdate handles PUT /excerpts/{id}.
func (h *ExcerptHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in service.ExcerptInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Update(r.Context(), id, in); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /excerpts/{id}.
func (h *ExcerptHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
