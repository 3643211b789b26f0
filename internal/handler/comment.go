package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/listen-api/internal/auth"
	"github.com/sakif/listen-api/internal/service"
)

// CommentHandler serves /comments. The author of a new or edited comment
// is always the authenticated musician.
type CommentHandler struct {
	service *service.CommentService
	logger  *slog.Logger
}

func NewCommentHandler(svc *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{service: svc, logger: logger}
}

// HandleList handles GET /comments?recording={id}.
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	recording, err := queryID(r, "recording")
	if err != nil {
		writeError(w, err)
		return
	}

	comments, err := h.service.List(r.Context(), auth.MusicianIDFromContext(r.Context()), recording)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *CommentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.service.Get(r.Context(), auth.MusicianIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.service.Create(r.Context(), auth.MusicianIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in service.CommentInput
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

func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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
