package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/listen-api/internal/auth"
	"github.com/sakif/listen-api/internal/service"
)

// GoalHandler serves /goals.
type GoalHandler struct {
	service *service.GoalService
	logger  *slog.Logger
}

func NewGoalHandler(svc *service.GoalService, logger *slog.Logger) *GoalHandler {
	return &GoalHandler{service: svc, logger: logger}
}

// HandleList handles GET /goals?recording={id}.
func (h *GoalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	recording, err := queryID(r, "recording")
	if err != nil {
		writeError(w, err)
		return
	}

	goals, err := h.service.List(r.Context(), auth.MusicianIDFromContext(r.Context()), recording)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	goal, err := h.service.Get(r.Context(), auth.MusicianIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.GoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	goal, err := h.service.Create(r.Context(), auth.MusicianIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in service.GoalInput
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

func (h *GoalHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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
