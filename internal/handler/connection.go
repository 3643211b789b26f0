package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/listen-api/internal/auth"
	"github.com/sakif/listen-api/internal/service"
)

// ConnectionHandler serves /connections, the follow graph between musicians.
type ConnectionHandler struct {
	service *service.ConnectionService
	logger  *slog.Logger
}

func NewConnectionHandler(svc *service.ConnectionService, logger *slog.Logger) *ConnectionHandler {
	return &ConnectionHandler{service: svc, logger: logger}
}

func (h *ConnectionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	conns, err := h.service.List(r.Context(), auth.MusicianIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

func (h *ConnectionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.ConnectionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.service.Create(r.Context(), auth.MusicianIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

// HandleUnfollow handles PUT /connections/{id}/unfollow where {id} is the
// practicer the caller stops following.
func (h *ConnectionHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	practicer, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Unfollow(r.Context(), auth.MusicianIDFromContext(r.Context()), practicer); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
