package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/listen-api/internal/service"
)

// CategoryHandler serves /categories.
type CategoryHandler struct {
	service *service.CategoryService
	logger  *slog.Logger
}

func NewCategoryHandler(svc *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{service: svc, logger: logger}
}

func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	category, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	category, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in service.CategoryInput
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

func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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
