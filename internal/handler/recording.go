package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/listen-api/internal/auth"
	"github.com/sakif/listen-api/internal/service"
)

// RecordingHandler serves /recordings, including presigned audio uploads.
type RecordingHandler struct {
	service *service.RecordingService
	uploads *service.UploadService
	logger  *slog.Logger
}

func NewRecordingHandler(svc *service.RecordingService, uploads *service.UploadService, logger *slog.Logger) *RecordingHandler {
	return &RecordingHandler{service: svc, uploads: uploads, logger: logger}
}

// HandleList handles GET /recordings?excerpt={id} and ?musician={id}.
func (h *RecordingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	excerpt, err := queryID(r, "excerpt")
	if err != nil {
		writeError(w, err)
		return
	}
	musician, err := queryID(r, "musician")
	if err != nil {
		writeError(w, err)
		return
	}

	recordings, err := h.service.List(r.Context(), auth.MusicianIDFromContext(r.Context()), service.RecordingFilter{
		Excerpt:  excerpt,
		Musician: musician,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordings)
}

func (h *RecordingHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	recording, err := h.service.Get(r.Context(), auth.MusicianIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recording)
}

func (h *RecordingHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.RecordingInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	recording, err := h.service.Create(r.Context(), auth.MusicianIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recording)
}

func (h *RecordingHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in service.RecordingInput
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

func (h *RecordingHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

// HandleUploadURL handles POST /recordings/upload-url. The response's
// audio_url is what the client later sends as a recording's audio.
func (h *RecordingHandler) HandleUploadURL(w http.ResponseWriter, r *http.Request) {
	var in service.UploadInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	upload, err := h.uploads.Presign(r.Context(), auth.MusicianIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, upload)
}
