package service

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sakif/listen-api/internal/apperror"
	"github.com/sakif/listen-api/internal/storage"
)

// AudioExtensions are the file types accepted for recording uploads.
var AudioExtensions = []string{".aac", ".flac", ".m4a", ".mp3", ".ogg", ".wav", ".webm"}

// Presigner issues upload slots. *storage.AudioStore implements it.
type Presigner interface {
	PresignUpload(ctx context.Context, ext string) (*storage.Upload, error)
}

// UploadInput is the body of POST /recordings/upload-url.
type UploadInput struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type UploadService struct {
	store  Presigner
	logger *slog.Logger
}

// NewUploadService accepts a nil store: every request then fails with an
// Unavailable error.
func NewUploadService(store Presigner, logger *slog.Logger) *UploadService {
	return &UploadService{store: store, logger: logger}
}

// Enabled reports whether object storage is configured.
func (s *UploadService) Enabled() bool {
	return s.store != nil
}

func (s *UploadService) Presign(ctx context.Context, caller int64, in UploadInput) (*storage.Upload, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if !s.Enabled() {
		return nil, apperror.Unavailable("audio uploads are not configured")
	}

	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(in.Filename)))
	if ext == "" {
		return nil, apperror.Required("filename")
	}
	if !slices.Contains(AudioExtensions, ext) {
		return nil, apperror.ValidationFailed("filename",
			fmt.Sprintf("unsupported audio type %q, expected one of %s", ext, strings.Join(AudioExtensions, ", ")))
	}

	if in.ContentType == "" {
		return nil, apperror.Required("content_type")
	}
	mediaType, _, err := mime.ParseMediaType(in.ContentType)
	if err != nil || !strings.HasPrefix(mediaType, "audio/") {
		return nil, apperror.ValidationFailed("content_type", "content_type must be an audio/* media type")
	}

	upload, err := s.store.PresignUpload(ctx, ext)
	if err != nil {
		logUnexpected(ctx, s.logger, "failed to presign upload", err, slog.String("ext", ext))
		return nil, fmt.Errorf("presigning upload: %w", err)
	}

	s.logger.Info("upload presigned",
		slog.Int64("musician", caller),
		slog.String("audio_url", upload.AudioURL),
	)
	return upload, nil
}
