package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/listen-api/internal/apperror"
	"github.com/sakif/listen-api/internal/model"
	"github.com/sakif/listen-api/internal/repository"
)

// RecordingInput is the body of POST and PUT /recordings. Audio is an opaque
// URL, typically the audio_url returned by POST /recordings/upload-url.
type RecordingInput struct {
	Audio   *string     `json:"audio"`
	Excerpt *int64      `json:"excerpt"`
	Date    *model.Date `json:"date"`
	Label   *string     `json:"label"`
}

func (in RecordingInput) toModel(id int64) (*model.Recording, error) {
	audio, err := requireText("audio", in.Audio)
	if err != nil {
		return nil, err
	}
	excerpt, err := requireRef("excerpt", in.Excerpt)
	if err != nil {
		return nil, err
	}
	date, err := requireDate("date", in.Date)
	if err != nil {
		return nil, err
	}
	label, err := requireText("label", in.Label)
	if err != nil {
		return nil, err
	}
	return &model.Recording{ID: id, Audio: audio, ExcerptID: excerpt, Date: date, Label: label}, nil
}

// RecordingFilter selects recordings by excerpt or by the musician owning
// the excerpt. At most one may be set.
type RecordingFilter struct {
	Excerpt  *int64
	Musician *int64
}

type RecordingService struct {
	repo   repository.RecordingRepository
	views  ViewSource
	logger *slog.Logger
}

func NewRecordingService(repo repository.RecordingRepository, views ViewSource, logger *slog.Logger) *RecordingService {
	return &RecordingService{repo: repo, views: views, logger: logger}
}

// Create persists a recording of in.Excerpt. The excerpt lookup and the
// INSERT share one transaction: an unknown excerpt writes nothing.
func (s *RecordingService) Create(ctx context.Context, caller int64, in RecordingInput) (*RecordingView, error) {
	recording, err := in.toModel(0)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateRecording(ctx, recording); err != nil {
		logUnexpected(ctx, s.logger, "failed to create recording", err)
		return nil, fmt.Errorf("creating recording: %w", err)
	}

	s.logger.Info("recording created",
		slog.Int64("id", recording.ID),
		slog.Int64("excerpt", *recording.ExcerptID),
	)
	return newAssembler(s.views, caller).recordingView(ctx, recording)
}

func (s *RecordingService) Get(ctx context.Context, caller, id int64) (*RecordingView, error) {
	recording, err := s.repo.GetRecording(ctx, id)
	if err != nil {
		return nil, err
	}
	return newAssembler(s.views, caller).recordingView(ctx, recording)
}

func (s *RecordingService) List(ctx context.Context, caller int64, filter RecordingFilter) ([]RecordingView, error) {
	if filter.Excerpt != nil && filter.Musician != nil {
		return nil, apperror.ValidationFailed("excerpt", "filter by excerpt or by musician, not both")
	}

	recordings, err := s.repo.ListRecordings(ctx, repository.RecordingFilter{
		ExcerptID:  filter.Excerpt,
		MusicianID: filter.Musician,
	})
	if err != nil {
		logUnexpected(ctx, s.logger, "failed to list recordings", err)
		return nil, fmt.Errorf("listing recordings: %w", err)
	}

	a := newAssembler(s.views, caller)
	views := make([]RecordingView, 0, len(recordings))
	for i := range recordings {
		v, err := a.recordingView(ctx, &recordings[i])
		if err != nil {
			return nil, fmt.Errorf("building recording view: %w", err)
		}
		views = append(views, *v)
	}
	return views, nil
}

func (s *RecordingService) Update(ctx context.Context, id int64, in RecordingInput) error {
	recording, err := in.toModel(id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateRecording(ctx, recording); err != nil {
		logUnexpected(ctx, s.logger, "failed to update recording", err, slog.Int64("id", id))
		return fmt.Errorf("updating recording: %w", err)
	}
	return nil
}

// Delete removes the recording; its goals and comments remain with no
// recording.
func (s *RecordingService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRecording(ctx, id); err != nil {
		logUnexpected(ctx, s.logger, "failed to delete recording", err, slog.Int64("id", id))
		return fmt.Errorf("deleting recording: %w", err)
	}
	s.logger.Info("recording deleted", slog.Int64("id", id))
	return nil
}
