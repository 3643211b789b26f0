// Package service holds the business rules of the listen API.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates input, resolves the caller, builds views
//	Repository      → reads and writes SQLite
//
// Services accept repository interfaces and return view structs ready to be
// encoded. Errors are apperror values so handlers can map them to status
// codes without knowing where they came from.
//
// THE CALLER:
// Every method that depends on who is asking takes caller, the musician id
// of the authenticated user, or 0 for an anonymous request. The per-request
// flags (is_current_user, created_by_current_user) are derived from it while
// building views and never stored.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/listen-api/internal/apperror"
	"github.com/sakif/listen-api/internal/model"
)

// Anonymous is the caller id of a request without a valid token.
const Anonymous int64 = 0

// requireCaller rejects anonymous callers for operations that act as the caller.
func requireCaller(caller int64) error {
	if caller == Anonymous {
		return apperror.Unauthorized("you must be logged in")
	}
	return nil
}

// requireText returns the trimmed value of a required string field.
func requireText(field string, v *string) (string, error) {
	if v == nil {
		return "", apperror.Required(field)
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return "", apperror.Required(field)
	}
	return s, nil
}

// requirePresent is requireText for fields that must be sent but may be empty.
func requirePresent(field string, v *string) (string, error) {
	if v == nil {
		return "", apperror.Required(field)
	}
	return strings.TrimSpace(*v), nil
}

// requireRef returns a copy of a required foreign key.
func requireRef(field string, id *int64) (*int64, error) {
	if id == nil {
		return nil, apperror.Required(field)
	}
	if *id <= 0 {
		return nil, apperror.ValidationFailed(field, field+" must be a positive id")
	}
	v := *id
	return &v, nil
}

// requireDate returns a required date field.
func requireDate(field string, d *model.Date) (model.Date, error) {
	if d == nil || d.IsZero() {
		return model.Date{}, apperror.Required(field)
	}
	return *d, nil
}

// dateOrToday defaults a missing date to today.
func dateOrToday(d *model.Date) model.Date {
	if d == nil || d.IsZero() {
		return model.Today()
	}
	return *d
}

// logUnexpected logs err at Error level unless it is an expected domain
// error (not found, validation, ...), which the handler reports to the client.
func logUnexpected(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return
	}
	attrs = append(attrs, slog.String("error", err.Error()))
	logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}
