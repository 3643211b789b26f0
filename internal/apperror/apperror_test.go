package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// Table-driven: one struct per case, one assertion loop.
func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("musician", 7),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("label", "label is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Required wraps ErrValidation",
			err:       Required("excerpt"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("not following musician 3"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("authentication required"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "wrapped with fmt.Errorf still matches",
			err:       fmt.Errorf("creating recording: %w", NotFound("excerpt", 9)),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("excerpt", 1),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Forbidden does NOT match ErrUnauthorized",
			err:       Forbidden("not your profile"),
			target:    ErrUnauthorized,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and numeric id",
			err:         NotFound("recording", int64(42)),
			wantMessage: "recording not found with id 42",
		},
		{
			name:        "NotFound accepts string ids",
			err:         NotFound("account", "cellist"),
			wantMessage: "account not found with id cellist",
		},
		{
			name:        "Required names the field",
			err:         Required("created_on"),
			wantMessage: "created_on is required",
		},
		{
			name:        "Conflict uses the given message",
			err:         Conflict("username already taken"),
			wantMessage: "username already taken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("category", 1)
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := Required("practicer")
	if err.Field != "practicer" {
		t.Errorf("Field = %q, want %q", err.Field, "practicer")
	}
}
