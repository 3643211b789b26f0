package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/listen-api/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{"validation", apperror.Required("label"), http.StatusBadRequest, "validation_error", "label is required"},
		{"unauthorized", apperror.Unauthorized("log in"), http.StatusUnauthorized, "unauthorized", "log in"},
		{"forbidden", apperror.Forbidden("not yours"), http.StatusForbidden, "forbidden", "not yours"},
		{"not found", apperror.NotFound("excerpt", 3), http.StatusNotFound, "not_found", "excerpt not found with id 3"},
		{"conflict", apperror.Conflict("not following musician 2"), http.StatusConflict, "conflict", "not following musician 2"},
		{"unavailable", apperror.Unavailable("no storage"), http.StatusServiceUnavailable, "unavailable", "no storage"},
		{"wrapped", fmt.Errorf("creating goal: %w", apperror.NotFound("category", 1)), http.StatusNotFound, "not_found", "category not found with id 1"},
		{"unknown error hides details", errors.New("sqlite: disk I/O error at /var/lib/x.db"), http.StatusInternalServerError, "internal_error", "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.wantType, body.Error)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid object", `{"label":"tone"}`, false},
		{"unknown fields ignored", `{"label":"tone","extra":1}`, false},
		{"empty body", ``, true},
		{"truncated", `{"label":`, true},
		{"wrong type", `{"label":5}`, true},
		{"two objects", `{"label":"a"}{"label":"b"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(tt.body))
			var dst struct {
				Label string `json:"label"`
			}

			err := decodeJSON(httptest.NewRecorder(), req, &dst)

			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "tone", dst.Label)
		})
	}
}

func TestQueryID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/excerpts?musician=7&bad=x", nil)

	id, err := queryID(req, "musician")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)

	id, err = queryID(req, "recording")
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = queryID(req, "bad")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
