package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := chimiddleware.RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/excerpts/9", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/excerpts/9", entry["path"])
	assert.Equal(t, float64(404), entry["status"])
	assert.Equal(t, float64(4), entry["bytes"])
	assert.Equal(t, "203.0.113.7", entry["remote_ip"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("198.51.100.1"))
	assert.Equal(t, http.StatusOK, do("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("198.51.100.1"))

	// Other clients have their own bucket.
	assert.Equal(t, http.StatusOK, do("198.51.100.2"))

	// One token refills per second.
	clock = clock.Add(time.Second)
	assert.Equal(t, http.StatusOK, do("198.51.100.1"))
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.allow("a")
	clock = clock.Add(idleAfter + time.Second)
	rl.allow("b")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "a")
	assert.Contains(t, rl.clients, "b")
}
