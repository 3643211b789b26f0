package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/listen-api/internal/config"
	"github.com/sakif/listen-api/internal/model"
	"github.com/sakif/listen-api/internal/service"
)

// =========================================================================
// HELPERS
// =========================================================================

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	cfg := config.Defaults()
	cfg.Database.Path = ":memory:"
	cfg.Auth.JWTSecret = "server-test-secret-0123456789"
	cfg.Auth.RateLimit = 1000
	cfg.Auth.RateBurst = 1000
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts
}

// do sends a JSON request and returns the status and raw body.
func do(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), "body: %s", raw)
	return v
}

// register creates a user and returns its token and musician id.
func register(t *testing.T, ts *httptest.Server, username string) (string, int64) {
	t.Helper()

	status, raw := do(t, ts, http.MethodPost, "/register", "", map[string]string{
		"username": username,
		"password": "practice-every-day",
		"bio":      username + " plays the viola",
	})
	require.Equal(t, http.StatusCreated, status, "register: %s", raw)
	token := decode[map[string]string](t, raw)["token"]
	require.NotEmpty(t, token)

	status, raw = do(t, ts, http.MethodGet, "/musicians", token, nil)
	require.Equal(t, http.StatusOK, status)
	for _, m := range decode[[]service.MusicianView](t, raw) {
		if m.IsCurrentUser {
			return token, m.ID
		}
	}
	t.Fatalf("no musician marked is_current_user for %s", username)
	return "", 0
}

func createExcerpt(t *testing.T, ts *httptest.Server, token string, owner int64, name string) service.ExcerptView {
	t.Helper()
	status, raw := do(t, ts, http.MethodPost, "/excerpts", token, map[string]any{"name": name, "musician": owner})
	require.Equal(t, http.StatusCreated, status, "create excerpt: %s", raw)
	return decode[service.ExcerptView](t, raw)
}

// =========================================================================
// CONNECTIONS
// =========================================================================

func TestFollowThenUnfollow(t *testing.T) {
	ts := newTestServer(t, nil)
	_, practicer := register(t, ts, "practicer")
	followerToken, follower := register(t, ts, "follower")

	status, raw := do(t, ts, http.MethodPost, "/connections", followerToken, map[string]any{
		"practicer": practicer,
		"follower":  follower,
	})
	require.Equal(t, http.StatusCreated, status, "%s", raw)
	created := decode[service.ConnectionView](t, raw)
	assert.Nil(t, created.EndedOn)
	assert.True(t, created.Follower.IsCurrentUser)

	status, raw = do(t, ts, http.MethodPut, fmt.Sprintf("/connections/%d/unfollow", practicer), followerToken, nil)
	require.Equal(t, http.StatusNoContent, status, "%s", raw)
	assert.Empty(t, raw)

	status, raw = do(t, ts, http.MethodGet, "/connections", "", nil)
	require.Equal(t, http.StatusOK, status)
	conns := decode[[]service.ConnectionView](t, raw)
	require.Len(t, conns, 1)
	require.NotNil(t, conns[0].EndedOn)
	assert.Equal(t, model.Today(), *conns[0].EndedOn)

	// Nothing left to end: conflict, and the server keeps serving.
	status, raw = do(t, ts, http.MethodPut, fmt.Sprintf("/connections/%d/unfollow", practicer), followerToken, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", decode[map[string]string](t, raw)["error"])

	status, _ = do(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestUnfollow_UnknownPracticer(t *testing.T) {
	ts := newTestServer(t, nil)
	token, _ := register(t, ts, "lonely")

	status, _ := do(t, ts, http.MethodPut, "/connections/999/unfollow", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateConnection_UnknownMusician(t *testing.T) {
	ts := newTestServer(t, nil)
	token, me := register(t, ts, "me")

	status, _ := do(t, ts, http.MethodPost, "/connections", token, map[string]any{"practicer": 404, "follower": me})
	assert.Equal(t, http.StatusNotFound, status)

	_, raw := do(t, ts, http.MethodGet, "/connections", "", nil)
	assert.JSONEq(t, `[]`, string(raw))
}

// =========================================================================
// PRACTICE CONTENT
// =========================================================================

func TestRecording_UnknownExcerptIs404AndNotPersisted(t *testing.T) {
	ts := newTestServer(t, nil)
	token, _ := register(t, ts, "oboist")

	status, raw := do(t, ts, http.MethodPost, "/recordings", token, map[string]any{
		"audio":   "https://cdn.example.com/take.mp3",
		"excerpt": 12345,
		"date":    "2024-02-02",
		"label":   "take 1",
	})
	require.Equal(t, http.StatusNotFound, status, "%s", raw)
	assert.Equal(t, "not_found", decode[map[string]string](t, raw)["error"])

	status, raw = do(t, ts, http.MethodGet, "/recordings", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestExcerpts_FilterByMusician(t *testing.T) {
	ts := newTestServer(t, nil)
	aToken, a := register(t, ts, "a")
	bToken, b := register(t, ts, "b")
	createExcerpt(t, ts, aToken, a, "Bach partita")
	createExcerpt(t, ts, aToken, a, "Ysaye 3")
	createExcerpt(t, ts, bToken, b, "Bruch")

	status, raw := do(t, ts, http.MethodGet, fmt.Sprintf("/excerpts?musician=%d", a), "", nil)
	require.Equal(t, http.StatusOK, status)
	excerpts := decode[[]service.ExcerptView](t, raw)
	require.Len(t, excerpts, 2)
	for _, e := range excerpts {
		assert.Equal(t, a, e.Musician.ID)
		assert.False(t, e.Musician.IsCurrentUser, "anonymous callers never see is_current_user")
	}

	status, _ = do(t, ts, http.MethodGet, "/excerpts?musician=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestExcerpt_RoundTripAndLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	token, me := register(t, ts, "cellist")

	created := createExcerpt(t, ts, token, me, "Dvorak concerto")

	status, raw := do(t, ts, http.MethodGet, fmt.Sprintf("/excerpts/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created, decode[service.ExcerptView](t, raw))

	status, _ = do(t, ts, http.MethodPut, fmt.Sprintf("/excerpts/%d", created.ID), token,
		map[string]any{"name": "Dvorak concerto mvt 2", "done": true, "musician": me})
	require.Equal(t, http.StatusNoContent, status)

	_, raw = do(t, ts, http.MethodGet, fmt.Sprintf("/excerpts/%d", created.ID), "", nil)
	updated := decode[service.ExcerptView](t, raw)
	assert.Equal(t, "Dvorak concerto mvt 2", updated.Name)
	assert.True(t, updated.Done)

	status, _ = do(t, ts, http.MethodDelete, fmt.Sprintf("/excerpts/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = do(t, ts, http.MethodDelete, fmt.Sprintf("/excerpts/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRecordings_BothFiltersRejected(t *testing.T) {
	ts := newTestServer(t, nil)

	status, _ := do(t, ts, http.MethodGet, "/recordings?excerpt=1&musician=1", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGoalsAndComments(t *testing.T) {
	ts := newTestServer(t, nil)
	token, me := register(t, ts, "hornist")
	excerpt := createExcerpt(t, ts, token, me, "Till Eulenspiegel")

	status, raw := do(t, ts, http.MethodPost, "/recordings", token, map[string]any{
		"audio": "https://cdn.example.com/till.mp3", "excerpt": excerpt.ID, "date": "2024-04-01", "label": "take 1",
	})
	require.Equal(t, http.StatusCreated, status, "%s", raw)
	recording := decode[service.RecordingView](t, raw)
	assert.Equal(t, "Till Eulenspiegel", recording.Excerpt.Name)

	status, raw = do(t, ts, http.MethodPost, "/categories", token, map[string]string{"label": "rhythm"})
	require.Equal(t, http.StatusCreated, status)
	category := decode[service.CategoryView](t, raw)

	status, raw = do(t, ts, http.MethodPost, "/goals", token, map[string]any{
		"recording": recording.ID, "category": category.ID, "goal": "even sixteenths", "action": "metronome at 60",
	})
	require.Equal(t, http.StatusCreated, status, "%s", raw)

	status, raw = do(t, ts, http.MethodPost, "/comments", token, map[string]any{
		"recording": recording.ID, "content": "lovely phrasing",
	})
	require.Equal(t, http.StatusCreated, status, "%s", raw)
	comment := decode[service.CommentView](t, raw)
	assert.True(t, comment.CreatedByCurrentUser)
	assert.Equal(t, me, comment.Author.ID)

	_, raw = do(t, ts, http.MethodGet, fmt.Sprintf("/comments?recording=%d", recording.ID), "", nil)
	comments := decode[[]service.CommentView](t, raw)
	require.Len(t, comments, 1)
	assert.False(t, comments[0].CreatedByCurrentUser)

	// Deleting the recording keeps dependents with a null reference.
	status, _ = do(t, ts, http.MethodDelete, fmt.Sprintf("/recordings/%d", recording.ID), token, nil)
	require.Equal(t, http.StatusNoContent, status)

	_, raw = do(t, ts, http.MethodGet, "/goals", "", nil)
	goals := decode[[]map[string]any](t, raw)
	require.Len(t, goals, 1)
	assert.Nil(t, goals[0]["recording"])
	assert.NotNil(t, goals[0]["category"])
}

// =========================================================================
// AUTH
// =========================================================================

func TestWritesRequireToken(t *testing.T) {
	ts := newTestServer(t, nil)

	status, raw := do(t, ts, http.MethodPost, "/categories", "", map[string]string{"label": "tone"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", decode[map[string]string](t, raw)["error"])

	status, _ = do(t, ts, http.MethodPost, "/categories", "not-a-jwt", map[string]string{"label": "tone"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, ts, http.MethodGet, "/categories", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, nil)
	register(t, ts, "bassoonist")

	status, raw := do(t, ts, http.MethodPost, "/login", "", map[string]string{"username": "bassoonist", "password": "practice-every-day"})
	require.Equal(t, http.StatusOK, status)
	ok := decode[map[string]any](t, raw)
	assert.Equal(t, true, ok["valid"])
	assert.NotEmpty(t, ok["token"])

	status, raw = do(t, ts, http.MethodPost, "/login", "", map[string]string{"username": "bassoonist", "password": "wrong"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"valid": false}`, string(raw))

	status, _ = do(t, ts, http.MethodPost, "/login", "", `{"username":`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, ts, http.MethodPost, "/register", "", map[string]string{"username": "bassoonist", "password": "x"})
	assert.Equal(t, http.StatusConflict, status)
}

func TestMusicians_OwnProfileOnly(t *testing.T) {
	ts := newTestServer(t, nil)
	meToken, me := register(t, ts, "me")
	_, other := register(t, ts, "other")

	status, _ := do(t, ts, http.MethodPut, fmt.Sprintf("/musicians/%d", other), meToken, map[string]string{"username": "hijack"})
	assert.Equal(t, http.StatusForbidden, status)

	// A partial body is rejected and the stored profile is left alone.
	status, _ = do(t, ts, http.MethodPut, fmt.Sprintf("/musicians/%d", me), meToken, map[string]string{"username": "me2"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, raw := do(t, ts, http.MethodGet, fmt.Sprintf("/musicians/%d", me), meToken, nil)
	require.Equal(t, http.StatusOK, status)
	profile := decode[service.MusicianView](t, raw)
	assert.Equal(t, "me", profile.User.Username)
	assert.Equal(t, "me plays the viola", profile.Bio)

	status, _ = do(t, ts, http.MethodPut, fmt.Sprintf("/musicians/%d", me), meToken, map[string]string{
		"username": "me2", "email": "", "first_name": "", "last_name": "", "bio": "new bio",
	})
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = do(t, ts, http.MethodDelete, fmt.Sprintf("/musicians/%d", me), meToken, nil)
	assert.Equal(t, http.StatusNoContent, status)

	// The token now points at a deleted account.
	status, _ = do(t, ts, http.MethodPost, "/categories", meToken, map[string]string{"label": "x"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginRateLimited(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Auth.RateLimit = 0.001
		cfg.Auth.RateBurst = 2
	})

	body := map[string]string{"username": "nobody", "password": "guess"}
	for range 2 {
		status, _ := do(t, ts, http.MethodPost, "/login", "", body)
		require.Equal(t, http.StatusOK, status)
	}
	status, _ := do(t, ts, http.MethodPost, "/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

// =========================================================================
// UPLOADS AND HEALTH
// =========================================================================

func TestUploadURL_StorageDisabled(t *testing.T) {
	ts := newTestServer(t, nil)
	token, _ := register(t, ts, "drummer")

	status, raw := do(t, ts, http.MethodPost, "/recordings/upload-url", token,
		map[string]string{"filename": "take.mp3", "content_type": "audio/mpeg"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unavailable", decode[map[string]string](t, raw)["error"])
}

func TestUploadURL_StorageEnabled(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Storage.Endpoint = "minio.example.com:9000"
		cfg.Storage.Bucket = "audio"
		cfg.Storage.AccessKey = "access"
		cfg.Storage.SecretKey = "secret-secret"
		cfg.Storage.PublicURL = "https://cdn.example.com/audio"
	})
	token, _ := register(t, ts, "harpist")

	status, raw := do(t, ts, http.MethodPost, "/recordings/upload-url", token,
		map[string]string{"filename": "take.wav", "content_type": "audio/wav"})
	require.Equal(t, http.StatusOK, status, "%s", raw)

	upload := decode[map[string]string](t, raw)
	assert.Contains(t, upload["upload_url"], "X-Amz-Signature")
	assert.Regexp(t, `^https://cdn\.example\.com/audio/recordings/[0-9a-f-]+\.wav$`, upload["audio_url"])
}

func TestHeadServedByGetRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	status, raw := do(t, ts, http.MethodHead, "/excerpts", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, raw)

	status, _ = do(t, ts, http.MethodHead, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)

	status, raw := do(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}
