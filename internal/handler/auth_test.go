package handler_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/listen-api/internal/auth"
	"github.com/sakif/listen-api/internal/handler"
	"github.com/sakif/listen-api/internal/repository/sqlite"
	"github.com/sakif/listen-api/internal/service"
)

// fakeGitHub answers the OAuth token exchange and the /user API.
func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_test", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(auth.GitHubUser{ID: 31, Login: "clarinettist", Name: "Sabine Meyer"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAuthRouter(t *testing.T) (http.Handler, *auth.TokenService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	gh := fakeGitHub(t)
	provider := auth.NewGitHubProvider("id", "secret", "http://localhost/auth/github/callback",
		auth.WithGitHubEndpoints(gh.URL+"/login/oauth/authorize", gh.URL+"/login/oauth/access_token", gh.URL))

	svc := service.NewAuthService(db, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), logger)
	h := handler.NewAuthHandler(svc, provider, tokens.TTL(), logger)

	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Get("/auth/github/login", h.HandleGitHubLogin)
	r.Get("/auth/github/callback", h.HandleGitHubCallback)
	return r, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	router, tokens := newAuthRouter(t)

	t.Run("register", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"username":"flautist","password":"syrinx"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		var body handler.TokenResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		_, err := tokens.Validate(body.Token)
		assert.NoError(t, err)
	})

	t.Run("register without password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"username":"nopass"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"flautist","password":"syrinx"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var body handler.LoginResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.True(t, body.Valid)
		assert.NotEmpty(t, body.Token)
	})

	t.Run("login with wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"flautist","password":"nope"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"valid":false}`, rr.Body.String())
	})
}

func TestGitHubLogin_RedirectsWithState(t *testing.T) {
	router, _ := newAuthRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	location, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)

	var state string
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.StateCookie {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.Equal(t, state, location.Query().Get("state"))
}

func TestGitHubCallback(t *testing.T) {
	router, tokens := newAuthRouter(t)

	callback := func(state, cookie, code string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?state="+state+"&code="+code, nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: auth.StateCookie, Value: cookie})
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	t.Run("state mismatch", func(t *testing.T) {
		rr := callback("abc", "xyz", "good-code")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing state cookie", func(t *testing.T) {
		rr := callback("abc", "", "good-code")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing code", func(t *testing.T) {
		rr := callback("abc", "abc", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("success issues token and cookie", func(t *testing.T) {
		rr := callback("abc", "abc", "good-code")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var body handler.LoginResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.True(t, body.Valid)
		_, err := tokens.Validate(body.Token)
		require.NoError(t, err)

		var tokenCookie *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == auth.TokenCookie {
				tokenCookie = c
			}
		}
		require.NotNil(t, tokenCookie)
		assert.Equal(t, body.Token, tokenCookie.Value)
		assert.True(t, tokenCookie.HttpOnly)
	})
}
