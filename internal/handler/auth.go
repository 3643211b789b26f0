package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/listen-api/internal/auth"
	"github.com/sakif/listen-api/internal/service"
)

// AuthHandler serves the public identity routes:
//
//	POST /register             → 201 {"token": "..."}
//	POST /login                → 200 {"valid": true, "token": "..."} or {"valid": false}
//	GET  /auth/github/login    → redirect to GitHub
//	GET  /auth/github/callback → 200 {"valid": true, "token": "..."} and a token cookie
//
// The GitHub routes are only mounted when github is non-nil.
type AuthHandler struct {
	service   *service.AuthService
	github    *auth.GitHubProvider
	cookieTTL time.Duration
	logger    *slog.Logger
}

func NewAuthHandler(
	svc *service.AuthService,
	github *auth.GitHubProvider,
	cookieTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		service:   svc,
		github:    github,
		cookieTTL: cookieTTL,
		logger:    logger,
	}
}

// TokenResponse is the body of a successful register.
type TokenResponse struct {
	Token string `json:"token"`
}

// LoginResponse keeps the original client contract: bad credentials are a
// 200 with valid=false rather than an error status.
type LoginResponse struct {
	Valid bool   `json:"valid"`
	Token string `json:"token,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.service.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TokenResponse{Token: token})
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	token, valid, err := h.service.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Valid: valid, Token: token})
}

// HandleGitHubLogin stores a random state in a short-lived cookie and sends
// the browser to GitHub. The callback must present the same state.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := auth.NewState()

	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	stateCookie, err := r.Cookie(auth.StateCookie)
	if err != nil || stateCookie.Value == "" || query.Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: invalid state")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid OAuth state"})
		return
	}

	// One-time use.
	http.SetCookie(w, &http.Cookie{Name: auth.StateCookie, Value: "", Path: "/", MaxAge: -1})

	if denied := query.Get("error"); denied != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", denied))
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "GitHub authorization was denied"})
		return
	}

	code := query.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "missing OAuth code"})
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "upstream_error", Message: "GitHub sign-in failed"})
		return
	}

	token, err := h.service.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, LoginResponse{Valid: true, Token: token})
}
