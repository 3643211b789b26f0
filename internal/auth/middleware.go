package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sakif/listen-api/internal/apperror"
)

// contextKey is unexported so no other package can read or overwrite the
// identity stored by this middleware.
type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller: the account the token was issued to
// and that account's musician profile.
type Identity struct {
	AccountID  int64
	MusicianID int64
}

// MusicianResolver maps an account to its musician profile.
// It returns an apperror.ErrNotFound error when the account no longer has one.
type MusicianResolver interface {
	MusicianIDForAccount(ctx context.Context, accountID int64) (int64, error)
}

// Authenticator turns a bearer token into an Identity on the request context.
type Authenticator struct {
	tokens    *TokenService
	musicians MusicianResolver
}

func NewAuthenticator(tokens *TokenService, musicians MusicianResolver) *Authenticator {
	return &Authenticator{tokens: tokens, musicians: musicians}
}

var (
	// errNoCredentials means the request carried no token at all.
	errNoCredentials = errors.New("auth: no credentials")
	// errResolve wraps profile lookups that failed for a reason other than
	// the profile being gone.
	errResolve = errors.New("auth: resolving musician")
)

// RequireAuth rejects the request with 401 unless it carries a valid token
// for an account that still has a musician profile.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.identify(r)
		if err != nil {
			a.reject(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// OptionalAuth attaches the identity when a valid token is present and lets
// the request through anonymously otherwise.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := a.identify(r); err == nil {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// ReadOnlyOrAuthenticated lets GET, HEAD and OPTIONS through anonymously and
// requires a valid token for every other method.
func (a *Authenticator) ReadOnlyOrAuthenticated(next http.Handler) http.Handler {
	required := a.RequireAuth(next)
	optional := a.OptionalAuth(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			optional.ServeHTTP(w, r)
		default:
			required.ServeHTTP(w, r)
		}
	})
}

// IdentityFromContext returns the caller's identity, or false for anonymous
// requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.AccountID != 0
}

// MusicianIDFromContext returns the caller's musician id, or 0 when the
// request is anonymous. No musician has id 0.
func MusicianIDFromContext(ctx context.Context) int64 {
	id, _ := IdentityFromContext(ctx)
	return id.MusicianID
}

// WithIdentity stores id on ctx. Handler tests use it to fake a logged-in
// caller without minting a token.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func (a *Authenticator) identify(r *http.Request) (Identity, error) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return Identity{}, errNoCredentials
	}

	accountID, err := a.tokens.Validate(raw)
	if err != nil {
		return Identity{}, err
	}

	musicianID, err := a.musicians.MusicianIDForAccount(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("%w: %w", errResolve, err)
	}
	return Identity{AccountID: accountID, MusicianID: musicianID}, nil
}

// reject writes the 401 body in the same shape as handler.writeError. A
// token for a deleted account is a 401; a failing database is a 500.
func (a *Authenticator) reject(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case errors.Is(err, errResolve):
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal_error","message":"an unexpected error occurred"}`))
	default:
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
	}
}

// tokenFromRequest reads "Authorization: Bearer <jwt>" or "Token <jwt>",
// falling back to the "token" cookie set by the GitHub callback.
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok {
			return ""
		}
		switch strings.ToLower(scheme) {
		case "bearer", "token":
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// TokenCookie is the HttpOnly cookie the GitHub callback sets for browsers.
const TokenCookie = "token"
