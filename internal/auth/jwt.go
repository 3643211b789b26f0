// Package auth issues and checks the credentials of the listen API: signed
// access tokens, bcrypt password hashes and GitHub sign-in.
//
// TOKEN FLOW:
// 1. A musician registers (POST /register) or logs in (POST /login), or
//    finishes the GitHub flow (/auth/github/callback).
// 2. The server answers with a signed JWT whose subject is the account id.
// 3. Clients send it back as "Authorization: Bearer <jwt>". The older
//    "Token <jwt>" scheme is accepted too.
// 4. The Authenticator middleware validates the token, resolves the account's
//    musician profile and stores both ids in the request context.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:  {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"42","iss":"listen-api","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "listen-api"

// DefaultTokenTTL applies when the configured TTL is zero.
const DefaultTokenTTL = 30 * 24 * time.Hour

// TokenService signs and verifies access tokens with a shared HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. Secrets shorter than 16 characters
// are rejected; a zero ttl means DefaultTokenTTL.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("auth: token TTL must not be negative, got %s", ttl)
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL reports how long issued tokens stay valid.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate issues a token for accountID that expires after the service's TTL.
func (s *TokenService) Generate(accountID int64) (string, error) {
	return s.GenerateWithDuration(accountID, s.ttl)
}

// GenerateWithDuration issues a token with an explicit lifetime. Tests use a
// negative duration to get an already-expired token.
func (s *TokenService) GenerateWithDuration(accountID int64, d time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(accountID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, algorithm, issuer and expiry and returns the
// account id carried in the subject claim.
//
// jwt.WithValidMethods pins HS256, so a token claiming "alg":"none" or an
// asymmetric algorithm is rejected before the key is ever used.
func (s *TokenService) Validate(tokenStr string) (int64, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, errors.New("auth: token expired")
		}
		return 0, fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return 0, errors.New("auth: invalid token claims")
	}

	accountID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || accountID <= 0 {
		return 0, fmt.Errorf("auth: token subject %q is not an account id", c.Subject)
	}
	return accountID, nil
}
