package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/listen-api/internal/apperror"
	"github.com/sakif/listen-api/internal/auth"
	"github.com/sakif/listen-api/internal/model"
	"github.com/sakif/listen-api/internal/repository"
)

// AuthService turns credentials into tokens:
//
//	AuthHandler (HTTP) → AuthService → AccountRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// Every token it issues carries the account id as its subject; the auth
// middleware resolves that to a musician id per request.
type AuthService struct {
	accounts  repository.AccountRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	accounts repository.AccountRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput is the body of POST /register. Only username and password
// are required.
type RegisterInput struct {
	Username  *string `json:"username"`
	Email     string  `json:"email"`
	Password  *string `json:"password"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Bio       string  `json:"bio"`
}

// Register creates an account with its musician profile and returns a token
// for it. A taken username is a Conflict error.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	username, err := requireText("username", in.Username)
	if err != nil {
		return "", err
	}
	if in.Password == nil || *in.Password == "" {
		return "", apperror.Required("password")
	}

	hash, err := s.passwords.Hash(*in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", apperror.ValidationFailed("password", err.Error())
		}
		return "", fmt.Errorf("service/auth: hashing password: %w", err)
	}

	account := &model.Account{
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
	}
	musician := &model.Musician{Bio: in.Bio}

	if err := s.accounts.CreateAccount(ctx, account, musician); err != nil {
		logUnexpected(ctx, s.logger, "failed to register account", err, slog.String("username", username))
		return "", fmt.Errorf("service/auth: registering %q: %w", username, err)
	}

	s.logger.Info("account registered",
		slog.Int64("account", account.ID),
		slog.Int64("musician", musician.ID),
		slog.String("username", username),
	)
	return s.issue(account.ID)
}

// Login checks a username and password. Wrong credentials are not an error:
// they return valid == false so the handler can answer 200 {valid: false}.
func (s *AuthService) Login(ctx context.Context, username, password string) (token string, valid bool, err error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", false, apperror.Required("username")
	}
	if password == "" {
		return "", false, apperror.Required("password")
	}

	account, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", false, nil
		}
		logUnexpected(ctx, s.logger, "failed to look up account", err, slog.String("username", username))
		return "", false, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	// Accounts created through GitHub have no password and cannot log in here.
	if account.PasswordHash == "" {
		return "", false, nil
	}
	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("login rejected", slog.String("username", username))
			return "", false, nil
		}
		return "", false, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	token, err = s.issue(account.ID)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// LoginOrRegisterGitHub handles the OAuth callback. The account linked to the
// GitHub user id is reused; on first sign-in a new account is created with
// the GitHub login as username, or "<login>-<github id>" if that name is
// already taken by a password account.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (string, error) {
	if ghUser == nil {
		return "", fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	account, err := s.accounts.GetAccountByGitHubID(ctx, ghUser.ID)
	switch {
	case err == nil:
		s.logger.Info("account authenticated via GitHub",
			slog.Int64("account", account.ID),
			slog.String("login", ghUser.Login),
		)
		return s.issue(account.ID)
	case !errors.Is(err, apperror.ErrNotFound):
		return "", fmt.Errorf("service/auth: looking up GitHub user %d: %w", ghUser.ID, err)
	}

	first, last, _ := strings.Cut(strings.TrimSpace(ghUser.Name), " ")
	githubID := ghUser.ID
	candidates := []string{ghUser.Login, ghUser.Login + "-" + strconv.FormatInt(ghUser.ID, 10)}

	for _, username := range candidates {
		account = &model.Account{
			Username:  username,
			Email:     ghUser.Email,
			FirstName: first,
			LastName:  last,
			GitHubID:  &githubID,
		}
		err = s.accounts.CreateAccount(ctx, account, &model.Musician{})
		if err == nil {
			s.logger.Info("account registered via GitHub",
				slog.Int64("account", account.ID),
				slog.String("username", username),
			)
			return s.issue(account.ID)
		}
		if !errors.Is(err, apperror.ErrConflict) {
			break
		}
		// A concurrent callback for the same GitHub user may have won the insert.
		if linked, lookupErr := s.accounts.GetAccountByGitHubID(ctx, githubID); lookupErr == nil {
			return s.issue(linked.ID)
		}
	}

	logUnexpected(ctx, s.logger, "failed to register GitHub account", err, slog.String("login", ghUser.Login))
	return "", fmt.Errorf("service/auth: registering GitHub user %d: %w", ghUser.ID, err)
}

func (s *AuthService) issue(accountID int64) (string, error) {
	token, err := s.tokens.Generate(accountID)
	if err != nil {
		return "", fmt.Errorf("service/auth: generating token for account %d: %w", accountID, err)
	}
	return token, nil
}
