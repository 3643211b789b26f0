// Package server wires the dependency graph and the HTTP router.
//
//	config → sqlite.DB → services → handlers → chi.Mux
//
// The server owns the database connection and closes it on shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/listen-api/internal/auth"
	"github.com/sakif/listen-api/internal/config"
	"github.com/sakif/listen-api/internal/handler"
	"github.com/sakif/listen-api/internal/middleware"
	"github.com/sakif/listen-api/internal/repository/sqlite"
	"github.com/sakif/listen-api/internal/service"
	"github.com/sakif/listen-api/internal/storage"
)

// shutdownTimeout bounds how long in-flight requests get after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqlite.DB
}

// New opens the database (running migrations) and builds the router.
// Close or Start must be called to release the database.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) setupRoutes() error {
	// Middleware runs in order on the way in: RequestID before Logger so
	// every log line carries the id.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.GetHead)

	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.TokenTTL.Duration)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	presigner, err := s.audioStore()
	if err != nil {
		return err
	}

	// === SERVICES ===
	// *sqlite.DB implements every repository interface and the ViewSource
	// the services use to build nested views.
	musicianService := service.NewMusicianService(s.db, s.logger)
	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)
	connectionService := service.NewConnectionService(s.db, s.db, s.logger)
	excerptService := service.NewExcerptService(s.db, s.db, s.logger)
	recordingService := service.NewRecordingService(s.db, s.db, s.logger)
	categoryService := service.NewCategoryService(s.db, s.logger)
	goalService := service.NewGoalService(s.db, s.db, s.logger)
	commentService := service.NewCommentService(s.db, s.db, s.logger)
	uploadService := service.NewUploadService(presigner, s.logger)

	// === HANDLERS ===
	var github *auth.GitHubProvider
	if s.config.GitHub.Enabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHub.ClientID,
			s.config.GitHub.ClientSecret,
			s.config.GitHub.CallbackURL,
		)
	}
	authHandler := handler.NewAuthHandler(authService, github, tokens.TTL(), s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)
	musicianHandler := handler.NewMusicianHandler(musicianService, s.logger)
	connectionHandler := handler.NewConnectionHandler(connectionService, s.logger)
	excerptHandler := handler.NewExcerptHandler(excerptService, s.logger)
	recordingHandler := handler.NewRecordingHandler(recordingService, uploadService, s.logger)
	categoryHandler := handler.NewCategoryHandler(categoryService, s.logger)
	goalHandler := handler.NewGoalHandler(goalService, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, s.logger)

	authenticator := auth.NewAuthenticator(tokens, musicianService)
	limiter := middleware.NewRateLimiter(s.config.Auth.RateLimit, s.config.Auth.RateBurst)

	// === PUBLIC ROUTES ===
	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
	})

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	} else {
		s.logger.Info("GitHub sign-in disabled: GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set")
	}

	// === RESOURCE ROUTES ===
	// Anyone may read; writes need a token.
	s.router.Group(func(r chi.Router) {
		r.Use(authenticator.ReadOnlyOrAuthenticated)

		r.Route("/musicians", func(r chi.Router) {
			r.Get("/", musicianHandler.HandleList)
			r.Get("/{id}", musicianHandler.HandleGet)
			r.Put("/{id}", musicianHandler.HandleUpdate)
			r.Delete("/{id}", musicianHandler.HandleDelete)
		})

		r.Route("/connections", func(r chi.Router) {
			r.Get("/", connectionHandler.HandleList)
			r.Post("/", connectionHandler.HandleCreate)
			r.Put("/{id}/unfollow", connectionHandler.HandleUnfollow)
		})

		r.Route("/excerpts", func(r chi.Router) {
			r.Get("/", excerptHandler.HandleList)
			r.Post("/", excerptHandler.HandleCreate)
			r.Get("/{id}", excerptHandler.HandleGet)
			r.Put("/{id}", excerptHandler.HandleUpdate)
			r.Delete("/{id}", excerptHandler.HandleDelete)
		})

		r.Route("/recordings", func(r chi.Router) {
			r.Get("/", recordingHandler.HandleList)
			r.Post("/", recordingHandler.HandleCreate)
			r.Post("/upload-url", recordingHandler.HandleUploadURL)
			r.Get("/{id}", recordingHandler.HandleGet)
			r.Put("/{id}", recordingHandler.HandleUpdate)
			r.Delete("/{id}", recordingHandler.HandleDelete)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.HandleList)
			r.Post("/", categoryHandler.HandleCreate)
			r.Get("/{id}", categoryHandler.HandleGet)
			r.Put("/{id}", categoryHandler.HandleUpdate)
			r.Delete("/{id}", categoryHandler.HandleDelete)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Get("/", goalHandler.HandleList)
			r.Post("/", goalHandler.HandleCreate)
			r.Get("/{id}", goalHandler.HandleGet)
			r.Put("/{id}", goalHandler.HandleUpdate)
			r.Delete("/{id}", goalHandler.HandleDelete)
		})

		r.Route("/comments", func(r chi.Router) {
			r.Get("/", commentHandler.HandleList)
			r.Post("/", commentHandler.HandleCreate)
			r.Get("/{id}", commentHandler.HandleGet)
			r.Put("/{id}", commentHandler.HandleUpdate)
			r.Delete("/{id}", commentHandler.HandleDelete)
		})
	})

	return nil
}

// audioStore returns a nil Presigner when storage is not configured.
func (s *Server) audioStore() (service.Presigner, error) {
	cfg := s.config.Storage
	if !cfg.Enabled() {
		s.logger.Info("audio uploads disabled: STORAGE_ENDPOINT/STORAGE_BUCKET not set")
		return nil, nil
	}

	store, err := storage.NewAudioStore(storage.Options{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
		PublicURL: cfg.PublicURL,
		Expiry:    cfg.PresignExpiry.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("creating audio store: %w", err)
	}
	return store, nil
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests and
// closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
