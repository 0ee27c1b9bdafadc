// Package server wires the store, services, handlers and middleware into
// one chi router and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	config + key pair → sqlite.DB → services → handlers → routes
//
// Everything is assembled in New; nothing else in the tree constructs a
// dependency.
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
	"golang.org/x/sync/errgroup"

	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/config"
	"github.com/sakif/conduit/internal/handler"
	"github.com/sakif/conduit/internal/middleware"
	sqliteRepo "github.com/sakif/conduit/internal/repository/sqlite"
	"github.com/sakif/conduit/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the database connection; Start closes it on the way out.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database at cfg.DBPath and builds the router. keys signs
// and verifies every access token.
func New(cfg config.Config, keys *auth.KeyPair, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(keys)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes registers the middleware and the API.
//
// Middleware order: RequestID, RealIP, Logger, Recoverer. The logger sits
// outside Recoverer so a recovered panic is still logged as a 500.
func (s *Server) setupRoutes(keys *auth.KeyPair) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	issuer := auth.NewIssuer(keys, s.config.TokenTTL, s.config.TokenIssuer)
	verifier := auth.NewVerifier(keys, auth.DefaultFallback())
	authn := auth.NewMiddleware(verifier, time.Now, s.logger)

	profiles := service.NewProfileService(s.db, s.db, s.logger)
	users := handler.NewUserHandler(
		service.NewUserService(s.db, auth.NewPasswordService(), issuer, time.Now, s.logger), s.logger)
	profileHandler := handler.NewProfileHandler(profiles, s.logger)
	articles := handler.NewArticleHandler(service.NewArticleService(s.db, profiles, s.logger), s.logger)
	comments := handler.NewCommentHandler(service.NewCommentService(s.db, s.db, profiles, s.logger), s.logger)
	tags := handler.NewTagHandler(service.NewTagService(s.db, s.logger), s.logger)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// anonymous
		r.Post("/users", users.HandleRegister)
		r.Post("/users/login", users.HandleLogin)
		r.Get("/tags", tags.HandleList)

		// a token is optional, but a bad one is still rejected
		r.Group(func(r chi.Router) {
			r.Use(authn.OptionalAuth, middleware.RecordUser)

			r.Get("/profiles/{username}", profileHandler.HandleGet)
			r.Get("/articles", articles.HandleList)
			r.Get("/articles/{slug}", articles.HandleGet)
			r.Get("/articles/{slug}/comments", comments.HandleList)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAuth, middleware.RecordUser)

			r.Get("/user", users.HandleCurrent)
			r.Put("/user", users.HandleUpdate)

			r.Post("/profiles/{username}/follow", profileHandler.HandleFollow)
			r.Delete("/profiles/{username}/follow", profileHandler.HandleUnfollow)

			r.Get("/articles/feed", articles.HandleFeed)
			r.Post("/articles", articles.HandleCreate)
			r.Put("/articles/{slug}", articles.HandleUpdate)
			r.Delete("/articles/{slug}", articles.HandleDelete)
			r.Post("/articles/{slug}/favorite", articles.HandleFavorite)
			r.Delete("/articles/{slug}/favorite", articles.HandleUnfavorite)

			r.Post("/articles/{slug}/comments", comments.HandleAdd)
			r.Delete("/articles/{slug}/comments/{id}", comments.HandleDelete)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok"))
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests for up to 30 seconds and closes the database.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
