// Package server wires the application together: it builds the dependency
// graph (store → services → handlers), defines every route, and runs the
// HTTP server with graceful shutdown.
//
// This is the composition root — all construction happens in New and
// setupRoutes, so no other package needs to know how its dependencies are
// made.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/study-helper/internal/auth"
	"github.com/sakif/study-helper/internal/completion"
	"github.com/sakif/study-helper/internal/completion/groq"
	"github.com/sakif/study-helper/internal/handler"
	"github.com/sakif/study-helper/internal/middleware"
	"github.com/sakif/study-helper/internal/quota"
	sqliteRepo "github.com/sakif/study-helper/internal/repository/sqlite"
	"github.com/sakif/study-helper/internal/service"
)

// Config holds server configuration, loaded once in main and passed here.
type Config struct {
	Port       int
	DBPath     string
	JWTSecret  string
	GroqAPIKey string
	// GroqModel and GroqBaseURL override the client defaults when set.
	GroqModel   string
	GroqBaseURL string
}

// Server owns the router and the resources that need closing on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain:
//
//	sqlite.DB → TokenService/PasswordService → quota.Tracker
//	         → AuthService/AssistService/HistoryService → handlers → routes
//
// The Groq client is optional: without an API key the server still starts
// and serves everything except /api/ai/request, which fails upstream.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
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

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var client completion.Client
	if s.config.GroqAPIKey != "" {
		groqCfg := groq.DefaultConfig(s.config.GroqAPIKey)
		if s.config.GroqModel != "" {
			groqCfg.Model = s.config.GroqModel
		}
		if s.config.GroqBaseURL != "" {
			groqCfg.BaseURL = s.config.GroqBaseURL
		}
		groqClient, err := groq.New(groqCfg, s.logger)
		if err != nil {
			return fmt.Errorf("creating completion client: %w", err)
		}
		client = groqClient
	} else {
		s.logger.Warn("GROQ_API_KEY not set — /api/ai/request will return errors")
	}

	tracker := quota.New(s.db.Users, s.logger)

	authService := service.NewAuthService(s.db.Users, tokens, passwords, s.logger)
	assistService := service.NewAssistService(client, tracker, s.logger)
	historyService := service.NewHistoryService(s.db.History, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	assistHandler := handler.NewAssistHandler(assistService, s.logger)
	historyHandler := handler.NewHistoryHandler(historyService, s.logger)

	requireAuth := auth.RequireAuth(tokens, s.db.Users, s.logger)

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("AI Study Helper API is running"))
	})
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","timestamp":%q}`, time.Now().UTC().Format(time.RFC3339))
	})

	s.router.Route("/api", func(r chi.Router) {
		// Public
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)

		// Protected
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.HandleMe)
			r.Put("/password", authHandler.HandleUpdatePassword)
			r.Delete("/account", authHandler.HandleDeleteAccount)

			r.Post("/ai/request", assistHandler.HandleRequest)
			r.Get("/ai/usage", assistHandler.HandleUsage)
			r.Post("/ai/reset", assistHandler.HandleReset)

			r.Post("/history", historyHandler.HandleSave)
			r.Get("/history", historyHandler.HandleList)
			r.Get("/history/stats", historyHandler.HandleStats)
			// Fixed paths before the {id} wildcard — chi matches most
			// specific first, but keeping them distinct avoids surprises
			// with DELETE /history/clear vs /history/{id}.
			r.Delete("/history/clear", historyHandler.HandleClear)
			r.Delete("/history/cleanup", historyHandler.HandleCleanup)
			r.Get("/history/{id}", historyHandler.HandleGet)
			r.Delete("/history/{id}", historyHandler.HandleDelete)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds to finish, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // completion calls can be slow
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
