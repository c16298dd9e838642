// Package server is the HTTP front of the service: thin handlers that
// route requests to the chat service and session store.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nafiskhan/profilechat/internal/metrics"
	"github.com/nafiskhan/profilechat/pkg/chat"
	"github.com/nafiskhan/profilechat/pkg/profile"
	"github.com/nafiskhan/profilechat/pkg/store"
)

// Options configures the HTTP server.
type Options struct {
	Host          string
	Port          int
	StaticDir     string
	RetentionDays int
}

// Server is the HTTP server.
type Server struct {
	options        Options
	server         *http.Server
	chat           *chat.Service
	store          *store.Store
	profile        *profile.Manager
	logger         zerolog.Logger
	startTime      time.Time
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates a new HTTP server.
func NewServer(options Options, chatSvc *chat.Service, st *store.Store, prof *profile.Manager, logger zerolog.Logger) (*Server, error) {
	if options.Port == 0 {
		options.Port = 8000
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.RetentionDays == 0 {
		options.RetentionDays = 30
	}

	if chatSvc == nil {
		return nil, fmt.Errorf("chat service is required")
	}
	if st == nil {
		return nil, fmt.Errorf("session store is required")
	}

	return &Server{
		options:   options,
		chat:      chatSvc,
		store:     st,
		profile:   prof,
		logger:    logger,
		startTime: time.Now(),
	}, nil
}

// routes builds the request mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.track(s.handleChat))
	mux.HandleFunc("POST /api/sessions", s.track(s.handleCreateSession))
	mux.HandleFunc("GET /api/sessions/{id}/history", s.track(s.handleHistory))
	mux.HandleFunc("GET /api/users/{id}/sessions", s.track(s.handleUserSessions))
	mux.HandleFunc("POST /api/cleanup", s.track(s.handleCleanup))
	mux.HandleFunc("POST /api/profile", s.track(s.handleProfileUpdate))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	if s.options.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.options.StaticDir)))
	} else {
		mux.HandleFunc("GET /{$}", s.handleAPIInfo)
	}

	return mux
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	mux := s.routes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: mux,
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the server, waiting for in-flight requests.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down HTTP server")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}

// track wraps a handler with in-flight accounting and shutdown refusal.
func (s *Server) track(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		shuttingDown := s.isShuttingDown
		s.shutdownMu.RUnlock()

		if shuttingDown {
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()

		h(w, r)
	}
}
