// Package server exposes the session-scoped HTTP surface: streaming
// chat, transcript history, session teardown, and upload management.
// Every endpoint keys off the x-session-id header.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kaimana/seachat/internal/config"
	"github.com/kaimana/seachat/pkg/session"
	"github.com/kaimana/seachat/pkg/store"
	"github.com/kaimana/seachat/pkg/upload"
)

const sessionIDHeader = "x-session-id"

// Server is the public HTTP server
type Server struct {
	cfg      config.Config
	registry *session.Registry
	guard    *upload.Guard
	store    store.Store
	logger   zerolog.Logger

	chatLimiter   *RateLimiter
	uploadLimiter *RateLimiter

	server    *http.Server
	startTime time.Time
}

// NewServer wires the HTTP surface onto the session machinery
func NewServer(cfg config.Config, registry *session.Registry, guard *upload.Guard, st store.Store, logger zerolog.Logger) *Server {
	return &Server{
		cfg:           cfg,
		registry:      registry,
		guard:         guard,
		store:         st,
		logger:        logger,
		chatLimiter:   NewRateLimiter(cfg.RateLimit.ChatPerMinute),
		uploadLimiter: NewRateLimiter(cfg.RateLimit.UploadPerMinute),
		startTime:     time.Now(),
	}
}

// Handler builds the full route table with the middleware chain applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("POST /clear", s.handleClear)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /files", s.handleListFiles)
	mux.HandleFunc("DELETE /files", s.handleDeleteAllFiles)
	mux.HandleFunc("DELETE /files/{filename}", s.handleDeleteFile)

	var handler http.Handler = mux
	handler = withBodyLimit(s.cfg.Server.MaxBodyBytes, handler)
	handler = withCORS(s.cfg.Server.AllowedOrigins, handler)
	handler = withAccessLog(handler)
	handler = withRequestID(handler)
	return handler
}

// Start runs the server until it is shut down
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler: s.Handler(),
	}

	s.logger.Info().
		Str("host", s.cfg.Server.Host).
		Int("port", s.cfg.Server.Port).
		Msg("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.chatLimiter.Stop()
	s.uploadLimiter.Stop()

	if s.server == nil {
		return nil
	}

	s.logger.Info().Msg("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"uptime":   time.Since(s.startTime).Seconds(),
		"sessions": s.registry.Len(),
	})
}

// sessionID extracts and validates the session header. A missing or
// malformed id writes the 400 response and reports false.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := r.Header.Get(sessionIDHeader)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "x-session-id header is required")
		return "", false
	}
	if err := session.ValidateID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid session id: %v", err))
		return "", false
	}
	return sessionID, true
}

// checkRateLimit admits the request or writes the 429 with Retry-After
func (s *Server) checkRateLimit(limiter *RateLimiter, w http.ResponseWriter, r *http.Request) bool {
	ip := clientIP(r)
	if limiter.Allow(ip) {
		return true
	}

	retryAfter := limiter.RetryAfter(ip)
	s.logger.Warn().
		Str("ip", ip).
		Str("path", r.URL.Path).
		Int("retry_after", retryAfter).
		Msg("Rate limit exceeded")

	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
	return false
}
