// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jeranaias/chatwidget/internal/logging"
	"github.com/jeranaias/chatwidget/internal/telemetry"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultRPS is the sustained request rate allowed per client.
	DefaultRPS = 10

	// DefaultBurst is the request burst allowed per client.
	DefaultBurst = 20
)

// ============================================================================
// SERVER
// ============================================================================

// ConversationFunc returns the current conversation in the export format.
type ConversationFunc func() (string, error)

// Options configures a Server.
type Options struct {
	Metrics *telemetry.Metrics
	Logger  *slog.Logger

	// Conversation backs GET /conversation. Nil disables the route.
	Conversation ConversationFunc

	// Version is reported by /health.
	Version string

	// RPS and Burst bound requests per client. Defaults: DefaultRPS, DefaultBurst
	RPS   float64
	Burst int
}

// Server serves metrics and conversation state for one process.
type Server struct {
	addr    string
	opts    Options
	router  *http.ServeMux
	started time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a Server that will listen on addr.
func New(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.RPS <= 0 {
		opts.RPS = DefaultRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	s := &Server{
		addr:    addr,
		opts:    opts,
		router:  http.NewServeMux(),
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	if s.opts.Metrics != nil {
		s.router.Handle("GET /metrics", s.opts.Metrics.Handler())
	}
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)
	if s.opts.Conversation != nil {
		s.router.HandleFunc("GET /conversation", s.handleConversation)
	}
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.opts.Logger),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.opts.Logger),
		RateLimitMiddleware(NewRateLimiter(s.opts.RPS, s.opts.Burst), s.opts.Logger),
	)(s.router)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       s.opts.Version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	summary, err := s.opts.Metrics.Summary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	totals := make(map[string]float64, len(summary))
	for name := range summary {
		totals[name] = summary.Total(name)
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	raw, err := s.opts.Conversation()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(raw))
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the address and serves in the background. The listen
// error, if any, is returned directly.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	s.opts.Logger.Info("SERVER_START", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.opts.Logger.Error("SERVER_FAILED", "addr", ln.Addr().String(), "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.opts.Logger.Info("SERVER_SHUTDOWN")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	})
}
