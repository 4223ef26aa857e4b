package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/canvas-session/server/internal/config"
	"github.com/canvas-session/server/internal/metrics"
	"github.com/canvas-session/server/internal/procstats"
	"github.com/canvas-session/server/internal/session"
)

const (
	stateTimeout    = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	config         *config.Config
	actor          *session.Actor
	bridge         *Bridge
	sampler        *procstats.Sampler
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	logger         zerolog.Logger
}

func NewServer(cfg *config.Config, actor *session.Actor, bridge *Bridge, logger zerolog.Logger) *Server {
	s := &Server{
		config:         cfg,
		actor:          actor,
		bridge:         bridge,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		logger:         logger.With().Str("component", "server").Logger(),
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

// SetSampler configures the process sampler reported by /api/health.
// Must be called before SetupRoutes.
func (s *Server) SetSampler(sampler *procstats.Sampler) {
	s.sampler = sampler
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/state", s.handleState)
	mux.Handle("/metrics", metrics.Handler())

	if dir := s.config.Server.StaticDir; dir != "" {
		s.logger.Info().Str("dir", dir).Msg("serving static files")
		mux.Handle("/", securityHeaders(http.FileServer(http.Dir(dir))))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.bridge.Full() {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("ws upgrade failed")
		return
	}

	// The request context ends with this handler; the connection outlives it.
	if _, err := s.bridge.Attach(context.Background(), conn); err != nil {
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("connection rejected")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload := HealthPayload{
		Status:      "ok",
		Connections: s.bridge.ActiveCount(),
	}
	select {
	case <-s.actor.Done():
		payload.Status = "stopped"
	default:
	}
	if s.sampler != nil {
		if st, err := s.sampler.Sample(); err == nil {
			payload.Process = &st
		} else {
			s.logger.Debug().Err(err).Msg("process sample failed")
		}
	}

	status := http.StatusOK
	if payload.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	if err := writeJSON(w, status, payload); err != nil {
		s.logger.Warn().Err(err).Msg("health response failed")
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), stateTimeout)
	defer cancel()
	snap, err := s.actor.Snapshot(ctx)
	if err != nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := writeJSON(w, http.StatusOK, StatePayload{Connections: snap.Connections, Rectangles: snap.Rectangles}); err != nil {
		s.logger.Warn().Err(err).Msg("state response failed")
	}
}

// writeJSON marshals v first; an encoding failure is answered with a 500.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "response not encodable", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(append(data, '\n'))
	return err
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// Listen binds addr. Failing here means no connection was ever accepted.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", addr, err)
	}
	return ln, nil
}

// Serve accepts HTTP and WebSocket traffic on ln until ctx is cancelled, then
// shuts down gracefully. A clean shutdown returns nil.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, logger zerolog.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Cancelled on every return so the shutdown goroutine never outlives Serve.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(sctx)
	}()

	logger.Info().Str("addr", ln.Addr().String()).Msg("server listening")
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger zerolog.Logger) error {
	ln, err := Listen(addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, handler, logger)
}
