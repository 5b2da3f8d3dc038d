// Package server exposes a graphstore.Store over HTTP: a single dispatch
// endpoint mirroring Store.Execute, plus health and stats endpoints for
// operators. It deliberately does not attempt Neo4j/Bolt compatibility —
// the wire format is graphstore's own Command/Reply algebra, JSON-encoded.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/orneryd/graphstore/pkg/config"
	"github.com/orneryd/graphstore/pkg/graphstore"
)

// Server wraps a graphstore.Store with an HTTP front end.
type Server struct {
	store  *graphstore.Store
	config *config.Config
	logger *log.Logger

	httpServer *http.Server
	listener   net.Listener
	started    time.Time
	closed     atomic.Bool

	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// New builds a Server around an already-constructed Store. The caller owns
// the Store's lifetime (and the engine beneath it); Server.Stop does not
// close either.
func New(store *graphstore.Store, cfg *config.Config) *Server {
	return &Server{
		store:  store,
		config: cfg,
		logger: log.New(os.Stderr, "server: ", log.LstdFlags),
	}
}

// Start binds the configured address and begins serving in the background.
// It returns once the listener is open; Serve errors after that point are
// logged, not returned.
func (s *Server) Start() error {
	if s.closed.Load() {
		return fmt.Errorf("server: already stopped")
	}
	listener, err := net.Listen("tcp", s.config.Server.Address)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.config.Server.Address, err)
	}
	s.listener = listener
	s.started = time.Now()

	s.httpServer = &http.Server{
		Handler:      s.recoveryMiddleware(s.loggingMiddleware(s.buildRouter())),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("serve error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down, waiting for in-flight requests
// until ctx is done. It applies no timeout of its own.
func (s *Server) Stop(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the server's bound address, valid after Start succeeds.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) buildRouter() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/execute", methodGuard(http.MethodPost, s.handleExecute))
	mux.HandleFunc("/healthz", methodGuard(http.MethodGet, s.handleHealth))
	mux.HandleFunc("/stats", methodGuard(http.MethodGet, s.handleStats))
	return mux
}

// methodGuard rejects requests whose method doesn't match, mirroring the
// behavior of Go 1.22+ ServeMux method-prefixed patterns (e.g. "POST
// /execute") on the Go 1.21 toolchain this module currently targets, which
// does not support that pattern syntax.
func methodGuard(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("reading body: %w", err))
		return
	}
	cmd, err := DecodeCommand(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	reply, err := s.store.Execute(cmd)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, http.StatusOK, EncodeReply(reply))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": time.Since(s.started).Seconds(),
		"request_count":  s.requestCount.Load(),
		"error_count":    s.errorCount.Load(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("encoding response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.errorCount.Add(1)
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requestCount.Add(1)
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.errorCount.Add(1)
				s.logger.Printf("panic handling %s %s: %v", r.Method, r.URL.Path, rec)
				s.writeError(w, http.StatusInternalServerError, fmt.Errorf("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
