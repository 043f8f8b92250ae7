// Package server exposes the similarity vault over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/simvault/simvault"
	"github.com/simvault/simvault/encode"
	"github.com/simvault/simvault/gate"
)

// DefaultMaxUploadBytes caps multipart uploads at 10 MiB.
const DefaultMaxUploadBytes = 10 << 20

// Config configures the HTTP server.
type Config struct {
	// ListenAddr is the host:port to listen on.
	ListenAddr string

	// Kind is the artifact kind served; it shapes which metadata fields
	// submissions carry.
	Kind string

	// K is the number of neighbors consulted per similarity check.
	K int

	// Threshold is the near-duplicate threshold in the vault metric's
	// terms.
	Threshold float32

	// MaxUploadBytes caps multipart uploads. Defaults to
	// DefaultMaxUploadBytes.
	MaxUploadBytes int64

	// CORSOrigins lists allowed origins; empty allows localhost dev.
	CORSOrigins []string

	// RateLimit configures per-IP rate limiting; a zero value disables it.
	RateLimit RateLimitConfig

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wires the vault, gate and encoder behind a chi router.
type Server struct {
	router  chi.Router
	vault   *simvault.Vault
	gate    *gate.Gate
	encoder encode.Encoder
	logger  *simvault.Logger
	cfg     Config
}

// New creates a Server with routing, CORS and rate limiting in place.
func New(cfg Config, vault *simvault.Vault, g *gate.Gate, enc encode.Encoder, logger *simvault.Logger) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if cfg.K <= 0 {
		cfg.K = gate.DefaultK
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Registration waits on external anchoring.
		cfg.WriteTimeout = 180 * time.Second
	}
	if logger == nil {
		logger = simvault.NoopLogger()
	}

	s := &Server{
		vault:   vault,
		gate:    g,
		encoder: enc,
		logger:  logger,
		cfg:     cfg,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware(cfg.RateLimit))

	r.Get("/", s.handleInfo)
	r.Get("/health", s.handleHealth)
	r.Post("/train", s.handleTrain)
	r.Post("/check_similarity", s.handleCheckSimilarity)
	r.Get("/metadata", s.handleMetadata)
	r.Post("/search", s.handleSearch)
	r.Get("/search", s.handleSearch)
	r.Post("/register", s.handleRegister)
	r.Post("/register/pdf", s.handleRegisterPDF)
	r.Get("/cid/{id}", s.handleCID)
	r.Get("/registered", s.handleRegistered)

	s.router = r

	return s, nil
}

// Handler returns the underlying http.Handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.ListenAddr, err)
	}

	s.logger.InfoContext(ctx, "server listening", "addr", ln.Addr().String(), "kind", s.cfg.Kind)

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return <-errCh
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
