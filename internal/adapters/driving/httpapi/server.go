package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/custodia-labs/admissions-kb/internal/logger"
)

// DefaultMaxUploadBytes caps a single multipart upload.
const DefaultMaxUploadBytes = 32 << 20

// Config holds server configuration.
type Config struct {
	Addr            string
	AllowAllOrigins bool          // allow all CORS origins (dev mode)
	MaxUploadBytes  int64         // zero uses DefaultMaxUploadBytes
	RequestTimeout  time.Duration // zero uses two minutes
	AccessLog       bool          // log every request through the package logger
}

// Server is the HTTP query surface over the document store.
type Server struct {
	cfg        Config
	ports      *Ports
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all routes registered.
func New(cfg Config, ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}

	s := &Server{cfg: cfg, ports: ports}
	s.router = s.buildRouter()
	return s, nil
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.cfg.AccessLog {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  log.New(logger.Output(), "", log.LstdFlags),
			NoColor: true,
		}))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", headerOwnerID},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
		corsOpts.AllowCredentials = false
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Delete("/sessions/{id}", s.handleRevokeSession)

		r.Group(func(r chi.Router) {
			r.Use(s.requireOwner)

			r.Post("/documents", s.handleUpload)
			r.Get("/documents", s.handleListDocuments)
			r.Get("/documents/{id}", s.handleGetDocument)
			r.Delete("/documents/{id}", s.handleDeleteDocument)

			r.Get("/search", s.handleSearch)
			r.Post("/search", s.handleSearch)
		})
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Mount attaches an extra handler, such as the MCP endpoint, under pattern.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s", s.cfg.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
