// Package server exposes the conversion chain over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/flanksource/brandify/ai"
	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/convert"
	"github.com/flanksource/brandify/stylesvc"
	"github.com/flanksource/commons/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var log = logger.GetLogger("server")

// DefaultMaxUpload bounds multipart request bodies.
const DefaultMaxUpload = 50 << 20

// Options configures the HTTP surface.
type Options struct {
	UploadsDir string
	Version    string
	MaxUpload  int64
}

// Server owns the router and the services it reports on. Handlers share
// only immutable state.
type Server struct {
	opts   Options
	brand  brand.Config
	chain  convert.Chain
	remote *stylesvc.Client
	model  *ai.Client
	router chi.Router
}

// New builds the router. remote and model may be nil.
func New(opts Options, cfg brand.Config, chain convert.Chain, remote *stylesvc.Client, model *ai.Client) *Server {
	if opts.UploadsDir == "" {
		opts.UploadsDir = "uploads"
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = DefaultMaxUpload
	}
	s := &Server{opts: opts, brand: cfg, chain: chain, remote: remote, model: model}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/templates", s.templates)
		r.Post("/convert", s.convert)
		r.Get("/health", s.health)
		r.Get("/model-runner/status", s.modelRunnerStatus)
	})
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadsDir))))

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ConvertedDir is where conversion results are written.
func (s *Server) ConvertedDir() string {
	return filepath.Join(s.opts.UploadsDir, "converted")
}

// ListenAndServe serves on addr until ctx is done, then drains in-flight
// requests for up to grace.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	if err := os.MkdirAll(s.ConvertedDir(), 0o755); err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Listening on %s, uploads in %s", addr, s.opts.UploadsDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	log.Infof("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
