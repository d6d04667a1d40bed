// Package server exposes the conversion pipeline over HTTP.
//
// Routes:
//
//	POST /v1/convert     body: Visio document; query: mode, indent, refresh, page
//	POST /v1/posttreat   body: SVG page; query: name, indent
//	GET  /healthz
//
// Convert answers with JSON describing every page, or with the SVG of a
// single page when the page query parameter is set. Post-treat answers with
// the rewritten SVG.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/visio2svg/pkg/pipeline"
	"github.com/matzehuels/visio2svg/pkg/posttreat"
)

// DefaultMaxBody limits request bodies when Server.MaxBody is zero.
const DefaultMaxBody = 32 << 20

const shutdownTimeout = 10 * time.Second

// Server handles conversion requests.
type Server struct {
	Runner  *pipeline.Runner
	Treater *posttreat.Treater
	Logger  *log.Logger

	// MaxBody is the largest accepted request body in bytes.
	MaxBody int64
}

// New returns a Server. The post-treat endpoint uses the runner's converter.
func New(runner *pipeline.Runner, logger *log.Logger, maxBody int64) *Server {
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Server{
		Runner:  runner,
		Treater: posttreat.New(runner.Converter, logger),
		Logger:  logger,
		MaxBody: maxBody,
	}
}

// Handler returns the router serving all endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/convert", s.handleConvert)
		r.Post("/posttreat", s.handlePostTreat)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.Logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.Logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
