package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/suyash-sneo/scriptstore"
)

// Repository is the script surface the API serves.
type Repository interface {
	List(ctx context.Context) (map[string]scriptstore.Script, error)
	Get(ctx context.Context, id string) (scriptstore.Script, error)
	Lookup(ctx context.Context, slug string) (scriptstore.Script, error)
	Create(ctx context.Context, in scriptstore.CreateInput) (scriptstore.Script, error)
	Update(ctx context.Context, in scriptstore.UpdateInput) (scriptstore.Script, error)
	Delete(ctx context.Context, id string) error
	Probe(ctx context.Context) (scriptstore.ProbeResult, error)
}

// Options tune the server.
type Options struct {
	ExposeErrors    bool
	ShutdownTimeout time.Duration
	Logger          scriptstore.Logger
}

// Server exposes the script API over HTTP.
type Server struct {
	repo   Repository
	opts   Options
	logger scriptstore.Logger
	router chi.Router
}

// New constructs a server bound to a repository.
func New(repo Repository, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = scriptstore.NopLogger()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		repo:   repo,
		opts:   opts,
		logger: opts.Logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on listen until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, listen string) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("api listening", scriptstore.F("addr", listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		s.logger.Info("api shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestLog, s.recoverer, corsHeaders, middleware.StripSlashes)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/api/scripts", s.handleList)
	r.Post("/api/scripts", s.handleCreate)
	r.Put("/api/scripts", s.handleUpdate)
	r.Delete("/api/scripts", s.handleDelete)
	r.Get("/api/scripts/{id}", s.handleGet)
	r.Get("/api/names/{slug}", s.handleLookup)
	r.Get("/api/debug", s.handleDebug)
	return r
}
