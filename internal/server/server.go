// Package server is the development recipe backend. It serves the REST
// contract the cooking client speaks, backed by the in-memory catalog and
// store.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
	"github.com/hammamikhairi/guidedcook/internal/metrics"
	"github.com/hammamikhairi/guidedcook/internal/recipe"
	"github.com/hammamikhairi/guidedcook/internal/storage"
)

// maxUploadBytes bounds a multipart photo request.
const maxUploadBytes = 10 << 20

// Catalog is the read side of the recipe catalog.
type Catalog interface {
	Get(ctx context.Context, id string) (*domain.RecipeSnapshot, error)
	List(ctx context.Context) ([]recipe.Summary, error)
	Search(ctx context.Context, query string) ([]recipe.Summary, error)
}

// Option configures the server.
type Option func(*Server)

// WithRecorder counts requests by route and status.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Server) {
		s.metrics = r
	}
}

// WithTokens sets the bearer token to user id table.
func WithTokens(tokens map[string]string) Option {
	return func(s *Server) {
		for tok, user := range tokens {
			s.tokens[tok] = user
		}
	}
}

// Server routes backend requests.
type Server struct {
	catalog Catalog
	store   *storage.MemoryStore
	tokens  map[string]string
	metrics *metrics.Recorder
	log     *logger.Logger
}

// New creates a server over catalog and store.
func New(catalog Catalog, store *storage.MemoryStore, log *logger.Logger, opts ...Option) *Server {
	s := &Server{
		catalog: catalog,
		store:   store,
		tokens:  make(map[string]string),
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.NewRoute().Subrouter()
	api.Use(s.authenticate)
	api.HandleFunc("/recipes", s.listRecipes).Methods(http.MethodGet)
	api.HandleFunc("/recipes/{id}", s.getRecipe).Methods(http.MethodGet)
	api.HandleFunc("/recipes/{id}/complete", s.markComplete).Methods(http.MethodPost)
	api.HandleFunc("/recipes/{id}/save-public", s.savePublic).Methods(http.MethodPost)
	api.HandleFunc("/recipes/{id}/rating", s.getRating).Methods(http.MethodGet)
	api.HandleFunc("/recipes/{id}/ratings", s.postRating).Methods(http.MethodPost)
	api.HandleFunc("/recipes/{id}/photos", s.uploadPhoto).Methods(http.MethodPost)
	api.HandleFunc("/recipes/{id}/photos/count", s.photoCount).Methods(http.MethodGet)
	api.HandleFunc("/saved-recipes", s.saveRecipe).Methods(http.MethodPost)
	api.HandleFunc("/saved-recipes", s.listSaved).Methods(http.MethodGet)
	api.HandleFunc("/photos/{photoID}", s.getPhoto).Methods(http.MethodGet)

	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
