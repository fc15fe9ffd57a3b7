// Package api serves the screening HTTP JSON API.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/esg-screen/internal/model"
	"github.com/sells-group/esg-screen/internal/screen"
	"github.com/sells-group/esg-screen/internal/store"
)

// Screener runs screenings and weight normalization.
type Screener interface {
	Screen(ctx context.Context, req screen.Request) (*model.ScreeningResult, error)
	NormalizeWeights(ctx context.Context, portfolioID string) (*model.Portfolio, string, error)
}

// Reader is the read side of the store used by the API.
type Reader interface {
	CurrentParameterValues(ctx context.Context, companyID string, asOf *time.Time) (model.Snapshot, error)
	GetCriteriaSet(ctx context.Context, id string) (*model.CriteriaSet, error)
	ListCriteriaSets(ctx context.Context, filter store.CriteriaSetFilter) ([]model.CriteriaSet, error)
	GetScreeningResult(ctx context.Context, id string) (*model.ScreeningResult, error)
	ListScreeningResults(ctx context.Context, filter store.ResultFilter) ([]store.ResultSummary, error)
	DeleteScreeningResult(ctx context.Context, id string) error
}

// Options configures the HTTP layer.
type Options struct {
	Port           int
	RateLimit      float64 // requests per second, 0 disables limiting
	RateBurst      int
	AllowedOrigins []string
}

// Server exposes screening over HTTP.
type Server struct {
	screener Screener
	store    Reader
	opts     Options
}

// NewServer creates a Server.
func NewServer(screener Screener, st Reader, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{screener: screener, store: st, opts: opts}
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		requestLogger,
		cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}),
	)

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimit(s.opts.RateLimit, s.opts.RateBurst))

		r.Post("/expressions/parse", s.parseExpression)
		r.Post("/expressions/format", s.formatExpression)

		r.Route("/screenings", func(r chi.Router) {
			r.Post("/", s.createScreening)
			r.Get("/", s.listScreenings)
			r.Get("/{id}", s.getScreening)
			r.Delete("/{id}", s.deleteScreening)
		})

		r.Get("/criteria-sets", s.listCriteriaSets)
		r.Get("/criteria-sets/{id}", s.getCriteriaSet)

		r.Post("/portfolios/{id}/normalize-weights", s.normalizeWeights)
		r.Get("/companies/{id}/parameters", s.companyParameters)
	})

	return r
}

// Serve listens on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.opts.Port),
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		zap.L().Info("starting server", zap.Int("port", s.opts.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "api: listen")
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		zap.L().Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
