package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"SignalSentinel/internal/advisor"
	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/evaluator"
	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/store"
)

type Analyzer interface {
	Analyze(ctx context.Context, symbol, interval string) (*advisor.Result, error)
}

type Evaluator interface {
	EvaluateAllPending(ctx context.Context) (evaluator.Summary, error)
}

type StatsSource interface {
	GetStats(ctx context.Context) (model.EvaluationStats, error)
}

type QuoteSource interface {
	QuoteOrCached(ctx context.Context, symbol string) (model.Quote, bool)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Advisor         Analyzer
	Evaluator       Evaluator
	Stats           StatsSource
	Quotes          QuoteSource
	Fetcher         collector.CandleFetcher
	Store           store.Store
	Metrics         *metrics.Metrics
	DefaultInterval string
	DefaultLimit    int
	AllowOrigins    []string
}

// Server is the HTTP API.
type Server struct {
	Deps
	engine *gin.Engine
	log    zerolog.Logger
}

func NewServer(d Deps) *Server {
	if d.DefaultInterval == "" {
		d.DefaultInterval = "1h"
	}
	if d.DefaultLimit <= 0 {
		d.DefaultLimit = 100
	}
	s := &Server{Deps: d, log: logger.Component("api")}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	if len(d.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: d.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	s.engine = r
	s.RegisterRoutes(r)
	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("http server stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := s.log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = s.log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
