// Package server exposes the analysis pipeline over HTTP: the analyze
// and export endpoints, ticker detection, stored history and the
// operational surface (health, metrics).
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/reachskumar/echomarket/internal/cache"
	"github.com/reachskumar/echomarket/internal/pipeline"
	"github.com/reachskumar/echomarket/internal/store"
)

// Analyzer runs one full analysis. Satisfied by *pipeline.Pipeline.
type Analyzer interface {
	Run(ctx context.Context, ticker string) (*pipeline.AnalysisState, error)
}

// History is the read side of the persisted analyses. Nil when no
// database is configured.
type History interface {
	GetAnalysis(ctx context.Context, id string) (store.AnalysisRecord, bool, error)
	ListAnalyses(ctx context.Context, ticker string, limit int) ([]store.AnalysisRecord, error)
}

type Server struct {
	echo     *echo.Echo
	analyzer Analyzer
	history  History
	cache    *cache.Cache
	log      *logrus.Entry

	// sem bounds concurrent pipeline runs.
	sem chan struct{}
	now func() time.Time
}

func New(analyzer Analyzer, history History, resultCache *cache.Cache, maxConcurrent int, logger *logrus.Logger) *Server {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	s := &Server{
		analyzer: analyzer,
		history:  history,
		cache:    resultCache,
		log:      logger.WithField("component", "server"),
		sem:      make(chan struct{}, maxConcurrent),
		now:      time.Now,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/analyze/:ticker", s.handleAnalyze)
	api.GET("/analyze/:ticker/export", s.handleExport)
	api.POST("/detect-ticker", s.handleDetectTicker)
	api.GET("/history", s.handleListHistory)
	api.GET("/history/:id", s.handleGetHistory)

	s.echo = e
	return s
}

// errorHandler renders every handler error as structured JSON and logs
// it once.
func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	s.log.WithFields(logrus.Fields{
		"status": code,
		"method": req.Method,
		"path":   req.URL.Path,
		"ip":     c.RealIP(),
	}).WithError(err).Warn("request failed")
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]any{"error": msg})
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
