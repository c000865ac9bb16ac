package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/reachskumar/echomarket/internal/export"
	"github.com/reachskumar/echomarket/internal/pipeline"
	"github.com/reachskumar/echomarket/internal/store"
)

// analyze runs (or recalls) a full analysis and returns the rendered
// report. refresh=true bypasses the result cache.
func (s *Server) analyze(c echo.Context, ticker string, refresh bool) (pipeline.Report, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return pipeline.Report{}, echo.NewHTTPError(http.StatusBadRequest, "ticker is required")
	}

	ctx := c.Request().Context()
	if !refresh {
		if report, ok := s.cache.Get(ctx, ticker); ok {
			return report, nil
		}
	}

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return pipeline.Report{}, echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled while waiting for a slot")
	}

	st, err := s.analyzer.Run(ctx, ticker)
	if err != nil {
		if errors.Is(err, pipeline.ErrMissingTicker) {
			return pipeline.Report{}, echo.NewHTTPError(http.StatusBadRequest, "ticker is required")
		}
		return pipeline.Report{}, fmt.Errorf("analysis run: %w", err)
	}

	report := pipeline.Render(st, uuid.NewString(), s.now())
	s.cache.Put(ctx, report)
	return report, nil
}

func (s *Server) handleAnalyze(c echo.Context) error {
	refresh, _ := strconv.ParseBool(c.QueryParam("refresh"))
	report, err := s.analyze(c, c.Param("ticker"), refresh)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// handleExport renders the same reconciled report as a CSV or PDF
// download.
func (s *Server) handleExport(c echo.Context) error {
	refresh, _ := strconv.ParseBool(c.QueryParam("refresh"))
	report, err := s.analyze(c, c.Param("ticker"), refresh)
	if err != nil {
		return err
	}

	format := strings.ToLower(c.QueryParam("format"))
	switch format {
	case "", "csv":
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, report); err != nil {
			return fmt.Errorf("csv export: %w", err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="%s_analysis.csv"`, report.Ticker))
		return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
	case "pdf":
		out, err := export.WritePDF(report)
		if err != nil {
			return fmt.Errorf("pdf export: %w", err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="%s_analysis.pdf"`, report.Ticker))
		return c.Blob(http.StatusOK, "application/pdf", out)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "format must be csv or pdf")
	}
}

type detectRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleDetectTicker(c echo.Context) error {
	var req detectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ticker, ok := DetectTicker(req.Text)
	return c.JSON(http.StatusOK, map[string]any{
		"ticker":   ticker,
		"detected": ok,
	})
}

func (s *Server) handleListHistory(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusNotFound, "persistence is not configured")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	ticker := strings.ToUpper(strings.TrimSpace(c.QueryParam("ticker")))
	records, err := s.history.ListAnalyses(c.Request().Context(), ticker, limit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	if records == nil {
		records = []store.AnalysisRecord{}
	}
	return c.JSON(http.StatusOK, map[string]any{"analyses": records})
}

func (s *Server) handleGetHistory(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusNotFound, "persistence is not configured")
	}
	rec, ok, err := s.history.GetAnalysis(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fmt.Errorf("get history: %w", err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "analysis not found")
	}
	return c.JSON(http.StatusOK, rec)
}
