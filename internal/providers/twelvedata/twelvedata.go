// Package twelvedata implements the quote provider used by the price stage.
package twelvedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/reachskumar/echomarket/config"
)

// ErrMissingAPIKey marks an unconfigured credential. Callers degrade to an
// empty result instead of failing the pipeline.
var ErrMissingAPIKey = errors.New("twelvedata: api key not configured")

// Client wraps the TwelveData REST API.
type Client struct {
	http   *resty.Client
	apiKey string
	log    *logrus.Entry
}

// New creates a quote client. The client is safe for concurrent use.
func New(cfg config.TwelveDataConfig, logger *logrus.Logger) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)
	return &Client{
		http:   http,
		apiKey: cfg.APIKey,
		log:    logger.WithField("component", "twelvedata"),
	}
}

type priceResponse struct {
	Price string `json:"price"`
}

type timeSeriesResponse struct {
	Values []struct {
		Datetime string `json:"datetime"`
		Close    string `json:"close"`
	} `json:"values"`
}

// SpotPrice returns the latest quoted price for ticker. The second return
// is false when the provider has no quote or returns a non-numeric price
// string; both are reported as "absent", not as errors.
func (c *Client) SpotPrice(ctx context.Context, ticker string) (float64, bool, error) {
	if c.apiKey == "" {
		return 0, false, ErrMissingAPIKey
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"symbol": ticker, "apikey": c.apiKey}).
		Get("/price")
	if err != nil {
		return 0, false, fmt.Errorf("fetching spot price for %s: %w", ticker, err)
	}
	if resp.IsError() {
		return 0, false, fmt.Errorf("spot price for %s: status %d", ticker, resp.StatusCode())
	}
	var payload priceResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return 0, false, fmt.Errorf("decoding spot price for %s: %w", ticker, err)
	}
	if payload.Price == "" {
		return 0, false, nil
	}
	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil {
		c.log.Warnf("could not convert price %q for %s", payload.Price, ticker)
		return 0, false, nil
	}
	return price, true, nil
}

// DailyCloseHistory returns up to days of daily closes keyed by ISO date.
// Entries with missing or non-numeric closes are skipped silently.
func (c *Client) DailyCloseHistory(ctx context.Context, ticker string, days int) (map[string]float64, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":     ticker,
			"interval":   "1day",
			"outputsize": strconv.Itoa(days),
			"apikey":     c.apiKey,
		}).
		Get("/time_series")
	if err != nil {
		return nil, fmt.Errorf("fetching close history for %s: %w", ticker, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("close history for %s: status %d", ticker, resp.StatusCode())
	}
	var payload timeSeriesResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decoding close history for %s: %w", ticker, err)
	}
	prices := make(map[string]float64, len(payload.Values))
	for _, entry := range payload.Values {
		if entry.Datetime == "" || entry.Close == "" {
			continue
		}
		close, err := strconv.ParseFloat(entry.Close, 64)
		if err != nil {
			continue
		}
		prices[entry.Datetime] = close
	}
	return prices, nil
}
