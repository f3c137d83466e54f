// Package venue is the read-side client for the trading venue REST API.
// It fetches the trade tape, order book and quote board and resolves the
// order-book shape once, at this boundary, so downstream aggregation never
// sniffs payloads.
package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"marketview/config"
	"marketview/logger"
	"marketview/models"
)

// Client talks to the venue API. One client is shared by every view
// poller; the rate limiter bounds total request volume across them.
type Client struct {
	cfg     config.SourceConfig
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// NewClient builds a Client with a pooled transport sized from config.
func NewClient(cfg *config.Config) *Client {
	log := logger.GetLogger()

	transport := &http.Transport{
		MaxIdleConns:        cfg.Source.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Source.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     cfg.Source.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.Source.ConnectionPool.IdleConnTimeout,
		DisableCompression:  false,
	}

	var limiter *rate.Limiter
	if rps := cfg.Source.RateLimit.RequestsPerSecond; rps > 0 {
		burst := cfg.Source.RateLimit.BurstSize
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	client := &Client{
		cfg: cfg.Source,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Source.Timeout,
		},
		limiter: limiter,
		log:     log,
	}

	log.WithComponent("venue_feed").WithFields(logger.Fields{
		"base_url":           cfg.Source.BaseURL,
		"max_idle_conns":     cfg.Source.ConnectionPool.MaxIdleConns,
		"max_conns_per_host": cfg.Source.ConnectionPool.MaxConnsPerHost,
		"timeout":            cfg.Source.Timeout,
	}).Info("venue feed client initialized")

	return client
}

// Trades fetches the trade tape for one ticker.
func (c *Client) Trades(ctx context.Context, ticker string) ([]models.TradeRow, error) {
	body, err := c.get(ctx, c.cfg.Endpoints.Trades, url.Values{"ticker": {models.NormalizeTicker(ticker)}})
	if err != nil {
		return nil, err
	}
	logger.IncrementTapeRead(len(body))

	var rows []models.TradeRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode trade feed: %w", err)
	}
	logger.LogDataFlowEntry(c.log.WithComponent("venue_feed"), "venue_api", "tape_view", len(rows), "trade_rows")
	return rows, nil
}

// bookLevelsResponse is the pre-aggregated order-book shape.
type bookLevelsResponse struct {
	Bids []models.RawLevel `json:"bids"`
	Asks []models.RawLevel `json:"asks"`
}

// OrderBook fetches the order book for one ticker. The backend returns
// either pre-aggregated {bids,asks} ladders or a flat order array
// depending on its version; both decode into the tagged BookSnapshot.
func (c *Client) OrderBook(ctx context.Context, ticker string) (*models.BookSnapshot, error) {
	normalized := models.NormalizeTicker(ticker)
	body, err := c.get(ctx, c.cfg.Endpoints.Orderbook, url.Values{"ticker": {normalized}})
	if err != nil {
		return nil, err
	}
	logger.IncrementBookRead(len(body))

	snap := &models.BookSnapshot{
		Ticker:    normalized,
		Timestamp: time.Now().UTC(),
	}

	switch firstToken(body) {
	case '[':
		var orders []models.RawOrder
		if err := json.Unmarshal(body, &orders); err != nil {
			return nil, fmt.Errorf("decode flat order list: %w", err)
		}
		snap.Shape = models.BookShapeOrders
		snap.Orders = orders
	case '{':
		var resp bookLevelsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode aggregated book: %w", err)
		}
		snap.Shape = models.BookShapeLevels
		snap.Bids = resp.Bids
		snap.Asks = resp.Asks
	default:
		return nil, fmt.Errorf("unrecognized order book payload for %s", normalized)
	}

	entries := len(snap.Bids) + len(snap.Asks) + len(snap.Orders)
	logger.LogDataFlowEntry(c.log.WithComponent("venue_feed"), "venue_api", "book_view", entries, "orderbook_entries")

	return snap, nil
}

// Quotes fetches the quote board for all listed assets.
func (c *Client) Quotes(ctx context.Context) ([]models.QuoteRow, error) {
	body, err := c.get(ctx, c.cfg.Endpoints.Quotes, nil)
	if err != nil {
		return nil, err
	}
	logger.IncrementQuoteRead(len(body))

	var rows []models.QuoteRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode quote feed: %w", err)
	}
	logger.LogDataFlowEntry(c.log.WithComponent("venue_feed"), "venue_api", "quotes_view", len(rows), "quote_rows")
	return rows, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	reqURL := c.cfg.BaseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	logger.LogPerformanceEntry(c.log.WithComponent("venue_feed"), "venue_feed", "api_request", time.Since(start), logger.Fields{
		"endpoint": endpoint,
	})

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	return body, nil
}

// firstToken returns the first non-whitespace byte of a JSON payload.
func firstToken(body []byte) byte {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
