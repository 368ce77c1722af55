// Package market fetches quotes from the configured price API, rate limited
// and cached through the store so the snapshot job and the dashboard never
// hammer the upstream.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/patrimoine-app/patrimoine/internal/config"
	"github.com/patrimoine-app/patrimoine/internal/model"
	"github.com/patrimoine-app/patrimoine/internal/store"
)

// Client talks to the quote API. It implements valuation.PriceSource.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	store      store.Store
	cacheTTL   time.Duration
}

// NewClient creates a quote client backed by the store's quote cache.
func NewClient(cfg config.MarketConfig, st store.Store) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 2
	}
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		store:      st,
		cacheTTL:   ttl,
	}
}

type quoteResponse struct {
	Symbol   string      `json:"symbol"`
	Price    json.Number `json:"price"`
	Currency string      `json:"currency"`
}

// Price returns the current price for a symbol, preferring the cache. Cache
// read/write failures degrade to a live fetch with a warning; fetch failures
// propagate.
func (c *Client) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if cached, err := c.store.GetCachedQuote(ctx, symbol); err != nil {
		zap.L().Warn("market: quote cache read failed",
			zap.String("symbol", symbol), zap.Error(err))
	} else if cached != nil {
		return cached.Price, nil
	}

	q, err := c.fetch(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.store.SetCachedQuote(ctx, *q, c.cacheTTL); err != nil {
		zap.L().Warn("market: quote cache write failed",
			zap.String("symbol", symbol), zap.Error(err))
	}
	return q.Price, nil
}

func (c *Client) fetch(ctx context.Context, symbol string) (*model.Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "market: rate limiter")
	}

	u := fmt.Sprintf("%s/quote?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "market: build request %s", symbol)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "market: fetch quote %s", symbol)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("market: quote %s: status %d", symbol, resp.StatusCode)
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrapf(err, "market: decode quote %s", symbol)
	}
	price, err := decimal.NewFromString(body.Price.String())
	if err != nil {
		return nil, eris.Wrapf(err, "market: quote %s price %q", symbol, body.Price)
	}

	return &model.Quote{
		Symbol:    symbol,
		Price:     price,
		Currency:  body.Currency,
		FetchedAt: time.Now().UTC(),
	}, nil
}
