// Package ratesapi fetches electricity rate rows from a PostgREST-style
// rates table, such as a Supabase project's electricity_rates.
package ratesapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/store"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	selectColumns  = "region,currency,tariff_type,single_rate_per_kwh,day_rate_per_kwh,peak_rate_per_kwh,night_rate_per_kwh,day_start,peak_start,night_start"
)

var (
	// ErrUnauthorized indicates the API key was rejected.
	ErrUnauthorized = errors.New("ratesapi: unauthorized (api key missing or invalid)")
	// ErrRateLimited indicates the API rate limit was hit.
	ErrRateLimited = errors.New("ratesapi: rate limited")
)

// Client reads the remote rates table.
type Client struct {
	baseURL string
	apiKey  string
	table   string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a client for the project at baseURL.
// Returns nil if the URL or key is empty.
func NewClient(baseURL, apiKey, table string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiKey = strings.TrimSpace(apiKey)
	if baseURL == "" || apiKey == "" {
		return nil
	}
	if table == "" {
		table = "electricity_rates"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		table:   table,
		timeout: timeout,
		http:    &http.Client{},
	}
}

// FromConfig builds a client from the [rates] section, or returns nil when
// no remote is configured.
func FromConfig(cfg config.Config) *Client {
	return NewClient(cfg.Rates.URL, config.GetRatesAPIKey(cfg), cfg.Rates.Table,
		time.Duration(cfg.Rates.Timeout)*time.Second)
}

// GetRate returns the first row matching region, currency and tariff type.
// The tariff type is matched case-insensitively since rows are keyed
// "Single"/"Multi" upstream. A miss wraps store.ErrNotFound so callers treat
// it like a local miss.
func (c *Client) GetRate(ctx context.Context, region, currency, tariffType string) (config.RateRow, error) {
	q := url.Values{}
	q.Set("select", selectColumns)
	q.Set("region", "eq."+region)
	q.Set("currency", "eq."+currency)
	q.Set("tariff_type", "ilike."+tariffType)
	q.Set("limit", "1")

	rows, err := c.fetch(ctx, q)
	if err != nil {
		return config.RateRow{}, err
	}
	if len(rows) == 0 {
		return config.RateRow{}, fmt.Errorf("ratesapi: rate %s/%s/%s: %w", region, currency, tariffType, store.ErrNotFound)
	}
	return rows[0], nil
}

// FetchAll returns every row of the rates table.
func (c *Client) FetchAll(ctx context.Context) ([]config.RateRow, error) {
	q := url.Values{}
	q.Set("select", selectColumns+",updated_at")
	q.Set("order", "region.asc,currency.asc,tariff_type.asc")
	return c.fetch(ctx, q)
}

func (c *Client) fetch(ctx context.Context, q url.Values) ([]config.RateRow, error) {
	body, err := c.get(ctx, "/rest/v1/"+url.PathEscape(c.table)+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var raw []rawRow
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("ratesapi: parsing rates: %w", err)
	}
	rows := make([]config.RateRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, r.toRow())
	}
	return rows, nil
}

// get performs an authenticated GET request and returns the response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("ratesapi: creating request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "github.com/AliTumkaya-new/CarbonCAM/1.0")

	//nolint:gosec // URL is the configured rates endpoint
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ratesapi: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ratesapi: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("ratesapi: reading response: %w", err)
	}
	return body, nil
}

// parseRate defensively parses a rate column that may arrive as a JSON
// number, a numeric string ("1.45", "1,45") or null.
func parseRate(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return &v
		}
	}
	return nil
}
