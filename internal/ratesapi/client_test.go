package ratesapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/store"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/", "service-key", "", time.Second)
	if c == nil {
		t.Fatal("NewClient returned nil")
	}
	return c
}

func TestNewClient_RequiresURLAndKey(t *testing.T) {
	if NewClient("", "k", "", 0) != nil {
		t.Fatal("empty url should yield nil client")
	}
	if NewClient("https://x.supabase.co", "  ", "", 0) != nil {
		t.Fatal("empty key should yield nil client")
	}
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")
	if FromConfig(config.DefaultConfig()) != nil {
		t.Fatal("default config has no remote")
	}
}

func TestGetRate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/electricity_rates" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("apikey") != "service-key" || r.Header.Get("Authorization") != "Bearer service-key" {
			t.Errorf("auth headers = %v", r.Header)
		}
		q := r.URL.Query()
		if q.Get("region") != "eq.TR" || q.Get("currency") != "eq.TRY" || q.Get("tariff_type") != "ilike.multi" || q.Get("limit") != "1" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[{"region":"TR","currency":"TRY","tariff_type":"multi",
			"single_rate_per_kwh":null,"day_rate_per_kwh":2.05,"peak_rate_per_kwh":"3.10",
			"night_rate_per_kwh":"1,25","day_start":"06:00:00","peak_start":null,"night_start":"22:00:00"}]`))
	})

	row, err := c.GetRate(context.Background(), "TR", "TRY", "multi")
	if err != nil {
		t.Fatalf("GetRate: %v", err)
	}
	if row.Single != nil {
		t.Fatalf("single = %v, want nil", *row.Single)
	}
	if row.Day == nil || *row.Day != 2.05 {
		t.Fatalf("day = %v", row.Day)
	}
	if row.Peak == nil || *row.Peak != 3.10 {
		t.Fatalf("peak (string) = %v", row.Peak)
	}
	if row.Night == nil || *row.Night != 1.25 {
		t.Fatalf("night (comma decimal) = %v", row.Night)
	}
	if row.DayStart != "06:00:00" || row.PeakStart != "" {
		t.Fatalf("boundaries = %q %q", row.DayStart, row.PeakStart)
	}
}

func TestGetRate_MatchesCapitalisedTariff(t *testing.T) {
	// The upstream table keys rows as "Multi"; ilike matches without a
	// wildcard behave as case-insensitive equality.
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		op, value, ok := strings.Cut(q.Get("tariff_type"), ".")
		if !ok || (op == "eq" && value != "Multi") || (op == "ilike" && !strings.EqualFold(value, "Multi")) {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"region":"TR","currency":"TRY","tariff_type":"Multi","day_rate_per_kwh":2.5}]`))
	})

	row, err := c.GetRate(context.Background(), "TR", "TRY", "multi")
	if err != nil {
		t.Fatalf("GetRate: %v", err)
	}
	if row.TariffType != "Multi" {
		t.Fatalf("tariff type = %q, want Multi", row.TariffType)
	}
	if row.Day == nil || *row.Day != 2.5 {
		t.Fatalf("day = %v, want 2.5", row.Day)
	}
}

func TestGetRate_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	_, err := c.GetRate(context.Background(), "TR", "EUR", "single")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want store.ErrNotFound", err)
	}
}

func TestGetRate_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		})
		if _, err := c.GetRate(context.Background(), "TR", "TRY", "single"); !errors.Is(err, tt.want) {
			t.Fatalf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
	}

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if _, err := c.GetRate(context.Background(), "TR", "TRY", "single"); err == nil || errors.Is(err, store.ErrNotFound) {
		t.Fatalf("500: err = %v", err)
	}

	c = newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":"not a list"}`))
	})
	if _, err := c.GetRate(context.Background(), "TR", "TRY", "single"); err == nil {
		t.Fatal("non-list body should fail")
	}
}

func TestFetchAll(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("order") == "" {
			t.Errorf("FetchAll should order rows")
		}
		rows := []map[string]any{
			{"region": "TR", "currency": "TRY", "tariff_type": "single", "single_rate_per_kwh": 1.45, "updated_at": "2026-03-01T08:00:00.123+03:00"},
			{"region": "TR", "currency": "TRY", "tariff_type": "multi", "day_rate_per_kwh": 2},
		}
		_ = json.NewEncoder(w).Encode(rows)
	})

	rows, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	want := time.Date(2026, 3, 1, 5, 0, 0, 123000000, time.UTC)
	if !rows[0].UpdatedAt.Equal(want) {
		t.Fatalf("updated_at = %v, want %v", rows[0].UpdatedAt, want)
	}
	if rows[1].Day == nil || *rows[1].Day != 2 || rows[1].Single != nil {
		t.Fatalf("multi row = %+v", rows[1])
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{`1.5`, f64(1.5)},
		{`"0.8"`, f64(0.8)},
		{`" 2,5 "`, f64(2.5)},
		{`null`, nil},
		{``, nil},
		{`"abc"`, nil},
		{`true`, nil},
	}
	for _, tt := range tests {
		got := parseRate(json.RawMessage(tt.raw))
		switch {
		case tt.want == nil && got != nil:
			t.Fatalf("parseRate(%s) = %v, want nil", tt.raw, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Fatalf("parseRate(%s) = %v, want %v", tt.raw, got, *tt.want)
		}
	}
}

func f64(v float64) *float64 { return &v }
