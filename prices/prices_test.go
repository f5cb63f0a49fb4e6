package prices

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/steamyplank/clanwatch/telemetry"
)

func newTestClient(url string) *Client {
	c := NewClient()
	c.BaseURL = url
	return c
}

func TestItemID(t *testing.T) {
	id, err := ItemID("BigBossHoss received special loot from a raid: Osmumten's fang.")
	if err != nil {
		t.Fatalf("ItemID error: %v", err)
	}
	if id != "26219" {
		t.Errorf("ItemID = %s, want 26219", id)
	}
	if _, err := ItemID("Someone received a drop: Bronze dagger."); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("err = %v, want ErrUnknownItem", err)
	}
}

func TestItemIDOrderStable(t *testing.T) {
	// A line naming two tracked items must always resolve to the one listed
	// first in the lookup table, no matter how often it is asked.
	line := "Trader swapped a Twisted bow for an Arcane prayer scroll."
	for i := 0; i < 50; i++ {
		id, err := ItemID(line)
		if err != nil {
			t.Fatalf("ItemID error: %v", err)
		}
		if id != "21079" {
			t.Fatalf("ItemID = %s, want 21079 (Arcane prayer scroll listed first)", id)
		}
	}
}

func TestLatestLow(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.URL.Query().Get("id"); got != "26219" {
			t.Errorf("id query = %s, want 26219", got)
		}
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Errorf("missing User-Agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"26219": map[string]int64{"high": 15000000, "low": 14790000},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	low, err := c.LatestLow(context.Background(), "26219")
	if err != nil {
		t.Fatalf("LatestLow error: %v", err)
	}
	if low != 14790000 {
		t.Errorf("LatestLow = %d, want 14790000", low)
	}

	// Second call must come from cache.
	if _, err := c.LatestLow(context.Background(), "26219"); err != nil {
		t.Fatalf("cached LatestLow error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls)
	}
}

func priceLookupSamples(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	if err := telemetry.PriceLookupDuration.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestLatestLowObservesDuration(t *testing.T) {
	telemetry.Init()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"21043":{"high":120000000,"low":118000000}}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	before := priceLookupSamples(t)
	if _, err := c.LatestLow(context.Background(), "21043"); err != nil {
		t.Fatalf("LatestLow error: %v", err)
	}
	if got := priceLookupSamples(t); got != before+1 {
		t.Errorf("histogram samples = %d, want %d (upstream fetch must be timed)", got, before+1)
	}
	// A cache hit skips the upstream call and is not timed.
	if _, err := c.LatestLow(context.Background(), "21043"); err != nil {
		t.Fatalf("cached LatestLow error: %v", err)
	}
	if got := priceLookupSamples(t); got != before+1 {
		t.Errorf("histogram samples = %d after cache hit, want %d", got, before+1)
	}
}

func TestLatestLowServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if _, err := c.LatestLow(context.Background(), "26219"); err == nil {
		t.Error("expected error on 502 response")
	}
}

func TestLatestLowMissingEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if _, err := c.LatestLow(context.Background(), "26219"); err == nil {
		t.Error("expected error when response has no entry for item")
	}
}

func TestLowPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"20997":{"high":1160000000,"low":1149489200}}}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	low, err := c.LowPrice(context.Background(), "Nokowt received a drop: Twisted bow.")
	if err != nil {
		t.Fatalf("LowPrice error: %v", err)
	}
	if low != 1149489200 {
		t.Errorf("LowPrice = %d, want 1149489200", low)
	}

	if _, err := c.LowPrice(context.Background(), "nothing tracked here"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("err = %v, want ErrUnknownItem", err)
	}
}
