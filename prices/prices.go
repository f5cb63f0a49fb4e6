// Package prices queries the OSRS wiki real-time price index for items that
// arrive without an inline coin value. Lookups are keyed by a static
// name-to-id table covering the raid uniques the clan tracks; results are
// cached with a short TTL so a burst of identical drops does not hammer the
// API.
package prices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/steamyplank/clanwatch/telemetry"
)

const (
	defaultBaseURL   = "https://prices.runescape.wiki/api/v1/osrs/latest"
	defaultUserAgent = "clanwatch drop tracker"
	defaultTimeout   = 8 * time.Second
)

// ErrUnknownItem means no entry of the lookup table appears in the line. The
// query would be malformed without an id, so this fails explicitly instead of
// silently pricing at zero.
var ErrUnknownItem = errors.New("item not in price lookup table")

// itemIDs maps tracked item names to wiki item ids. The slice keeps lookup
// order fixed so a line mentioning two tracked items always resolves to the
// same one.
var itemIDs = []struct{ name, id string }{
	// CoX
	{"Arcane prayer scroll", "21079"},
	{"Dexterous prayer scroll", "21034"},
	{"Twisted buckler", "21000"},
	{"Dragon hunter crossbow", "21012"},
	{"Dinh's bulwark", "21015"},
	{"Ancestral hat", "21018"},
	{"Ancestral robe top", "21021"},
	{"Ancestral robe bottom", "21024"},
	{"Dragon claws", "13652"},
	{"Elder maul", "21003"},
	{"Kodai insignia", "21043"},
	{"Twisted bow", "20997"},
	// ToA
	{"Osmumten's fang", "26219"},
	{"Lightbearer", "25975"},
	{"Elidinis' ward", "25985"},
	{"Masori mask", "27226"},
	{"Masori body", "27229"},
	{"Masori chaps", "27232"},
	{"Tumeken's shadow (uncharged)", "27277"},
	// ToB
	{"Avernic defender hilt", "22477"},
	{"Ghrazi rapier", "22324"},
	{"Sanguinesti staff (uncharged)", "22481"},
	{"Justiciar faceguard", "22326"},
	{"Justiciar chestguard", "22327"},
	{"Justiciar legguards", "22328"},
	{"Scythe of vitur (uncharged)", "22486"},
}

// Client talks to the price index. The zero value is not usable; construct
// with NewClient.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client

	cache *gocache.Cache
}

// NewClient returns a client with a bounded request timeout and a 5 minute
// price cache.
func NewClient() *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		UserAgent:  defaultUserAgent,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		cache:      gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// ItemID resolves the first lookup-table entry mentioned in the line.
func ItemID(line string) (string, error) {
	for _, entry := range itemIDs {
		if strings.Contains(line, entry.name) {
			return entry.id, nil
		}
	}
	return "", ErrUnknownItem
}

// LatestLow fetches the current "low" price for an item id, in coins. Cache
// misses are timed into the price-lookup histogram.
func (c *Client) LatestLow(ctx context.Context, itemID string) (int64, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(itemID); ok {
			return v.(int64), nil
		}
	}
	var low int64
	var err error
	telemetry.TimeFunc(telemetry.PriceLookupDuration, func() {
		low, err = c.fetchLow(ctx, itemID)
	})
	if err != nil {
		return 0, err
	}
	if c.cache != nil {
		c.cache.Set(itemID, low, gocache.DefaultExpiration)
	}
	return low, nil
}

func (c *Client) fetchLow(ctx context.Context, itemID string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return 0, err
	}
	q := req.URL.Query()
	q.Set("id", itemID)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", c.UserAgent)
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("price index request failed: %s: %s", resp.Status, string(b))
	}
	var body struct {
		Data map[string]struct {
			High int64 `json:"high"`
			Low  int64 `json:"low"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	entry, ok := body.Data[itemID]
	if !ok {
		return 0, fmt.Errorf("price index has no entry for item %s", itemID)
	}
	return entry.Low, nil
}

// LowPrice resolves an item mentioned in a line to its current low price.
// It satisfies the classifier's PriceIndex interface.
func (c *Client) LowPrice(ctx context.Context, line string) (int64, error) {
	id, err := ItemID(line)
	if err != nil {
		return 0, err
	}
	return c.LatestLow(ctx, id)
}
