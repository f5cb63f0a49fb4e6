// Package webhook posts decorated event summaries to Discord-compatible
// webhook endpoints. Delivery is best effort: a handful of retries with
// backoff, then the failure is logged and dropped.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
)

// Client posts webhook payloads. The zero value uses http.DefaultClient and
// default retry settings.
type Client struct {
	HTTPClient  *http.Client
	MaxAttempts int
	Backoff     time.Duration
}

type payload struct {
	Content string `json:"content"`
}

// Post sends {"content": msg} to the webhook URL, retrying transient
// failures. A 2xx response is success; 4xx responses are not retried.
func (c *Client) Post(ctx context.Context, url, content string) error {
	body, err := json.Marshal(payload{Content: content})
	if err != nil {
		return err
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff * time.Duration(1<<(attempt-1))):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := hc.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		status := resp.StatusCode
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
		if status >= 200 && status < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook post failed: %d: %s", status, string(b))
		if status >= 400 && status < 500 {
			return lastErr
		}
	}
	return lastErr
}
