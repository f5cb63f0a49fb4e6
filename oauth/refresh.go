// Package oauth keeps provider tokens in the oauth_tokens table fresh. A
// background refresher wakes on a jittered interval and renews any token whose
// remaining lifetime falls inside the configured window; readers pull the
// current access token back out of the table.
package oauth

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/steamyplank/clanwatch/db"
)

// RefreshFunc performs provider-specific refresh and returns
// (access, refresh, expiry, scope).
type RefreshFunc func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error)

// SeedToken writes the initial token row for a provider unless the table
// already holds a refresh token. A row written by a previous run is newer
// than anything in the environment, so existing rows win.
func SeedToken(ctx context.Context, dbx *sql.DB, provider, access, refresh string, expiry time.Time, scope string) error {
	_, existingRefresh, _, _, err := db.GetOAuthToken(ctx, dbx, provider)
	if err != nil {
		return err
	}
	if existingRefresh != "" {
		return nil
	}
	return db.UpsertOAuthToken(ctx, dbx, provider, access, refresh, expiry, scope)
}

// AccessToken returns the provider's current access token from the table,
// falling back to the given value when the row is missing or empty.
func AccessToken(ctx context.Context, dbx *sql.DB, provider, fallback string) string {
	access, _, _, _, err := db.GetOAuthToken(ctx, dbx, provider)
	if err != nil || access == "" {
		return fallback
	}
	return access
}

// StartRefresher launches a goroutine that periodically checks a provider's
// token row and refreshes it when expiry falls within the window.
// interval: how often to wake up and check.
// window: refresh when remaining lifetime <= window.
func StartRefresher(ctx context.Context, dbx *sql.DB, provider string, interval, window time.Duration, fn RefreshFunc) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	go func() {
		// Randomized initial delay spreads load across instances.
		//nolint:gosec // G404: math/rand is sufficient for scheduling jitter
		if !sleepCtx(ctx, time.Duration(rand.Int63n(int64(interval/2)))) {
			return
		}
		for {
			if !sleepCtx(ctx, jittered(interval)) {
				return
			}
			refreshOnce(ctx, dbx, provider, window, fn)
		}
	}()
}

// jittered spreads wakeups +-20% around the interval, floored at half of it.
func jittered(interval time.Duration) time.Duration {
	span := int64(interval / 5)
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter
	next := interval + time.Duration(rand.Int63n(span*2)-span)
	if next < interval/2 {
		next = interval / 2
	}
	return next
}

// sleepCtx waits for d, returning false when the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// refreshOnce renews the provider's token if it expires within the window.
// Empty refresh or scope values from the provider keep their stored values.
func refreshOnce(ctx context.Context, dbx *sql.DB, provider string, window time.Duration, fn RefreshFunc) {
	_, refresh, expiry, scope, err := db.GetOAuthToken(ctx, dbx, provider)
	if err != nil || refresh == "" {
		return
	}
	if time.Until(expiry) > window {
		return
	}
	// Small pre-refresh jitter avoids stampedes when replicas share an expiry.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter
	if !sleepCtx(ctx, time.Duration(rand.Int63n(int64(5*time.Second)))) {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	newAccess, newRefresh, newExpiry, newScope, err := fn(rctx, refresh)
	cancel()
	if err != nil {
		slog.Warn("token refresh failed", slog.String("provider", provider), slog.Any("err", err))
		return
	}
	if newRefresh == "" {
		newRefresh = refresh
	}
	if newScope == "" {
		newScope = scope
	}
	if err := db.UpsertOAuthToken(ctx, dbx, provider, newAccess, newRefresh, newExpiry, strings.TrimSpace(newScope)); err != nil {
		slog.Warn("token persist failed", slog.String("provider", provider), slog.Any("err", err))
		return
	}
	slog.Info("token refreshed", slog.String("provider", provider))
}
