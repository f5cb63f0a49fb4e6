// Package streamers runs the background polling jobs that track which clan
// streamers are live on Twitch and Kick. Offline-to-live edges post a
// notification; a separate job republishes the full roster summary on an
// interval.
package streamers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/steamyplank/clanwatch/db"
	"github.com/steamyplank/clanwatch/kickapi"
	"github.com/steamyplank/clanwatch/telemetry"
	"github.com/steamyplank/clanwatch/twitchapi"
)

// Dispatcher posts a message to a webhook URL.
type Dispatcher interface {
	Post(ctx context.Context, url, content string) error
}

// userResolver resolves a Twitch login to a user id.
type userResolver interface {
	GetUserID(ctx context.Context, login string) (string, error)
}

const (
	platformTwitch = "twitch"
	platformKick   = "kick"
)

// StartTwitchPollJob polls Helix for the configured logins on an interval and
// posts a notification on each offline-to-live edge. Blocks until the context
// is cancelled; run it in a goroutine.
func StartTwitchPollJob(ctx context.Context, dbx *sql.DB, hc *twitchapi.HelixClient, d Dispatcher, webhookURL string, logins []string, interval time.Duration) {
	if len(logins) == 0 {
		slog.Info("no twitch streamers configured; poll job idle")
		return
	}
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	validateTwitchLogins(ctx, hc, logins)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		pollTwitchOnce(ctx, dbx, hc, d, webhookURL, logins)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// validateTwitchLogins checks each configured login against Helix once at
// startup so typos surface in the log instead of polling silently forever.
func validateTwitchLogins(ctx context.Context, r userResolver, logins []string) {
	for _, login := range logins {
		if _, err := r.GetUserID(ctx, login); err != nil {
			slog.Warn("twitch login not resolvable", slog.String("login", login), slog.Any("err", err))
		}
	}
}

func pollTwitchOnce(ctx context.Context, dbx *sql.DB, hc *twitchapi.HelixClient, d Dispatcher, webhookURL string, logins []string) {
	telemetry.PollCycles.WithLabelValues(platformTwitch).Inc()
	streams, err := hc.GetStreams(ctx, logins)
	if err != nil {
		slog.Warn("twitch poll failed", slog.Any("err", err))
		return
	}
	for _, login := range logins {
		s, live := streams[strings.ToLower(login)]
		title := ""
		if live {
			title = s.Title
		}
		wasLive, err := db.GetStreamerLive(ctx, dbx, login, platformTwitch)
		if err != nil {
			slog.Warn("streamer status read failed", slog.String("login", login), slog.Any("err", err))
			continue
		}
		if err := db.UpsertStreamer(ctx, dbx, login, platformTwitch, live, title); err != nil {
			slog.Warn("streamer upsert failed", slog.String("login", login), slog.Any("err", err))
			continue
		}
		if live && !wasLive {
			notifyLive(ctx, d, webhookURL, login, "https://twitch.tv/"+login, title)
		}
	}
	updateLiveGauge(ctx, dbx)
}

// StartKickPollJob polls Kick channel slugs on an interval, mirroring the
// Twitch job's edge detection. Blocks until the context is cancelled.
func StartKickPollJob(ctx context.Context, dbx *sql.DB, kc *kickapi.Client, d Dispatcher, webhookURL string, slugs []string, interval time.Duration) {
	if len(slugs) == 0 {
		slog.Info("no kick streamers configured; poll job idle")
		return
	}
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		pollKickOnce(ctx, dbx, kc, d, webhookURL, slugs)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func pollKickOnce(ctx context.Context, dbx *sql.DB, kc *kickapi.Client, d Dispatcher, webhookURL string, slugs []string) {
	telemetry.PollCycles.WithLabelValues(platformKick).Inc()
	for _, slug := range slugs {
		st, err := kc.GetChannel(ctx, slug)
		if err != nil {
			slog.Warn("kick poll failed", slog.String("slug", slug), slog.Any("err", err))
			continue
		}
		wasLive, err := db.GetStreamerLive(ctx, dbx, slug, platformKick)
		if err != nil {
			slog.Warn("streamer status read failed", slog.String("slug", slug), slog.Any("err", err))
			continue
		}
		if err := db.UpsertStreamer(ctx, dbx, slug, platformKick, st.Live, st.Title); err != nil {
			slog.Warn("streamer upsert failed", slog.String("slug", slug), slog.Any("err", err))
			continue
		}
		if st.Live && !wasLive {
			notifyLive(ctx, d, webhookURL, slug, "https://kick.com/"+slug, st.Title)
		}
	}
	updateLiveGauge(ctx, dbx)
}

func notifyLive(ctx context.Context, d Dispatcher, webhookURL, login, link, title string) {
	if d == nil || webhookURL == "" {
		return
	}
	content := fmt.Sprintf(":red_circle: %s is now live! %s", login, link)
	if title != "" {
		content = fmt.Sprintf(":red_circle: %s is now live: %s %s", login, title, link)
	}
	telemetry.WebhookSends.Inc()
	if err := d.Post(ctx, webhookURL, content); err != nil {
		telemetry.WebhookFailures.Inc()
		slog.Warn("live notification failed", slog.String("login", login), slog.Any("err", err))
	}
}

func updateLiveGauge(ctx context.Context, dbx *sql.DB) {
	list, err := db.ListStreamers(ctx, dbx)
	if err != nil {
		return
	}
	n := 0
	for _, s := range list {
		if s.Live {
			n++
		}
	}
	telemetry.SetLiveStreamers(n)
}

// FormatRoster renders the live/offline summary posted by the roster job.
// Live streamers lead, each with a Discord relative timestamp of the last
// status change.
func FormatRoster(list []db.Streamer) string {
	sorted := append([]db.Streamer(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Live != sorted[j].Live {
			return sorted[i].Live
		}
		return sorted[i].Login < sorted[j].Login
	})
	var b strings.Builder
	b.WriteString("**Streamer roster**\n")
	for _, s := range sorted {
		state := ":black_circle: offline"
		if s.Live {
			state = ":red_circle: LIVE"
		}
		fmt.Fprintf(&b, "%s %s (%s) <t:%d:R>", state, s.Login, s.Platform, s.UpdatedAt.Unix())
		if s.Live && s.Title != "" {
			fmt.Fprintf(&b, " %s", s.Title)
		}
		b.WriteString("\n")
	}
	if len(sorted) == 0 {
		b.WriteString("no streamers tracked\n")
	}
	return b.String()
}

// StartRosterJob posts the roster summary on an interval. Blocks until the
// context is cancelled.
func StartRosterJob(ctx context.Context, dbx *sql.DB, d Dispatcher, webhookURL string, interval time.Duration) {
	if d == nil || webhookURL == "" {
		slog.Info("no roster webhook configured; roster job idle")
		return
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		list, err := db.ListStreamers(ctx, dbx)
		if err != nil {
			slog.Warn("roster read failed", slog.Any("err", err))
			continue
		}
		telemetry.WebhookSends.Inc()
		if err := d.Post(ctx, webhookURL, FormatRoster(list)); err != nil {
			telemetry.WebhookFailures.Inc()
			slog.Warn("roster post failed", slog.Any("err", err))
		}
	}
}
