// Package chat listens to the relay channel that mirrors in-game clan chat
// and feeds each cleaned line to the ingestion pipeline.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// LineHandler receives one cleaned relay line.
type LineHandler interface {
	Process(ctx context.Context, line string)
}

// TokenProvider returns the current IRC OAuth token. The listener re-reads it
// periodically so a token refreshed behind its back is picked up on the next
// reconnect.
type TokenProvider func(ctx context.Context) string

// tokenRecheckInterval bounds how stale the client's token can be relative to
// the refresher's writes.
const tokenRecheckInterval = time.Minute

// StripRelayPrefix removes the relay bot's decorative lead-in. The relay
// prepends a glyph token ending in ">" before the game line and escapes
// punctuation with backslashes; both are stripped so the rule table sees the
// line as the game emitted it.
func StripRelayPrefix(msg string) string {
	if i := strings.IndexByte(msg, '>'); i >= 0 {
		msg = msg[i+1:]
	}
	msg = strings.ReplaceAll(msg, "\\", "")
	return strings.TrimSpace(msg)
}

// StartRelayListener joins the relay channel and blocks until the context is
// cancelled, handing every message to the handler. Connection errors are
// logged; the IRC client reconnects on its own, using whatever token the
// provider last returned.
func StartRelayListener(ctx context.Context, h LineHandler, channel, username string, token TokenProvider) {
	client := twitch.NewClient(username, token(ctx))

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		line := StripRelayPrefix(msg.Message)
		if line == "" {
			return
		}
		h.Process(ctx, line)
	})

	// Keep the client's token current so reconnects authenticate with the
	// latest refreshed token rather than the one from process start.
	go func() {
		ticker := time.NewTicker(tokenRecheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if tok := token(ctx); tok != "" {
					client.SetIRCToken(tok)
				}
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		client.Disconnect()
		close(done)
	}()

	client.Join(channel)
	slog.Info("joined relay channel", slog.String("channel", channel))
	if err := client.Connect(); err != nil {
		slog.Error("relay connect error", slog.Any("err", err))
	}
	<-done
}
