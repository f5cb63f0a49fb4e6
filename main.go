// Command clanwatch is the main entrypoint for the clan chat watcher.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Joins the relay channel and pipes every line through the ingestion
//     pipeline (classify, extract, bingo, persist, dispatch).
//   - Starts background jobs: Twitch/Kick streamer polling, roster summary,
//     and the Twitch user token refresher.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/steamyplank/clanwatch/chat"
	"github.com/steamyplank/clanwatch/classify"
	"github.com/steamyplank/clanwatch/config"
	"github.com/steamyplank/clanwatch/db"
	"github.com/steamyplank/clanwatch/kickapi"
	"github.com/steamyplank/clanwatch/oauth"
	"github.com/steamyplank/clanwatch/pipeline"
	"github.com/steamyplank/clanwatch/prices"
	"github.com/steamyplank/clanwatch/server"
	"github.com/steamyplank/clanwatch/streamers"
	"github.com/steamyplank/clanwatch/telemetry"
	"github.com/steamyplank/clanwatch/twitchapi"
	"github.com/steamyplank/clanwatch/webhook"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateDispatchReady(); err != nil {
		slog.Error("webhook route table incomplete", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics init
	telemetry.Init()

	// DB
	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.Migrate(context.Background(), database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pipeline wiring: bingo data, price index, extractor, store, dispatcher.
	bingo, err := classify.LoadBingo()
	if err != nil {
		slog.Error("bingo data load failed", slog.Any("err", err))
		os.Exit(1)
	}
	priceClient := prices.NewClient()
	extractor := &classify.Extractor{Prices: priceClient}
	store := &db.RecordStore{DB: database}
	dispatcher := &webhook.Client{}

	pipe, err := pipeline.New(extractor, bingo, store, dispatcher, cfg.WebhookURLs, cfg.DispatchEnabled)
	if err != nil {
		slog.Error("pipeline init failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Seed the twitch token row so the refresher has something to renew. The
	// IRC token doubles as the initial access token; a row left by a previous
	// run wins over the environment.
	if cfg.TwitchRefreshToken != "" {
		seeded := strings.TrimPrefix(cfg.IRCToken, "oauth:")
		if err := oauth.SeedToken(ctx, database, "twitch", seeded, cfg.TwitchRefreshToken, twitchapi.ComputeExpiry(0), "chat:read"); err != nil {
			slog.Warn("twitch token seed failed", slog.Any("err", err))
		}
	}

	// Relay listener reads its token through the oauth table so refreshed
	// tokens reach reconnects; the static env token is the fallback.
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Info("relay listener disabled", slog.Any("reason", err))
	} else {
		ircToken := func(tctx context.Context) string {
			if access := oauth.AccessToken(tctx, database, "twitch", ""); access != "" {
				return "oauth:" + strings.TrimPrefix(access, "oauth:")
			}
			return cfg.IRCToken
		}
		go chat.StartRelayListener(ctx, pipe, cfg.RelayChannel, cfg.BotUsername, ircToken)
	}

	// Streamer polling
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		hc := &twitchapi.HelixClient{
			AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
			ClientID:       cfg.TwitchClientID,
		}
		go streamers.StartTwitchPollJob(ctx, database, hc, dispatcher, cfg.LiveWebhookURL, cfg.TwitchStreamers, cfg.PollInterval)
	} else if len(cfg.TwitchStreamers) > 0 {
		slog.Warn("twitch streamers configured without client id/secret; twitch polling disabled")
	}
	go streamers.StartKickPollJob(ctx, database, kickapi.NewClient(), dispatcher, cfg.LiveWebhookURL, cfg.KickStreamers, cfg.PollInterval)
	go streamers.StartRosterJob(ctx, database, dispatcher, cfg.RosterWebhook, cfg.RosterInterval)

	// Twitch user token refresher (keeps the IRC user token fresh in oauth_tokens)
	oauth.StartRefresher(ctx, database, "twitch", 5*time.Minute, 15*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		res, err := twitchapi.RefreshUserToken(rctx, cfg.TwitchClientID, cfg.TwitchClientSecret, refreshToken, "")
		if err != nil {
			return "", "", time.Time{}, "", err
		}
		return res.AccessToken, res.RefreshToken, res.Expiry, res.Scope, nil
	})

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (health/status/metrics)
	go func() {
		if err := server.Start(ctx, database, cfg.ListenAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
