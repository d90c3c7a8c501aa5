// Command studybot is the main entrypoint for the Sunnie-BOT study bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects the row store (Google Sheets, Postgres, or in-memory).
//   - Starts background workers: chat poller, optional Twitch mirror,
//     scheduled announcer, credential refresher, and the command dispatcher.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM. Missing bot credentials degrade the
// service (HTTP stays up, dispatcher doesn't start) rather than crash it.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/api/option"

	"github.com/sunniebot/studybot/announce"
	"github.com/sunniebot/studybot/bot"
	"github.com/sunniebot/studybot/buddy"
	"github.com/sunniebot/studybot/config"
	"github.com/sunniebot/studybot/pomo"
	"github.com/sunniebot/studybot/progress"
	"github.com/sunniebot/studybot/remind"
	"github.com/sunniebot/studybot/rowstore"
	"github.com/sunniebot/studybot/server"
	"github.com/sunniebot/studybot/telemetry"
	"github.com/sunniebot/studybot/twitchchat"
	"github.com/sunniebot/studybot/ytchat"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

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

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("sunnie-bot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Row store
	var store rowstore.Store
	switch cfg.RowStoreBackend {
	case "sheets":
		var opts []option.ClientOption
		if cfg.SheetsSAJSON != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.SheetsSAJSON))
		}
		s, err := rowstore.NewSheetsStore(ctx, cfg.SpreadsheetID, opts...)
		if err != nil {
			slog.Error("sheets row store init failed", slog.Any("err", err))
			os.Exit(1)
		}
		store = s
	case "postgres":
		s, err := rowstore.NewPostgresStore(ctx, cfg.DBDsn)
		if err != nil {
			slog.Error("postgres row store init failed", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := s.Close(); err != nil {
				slog.Error("failed to close row store", slog.Any("err", err))
			}
		}()
		store = s
	default:
		store = rowstore.NewMemoryStore()
	}
	slog.Info("row store connected", slog.String("backend", cfg.RowStoreBackend))

	// Feature services
	locks := progress.NewUserLocks()
	prog := progress.New(store, locks)

	// Bot wiring: everything below needs live chat credentials; without them
	// the HTTP server still runs and reports degraded readiness.
	var (
		client    *ytchat.Client
		announcer *announce.Announcer
		pomos     *pomo.Manager
	)
	if err := cfg.ValidateBotReady(); err != nil {
		slog.Warn("bot not starting; serving HTTP only", slog.Any("err", err))
	} else {
		pool, err := ytchat.NewPool(cfg.Credentials)
		if err != nil {
			slog.Error("credential pool init failed", slog.Any("err", err))
			os.Exit(1)
		}
		client, err = ytchat.NewClient(pool, cfg.VideoID)
		if err != nil {
			slog.Error("chat client init failed", slog.Any("err", err))
			os.Exit(1)
		}

		announcer = announce.New(client, announce.DefaultRules)
		pomos = pomo.New(prog, client)
		buddies := buddy.New(store, prog)
		reminders := remind.New(store, client)

		b := &bot.Bot{
			Poster:    client,
			Progress:  prog,
			Buddy:     buddies,
			Remind:    reminders,
			Pomo:      pomos,
			Announcer: announcer,
		}

		events := make(chan bot.Event, 64)
		var producers sync.WaitGroup
		producers.Add(1)
		go func() {
			defer producers.Done()
			poller := &ytchat.Poller{Client: client, Interval: cfg.ChatPollInterval}
			if err := poller.Run(ctx, events); err != nil && ctx.Err() == nil {
				slog.Error("chat poller exited", slog.Any("err", err))
			}
		}()
		if cfg.MirrorEnabled() {
			mirror := &twitchchat.Mirror{
				Channel:  cfg.TwitchChannel,
				Username: cfg.TwitchBotUsername,
				OAuth:    cfg.TwitchOAuthToken,
			}
			producers.Add(1)
			go func() {
				defer producers.Done()
				mirror.Run(ctx, events)
			}()
		}
		// The channel has multiple producers; it closes only after every one
		// has exited, never from inside a single producer.
		go func() {
			producers.Wait()
			close(events)
		}()
		go announcer.Run(ctx, time.Minute)
		go announcer.RunDailyReset(ctx, 24*time.Hour)
		ytchat.StartRefresher(ctx, pool, 10*time.Minute, 20*time.Minute)
		go b.Run(ctx, events)
	}

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

	// HTTP server (health/readiness/status/metrics/admin)
	var live server.LiveChecker
	if client != nil {
		live = client
	}
	handlers := server.NewHandlers(ctx, cfg, store, live, announcer, pomos)
	go func() {
		if err := server.Start(ctx, handlers, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
