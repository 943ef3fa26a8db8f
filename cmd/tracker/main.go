package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Vodeneev/livebet/internal/pkg/config"
	"github.com/Vodeneev/livebet/internal/pkg/enums"
	"github.com/Vodeneev/livebet/internal/pkg/logging"
	"github.com/Vodeneev/livebet/internal/pkg/metrics"
	"github.com/Vodeneev/livebet/internal/pkg/storage"
	"github.com/Vodeneev/livebet/internal/tracker/api"
	"github.com/Vodeneev/livebet/internal/tracker/provider"
	"github.com/Vodeneev/livebet/internal/tracker/tracking"
	"github.com/Vodeneev/livebet/internal/tracker/watch"
)

const serviceName = "tracker"

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file (can be set via CONFIG_PATH env var)")
	flag.Parse()

	path := config.ResolvePath(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", path, err)
	}

	logger, closeLog, err := logging.SetupLogger(&cfg.Logging, serviceName)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer func() { _ = closeLog() }()
	logger.Info("Config loaded", "path", path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	clientOpts := []provider.Option{provider.WithMetrics(m), provider.WithLogger(logger)}
	if cfg.Redis.Addr != "" {
		cache, err := storage.NewRedisResponseCache(&cfg.Redis)
		if err != nil {
			// без кэша работаем напрямую с API
			logger.Warn("Redis unavailable, provider responses will not be cached", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer cache.Close()
			clientOpts = append(clientOpts, provider.WithCache(cache))
			logger.Info("Redis response cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	var (
		source   tracking.Provider
		fixtures api.FixtureSource
	)
	client, err := provider.NewClient(provider.ConfigFrom(cfg.Provider, cfg.Redis), clientOpts...)
	switch {
	case errors.Is(err, provider.ErrConfigMissing):
		logger.Warn("API_FOOTBALL_KEY is not set, tracking requests will fail with config_missing")
	case err != nil:
		logger.Error("Failed to create provider client", "error", err)
		os.Exit(1)
	default:
		source, fixtures = client, client
	}

	var store storage.TrackingStorage
	if cfg.Postgres.DSN != "" {
		pg, err := storage.NewPostgresTrackingStorage(&cfg.Postgres)
		if err != nil {
			logger.Error("Failed to initialize PostgreSQL storage", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := pg.Close(); err != nil {
				logger.Warn("Error closing PostgreSQL storage", "error", err)
			}
		}()
		store = pg
		logger.Info("PostgreSQL snapshot storage initialized")
	}

	svc := tracking.NewService(source,
		tracking.WithBookmakers(enums.DefaultBookmakerTable().WithOverrides(cfg.Tracking.BookmakerIDs)),
		tracking.WithDefaults(cfg.Tracking.DefaultBookmaker, cfg.Tracking.Capital, cfg.Tracking.KellyCap),
		tracking.WithMetrics(m),
		tracking.WithLogger(logger),
	)

	deps := api.Deps{
		Tracker:        svc,
		Fixtures:       fixtures,
		History:        store,
		Metrics:        m,
		Logger:         logger,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Service:        serviceName,
	}

	var watcher *watch.Watcher
	if len(cfg.Watch.Fixtures) > 0 {
		notifier := newNotifier(&cfg.Watch, logger)
		defer notifier.Stop()

		watchOpts := []watch.Option{
			watch.WithNotifier(notifier),
			watch.WithMetrics(m),
			watch.WithLogger(logger),
		}
		if store != nil {
			watchOpts = append(watchOpts, watch.WithStorage(store))
		}
		watcher = watch.New(svc, watch.FixturesFromConfig(cfg.Watch.Fixtures), cfg.Watch.Interval, watchOpts...)
		deps.Watcher = watcher

		if cfg.Watch.Enabled {
			if _, err := watcher.Start(ctx); err != nil {
				logger.Error("Failed to start watch", "error", err)
			}
		} else {
			logger.Info("Watch configured but disabled, start it with POST /api/v1/watch/start")
		}
	}

	addr, err := api.AddrFor(cfg.HTTP.Port)
	if err != nil {
		logger.Error("Invalid HTTP config", "error", err)
		os.Exit(1)
	}

	if err := api.NewServer(deps).Run(ctx, addr, cfg.HTTP.ReadHeaderTimeout); err != nil {
		logger.Error("HTTP server error", "error", err)
	}

	if watcher != nil {
		watcher.Stop()
	}
	logger.Info("Tracker stopped")
}

// newNotifier prefers Telegram and falls back to logging alerts.
func newNotifier(cfg *config.WatchConfig, logger *slog.Logger) watch.Notifier {
	if cfg.TelegramBotToken == "" || cfg.TelegramChatID == 0 {
		logger.Info("Telegram is not configured, watch alerts go to the log")
		return watch.LogNotifier{Logger: logger}
	}
	n, err := watch.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
	if err != nil {
		logger.Error("Failed to create telegram notifier, watch alerts go to the log", "error", err)
		return watch.LogNotifier{Logger: logger}
	}
	return n
}
