// Command server runs the points ledger HTTP API and the reconciliation job.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ecohood/points-ledger/internal/api/handlers"
	"github.com/ecohood/points-ledger/internal/cache"
	"github.com/ecohood/points-ledger/internal/catalog"
	"github.com/ecohood/points-ledger/internal/config"
	"github.com/ecohood/points-ledger/internal/migrations"
	"github.com/ecohood/points-ledger/internal/notify"
	"github.com/ecohood/points-ledger/internal/repository"
	"github.com/ecohood/points-ledger/internal/service/badges"
	"github.com/ecohood/points-ledger/internal/service/donations"
	"github.com/ecohood/points-ledger/internal/service/ledger"
	"github.com/ecohood/points-ledger/internal/service/pickups"
	"github.com/ecohood/points-ledger/internal/service/reconcile"
	"github.com/ecohood/points-ledger/internal/service/redemptions"
	"github.com/ecohood/points-ledger/internal/service/settings"
	"github.com/ecohood/points-ledger/internal/service/vouchers"
	"github.com/ecohood/points-ledger/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to the config file")
	flag.Parse()

	// Missing .env is fine outside development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	db, err := repository.NewDB(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	if err := migrate(cfg, db, log); err != nil {
		return err
	}

	settingsSvc := settings.NewService(repository.NewSettingsRepository(db), log)
	defaults, err := settings.FromConfig(&cfg.Points)
	if err != nil {
		return err
	}
	if err := settingsSvc.Seed(context.Background(), defaults); err != nil {
		return err
	}

	if err := seedCatalog(cfg.Catalog.Path, db, log); err != nil {
		return err
	}

	checks := map[string]handlers.HealthCheck{
		"database": func(context.Context) error { return db.Health() },
	}

	dispatcher := notify.NewMulti(log)
	var inbox *notify.RedisInbox
	if cfg.Notifications.RedisInbox.Enabled {
		redisCache, err := cache.NewCache(&cfg.Database.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = redisCache.Close() }()

		inbox = notify.NewRedisInbox(redisCache.Client(), &cfg.Notifications.RedisInbox)
		dispatcher.Add("redis", inbox)
		checks["redis"] = redisCache.Health
		log.Info().Str("addr", cfg.Database.Redis.Addr()).Msg("Redis notification inbox enabled")
	}
	webhook := notify.NewWebhook(&cfg.Notifications.Webhook, log)
	if cfg.Notifications.Webhook.Enabled {
		dispatcher.Add("webhook", webhook)
	}

	ledgerSvc := ledger.NewService(db, log)
	services := handlers.Services{
		Ledger:      ledgerSvc,
		Badges:      badges.NewService(repository.NewBadgeRepository(db), repository.NewUserRepository(db), dispatcher, log),
		Pickups:     pickups.NewService(db, ledgerSvc, dispatcher, log),
		Donations:   donations.NewService(db, ledgerSvc, dispatcher, log),
		Redemptions: redemptions.NewService(db, ledgerSvc, dispatcher, log),
		Vouchers:    vouchers.NewService(db, ledgerSvc, dispatcher, log),
		Settings:    settingsSvc,
	}
	if inbox != nil {
		services.Inbox = inbox
	}

	reconciler := reconcile.NewService(&cfg.Scheduler, repository.NewLedgerRepository(db), webhook, log)
	if err := reconciler.Start(); err != nil {
		return err
	}
	defer reconciler.Stop()

	if strings.EqualFold(cfg.Server.Environment, "production") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.NewHandler(services, log), handlers.RouterOptions{
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		Checks:         checks,
	}, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Gracefully shutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

func migrate(cfg *config.Config, db *repository.DB, log *logger.Logger) error {
	switch strings.ToLower(cfg.Database.Driver) {
	case "postgres", "postgresql":
		return migrations.Up(cfg.Database.Postgres.URL(), log)
	default:
		if !cfg.Database.AutoMigrate {
			return nil
		}
		if err := db.AutoMigrate(); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info().Msg("Database schema migrated")
		return nil
	}
}

func seedCatalog(path string, db *repository.DB, log *logger.Logger) error {
	if path == "" {
		return nil
	}
	items, err := catalog.Load(path)
	if err != nil {
		return err
	}
	if err := repository.NewCatalogRepository(db).Upsert(items); err != nil {
		return err
	}
	log.Info().Int("items", len(items)).Str("path", path).Msg("Item catalog loaded")
	return nil
}
