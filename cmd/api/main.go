// cmd/api/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/storefront"
	"github.com/your-org/storefront/internal/infrastructure/database/pebble"
	"github.com/your-org/storefront/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront/internal/infrastructure/database/redis"
	"github.com/your-org/storefront/internal/infrastructure/kv"
	httpserver "github.com/your-org/storefront/internal/interfaces/http"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/metrics"
)

const (
	sessionIdleTimeout = 2 * time.Hour
	sweepInterval      = 10 * time.Minute
)

// cartStorage is the selected backend plus what has to be released on exit
type cartStorage struct {
	factory   storefront.StorageFactory
	rateLimit goredis.Cmdable
	check     httpserver.HealthChecker
	close     func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.New(cfg)
	log.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"storage":     cfg.Storage.Backend,
	}).Info("Starting storefront")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	checks := map[string]httpserver.HealthChecker{}

	storage, err := openStorage(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open cart storage")
	}
	defer storage.close()
	if storage.check != nil {
		checks[cfg.Storage.Backend] = storage.check
	}

	// Optional checkout attempt ledger
	var recorder checkout.Recorder
	var history handlers.AttemptHistory
	if cfg.LedgerEnabled() {
		db, err := postgres.NewConnection(cfg, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		migration := postgres.NewMigration(db.GetDB(), log)
		if err := migration.RunAutoMigrations(); err != nil {
			log.WithError(err).Fatal("Database migration failed")
		}
		if err := migration.CreateIndexes(); err != nil {
			log.WithError(err).Warn("Index creation failed")
		}

		repo := postgres.NewAttemptRepository(db.GetDB())
		recorder, history = repo, repo
		checks["database"] = db
	} else {
		log.Info("DB_HOST not set, checkout attempt ledger disabled")
	}

	products := catalog.Sample()
	gateway := payment.NewClient(cfg.Gateway, log.WithField("component", "payment"), reg)
	widget := payment.NewHostedWidget(cfg.Widget.ScriptURL, &http.Client{Timeout: cfg.Gateway.Timeout}, log.WithField("component", "widget"))

	// warm the widget cache; checkout retries the load on demand
	go func() {
		if err := widget.Load(ctx); err != nil {
			log.WithError(err).Warn("Payment widget preload failed")
		}
	}()

	sessions := storefront.NewManager(ctx, storefront.Dependencies{
		Storage:     storage.factory,
		Catalog:     products,
		Gateway:     gateway,
		Widget:      widget,
		Recorder:    recorder,
		Metrics:     reg,
		Log:         log,
		BrandName:   cfg.App.BrandName,
		Description: cfg.Widget.Description,
	})
	go sweepSessions(ctx, sessions)

	server := httpserver.NewServer(cfg, log, httpserver.Dependencies{
		Sessions:       sessions,
		Catalog:        products,
		Widget:         widget,
		History:        history,
		RateLimitStore: storage.rateLimit,
		Metrics:        reg,
		Checks:         checks,
	})

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	log.Info("Server shutdown completed")
}

func openStorage(cfg *config.Config, log *logrus.Logger) (*cartStorage, error) {
	switch cfg.Storage.Backend {
	case config.StorageRedis:
		client, err := redis.NewConnection(cfg, log)
		if err != nil {
			return nil, err
		}
		rdb := client.GetClient()
		return &cartStorage{
			factory: func(sessionID string) kv.Store {
				return redis.NewStore(rdb, kv.SessionPrefix(sessionID))
			},
			rateLimit: rdb,
			check:     client,
			close:     client.Close,
		}, nil

	case config.StoragePebble:
		store, err := pebble.Open(cfg.Storage.PebbleDir)
		if err != nil {
			return nil, err
		}
		log.WithField("dir", cfg.Storage.PebbleDir).Info("Pebble cart storage opened")
		return &cartStorage{
			factory: storefront.PrefixedStorage(store, kv.SessionPrefix),
			close:   store.Close,
		}, nil

	default:
		log.Warn("Cart storage is in memory, carts are lost on restart")
		return &cartStorage{
			factory: storefront.PrefixedStorage(kv.NewMemory(), kv.SessionPrefix),
			close:   func() error { return nil },
		}, nil
	}
}

func sweepSessions(ctx context.Context, sessions *storefront.Manager) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep(sessionIdleTimeout)
		}
	}
}
