package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/gateway"
	"github.com/vladislavdragonenkov/storefront/internal/gateway/httpclient"
	redisstore "github.com/vladislavdragonenkov/storefront/internal/storage/redis"

	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// Dependencies содержит зависимости приложения.
type Dependencies struct {
	Cart         domain.CartStore
	Ledger       domain.PendingPaymentLedger
	TimelineRepo domain.TimelineRepository
	OutboxRepo   domain.OutboxRepository
	Gateway      domain.OrderGateway
	Logger       *log.Entry

	// MarkerDeleter установлен для леджеров, требующих периодической
	// уборки (memory, postgres). Redis чистит себя через TTL.
	MarkerDeleter domain.ExpiredMarkerDeleter

	// closers — ресурсы, которые нужно закрыть при остановке.
	closers []func() error
}

// NewDependencies собирает зависимости по конфигурации.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Cart:         memory.NewCartStore(),
		TimelineRepo: memory.NewTimelineRepository(),
		OutboxRepo:   memory.NewOutboxRepository(),
		Logger:       logger,
	}

	if err := deps.initLedger(ctx, cfg, logger); err != nil {
		return nil, err
	}

	if cfg.BackendBaseURL != "" {
		deps.Gateway = httpclient.New(cfg.BackendBaseURL, cfg.BackendToken, logger.WithField("component", "order-gateway"))
	} else {
		// Dev-режим: mock-шлюз с успешным сценарием по умолчанию.
		logger.Warn("BACKEND_BASE_URL is empty, using the mock order gateway")
		deps.Gateway = gateway.NewMockGateway()
	}

	return deps, nil
}

func (d *Dependencies) initLedger(ctx context.Context, cfg Config, logger *log.Entry) error {
	switch cfg.LedgerDriver {
	case "", LedgerDriverMemory:
		ledger := memory.NewPendingLedger(logger.WithField("component", "pending-ledger"))
		d.Ledger = ledger
		d.MarkerDeleter = ledger
		return nil

	case LedgerDriverRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		d.Ledger = redisstore.NewPendingLedger(client, logger.WithField("component", "pending-ledger"))
		d.closers = append(d.closers, client.Close)
		return nil

	case LedgerDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return fmt.Errorf("ensure schema: %w", err)
		}
		ledger := postgres.NewPendingLedger(store, logger.WithField("component", "pending-ledger"))
		d.Ledger = ledger
		d.MarkerDeleter = ledger
		d.closers = append(d.closers, store.Close)
		return nil

	default:
		return fmt.Errorf("unknown ledger driver %q", cfg.LedgerDriver)
	}
}

// Close освобождает ресурсы зависимостей.
func (d *Dependencies) Close() {
	for _, closer := range d.closers {
		if err := closer(); err != nil {
			d.Logger.WithError(err).Warn("failed to close dependency")
		}
	}
}
