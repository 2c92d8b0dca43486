package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/reconcile"
	"github.com/vladislavdragonenkov/storefront/internal/service/session"
	transport "github.com/vladislavdragonenkov/storefront/internal/transport/http"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Run собирает сервис по конфигурации и работает до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	orchestrator := createOrchestrator(deps, cfg, kafkaProducer)

	reconcileOpts := []reconcile.Option{}
	if kafkaProducer != nil {
		reconcileOpts = append(reconcileOpts, reconcile.WithKafka(kafkaProducer))
	}
	reconciler := reconcile.NewController(
		deps.Ledger,
		deps.Gateway,
		deps.OutboxRepo,
		deps.TimelineRepo,
		logger.WithField("component", "reconcile"),
		reconcileOpts...,
	)

	cartObserver := metrics.NewCartObserver(deps.Cart)

	router := transport.NewRouter(transport.RouterDeps{
		Cart:           deps.Cart,
		Orchestrator:   orchestrator,
		Reconciler:     reconciler,
		Gateway:        deps.Gateway,
		JWTSecret:      []byte(cfg.JWTSecret),
		Logger:         logger.WithField("layer", "http"),
		OnSession:      cartObserver.Track,
		RequestTimeout: cfg.RequestTimeout,
	})

	// Фоновые воркеры.
	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	if deps.MarkerDeleter != nil {
		cleanupWorker := session.NewCleanupWorker(
			deps.MarkerDeleter,
			session.WithLogger(logger.WithField("component", "marker-cleanup-worker")),
			session.WithInterval(cfg.CleanupInterval),
			session.WithBatchSize(cfg.CleanupBatchSize),
		)
		go cleanupWorker.Run(workersCtx)
	}

	if kafkaProducer != nil {
		outboxWorker := outbox.NewWorker(
			deps.OutboxRepo,
			kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicCheckoutEvents),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		)
		go outboxWorker.Run(workersCtx)
	}

	// Health-пробы: леджер проверяется полным циклом записи и чтения.
	v, _, _ := version.Info()
	healthHandler := healthcheck.NewHandler(v)
	healthHandler.RegisterChecker("ledger", healthcheck.NewSimpleChecker("ledger", func(ctx context.Context) error {
		probe := "healthz-" + uuid.NewString()
		deps.Ledger.SetPending(ctx, probe, "probe")
		_, ok := deps.Ledger.GetPending(ctx, probe)
		deps.Ledger.ClearPending(ctx, probe)
		if !ok {
			return errors.New("ledger probe write was not readable")
		}
		return nil
	}))
	healthHandler.RegisterChecker("outbox", healthcheck.NewSimpleChecker("outbox", func(context.Context) error {
		_, err := deps.OutboxRepo.Stats()
		return err
	}))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		stopWorkers()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("graceful shutdown превысил таймаут")
			_ = srv.Close()
		}
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()

	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// createOrchestrator создаёт checkout orchestrator с или без Kafka.
func createOrchestrator(deps *Dependencies, cfg Config, kafkaProducer *kafka.Producer) checkout.Orchestrator {
	checkoutCfg := checkout.Config{
		SuccessURL: cfg.SuccessURL,
		CancelURL:  cfg.CancelURL,
		Currency:   cfg.Currency,
	}
	logger := deps.Logger.WithField("component", "checkout")

	if kafkaProducer != nil {
		return checkout.NewOrchestratorWithKafka(
			deps.Cart,
			deps.Ledger,
			deps.Gateway,
			deps.OutboxRepo,
			deps.TimelineRepo,
			checkoutCfg,
			kafkaProducer,
			logger,
		)
	}

	return checkout.NewOrchestrator(
		deps.Cart,
		deps.Ledger,
		deps.Gateway,
		deps.OutboxRepo,
		deps.TimelineRepo,
		checkoutCfg,
		logger,
	)
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
