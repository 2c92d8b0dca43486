package session

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultCleanupInterval  = 15 * time.Minute
	defaultCleanupBatchSize = 500
)

var (
	markerCleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_marker_cleanup_runs_total",
		Help: "Total number of pending-marker cleanup runs grouped by result.",
	}, []string{"result"})
	markerCleanupDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_marker_cleanup_deleted_total",
		Help: "Total number of deleted expired pending-payment markers.",
	})
	markerCleanupLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_marker_cleanup_last_deleted",
		Help: "Number of markers deleted during the last cleanup run.",
	})
)

// CleanupOptions задаёт параметры воркера уборки pending-маркеров.
type CleanupOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Logger = logger
	}
}

// WithInterval задаёт интервал между cleanup-циклами.
func WithInterval(interval time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Interval = interval
	}
}

// WithBatchSize задаёт размер порции одного удаления.
func WithBatchSize(batchSize int) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.BatchSize = batchSize
	}
}

// CleanupWorker периодически удаляет просроченные pending-маркеры из
// леджеров, которые не чистят себя сами (memory, postgres). Redis-бэкенд
// в воркере не нуждается: срок жизни обеспечивает TTL ключа.
type CleanupWorker struct {
	deleter   domain.ExpiredMarkerDeleter
	logger    *log.Entry
	interval  time.Duration
	batchSize int
}

// NewCleanupWorker создаёт воркер уборки маркеров.
func NewCleanupWorker(deleter domain.ExpiredMarkerDeleter, options ...CleanupOption) *CleanupWorker {
	opts := CleanupOptions{
		Interval:  defaultCleanupInterval,
		BatchSize: defaultCleanupBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "marker-cleanup-worker")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}

	return &CleanupWorker{
		deleter:   deleter,
		logger:    logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
	}
}

// Run запускает периодическую уборку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.deleter == nil {
		w.logger.Warn("marker cleanup worker is disabled: ledger does not need it")
		return
	}

	w.cleanup(ctx, time.Now().UTC())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx, time.Now().UTC())
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context, before time.Time) {
	deleted, err := w.DeleteExpired(ctx, before)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		markerCleanupRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("marker cleanup run failed")
		return
	}

	markerCleanupRunsTotal.WithLabelValues("ok").Inc()
	markerCleanupLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("marker cleanup completed")
	}
}

// DeleteExpired удаляет все маркеры с expires_at <= before порциями batchSize.
func (w *CleanupWorker) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := w.deleter.DeleteExpired(ctx, before, w.batchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted > 0 {
			markerCleanupDeletedTotal.Add(float64(deleted))
		}

		if deleted < w.batchSize {
			break
		}
	}

	return totalDeleted, nil
}
