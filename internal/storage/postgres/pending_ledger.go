package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	opTimeout        = 5 * time.Second
	defaultMarkerTTL = 24 * time.Hour
)

// pendingLedgerPostgres — реализация PendingPaymentLedger поверх PostgreSQL.
// session_id — первичный ключ, поэтому на сессию физически существует не
// более одного маркера; SetPending — upsert. Просроченные маркеры убирает
// cleanup-воркер через DeleteExpired.
type pendingLedgerPostgres struct {
	db     *sql.DB
	ttl    time.Duration
	logger *log.Entry
}

// NewPendingLedger создаёт PostgreSQL-реализацию леджера ожидающих оплат.
func NewPendingLedger(store *Store, logger *log.Entry) *pendingLedgerPostgres {
	if logger == nil {
		logger = log.WithField("component", "pending-ledger-postgres")
	}
	return &pendingLedgerPostgres{
		db:     store.DB(),
		ttl:    defaultMarkerTTL,
		logger: logger,
	}
}

// SetPending перезаписывает маркер сессии. Ошибка хранилища логируется и
// не отдаётся наружу: запись best-effort по контракту леджера.
func (l *pendingLedgerPostgres) SetPending(ctx context.Context, sessionID, orderID string) {
	if sessionID == "" || orderID == "" {
		l.logger.WithFields(log.Fields{
			"session_id": sessionID,
			"order_id":   orderID,
		}).Warn("ignoring pending marker with empty key")
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	_, err := l.db.ExecContext(opCtx, `
		INSERT INTO pending_markers (session_id, order_id, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (session_id) DO UPDATE
		SET order_id = EXCLUDED.order_id,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = EXCLUDED.updated_at
	`, sessionID, orderID, now.Add(l.ttl), now)
	if err != nil {
		l.logger.WithError(err).WithField("session_id", sessionID).Warn("failed to store pending order")
	}
}

// GetPending возвращает маркер сессии; ошибки и просроченные записи читаются
// как «отсутствует».
func (l *pendingLedgerPostgres) GetPending(ctx context.Context, sessionID string) (string, bool) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var orderID string
	err := l.db.QueryRowContext(opCtx, `
		SELECT order_id FROM pending_markers
		WHERE session_id = $1 AND expires_at > $2
	`, sessionID, time.Now().UTC()).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		l.logger.WithError(err).WithField("session_id", sessionID).Warn("failed to retrieve pending order")
		return "", false
	}
	return orderID, true
}

// ClearPending удаляет маркер сессии; отсутствие строки — не ошибка.
func (l *pendingLedgerPostgres) ClearPending(ctx context.Context, sessionID string) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := l.db.ExecContext(opCtx, `
		DELETE FROM pending_markers WHERE session_id = $1
	`, sessionID); err != nil {
		l.logger.WithError(err).WithField("session_id", sessionID).Warn("failed to clear pending order")
	}
}

// DeleteExpired удаляет просроченные маркеры порциями limit.
func (l *pendingLedgerPostgres) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}
	if limit <= 0 {
		limit = 500
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	result, err := l.db.ExecContext(opCtx, `
		DELETE FROM pending_markers
		WHERE session_id IN (
			SELECT session_id FROM pending_markers
			WHERE expires_at <= $1
			LIMIT $2
		)
	`, before, limit)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

var _ domain.PendingPaymentLedger = (*pendingLedgerPostgres)(nil)
var _ domain.ExpiredMarkerDeleter = (*pendingLedgerPostgres)(nil)
