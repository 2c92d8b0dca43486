package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	keyPrefix  = "storefront:pending-order:"
	defaultTTL = 24 * time.Hour
)

// pendingLedgerRedis — реализация PendingPaymentLedger поверх Redis.
// Сессионная область жизни маркера обеспечивается TTL ключа, отдельная
// уборка не нужна. Ошибки Redis не отдаются наружу: контракт леджера —
// best-effort запись и деградация чтения до «отсутствует».
type pendingLedgerRedis struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Entry
}

// NewPendingLedger возвращает Redis-реализацию леджера ожидающих оплат.
func NewPendingLedger(client *redis.Client, logger *log.Entry) domain.PendingPaymentLedger {
	if logger == nil {
		logger = log.WithField("component", "pending-ledger-redis")
	}
	return &pendingLedgerRedis{
		client: client,
		ttl:    defaultTTL,
		logger: logger,
	}
}

func markerKey(sessionID string) string {
	return keyPrefix + sessionID
}

// SetPending перезаписывает маркер сессии со свежим TTL.
func (l *pendingLedgerRedis) SetPending(ctx context.Context, sessionID, orderID string) {
	if sessionID == "" || orderID == "" {
		l.logger.WithFields(log.Fields{
			"session_id": sessionID,
			"order_id":   orderID,
		}).Warn("ignoring pending marker with empty key")
		return
	}

	if err := l.client.Set(ctx, markerKey(sessionID), orderID, l.ttl).Err(); err != nil {
		l.logger.WithError(err).WithField("session_id", sessionID).Warn("failed to store pending order")
	}
}

// GetPending возвращает маркер сессии; любая ошибка Redis читается как «отсутствует».
func (l *pendingLedgerRedis) GetPending(ctx context.Context, sessionID string) (string, bool) {
	orderID, err := l.client.Get(ctx, markerKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		l.logger.WithError(err).WithField("session_id", sessionID).Warn("failed to retrieve pending order")
		return "", false
	}
	if orderID == "" {
		return "", false
	}
	return orderID, true
}

// ClearPending удаляет маркер сессии; отсутствие ключа — не ошибка.
func (l *pendingLedgerRedis) ClearPending(ctx context.Context, sessionID string) {
	if err := l.client.Del(ctx, markerKey(sessionID)).Err(); err != nil {
		l.logger.WithError(err).WithField("session_id", sessionID).Warn("failed to clear pending order")
	}
}

var _ domain.PendingPaymentLedger = (*pendingLedgerRedis)(nil)
