package memory

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultMarkerTTL = 24 * time.Hour

// pendingMarker хранит маркер ожидающего оплаты заказа и срок его жизни.
type pendingMarker struct {
	orderID   string
	expiresAt time.Time
}

// pendingLedgerInMemory — реализация PendingPaymentLedger поверх памяти
// процесса: переживает «перезагрузку страницы» (повторный запрос той же
// сессии), но не рестарт процесса. Для разработки и тестов.
type pendingLedgerInMemory struct {
	mu      sync.RWMutex
	markers map[string]pendingMarker
	ttl     time.Duration
	logger  *log.Entry
}

// NewPendingLedger возвращает in-memory леджер ожидающих оплат.
func NewPendingLedger(logger *log.Entry) *pendingLedgerInMemory {
	if logger == nil {
		logger = log.WithField("component", "pending-ledger-memory")
	}
	return &pendingLedgerInMemory{
		markers: make(map[string]pendingMarker),
		ttl:     defaultMarkerTTL,
		logger:  logger,
	}
}

// SetPending перезаписывает маркер сессии: на сессию — не более одного маркера.
func (l *pendingLedgerInMemory) SetPending(ctx context.Context, sessionID, orderID string) {
	if sessionID == "" || orderID == "" {
		l.logger.WithFields(log.Fields{
			"session_id": sessionID,
			"order_id":   orderID,
		}).Warn("ignoring pending marker with empty key")
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers[sessionID] = pendingMarker{
		orderID:   orderID,
		expiresAt: time.Now().UTC().Add(l.ttl),
	}
}

// GetPending возвращает маркер сессии; просроченный маркер считается отсутствующим.
func (l *pendingLedgerInMemory) GetPending(ctx context.Context, sessionID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	marker, ok := l.markers[sessionID]
	if !ok {
		return "", false
	}
	if !marker.expiresAt.After(time.Now().UTC()) {
		return "", false
	}
	return marker.orderID, true
}

// ClearPending удаляет маркер сессии; отсутствие маркера — не ошибка.
func (l *pendingLedgerInMemory) ClearPending(ctx context.Context, sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.markers, sessionID)
}

// DeleteExpired удаляет просроченные маркеры порциями limit.
func (l *pendingLedgerInMemory) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for sessionID, marker := range l.markers {
		if marker.expiresAt.After(before) {
			continue
		}
		delete(l.markers, sessionID)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}
	return removed, nil
}

var _ domain.PendingPaymentLedger = (*pendingLedgerInMemory)(nil)
var _ domain.ExpiredMarkerDeleter = (*pendingLedgerInMemory)(nil)
