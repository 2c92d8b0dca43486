package reconcile

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// State — терминальное состояние сверки после возврата от провайдера.
type State string

const (
	StateProcessing State = "processing"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Причины отказа сверки. Различимы намеренно: первая значит «провайдер
// не прислал идентификатор сессии», вторая — «нет моста от сессии к заказу».
const (
	ReasonSessionNotFound = "payment session not found"
	ReasonOrderNotFound   = "order not found"
)

// defaultDisplayDelay — пауза, в течение которой пользователю показывается
// итог сверки перед уходом на страницу подтверждения заказа.
const defaultDisplayDelay = 1500 * time.Millisecond

// Outcome — результат сверки для страницы возврата.
type Outcome struct {
	State   State
	OrderID string
	// Reason заполняется только при State == StateFailed.
	Reason string
	// RedirectTo — маршрут, на который страница уходит после показа итога.
	RedirectTo string
	// RedirectAfter — задержка показа перед уходом.
	RedirectAfter time.Duration
}

// Controller сверяет возврат от платёжного провайдера с pending-маркером
// и доводит заказ до оплаченного состояния на бэкенде.
type Controller interface {
	// CompleteSuccess обрабатывает возврат на success-маршрут.
	// providerSessionID — идентификатор платёжной сессии из query-параметра.
	CompleteSuccess(ctx context.Context, sessionID, providerSessionID string) Outcome
	// Cancel обрабатывает возврат на cancel-маршрут.
	Cancel(ctx context.Context, sessionID string) Outcome
}

type controller struct {
	ledger        domain.PendingPaymentLedger
	gateway       domain.OrderGateway
	outbox        domain.OutboxRepository
	timeline      domain.TimelineRepository
	logger        *log.Entry
	metrics       *metrics.CheckoutMetrics
	kafkaProducer *kafka.Producer
	displayDelay  time.Duration
}

// Option настраивает контроллер сверки.
type Option func(*controller)

// WithDisplayDelay задаёт паузу показа итога перед редиректом.
func WithDisplayDelay(d time.Duration) Option {
	return func(c *controller) {
		if d >= 0 {
			c.displayDelay = d
		}
	}
}

// WithKafka подключает публикацию событий сверки в Kafka.
func WithKafka(producer *kafka.Producer) Option {
	return func(c *controller) {
		c.kafkaProducer = producer
	}
}

// WithoutMetrics отключает метрики (для тестов).
func WithoutMetrics() Option {
	return func(c *controller) {
		c.metrics = nil
	}
}

// NewController создаёт контроллер reconciliation.
func NewController(
	ledger domain.PendingPaymentLedger,
	gateway domain.OrderGateway,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
	opts ...Option,
) Controller {
	if logger == nil {
		logger = log.New().WithField("component", "reconcile")
	}
	c := &controller{
		ledger:       ledger,
		gateway:      gateway,
		outbox:       outbox,
		timeline:     timeline,
		logger:       logger,
		metrics:      metrics.NewCheckoutMetrics(),
		displayDelay: defaultDisplayDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompleteSuccess находит по маркеру заказ, подтверждает оплату и чистит
// маркер. Маркер удаляется только после успешного подтверждения: при
// отказе он остаётся на месте, чтобы повтор возврата мог довести сверку.
func (c *controller) CompleteSuccess(ctx context.Context, sessionID, providerSessionID string) Outcome {
	logger := c.logger.WithFields(log.Fields{
		"session_id":          sessionID,
		"provider_session_id": providerSessionID,
	})

	if providerSessionID == "" {
		logger.Warn("provider returned without a session id")
		return c.failed(sessionID, "", ReasonSessionNotFound)
	}

	orderID, ok := c.ledger.GetPending(ctx, sessionID)
	if !ok {
		logger.Warn("no pending marker for returning session")
		return c.failed(sessionID, "", ReasonOrderNotFound)
	}
	logger = logger.WithField("order_id", orderID)

	if err := c.gateway.CompletePayment(ctx, providerSessionID, orderID); err != nil {
		// Причина отдаётся дословно: бэкенд — авторитет сверки.
		logger.WithError(err).Warn("complete payment failed, marker kept")
		return c.failed(sessionID, orderID, err.Error())
	}

	c.ledger.ClearPending(ctx, sessionID)
	if c.metrics != nil {
		c.metrics.RecordReconcileSucceeded()
	}
	c.emitEvent(orderID, "PaymentCompleted", "")
	c.publishPaymentEvent(kafka.EventTypePaymentCompleted, sessionID, orderID, nil)
	logger.Info("payment reconciled")

	return Outcome{
		State:         StateSucceeded,
		OrderID:       orderID,
		RedirectTo:    "/order-confirmation/" + orderID,
		RedirectAfter: c.displayDelay,
	}
}

// Cancel чистит маркер безусловно: пользователь отказался от оплаты, заказ
// остаётся на бэкенде в pendingPayment.
func (c *controller) Cancel(ctx context.Context, sessionID string) Outcome {
	logger := c.logger.WithField("session_id", sessionID)

	orderID, _ := c.ledger.GetPending(ctx, sessionID)
	c.ledger.ClearPending(ctx, sessionID)
	if c.metrics != nil {
		c.metrics.RecordPaymentCanceled()
	}
	if orderID != "" {
		c.emitEvent(orderID, "PaymentCanceled", "")
	}
	c.publishPaymentEvent(kafka.EventTypePaymentCanceled, sessionID, orderID, nil)
	logger.WithField("order_id", orderID).Info("payment canceled, marker cleared")

	return Outcome{
		State:         StateFailed,
		OrderID:       orderID,
		Reason:        "payment canceled",
		RedirectTo:    "/",
		RedirectAfter: c.displayDelay,
	}
}

func (c *controller) failed(sessionID, orderID, reason string) Outcome {
	if c.metrics != nil {
		c.metrics.RecordReconcileFailed(reason)
	}
	if orderID != "" {
		c.emitEvent(orderID, "PaymentFailed", reason)
	}
	c.publishPaymentEvent(kafka.EventTypePaymentFailed, sessionID, orderID, map[string]interface{}{
		"reason": reason,
	})
	return Outcome{
		State:         StateFailed,
		OrderID:       orderID,
		Reason:        reason,
		RedirectTo:    "/",
		RedirectAfter: c.displayDelay,
	}
}

func (c *controller) emitEvent(orderID, eventType, reason string) {
	now := time.Now().UTC()

	if c.outbox != nil {
		payload, err := json.Marshal(map[string]interface{}{
			"order_id": orderID,
			"reason":   reason,
			"ts":       now.Format(time.RFC3339Nano),
		})
		if err == nil {
			msg := domain.OutboxMessage{
				AggregateType: "payment",
				AggregateID:   orderID,
				EventType:     eventType,
				Payload:       payload,
			}
			if _, err := c.outbox.Enqueue(msg); err != nil {
				c.logger.WithError(err).WithField("order_id", orderID).Error("enqueue event failed")
			} else if c.metrics != nil {
				c.metrics.RecordOutboxEvent()
			}
		}
	}

	if c.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  orderID,
			Type:     eventType,
			Reason:   reason,
			Occurred: now,
		}
		if err := c.timeline.Append(event); err != nil {
			c.logger.WithError(err).WithField("order_id", orderID).Warn("append timeline event failed")
		} else if c.metrics != nil {
			c.metrics.RecordTimelineEvent()
		}
	}
}

func (c *controller) publishPaymentEvent(eventType kafka.EventType, sessionID, orderID string, metadata map[string]interface{}) {
	if c.kafkaProducer == nil {
		return
	}

	event := kafka.NewCheckoutEvent(eventType, sessionID, orderID, metadata)
	key := orderID
	if key == "" {
		key = sessionID
	}
	if err := c.kafkaProducer.PublishEvent(kafka.TopicCheckoutEvents, key, event); err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   orderID,
		}).Warn("failed to publish payment event to kafka")
	}
}

var _ Controller = (*controller)(nil)
