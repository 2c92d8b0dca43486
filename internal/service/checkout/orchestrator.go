package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// State описывает положение оркестратора в линейной цепочке шагов.
// Переходы fail-stop: ошибка любого шага останавливает цепочку,
// следующий шаг не начинается.
type State string

const (
	StateIdle             State = "idle"
	StateValidating       State = "validating"
	StateCreatingOrder    State = "creating_order"
	StateCreatingSession  State = "creating_session"
	StatePersistingMarker State = "persisting_marker"
	StateRedirecting      State = "redirecting"
)

// Config задаёт маршруты возврата от платёжного провайдера и валюту line items.
type Config struct {
	// SuccessURL — маршрут успешного возврата; провайдер добавит к нему
	// идентификатор сессии query-параметром.
	SuccessURL string
	// CancelURL — маршрут возврата при отказе от оплаты.
	CancelURL string
	// Currency — валюта line items платёжной сессии.
	Currency string
}

// Result — итог успешного запуска оформления: заказ создан, маркер записан,
// управление ушло на платёжную страницу.
type Result struct {
	OrderID     string
	RedirectURL string
}

// Orchestrator запускает оформление заказа: валидация → создание заказа →
// платёжная сессия → запись pending-маркера → redirect.
type Orchestrator interface {
	PlaceOrder(ctx context.Context, sessionID, customerID string, nav domain.Navigator) (Result, error)
}

// orchestrator реализует pre-redirect половину workflow. Вторая половина —
// reconcile-контроллер; их соединяет только durable pending-маркер.
type orchestrator struct {
	cart          domain.CartStore
	ledger        domain.PendingPaymentLedger
	gateway       domain.OrderGateway
	outbox        domain.OutboxRepository
	timeline      domain.TimelineRepository
	cfg           Config
	logger        *log.Entry
	metrics       *metrics.CheckoutMetrics
	kafkaProducer *kafka.Producer // опциональный Kafka producer для event-driven интеграций
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора.
func NewOrchestrator(
	cart domain.CartStore,
	ledger domain.PendingPaymentLedger,
	gateway domain.OrderGateway,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	cfg Config,
	logger *log.Entry,
) Orchestrator {
	return newOrchestrator(cart, ledger, gateway, outbox, timeline, cfg, logger, metrics.NewCheckoutMetrics(), nil)
}

// NewOrchestratorWithKafka создаёт оркестратор с Kafka producer.
func NewOrchestratorWithKafka(
	cart domain.CartStore,
	ledger domain.PendingPaymentLedger,
	gateway domain.OrderGateway,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	cfg Config,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) Orchestrator {
	return newOrchestrator(cart, ledger, gateway, outbox, timeline, cfg, logger, metrics.NewCheckoutMetrics(), kafkaProducer)
}

// NewOrchestratorWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewOrchestratorWithoutMetrics(
	cart domain.CartStore,
	ledger domain.PendingPaymentLedger,
	gateway domain.OrderGateway,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	cfg Config,
	logger *log.Entry,
) Orchestrator {
	return newOrchestrator(cart, ledger, gateway, outbox, timeline, cfg, logger, nil, nil)
}

func newOrchestrator(
	cart domain.CartStore,
	ledger domain.PendingPaymentLedger,
	gateway domain.OrderGateway,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	cfg Config,
	logger *log.Entry,
	m *metrics.CheckoutMetrics,
	producer *kafka.Producer,
) Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &orchestrator{
		cart:          cart,
		ledger:        ledger,
		gateway:       gateway,
		outbox:        outbox,
		timeline:      timeline,
		cfg:           cfg,
		logger:        logger,
		metrics:       m,
		kafkaProducer: producer,
	}
}

// PlaceOrder ведёт оформление от снимка корзины до ухода на платёжную
// страницу. При ошибке до создания заказа корзина не трогается, маркер не
// пишется — пользователь может повторить попытку с тем же содержимым.
func (o *orchestrator) PlaceOrder(ctx context.Context, sessionID, customerID string, nav domain.Navigator) (Result, error) {
	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordCheckoutStarted()
	}
	defer func() {
		if o.metrics != nil {
			o.metrics.RecordCheckoutDuration(time.Since(start))
		}
	}()

	logger := o.logger.WithFields(log.Fields{
		"session_id":  sessionID,
		"customer_id": customerID,
	})

	// ValidatingPrerequisites: пустая корзина и отсутствующий профиль
	// отсекаются до единого обращения к бэкенду.
	items, err := o.validate(ctx, sessionID, customerID)
	if err != nil {
		logger.WithError(err).Warn("checkout validation failed")
		o.failStep(domain.CheckoutStepValidate)
		return Result{}, err
	}

	o.publishCheckoutEvent(kafka.EventTypeCheckoutStarted, sessionID, "", map[string]interface{}{
		"customer_id": customerID,
		"items_count": len(items),
	})

	// CreatingOrder: при ошибке весь workflow прерывается, частичных
	// артефактов не остаётся.
	orderID, err := o.createOrder(ctx, customerID, items)
	if err != nil {
		logger.WithError(err).Warn("create order failed")
		o.failStep(domain.CheckoutStepCreateOrder)
		o.publishCheckoutEvent(kafka.EventTypeCheckoutFailed, sessionID, "", map[string]interface{}{
			"step":   string(domain.CheckoutStepCreateOrder),
			"reason": err.Error(),
		})
		return Result{}, fmt.Errorf("create order: %w", err)
	}
	logger = logger.WithField("order_id", orderID)
	o.emitEvent(orderID, "CheckoutOrderCreated", map[string]interface{}{
		"customer_id": customerID,
		"items_count": len(items),
	})
	o.publishCheckoutEvent(kafka.EventTypeOrderCreated, sessionID, orderID, nil)

	// CreatingPaymentSession: заказ уже существует в pendingPayment на
	// бэкенде. Идентификатор заказа при ошибке не теряется: он уходит в
	// лог, timeline и событие, а сам заказ остаётся доступным через
	// список заказов.
	session, err := o.createSession(ctx, customerID, items)
	if err != nil {
		logger.WithError(err).Warn("create payment session failed, order remains pending")
		o.failStep(domain.CheckoutStepCreateSession)
		o.emitEvent(orderID, "CheckoutSessionFailed", map[string]interface{}{
			"reason": err.Error(),
		})
		o.publishCheckoutEvent(kafka.EventTypeSessionFailed, sessionID, orderID, map[string]interface{}{
			"reason": err.Error(),
		})
		return Result{}, fmt.Errorf("create checkout session: %w", err)
	}
	o.publishCheckoutEvent(kafka.EventTypeSessionCreated, sessionID, orderID, map[string]interface{}{
		"provider_session_id": session.SessionID,
	})

	// PersistingMarker: запись маркера строго до редиректа — навигация,
	// обогнавшая запись, оставила бы сессию без моста к заказу.
	o.persistMarker(ctx, sessionID, orderID)

	// Redirecting: содержимое корзины теперь представлено заказом.
	// Управление приложению не возвращается.
	o.redirect(sessionID, orderID, session.URL, nav)

	if o.metrics != nil {
		o.metrics.RecordCheckoutCompleted()
	}
	logger.Info("checkout handed off to payment provider")
	return Result{OrderID: orderID, RedirectURL: session.URL}, nil
}

func (o *orchestrator) validate(ctx context.Context, sessionID, customerID string) ([]domain.CartItem, error) {
	defer o.observeStep(domain.CheckoutStepValidate, time.Now())

	items := o.cart.Items(sessionID)
	if len(items) == 0 {
		return nil, domain.ErrCartEmpty
	}

	if _, err := o.gateway.GetProfile(ctx, customerID); err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, domain.ErrProfileRequired
		}
		return nil, err
	}

	return items, nil
}

func (o *orchestrator) createOrder(ctx context.Context, customerID string, items []domain.CartItem) (string, error) {
	defer o.observeStep(domain.CheckoutStepCreateOrder, time.Now())

	productIDs := make([]string, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.Product.ID)
	}
	return o.gateway.CreateOrder(ctx, customerID, productIDs)
}

func (o *orchestrator) createSession(ctx context.Context, customerID string, items []domain.CartItem) (domain.PaymentSession, error) {
	defer o.observeStep(domain.CheckoutStepCreateSession, time.Now())

	lineItems := domain.ShoppingItemsFromCart(items, o.cfg.Currency)
	return o.gateway.CreateCheckoutSession(ctx, customerID, lineItems, o.cfg.SuccessURL, o.cfg.CancelURL)
}

func (o *orchestrator) persistMarker(ctx context.Context, sessionID, orderID string) {
	defer o.observeStep(domain.CheckoutStepPersistMarker, time.Now())
	o.ledger.SetPending(ctx, sessionID, orderID)
}

func (o *orchestrator) redirect(sessionID, orderID, url string, nav domain.Navigator) {
	defer o.observeStep(domain.CheckoutStepRedirect, time.Now())

	o.cart.Clear(sessionID)
	o.emitEvent(orderID, "CheckoutRedirected", nil)
	o.publishCheckoutEvent(kafka.EventTypeRedirected, sessionID, orderID, nil)
	nav.Redirect(url)
}

func (o *orchestrator) observeStep(step domain.CheckoutStep, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordStepDuration(string(step), time.Since(start))
	}
}

func (o *orchestrator) failStep(step domain.CheckoutStep) {
	if o.metrics != nil {
		o.metrics.RecordCheckoutFailed(string(step))
	}
}

// emitEvent кладёт событие в outbox и timeline; ошибки записи логируются,
// но не прерывают оформление.
func (o *orchestrator) emitEvent(orderID, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = orderID
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	if o.outbox != nil {
		msg := domain.OutboxMessage{
			AggregateType: "checkout",
			AggregateID:   orderID,
			EventType:     eventType,
			Payload:       data,
		}
		if _, err := o.outbox.Enqueue(msg); err != nil {
			o.logger.WithError(err).WithFields(log.Fields{
				"order_id": orderID,
				"event":    eventType,
			}).Error("enqueue event failed")
		} else if o.metrics != nil {
			o.metrics.RecordOutboxEvent()
		}
	}

	if o.timeline != nil {
		var reason string
		if r, ok := payload["reason"].(string); ok {
			reason = r
		}
		event := domain.TimelineEvent{
			OrderID:  orderID,
			Type:     eventType,
			Reason:   reason,
			Occurred: time.Now().UTC(),
		}
		if err := o.timeline.Append(event); err != nil {
			o.logger.WithError(err).WithFields(log.Fields{
				"order_id": orderID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if o.metrics != nil {
			o.metrics.RecordTimelineEvent()
		}
	}
}

// publishCheckoutEvent публикует событие checkout-потока в Kafka (если producer настроен).
func (o *orchestrator) publishCheckoutEvent(eventType kafka.EventType, sessionID, orderID string, metadata map[string]interface{}) {
	if o.kafkaProducer == nil {
		return
	}

	event := kafka.NewCheckoutEvent(eventType, sessionID, orderID, metadata)
	key := orderID
	if key == "" {
		key = sessionID
	}
	if err := o.kafkaProducer.PublishEvent(kafka.TopicCheckoutEvents, key, event); err != nil {
		// Логируем, но оформление не прерываем: Kafka опциональна.
		o.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   orderID,
		}).Warn("failed to publish checkout event to kafka")
	}
}

var _ Orchestrator = (*orchestrator)(nil)
