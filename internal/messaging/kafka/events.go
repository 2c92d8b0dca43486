package kafka

import "time"

// EventType определяет тип события checkout-потока.
type EventType string

const (
	// События оформления заказа
	EventTypeCheckoutStarted EventType = "checkout.started"
	EventTypeOrderCreated    EventType = "checkout.order_created"
	EventTypeSessionCreated  EventType = "checkout.session_created"
	EventTypeSessionFailed   EventType = "checkout.session_failed"
	EventTypeRedirected      EventType = "checkout.redirected"
	EventTypeCheckoutFailed  EventType = "checkout.failed"

	// События reconciliation после возврата от провайдера
	EventTypePaymentCompleted EventType = "payment.completed"
	EventTypePaymentFailed    EventType = "payment.failed"
	EventTypePaymentCanceled  EventType = "payment.canceled"
)

// Topics для Kafka
const (
	TopicCheckoutEvents = "storefront.checkout.events"
)

// CheckoutEvent представляет событие checkout-потока.
type CheckoutEvent struct {
	EventType EventType              `json:"event_type"`
	SessionID string                 `json:"session_id"`
	OrderID   string                 `json:"order_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewCheckoutEvent создаёт новое событие checkout-потока.
func NewCheckoutEvent(eventType EventType, sessionID, orderID string, metadata map[string]interface{}) *CheckoutEvent {
	return &CheckoutEvent{
		EventType: eventType,
		SessionID: sessionID,
		OrderID:   orderID,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
