package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MockGateway — конфигурируемая заглушка OrderGateway для тестов и локальной
// разработки. Ведёт собственный мини-леджер заказов в памяти и считает вызовы;
// сценарии ошибок задаются полями *Err.
type MockGateway struct {
	mu sync.Mutex

	CreateOrderErr   error
	CreateSessionErr error
	CompleteErr      error
	Profile          *domain.UserProfile

	// SessionURL подставляется в создаваемые платёжные сессии.
	SessionURL string

	CreateOrderCalls   int
	CreateSessionCalls int
	CompleteCalls      int

	orders   map[string]domain.Order
	catalog  map[string]domain.ProductRef
	sessions map[string]string // sessionID → orderID последнего созданного заказа
	seq      int
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		SessionURL: "https://pay.example.com/session",
		Profile: &domain.UserProfile{
			Name:        "Test Customer",
			PhoneNumber: "+10000000000",
		},
		orders:   make(map[string]domain.Order),
		catalog:  make(map[string]domain.ProductRef),
		sessions: make(map[string]string),
	}
}

// SeedProduct регистрирует товар, из которого CreateOrder соберёт снимок.
func (m *MockGateway) SeedProduct(product domain.ProductRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog[product.ID] = product
}

// CreateOrder создаёт заказ в статусе pendingPayment.
func (m *MockGateway) CreateOrder(ctx context.Context, customerID string, productIDs []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateOrderCalls++
	if m.CreateOrderErr != nil {
		return "", m.CreateOrderErr
	}
	if m.Profile == nil {
		return "", domain.ErrProfileRequired
	}

	m.seq++
	orderID := fmt.Sprintf("order-%d", m.seq)

	var total int64
	products := make([]domain.ProductRef, 0, len(productIDs))
	for _, id := range productIDs {
		product, ok := m.catalog[id]
		if !ok {
			product = domain.ProductRef{ID: id, Name: id}
		}
		products = append(products, product)
		total += product.PriceMinor
	}

	m.orders[orderID] = domain.Order{
		ID:         orderID,
		Status:     domain.OrderStatusPendingPayment,
		PlacedTime: time.Now().UTC(),
		TotalMinor: total,
		Customer: domain.Customer{
			ID:          customerID,
			Name:        m.Profile.Name,
			Address:     m.Profile.Address,
			PhoneNumber: m.Profile.PhoneNumber,
		},
		Products: products,
	}
	return orderID, nil
}

// CreateCheckoutSession выдаёт hosted-сессию с детерминированным URL.
func (m *MockGateway) CreateCheckoutSession(ctx context.Context, customerID string, items []domain.ShoppingItem, successURL, cancelURL string) (domain.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateSessionCalls++
	if m.CreateSessionErr != nil {
		return domain.PaymentSession{}, m.CreateSessionErr
	}

	sessionID := "cs_" + uuid.NewString()
	m.sessions[sessionID] = fmt.Sprintf("order-%d", m.seq)
	return domain.PaymentSession{
		SessionID: sessionID,
		URL:       m.SessionURL + "/" + sessionID,
	}, nil
}

// CompletePayment переводит заказ в paid. Повторный вызов для уже оплаченного
// заказа — успешный no-op: авторитет идемпотентности — бэкенд.
func (m *MockGateway) CompletePayment(ctx context.Context, sessionID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteCalls++
	if m.CompleteErr != nil {
		return m.CompleteErr
	}

	order, ok := m.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if order.Status != domain.OrderStatusPendingPayment {
		return nil
	}
	order.Status = domain.OrderStatusPaid
	order.PaymentIntentID = sessionID
	m.orders[orderID] = order
	return nil
}

// GetOrder возвращает заказ или ErrOrderNotFound.
func (m *MockGateway) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// GetOrders возвращает заказы покупателя.
func (m *MockGateway) GetOrders(ctx context.Context, customerID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]domain.Order, 0, len(m.orders))
	for _, order := range m.orders {
		if order.Customer.ID == customerID {
			result = append(result, order)
		}
	}
	return result, nil
}

// GetProfile возвращает настроенный профиль или ErrProfileNotFound.
func (m *MockGateway) GetProfile(ctx context.Context, customerID string) (domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Profile == nil {
		return domain.UserProfile{}, domain.ErrProfileNotFound
	}
	return *m.Profile, nil
}

var _ domain.OrderGateway = (*MockGateway)(nil)
