package integration

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/gateway"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/reconcile"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

const (
	sessionID  = "session-1"
	customerID = "customer-1"
)

// CheckoutLifecycleTestSuite проверяет полный путь оформления: корзина →
// заказ → платёжная сессия → маркер → возврат от провайдера → оплата.
type CheckoutLifecycleTestSuite struct {
	suite.Suite
	cart         domain.CartStore
	ledger       domain.PendingPaymentLedger
	gateway      *gateway.MockGateway
	timeline     domain.TimelineRepository
	orchestrator checkout.Orchestrator
	reconciler   reconcile.Controller
}

type captureNavigator struct {
	url string
}

func (n *captureNavigator) Redirect(url string) { n.url = url }

func (suite *CheckoutLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	suite.cart = memory.NewCartStore()
	suite.ledger = memory.NewPendingLedger(logger)
	suite.gateway = gateway.NewMockGateway()
	suite.timeline = memory.NewTimelineRepository()
	outbox := memory.NewOutboxRepository()

	suite.orchestrator = checkout.NewOrchestratorWithoutMetrics(
		suite.cart,
		suite.ledger,
		suite.gateway,
		outbox,
		suite.timeline,
		checkout.Config{
			SuccessURL: "https://shop.example.com/payments/success",
			CancelURL:  "https://shop.example.com/payments/cancel",
			Currency:   "usd",
		},
		logger,
	)

	suite.reconciler = reconcile.NewController(
		suite.ledger,
		suite.gateway,
		outbox,
		suite.timeline,
		logger,
		reconcile.WithoutMetrics(),
		reconcile.WithDisplayDelay(0),
	)
}

func (suite *CheckoutLifecycleTestSuite) fillCart() {
	product := domain.ProductRef{ID: "product-a", Name: "Widget", PriceMinor: 1500}
	suite.gateway.SeedProduct(product)
	require.NoError(suite.T(), suite.cart.AddItem(sessionID, product, 2))
}

// providerSessionFrom извлекает идентификатор платёжной сессии из URL,
// на который ушла навигация.
func providerSessionFrom(url string) string {
	for i := len(url) - 1; i >= 0; i-- {
		if url[i] == '/' {
			return url[i+1:]
		}
	}
	return ""
}

func (suite *CheckoutLifecycleTestSuite) TestFullLifecycle_Paid() {
	suite.fillCart()
	nav := &captureNavigator{}

	result, err := suite.orchestrator.PlaceOrder(context.Background(), sessionID, customerID, nav)
	require.NoError(suite.T(), err)
	require.NotEmpty(suite.T(), result.OrderID)
	require.Equal(suite.T(), result.RedirectURL, nav.url)

	// Корзина очищена, маркер записан.
	require.Empty(suite.T(), suite.cart.Items(sessionID))
	markedOrder, ok := suite.ledger.GetPending(context.Background(), sessionID)
	require.True(suite.T(), ok)
	require.Equal(suite.T(), result.OrderID, markedOrder)

	// Возврат от провайдера доводит заказ до paid.
	outcome := suite.reconciler.CompleteSuccess(context.Background(), sessionID, providerSessionFrom(nav.url))
	require.Equal(suite.T(), reconcile.StateSucceeded, outcome.State)
	require.Equal(suite.T(), result.OrderID, outcome.OrderID)

	order, err := suite.gateway.GetOrder(context.Background(), result.OrderID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.OrderStatusPaid, order.Status)

	_, ok = suite.ledger.GetPending(context.Background(), sessionID)
	require.False(suite.T(), ok, "marker must be cleared after reconciliation")
}

func (suite *CheckoutLifecycleTestSuite) TestCancelLifecycle_OrderStaysPending() {
	suite.fillCart()
	nav := &captureNavigator{}

	result, err := suite.orchestrator.PlaceOrder(context.Background(), sessionID, customerID, nav)
	require.NoError(suite.T(), err)

	outcome := suite.reconciler.Cancel(context.Background(), sessionID)
	require.Equal(suite.T(), reconcile.StateFailed, outcome.State)
	require.Equal(suite.T(), result.OrderID, outcome.OrderID)

	_, ok := suite.ledger.GetPending(context.Background(), sessionID)
	require.False(suite.T(), ok, "cancel clears the marker")

	order, err := suite.gateway.GetOrder(context.Background(), result.OrderID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.OrderStatusPendingPayment, order.Status)
}

func (suite *CheckoutLifecycleTestSuite) TestSessionFailure_OrphanDiscoverableViaOrderList() {
	suite.fillCart()
	suite.gateway.CreateSessionErr = domain.ErrPaymentProviderUnavailable
	nav := &captureNavigator{}

	_, err := suite.orchestrator.PlaceOrder(context.Background(), sessionID, customerID, nav)
	require.Error(suite.T(), err)
	require.Empty(suite.T(), nav.url, "no navigation after a failed session step")

	// Маркера нет: success-возврат найти заказ не может.
	outcome := suite.reconciler.CompleteSuccess(context.Background(), sessionID, "cs_whatever")
	require.Equal(suite.T(), reconcile.StateFailed, outcome.State)
	require.Equal(suite.T(), reconcile.ReasonOrderNotFound, outcome.Reason)

	// Но заказ существует и виден в списке заказов покупателя.
	orders, err := suite.gateway.GetOrders(context.Background(), customerID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), orders, 1)
	require.Equal(suite.T(), domain.OrderStatusPendingPayment, orders[0].Status)
}

func (suite *CheckoutLifecycleTestSuite) TestRetryAfterSessionFailure_NewMarkerWins() {
	suite.fillCart()
	suite.gateway.CreateSessionErr = domain.ErrPaymentProviderUnavailable
	nav := &captureNavigator{}

	_, err := suite.orchestrator.PlaceOrder(context.Background(), sessionID, customerID, nav)
	require.Error(suite.T(), err)
	require.NotEmpty(suite.T(), suite.cart.Items(sessionID), "cart survives a failed attempt")

	// Провайдер ожил, пользователь повторяет попытку.
	suite.gateway.CreateSessionErr = nil
	result, err := suite.orchestrator.PlaceOrder(context.Background(), sessionID, customerID, nav)
	require.NoError(suite.T(), err)

	markedOrder, ok := suite.ledger.GetPending(context.Background(), sessionID)
	require.True(suite.T(), ok)
	require.Equal(suite.T(), result.OrderID, markedOrder, "marker points at the newest order")

	outcome := suite.reconciler.CompleteSuccess(context.Background(), sessionID, providerSessionFrom(nav.url))
	require.Equal(suite.T(), reconcile.StateSucceeded, outcome.State)
	require.Equal(suite.T(), result.OrderID, outcome.OrderID)
}

func (suite *CheckoutLifecycleTestSuite) TestRepeatedSuccessReturn() {
	suite.fillCart()
	nav := &captureNavigator{}

	result, err := suite.orchestrator.PlaceOrder(context.Background(), sessionID, customerID, nav)
	require.NoError(suite.T(), err)

	providerSession := providerSessionFrom(nav.url)
	first := suite.reconciler.CompleteSuccess(context.Background(), sessionID, providerSession)
	require.Equal(suite.T(), reconcile.StateSucceeded, first.State)

	// Повторный возврат: маркера нет, заказ остаётся оплаченным.
	second := suite.reconciler.CompleteSuccess(context.Background(), sessionID, providerSession)
	require.Equal(suite.T(), reconcile.StateFailed, second.State)

	order, err := suite.gateway.GetOrder(context.Background(), result.OrderID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.OrderStatusPaid, order.Status)
}

func TestCheckoutLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(CheckoutLifecycleTestSuite))
}
