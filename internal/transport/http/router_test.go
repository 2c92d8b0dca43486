package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/gateway"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/reconcile"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type env struct {
	router  http.Handler
	gateway *gateway.MockGateway
	cart    domain.CartStore
	ledger  domain.PendingPaymentLedger
	cookie  *http.Cookie
}

func newEnv(t *testing.T) *env {
	t.Helper()

	cart := memory.NewCartStore()
	ledger := memory.NewPendingLedger(nil)
	mock := gateway.NewMockGateway()
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()

	orchestrator := checkout.NewOrchestratorWithoutMetrics(
		cart, ledger, mock, outbox, timeline,
		checkout.Config{
			SuccessURL: "https://shop.example.com/payments/success",
			CancelURL:  "https://shop.example.com/payments/cancel",
			Currency:   "usd",
		},
		nil,
	)
	controller := reconcile.NewController(
		ledger, mock, outbox, timeline, nil,
		reconcile.WithoutMetrics(),
		reconcile.WithDisplayDelay(0),
	)

	router := NewRouter(RouterDeps{
		Cart:         cart,
		Orchestrator: orchestrator,
		Reconciler:   controller,
		Gateway:      mock,
	})

	return &env{
		router:  router,
		gateway: mock,
		cart:    cart,
		ledger:  ledger,
	}
}

// do выполняет запрос, сохраняя cookie сессии между вызовами.
func (e *env) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == SessionCookieName {
			e.cookie = cookie
		}
	}
	return w
}

func (e *env) addItem(t *testing.T, productID string, priceMinor int64, qty int32) {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/cart/items", AddItemRequest{
		ProductID:  productID,
		Name:       productID,
		PriceMinor: priceMinor,
		Quantity:   qty,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add item: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestSessionCookieIssuedOnce(t *testing.T) {
	e := newEnv(t)

	e.do(t, http.MethodGet, "/api/cart", nil)
	if e.cookie == nil {
		t.Fatal("expected a session cookie on first request")
	}
	first := e.cookie.Value

	w := e.do(t, http.MethodGet, "/api/cart", nil)
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == SessionCookieName && cookie.Value != first {
			t.Fatal("session cookie must not be reissued")
		}
	}
}

func TestCartEndpoints(t *testing.T) {
	e := newEnv(t)

	e.addItem(t, "product-a", 1500, 2)
	e.addItem(t, "product-b", 4200, 1)

	w := e.do(t, http.MethodGet, "/api/cart", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var cart CartResponse
	if err := json.NewDecoder(w.Body).Decode(&cart); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(cart.Items) != 2 || cart.TotalMinor != 2*1500+4200 || cart.ItemCount != 3 {
		t.Fatalf("unexpected cart snapshot: %+v", cart)
	}

	w = e.do(t, http.MethodPatch, "/api/cart/items/product-a", UpdateQuantityRequest{Quantity: 0})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w = e.do(t, http.MethodDelete, "/api/cart/items/product-b", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/cart", nil)
	if err := json.NewDecoder(w.Body).Decode(&cart); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(cart.Items) != 0 || cart.TotalMinor != 0 {
		t.Fatalf("cart should be empty, got %+v", cart)
	}
}

func TestAddItem_Validation(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/cart/items", AddItemRequest{ProductID: "", Quantity: 1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing product id, got %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/api/cart/items", AddItemRequest{ProductID: "p", Quantity: 100})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized quantity, got %d", w.Code)
	}
}

func TestCheckout_RedirectsToPaymentPage(t *testing.T) {
	e := newEnv(t)
	e.addItem(t, "product-a", 1500, 1)

	w := e.do(t, http.MethodPost, "/api/checkout", nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d (%s)", w.Code, w.Body.String())
	}
	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "https://pay.example.com/session") {
		t.Fatalf("unexpected payment redirect %q", location)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/checkout", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Code != "cart_empty" {
		t.Fatalf("expected cart_empty, got %s", resp.Code)
	}
}

func TestCheckout_ProfileRequired(t *testing.T) {
	e := newEnv(t)
	e.addItem(t, "product-a", 1500, 1)
	e.gateway.Profile = nil

	w := e.do(t, http.MethodPost, "/api/checkout", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Code != "profile_required" || resp.Details != "/profile" {
		t.Fatalf("expected a profile redirect hint, got %+v", resp)
	}
}

func TestFullCheckoutAndReconciliation(t *testing.T) {
	e := newEnv(t)
	e.addItem(t, "product-a", 1500, 2)

	w := e.do(t, http.MethodPost, "/api/checkout", nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("checkout: expected 303, got %d", w.Code)
	}
	location := w.Header().Get("Location")
	providerSessionID := location[strings.LastIndex(location, "/")+1:]

	w = e.do(t, http.MethodGet, "/payments/success?session_id="+providerSessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("success return: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var outcome OutcomeResponse
	if err := json.NewDecoder(w.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.State != string(reconcile.StateSucceeded) {
		t.Fatalf("expected succeeded, got %s (%s)", outcome.State, outcome.Reason)
	}
	if !strings.HasPrefix(outcome.RedirectTo, "/order-confirmation/") {
		t.Fatalf("unexpected redirect target %s", outcome.RedirectTo)
	}

	// Заказ доступен через GET /api/orders/{id} и оплачен.
	w = e.do(t, http.MethodGet, "/api/orders/"+outcome.OrderID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get order: expected 200, got %d", w.Code)
	}
	var order domain.Order
	if err := json.NewDecoder(w.Body).Decode(&order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", order.Status)
	}
}

func TestPaymentsSuccess_WithoutProviderSession(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/payments/success", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	var outcome OutcomeResponse
	if err := json.NewDecoder(w.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.Reason != reconcile.ReasonSessionNotFound {
		t.Fatalf("expected %q, got %q", reconcile.ReasonSessionNotFound, outcome.Reason)
	}
}

func TestPaymentsCancel(t *testing.T) {
	e := newEnv(t)
	e.addItem(t, "product-a", 1500, 1)

	if w := e.do(t, http.MethodPost, "/api/checkout", nil); w.Code != http.StatusSeeOther {
		t.Fatalf("checkout: expected 303, got %d", w.Code)
	}

	w := e.do(t, http.MethodGet, "/payments/cancel", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// Маркер очищен: повторный success-возврат не находит заказ.
	w = e.do(t, http.MethodGet, "/payments/success?session_id=cs_whatever", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 after cancel, got %d", w.Code)
	}
}

func TestGetOrder_ForeignOrderHidden(t *testing.T) {
	e := newEnv(t)

	// Заказ другого покупателя.
	orderID, err := e.gateway.CreateOrder(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "someone-else", []string{"product-x"})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	w := e.do(t, http.MethodGet, "/api/orders/"+orderID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a foreign order, got %d", w.Code)
	}
}

func TestVersionEndpoint(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/version", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var info map[string]string
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if info["version"] == "" {
		t.Fatal("expected a version string")
	}
}

func TestAuthMiddleware_JWT(t *testing.T) {
	secret := []byte("test-secret")

	cart := memory.NewCartStore()
	mock := gateway.NewMockGateway()
	router := NewRouter(RouterDeps{
		Cart: cart,
		Orchestrator: checkout.NewOrchestratorWithoutMetrics(
			cart, memory.NewPendingLedger(nil), mock,
			memory.NewOutboxRepository(), memory.NewTimelineRepository(),
			checkout.Config{}, nil,
		),
		Reconciler: reconcile.NewController(
			memory.NewPendingLedger(nil), mock,
			memory.NewOutboxRepository(), memory.NewTimelineRepository(), nil,
			reconcile.WithoutMetrics(),
		),
		Gateway:   mock,
		JWTSecret: secret,
	})

	// Без токена — 401.
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", w.Code)
	}

	// С валидным токеном — 200.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"customer_id": "customer-1",
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with a valid token, got %d (%s)", w.Code, w.Body.String())
	}

	// С токеном, подписанным чужим ключом — 401.
	badToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"customer_id": "customer-1",
	})
	badSigned, err := badToken.SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer "+badSigned)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with a forged token, got %d", w.Code)
	}
}
