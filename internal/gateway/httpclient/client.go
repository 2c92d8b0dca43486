package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultRequestTimeout = 10 * time.Second

// Client — типизированный HTTP-клиент бэкенд-леджера заказов. Тонкая обёртка:
// ошибки сети и бэкенда отдаются вызывающему без изменений, без retry и без
// кэширования. Известные коды бэкенда переводятся в доменные sentinel-ошибки,
// чтобы вызывающие могли различать случаи через errors.Is.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *log.Entry
}

// New создаёт клиент бэкенда. token — сервисный bearer-токен, может быть пустым.
func New(baseURL, token string, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.WithField("component", "order-gateway")
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     logger,
	}
}

type createOrderRequest struct {
	CustomerID string   `json:"customer_id"`
	ProductIDs []string `json:"product_ids"`
}

type createOrderResponse struct {
	OrderID string `json:"order_id"`
}

type createSessionRequest struct {
	CustomerID string                `json:"customer_id"`
	Items      []domain.ShoppingItem `json:"items"`
	SuccessURL string                `json:"success_url"`
	CancelURL  string                `json:"cancel_url"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type completePaymentRequest struct {
	SessionID string `json:"session_id"`
	OrderID   string `json:"order_id"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateOrder создаёт заказ в статусе pendingPayment.
func (c *Client) CreateOrder(ctx context.Context, customerID string, productIDs []string) (string, error) {
	var resp createOrderResponse
	err := c.do(ctx, http.MethodPost, "/api/orders", createOrderRequest{
		CustomerID: customerID,
		ProductIDs: productIDs,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.OrderID, nil
}

// CreateCheckoutSession запрашивает hosted-сессию у платёжного провайдера.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID string, items []domain.ShoppingItem, successURL, cancelURL string) (domain.PaymentSession, error) {
	var resp createSessionResponse
	err := c.do(ctx, http.MethodPost, "/api/checkout-sessions", createSessionRequest{
		CustomerID: customerID,
		Items:      items,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	}, &resp)
	if err != nil {
		return domain.PaymentSession{}, err
	}
	return domain.PaymentSession{SessionID: resp.SessionID, URL: resp.URL}, nil
}

// CompletePayment подтверждает оплату; повторный вызов для уже применённой
// пары (sessionID, orderID) бэкенд завершает успешным no-op.
func (c *Client) CompletePayment(ctx context.Context, sessionID, orderID string) error {
	return c.do(ctx, http.MethodPost, "/api/payments/complete", completePaymentRequest{
		SessionID: sessionID,
		OrderID:   orderID,
	}, nil)
}

// GetOrder возвращает заказ или ErrOrderNotFound.
func (c *Client) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// GetOrders возвращает заказы покупателя, новые первыми.
func (c *Client) GetOrders(ctx context.Context, customerID string) ([]domain.Order, error) {
	var orders []domain.Order
	path := "/api/orders?customer_id=" + url.QueryEscape(customerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetProfile возвращает профиль покупателя или ErrProfileNotFound.
func (c *Client) GetProfile(ctx context.Context, customerID string) (domain.UserProfile, error) {
	var profile domain.UserProfile
	if err := c.do(ctx, http.MethodGet, "/api/profiles/"+url.PathEscape(customerID), nil, &profile); err != nil {
		return domain.UserProfile{}, err
	}
	return profile, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call backend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp, method, path)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError переводит известные коды бэкенда в доменные sentinel-ошибки.
func (c *Client) decodeError(resp *http.Response, method, path string) error {
	var payload errorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(data, &payload)

	c.logger.WithFields(log.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
		"code":   payload.Code,
	}).Debug("backend returned error")

	switch payload.Code {
	case "order_not_found":
		return domain.ErrOrderNotFound
	case "profile_not_found":
		return domain.ErrProfileNotFound
	case "profile_required":
		return domain.ErrProfileRequired
	case "payment_incomplete":
		return domain.ErrPaymentIncomplete
	case "payment_provider_not_configured":
		return domain.ErrPaymentProviderUnavailable
	}

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrOrderNotFound
	}

	message := payload.Message
	if message == "" {
		message = string(bytes.TrimSpace(data))
	}
	if message == "" {
		message = resp.Status
	}
	return fmt.Errorf("backend %s %s: %s", method, path, message)
}

var _ domain.OrderGateway = (*Client)(nil)
