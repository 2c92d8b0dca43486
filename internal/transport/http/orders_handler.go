package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// OrdersHandler отдаёт заказы и профиль покупателя с бэкенда.
type OrdersHandler struct {
	gateway domain.OrderGateway
	logger  *log.Entry
}

// NewOrdersHandler создаёт handler заказов.
func NewOrdersHandler(gateway domain.OrderGateway, logger *log.Entry) *OrdersHandler {
	if logger == nil {
		logger = log.WithField("component", "orders-handler")
	}
	return &OrdersHandler{gateway: gateway, logger: logger}
}

// ListOrders возвращает заказы текущего покупателя.
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	customerID := CustomerIDFromContext(r.Context())

	orders, err := h.gateway.GetOrders(r.Context(), customerID)
	if err != nil {
		h.logger.WithError(err).Error("list orders failed")
		respondError(w, http.StatusBadGateway, "backend_error", "failed to load orders")
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

// GetOrder возвращает заказ по идентификатору. Чужой заказ неотличим от
// несуществующего.
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	customerID := CustomerIDFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	order, err := h.gateway.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "order not found")
			return
		}
		h.logger.WithError(err).Error("get order failed")
		respondError(w, http.StatusBadGateway, "backend_error", "failed to load order")
		return
	}
	if order.Customer.ID != customerID {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// GetProfile возвращает профиль текущего покупателя.
func (h *OrdersHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	customerID := CustomerIDFromContext(r.Context())

	profile, err := h.gateway.GetProfile(r.Context(), customerID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			respondError(w, http.StatusNotFound, "profile_not_found", "profile not found")
			return
		}
		h.logger.WithError(err).Error("get profile failed")
		respondError(w, http.StatusBadGateway, "backend_error", "failed to load profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}
