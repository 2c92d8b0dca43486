package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// CartHandler обслуживает операции корзины текущей сессии.
type CartHandler struct {
	cart   domain.CartStore
	logger *log.Entry
}

// NewCartHandler создаёт handler корзины.
func NewCartHandler(cart domain.CartStore, logger *log.Entry) *CartHandler {
	if logger == nil {
		logger = log.WithField("component", "cart-handler")
	}
	return &CartHandler{cart: cart, logger: logger}
}

// AddItemRequest — тело запроса добавления товара.
type AddItemRequest struct {
	ProductID   string   `json:"product_id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	PriceMinor  int64    `json:"price_minor"`
	Images      []string `json:"images,omitempty"`
	Quantity    int32    `json:"quantity"`
}

// UpdateQuantityRequest — тело запроса смены количества.
type UpdateQuantityRequest struct {
	Quantity int32 `json:"quantity"`
}

// CartResponse — снимок корзины для клиента.
type CartResponse struct {
	Items      []domain.CartItem `json:"items"`
	TotalMinor int64             `json:"total_minor"`
	ItemCount  int32             `json:"item_count"`
}

func (h *CartHandler) snapshot(sessionID string) CartResponse {
	return CartResponse{
		Items:      h.cart.Items(sessionID),
		TotalMinor: h.cart.TotalMinor(sessionID),
		ItemCount:  h.cart.ItemCount(sessionID),
	}
}

// GetCart возвращает снимок корзины.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())
	respondJSON(w, http.StatusOK, h.snapshot(sessionID))
}

// AddItem добавляет товар в корзину.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	product := domain.ProductRef{
		ID:          req.ProductID,
		Name:        req.Name,
		Description: req.Description,
		PriceMinor:  req.PriceMinor,
		Images:      req.Images,
	}
	if err := h.cart.AddItem(sessionID, product, req.Quantity); err != nil {
		h.handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.snapshot(sessionID))
}

// UpdateQuantity выставляет количество позиции; нулевое количество удаляет её.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())
	productID := chi.URLParam(r, "productID")

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity < 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	if err := h.cart.UpdateQuantity(sessionID, productID, req.Quantity); err != nil {
		h.handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.snapshot(sessionID))
}

// RemoveItem удаляет позицию корзины.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())
	productID := chi.URLParam(r, "productID")

	if err := h.cart.RemoveItem(sessionID, productID); err != nil {
		h.handleCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.snapshot(sessionID))
}

// ClearCart очищает корзину сессии.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())
	h.cart.Clear(sessionID)
	respondJSON(w, http.StatusOK, h.snapshot(sessionID))
}

func (h *CartHandler) handleCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProductIDRequired):
		respondError(w, http.StatusBadRequest, "invalid_product_id", err.Error())
	case errors.Is(err, domain.ErrProductQtyInvalid):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	default:
		h.logger.WithError(err).Error("cart operation failed")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
