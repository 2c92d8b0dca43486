package http

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

// CheckoutHandler запускает оформление заказа.
type CheckoutHandler struct {
	orchestrator checkout.Orchestrator
	logger       *log.Entry
}

// NewCheckoutHandler создаёт handler оформления.
func NewCheckoutHandler(orchestrator checkout.Orchestrator, logger *log.Entry) *CheckoutHandler {
	if logger == nil {
		logger = log.WithField("component", "checkout-handler")
	}
	return &CheckoutHandler{orchestrator: orchestrator, logger: logger}
}

// redirectNavigator реализует Navigator поверх HTTP-ответа: уход на платёжную
// страницу — это 303 See Other.
type redirectNavigator struct {
	w          http.ResponseWriter
	r          *http.Request
	redirected bool
}

func (n *redirectNavigator) Redirect(url string) {
	n.redirected = true
	http.Redirect(n.w, n.r, url, http.StatusSeeOther)
}

// PlaceOrder ведёт оформление и отвечает редиректом на платёжную страницу.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())
	customerID := CustomerIDFromContext(r.Context())

	nav := &redirectNavigator{w: w, r: r}
	_, err := h.orchestrator.PlaceOrder(r.Context(), sessionID, customerID, nav)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCartEmpty):
			respondError(w, http.StatusBadRequest, "cart_empty", "cart is empty")
		case errors.Is(err, domain.ErrProfileRequired):
			// Клиент должен увести пользователя на заполнение профиля.
			respondJSON(w, http.StatusConflict, ErrorResponse{
				Error:   "profile is required before checkout",
				Code:    "profile_required",
				Details: "/profile",
			})
		default:
			h.logger.WithError(err).Error("checkout failed")
			respondError(w, http.StatusBadGateway, "checkout_failed", err.Error())
		}
		return
	}

	// Успешный путь завершается внутри Navigator; сюда попадаем только
	// если навигация не случилась.
	if !nav.redirected {
		respondError(w, http.StatusInternalServerError, "internal_error", "checkout finished without navigation")
	}
}
