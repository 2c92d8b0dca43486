package http

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/service/reconcile"
)

// PaymentsHandler обслуживает возвраты от платёжного провайдера.
type PaymentsHandler struct {
	controller reconcile.Controller
	logger     *log.Entry
}

// NewPaymentsHandler создаёт handler маршрутов возврата.
func NewPaymentsHandler(controller reconcile.Controller, logger *log.Entry) *PaymentsHandler {
	if logger == nil {
		logger = log.WithField("component", "payments-handler")
	}
	return &PaymentsHandler{controller: controller, logger: logger}
}

// OutcomeResponse — итог сверки для страницы возврата.
type OutcomeResponse struct {
	State           string `json:"state"`
	OrderID         string `json:"order_id,omitempty"`
	Reason          string `json:"reason,omitempty"`
	RedirectTo      string `json:"redirect_to"`
	RedirectAfterMs int64  `json:"redirect_after_ms"`
}

func outcomeResponse(outcome reconcile.Outcome) OutcomeResponse {
	return OutcomeResponse{
		State:           string(outcome.State),
		OrderID:         outcome.OrderID,
		Reason:          outcome.Reason,
		RedirectTo:      outcome.RedirectTo,
		RedirectAfterMs: outcome.RedirectAfter.Milliseconds(),
	}
}

// Success обрабатывает GET /payments/success?session_id=...
func (h *PaymentsHandler) Success(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())
	providerSessionID := r.URL.Query().Get("session_id")

	outcome := h.controller.CompleteSuccess(r.Context(), sessionID, providerSessionID)

	status := http.StatusOK
	if outcome.State == reconcile.StateFailed {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, outcomeResponse(outcome))
}

// Cancel обрабатывает GET /payments/cancel.
func (h *PaymentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionIDFromContext(r.Context())

	outcome := h.controller.Cancel(r.Context(), sessionID)
	respondJSON(w, http.StatusOK, outcomeResponse(outcome))
}
