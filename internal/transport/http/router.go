package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/reconcile"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// RouterDeps собирает зависимости HTTP-слоя.
type RouterDeps struct {
	Cart         domain.CartStore
	Orchestrator checkout.Orchestrator
	Reconciler   reconcile.Controller
	Gateway      domain.OrderGateway
	JWTSecret    []byte
	Logger       *log.Entry
	// OnSession вызывается на каждом запросе с идентификатором сессии
	// (используется для наблюдения за корзинами).
	OnSession func(sessionID string)
	// RequestTimeout ограничивает обработку одного запроса.
	RequestTimeout time.Duration
}

// NewRouter собирает маршруты сервиса.
func NewRouter(deps RouterDeps) http.Handler {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}

	cartHandler := NewCartHandler(deps.Cart, deps.Logger)
	checkoutHandler := NewCheckoutHandler(deps.Orchestrator, deps.Logger)
	paymentsHandler := NewPaymentsHandler(deps.Reconciler, deps.Logger)
	ordersHandler := NewOrdersHandler(deps.Gateway, deps.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(SessionMiddleware(deps.OnSession))

	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		v, commit, date := version.Info()
		respondJSON(w, http.StatusOK, map[string]string{
			"version": v,
			"commit":  commit,
			"date":    date,
		})
	})

	// Маршруты возврата от платёжного провайдера: покупатель приходит по
	// redirect без Authorization header, авторизация только по сессии.
	r.Route("/payments", func(r chi.Router) {
		r.Get("/success", paymentsHandler.Success)
		r.Get("/cancel", paymentsHandler.Cancel)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(deps.JWTSecret))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Patch("/items/{productID}", cartHandler.UpdateQuantity)
			r.Delete("/items/{productID}", cartHandler.RemoveItem)
		})

		r.Post("/checkout", checkoutHandler.PlaceOrder)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{orderID}", ordersHandler.GetOrder)
		})

		r.Get("/profile", ordersHandler.GetProfile)
	})

	return r
}
