package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// CartObserver поддерживает gauge суммарного числа позиций во всех корзинах,
// подписываясь на изменения корзины каждой наблюдаемой сессии.
type CartObserver struct {
	cart  domain.CartStore
	gauge prometheus.Gauge

	mu      sync.Mutex
	lines   map[string]int
	tracked map[string]func()
}

// NewCartObserver создаёт наблюдатель корзин.
func NewCartObserver(cart domain.CartStore) *CartObserver {
	return newCartObserverWithRegisterer(cart, prometheus.DefaultRegisterer)
}

func newCartObserverWithRegisterer(cart domain.CartStore, registerer prometheus.Registerer) *CartObserver {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &CartObserver{
		cart: cart,
		gauge: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_cart_lines",
			Help: "Total number of cart lines across observed sessions",
		}),
		lines:   make(map[string]int),
		tracked: make(map[string]func()),
	}
}

// Track начинает наблюдение за корзиной сессии. Повторный вызов для той же
// сессии — no-op, поэтому его можно дергать на каждом запросе.
func (o *CartObserver) Track(sessionID string) {
	if sessionID == "" {
		return
	}

	o.mu.Lock()
	if _, ok := o.tracked[sessionID]; ok {
		o.mu.Unlock()
		return
	}
	// Резервируем слот до подписки, чтобы конкурентный Track той же сессии
	// не подписался дважды.
	o.tracked[sessionID] = func() {}
	o.mu.Unlock()

	unsubscribe := o.cart.Subscribe(sessionID, func(items []domain.CartItem) {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.lines[sessionID] = len(items)
		o.refresh()
	})

	o.mu.Lock()
	o.tracked[sessionID] = unsubscribe
	o.lines[sessionID] = len(o.cart.Items(sessionID))
	o.refresh()
	o.mu.Unlock()
}

// Forget прекращает наблюдение за сессией.
func (o *CartObserver) Forget(sessionID string) {
	o.mu.Lock()
	unsubscribe, ok := o.tracked[sessionID]
	delete(o.tracked, sessionID)
	delete(o.lines, sessionID)
	o.refresh()
	o.mu.Unlock()

	if ok {
		unsubscribe()
	}
}

// refresh пересчитывает gauge; вызывается под mutex.
func (o *CartObserver) refresh() {
	total := 0
	for _, count := range o.lines {
		total += count
	}
	o.gauge.Set(float64(total))
}
