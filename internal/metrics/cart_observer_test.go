package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func gaugeValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, family := range families {
		byName[family.GetName()] = family
	}
	family, ok := byName[name]
	if !ok {
		t.Fatalf("missing metric family %s", name)
	}
	return family.GetMetric()[0].GetGauge().GetValue()
}

func TestCartObserver_TracksLines(t *testing.T) {
	registry := prometheus.NewRegistry()
	cart := memory.NewCartStore()
	observer := newCartObserverWithRegisterer(cart, registry)

	observer.Track("session-1")
	observer.Track("session-1") // повторный Track не удваивает подписку

	product := domain.ProductRef{ID: "product-a", Name: "Widget", PriceMinor: 1500}
	if err := cart.AddItem("session-1", product, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if got := gaugeValue(t, registry, "storefront_cart_lines"); got != 1 {
		t.Fatalf("expected 1 line, got %v", got)
	}

	other := domain.ProductRef{ID: "product-b", Name: "Gadget", PriceMinor: 4200}
	if err := cart.AddItem("session-1", other, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if got := gaugeValue(t, registry, "storefront_cart_lines"); got != 2 {
		t.Fatalf("expected 2 lines, got %v", got)
	}

	cart.Clear("session-1")
	if got := gaugeValue(t, registry, "storefront_cart_lines"); got != 0 {
		t.Fatalf("expected 0 lines after clear, got %v", got)
	}
}

func TestCartObserver_Forget(t *testing.T) {
	registry := prometheus.NewRegistry()
	cart := memory.NewCartStore()
	observer := newCartObserverWithRegisterer(cart, registry)

	observer.Track("session-1")
	product := domain.ProductRef{ID: "product-a", Name: "Widget", PriceMinor: 1500}
	if err := cart.AddItem("session-1", product, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}

	observer.Forget("session-1")
	if got := gaugeValue(t, registry, "storefront_cart_lines"); got != 0 {
		t.Fatalf("expected 0 lines after forget, got %v", got)
	}

	// После отписки изменения корзины gauge не трогают.
	if err := cart.AddItem("session-1", product, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if got := gaugeValue(t, registry, "storefront_cart_lines"); got != 0 {
		t.Fatalf("expected 0 lines for an untracked session, got %v", got)
	}
}
