package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// sessionCart хранит позиции одной браузерной сессии и её подписчиков.
type sessionCart struct {
	items       map[string]domain.CartItem
	subscribers map[int]func(items []domain.CartItem)
}

// cartStoreInMemory — реализация CartStore поверх памяти процесса.
// Время жизни корзины — сессия; на успешном размещении заказа корзина
// очищается оркестратором явно.
type cartStoreInMemory struct {
	mu     sync.RWMutex
	carts  map[string]*sessionCart
	nextID int
}

// NewCartStore возвращает in-memory хранилище корзин.
func NewCartStore() domain.CartStore {
	return &cartStoreInMemory{carts: make(map[string]*sessionCart)}
}

func (s *cartStoreInMemory) cart(sessionID string) *sessionCart {
	c, ok := s.carts[sessionID]
	if !ok {
		c = &sessionCart{
			items:       make(map[string]domain.CartItem),
			subscribers: make(map[int]func(items []domain.CartItem)),
		}
		s.carts[sessionID] = c
	}
	return c
}

// AddItem добавляет товар в корзину; повторное добавление того же товара
// увеличивает количество существующей строки.
func (s *cartStoreInMemory) AddItem(sessionID string, product domain.ProductRef, qty int32) error {
	if strings.TrimSpace(product.ID) == "" {
		return domain.ErrProductIDRequired
	}
	if qty <= 0 {
		return domain.ErrProductQtyInvalid
	}

	s.mu.Lock()
	c := s.cart(sessionID)
	if existing, ok := c.items[product.ID]; ok {
		existing.Qty += qty
		c.items[product.ID] = existing
	} else {
		c.items[product.ID] = domain.CartItem{Product: product, Qty: qty}
	}
	snapshot, fns := c.snapshotAndSubscribers()
	s.mu.Unlock()

	notify(fns, snapshot)
	return nil
}

// UpdateQuantity заменяет количество позиции; значение <= 0 удаляет позицию.
func (s *cartStoreInMemory) UpdateQuantity(sessionID, productID string, qty int32) error {
	if strings.TrimSpace(productID) == "" {
		return domain.ErrProductIDRequired
	}

	s.mu.Lock()
	c := s.cart(sessionID)
	if qty <= 0 {
		delete(c.items, productID)
	} else if existing, ok := c.items[productID]; ok {
		existing.Qty = qty
		c.items[productID] = existing
	}
	snapshot, fns := c.snapshotAndSubscribers()
	s.mu.Unlock()

	notify(fns, snapshot)
	return nil
}

// RemoveItem удаляет позицию корзины по идентификатору товара.
func (s *cartStoreInMemory) RemoveItem(sessionID, productID string) error {
	if strings.TrimSpace(productID) == "" {
		return domain.ErrProductIDRequired
	}

	s.mu.Lock()
	c := s.cart(sessionID)
	delete(c.items, productID)
	snapshot, fns := c.snapshotAndSubscribers()
	s.mu.Unlock()

	notify(fns, snapshot)
	return nil
}

// Clear очищает корзину сессии.
func (s *cartStoreInMemory) Clear(sessionID string) {
	s.mu.Lock()
	c := s.cart(sessionID)
	c.items = make(map[string]domain.CartItem)
	snapshot, fns := c.snapshotAndSubscribers()
	s.mu.Unlock()

	notify(fns, snapshot)
}

// Items возвращает снимок позиций, отсортированный по id товара для
// детерминированного порядка в ответах и line items.
func (s *cartStoreInMemory) Items(sessionID string) []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[sessionID]
	if !ok {
		return nil
	}
	snapshot, _ := c.snapshotAndSubscribers()
	return snapshot
}

// TotalMinor считает сумму корзины целочисленно, без плавающей точки.
func (s *cartStoreInMemory) TotalMinor(sessionID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[sessionID]
	if !ok {
		return 0
	}
	var total int64
	for _, item := range c.items {
		total += item.SubtotalMinor()
	}
	return total
}

// ItemCount возвращает суммарное количество единиц товара.
func (s *cartStoreInMemory) ItemCount(sessionID string) int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[sessionID]
	if !ok {
		return 0
	}
	var count int32
	for _, item := range c.items {
		count += item.Qty
	}
	return count
}

// Subscribe регистрирует наблюдателя изменений корзины.
func (s *cartStoreInMemory) Subscribe(sessionID string, fn func(items []domain.CartItem)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cart(sessionID)
	id := s.nextID
	s.nextID++
	c.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// snapshotAndSubscribers собирает копию позиций и список подписчиков;
// вызывается под блокировкой, уведомления уходят уже без неё.
func (c *sessionCart) snapshotAndSubscribers() ([]domain.CartItem, []func(items []domain.CartItem)) {
	snapshot := make([]domain.CartItem, 0, len(c.items))
	for _, item := range c.items {
		snapshot = append(snapshot, item)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].Product.ID < snapshot[j].Product.ID
	})

	fns := make([]func(items []domain.CartItem), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	return snapshot, fns
}

func notify(fns []func(items []domain.CartItem), snapshot []domain.CartItem) {
	for _, fn := range fns {
		fn(snapshot)
	}
}

var _ domain.CartStore = (*cartStoreInMemory)(nil)
