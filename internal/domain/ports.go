package domain

import (
	"context"
	"time"
)

// CartStore хранит корзины покупателей, ключ — идентификатор браузерной
// сессии. Единственный компонент без внешних зависимостей: все побочные
// эффекты — изменения состояния в памяти, наблюдаемые подписчиками.
type CartStore interface {
	// AddItem добавляет товар; для уже существующего товара увеличивает
	// количество, а не создаёт дубликат строки.
	AddItem(sessionID string, product ProductRef, qty int32) error
	// UpdateQuantity выставляет количество; результат <= 0 удаляет позицию.
	UpdateQuantity(sessionID, productID string, qty int32) error
	// RemoveItem удаляет позицию по идентификатору товара.
	RemoveItem(sessionID, productID string) error
	// Clear очищает корзину сессии.
	Clear(sessionID string)
	// Items возвращает снимок позиций корзины.
	Items(sessionID string) []CartItem
	// TotalMinor возвращает сумму по корзине в минимальных единицах.
	TotalMinor(sessionID string) int64
	// ItemCount возвращает суммарное количество единиц товара в корзине.
	ItemCount(sessionID string) int32
	// Subscribe регистрирует наблюдателя изменений корзины сессии
	// и возвращает функцию отписки.
	Subscribe(sessionID string, fn func(items []CartItem)) (unsubscribe func())
}

// PendingPaymentLedger — durable-запись «какой заказ ждёт подтверждения
// оплаты», единственный мост через разрыв редиректа. На сессию — не более
// одного маркера: SetPending всегда перезаписывает.
//
// Контракт best-effort: потеря маркера восстановима (заказы видны в списке),
// поэтому реализации не отдают ошибки хранилища наружу — запись «как
// получится», чтение деградирует до «отсутствует».
type PendingPaymentLedger interface {
	SetPending(ctx context.Context, sessionID, orderID string)
	GetPending(ctx context.Context, sessionID string) (orderID string, ok bool)
	ClearPending(ctx context.Context, sessionID string)
}

// ExpiredMarkerDeleter реализуется бэкендами леджера, которым нужна
// периодическая уборка просроченных маркеров (memory, postgres).
// Redis чистит себя сам через TTL.
type ExpiredMarkerDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// OrderGateway — типизированная обёртка над операциями бэкенд-леджера.
// Все вызовы удалённые; ошибки сети и авторизации отдаются вызывающему
// без изменений — без retry и без кэширования. Политика повторов — зона
// ответственности оркестратора, не шлюза.
type OrderGateway interface {
	// CreateOrder создаёт заказ в статусе pendingPayment и возвращает его id.
	CreateOrder(ctx context.Context, customerID string, productIDs []string) (string, error)
	// CreateCheckoutSession запрашивает hosted-сессию у платёжного провайдера.
	CreateCheckoutSession(ctx context.Context, customerID string, items []ShoppingItem, successURL, cancelURL string) (PaymentSession, error)
	// CompletePayment подтверждает оплату. Безопасен при повторном вызове
	// для той же пары (sessionID, orderID): авторитет — бэкенд, шлюз
	// локально ничего не дедуплицирует.
	CompletePayment(ctx context.Context, sessionID, orderID string) error
	// GetOrder возвращает заказ или ErrOrderNotFound.
	GetOrder(ctx context.Context, orderID string) (Order, error)
	// GetOrders возвращает заказы покупателя.
	GetOrders(ctx context.Context, customerID string) ([]Order, error)
	// GetProfile возвращает профиль покупателя или ErrProfileNotFound.
	GetProfile(ctx context.Context, customerID string) (UserProfile, error)
}

// Navigator абстрагирует уход полного контекста страницы на внешний URL.
// Шаг Redirecting не возвращает управление приложению: всё, что дальше,
// ведёт контроллер reconciliation.
type Navigator interface {
	Redirect(url string)
}

// OutboxMessage хранит данные публикуемого события checkout-потока.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog событий.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxPublisher публикует события из outbox; должен быть идемпотентным.
type OutboxPublisher interface {
	Publish(event OutboxMessage) error
}

// OutboxRepository сохраняет события checkout-потока для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла checkout для диагностики.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// CheckoutStep задаёт константы шагов оформления для метрик и логов.
type CheckoutStep string

const (
	CheckoutStepValidate      CheckoutStep = "validate"
	CheckoutStepCreateOrder   CheckoutStep = "create_order"
	CheckoutStepCreateSession CheckoutStep = "create_session"
	CheckoutStepPersistMarker CheckoutStep = "persist_marker"
	CheckoutStepRedirect      CheckoutStep = "redirect"
	CheckoutStepComplete      CheckoutStep = "complete_payment"
	CheckoutStepCancel        CheckoutStep = "cancel"
)
