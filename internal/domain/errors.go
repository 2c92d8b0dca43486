package domain

import "errors"

var (
	// ErrCartEmpty — оформление заказа с пустой корзиной не начинается.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrProfileRequired — у покупателя нет заполненного профиля; сначала профиль.
	ErrProfileRequired = errors.New("user profile is required")
	// ErrProductQtyInvalid — количество в позиции корзины должно быть > 0.
	ErrProductQtyInvalid = errors.New("item qty must be greater than zero")
	// ErrProductIDRequired — пустой идентификатор товара недопустим.
	ErrProductIDRequired = errors.New("product id is required")
	// ErrOrderNotFound возвращается, если заказ не найден в бэкенд-леджере.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProfileNotFound — бэкенд не знает профиль данного покупателя.
	ErrProfileNotFound = errors.New("user profile not found")
	// ErrSessionNotFound — success-маршрут вызван без идентификатора платёжной сессии.
	ErrSessionNotFound = errors.New("payment session not found")
	// ErrPendingOrderNotFound — pending-маркер отсутствует или устарел.
	ErrPendingOrderNotFound = errors.New("pending order not found")
	// ErrPaymentIncomplete — бэкенд отклонил завершение оплаты: сессия не оплачена.
	ErrPaymentIncomplete = errors.New("payment session is not paid")
	// ErrPaymentProviderUnavailable — платёжный провайдер не сконфигурирован на бэкенде.
	ErrPaymentProviderUnavailable = errors.New("payment provider is not configured")
	// ErrOutboxPublish — ошибка при публикации события из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)
