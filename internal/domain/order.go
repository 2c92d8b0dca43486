package domain

import "time"

// OrderStatus описывает жизненный цикл заказа на стороне бэкенда.
// Переходы статуса принадлежат бэкенду и монотонны:
// pendingPayment → paid → shipped. Клиент статус никогда не пишет напрямую.
type OrderStatus string

const (
	// OrderStatusPendingPayment — заказ создан, оплата ещё не подтверждена.
	OrderStatusPendingPayment OrderStatus = "pendingPayment"
	// OrderStatusPaid — оплата подтверждена платёжным провайдером.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
)

// Customer — снимок данных покупателя на момент размещения заказа.
type Customer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address,omitempty"`
	PhoneNumber string `json:"phone_number"`
}

// Order — запись бэкенд-леджера о размещённой покупке. Здесь она только
// читается; единственная мутация со стороны клиента — идемпотентный
// CompletePayment через шлюз.
type Order struct {
	ID         string      `json:"id"`
	Status     OrderStatus `json:"status"`
	PlacedTime time.Time   `json:"placed_time"`
	// TotalMinor — итоговая сумма заказа в минимальных денежных единицах.
	TotalMinor int64    `json:"total"`
	Customer   Customer `json:"customer"`
	// Products — снимок списка товаров на момент создания заказа.
	Products []ProductRef `json:"products"`
	// PaymentIntentID может быть пустым, пока провайдер не привязал платёж.
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
}
