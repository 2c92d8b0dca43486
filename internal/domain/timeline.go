package domain

import "time"

// TimelineEvent — событие жизненного цикла checkout, привязанное к заказу.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}
