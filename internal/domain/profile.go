package domain

// UserProfile — профиль покупателя, хранимый бэкендом. Без заполненного
// профиля оформление заказа не начинается: оркестратор отправляет
// пользователя на заполнение профиля вместо создания заказа.
type UserProfile struct {
	Name        string `json:"name"`
	Address     string `json:"address,omitempty"`
	PhoneNumber string `json:"phone_number"`
}
