package domain

// PaymentSession — эфемерная сессия hosted-провайдера. Клиент хранит её только
// до перехода на платёжную страницу; после редиректа восстановление идёт через
// pending-маркер, а не через эту структуру.
type PaymentSession struct {
	// SessionID возвращается провайдером в query-параметре success-маршрута.
	SessionID string
	// URL — адрес платёжной страницы провайдера, на него уходит полный redirect.
	URL string
}

// ShoppingItem — строка платёжной сессии, собираемая из снимка корзины.
type ShoppingItem struct {
	ProductName        string `json:"product_name"`
	ProductDescription string `json:"product_description"`
	PriceMinor         int64  `json:"price_in_cents"`
	Quantity           int32  `json:"quantity"`
	Currency           string `json:"currency"`
}

// ShoppingItemsFromCart строит line items для платёжной сессии из снимка корзины.
func ShoppingItemsFromCart(items []CartItem, currency string) []ShoppingItem {
	result := make([]ShoppingItem, 0, len(items))
	for _, item := range items {
		result = append(result, ShoppingItem{
			ProductName:        item.Product.Name,
			ProductDescription: item.Product.Description,
			PriceMinor:         item.Product.PriceMinor,
			Quantity:           item.Qty,
			Currency:           currency,
		})
	}
	return result
}
