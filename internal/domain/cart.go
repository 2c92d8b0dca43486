package domain

// CartItem представляет одну позицию корзины: снимок товара и количество.
// Позиция уникальна по идентификатору товара; обновление количества заменяет
// запись, а не дублирует её.
type CartItem struct {
	Product ProductRef `json:"product"`
	// Qty — количество единиц товара, всегда >= 1.
	Qty int32 `json:"qty"`
}

// SubtotalMinor возвращает стоимость позиции в минимальных единицах.
// Только целочисленная арифметика, чтобы исключить дрейф округления.
func (i CartItem) SubtotalMinor() int64 {
	return i.Product.PriceMinor * int64(i.Qty)
}
