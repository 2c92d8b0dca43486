package domain

// ProductRef — неизменяемый снимок товара каталога на момент добавления в корзину.
// Никакой инвариант не связывает снимок с живым каталогом: изменение цены после
// добавления в корзину здесь не отражается.
type ProductRef struct {
	// ID — идентификатор товара в каталоге.
	ID string `json:"id"`
	// Name — название товара.
	Name string `json:"name"`
	// Description — описание товара, уходит в line items платёжной сессии.
	Description string `json:"description,omitempty"`
	// PriceMinor — цена за единицу в минимальных денежных единицах (центы).
	PriceMinor int64 `json:"price"`
	// Images — ссылки на изображения товара.
	Images []string `json:"images,omitempty"`
}
