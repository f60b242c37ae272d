package entity

import "time"

// Product representa un producto del catálogo. El precio de venta vive en StockRecord
// porque cada sucursal puede tener el suyo.
type Product struct {
	ID        string
	SKU       string // código único
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
