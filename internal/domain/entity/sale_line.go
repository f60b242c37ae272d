package entity

import "github.com/shopspring/decimal"

// SaleLine es una línea de la venta. Hay como máximo una por producto dentro de la venta.
type SaleLine struct {
	ID                string
	ProductID         string
	Quantity          int             // siempre > 0 mientras la línea exista
	UnitPriceSnapshot decimal.Decimal // precio capturado al agregar; no cambia
}

// Subtotal se recalcula siempre desde cantidad y precio.
func (l SaleLine) Subtotal() decimal.Decimal {
	return l.UnitPriceSnapshot.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
