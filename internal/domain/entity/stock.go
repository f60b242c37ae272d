package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockRecord es la existencia de un producto en una sucursal y su precio de venta vigente.
// Solo lo modifican la finalización de ventas (descuento) y la reposición.
type StockRecord struct {
	BranchID         string
	ProductID        string
	QuantityOnHand   int
	MinimumThreshold int
	PriceCurrent     decimal.Decimal
	UpdatedAt        time.Time
}

// IsLow indica si la existencia quedó en o por debajo del mínimo.
func (s StockRecord) IsLow() bool {
	return s.QuantityOnHand <= s.MinimumThreshold
}
