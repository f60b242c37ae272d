package entity

import "time"

// Tipos de movimiento de inventario.
const (
	MovementTypeOutSale   = "OUT_SALE"   // salida por venta finalizada
	MovementTypeInRestock = "IN_RESTOCK" // entrada por reposición
)

// StockMovement registra cada cambio de existencias de una sucursal.
type StockMovement struct {
	ID            string
	TransactionID string // venta o reposición que lo originó
	BranchID      string
	ProductID     string
	Type          string
	Quantity      int // positivo entrada, negativo salida
	CreatedAt     time.Time
	CreatedBy     string // UserID
}
