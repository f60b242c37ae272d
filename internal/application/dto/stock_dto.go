package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// RestockRequest entrada para reponer existencias. Precio y mínimo son obligatorios
// solo la primera vez que el producto entra a la sucursal.
type RestockRequest struct {
	BranchID         string           `json:"branch_id" validate:"required"`
	ProductID        string           `json:"product_id" validate:"required"`
	Quantity         int              `json:"quantity" validate:"required,gt=0"`
	PriceCurrent     *decimal.Decimal `json:"price_current,omitempty"`
	MinimumThreshold *int             `json:"minimum_threshold,omitempty" validate:"omitempty,gte=0"`
}

// StockResponse existencia de un producto en una sucursal.
type StockResponse struct {
	BranchID         string          `json:"branch_id"`
	ProductID        string          `json:"product_id"`
	QuantityOnHand   int             `json:"quantity_on_hand"`
	MinimumThreshold int             `json:"minimum_threshold"`
	PriceCurrent     decimal.Decimal `json:"price_current"`
	Low              bool            `json:"low"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// FromStockRecord mapea un registro de stock a su salida.
func FromStockRecord(s entity.StockRecord) StockResponse {
	return StockResponse{
		BranchID:         s.BranchID,
		ProductID:        s.ProductID,
		QuantityOnHand:   s.QuantityOnHand,
		MinimumThreshold: s.MinimumThreshold,
		PriceCurrent:     s.PriceCurrent,
		Low:              s.IsLow(),
		UpdatedAt:        s.UpdatedAt,
	}
}

// ReplenishmentSuggestion producto de la sucursal en o bajo su mínimo, con la cantidad sugerida a pedir.
type ReplenishmentSuggestion struct {
	ProductID         string          `json:"product_id"`
	SKU               string          `json:"sku"`
	ProductName       string          `json:"product_name"`
	QuantityOnHand    int             `json:"quantity_on_hand"`
	MinimumThreshold  int             `json:"minimum_threshold"`
	IdealStock        int             `json:"ideal_stock"`
	SuggestedOrderQty int             `json:"suggested_order_qty"`
	PriceCurrent      decimal.Decimal `json:"price_current"`
	Priority          int             `json:"priority"` // 1 = más urgente
}

// ReplenishmentListResponse salida de la lista de reposición.
type ReplenishmentListResponse struct {
	BranchID       string                    `json:"branch_id"`
	Total          int                       `json:"total"`
	Replenishments []ReplenishmentSuggestion `json:"replenishments"`
}
