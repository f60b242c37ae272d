package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// OpenSaleRequest entrada para abrir una venta.
type OpenSaleRequest struct {
	BranchID string `json:"branch_id" validate:"required"`
}

// AddLineRequest entrada para agregar unidades de un producto.
type AddLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// UpdateLineRequest reemplaza la cantidad de una línea; 0 la elimina.
type UpdateLineRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

// FinalizeRequest entrada para cerrar la venta. AmountPaid solo aplica a efectivo.
type FinalizeRequest struct {
	PaymentMethod string           `json:"payment_method" validate:"required,oneof=cash card transfer"`
	AmountPaid    *decimal.Decimal `json:"amount_paid,omitempty"`
}

// SaleLineResponse salida de una línea.
type SaleLineResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// SaleSessionResponse snapshot completo de la venta; todas las mutaciones lo devuelven.
type SaleSessionResponse struct {
	ID            string             `json:"id"`
	BranchID      string             `json:"branch_id"`
	OperatorID    string             `json:"operator_id"`
	Status        string             `json:"status"`
	Lines         []SaleLineResponse `json:"lines"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	AmountPaid    *decimal.Decimal   `json:"amount_paid,omitempty"`
	Total         decimal.Decimal    `json:"total"`
	ChangeDue     decimal.Decimal    `json:"change_due"`
	Version       int                `json:"version"`
	OpenedAt      time.Time          `json:"opened_at"`
	FinalizedAt   *time.Time         `json:"finalized_at,omitempty"`
	CancelledAt   *time.Time         `json:"cancelled_at,omitempty"`
}

// LineMutationResponse salida de agregar/actualizar/eliminar línea.
type LineMutationResponse struct {
	Line    *SaleLineResponse   `json:"line,omitempty"`
	Removed bool                `json:"removed"`
	Session SaleSessionResponse `json:"session"`
}

// FinalizeResponse salida de una venta finalizada.
type FinalizeResponse struct {
	Status    string              `json:"status"`
	Total     decimal.Decimal     `json:"total"`
	ChangeDue decimal.Decimal     `json:"change_due"`
	LowStock  []StockResponse     `json:"low_stock"`
	Session   SaleSessionResponse `json:"session"`
}

// FromSaleLine mapea una línea a su salida.
func FromSaleLine(l entity.SaleLine) SaleLineResponse {
	return SaleLineResponse{
		ID:        l.ID,
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
		UnitPrice: l.UnitPriceSnapshot,
		Subtotal:  l.Subtotal(),
	}
}

// FromSaleSession mapea la venta a su snapshot de salida.
func FromSaleSession(s *entity.SaleSession) SaleSessionResponse {
	lines := make([]SaleLineResponse, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, FromSaleLine(l))
	}
	out := SaleSessionResponse{
		ID:            s.ID,
		BranchID:      s.BranchID,
		OperatorID:    s.OperatorID,
		Status:        s.Status,
		Lines:         lines,
		PaymentMethod: s.PaymentMethod,
		Total:         s.LinesTotal(),
		ChangeDue:     s.ChangeDue,
		Version:       s.Version,
		OpenedAt:      s.OpenedAt,
		FinalizedAt:   s.FinalizedAt,
		CancelledAt:   s.CancelledAt,
	}
	if s.Status == entity.SaleStatusFinalized {
		paid := s.AmountPaid
		out.AmountPaid = &paid
	}
	return out
}
