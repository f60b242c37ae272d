package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Ventas-api/internal/domain"
)

// Estados de una venta. DRAFT es el inicial; FINALIZED y CANCELLED son terminales.
const (
	SaleStatusDraft     = "DRAFT"
	SaleStatusFinalized = "FINALIZED"
	SaleStatusCancelled = "CANCELLED"
)

// Medios de pago aceptados en caja.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
)

// SaleSession es la venta en curso de una sucursal: borrador mientras se arma el carrito,
// inmutable una vez finalizada o anulada.
type SaleSession struct {
	ID            string
	BranchID      string
	OperatorID    string
	Status        string
	Lines         []SaleLine
	PaymentMethod string
	AmountPaid    decimal.Decimal
	Total         decimal.Decimal // se fija al finalizar
	ChangeDue     decimal.Decimal
	Version       int // sube con cada mutación aceptada
	OpenedAt      time.Time
	FinalizedAt   *time.Time
	CancelledAt   *time.Time
}

// NewSaleSession abre una venta en borrador.
func NewSaleSession(id, branchID, operatorID string, now time.Time) *SaleSession {
	return &SaleSession{
		ID:         id,
		BranchID:   branchID,
		OperatorID: operatorID,
		Status:     SaleStatusDraft,
		Lines:      []SaleLine{},
		Version:    1,
		OpenedAt:   now,
	}
}

// IsDraft indica si la venta todavía admite cambios.
func (s *SaleSession) IsDraft() bool {
	return s.Status == SaleStatusDraft
}

// LineByID devuelve la línea y su posición, o -1 si no existe.
func (s *SaleSession) LineByID(lineID string) (SaleLine, int) {
	for i, l := range s.Lines {
		if l.ID == lineID {
			return l, i
		}
	}
	return SaleLine{}, -1
}

// LineByProduct devuelve la línea del producto, si existe.
func (s *SaleSession) LineByProduct(productID string) (SaleLine, bool) {
	for _, l := range s.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return SaleLine{}, false
}

// QuantityAfterAdd es la cantidad que tendría la línea del producto tras sumar qty.
func (s *SaleSession) QuantityAfterAdd(productID string, qty int) int {
	if l, ok := s.LineByProduct(productID); ok {
		return l.Quantity + qty
	}
	return qty
}

// AddLine agrega qty unidades del producto. Si ya hay línea para el producto se fusiona
// (el precio capturado en la primera adición se conserva); si no, se crea con lineID.
func (s *SaleSession) AddLine(lineID, productID string, qty int, unitPrice decimal.Decimal) (SaleLine, error) {
	if !s.IsDraft() {
		return SaleLine{}, domain.ErrInvalidTransition
	}
	if productID == "" || qty <= 0 || unitPrice.IsNegative() {
		return SaleLine{}, domain.ErrInvalidInput
	}
	for i := range s.Lines {
		if s.Lines[i].ProductID == productID {
			s.Lines[i].Quantity += qty
			s.Version++
			return s.Lines[i], nil
		}
	}
	line := SaleLine{ID: lineID, ProductID: productID, Quantity: qty, UnitPriceSnapshot: unitPrice}
	s.Lines = append(s.Lines, line)
	s.Version++
	return line, nil
}

// UpdateLineQuantity reemplaza la cantidad de la línea. qty = 0 equivale a RemoveLine.
func (s *SaleSession) UpdateLineQuantity(lineID string, qty int) (line SaleLine, removed bool, err error) {
	if !s.IsDraft() {
		return SaleLine{}, false, domain.ErrInvalidTransition
	}
	if qty < 0 {
		return SaleLine{}, false, domain.ErrInvalidInput
	}
	if qty == 0 {
		current, _ := s.LineByID(lineID)
		if err := s.RemoveLine(lineID); err != nil {
			return SaleLine{}, false, err
		}
		return current, true, nil
	}
	_, idx := s.LineByID(lineID)
	if idx < 0 {
		return SaleLine{}, false, domain.ErrLineNotFound
	}
	s.Lines[idx].Quantity = qty
	s.Version++
	return s.Lines[idx], false, nil
}

// RemoveLine elimina la línea sin condiciones.
func (s *SaleSession) RemoveLine(lineID string) error {
	if !s.IsDraft() {
		return domain.ErrInvalidTransition
	}
	_, idx := s.LineByID(lineID)
	if idx < 0 {
		return domain.ErrLineNotFound
	}
	s.Lines = append(s.Lines[:idx:idx], s.Lines[idx+1:]...)
	s.Version++
	return nil
}

// LinesTotal suma los subtotales de las líneas actuales.
func (s *SaleSession) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// MarkFinalized pasa la venta de DRAFT a FINALIZED con el pago ya calculado.
func (s *SaleSession) MarkFinalized(paymentMethod string, amountPaid, changeDue decimal.Decimal, now time.Time) error {
	if !s.IsDraft() {
		return domain.ErrInvalidTransition
	}
	if len(s.Lines) == 0 {
		return domain.ErrInvalidInput
	}
	s.Status = SaleStatusFinalized
	s.PaymentMethod = paymentMethod
	s.AmountPaid = amountPaid
	s.Total = s.LinesTotal()
	s.ChangeDue = changeDue
	s.FinalizedAt = &now
	s.Version++
	return nil
}

// Cancel abandona el borrador. No hay reserva de stock que liberar.
func (s *SaleSession) Cancel(now time.Time) error {
	if !s.IsDraft() {
		return domain.ErrInvalidTransition
	}
	s.Status = SaleStatusCancelled
	s.CancelledAt = &now
	s.Version++
	return nil
}

// Clone copia profunda (las líneas no se comparten).
func (s *SaleSession) Clone() *SaleSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Lines = append([]SaleLine(nil), s.Lines...)
	if s.FinalizedAt != nil {
		t := *s.FinalizedAt
		c.FinalizedAt = &t
	}
	if s.CancelledAt != nil {
		t := *s.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}
