package sale

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// IsSupportedPaymentMethod indica si el medio de pago se acepta en caja.
func IsSupportedPaymentMethod(method string) bool {
	switch method {
	case entity.PaymentCash, entity.PaymentCard, entity.PaymentTransfer:
		return true
	}
	return false
}

// Settle calcula lo pagado y el vuelto de una venta (servicio de dominio).
// Efectivo: amountPaid ausente equivale a pago exacto; menor al total es inválido; vuelto = pagado - total.
// Otros medios: se cobra el total y no hay vuelto.
func Settle(method string, total decimal.Decimal, amountPaid *decimal.Decimal) (paid, change decimal.Decimal, err error) {
	if !IsSupportedPaymentMethod(method) {
		return decimal.Zero, decimal.Zero, domain.ErrInvalidInput
	}
	if amountPaid != nil && amountPaid.IsNegative() {
		return decimal.Zero, decimal.Zero, domain.ErrInvalidInput
	}
	if method != entity.PaymentCash {
		return total, decimal.Zero, nil
	}
	if amountPaid == nil {
		return total, decimal.Zero, nil
	}
	if amountPaid.LessThan(total) {
		return decimal.Zero, decimal.Zero, domain.ErrInvalidInput
	}
	return *amountPaid, amountPaid.Sub(total), nil
}
