package client

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Ventas-api/internal/application/dto"
)

// CartLine línea confirmada por el servidor.
type CartLine struct {
	ID        string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// CartProjection vista inmutable del carrito, reconstruida desde cada snapshot del servidor.
// Nunca contiene líneas que el servidor no haya confirmado.
type CartProjection struct {
	saleID  string
	status  string
	version int
	lines   []CartLine
	total   decimal.Decimal
}

// ProjectionFrom arma la proyección desde un snapshot de la venta.
func ProjectionFrom(s dto.SaleSessionResponse) CartProjection {
	lines := make([]CartLine, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, CartLine{
			ID:        l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal,
		})
	}
	return CartProjection{
		saleID:  s.ID,
		status:  s.Status,
		version: s.Version,
		lines:   lines,
		total:   s.Total,
	}
}

// Apply devuelve la proyección del snapshot, salvo que sea de la misma venta y más viejo
// que la actual: en ese caso se descarta y se devuelve p sin cambios.
func (p CartProjection) Apply(s dto.SaleSessionResponse) (CartProjection, bool) {
	if p.saleID != "" && p.saleID == s.ID && s.Version < p.version {
		return p, false
	}
	return ProjectionFrom(s), true
}

func (p CartProjection) SaleID() string         { return p.saleID }
func (p CartProjection) Status() string         { return p.status }
func (p CartProjection) Version() int           { return p.version }
func (p CartProjection) Total() decimal.Decimal { return p.total }
func (p CartProjection) Len() int               { return len(p.lines) }

// Lines copia de las líneas en orden de inserción.
func (p CartProjection) Lines() []CartLine {
	out := make([]CartLine, len(p.lines))
	copy(out, p.lines)
	return out
}

// LineByID busca una línea por su ID.
func (p CartProjection) LineByID(lineID string) (CartLine, bool) {
	for _, l := range p.lines {
		if l.ID == lineID {
			return l, true
		}
	}
	return CartLine{}, false
}

// LineByProduct busca la línea de un producto.
func (p CartProjection) LineByProduct(productID string) (CartLine, bool) {
	for _, l := range p.lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}
