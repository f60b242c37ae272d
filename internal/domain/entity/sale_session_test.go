package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newDraft() *entity.SaleSession {
	return entity.NewSaleSession("s-1", "b-1", "u-1", now)
}

func assertSubtotalInvariant(t *testing.T, s *entity.SaleSession) {
	t.Helper()
	sum := decimal.Zero
	for _, l := range s.Lines {
		sum = sum.Add(l.UnitPriceSnapshot.Mul(decimal.NewFromInt(int64(l.Quantity))))
		assert.Positive(t, l.Quantity, "toda línea viva tiene cantidad > 0")
	}
	assert.True(t, sum.Equal(s.LinesTotal()), "Σ subtotal == Σ cantidad × precio")
}

func TestAddLine_FusionaMismoProducto(t *testing.T) {
	s := newDraft()
	_, err := s.AddLine("l-1", "42", 2, decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	line, err := s.AddLine("l-2", "42", 1, decimal.RequireFromString("12.00"))
	require.NoError(t, err)

	require.Len(t, s.Lines, 1, "una sola línea por producto")
	assert.Equal(t, "l-1", line.ID)
	assert.Equal(t, 3, line.Quantity)
	assert.True(t, decimal.RequireFromString("30.00").Equal(line.Subtotal()), "se conserva el precio de la primera adición")
	assert.Equal(t, 3, s.Version)
	assertSubtotalInvariant(t, s)
}

func TestAddLine_CantidadInvalida(t *testing.T) {
	s := newDraft()
	_, err := s.AddLine("l-1", "42", 0, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.AddLine("l-1", "", 1, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, s.Lines)
	assert.Equal(t, 1, s.Version)
}

func TestUpdateLineQuantity_ReemplazaYCeroElimina(t *testing.T) {
	s := newDraft()
	_, _ = s.AddLine("l-1", "42", 2, decimal.NewFromInt(10))
	_, _ = s.AddLine("l-2", "43", 1, decimal.NewFromInt(5))

	line, removed, err := s.UpdateLineQuantity("l-1", 5)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 5, line.Quantity)
	assertSubtotalInvariant(t, s)

	line, removed, err = s.UpdateLineQuantity("l-1", 0)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, "l-1", line.ID)
	require.Len(t, s.Lines, 1)
	assert.Equal(t, "l-2", s.Lines[0].ID)

	_, _, err = s.UpdateLineQuantity("no-existe", 3)
	assert.ErrorIs(t, err, domain.ErrLineNotFound)
	_, _, err = s.UpdateLineQuantity("l-2", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRemoveLine_InexistenteNoAfectaOtras(t *testing.T) {
	s := newDraft()
	_, _ = s.AddLine("l-1", "42", 2, decimal.NewFromInt(10))
	before := s.Version

	err := s.RemoveLine("no-existe")
	assert.ErrorIs(t, err, domain.ErrLineNotFound)
	require.Len(t, s.Lines, 1)
	assert.Equal(t, before, s.Version)
}

func TestTransiciones_SonMonotonas(t *testing.T) {
	s := newDraft()
	_, _ = s.AddLine("l-1", "42", 3, decimal.NewFromInt(10))

	require.NoError(t, s.MarkFinalized(entity.PaymentCash, decimal.NewFromInt(50), decimal.NewFromInt(20), now))
	assert.Equal(t, entity.SaleStatusFinalized, s.Status)
	assert.True(t, decimal.NewFromInt(30).Equal(s.Total))
	require.NotNil(t, s.FinalizedAt)

	assert.ErrorIs(t, s.MarkFinalized(entity.PaymentCash, decimal.Zero, decimal.Zero, now), domain.ErrInvalidTransition)
	assert.ErrorIs(t, s.Cancel(now), domain.ErrInvalidTransition)
	_, err := s.AddLine("l-2", "43", 1, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.ErrorIs(t, s.RemoveLine("l-1"), domain.ErrInvalidTransition)
	assert.Equal(t, entity.SaleStatusFinalized, s.Status)
}

func TestCancel_DesdeBorrador(t *testing.T) {
	s := newDraft()
	require.NoError(t, s.Cancel(now))
	assert.Equal(t, entity.SaleStatusCancelled, s.Status)
	_, _, err := s.UpdateLineQuantity("l-1", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMarkFinalized_SinLineasEsInvalido(t *testing.T) {
	s := newDraft()
	assert.ErrorIs(t, s.MarkFinalized(entity.PaymentCard, decimal.Zero, decimal.Zero, now), domain.ErrInvalidInput)
	assert.True(t, s.IsDraft())
}

func TestClone_NoCompartePorciones(t *testing.T) {
	s := newDraft()
	_, _ = s.AddLine("l-1", "42", 2, decimal.NewFromInt(10))
	c := s.Clone()
	_, _, _ = c.UpdateLineQuantity("l-1", 9)

	assert.Equal(t, 2, s.Lines[0].Quantity)
	assert.Equal(t, 9, c.Lines[0].Quantity)
}

func TestInsufficientStockError_EsErrInsufficientStock(t *testing.T) {
	err := error(domain.NewInsufficientStock(
		domain.StockShortage{ProductID: "Y", Requested: 3, Available: 2},
		domain.StockShortage{ProductID: "Z", Requested: 1, Available: 0},
	))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Y (pedido 3, disponible 2)")

	var se *domain.InsufficientStockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"Y", "Z"}, se.ProductIDs())
}
