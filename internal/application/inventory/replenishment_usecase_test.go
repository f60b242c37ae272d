package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Ventas-api/internal/application/inventory"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/memory"
)

func TestGenerateReplenishmentList_AgotadosPrimeroLuegoDeficit(t *testing.T) {
	s := memory.NewStore()
	s.PutProduct(entity.Product{ID: "A", SKU: "SKU-A", Name: "Producto A", Active: true})
	price := decimal.NewFromInt(2)
	s.PutStock(entity.StockRecord{BranchID: "1", ProductID: "A", QuantityOnHand: 1, MinimumThreshold: 10, PriceCurrent: price})
	s.PutStock(entity.StockRecord{BranchID: "1", ProductID: "B", QuantityOnHand: 0, MinimumThreshold: 3, PriceCurrent: price})
	s.PutStock(entity.StockRecord{BranchID: "1", ProductID: "C", QuantityOnHand: 4, MinimumThreshold: 4, PriceCurrent: price})
	s.PutStock(entity.StockRecord{BranchID: "1", ProductID: "D", QuantityOnHand: 9, MinimumThreshold: 4, PriceCurrent: price})
	s.PutStock(entity.StockRecord{BranchID: "2", ProductID: "A", QuantityOnHand: 0, MinimumThreshold: 5, PriceCurrent: price})
	uc := inventory.NewReplenishmentUseCase(memory.NewStockRepository(s), memory.NewProductRepository(s))

	list, err := uc.GenerateReplenishmentList(context.Background(), supervisor, "1")
	require.NoError(t, err)
	require.Len(t, list, 3, "D está sobre el mínimo y la sucursal 2 no cuenta")

	assert.Equal(t, "B", list[0].ProductID)
	assert.Equal(t, 5, list[0].IdealStock, "ceil(3 * 1.5)")
	assert.Equal(t, 5, list[0].SuggestedOrderQty)
	assert.Empty(t, list[0].SKU, "sin ficha de catálogo")

	assert.Equal(t, "A", list[1].ProductID)
	assert.Equal(t, "SKU-A", list[1].SKU)
	assert.Equal(t, 14, list[1].SuggestedOrderQty)

	assert.Equal(t, "C", list[2].ProductID)
	assert.Equal(t, 2, list[2].SuggestedOrderQty)
	for i, s := range list {
		assert.Equal(t, i+1, s.Priority)
	}
}

func TestGenerateReplenishmentList_SoloAdminOSupervisorDeLaSucursal(t *testing.T) {
	uc := inventory.NewReplenishmentUseCase(memory.NewStockRepository(memory.NewStore()), memory.NewProductRepository(memory.NewStore()))

	_, err := uc.GenerateReplenishmentList(context.Background(), cajero, "1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.GenerateReplenishmentList(context.Background(), supervisor, "2")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	list, err := uc.GenerateReplenishmentList(context.Background(), supervisor, "1")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
