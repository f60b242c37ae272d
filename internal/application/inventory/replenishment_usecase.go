package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Ventas-api/internal/application/auth"
	"github.com/jhoicas/Ventas-api/internal/application/dto"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

// idealStockFactor el stock ideal tras reponer es el mínimo por este factor.
var idealStockFactor = decimal.NewFromFloat(1.5)

// ReplenishmentUseCase genera la lista de reposición de una sucursal a partir de sus mínimos.
type ReplenishmentUseCase struct {
	stockRepo   repository.StockRepository
	productRepo repository.ProductRepository
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(
	stockRepo repository.StockRepository,
	productRepo repository.ProductRepository,
) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{
		stockRepo:   stockRepo,
		productRepo: productRepo,
	}
}

// GenerateReplenishmentList devuelve los productos en o bajo el mínimo con la cantidad sugerida
// de pedido. Primero los agotados, luego el mayor déficit. Solo admin o supervisor de la sucursal.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(
	ctx context.Context,
	cred auth.Credentials,
	branchID string,
) ([]dto.ReplenishmentSuggestion, error) {
	if err := cred.AuthorizeRestock(branchID); err != nil {
		return nil, err
	}

	low, err := uc.stockRepo.ListLowByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if len(low) == 0 {
		return []dto.ReplenishmentSuggestion{}, nil
	}

	suggestions := make([]dto.ReplenishmentSuggestion, 0, len(low))
	for _, rec := range low {
		ideal := int(decimal.NewFromInt(int64(rec.MinimumThreshold)).Mul(idealStockFactor).Ceil().IntPart())
		suggested := ideal - rec.QuantityOnHand
		if suggested < 0 {
			suggested = 0
		}
		s := dto.ReplenishmentSuggestion{
			ProductID:         rec.ProductID,
			QuantityOnHand:    rec.QuantityOnHand,
			MinimumThreshold:  rec.MinimumThreshold,
			IdealStock:        ideal,
			SuggestedOrderQty: suggested,
			PriceCurrent:      rec.PriceCurrent,
		}
		// Sin ficha de catálogo la sugerencia sale igual, sin SKU ni nombre.
		if p, err := uc.productRepo.GetByID(ctx, rec.ProductID); err == nil && p != nil {
			s.SKU = p.SKU
			s.ProductName = p.Name
		}
		suggestions = append(suggestions, s)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if (a.QuantityOnHand == 0) != (b.QuantityOnHand == 0) {
			return a.QuantityOnHand == 0
		}
		defA := a.MinimumThreshold - a.QuantityOnHand
		defB := b.MinimumThreshold - b.QuantityOnHand
		if defA != defB {
			return defA > defB
		}
		return a.ProductID < b.ProductID
	})

	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
