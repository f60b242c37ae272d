package repository

import (
	"context"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// StockRepository define el puerto para consultar/actualizar stock por sucursal+producto.
// Get y GetForUpdate devuelven domain.ErrNotFound si el producto no tiene registro en la sucursal.
type StockRepository interface {
	Get(ctx context.Context, branchID, productID string) (*entity.StockRecord, error)
	// GetForUpdate bloquea la fila para update (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, branchID, productID string) (*entity.StockRecord, error)
	// DecrementIfAvailable resta qty solo si quantity_on_hand >= qty; false si no alcanzó.
	DecrementIfAvailable(ctx context.Context, branchID, productID string, qty int) (bool, error)
	Upsert(ctx context.Context, stock *entity.StockRecord) error
	// ListLowByBranch existencias en o bajo el mínimo, ordenadas por producto.
	ListLowByBranch(ctx context.Context, branchID string) ([]*entity.StockRecord, error)
}
