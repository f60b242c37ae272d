package memory

import (
	"context"

	"github.com/jhoicas/Ventas-api/internal/application/checkout"
	"github.com/jhoicas/Ventas-api/internal/application/inventory"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

var (
	_ inventory.TxRunner = (*TxRunner)(nil)
	_ checkout.TxRunner  = (*TxRunner)(nil)
)

// TxRunner serializa las transacciones sobre el store: lock exclusivo, copia del estado,
// publicación solo si fn no falla.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el runner para el store.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{store: s}
}

func (r *TxRunner) begin(ctx context.Context, fn func(b binding) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	work := r.store.st.clone()
	if err := fn(binding{tx: work}); err != nil {
		return err
	}
	work.publish()
	r.store.st = work
	return nil
}

// Run transacción de inventario (reposición).
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	stockRepo repository.StockRepository,
) error) error {
	return r.begin(ctx, func(b binding) error {
		return fn(&StockMovementRepo{b: b}, &StockRepo{b: b})
	})
}

// RunCheckout transacción de venta.
func (r *TxRunner) RunCheckout(ctx context.Context, fn func(
	saleRepo repository.SaleSessionRepository,
	stockRepo repository.StockRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	return r.begin(ctx, func(b binding) error {
		return fn(&SaleSessionRepo{b: b}, &StockRepo{b: b}, &StockMovementRepo{b: b})
	})
}
