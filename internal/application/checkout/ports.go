package checkout

import (
	"context"
	"time"

	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD con los repositorios de venta,
// stock y movimientos atados a esa tx. Si fn devuelve error se hace Rollback.
type TxRunner interface {
	RunCheckout(ctx context.Context, fn func(
		saleRepo repository.SaleSessionRepository,
		stockRepo repository.StockRepository,
		movRepo repository.StockMovementRepository,
	) error) error
}

// FinalizeGuard impide que dos finalizaciones de la misma venta corran a la vez.
// Acquire devuelve domain.ErrFinalizeInProgress si ya hay una en curso.
type FinalizeGuard interface {
	Acquire(ctx context.Context, saleID string) (release func(), err error)
}

// Recorder registra métricas del flujo de caja.
type Recorder interface {
	ObserveFinalize(outcome string, elapsed time.Duration)
	CountLineMutation(op, outcome string)
	CountInsufficientStock(op string, products int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFinalize(string, time.Duration) {}
func (nopRecorder) CountLineMutation(string, string)      {}
func (nopRecorder) CountInsufficientStock(string, int)    {}
