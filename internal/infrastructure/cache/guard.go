package cache

import (
	"context"
	"sync"

	"github.com/jhoicas/Ventas-api/internal/application/checkout"
	"github.com/jhoicas/Ventas-api/internal/domain"
)

var (
	_ checkout.FinalizeGuard = (*MemoryFinalizeGuard)(nil)
	_ checkout.FinalizeGuard = NoopFinalizeGuard{}
)

// MemoryFinalizeGuard candado por venta dentro del proceso (una sola instancia de la API).
type MemoryFinalizeGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewMemoryFinalizeGuard construye el candado en memoria.
func NewMemoryFinalizeGuard() *MemoryFinalizeGuard {
	return &MemoryFinalizeGuard{active: make(map[string]struct{})}
}

func (g *MemoryFinalizeGuard) Acquire(_ context.Context, saleID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[saleID]; busy {
		return nil, domain.ErrFinalizeInProgress
	}
	g.active[saleID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, saleID)
			g.mu.Unlock()
		})
	}, nil
}

// NoopFinalizeGuard no bloquea nada; la transacción sigue garantizando que no se descuente dos veces.
type NoopFinalizeGuard struct{}

func (NoopFinalizeGuard) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}
