package repository

import (
	"context"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// SaleSessionRepository define el puerto de persistencia para ventas y sus líneas (DIP).
// Get y GetForUpdate devuelven domain.ErrNotFound si la venta no existe.
type SaleSessionRepository interface {
	Create(ctx context.Context, session *entity.SaleSession) error
	GetByID(ctx context.Context, id string) (*entity.SaleSession, error)
	// GetForUpdate bloquea la venta hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.SaleSession, error)
	// Update guarda cabecera y reemplaza las líneas.
	Update(ctx context.Context, session *entity.SaleSession) error
}
