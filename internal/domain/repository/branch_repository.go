package repository

import (
	"context"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// BranchRepository define el puerto de lectura de sucursales (DIP). (nil, nil) si no existe.
type BranchRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Branch, error)
}
