package auth

import (
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/pkg/jwt"
)

// Credentials identifica al operador en cada operación de venta. Se construye a partir
// del token del turno y se pasa explícitamente a los casos de uso.
type Credentials struct {
	UserID   string
	BranchID string
	Role     string
}

// FromClaims arma las credenciales desde un token ya validado.
func FromClaims(c *jwt.Claims) Credentials {
	return Credentials{UserID: c.UserID, BranchID: c.BranchID, Role: c.Role}
}

// AuthorizeSale exige un rol de caja y que la venta pertenezca a la sucursal del operador.
func (c Credentials) AuthorizeSale(branchID string) error {
	if c.UserID == "" {
		return domain.ErrUnauthorized
	}
	if !entity.CanSell(c.Role) || c.BranchID != branchID {
		return domain.ErrForbidden
	}
	return nil
}

// AuthorizeRestock exige admin o supervisor de la sucursal.
func (c Credentials) AuthorizeRestock(branchID string) error {
	if c.UserID == "" {
		return domain.ErrUnauthorized
	}
	if !entity.CanRestock(c.Role) || c.BranchID != branchID {
		return domain.ErrForbidden
	}
	return nil
}
