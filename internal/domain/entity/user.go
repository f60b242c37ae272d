package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleCajero     = "cajero"
)

// User representa un operador (pertenece a una sucursal).
type User struct {
	ID           string
	BranchID     string
	Email        string
	PasswordHash string // bcrypt hash
	Name         string
	Role         string // admin, supervisor, cajero
	Status       string // active, inactive, suspended
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanSell indica si el rol puede operar la caja.
func CanSell(role string) bool {
	switch role {
	case RoleAdmin, RoleSupervisor, RoleCajero:
		return true
	}
	return false
}

// CanRestock indica si el rol puede registrar reposiciones.
func CanRestock(role string) bool {
	return role == RoleAdmin || role == RoleSupervisor
}
