package memory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// Identificadores del catálogo demo.
const (
	SeedBranchID  = "1"
	SeedAdminID   = "u-admin"
	SeedCashierID = "u-cajero"
)

// NewSeeded crea un store con una sucursal, catálogo y dos usuarios (admin y cajero) para
// levantar la API sin base de datos.
func NewSeeded(adminPassword, cashierPassword string) (*Store, error) {
	s := NewStore()
	now := time.Now().UTC()

	s.PutBranch(entity.Branch{ID: SeedBranchID, Name: "Sucursal Centro", Address: "Calle 10 # 5-20", Active: true, CreatedAt: now, UpdatedAt: now})

	for _, p := range []struct {
		id, sku, name string
		price         string
		qty, min      int
	}{
		{"42", "CAFE-500", "Café molido 500 g", "10.00", 25, 5},
		{"43", "AZUC-1K", "Azúcar 1 kg", "4.50", 40, 10},
		{"44", "LECHE-1L", "Leche entera 1 L", "3.20", 60, 12},
		{"45", "PAN-TAJ", "Pan tajado", "5.75", 15, 4},
		{"46", "ARROZ-1K", "Arroz 1 kg", "3.90", 0, 10},
	} {
		s.PutProduct(entity.Product{ID: p.id, SKU: p.sku, Name: p.name, Active: true, CreatedAt: now, UpdatedAt: now})
		s.PutStock(entity.StockRecord{
			BranchID:         SeedBranchID,
			ProductID:        p.id,
			QuantityOnHand:   p.qty,
			MinimumThreshold: p.min,
			PriceCurrent:     decimal.RequireFromString(p.price),
			UpdatedAt:        now,
		})
	}

	for _, u := range []struct {
		id, email, name, role, password string
	}{
		{SeedAdminID, "admin@ventas.local", "Administrador", entity.RoleAdmin, adminPassword},
		{SeedCashierID, "cajero@ventas.local", "Cajero Turno 1", entity.RoleCajero, cashierPassword},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash seed password %s: %w", u.email, err)
		}
		s.PutUser(entity.User{
			ID:           u.id,
			BranchID:     SeedBranchID,
			Email:        u.email,
			PasswordHash: string(hash),
			Name:         u.name,
			Role:         u.role,
			Status:       "active",
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return s, nil
}
