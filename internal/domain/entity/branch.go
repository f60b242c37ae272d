package entity

import "time"

// Branch representa una sucursal con caja propia y existencias propias.
type Branch struct {
	ID        string
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
