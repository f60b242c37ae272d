package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrLineNotFound       = errors.New("línea de venta no encontrada")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrInvalidTransition  = errors.New("la venta no está en borrador")
	ErrFinalizeInProgress = errors.New("la venta ya se está finalizando")
)

// StockShortage describe un producto sin existencias suficientes: lo pedido frente a lo disponible.
type StockShortage struct {
	ProductID string
	Requested int
	Available int
}

// InsufficientStockError agrupa todos los productos que no alcanzan.
// errors.Is(err, ErrInsufficientStock) es verdadero para este tipo.
type InsufficientStockError struct {
	Shortages []StockShortage
}

// NewInsufficientStock construye el error para uno o varios productos.
func NewInsufficientStock(shortages ...StockShortage) *InsufficientStockError {
	return &InsufficientStockError{Shortages: shortages}
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (pedido %d, disponible %d)", s.ProductID, s.Requested, s.Available))
	}
	return ErrInsufficientStock.Error() + ": " + strings.Join(parts, ", ")
}

// Is permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ProductIDs devuelve los productos afectados en el orden en que se detectaron.
func (e *InsufficientStockError) ProductIDs() []string {
	ids := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		ids = append(ids, s.ProductID)
	}
	return ids
}
