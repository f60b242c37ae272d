package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jhoicas/Ventas-api/internal/application/dto"
	"github.com/jhoicas/Ventas-api/internal/domain"
)

// Errores del controlador de caja.
var (
	ErrSaleLocked             = errors.New("la venta está bloqueada: finalización en curso o terminada")
	ErrFinalizePending        = errors.New("ya hay una finalización en curso")
	ErrFinalizeOutcomeUnknown = errors.New("resultado de la finalización desconocido: consultar estado antes de continuar")
	ErrSaleActive             = errors.New("hay una venta en borrador: finalizar o anular antes de abrir otra")
	ErrNoSale                 = errors.New("no hay venta abierta")
)

// ValidationError entrada rechazada antes de cualquier llamada de red.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validación: %s %s", e.Field, e.Reason)
}

// Is permite errors.Is(err, domain.ErrInvalidInput).
func (e *ValidationError) Is(target error) bool {
	return target == domain.ErrInvalidInput
}

// NetworkError falla de transporte. Retryable indica si el llamador puede reintentar a ciegas:
// solo las lecturas (abrir, consultar estado) lo son.
type NetworkError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("red (%s): %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError respuesta de error del servidor. Err es el sentinel de dominio equivalente al código.
type APIError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

var codeErrors = map[string]error{
	"VALIDATION":           domain.ErrInvalidInput,
	"INVALID_BODY":         domain.ErrInvalidInput,
	"NOT_FOUND":            domain.ErrNotFound,
	"LINE_NOT_FOUND":       domain.ErrLineNotFound,
	"INVALID_TRANSITION":   domain.ErrInvalidTransition,
	"FINALIZE_IN_PROGRESS": domain.ErrFinalizeInProgress,
	"FORBIDDEN":            domain.ErrForbidden,
	"UNAUTHORIZED":         domain.ErrUnauthorized,
	"MISSING_TOKEN":        domain.ErrUnauthorized,
	"INVALID_TOKEN":        domain.ErrUnauthorized,
	"MISSING_ROLE":         domain.ErrUnauthorized,
}

type errorEnvelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// decodeAPIError reconstruye el error tipado a partir del cuerpo dto.ErrorResponse.
// INSUFFICIENT_STOCK vuelve como *domain.InsufficientStockError con todos los faltantes.
func decodeAPIError(status int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Code == "" {
		return &APIError{Status: status, Code: "UNKNOWN", Message: string(body)}
	}
	if env.Code == "INSUFFICIENT_STOCK" {
		var details dto.InsufficientStockDetails
		if len(env.Details) > 0 && json.Unmarshal(env.Details, &details) == nil && len(details.Shortages) > 0 {
			shortages := make([]domain.StockShortage, 0, len(details.Shortages))
			for _, s := range details.Shortages {
				shortages = append(shortages, domain.StockShortage{
					ProductID: s.ProductID,
					Requested: s.Requested,
					Available: s.Available,
				})
			}
			return domain.NewInsufficientStock(shortages...)
		}
		return &APIError{Status: status, Code: env.Code, Message: env.Message, Err: domain.ErrInsufficientStock}
	}
	return &APIError{Status: status, Code: env.Code, Message: env.Message, Err: codeErrors[env.Code]}
}

// isNetwork indica si err es una falla de transporte.
func isNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
