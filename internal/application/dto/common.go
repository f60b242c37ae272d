package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// StockShortageResponse detalle de un producto sin stock suficiente (para reintentar con otra cantidad).
type StockShortageResponse struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStockDetails va en ErrorResponse.Details cuando Code = INSUFFICIENT_STOCK.
type InsufficientStockDetails struct {
	ProductIDs []string                `json:"product_ids"`
	Shortages  []StockShortageResponse `json:"shortages"`
}
