package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Ventas-api/internal/application/dto"
	"github.com/jhoicas/Ventas-api/internal/application/inventory"
)

// StockHandler consulta y reposición de existencias por sucursal (protegido).
type StockHandler struct {
	ledger *inventory.StockLedger
}

// NewStockHandler construye el handler.
func NewStockHandler(ledger *inventory.StockLedger) *StockHandler {
	return &StockHandler{ledger: ledger}
}

// Get godoc
// @Summary      Existencia de un producto en la sucursal
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branchId   path  string  true  "ID de la sucursal"
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  dto.StockResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/branches/{branchId}/stock/{productId} [get]
func (h *StockHandler) Get(c *fiber.Ctx) error {
	rec, err := h.ledger.StockView(c.UserContext(), GetCredentials(c), c.Params("branchId"), c.Params("productId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromStockRecord(*rec))
}

// Restock godoc
// @Summary      Reponer existencias
// @Description  price_current es obligatorio la primera vez que el producto entra a la sucursal.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RestockRequest  true  "branch_id, product_id, quantity"
// @Success      201   {object}  dto.StockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/restock [post]
func (h *StockHandler) Restock(c *fiber.Ctx) error {
	var in dto.RestockRequest
	if ok, err := parseAndValidate(c, &in); !ok {
		return err
	}
	rec, err := h.ledger.Restock(c.UserContext(), GetCredentials(c), inventory.RestockInput{
		BranchID:         in.BranchID,
		ProductID:        in.ProductID,
		Quantity:         in.Quantity,
		PriceCurrent:     in.PriceCurrent,
		MinimumThreshold: in.MinimumThreshold,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromStockRecord(*rec))
}
