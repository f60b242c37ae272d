package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Ventas-api/internal/application/dto"
	"github.com/jhoicas/Ventas-api/internal/application/inventory"
)

// InventoryHandler reportes de inventario de la sucursal (protegido).
type InventoryHandler struct {
	replenishment *inventory.ReplenishmentUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(replenishment *inventory.ReplenishmentUseCase) *InventoryHandler {
	return &InventoryHandler{replenishment: replenishment}
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición de la sucursal
// @Description  Devuelve los productos en o bajo su mínimo con la cantidad sugerida
//
//	de pedido, primero los agotados y luego el mayor déficit.
//
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branchId  path  string  true  "ID de la sucursal"
// @Success      200  {object}  dto.ReplenishmentListResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/branches/{branchId}/replenishment [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	branchID := c.Params("branchId")
	list, err := h.replenishment.GenerateReplenishmentList(c.UserContext(), GetCredentials(c), branchID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReplenishmentListResponse{
		BranchID:       branchID,
		Total:          len(list),
		Replenishments: list,
	})
}
