package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Ventas-api/internal/application/checkout"
	"github.com/jhoicas/Ventas-api/internal/application/dto"
)

// SaleHandler maneja la venta en caja: abrir, armar el carrito, finalizar y anular (protegido).
// Toda respuesta exitosa lleva el snapshot completo de la venta.
type SaleHandler struct {
	uc *checkout.UseCase
}

// NewSaleHandler construye el handler.
func NewSaleHandler(uc *checkout.UseCase) *SaleHandler {
	return &SaleHandler{uc: uc}
}

// Open godoc
// @Summary      Abrir venta
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OpenSaleRequest  true  "branch_id"
// @Success      201   {object}  dto.SaleSessionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Open(c *fiber.Ctx) error {
	var in dto.OpenSaleRequest
	if ok, err := parseAndValidate(c, &in); !ok {
		return err
	}
	session, err := h.uc.Open(c.UserContext(), GetCredentials(c), in.BranchID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromSaleSession(session))
}

// Get godoc
// @Summary      Consultar venta
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleSessionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) Get(c *fiber.Ctx) error {
	session, err := h.uc.Get(c.UserContext(), GetCredentials(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromSaleSession(session))
}

// AddLine godoc
// @Summary      Agregar producto
// @Description  Si el producto ya está en la venta se suman las cantidades en la misma línea.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID de la venta"
// @Param        body  body  dto.AddLineRequest  true  "product_id, quantity"
// @Success      200   {object}  dto.LineMutationResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/lines [post]
func (h *SaleHandler) AddLine(c *fiber.Ctx) error {
	var in dto.AddLineRequest
	if ok, err := parseAndValidate(c, &in); !ok {
		return err
	}
	res, err := h.uc.AddLine(c.UserContext(), GetCredentials(c), c.Params("id"), in.ProductID, in.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(lineMutation(res))
}

// UpdateLine godoc
// @Summary      Cambiar cantidad de una línea
// @Description  quantity = 0 elimina la línea.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path  string                  true  "ID de la venta"
// @Param        lineId  path  string                  true  "ID de la línea"
// @Param        body    body  dto.UpdateLineRequest  true  "quantity"
// @Success      200     {object}  dto.LineMutationResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/lines/{lineId} [patch]
func (h *SaleHandler) UpdateLine(c *fiber.Ctx) error {
	var in dto.UpdateLineRequest
	if ok, err := parseAndValidate(c, &in); !ok {
		return err
	}
	res, err := h.uc.UpdateLineQuantity(c.UserContext(), GetCredentials(c), c.Params("id"), c.Params("lineId"), *in.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(lineMutation(res))
}

// RemoveLine godoc
// @Summary      Quitar línea
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id      path  string  true  "ID de la venta"
// @Param        lineId  path  string  true  "ID de la línea"
// @Success      200     {object}  dto.LineMutationResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/lines/{lineId} [delete]
func (h *SaleHandler) RemoveLine(c *fiber.Ctx) error {
	session, err := h.uc.RemoveLine(c.UserContext(), GetCredentials(c), c.Params("id"), c.Params("lineId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.LineMutationResponse{Removed: true, Session: dto.FromSaleSession(session)})
}

// Finalize godoc
// @Summary      Finalizar venta
// @Description  Revalida todas las líneas contra el stock actual y descuenta todo o nada.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID de la venta"
// @Param        body  body  dto.FinalizeRequest  true  "payment_method, amount_paid (efectivo)"
// @Success      200   {object}  dto.FinalizeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/finalize [post]
func (h *SaleHandler) Finalize(c *fiber.Ctx) error {
	var in dto.FinalizeRequest
	if ok, err := parseAndValidate(c, &in); !ok {
		return err
	}
	res, err := h.uc.Finalize(c.UserContext(), GetCredentials(c), c.Params("id"), checkout.FinalizeInput{
		PaymentMethod: in.PaymentMethod,
		AmountPaid:    in.AmountPaid,
	})
	if err != nil {
		return writeError(c, err)
	}
	low := make([]dto.StockResponse, 0, len(res.LowStock))
	for _, rec := range res.LowStock {
		low = append(low, dto.FromStockRecord(rec))
	}
	return c.JSON(dto.FinalizeResponse{
		Status:    res.Session.Status,
		Total:     res.Total,
		ChangeDue: res.ChangeDue,
		LowStock:  low,
		Session:   dto.FromSaleSession(res.Session),
	})
}

// Cancel godoc
// @Summary      Anular venta en borrador
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleSessionResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/cancel [post]
func (h *SaleHandler) Cancel(c *fiber.Ctx) error {
	session, err := h.uc.Cancel(c.UserContext(), GetCredentials(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromSaleSession(session))
}

func lineMutation(res *checkout.LineResult) dto.LineMutationResponse {
	out := dto.LineMutationResponse{Removed: res.Removed, Session: dto.FromSaleSession(res.Session)}
	if !res.Removed {
		line := dto.FromSaleLine(res.Line)
		out.Line = &line
	}
	return out
}
