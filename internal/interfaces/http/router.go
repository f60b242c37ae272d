package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Ventas-api/internal/application/auth"
	"github.com/jhoicas/Ventas-api/internal/application/checkout"
	"github.com/jhoicas/Ventas-api/internal/application/inventory"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// httpRecorder lo implementa *metrics.Metrics.
type httpRecorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	SaleUC    *checkout.UseCase
	Ledger    *inventory.StockLedger
	Restock   *inventory.ReplenishmentUseCase // opcional
	AuthUC    *auth.AuthUseCase
	JWTSecret string
	Metrics   httpRecorder // opcional
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Use(MetricsMiddleware(deps.Metrics))
	}
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	requireAuth := AuthMiddleware(deps.JWTSecret)
	api.Get("/auth/me", requireAuth, authHandler.Me)

	// Ventas (protegido; la sucursal y el rol se validan en el caso de uso)
	sales := api.Group("/sales", requireAuth)
	saleHandler := NewSaleHandler(deps.SaleUC)
	sales.Post("/", saleHandler.Open)
	sales.Get("/:id", saleHandler.Get)
	sales.Post("/:id/lines", saleHandler.AddLine)
	sales.Patch("/:id/lines/:lineId", saleHandler.UpdateLine)
	sales.Delete("/:id/lines/:lineId", saleHandler.RemoveLine)
	sales.Post("/:id/finalize", saleHandler.Finalize)
	sales.Post("/:id/cancel", saleHandler.Cancel)

	// Existencias
	stockHandler := NewStockHandler(deps.Ledger)
	api.Get("/branches/:branchId/stock/:productId", requireAuth, stockHandler.Get)
	api.Post("/inventory/restock", requireAuth, RequireRole(entity.RoleAdmin, entity.RoleSupervisor), stockHandler.Restock)

	if deps.Restock != nil {
		inventoryHandler := NewInventoryHandler(deps.Restock)
		api.Get("/branches/:branchId/replenishment", requireAuth, RequireRole(entity.RoleAdmin, entity.RoleSupervisor), inventoryHandler.GetReplenishmentList)
	}
}

// MetricsMiddleware cuenta peticiones y latencia por ruta registrada (no por URL concreta).
func MetricsMiddleware(rec httpRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		rec.RecordHTTPRequest(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
