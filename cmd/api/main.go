package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Ventas-api/internal/application/auth"
	"github.com/jhoicas/Ventas-api/internal/application/checkout"
	"github.com/jhoicas/Ventas-api/internal/application/inventory"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/cache"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/memory"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/metrics"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Ventas-api/internal/interfaces/http"
	"github.com/jhoicas/Ventas-api/pkg/config"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

// backend repositorios y transacciones de un almacenamiento (PostgreSQL o memoria).
type backend struct {
	name        string
	stockTx     inventory.TxRunner
	checkoutTx  checkout.TxRunner
	saleRepo    repository.SaleSessionRepository
	stockRepo   repository.StockRepository
	branchRepo  repository.BranchRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar almacenamiento")
	}
	defer be.close()
	log.Info().Str("backend", be.name).Msg("almacenamiento listo")

	var guard checkout.FinalizeGuard = cache.NewMemoryFinalizeGuard()
	if cfg.Redis.Addr != "" {
		redisGuard := cache.NewRedisFinalizeGuard(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.App.Name, cfg.Checkout.FinalizeLockTTL, log)
		if err := redisGuard.Ping(ctx); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		defer redisGuard.Close()
		guard = redisGuard
	}

	m := metrics.New("ventas")
	ledger := inventory.NewStockLedger(be.stockTx, be.stockRepo, be.productRepo, be.branchRepo)
	saleUC := checkout.NewUseCase(be.checkoutTx, be.saleRepo, be.branchRepo, be.productRepo, ledger, guard, m, log)
	authUC := auth.NewAuthUseCase(be.userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Ventas API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "backend": be.name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		SaleUC:    saleUC,
		Ledger:    ledger,
		Restock:   inventory.NewReplenishmentUseCase(be.stockRepo, be.productRepo),
		AuthUC:    authUC,
		JWTSecret: cfg.JWT.Secret,
		Metrics:   m,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// openBackend usa PostgreSQL si hay DATABASE_URL o DB_HOST; si no, el catálogo demo en memoria.
func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*backend, error) {
	if cfg.DB.Enabled() {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		txRunner := postgres.NewTxRunner(pool)
		return &backend{
			name:        "postgres",
			stockTx:     txRunner,
			checkoutTx:  txRunner,
			saleRepo:    postgres.NewSaleSessionRepository(pool),
			stockRepo:   postgres.NewStockRepository(pool),
			branchRepo:  postgres.NewBranchRepository(pool),
			productRepo: postgres.NewProductRepository(pool),
			userRepo:    postgres.NewUserRepository(pool),
			close:       pool.Close,
		}, nil
	}

	if cfg.App.Env == "production" {
		log.Warn().Msg("sin base de datos configurada: las ventas se pierden al reiniciar")
	}
	store, err := memory.NewSeeded(cfg.Seed.AdminPassword, cfg.Seed.CashierPassword)
	if err != nil {
		return nil, err
	}
	txRunner := memory.NewTxRunner(store)
	return &backend{
		name:        "memory",
		stockTx:     txRunner,
		checkoutTx:  txRunner,
		saleRepo:    memory.NewSaleSessionRepository(store),
		stockRepo:   memory.NewStockRepository(store),
		branchRepo:  memory.NewBranchRepository(store),
		productRepo: memory.NewProductRepository(store),
		userRepo:    memory.NewUserRepository(store),
		close:       func() {},
	}, nil
}
