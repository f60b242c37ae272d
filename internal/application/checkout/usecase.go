package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Ventas-api/internal/application/auth"
	"github.com/jhoicas/Ventas-api/internal/application/inventory"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
	"github.com/jhoicas/Ventas-api/internal/domain/sale"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

// Resultados para métricas y logs.
const (
	OutcomeOK                = "ok"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeInvalidTransition = "invalid_transition"
	OutcomeInProgress        = "in_progress"
	OutcomeRejected          = "rejected"
	OutcomeError             = "error"
)

// UseCase casos de uso de la venta en caja: abrir, armar el carrito, finalizar y anular.
// Cada operación recibe las credenciales del operador y las valida en el servidor.
type UseCase struct {
	txRunner    TxRunner
	saleRepo    repository.SaleSessionRepository
	branchRepo  repository.BranchRepository
	productRepo repository.ProductRepository
	ledger      *inventory.StockLedger
	guard       FinalizeGuard
	metrics     Recorder
	log         *logger.Logger
	now         func() time.Time
}

// NewUseCase construye el caso de uso. guard, metrics y log pueden ser nil.
func NewUseCase(
	txRunner TxRunner,
	saleRepo repository.SaleSessionRepository,
	branchRepo repository.BranchRepository,
	productRepo repository.ProductRepository,
	ledger *inventory.StockLedger,
	guard FinalizeGuard,
	metrics Recorder,
	log *logger.Logger,
) *UseCase {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		txRunner:    txRunner,
		saleRepo:    saleRepo,
		branchRepo:  branchRepo,
		productRepo: productRepo,
		ledger:      ledger,
		guard:       guard,
		metrics:     metrics,
		log:         log,
		now:         time.Now,
	}
}

// LineResult salida de una mutación de línea: la línea afectada y el snapshot completo de la venta.
type LineResult struct {
	Line    entity.SaleLine
	Removed bool
	Session *entity.SaleSession
}

// FinalizeInput medio de pago y monto entregado (solo efectivo).
type FinalizeInput struct {
	PaymentMethod string
	AmountPaid    *decimal.Decimal
}

// FinalizeResult salida de una venta finalizada.
type FinalizeResult struct {
	Session   *entity.SaleSession
	Total     decimal.Decimal
	ChangeDue decimal.Decimal
	LowStock  []entity.StockRecord // productos que quedaron en o bajo el mínimo
}

// Open crea una venta en borrador para la sucursal del operador. Sucursal desconocida o inactiva: ErrInvalidInput.
func (uc *UseCase) Open(ctx context.Context, cred auth.Credentials, branchID string) (*entity.SaleSession, error) {
	if branchID == "" {
		return nil, domain.ErrInvalidInput
	}
	// primero el rol y la sucursal del operador: un tercero no distingue sucursales existentes
	if err := cred.AuthorizeSale(branchID); err != nil {
		return nil, err
	}
	branch, err := uc.branchRepo.GetByID(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if branch == nil || !branch.Active {
		return nil, domain.ErrInvalidInput
	}
	session := entity.NewSaleSession(uuid.New().String(), branchID, cred.UserID, uc.now())
	if err := uc.saleRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	uc.log.ForSale(session.ID, branchID, cred.UserID).Info().Msg("venta abierta")
	return session, nil
}

// Get devuelve el estado actual de la venta (consulta de solo lectura).
func (uc *UseCase) Get(ctx context.Context, cred auth.Credentials, saleID string) (*entity.SaleSession, error) {
	session, err := uc.saleRepo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if err := cred.AuthorizeSale(session.BranchID); err != nil {
		return nil, err
	}
	return session, nil
}

// AddLine agrega qty unidades del producto. La cantidad resultante (fusionada con la línea existente)
// se compara contra el stock actual de la sucursal sin reservarlo. Si no alcanza, la venta no cambia.
func (uc *UseCase) AddLine(ctx context.Context, cred auth.Credentials, saleID, productID string, qty int) (*LineResult, error) {
	if productID == "" || qty <= 0 {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.Active {
		return nil, domain.ErrNotFound
	}

	var result *LineResult
	err = uc.txRunner.RunCheckout(ctx, func(
		saleRepo repository.SaleSessionRepository,
		stockRepo repository.StockRepository,
		_ repository.StockMovementRepository,
	) error {
		session, err := uc.lockDraft(ctx, saleRepo, cred, saleID)
		if err != nil {
			return err
		}
		rec, err := uc.ledger.CheckAvailability(ctx, stockRepo, session.BranchID, productID, session.QuantityAfterAdd(productID, qty))
		if err != nil {
			return err
		}
		line, err := session.AddLine(uuid.New().String(), productID, qty, rec.PriceCurrent)
		if err != nil {
			return err
		}
		if err := saleRepo.Update(ctx, session); err != nil {
			return err
		}
		result = &LineResult{Line: line, Session: session}
		return nil
	})
	uc.recordLine(cred, saleID, "add", err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateLineQuantity reemplaza la cantidad de la línea. qty = 0 la elimina; qty > 0 pasa por la
// misma verificación de stock que AddLine.
func (uc *UseCase) UpdateLineQuantity(ctx context.Context, cred auth.Credentials, saleID, lineID string, qty int) (*LineResult, error) {
	if lineID == "" || qty < 0 {
		return nil, domain.ErrInvalidInput
	}
	var result *LineResult
	err := uc.txRunner.RunCheckout(ctx, func(
		saleRepo repository.SaleSessionRepository,
		stockRepo repository.StockRepository,
		_ repository.StockMovementRepository,
	) error {
		session, err := uc.lockDraft(ctx, saleRepo, cred, saleID)
		if err != nil {
			return err
		}
		current, idx := session.LineByID(lineID)
		if idx < 0 {
			return domain.ErrLineNotFound
		}
		if qty > 0 {
			if _, err := uc.ledger.CheckAvailability(ctx, stockRepo, session.BranchID, current.ProductID, qty); err != nil {
				return err
			}
		}
		line, removed, err := session.UpdateLineQuantity(lineID, qty)
		if err != nil {
			return err
		}
		if err := saleRepo.Update(ctx, session); err != nil {
			return err
		}
		result = &LineResult{Line: line, Removed: removed, Session: session}
		return nil
	})
	uc.recordLine(cred, saleID, "update", err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveLine elimina la línea; ErrLineNotFound si no existe (las demás no cambian).
func (uc *UseCase) RemoveLine(ctx context.Context, cred auth.Credentials, saleID, lineID string) (*entity.SaleSession, error) {
	var result *entity.SaleSession
	err := uc.txRunner.RunCheckout(ctx, func(
		saleRepo repository.SaleSessionRepository,
		_ repository.StockRepository,
		_ repository.StockMovementRepository,
	) error {
		session, err := uc.lockDraft(ctx, saleRepo, cred, saleID)
		if err != nil {
			return err
		}
		if err := session.RemoveLine(lineID); err != nil {
			return err
		}
		if err := saleRepo.Update(ctx, session); err != nil {
			return err
		}
		result = session
		return nil
	})
	uc.recordLine(cred, saleID, "remove", err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Finalize cierra la venta en una sola transacción: bloquea la venta, vuelve a validar cada línea
// contra el stock ACTUAL y solo si todas alcanzan descuenta el stock, registra los movimientos y
// marca la venta FINALIZED. Si algún producto no alcanza, falla con *domain.InsufficientStockError
// nombrando todos los faltantes; la venta sigue en borrador y el stock no cambia.
func (uc *UseCase) Finalize(ctx context.Context, cred auth.Credentials, saleID string, in FinalizeInput) (*FinalizeResult, error) {
	start := time.Now()
	if !sale.IsSupportedPaymentMethod(in.PaymentMethod) {
		return nil, domain.ErrInvalidInput
	}
	if in.AmountPaid != nil && in.AmountPaid.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	log := uc.log.ForSale(saleID, cred.BranchID, cred.UserID)

	if uc.guard != nil {
		release, err := uc.guard.Acquire(ctx, saleID)
		if err != nil {
			uc.metrics.ObserveFinalize(outcomeOf(err), time.Since(start))
			log.Warn().Err(err).Msg("finalización rechazada")
			return nil, err
		}
		defer release()
	}

	var result *FinalizeResult
	err := uc.txRunner.RunCheckout(ctx, func(
		saleRepo repository.SaleSessionRepository,
		stockRepo repository.StockRepository,
		movRepo repository.StockMovementRepository,
	) error {
		session, err := uc.lockDraft(ctx, saleRepo, cred, saleID)
		if err != nil {
			return err
		}
		if len(session.Lines) == 0 {
			return domain.ErrInvalidInput
		}
		paid, change, err := sale.Settle(in.PaymentMethod, session.LinesTotal(), in.AmountPaid)
		if err != nil {
			return err
		}
		items := make([]inventory.SaleItem, 0, len(session.Lines))
		for _, l := range session.Lines {
			items = append(items, inventory.SaleItem{ProductID: l.ProductID, Quantity: l.Quantity})
		}
		now := uc.now()
		after, err := uc.ledger.DecrementForSaleInTx(ctx, movRepo, stockRepo, session.BranchID, cred.UserID, session.ID, items, now)
		if err != nil {
			return err
		}
		if err := session.MarkFinalized(in.PaymentMethod, paid, change, now); err != nil {
			return err
		}
		if err := saleRepo.Update(ctx, session); err != nil {
			return err
		}
		low := make([]entity.StockRecord, 0)
		for _, rec := range after {
			if rec.IsLow() {
				low = append(low, rec)
			}
		}
		result = &FinalizeResult{Session: session, Total: session.Total, ChangeDue: change, LowStock: low}
		return nil
	})

	outcome := outcomeOf(err)
	uc.metrics.ObserveFinalize(outcome, time.Since(start))
	if err != nil {
		var se *domain.InsufficientStockError
		if errors.As(err, &se) {
			uc.metrics.CountInsufficientStock("finalize", len(se.Shortages))
			log.Warn().Strs("product_ids", se.ProductIDs()).Msg("finalización sin stock suficiente")
		} else if outcome == OutcomeError {
			log.Error().Err(err).Msg("error al finalizar venta")
		}
		return nil, err
	}
	log.Info().
		Str("total", result.Total.StringFixed(2)).
		Str("payment_method", in.PaymentMethod).
		Int("low_stock", len(result.LowStock)).
		Msg("venta finalizada")
	return result, nil
}

// Cancel abandona el borrador. No libera stock porque nunca se reservó.
func (uc *UseCase) Cancel(ctx context.Context, cred auth.Credentials, saleID string) (*entity.SaleSession, error) {
	var result *entity.SaleSession
	err := uc.txRunner.RunCheckout(ctx, func(
		saleRepo repository.SaleSessionRepository,
		_ repository.StockRepository,
		_ repository.StockMovementRepository,
	) error {
		session, err := uc.lockDraft(ctx, saleRepo, cred, saleID)
		if err != nil {
			return err
		}
		if err := session.Cancel(uc.now()); err != nil {
			return err
		}
		if err := saleRepo.Update(ctx, session); err != nil {
			return err
		}
		result = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.ForSale(saleID, cred.BranchID, cred.UserID).Info().Msg("venta anulada")
	return result, nil
}

// lockDraft bloquea la venta, verifica que pertenezca a la sucursal del operador y que siga en borrador.
func (uc *UseCase) lockDraft(
	ctx context.Context,
	saleRepo repository.SaleSessionRepository,
	cred auth.Credentials,
	saleID string,
) (*entity.SaleSession, error) {
	session, err := saleRepo.GetForUpdate(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if err := cred.AuthorizeSale(session.BranchID); err != nil {
		return nil, err
	}
	if !session.IsDraft() {
		return nil, domain.ErrInvalidTransition
	}
	return session, nil
}

func (uc *UseCase) recordLine(cred auth.Credentials, saleID, op string, err error) {
	outcome := outcomeOf(err)
	uc.metrics.CountLineMutation(op, outcome)
	var se *domain.InsufficientStockError
	if errors.As(err, &se) {
		uc.metrics.CountInsufficientStock(op, len(se.Shortages))
		uc.log.ForSale(saleID, cred.BranchID, cred.UserID).Debug().
			Str("op", op).
			Strs("product_ids", se.ProductIDs()).
			Msg("stock insuficiente")
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrInsufficientStock):
		return OutcomeInsufficientStock
	case errors.Is(err, domain.ErrInvalidTransition):
		return OutcomeInvalidTransition
	case errors.Is(err, domain.ErrFinalizeInProgress):
		return OutcomeInProgress
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrLineNotFound),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrUnauthorized):
		return OutcomeRejected
	}
	return OutcomeError
}
