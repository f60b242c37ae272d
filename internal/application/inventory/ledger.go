package inventory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Ventas-api/internal/application/auth"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

// StockLedger es la fuente de verdad de existencias por sucursal. Ofrece la verificación
// consultiva (sin reserva) usada al armar el carrito, el descuento todo-o-nada usado al
// finalizar y la reposición.
type StockLedger struct {
	txRunner    TxRunner
	stockRepo   repository.StockRepository
	productRepo repository.ProductRepository
	branchRepo  repository.BranchRepository
}

// NewStockLedger construye el ledger.
func NewStockLedger(
	txRunner TxRunner,
	stockRepo repository.StockRepository,
	productRepo repository.ProductRepository,
	branchRepo repository.BranchRepository,
) *StockLedger {
	return &StockLedger{
		txRunner:    txRunner,
		stockRepo:   stockRepo,
		productRepo: productRepo,
		branchRepo:  branchRepo,
	}
}

// SaleItem cantidad total a descontar de un producto.
type SaleItem struct {
	ProductID string
	Quantity  int
}

// CheckAvailability lee el stock sin bloquear y compara con qty. Es consultiva: otra venta
// puede consumir ese stock antes de finalizar. Devuelve el registro (para el precio vigente).
// Usa el stockRepo recibido para poder correr dentro de la transacción del llamador.
func (l *StockLedger) CheckAvailability(
	ctx context.Context,
	stockRepo repository.StockRepository,
	branchID, productID string,
	qty int,
) (*entity.StockRecord, error) {
	rec, err := stockRepo.Get(ctx, branchID, productID)
	if err != nil {
		return nil, err
	}
	if qty > rec.QuantityOnHand {
		return rec, domain.NewInsufficientStock(domain.StockShortage{
			ProductID: productID,
			Requested: qty,
			Available: rec.QuantityOnHand,
		})
	}
	return rec, nil
}

// DecrementForSaleInTx descuenta todas las líneas de una venta usando los repositorios de la
// transacción del llamador. Bloquea las filas en orden de producto (SELECT FOR UPDATE), junta
// todos los faltantes y solo si no hay ninguno aplica los descuentos condicionales y registra
// un movimiento OUT_SALE por producto. Cualquier error debe provocar Rollback en el llamador.
// Devuelve el stock resultante de cada producto.
func (l *StockLedger) DecrementForSaleInTx(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	stockRepo repository.StockRepository,
	branchID, userID, saleID string,
	items []SaleItem,
	now time.Time,
) ([]entity.StockRecord, error) {
	merged, err := mergeItems(items)
	if err != nil {
		return nil, err
	}

	// Bloquea filas en orden estable para evitar deadlocks entre ventas concurrentes.
	locked := make([]*entity.StockRecord, len(merged))
	var shortages []domain.StockShortage
	for i, it := range merged {
		rec, err := stockRepo.GetForUpdate(ctx, branchID, it.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			shortages = append(shortages, domain.StockShortage{ProductID: it.ProductID, Requested: it.Quantity})
			continue
		}
		if err != nil {
			return nil, err
		}
		if rec.QuantityOnHand < it.Quantity {
			shortages = append(shortages, domain.StockShortage{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: rec.QuantityOnHand,
			})
		}
		locked[i] = rec
	}
	if len(shortages) > 0 {
		return nil, domain.NewInsufficientStock(shortages...)
	}

	after := make([]entity.StockRecord, 0, len(merged))
	for i, it := range merged {
		ok, err := stockRepo.DecrementIfAvailable(ctx, branchID, it.ProductID, it.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.NewInsufficientStock(domain.StockShortage{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: locked[i].QuantityOnHand,
			})
		}
		mov := &entity.StockMovement{
			ID:            uuid.New().String(),
			TransactionID: saleID,
			BranchID:      branchID,
			ProductID:     it.ProductID,
			Type:          entity.MovementTypeOutSale,
			Quantity:      -it.Quantity,
			CreatedAt:     now,
			CreatedBy:     userID,
		}
		if err := movRepo.Create(ctx, mov); err != nil {
			return nil, err
		}
		rec := *locked[i]
		rec.QuantityOnHand -= it.Quantity
		rec.UpdatedAt = now
		after = append(after, rec)
	}
	return after, nil
}

// mergeItems agrupa por producto y ordena por ProductID.
func mergeItems(items []SaleItem) ([]SaleItem, error) {
	byProduct := make(map[string]int, len(items))
	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return nil, domain.ErrInvalidInput
		}
		byProduct[it.ProductID] += it.Quantity
	}
	out := make([]SaleItem, 0, len(byProduct))
	for id, qty := range byProduct {
		out = append(out, SaleItem{ProductID: id, Quantity: qty})
	}
	slices.SortFunc(out, func(a, b SaleItem) int { return strings.Compare(a.ProductID, b.ProductID) })
	return out, nil
}

// RestockInput entrada para reponer existencias de un producto en una sucursal.
type RestockInput struct {
	BranchID         string
	ProductID        string
	Quantity         int
	PriceCurrent     *decimal.Decimal // obligatorio si el producto aún no tiene registro en la sucursal
	MinimumThreshold *int
}

// Restock suma existencias (IN_RESTOCK) en una transacción con bloqueo de fila.
// Solo admin o supervisor de la sucursal.
func (l *StockLedger) Restock(ctx context.Context, cred auth.Credentials, in RestockInput) (*entity.StockRecord, error) {
	if err := cred.AuthorizeRestock(in.BranchID); err != nil {
		return nil, err
	}
	if in.ProductID == "" || in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.PriceCurrent != nil && in.PriceCurrent.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	if in.MinimumThreshold != nil && *in.MinimumThreshold < 0 {
		return nil, domain.ErrInvalidInput
	}
	branch, err := l.branchRepo.GetByID(ctx, in.BranchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, domain.ErrNotFound
	}
	product, err := l.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	now := time.Now()
	var result entity.StockRecord
	err = l.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		stockRepo repository.StockRepository,
	) error {
		rec, err := stockRepo.GetForUpdate(ctx, in.BranchID, in.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			if in.PriceCurrent == nil {
				return domain.ErrInvalidInput
			}
			rec = &entity.StockRecord{BranchID: in.BranchID, ProductID: in.ProductID}
		} else if err != nil {
			return err
		}
		rec.QuantityOnHand += in.Quantity
		if in.PriceCurrent != nil {
			rec.PriceCurrent = *in.PriceCurrent
		}
		if in.MinimumThreshold != nil {
			rec.MinimumThreshold = *in.MinimumThreshold
		}
		rec.UpdatedAt = now
		if err := stockRepo.Upsert(ctx, rec); err != nil {
			return err
		}
		result = *rec
		return movRepo.Create(ctx, &entity.StockMovement{
			ID:            uuid.New().String(),
			TransactionID: uuid.New().String(),
			BranchID:      in.BranchID,
			ProductID:     in.ProductID,
			Type:          entity.MovementTypeInRestock,
			Quantity:      in.Quantity,
			CreatedAt:     now,
			CreatedBy:     cred.UserID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// StockView devuelve la existencia actual de un producto en la sucursal del operador.
func (l *StockLedger) StockView(ctx context.Context, cred auth.Credentials, branchID, productID string) (*entity.StockRecord, error) {
	if err := cred.AuthorizeSale(branchID); err != nil {
		return nil, err
	}
	return l.stockRepo.Get(ctx, branchID, productID)
}
