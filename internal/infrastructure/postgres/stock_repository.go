package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const selectStock = `
	SELECT branch_id, product_id, quantity_on_hand, minimum_threshold, price_current, updated_at
	FROM stock WHERE branch_id = $1 AND product_id = $2`

// Get obtiene el stock actual de un producto en una sucursal (lectura sin bloqueo).
func (r *StockRepo) Get(ctx context.Context, branchID, productID string) (*entity.StockRecord, error) {
	return r.get(ctx, selectStock, branchID, productID)
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, branchID, productID string) (*entity.StockRecord, error) {
	return r.get(ctx, selectStock+" FOR UPDATE", branchID, productID)
}

func (r *StockRepo) get(ctx context.Context, query, branchID, productID string) (*entity.StockRecord, error) {
	var s entity.StockRecord
	err := r.q.QueryRow(ctx, query, branchID, productID).Scan(
		&s.BranchID, &s.ProductID, &s.QuantityOnHand, &s.MinimumThreshold, &s.PriceCurrent, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return &s, nil
}

// ListLowByBranch existencias de la sucursal en o bajo su mínimo.
func (r *StockRepo) ListLowByBranch(ctx context.Context, branchID string) ([]*entity.StockRecord, error) {
	query := `
		SELECT branch_id, product_id, quantity_on_hand, minimum_threshold, price_current, updated_at
		FROM stock WHERE branch_id = $1 AND quantity_on_hand <= minimum_threshold
		ORDER BY product_id`
	rows, err := r.q.Query(ctx, query, branchID)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()
	var out []*entity.StockRecord
	for rows.Next() {
		var s entity.StockRecord
		if err := rows.Scan(&s.BranchID, &s.ProductID, &s.QuantityOnHand, &s.MinimumThreshold, &s.PriceCurrent, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan low stock: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// DecrementIfAvailable resta qty solo si alcanza; la condición va en el mismo UPDATE.
func (r *StockRepo) DecrementIfAvailable(ctx context.Context, branchID, productID string, qty int) (bool, error) {
	query := `
		UPDATE stock SET quantity_on_hand = quantity_on_hand - $3, updated_at = now()
		WHERE branch_id = $1 AND product_id = $2 AND quantity_on_hand >= $3`
	tag, err := r.q.Exec(ctx, query, branchID, productID, qty)
	if err != nil {
		if isCheckViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Upsert inserta o actualiza la existencia (por sucursal y producto).
func (r *StockRepo) Upsert(ctx context.Context, s *entity.StockRecord) error {
	query := `
		INSERT INTO stock (branch_id, product_id, quantity_on_hand, minimum_threshold, price_current, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (branch_id, product_id)
		DO UPDATE SET quantity_on_hand = EXCLUDED.quantity_on_hand,
		              minimum_threshold = EXCLUDED.minimum_threshold,
		              price_current = EXCLUDED.price_current,
		              updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query, s.BranchID, s.ProductID, s.QuantityOnHand, s.MinimumThreshold, s.PriceCurrent, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}
