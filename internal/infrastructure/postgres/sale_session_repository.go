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

var _ repository.SaleSessionRepository = (*SaleSessionRepo)(nil)

// SaleSessionRepo implementación de SaleSessionRepository sobre PostgreSQL (usable con pool o tx).
// Update reemplaza las líneas, así que debe correr dentro de una transacción.
type SaleSessionRepo struct {
	q Querier
}

// NewSaleSessionRepository construye el adaptador de ventas. Pasar pool o tx (Querier).
func NewSaleSessionRepository(q Querier) *SaleSessionRepo {
	return &SaleSessionRepo{q: q}
}

const selectSaleSession = `
	SELECT id, branch_id, operator_id, status, payment_method, amount_paid, total, change_due,
	       version, opened_at, finalized_at, cancelled_at
	FROM sale_sessions WHERE id = $1`

// Create persiste una venta nueva (en borrador, sin líneas).
func (r *SaleSessionRepo) Create(ctx context.Context, s *entity.SaleSession) error {
	query := `
		INSERT INTO sale_sessions (id, branch_id, operator_id, status, payment_method, amount_paid, total, change_due, version, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.BranchID, s.OperatorID, s.Status, s.PaymentMethod, s.AmountPaid, s.Total, s.ChangeDue, s.Version, s.OpenedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert sale session: %w", err)
	}
	return r.insertLines(ctx, s)
}

// GetByID obtiene la venta con sus líneas.
func (r *SaleSessionRepo) GetByID(ctx context.Context, id string) (*entity.SaleSession, error) {
	return r.get(ctx, selectSaleSession, id)
}

// GetForUpdate obtiene la venta y bloquea su fila hasta el fin de la transacción (SELECT FOR UPDATE).
func (r *SaleSessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.SaleSession, error) {
	return r.get(ctx, selectSaleSession+" FOR UPDATE", id)
}

func (r *SaleSessionRepo) get(ctx context.Context, query, id string) (*entity.SaleSession, error) {
	var s entity.SaleSession
	err := r.q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.BranchID, &s.OperatorID, &s.Status, &s.PaymentMethod, &s.AmountPaid, &s.Total, &s.ChangeDue,
		&s.Version, &s.OpenedAt, &s.FinalizedAt, &s.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get sale session: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, product_id, quantity, unit_price
		FROM sale_lines WHERE sale_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("list sale lines: %w", err)
	}
	defer rows.Close()
	s.Lines = []entity.SaleLine{}
	for rows.Next() {
		var l entity.SaleLine
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Quantity, &l.UnitPriceSnapshot); err != nil {
			return nil, fmt.Errorf("scan sale line: %w", err)
		}
		s.Lines = append(s.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sale lines: %w", err)
	}
	return &s, nil
}

// Update guarda la cabecera y reemplaza las líneas de la venta.
func (r *SaleSessionRepo) Update(ctx context.Context, s *entity.SaleSession) error {
	query := `
		UPDATE sale_sessions
		SET status = $2, payment_method = $3, amount_paid = $4, total = $5, change_due = $6,
		    version = $7, finalized_at = $8, cancelled_at = $9
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		s.ID, s.Status, s.PaymentMethod, s.AmountPaid, s.Total, s.ChangeDue, s.Version, s.FinalizedAt, s.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("update sale session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM sale_lines WHERE sale_id = $1`, s.ID); err != nil {
		return fmt.Errorf("delete sale lines: %w", err)
	}
	return r.insertLines(ctx, s)
}

func (r *SaleSessionRepo) insertLines(ctx context.Context, s *entity.SaleSession) error {
	if len(s.Lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, l := range s.Lines {
		batch.Queue(`
			INSERT INTO sale_lines (id, sale_id, position, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			l.ID, s.ID, i, l.ProductID, l.Quantity, l.UnitPriceSnapshot)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert sale lines: %w", err)
	}
	return nil
}
