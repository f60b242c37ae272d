package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func stockStore(qty int) *Store {
	s := NewStore()
	s.PutStock(entity.StockRecord{BranchID: "1", ProductID: "Y", QuantityOnHand: qty, PriceCurrent: decimal.NewFromInt(2)})
	return s
}

// ========== TxRunner: copia y publicación ==========

func TestTxRunner_ErrorNoPublicaCambios(t *testing.T) {
	ctx := context.Background()
	s := stockStore(5)
	runner := NewTxRunner(s)
	boom := errors.New("boom")

	err := runner.RunCheckout(ctx, func(
		_ repository.SaleSessionRepository,
		stockRepo repository.StockRepository,
		movRepo repository.StockMovementRepository,
	) error {
		ok, err := stockRepo.DecrementIfAvailable(ctx, "1", "Y", 3)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, movRepo.Create(ctx, &entity.StockMovement{ID: "m1", ProductID: "Y", Quantity: -3}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rec, err := NewStockRepository(s).Get(ctx, "1", "Y")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.QuantityOnHand, "rollback: el stock no cambia")
	assert.Empty(t, s.Movements())
}

func TestTxRunner_ExitoPublicaCambios(t *testing.T) {
	ctx := context.Background()
	s := stockStore(5)

	err := NewTxRunner(s).Run(ctx, func(
		movRepo repository.StockMovementRepository,
		stockRepo repository.StockRepository,
	) error {
		ok, err := stockRepo.DecrementIfAvailable(ctx, "1", "Y", 5)
		if err != nil || !ok {
			return errors.New("no descontó")
		}
		return movRepo.Create(ctx, &entity.StockMovement{ID: "m1", TransactionID: "t1", ProductID: "Y", Quantity: -5})
	})
	require.NoError(t, err)

	rec, err := NewStockRepository(s).Get(ctx, "1", "Y")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.QuantityOnHand)
	movs, err := NewStockMovementRepository(s).ListByTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, movs, 1)
}

func TestTxRunner_LibroDeMovimientosSinCopias(t *testing.T) {
	ctx := context.Background()
	s := stockStore(10)
	runner := NewTxRunner(s)
	boom := errors.New("boom")
	record := func(id, txID string, fail bool) error {
		return runner.Run(ctx, func(movRepo repository.StockMovementRepository, _ repository.StockRepository) error {
			require.NoError(t, movRepo.Create(ctx, &entity.StockMovement{ID: id, TransactionID: txID, ProductID: "Y", Quantity: -1}))
			movs, err := movRepo.ListByTransaction(ctx, txID)
			require.NoError(t, err)
			require.Len(t, movs, 1, "la transacción ve sus propios movimientos")
			if fail {
				return boom
			}
			return nil
		})
	}

	require.NoError(t, record("m1", "t1", false))
	before := s.Movements()
	assert.ErrorIs(t, record("m2", "t2", true), boom)
	require.NoError(t, record("m3", "t3", false))

	movs := s.Movements()
	require.Len(t, movs, 2)
	assert.Equal(t, "m1", movs[0].ID)
	assert.Equal(t, "m3", movs[1].ID, "el movimiento descartado no ocupa lugar en el libro")
	assert.Len(t, before, 1)

	work := s.st.clone()
	assert.Same(t, &s.st.movements[0], &work.movements[0], "la copia de la transacción comparte el libro")
	assert.Empty(t, work.pending)
}

func TestTxRunner_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewTxRunner(NewStore()).Run(ctx, func(repository.StockMovementRepository, repository.StockRepository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// ========== Repositorios ==========

func TestStockRepo_DecrementoCondicional(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository(stockStore(2))

	ok, err := repo.DecrementIfAvailable(ctx, "1", "Y", 3)
	require.NoError(t, err)
	assert.False(t, ok, "no descuenta si no alcanza")

	ok, err = repo.DecrementIfAvailable(ctx, "1", "Y", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.Get(ctx, "1", "NO")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStockRepo_ListLowByBranchOrdenado(t *testing.T) {
	s := stockStore(5)
	s.PutStock(entity.StockRecord{BranchID: "1", ProductID: "X", QuantityOnHand: 1, MinimumThreshold: 1})
	s.PutStock(entity.StockRecord{BranchID: "1", ProductID: "W", QuantityOnHand: 0, MinimumThreshold: 3})
	s.PutStock(entity.StockRecord{BranchID: "2", ProductID: "V", QuantityOnHand: 0, MinimumThreshold: 3})

	low, err := NewStockRepository(s).ListLowByBranch(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, low, 2, "Y tiene 5 sobre mínimo 0")
	assert.Equal(t, "W", low[0].ProductID)
	assert.Equal(t, "X", low[1].ProductID)
}

func TestSaleSessionRepo_GuardaCopias(t *testing.T) {
	ctx := context.Background()
	repo := NewSaleSessionRepository(NewStore())
	s := entity.NewSaleSession("s1", "1", "u1", testNow)
	require.NoError(t, repo.Create(ctx, s))
	assert.ErrorIs(t, repo.Create(ctx, s), domain.ErrDuplicate)

	_, _ = s.AddLine("l1", "Y", 1, decimal.NewFromInt(1))
	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.Lines, "mutar el original no altera lo guardado")

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewSeeded_UsuariosYStock(t *testing.T) {
	s, err := NewSeeded("a", "c")
	require.NoError(t, err)

	u, err := NewUserRepository(s).FindByEmail(context.Background(), "CAJERO@ventas.local")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, entity.RoleCajero, u.Role)

	rec, err := NewStockRepository(s).Get(context.Background(), SeedBranchID, "42")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10").Equal(rec.PriceCurrent))
}
