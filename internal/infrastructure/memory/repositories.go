package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
)

var (
	_ repository.SaleSessionRepository   = (*SaleSessionRepo)(nil)
	_ repository.StockRepository         = (*StockRepo)(nil)
	_ repository.StockMovementRepository = (*StockMovementRepo)(nil)
	_ repository.BranchRepository        = (*BranchRepo)(nil)
	_ repository.ProductRepository       = (*ProductRepo)(nil)
	_ repository.UserRepository          = (*UserRepo)(nil)
)

// SaleSessionRepo ventas en memoria.
type SaleSessionRepo struct{ b binding }

// NewSaleSessionRepository repositorio de ventas sobre el estado publicado.
func NewSaleSessionRepository(s *Store) *SaleSessionRepo {
	return &SaleSessionRepo{b: binding{store: s}}
}

func (r *SaleSessionRepo) Create(_ context.Context, session *entity.SaleSession) error {
	return r.b.write(func(st *state) error {
		if _, ok := st.sales[session.ID]; ok {
			return domain.ErrDuplicate
		}
		st.sales[session.ID] = session.Clone()
		return nil
	})
}

func (r *SaleSessionRepo) GetByID(_ context.Context, id string) (*entity.SaleSession, error) {
	var out *entity.SaleSession
	err := r.b.read(func(st *state) error {
		s, ok := st.sales[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = s.Clone()
		return nil
	})
	return out, err
}

// GetForUpdate en memoria equivale a GetByID: la transacción ya tiene el lock del store.
func (r *SaleSessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.SaleSession, error) {
	return r.GetByID(ctx, id)
}

func (r *SaleSessionRepo) Update(_ context.Context, session *entity.SaleSession) error {
	return r.b.write(func(st *state) error {
		if _, ok := st.sales[session.ID]; !ok {
			return domain.ErrNotFound
		}
		st.sales[session.ID] = session.Clone()
		return nil
	})
}

// StockRepo existencias en memoria.
type StockRepo struct{ b binding }

// NewStockRepository repositorio de stock sobre el estado publicado.
func NewStockRepository(s *Store) *StockRepo {
	return &StockRepo{b: binding{store: s}}
}

func (r *StockRepo) Get(_ context.Context, branchID, productID string) (*entity.StockRecord, error) {
	var out entity.StockRecord
	err := r.b.read(func(st *state) error {
		rec, ok := st.stock[stockKey{branchID, productID}]
		if !ok {
			return domain.ErrNotFound
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *StockRepo) GetForUpdate(ctx context.Context, branchID, productID string) (*entity.StockRecord, error) {
	return r.Get(ctx, branchID, productID)
}

func (r *StockRepo) DecrementIfAvailable(_ context.Context, branchID, productID string, qty int) (bool, error) {
	applied := false
	err := r.b.write(func(st *state) error {
		key := stockKey{branchID, productID}
		rec, ok := st.stock[key]
		if !ok || rec.QuantityOnHand < qty {
			return nil
		}
		rec.QuantityOnHand -= qty
		rec.UpdatedAt = time.Now()
		st.stock[key] = rec
		applied = true
		return nil
	})
	return applied, err
}

func (r *StockRepo) Upsert(_ context.Context, rec *entity.StockRecord) error {
	return r.b.write(func(st *state) error {
		st.stock[stockKey{rec.BranchID, rec.ProductID}] = *rec
		return nil
	})
}

func (r *StockRepo) ListLowByBranch(_ context.Context, branchID string) ([]*entity.StockRecord, error) {
	var out []*entity.StockRecord
	err := r.b.read(func(st *state) error {
		for key, rec := range st.stock {
			if key.branchID == branchID && rec.IsLow() {
				rec := rec
				out = append(out, &rec)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *entity.StockRecord) int { return strings.Compare(a.ProductID, b.ProductID) })
	return out, err
}

// StockMovementRepo libro de movimientos en memoria.
type StockMovementRepo struct{ b binding }

// NewStockMovementRepository repositorio de movimientos sobre el estado publicado.
func NewStockMovementRepository(s *Store) *StockMovementRepo {
	return &StockMovementRepo{b: binding{store: s}}
}

func (r *StockMovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	return r.b.write(func(st *state) error {
		st.pending = append(st.pending, *m)
		if r.b.tx == nil {
			st.publish()
		}
		return nil
	})
}

func (r *StockMovementRepo) ListByTransaction(_ context.Context, transactionID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := r.b.read(func(st *state) error {
		for _, ledger := range [][]entity.StockMovement{st.movements, st.pending} {
			for _, m := range ledger {
				if m.TransactionID == transactionID {
					m := m
					out = append(out, &m)
				}
			}
		}
		return nil
	})
	return out, err
}

// BranchRepo sucursales en memoria.
type BranchRepo struct{ b binding }

// NewBranchRepository repositorio de sucursales.
func NewBranchRepository(s *Store) *BranchRepo {
	return &BranchRepo{b: binding{store: s}}
}

func (r *BranchRepo) GetByID(_ context.Context, id string) (*entity.Branch, error) {
	var out *entity.Branch
	err := r.b.read(func(st *state) error {
		if b, ok := st.branches[id]; ok {
			out = &b
		}
		return nil
	})
	return out, err
}

// ProductRepo catálogo en memoria.
type ProductRepo struct{ b binding }

// NewProductRepository repositorio de productos.
func NewProductRepository(s *Store) *ProductRepo {
	return &ProductRepo{b: binding{store: s}}
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.b.read(func(st *state) error {
		if p, ok := st.products[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

// UserRepo usuarios en memoria.
type UserRepo struct{ b binding }

// NewUserRepository repositorio de usuarios.
func NewUserRepository(s *Store) *UserRepo {
	return &UserRepo{b: binding{store: s}}
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := r.b.read(func(st *state) error {
		if u, ok := st.users[id]; ok {
			out = &u
		}
		return nil
	})
	return out, err
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	var out *entity.User
	err := r.b.read(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				u := u
				out = &u
				return nil
			}
		}
		return nil
	})
	return out, err
}
