package memory

import (
	"maps"
	"slices"
	"sync"

	"github.com/jhoicas/Ventas-api/internal/domain/entity"
)

// Store backend en memoria para desarrollo y tests. Las transacciones toman el lock de todo el
// store, trabajan sobre una copia del estado y la publican solo si la función termina sin error,
// así un fallo a mitad de camino no deja nada aplicado.
type Store struct {
	mu sync.RWMutex
	st *state
}

type state struct {
	branches  map[string]entity.Branch
	products  map[string]entity.Product
	users     map[string]entity.User
	stock     map[stockKey]entity.StockRecord
	sales     map[string]*entity.SaleSession // se guardan clones; nunca se mutan en sitio
	movements []entity.StockMovement         // libro publicado: solo crece, compartido entre copias
	pending   []entity.StockMovement         // movimientos de la transacción en curso
}

type stockKey struct {
	branchID  string
	productID string
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{st: &state{
		branches: make(map[string]entity.Branch),
		products: make(map[string]entity.Product),
		users:    make(map[string]entity.User),
		stock:    make(map[stockKey]entity.StockRecord),
		sales:    make(map[string]*entity.SaleSession),
	}}
}

func (s *state) clone() *state {
	return &state{
		branches:  maps.Clone(s.branches),
		products:  maps.Clone(s.products),
		users:     maps.Clone(s.users),
		stock:     maps.Clone(s.stock),
		sales:     maps.Clone(s.sales),
		movements: s.movements,
	}
}

// publish agrega al libro los movimientos de la transacción. Solo se llama con el lock exclusivo
// del store: lo que se escribe queda más allá del largo de cualquier copia anterior.
func (s *state) publish() {
	s.movements = append(s.movements, s.pending...)
	s.pending = nil
}

// PutBranch registra o reemplaza una sucursal.
func (s *Store) PutBranch(b entity.Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.branches[b.ID] = b
}

// PutProduct registra o reemplaza un producto.
func (s *Store) PutProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

// PutUser registra o reemplaza un usuario.
func (s *Store) PutUser(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

// PutStock fija la existencia de un producto en una sucursal.
func (s *Store) PutStock(rec entity.StockRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.stock[stockKey{rec.BranchID, rec.ProductID}] = rec
}

// Movements devuelve una copia del libro de movimientos.
func (s *Store) Movements() []entity.StockMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.st.movements)
}

// binding resuelve sobre qué estado trabaja un repositorio: el publicado (con lock propio)
// o la copia de una transacción en curso (el lock ya lo tiene el TxRunner).
type binding struct {
	store *Store
	tx    *state
}

func (b binding) read(fn func(st *state) error) error {
	if b.tx != nil {
		return fn(b.tx)
	}
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()
	return fn(b.store.st)
}

func (b binding) write(fn func(st *state) error) error {
	if b.tx != nil {
		return fn(b.tx)
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return fn(b.store.st)
}
