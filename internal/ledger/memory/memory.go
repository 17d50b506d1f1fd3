// Package memory implements the ledger contract in process memory with
// per-record versioning. Sessions copy the record maps at Begin, buffer
// writes locally, and detect write-write conflicts at Commit by
// comparing record versions against the snapshot. It backs the engine
// unit tests and doubles as a reference for the session semantics.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"marketplace-ledger/internal/domain"
	"marketplace-ledger/internal/errors"
	"marketplace-ledger/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type accountSlot struct {
	account domain.Account
	version uint64
}

type productSlot struct {
	product domain.Product
	version uint64
}

// Store is an in-memory ledger store safe for concurrent sessions.
type Store struct {
	mu        sync.Mutex
	accounts  map[int64]accountSlot
	products  map[int64]productSlot
	orders    map[uuid.UUID]domain.Order
	transfers map[uuid.UUID]domain.Transfer
}

func NewStore() *Store {
	return &Store{
		accounts:  make(map[int64]accountSlot),
		products:  make(map[int64]productSlot),
		orders:    make(map[uuid.UUID]domain.Order),
		transfers: make(map[uuid.UUID]domain.Transfer),
	}
}

// Begin snapshots the current record state under the store lock.
func (s *Store) Begin(ctx context.Context) (ledger.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "context cancelled").WithDetails(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make(map[int64]accountSlot, len(s.accounts))
	for id, slot := range s.accounts {
		accounts[id] = slot
	}
	products := make(map[int64]productSlot, len(s.products))
	for id, slot := range s.products {
		products[id] = slot
	}

	return &session{
		store:         s,
		accounts:      accounts,
		products:      products,
		dirtyAccounts: make(map[int64]domain.Account),
		dirtyProducts: make(map[int64]domain.Product),
		newAccounts:   make(map[int64]domain.Account),
		newProducts:   make(map[int64]domain.Product),
	}, nil
}

// OrderCount reports the number of committed orders.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// TransferCount reports the number of committed transfers.
func (s *Store) TransferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transfers)
}

type session struct {
	store *Store

	// snapshot taken at Begin, including record versions
	accounts map[int64]accountSlot
	products map[int64]productSlot

	// writes buffered until Commit
	dirtyAccounts map[int64]domain.Account
	dirtyProducts map[int64]domain.Product
	newAccounts   map[int64]domain.Account
	newProducts   map[int64]domain.Product
	orders        []domain.Order
	transfers     []domain.Transfer

	closed bool
}

var errSessionClosed = errors.NewAppError(errors.InternalError, "session already committed or aborted")

func (s *session) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	if s.closed {
		return nil, errSessionClosed
	}
	if account, ok := s.dirtyAccounts[id]; ok {
		return &account, nil
	}
	if account, ok := s.newAccounts[id]; ok {
		return &account, nil
	}
	if slot, ok := s.accounts[id]; ok {
		account := slot.account
		return &account, nil
	}
	return nil, errors.ErrAccountNotFound
}

func (s *session) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if s.closed {
		return nil, errSessionClosed
	}
	if product, ok := s.dirtyProducts[id]; ok {
		return &product, nil
	}
	if product, ok := s.newProducts[id]; ok {
		return &product, nil
	}
	if slot, ok := s.products[id]; ok {
		product := slot.product
		return &product, nil
	}
	return nil, errors.ErrProductNotFound
}

func (s *session) CreateAccount(ctx context.Context, account *domain.Account) error {
	if s.closed {
		return errSessionClosed
	}
	if _, ok := s.accounts[account.ID]; ok {
		return errors.ErrDuplicateAccount
	}
	if _, ok := s.newAccounts[account.ID]; ok {
		return errors.ErrDuplicateAccount
	}
	s.newAccounts[account.ID] = *account
	return nil
}

func (s *session) CreateProduct(ctx context.Context, product *domain.Product) error {
	if s.closed {
		return errSessionClosed
	}
	if _, ok := s.products[product.ID]; ok {
		return errors.ErrDuplicateProduct
	}
	if _, ok := s.newProducts[product.ID]; ok {
		return errors.ErrDuplicateProduct
	}
	s.newProducts[product.ID] = *product
	return nil
}

func (s *session) UpdateAccount(ctx context.Context, account *domain.Account) error {
	if s.closed {
		return errSessionClosed
	}
	if _, ok := s.newAccounts[account.ID]; ok {
		s.newAccounts[account.ID] = *account
		return nil
	}
	if _, ok := s.accounts[account.ID]; !ok {
		return errors.ErrAccountNotFound
	}
	s.dirtyAccounts[account.ID] = *account
	return nil
}

func (s *session) UpdateProduct(ctx context.Context, product *domain.Product) error {
	if s.closed {
		return errSessionClosed
	}
	if _, ok := s.newProducts[product.ID]; ok {
		s.newProducts[product.ID] = *product
		return nil
	}
	if _, ok := s.products[product.ID]; !ok {
		return errors.ErrProductNotFound
	}
	s.dirtyProducts[product.ID] = *product
	return nil
}

func (s *session) CreateOrder(ctx context.Context, order *domain.Order) error {
	if s.closed {
		return errSessionClosed
	}
	s.orders = append(s.orders, *order)
	return nil
}

func (s *session) CreateTransfer(ctx context.Context, transfer *domain.Transfer) error {
	if s.closed {
		return errSessionClosed
	}
	s.transfers = append(s.transfers, *transfer)
	return nil
}

// Commit applies buffered writes atomically. A record rewritten by
// another session since this session's snapshot fails the whole commit
// with ErrConcurrentModification; nothing is applied and the buffered
// writes are discarded.
func (s *session) Commit(ctx context.Context) error {
	if s.closed {
		return errSessionClosed
	}
	s.closed = true

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	for id := range s.dirtyAccounts {
		current, ok := s.store.accounts[id]
		if !ok || current.version != s.accounts[id].version {
			return errors.ErrConcurrentModification
		}
	}
	for id := range s.dirtyProducts {
		current, ok := s.store.products[id]
		if !ok || current.version != s.products[id].version {
			return errors.ErrConcurrentModification
		}
	}
	for id := range s.newAccounts {
		if _, ok := s.store.accounts[id]; ok {
			return errors.ErrDuplicateAccount
		}
	}
	for id := range s.newProducts {
		if _, ok := s.store.products[id]; ok {
			return errors.ErrDuplicateProduct
		}
	}

	for id, account := range s.dirtyAccounts {
		s.store.accounts[id] = accountSlot{account: account, version: s.accounts[id].version + 1}
	}
	for id, product := range s.dirtyProducts {
		s.store.products[id] = productSlot{product: product, version: s.products[id].version + 1}
	}
	for id, account := range s.newAccounts {
		s.store.accounts[id] = accountSlot{account: account, version: 1}
	}
	for id, product := range s.newProducts {
		s.store.products[id] = productSlot{product: product, version: 1}
	}
	for _, order := range s.orders {
		s.store.orders[order.ID] = order
	}
	for _, transfer := range s.transfers {
		s.store.transfers[transfer.ID] = transfer
	}

	return nil
}

// Abort discards buffered writes. Safe to call any number of times,
// including after Commit.
func (s *session) Abort(ctx context.Context) error {
	s.closed = true
	return nil
}
