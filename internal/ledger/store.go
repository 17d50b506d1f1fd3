// Package ledger defines the unit-of-work contract over the records
// whose numeric invariants (balance, stock) the transaction engine
// preserves. A Session scopes a set of snapshot reads and buffered
// writes that commit atomically or abort with no effect.
package ledger

import (
	"context"

	"marketplace-ledger/internal/domain"
)

// Store opens isolated sessions against the underlying storage.
type Store interface {
	// Begin acquires a session. Reads through it observe a consistent
	// snapshot unaffected by other sessions committing concurrently.
	Begin(ctx context.Context) (Session, error)
}

// Session is a single unit of work. Writes are not visible to other
// sessions until Commit. Commit returns errors.ErrConcurrentModification
// when another session committed a conflicting write to a touched
// record first; the session is spent either way. Abort discards all
// buffered writes, always succeeds, and is idempotent.
type Session interface {
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	CreateAccount(ctx context.Context, account *domain.Account) error
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateAccount(ctx context.Context, account *domain.Account) error
	UpdateProduct(ctx context.Context, product *domain.Product) error
	CreateOrder(ctx context.Context, order *domain.Order) error
	CreateTransfer(ctx context.Context, transfer *domain.Transfer) error

	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}
