// Package postgres implements the ledger contract on PostgreSQL. Each
// session is a SERIALIZABLE transaction; the database's conflict
// detection is surfaced as ErrConcurrentModification so callers can
// retry against a fresh snapshot.
package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"marketplace-ledger/internal/domain"
	"marketplace-ledger/internal/errors"
	"marketplace-ledger/internal/ledger"
)

// Store opens serializable sessions against a pooled *sql.DB.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ ledger.Store = (*Store)(nil)

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

func (s *Store) Begin(ctx context.Context) (ledger.Session, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to begin transaction").WithDetails(err.Error())
	}
	return &session{tx: tx, logger: s.logger}, nil
}

type session struct {
	tx     *sql.Tx
	logger *slog.Logger
}

// serializationFailure reports whether err is the database rejecting
// one of two conflicting concurrent transactions (SQLSTATE 40001) or
// breaking a deadlock between them (40P01).
func serializationFailure(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func uniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

func (s *session) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	query := `
		SELECT id, name, balance, created_at, updated_at
		FROM accounts WHERE id = $1
	`

	var account domain.Account
	var balanceStr string

	err := s.tx.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.Name,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		s.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get account").WithDetails(err.Error())
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		s.logger.Error("Failed to parse balance", "account_id", id, "balance_str", balanceStr, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
	}
	account.Balance = balance

	return &account, nil
}

func (s *session) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, name, price, stock, created_at, updated_at
		FROM products WHERE id = $1
	`

	var product domain.Product
	var priceStr string

	err := s.tx.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&priceStr,
		&product.Stock,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrProductNotFound
		}
		s.logger.Error("Failed to get product", "product_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get product").WithDetails(err.Error())
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		s.logger.Error("Failed to parse price", "product_id", id, "price_str", priceStr, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to parse price").WithDetails(err.Error())
	}
	product.Price = price

	return &product, nil
}

func (s *session) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, name, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	now := time.Now().UTC()
	_, err := s.tx.ExecContext(ctx, query, account.ID, account.Name, account.Balance.String(), now, now)
	if err != nil {
		if uniqueViolation(err) {
			s.logger.Warn("Duplicate account creation attempt", "account_id", account.ID)
			return errors.ErrDuplicateAccount
		}
		if serializationFailure(err) {
			return errors.ErrConcurrentModification
		}
		s.logger.Error("Failed to create account", "account_id", account.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create account").WithDetails(err.Error())
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

func (s *session) CreateProduct(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, price, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now().UTC()
	_, err := s.tx.ExecContext(ctx, query, product.ID, product.Name, product.Price.String(), product.Stock, now, now)
	if err != nil {
		if uniqueViolation(err) {
			s.logger.Warn("Duplicate product creation attempt", "product_id", product.ID)
			return errors.ErrDuplicateProduct
		}
		if serializationFailure(err) {
			return errors.ErrConcurrentModification
		}
		s.logger.Error("Failed to create product", "product_id", product.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create product").WithDetails(err.Error())
	}

	product.CreatedAt = now
	product.UpdatedAt = now
	return nil
}

func (s *session) UpdateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET name = $1, balance = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.tx.ExecContext(ctx, query, account.Name, account.Balance.String(), time.Now().UTC(), account.ID)
	if err != nil {
		if serializationFailure(err) {
			return errors.ErrConcurrentModification
		}
		s.logger.Error("Failed to update account", "account_id", account.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update account").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}

	return nil
}

func (s *session) UpdateProduct(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, price = $2, stock = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := s.tx.ExecContext(ctx, query, product.Name, product.Price.String(), product.Stock, time.Now().UTC(), product.ID)
	if err != nil {
		if serializationFailure(err) {
			return errors.ErrConcurrentModification
		}
		s.logger.Error("Failed to update product", "product_id", product.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update product").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.ErrProductNotFound
	}

	return nil
}

func (s *session) CreateOrder(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, buyer_account_id, product_id, quantity, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.tx.ExecContext(ctx, query,
		order.ID,
		order.BuyerAccountID,
		order.ProductID,
		order.Quantity,
		order.TotalAmount.String(),
		order.CreatedAt,
	)
	if err != nil {
		if serializationFailure(err) {
			return errors.ErrConcurrentModification
		}
		s.logger.Error("Failed to create order", "order_id", order.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create order").WithDetails(err.Error())
	}

	return nil
}

func (s *session) CreateTransfer(ctx context.Context, transfer *domain.Transfer) error {
	query := `
		INSERT INTO transfers (id, from_account_id, to_account_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.tx.ExecContext(ctx, query,
		transfer.ID,
		transfer.FromAccountID,
		transfer.ToAccountID,
		transfer.Amount.String(),
		transfer.CreatedAt,
	)
	if err != nil {
		if serializationFailure(err) {
			return errors.ErrConcurrentModification
		}
		s.logger.Error("Failed to create transfer", "transfer_id", transfer.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create transfer").WithDetails(err.Error())
	}

	return nil
}

func (s *session) Commit(ctx context.Context) error {
	if err := s.tx.Commit(); err != nil {
		if serializationFailure(err) {
			return errors.ErrConcurrentModification
		}
		s.logger.Error("Failed to commit transaction", "error", err)
		return errors.NewAppError(errors.InternalError, "failed to commit transaction").WithDetails(err.Error())
	}
	return nil
}

// Abort rolls the transaction back. Rollback after Commit or a repeated
// Abort reports sql.ErrTxDone, which is the idempotent no-op case.
func (s *session) Abort(ctx context.Context) error {
	if err := s.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		s.logger.Error("Failed to roll back transaction", "error", err)
		return errors.NewAppError(errors.InternalError, "failed to roll back transaction").WithDetails(err.Error())
	}
	return nil
}
