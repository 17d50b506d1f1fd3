// Package catalog manages account and product records for the outer
// API. It owns record creation; balance and stock mutation is the
// engine's job. All writes go through ledger sessions so the store
// never sees an unguarded write.
package catalog

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"marketplace-ledger/internal/domain"
	"marketplace-ledger/internal/errors"
	"marketplace-ledger/internal/ledger"
)

type Service struct {
	store  ledger.Store
	logger *slog.Logger
}

func NewService(store ledger.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// maxInitialBalance guards against fat-finger account seeding.
var maxInitialBalance = decimal.NewFromInt(10_000_000_000)

func (s *Service) CreateAccount(ctx context.Context, accountID int64, name string, initialBalance decimal.Decimal) (*domain.Account, error) {
	if accountID <= 0 {
		return nil, errors.NewAppError(errors.InvalidInput, "account ID must be positive")
	}
	if initialBalance.IsNegative() {
		return nil, errors.NewAppError(errors.InvalidAmount, "initial balance cannot be negative")
	}
	if initialBalance.GreaterThan(maxInitialBalance) {
		return nil, errors.NewAppError(errors.InvalidAmount, "initial balance exceeds maximum limit")
	}

	account := &domain.Account{
		ID:      accountID,
		Name:    name,
		Balance: initialBalance,
	}

	session, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Abort(ctx)

	if err := session.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	if err := session.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("Account created", "account_id", account.ID)
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	session, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Abort(ctx)

	return session.GetAccount(ctx, accountID)
}

func (s *Service) CreateProduct(ctx context.Context, productID int64, name string, price decimal.Decimal, stock int64) (*domain.Product, error) {
	if productID <= 0 {
		return nil, errors.NewAppError(errors.InvalidInput, "product ID must be positive")
	}
	if price.IsNegative() || price.IsZero() {
		return nil, errors.NewAppError(errors.InvalidAmount, "price must be positive")
	}
	if stock < 0 {
		return nil, errors.NewAppError(errors.InvalidQuantity, "stock cannot be negative")
	}

	product := &domain.Product{
		ID:    productID,
		Name:  name,
		Price: price,
		Stock: stock,
	}

	session, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Abort(ctx)

	if err := session.CreateProduct(ctx, product); err != nil {
		return nil, err
	}
	if err := session.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("Product created", "product_id", product.ID)
	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	session, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Abort(ctx)

	return session.GetProduct(ctx, productID)
}
