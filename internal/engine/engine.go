// Package engine is the transaction coordinator. Each operation runs as
// an isolated unit of work: open a session, read the snapshot, validate
// preconditions, buffer the writes, commit. Validation failures abort
// before anything is buffered and are never retried; commit conflicts
// are retried against a fresh snapshot up to a bounded attempt count.
package engine

import (
	"context"
	goerrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-ledger/internal/domain"
	"marketplace-ledger/internal/errors"
	"marketplace-ledger/internal/ledger"
	"marketplace-ledger/internal/validate"
)

// DefaultMaxAttempts bounds commit-conflict retries. The count is an
// operational parameter: a conflict means another session won the
// commit, so one re-read usually settles the outcome either way.
const DefaultMaxAttempts = 3

type Engine struct {
	store       ledger.Store
	logger      *slog.Logger
	maxAttempts int
}

// New builds an engine over the given ledger store. maxAttempts <= 0
// selects DefaultMaxAttempts.
func New(store ledger.Store, logger *slog.Logger, maxAttempts int) *Engine {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Engine{
		store:       store,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// PlaceOrder debits the buyer, decrements the product's stock, and
// records the order, atomically. On success every effect is committed;
// on any failure none are.
func (e *Engine) PlaceOrder(ctx context.Context, buyerAccountID, productID, quantity int64) (*domain.OrderReceipt, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		receipt, err := e.placeOrderOnce(ctx, buyerAccountID, productID, quantity)
		if err == nil {
			return receipt, nil
		}
		if !goerrors.Is(err, errors.ErrConcurrentModification) {
			return nil, err
		}
		e.logger.Warn("Order commit conflicted, retrying",
			"buyer_account_id", buyerAccountID,
			"product_id", productID,
			"attempt", attempt)
		lastErr = err
	}
	return nil, lastErr
}

func (e *Engine) placeOrderOnce(ctx context.Context, buyerAccountID, productID, quantity int64) (*domain.OrderReceipt, error) {
	session, err := e.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Abort(ctx)

	account, err := session.GetAccount(ctx, buyerAccountID)
	if err != nil {
		return nil, err
	}
	product, err := session.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := validate.Order(*account, *product, quantity); err != nil {
		return nil, err
	}

	totalAmount := product.Price.Mul(decimal.NewFromInt(quantity))
	account.Balance = account.Balance.Sub(totalAmount)
	product.Stock -= quantity

	order := &domain.Order{
		ID:             uuid.New(),
		BuyerAccountID: buyerAccountID,
		ProductID:      productID,
		Quantity:       quantity,
		TotalAmount:    totalAmount,
		CreatedAt:      time.Now().UTC(),
	}

	if err := session.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	if err := session.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	if err := session.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	if err := session.Commit(ctx); err != nil {
		return nil, err
	}

	e.logger.Info("Order placed",
		"order_id", order.ID,
		"buyer_account_id", buyerAccountID,
		"product_id", productID,
		"quantity", quantity,
		"total_amount", totalAmount)

	return &domain.OrderReceipt{
		OrderID:        order.ID,
		ProductName:    product.Name,
		Quantity:       quantity,
		TotalAmount:    totalAmount,
		RemainingStock: product.Stock,
		BalanceAfter:   account.Balance,
		OrderedAt:      order.CreatedAt,
	}, nil
}

// TransferFunds moves amount from one account to another, atomically.
// The sum of the two balances is unchanged by a successful transfer.
func (e *Engine) TransferFunds(ctx context.Context, fromAccountID, toAccountID int64, amount decimal.Decimal) (*domain.TransferReceipt, error) {
	if fromAccountID == toAccountID {
		return nil, errors.ErrSameAccountTransfer
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		receipt, err := e.transferFundsOnce(ctx, fromAccountID, toAccountID, amount)
		if err == nil {
			return receipt, nil
		}
		if !goerrors.Is(err, errors.ErrConcurrentModification) {
			return nil, err
		}
		e.logger.Warn("Transfer commit conflicted, retrying",
			"from_account_id", fromAccountID,
			"to_account_id", toAccountID,
			"attempt", attempt)
		lastErr = err
	}
	return nil, lastErr
}

func (e *Engine) transferFundsOnce(ctx context.Context, fromAccountID, toAccountID int64, amount decimal.Decimal) (*domain.TransferReceipt, error) {
	session, err := e.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Abort(ctx)

	from, err := session.GetAccount(ctx, fromAccountID)
	if err != nil {
		return nil, err
	}
	to, err := session.GetAccount(ctx, toAccountID)
	if err != nil {
		return nil, err
	}

	if err := validate.Transfer(*from, amount); err != nil {
		return nil, err
	}

	from.Balance = from.Balance.Sub(amount)
	to.Balance = to.Balance.Add(amount)

	transfer := &domain.Transfer{
		ID:            uuid.New(),
		FromAccountID: fromAccountID,
		ToAccountID:   toAccountID,
		Amount:        amount,
		CreatedAt:     time.Now().UTC(),
	}

	if err := session.UpdateAccount(ctx, from); err != nil {
		return nil, err
	}
	if err := session.UpdateAccount(ctx, to); err != nil {
		return nil, err
	}
	if err := session.CreateTransfer(ctx, transfer); err != nil {
		return nil, err
	}

	if err := session.Commit(ctx); err != nil {
		return nil, err
	}

	e.logger.Info("Transfer completed",
		"transfer_id", transfer.ID,
		"from_account_id", fromAccountID,
		"to_account_id", toAccountID,
		"amount", amount)

	return &domain.TransferReceipt{
		TransferID:      transfer.ID,
		FromAccountName: from.Name,
		ToAccountName:   to.Name,
		Amount:          amount,
	}, nil
}
