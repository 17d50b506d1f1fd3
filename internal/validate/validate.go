// Package validate holds the pure precondition checks run against a
// session snapshot before any write is buffered. Keeping them free of
// storage concerns makes the business rules testable without a
// database.
package validate

import (
	"github.com/shopspring/decimal"

	"marketplace-ledger/internal/domain"
	"marketplace-ledger/internal/errors"
)

// Order checks that an order for quantity units of product can be paid
// for by account. It mutates nothing.
func Order(account domain.Account, product domain.Product, quantity int64) error {
	if quantity <= 0 {
		return errors.ErrInvalidQuantity
	}
	if quantity > product.Stock {
		return errors.NewAppErrorf(errors.InsufficientStock, "requested %d units, %d in stock", quantity, product.Stock)
	}
	total := product.Price.Mul(decimal.NewFromInt(quantity))
	if total.GreaterThan(account.Balance) {
		return errors.NewAppErrorf(errors.InsufficientBalance, "order total %s exceeds balance %s", total, account.Balance)
	}
	return nil
}

// Transfer checks that amount can be debited from the source account.
// A non-positive amount is rejected regardless of balance.
func Transfer(from domain.Account, amount decimal.Decimal) error {
	if amount.IsNegative() || amount.IsZero() {
		return errors.ErrInvalidAmount
	}
	if amount.GreaterThan(from.Balance) {
		return errors.NewAppErrorf(errors.InsufficientBalance, "amount %s exceeds balance %s", amount, from.Balance)
	}
	return nil
}
