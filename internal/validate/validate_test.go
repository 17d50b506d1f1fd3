package validate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"marketplace-ledger/internal/domain"
	"marketplace-ledger/internal/errors"
)

func account(balance string) domain.Account {
	return domain.Account{ID: 1, Name: "buyer", Balance: decimal.RequireFromString(balance)}
}

func product(price string, stock int64) domain.Product {
	return domain.Product{ID: 10, Name: "widget", Price: decimal.RequireFromString(price), Stock: stock}
}

func TestOrder(t *testing.T) {
	tests := []struct {
		name     string
		account  domain.Account
		product  domain.Product
		quantity int64
		wantErr  error
	}{
		{
			name:     "exact balance and stock",
			account:  account("50"),
			product:  product("10", 5),
			quantity: 5,
			wantErr:  nil,
		},
		{
			name:     "sufficient balance and stock",
			account:  account("100"),
			product:  product("10", 5),
			quantity: 3,
			wantErr:  nil,
		},
		{
			name:     "quantity exceeds stock",
			account:  account("1000"),
			product:  product("10", 5),
			quantity: 6,
			wantErr:  errors.ErrInsufficientStock,
		},
		{
			name:     "total exceeds balance",
			account:  account("29.99"),
			product:  product("10", 5),
			quantity: 3,
			wantErr:  errors.ErrInsufficientBalance,
		},
		{
			name:     "zero quantity",
			account:  account("100"),
			product:  product("10", 5),
			quantity: 0,
			wantErr:  errors.ErrInvalidQuantity,
		},
		{
			name:     "negative quantity",
			account:  account("100"),
			product:  product("10", 5),
			quantity: -1,
			wantErr:  errors.ErrInvalidQuantity,
		},
		{
			name:     "fractional price multiplies exactly",
			account:  account("0.30"),
			product:  product("0.10", 10),
			quantity: 3,
			wantErr:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Order(tt.account, tt.product, tt.quantity)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestOrderDoesNotMutateInputs(t *testing.T) {
	acc := account("100")
	prod := product("10", 5)

	err := Order(acc, prod, 3)
	assert.NoError(t, err)

	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, int64(5), prod.Stock)
}

func TestTransfer(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.Account
		amount  string
		wantErr error
	}{
		{
			name:    "sufficient balance",
			from:    account("100"),
			amount:  "40",
			wantErr: nil,
		},
		{
			name:    "whole balance",
			from:    account("100"),
			amount:  "100",
			wantErr: nil,
		},
		{
			name:    "amount exceeds balance",
			from:    account("100"),
			amount:  "100.01",
			wantErr: errors.ErrInsufficientBalance,
		},
		{
			name:    "zero amount rejected regardless of balance",
			from:    account("100"),
			amount:  "0",
			wantErr: errors.ErrInvalidAmount,
		},
		{
			name:    "negative amount rejected regardless of balance",
			from:    account("100"),
			amount:  "-5",
			wantErr: errors.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Transfer(tt.from, decimal.RequireFromString(tt.amount))
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
