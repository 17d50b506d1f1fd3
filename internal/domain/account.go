package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a ledger account. Balance is mutated only by committed
// ledger sessions.
type Account struct {
	ID        int64           `json:"account_id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
