package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer records a movement of funds between two accounts. Immutable
// once created.
type Transfer struct {
	ID            uuid.UUID       `json:"transfer_id"`
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TransferReceipt is returned to the caller of TransferFunds.
type TransferReceipt struct {
	TransferID      uuid.UUID       `json:"transfer_id"`
	FromAccountName string          `json:"from_account_name"`
	ToAccountName   string          `json:"to_account_name"`
	Amount          decimal.Decimal `json:"amount"`
}
