package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order records a purchase. It is written exactly once, as the terminal
// effect of a successful PlaceOrder, and never updated.
type Order struct {
	ID             uuid.UUID       `json:"order_id"`
	BuyerAccountID int64           `json:"buyer_account_id"`
	ProductID      int64           `json:"product_id"`
	Quantity       int64           `json:"quantity"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

// OrderReceipt is returned to the caller of PlaceOrder.
type OrderReceipt struct {
	OrderID        uuid.UUID       `json:"order_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int64           `json:"quantity"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	RemainingStock int64           `json:"remaining_stock"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	OrderedAt      time.Time       `json:"ordered_at"`
}
