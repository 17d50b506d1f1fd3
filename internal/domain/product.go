package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item whose stock is mutated only by committed
// order sessions.
type Product struct {
	ID        int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int64           `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
