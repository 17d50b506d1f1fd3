package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"marketplace-ledger/internal/engine"
	"marketplace-ledger/internal/errors"
)

type OrderHandler struct {
	engine *engine.Engine
}

func NewOrderHandler(engine *engine.Engine) *OrderHandler {
	return &OrderHandler{engine: engine}
}

type PlaceOrderRequest struct {
	BuyerAccountID int64 `json:"buyer_account_id"`
	ProductID      int64 `json:"product_id"`
	Quantity       int64 `json:"quantity"`
}

type OrderReceiptResponse struct {
	OrderID        string `json:"order_id"`
	ProductName    string `json:"product_name"`
	Quantity       int64  `json:"quantity"`
	TotalAmount    string `json:"total_amount"`
	RemainingStock int64  `json:"remaining_stock"`
	BalanceAfter   string `json:"balance_after"`
	OrderedAt      string `json:"ordered_at"`
}

func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body"))
		return
	}

	receipt, err := h.engine.PlaceOrder(r.Context(), req.BuyerAccountID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, OrderReceiptResponse{
		OrderID:        receipt.OrderID.String(),
		ProductName:    receipt.ProductName,
		Quantity:       receipt.Quantity,
		TotalAmount:    receipt.TotalAmount.String(),
		RemainingStock: receipt.RemainingStock,
		BalanceAfter:   receipt.BalanceAfter.String(),
		OrderedAt:      receipt.OrderedAt.Format(time.RFC3339),
	})
}
