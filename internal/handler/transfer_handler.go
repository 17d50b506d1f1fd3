package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"marketplace-ledger/internal/engine"
	"marketplace-ledger/internal/errors"
)

type TransferHandler struct {
	engine *engine.Engine
}

func NewTransferHandler(engine *engine.Engine) *TransferHandler {
	return &TransferHandler{engine: engine}
}

type TransferRequest struct {
	FromAccountID int64  `json:"from_account_id"`
	ToAccountID   int64  `json:"to_account_id"`
	Amount        string `json:"amount"`
}

type TransferReceiptResponse struct {
	TransferID      string `json:"transfer_id"`
	FromAccountName string `json:"from_account_name"`
	ToAccountName   string `json:"to_account_name"`
	Amount          string `json:"amount"`
}

func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format"))
		return
	}

	receipt, err := h.engine.TransferFunds(r.Context(), req.FromAccountID, req.ToAccountID, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, TransferReceiptResponse{
		TransferID:      receipt.TransferID.String(),
		FromAccountName: receipt.FromAccountName,
		ToAccountName:   receipt.ToAccountName,
		Amount:          receipt.Amount.String(),
	})
}
