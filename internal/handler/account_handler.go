package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"marketplace-ledger/internal/catalog"
	"marketplace-ledger/internal/errors"
)

type AccountHandler struct {
	catalog *catalog.Service
}

func NewAccountHandler(catalog *catalog.Service) *AccountHandler {
	return &AccountHandler{catalog: catalog}
}

type CreateAccountRequest struct {
	AccountID      int64  `json:"account_id"`
	Name           string `json:"name"`
	InitialBalance string `json:"initial_balance"`
}

type AccountResponse struct {
	AccountID int64  `json:"account_id"`
	Name      string `json:"name"`
	Balance   string `json:"balance"`
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body"))
		return
	}

	initialBalance, err := decimal.NewFromString(req.InitialBalance)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid initial_balance format"))
		return
	}

	account, err := h.catalog.CreateAccount(r.Context(), req.AccountID, req.Name, initialBalance)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, AccountResponse{
		AccountID: account.ID,
		Name:      account.Name,
		Balance:   account.Balance.String(),
	})
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	accountID, err := strconv.ParseInt(vars["account_id"], 10, 64)
	if err != nil || accountID <= 0 {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid account ID"))
		return
	}

	account, err := h.catalog.GetAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{
		AccountID: account.ID,
		Name:      account.Name,
		Balance:   account.Balance.String(),
	})
}
