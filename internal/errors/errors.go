package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput           ErrorCode = "invalid_input"
	InvalidAmount          ErrorCode = "invalid_amount"
	InvalidQuantity        ErrorCode = "invalid_quantity"
	AccountNotFound        ErrorCode = "account_not_found"
	ProductNotFound        ErrorCode = "product_not_found"
	InsufficientBalance    ErrorCode = "insufficient_balance"
	InsufficientStock      ErrorCode = "insufficient_stock"
	SameAccountTransfer    ErrorCode = "same_account_transfer"
	DuplicateAccount       ErrorCode = "duplicate_account"
	DuplicateProduct       ErrorCode = "duplicate_product"
	ConcurrentModification ErrorCode = "concurrent_modification"
	InternalError          ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches AppErrors by code, so wrapped and detailed variants compare
// equal to their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// HTTPStatus maps an error code to the status the API surfaces it with.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InvalidAmount, InvalidQuantity, SameAccountTransfer:
		return http.StatusBadRequest
	case AccountNotFound, ProductNotFound:
		return http.StatusNotFound
	case DuplicateAccount, DuplicateProduct, ConcurrentModification:
		return http.StatusConflict
	case InsufficientBalance, InsufficientStock:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrAccountNotFound        = NewAppError(AccountNotFound, "account not found")
	ErrProductNotFound        = NewAppError(ProductNotFound, "product not found")
	ErrInsufficientBalance    = NewAppError(InsufficientBalance, "insufficient balance")
	ErrInsufficientStock      = NewAppError(InsufficientStock, "insufficient stock")
	ErrInvalidAmount          = NewAppError(InvalidAmount, "amount must be positive")
	ErrInvalidQuantity        = NewAppError(InvalidQuantity, "quantity must be positive")
	ErrSameAccountTransfer    = NewAppError(SameAccountTransfer, "cannot transfer to the same account")
	ErrDuplicateAccount       = NewAppError(DuplicateAccount, "account already exists")
	ErrDuplicateProduct       = NewAppError(DuplicateProduct, "product already exists")
	ErrConcurrentModification = NewAppError(ConcurrentModification, "conflicting concurrent update")
)
