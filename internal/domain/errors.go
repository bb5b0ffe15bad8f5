package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Validation Errors (VALIDATION_*) - rejected before any store write
	ErrorCodeValidationFailed          ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationAmountInvalid   ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationMissingField    ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrorCodeValidationInvalidGrouping ErrorCode = "VALIDATION_INVALID_GROUPING"

	// Card Errors (CARD_*)
	ErrorCodeCardNotFound ErrorCode = "CARD_NOT_FOUND"
	ErrorCodeCardInactive ErrorCode = "CARD_INACTIVE"
	ErrorCodeCardExpired  ErrorCode = "CARD_EXPIRED"

	// Cardholder Errors (CARDHOLDER_*)
	ErrorCodeCardholderNotFound ErrorCode = "CARDHOLDER_NOT_FOUND"

	// Merchant Errors (MERCHANT_*)
	ErrorCodeMerchantNotFound ErrorCode = "MERCHANT_NOT_FOUND"

	// Bank Errors (BANK_*)
	ErrorCodeBankNotFound ErrorCode = "BANK_NOT_FOUND"
	ErrorCodeBankInactive ErrorCode = "BANK_INACTIVE"

	// Transaction Errors (TXN_*)
	ErrorCodeTxnNotFound         ErrorCode = "TXN_NOT_FOUND"
	ErrorCodeTxnInvalidState     ErrorCode = "TXN_INVALID_STATE"
	ErrorCodeTxnDuplicateRef     ErrorCode = "TXN_DUPLICATE_REFERENCE"
	ErrorCodeTxnProcessingFailed ErrorCode = "TXN_PROCESSING_FAILED"

	// Fee Errors (FEE_*)
	ErrorCodeNoApplicableFeeTier ErrorCode = "FEE_NO_APPLICABLE_TIER"

	// Settlement Errors (SETTLEMENT_*)
	ErrorCodeSettlementNotFound ErrorCode = "SETTLEMENT_NOT_FOUND"

	// Concurrency Errors (CONCURRENCY_*) - whole operation is retryable
	ErrorCodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeStoreError    ErrorCode = "INTERNAL_STORE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeCardNotFound ||
		code == ErrorCodeCardholderNotFound ||
		code == ErrorCodeMerchantNotFound ||
		code == ErrorCodeBankNotFound ||
		code == ErrorCodeTxnNotFound ||
		code == ErrorCodeSettlementNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationMissingField ||
		code == ErrorCodeValidationInvalidGrouping
}

// IsConflictError checks if an error is a concurrency conflict that the
// caller should resolve by retrying the whole operation
func IsConflictError(err error) bool {
	return GetErrorCode(err) == ErrorCodeConcurrencyConflict
}

// IsStoreError checks if an error is a store-level failure
func IsStoreError(err error) bool {
	return GetErrorCode(err) == ErrorCodeStoreError
}

// Structured error instances
var (
	ErrCardNotFound       = NewDomainError(ErrorCodeCardNotFound, "card not found")
	ErrCardholderNotFound = NewDomainError(ErrorCodeCardholderNotFound, "cardholder not found")
	ErrMerchantNotFound   = NewDomainError(ErrorCodeMerchantNotFound, "merchant not found")
	ErrBankNotFound       = NewDomainError(ErrorCodeBankNotFound, "bank not found")
	ErrTxnNotFound        = NewDomainError(ErrorCodeTxnNotFound, "transaction not found")
	ErrSettlementNotFound = NewDomainError(ErrorCodeSettlementNotFound, "settlement not found")

	ErrTxnInvalidState = NewDomainError(ErrorCodeTxnInvalidState, "transaction is in invalid state for this operation")
	ErrTxnDuplicateRef = NewDomainError(ErrorCodeTxnDuplicateRef, "reference number already used")

	ErrNoApplicableFeeTier = NewDomainError(ErrorCodeNoApplicableFeeTier, "no applicable fee tier for card type and merchant category")

	ErrValidationFailed        = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrValidationAmountInvalid = NewDomainError(ErrorCodeValidationAmountInvalid, "amount must be greater than zero")
	ErrValidationMissingField  = NewDomainError(ErrorCodeValidationMissingField, "required field missing")
	ErrInvalidGrouping         = NewDomainError(ErrorCodeValidationInvalidGrouping, "grouping must be daily, weekly or monthly")

	ErrConcurrencyConflict = NewDomainError(ErrorCodeConcurrencyConflict, "concurrent update conflict, retry the operation")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal error")
	ErrStoreError    = NewDomainError(ErrorCodeStoreError, "store error")
)
