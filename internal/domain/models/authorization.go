package models

import "time"

// AuthorizationStatus represents the decision recorded for an authorization
type AuthorizationStatus string

const (
	AuthStatusApproved AuthorizationStatus = "approved"
	AuthStatusDeclined AuthorizationStatus = "declined"
	AuthStatusPending  AuthorizationStatus = "pending"
)

// ISO-style response codes returned to the acquirer
const (
	ResponseCodeApproved    = "00"
	ResponseCodeInvalidCard = "14"
	ResponseCodeExpiredCard = "54"
)

// Authorization is written exactly once per transaction. Its status may be
// corrected exactly once by the response that terminates it.
type Authorization struct {
	CreatedAt      time.Time
	AuthCode       string
	Status         AuthorizationStatus
	RequestPayload AuthRequestPayload
	ID             int64
	TransactionID  int64
}

// AuthRequestPayload is the captured authorization request. It is stored
// as JSON at the store boundary; internal logic works on the typed fields.
type AuthRequestPayload struct {
	CardID          int64  `json:"card_id"`
	MerchantID      int64  `json:"merchant_id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	ReferenceNumber string `json:"reference_number"`
}

// AuthorizationResponse is the write-once response record for an authorization
type AuthorizationResponse struct {
	CreatedAt       time.Time
	ResponseCode    string
	ResponseMessage string
	Payload         AuthResponsePayload
	ID              int64
	AuthorizationID int64
}

// AuthResponsePayload echoes the transaction and decision back to the caller
type AuthResponsePayload struct {
	Decision       string `json:"decision"`
	AuthCode       string `json:"auth_code"`
	InterchangeFee string `json:"interchange_fee,omitempty"`
	TransactionID  int64  `json:"transaction_id"`
}
