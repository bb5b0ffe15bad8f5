package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus represents the status of a settlement batch
type SettlementStatus string

const (
	SettlementCompleted SettlementStatus = "completed"
)

// Settlement aggregates one merchant's completed transactions for a
// settlement date, net of the merchant's processing fee
type Settlement struct {
	CreatedAt        time.Time
	SettlementDate   time.Time
	BatchID          string // uuid assigned at creation
	Status           SettlementStatus
	TotalAmount      decimal.Decimal
	TransactionCount int32
	ID               int64
	MerchantID       int64
}
