package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Merchant represents a merchant accepting card payments
type Merchant struct {
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Name             string
	CategoryCode     string
	TerminalID       string
	FeeRate          decimal.Decimal // flat processing fee, percent of gross
	SettlementAmount decimal.Decimal // cumulative settled amount, net of fees
	ID               int64
	AcquiringBankID  int64
}

// BankRole distinguishes issuing from acquiring banks
type BankRole string

const (
	BankRoleIssuing   BankRole = "issuing"
	BankRoleAcquiring BankRole = "acquiring"
)

// Bank represents an issuing or acquiring bank. Acquiring banks carry a
// settlement account reference.
type Bank struct {
	CreatedAt         time.Time
	Name              string
	Role              BankRole
	SettlementAccount string
	ID                int64
	IsActive          bool
}
