package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the lifecycle state of a transaction.
// Status only moves forward: initiated -> authorized|declined ->
// completed -> settled, with failed as the terminal error state.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusInitiated  TransactionStatus = "initiated"
	StatusAuthorized TransactionStatus = "authorized"
	StatusDeclined   TransactionStatus = "declined"
	StatusCompleted  TransactionStatus = "completed"
	StatusSettled    TransactionStatus = "settled"
	StatusFailed     TransactionStatus = "failed"
)

// statusRank orders lifecycle states for the forward-only check
var statusRank = map[TransactionStatus]int{
	StatusPending:    0,
	StatusInitiated:  1,
	StatusAuthorized: 2,
	StatusDeclined:   2,
	StatusCompleted:  3,
	StatusSettled:    4,
	StatusFailed:     5,
}

// CanTransitionTo reports whether moving from the current status to next
// respects the forward-only state machine
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// PriorStatuses returns every status allowed to precede next under the
// forward-only state machine. An initial status has no priors.
func PriorStatuses(next TransactionStatus) []TransactionStatus {
	to, ok := statusRank[next]
	if !ok {
		return nil
	}
	var prior []TransactionStatus
	for s, rank := range statusRank {
		if rank < to {
			prior = append(prior, s)
		}
	}
	return prior
}

// Transaction represents one payment transaction on the network
type Transaction struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Amount          decimal.Decimal
	Currency        string
	ReferenceNumber string
	Status          TransactionStatus
	SettlementID    *int64 // set once the transaction is claimed by a settlement
	ID              int64
	CardID          int64
	MerchantID      int64
	AcquiringBankID int64
	IssuingBankID   int64
}

// IsSettleable reports whether the transaction is eligible for settlement
func (t *Transaction) IsSettleable() bool {
	return t.Status == StatusCompleted && t.SettlementID == nil
}
