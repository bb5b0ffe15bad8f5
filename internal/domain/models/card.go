package models

import "time"

// CardType represents the card product type
type CardType string

const (
	CardTypeDebit   CardType = "debit"
	CardTypeCredit  CardType = "credit"
	CardTypePrepaid CardType = "prepaid"
)

// Card represents an issued card. Only a token derived from the PAN is
// stored, never the PAN itself.
type Card struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ExpiryDate    time.Time
	CardToken     string
	Type          CardType
	ID            int64
	CardholderID  int64
	IssuingBankID int64
	IsActive      bool
}

// IsExpired reports whether the card is expired as of the given date.
// A card whose expiry date equals the reference date is already expired.
func (c *Card) IsExpired(asOf time.Time) bool {
	return !c.ExpiryDate.After(asOf)
}

// Cardholder owns zero or more cards
type Cardholder struct {
	CreatedAt time.Time
	FirstName string
	LastName  string
	Email     string
	Phone     string
	ID        int64
}

// CardStatusChange is the append-only audit record written whenever a
// card's active flag transitions
type CardStatusChange struct {
	ChangedAt time.Time
	CardID    int64
	OldActive bool
	NewActive bool
}
