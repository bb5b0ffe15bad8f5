package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Exchange is a named exchange period owning a set of interchange fee tiers
type Exchange struct {
	CreatedAt time.Time
	Name      string
	ID        int64
}

// FeeTier prices card-network fees for a (card type, merchant category)
// pair within a validity window [EffectiveFrom, EffectiveTo).
type FeeTier struct {
	EffectiveFrom    time.Time
	EffectiveTo      time.Time
	CardType         CardType
	MerchantCategory string
	PercentageFee    decimal.Decimal
	FixedFee         decimal.Decimal
	ID               int64
	ExchangeID       int64
}

// Covers reports whether the tier's validity window contains the given date
func (t *FeeTier) Covers(asOf time.Time) bool {
	return !asOf.Before(t.EffectiveFrom) && asOf.Before(t.EffectiveTo)
}
