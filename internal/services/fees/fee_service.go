// Package fees resolves interchange fee tiers and computes fee amounts.
package fees

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cardnetsim/processing/internal/domain"
	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
)

const (
	// minorUnitPlaces is the currency minor-unit precision fees are rounded to
	minorUnitPlaces = 2

	// defaultExchangeID is the seeded network exchange the tiers hang off
	defaultExchangeID int64 = 1
)

var oneHundred = decimal.NewFromInt(100)

// Service implements the fee engine
type Service struct {
	feeRepo ports.FeeRepository
	logger  ports.Logger
}

// NewService creates a new fee service
func NewService(feeRepo ports.FeeRepository, logger ports.Logger) *Service {
	return &Service{
		feeRepo: feeRepo,
		logger:  logger,
	}
}

// ResolveFee returns the fee tier applicable to (cardType, merchantCategory)
// as of asOf. Among overlapping validity windows the tier with the latest
// effective_from wins. A missing tier is a configuration error.
func (s *Service) ResolveFee(ctx context.Context, cardType models.CardType, merchantCategory string, asOf time.Time) (*models.FeeTier, error) {
	if merchantCategory == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "merchant category is required")
	}

	tier, err := s.feeRepo.FindCurrentTier(ctx, nil, cardType, merchantCategory, asOf)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		s.logger.Warn("no applicable fee tier",
			ports.String("card_type", string(cardType)),
			ports.String("merchant_category", merchantCategory),
			ports.String("as_of", asOf.Format(time.RFC3339)))
		return nil, domain.NewDomainError(domain.ErrorCodeNoApplicableFeeTier, "no applicable fee tier").
			WithDetail("card_type", string(cardType)).
			WithDetail("merchant_category", merchantCategory)
	}

	return tier, nil
}

// ListTiers lists the configured tiers for an exchange, the default
// exchange when none is given.
func (s *Service) ListTiers(ctx context.Context, exchangeID int64) ([]*models.FeeTier, error) {
	if exchangeID <= 0 {
		exchangeID = defaultExchangeID
	}
	return s.feeRepo.ListTiers(ctx, nil, exchangeID)
}

// ComputeFee computes amount * percentage/100 + fixed, rounded half-up to
// currency minor-unit precision
func ComputeFee(amount decimal.Decimal, tier *models.FeeTier) decimal.Decimal {
	fee := amount.Mul(tier.PercentageFee).Div(oneHundred).Add(tier.FixedFee)
	return fee.Round(minorUnitPlaces)
}
