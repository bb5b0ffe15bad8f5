package ports

import (
	"context"
	"time"

	"github.com/cardnetsim/processing/internal/domain/models"
)

// FeeRepository defines the interface for interchange fee tier persistence
type FeeRepository interface {
	// FindCurrentTier returns the tier for (cardType, merchantCategory)
	// whose validity window contains asOf, tie-broken by the latest
	// effective_from. Returns nil when no tier matches.
	FindCurrentTier(ctx context.Context, db DBTX, cardType models.CardType, merchantCategory string, asOf time.Time) (*models.FeeTier, error)

	// ListTiers lists all tiers for an exchange
	ListTiers(ctx context.Context, db DBTX, exchangeID int64) ([]*models.FeeTier, error)
}
