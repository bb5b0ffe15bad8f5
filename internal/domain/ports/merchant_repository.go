package ports

import (
	"context"

	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/shopspring/decimal"
)

// MerchantRepository defines the interface for merchant persistence
type MerchantRepository interface {
	// GetByID retrieves a merchant by its ID
	GetByID(ctx context.Context, db DBTX, id int64) (*models.Merchant, error)

	// GetByIDForUpdate retrieves a merchant row locked FOR UPDATE. Used as
	// the per-merchant serialization point for settlement runs.
	GetByIDForUpdate(ctx context.Context, tx DBTX, id int64) (*models.Merchant, error)

	// AddToSettlementAmount increments the merchant's cumulative settled amount
	AddToSettlementAmount(ctx context.Context, tx DBTX, id int64, amount decimal.Decimal) error
}

// BankRepository defines the interface for bank persistence
type BankRepository interface {
	GetByID(ctx context.Context, db DBTX, id int64) (*models.Bank, error)
}
