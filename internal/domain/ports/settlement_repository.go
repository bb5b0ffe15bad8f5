package ports

import (
	"context"
	"time"

	"github.com/cardnetsim/processing/internal/domain/models"
)

// SettlementRepository defines the interface for settlement persistence
type SettlementRepository interface {
	// Create inserts a new settlement and fills in its assigned ID
	Create(ctx context.Context, tx DBTX, settlement *models.Settlement) error

	// GetByID retrieves a settlement by its ID
	GetByID(ctx context.Context, db DBTX, id int64) (*models.Settlement, error)

	// ListByMerchant lists a merchant's settlements, newest first
	ListByMerchant(ctx context.Context, db DBTX, merchantID int64, limit, offset int32) ([]*models.Settlement, error)

	// ExistsForMerchantAndDate reports whether the merchant already has a
	// settlement dated settlementDate
	ExistsForMerchantAndDate(ctx context.Context, db DBTX, merchantID int64, settlementDate time.Time) (bool, error)
}
