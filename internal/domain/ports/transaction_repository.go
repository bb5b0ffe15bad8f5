package ports

import (
	"context"
	"time"

	"github.com/cardnetsim/processing/internal/domain/models"
)

// TransactionRepository defines the interface for transaction persistence
type TransactionRepository interface {
	// Create inserts a new transaction and fills in its assigned ID
	Create(ctx context.Context, tx DBTX, transaction *models.Transaction) error

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, db DBTX, id int64) (*models.Transaction, error)

	// GetByReferenceNumber retrieves a transaction by its unique reference number
	GetByReferenceNumber(ctx context.Context, db DBTX, ref string) (*models.Transaction, error)

	// UpdateStatus updates the lifecycle status of a transaction
	UpdateStatus(ctx context.Context, tx DBTX, id int64, status models.TransactionStatus) error

	// LockSettleable selects the merchant's completed transactions that are
	// not yet claimed by any settlement, locking the rows FOR UPDATE so
	// concurrent settlement runs serialize on them
	LockSettleable(ctx context.Context, tx DBTX, merchantID int64) ([]*models.Transaction, error)

	// MarkSettled sets status to settled and links the transaction to its
	// settlement in one write
	MarkSettled(ctx context.Context, tx DBTX, id, settlementID int64) error

	// CountByCardSince counts a card's transactions created at or after the
	// given instant
	CountByCardSince(ctx context.Context, db DBTX, cardID int64, since time.Time) (int, error)

	// ListByMerchant lists transactions for a merchant with pagination
	ListByMerchant(ctx context.Context, db DBTX, merchantID int64, limit, offset int32) ([]*models.Transaction, error)
}
