package ports

import (
	"context"

	"github.com/cardnetsim/processing/internal/domain/models"
)

// CardRepository defines the interface for card persistence
type CardRepository interface {
	// GetByID retrieves a card by its ID
	GetByID(ctx context.Context, db DBTX, id int64) (*models.Card, error)

	// ListByCardholder lists all cards owned by a cardholder
	ListByCardholder(ctx context.Context, db DBTX, cardholderID int64) ([]*models.Card, error)

	// SetActive updates the card's active flag and returns the previous value
	SetActive(ctx context.Context, tx DBTX, id int64, active bool) (bool, error)
}

// CardholderRepository defines the interface for cardholder persistence
type CardholderRepository interface {
	GetByID(ctx context.Context, db DBTX, id int64) (*models.Cardholder, error)
}

// CardStatusLog is the append-only audit trail for card active-flag
// transitions. Every transition must produce a record.
type CardStatusLog interface {
	Append(ctx context.Context, tx DBTX, change *models.CardStatusChange) error
}
