package ports

import (
	"context"

	"github.com/cardnetsim/processing/internal/domain/models"
)

// AuthorizationRepository defines the interface for authorization persistence.
// Authorizations are written once; only the terminal status correction
// driven by the response may follow.
type AuthorizationRepository interface {
	// Create inserts a new authorization and fills in its assigned ID
	Create(ctx context.Context, tx DBTX, auth *models.Authorization) error

	// CreateResponse inserts the write-once response for an authorization
	CreateResponse(ctx context.Context, tx DBTX, resp *models.AuthorizationResponse) error

	// GetByTransactionID retrieves the authorization for a transaction
	GetByTransactionID(ctx context.Context, db DBTX, transactionID int64) (*models.Authorization, error)
}
