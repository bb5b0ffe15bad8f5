package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cardnetsim/processing/internal/domain"
	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
)

// AuthorizationRepository implements ports.AuthorizationRepository against
// PostgreSQL. Request and response payloads are serialized to JSON here, at
// the store boundary; everything above works on typed fields.
type AuthorizationRepository struct {
	db ports.DBPort
}

// NewAuthorizationRepository creates a new authorization repository
func NewAuthorizationRepository(db ports.DBPort) *AuthorizationRepository {
	return &AuthorizationRepository{db: db}
}

func (r *AuthorizationRepository) executor(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

// Create inserts a new authorization and fills in its assigned ID
func (r *AuthorizationRepository) Create(ctx context.Context, tx ports.DBTX, auth *models.Authorization) error {
	payload, err := json.Marshal(auth.RequestPayload)
	if err != nil {
		return fmt.Errorf("marshal request payload: %w", err)
	}

	err = r.executor(tx).QueryRow(ctx,
		`INSERT INTO authorizations (transaction_id, auth_code, status, request_payload)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		auth.TransactionID, auth.AuthCode, string(auth.Status), payload,
	).Scan(&auth.ID, &auth.CreatedAt)
	if err != nil {
		return fmt.Errorf("create authorization: %w", MapError(err))
	}
	return nil
}

// CreateResponse inserts the write-once response for an authorization
func (r *AuthorizationRepository) CreateResponse(ctx context.Context, tx ports.DBTX, resp *models.AuthorizationResponse) error {
	payload, err := json.Marshal(resp.Payload)
	if err != nil {
		return fmt.Errorf("marshal response payload: %w", err)
	}

	err = r.executor(tx).QueryRow(ctx,
		`INSERT INTO authorization_responses (authorization_id, response_code, response_message, payload)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		resp.AuthorizationID, resp.ResponseCode, resp.ResponseMessage, payload,
	).Scan(&resp.ID, &resp.CreatedAt)
	if err != nil {
		return fmt.Errorf("create authorization response: %w", MapError(err))
	}
	return nil
}

// GetByTransactionID retrieves the authorization for a transaction
func (r *AuthorizationRepository) GetByTransactionID(ctx context.Context, db ports.DBTX, transactionID int64) (*models.Authorization, error) {
	var (
		auth    models.Authorization
		payload []byte
	)
	err := r.executor(db).QueryRow(ctx,
		`SELECT id, transaction_id, auth_code, status, request_payload, created_at
		 FROM authorizations WHERE transaction_id = $1`, transactionID).
		Scan(&auth.ID, &auth.TransactionID, &auth.AuthCode, &auth.Status, &payload, &auth.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodeTxnNotFound, "authorization not found").
				WithDetail("transaction_id", transactionID)
		}
		return nil, fmt.Errorf("get authorization by transaction: %w", MapError(err))
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &auth.RequestPayload); err != nil {
			return nil, fmt.Errorf("unmarshal request payload: %w", err)
		}
	}
	return &auth, nil
}
