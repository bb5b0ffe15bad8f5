package postgres

import (
	"context"
	"fmt"

	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
)

// CardStatusLogRepository implements ports.CardStatusLog as an append-only
// audit table. Records are never updated or deleted.
type CardStatusLogRepository struct {
	db ports.DBPort
}

// NewCardStatusLogRepository creates a new card status log repository
func NewCardStatusLogRepository(db ports.DBPort) *CardStatusLogRepository {
	return &CardStatusLogRepository{db: db}
}

// Append writes one audit record for a card active-flag transition
func (r *CardStatusLogRepository) Append(ctx context.Context, tx ports.DBTX, change *models.CardStatusChange) error {
	executor := tx
	if executor == nil {
		executor = r.db.GetDB()
	}

	_, err := executor.Exec(ctx,
		`INSERT INTO card_status_log (card_id, old_active, new_active, changed_at)
		 VALUES ($1, $2, $3, $4)`,
		change.CardID, change.OldActive, change.NewActive, change.ChangedAt)
	if err != nil {
		return fmt.Errorf("append card status log: %w", MapError(err))
	}
	return nil
}
