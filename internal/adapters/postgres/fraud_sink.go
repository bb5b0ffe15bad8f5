package postgres

import (
	"context"
	"fmt"

	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
)

// FraudMonitoringSink implements ports.FraudSink by appending rows to the
// fraud_monitoring table. The detector treats every error from here as
// best-effort, so this adapter just reports what happened.
type FraudMonitoringSink struct {
	db ports.DBPort
}

// NewFraudMonitoringSink creates a new fraud monitoring sink
func NewFraudMonitoringSink(db ports.DBPort) *FraudMonitoringSink {
	return &FraudMonitoringSink{db: db}
}

// Record appends one fraud-monitoring record for a flagged card
func (s *FraudMonitoringSink) Record(ctx context.Context, alert *models.FraudAlert) error {
	_, err := s.db.GetDB().Exec(ctx,
		`INSERT INTO fraud_monitoring (card_id, transaction_count, window_start, reason, detected_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		alert.CardID, alert.TransactionCount, alert.WindowStart, alert.Reason, alert.DetectedAt)
	if err != nil {
		return fmt.Errorf("record fraud alert: %w", MapError(err))
	}
	return nil
}
