// Package fraud scans cardholder transaction history for velocity anomalies.
package fraud

import (
	"context"
	"iter"
	"time"

	"github.com/cardnetsim/processing/internal/domain"
	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
	"github.com/cardnetsim/processing/pkg/observability"
	"github.com/cardnetsim/processing/pkg/timeutil"
)

// Detector implements the fraud pattern detector
type Detector struct {
	cardRepo ports.CardRepository
	txRepo   ports.TransactionRepository
	sink     ports.FraudSink // optional, best-effort
	logger   ports.Logger
}

// NewDetector creates a new fraud detector. The sink may be nil when no
// monitoring table is present.
func NewDetector(cardRepo ports.CardRepository, txRepo ports.TransactionRepository, sink ports.FraudSink, logger ports.Logger) *Detector {
	return &Detector{
		cardRepo: cardRepo,
		txRepo:   txRepo,
		sink:     sink,
		logger:   logger,
	}
}

// DetectSuspiciousCards yields each of the cardholder's cards whose
// transaction count within the trailing window reaches the threshold.
// The sequence is lazy and restartable: every range over it recomputes
// from scratch, there is no persisted cursor. Flagged cards get a
// best-effort monitoring record; sink failures are logged and swallowed.
func (d *Detector) DetectSuspiciousCards(ctx context.Context, cardholderID int64, windowHours, threshold int) iter.Seq2[models.CardVelocity, error] {
	return func(yield func(models.CardVelocity, error) bool) {
		if cardholderID <= 0 {
			yield(models.CardVelocity{}, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "cardholder id is required"))
			return
		}
		if windowHours <= 0 || threshold <= 0 {
			yield(models.CardVelocity{}, domain.NewDomainError(domain.ErrorCodeValidationFailed, "window and threshold must be positive"))
			return
		}

		now := timeutil.Now()
		windowStart := now.Add(-time.Duration(windowHours) * time.Hour)

		cards, err := d.cardRepo.ListByCardholder(ctx, nil, cardholderID)
		if err != nil {
			yield(models.CardVelocity{}, err)
			return
		}

		for _, card := range cards {
			count, err := d.txRepo.CountByCardSince(ctx, nil, card.ID, windowStart)
			if err != nil {
				yield(models.CardVelocity{}, err)
				return
			}
			if count < threshold {
				continue
			}

			d.record(ctx, card.ID, count, windowStart, now)
			observability.RecordFraudFlag()

			if !yield(models.CardVelocity{CardID: card.ID, CardToken: card.CardToken, TransactionCount: count}, nil) {
				return
			}
		}
	}
}

// record appends a monitoring record for a flagged card. Absence of the
// sink, or a failing one, never fails the detection call.
func (d *Detector) record(ctx context.Context, cardID int64, count int, windowStart, detectedAt time.Time) {
	if d.sink == nil {
		return
	}

	alert := &models.FraudAlert{
		CardID:           cardID,
		TransactionCount: count,
		WindowStart:      windowStart,
		Reason:           "velocity threshold exceeded",
		DetectedAt:       detectedAt,
	}
	if err := d.sink.Record(ctx, alert); err != nil {
		d.logger.Warn("fraud monitoring record not written",
			ports.Int64("card_id", cardID),
			ports.Err(err))
	}
}
