package ports

import (
	"context"
	"time"

	"github.com/cardnetsim/processing/internal/domain/models"
)

// ReportingRepository defines the read-side aggregation queries
type ReportingRepository interface {
	// SummarizeByPeriod groups transaction volume into the calendar bucket
	// implied by grouping, ordered by period ascending
	SummarizeByPeriod(ctx context.Context, db DBTX, start, end time.Time, grouping models.Grouping) ([]models.PeriodSummary, error)
}

// FraudSink appends fraud-monitoring records for flagged cards. The sink is
// best-effort: it may be absent, and failures must not fail detection.
type FraudSink interface {
	Record(ctx context.Context, alert *models.FraudAlert) error
}
