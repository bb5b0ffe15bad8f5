package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cardnetsim/processing/internal/domain"
	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
)

// ReportingRepository implements ports.ReportingRepository. Aggregation is
// pushed down to the store; date_trunc defines the calendar buckets.
type ReportingRepository struct {
	db ports.DBPort
}

// NewReportingRepository creates a new reporting repository
func NewReportingRepository(db ports.DBPort) *ReportingRepository {
	return &ReportingRepository{db: db}
}

var truncByGrouping = map[models.Grouping]string{
	models.GroupingDaily:   "day",
	models.GroupingWeekly:  "week",
	models.GroupingMonthly: "month",
}

// SummarizeByPeriod groups transaction volume into the calendar bucket
// implied by grouping, ordered by period ascending
func (r *ReportingRepository) SummarizeByPeriod(ctx context.Context, db ports.DBTX, start, end time.Time, grouping models.Grouping) ([]models.PeriodSummary, error) {
	trunc, ok := truncByGrouping[grouping]
	if !ok {
		return nil, domain.ErrInvalidGrouping
	}

	executor := db
	if executor == nil {
		executor = r.db.GetDB()
	}

	// trunc comes from the map above, never from the caller
	query := fmt.Sprintf(`
		SELECT
			date_trunc('%s', created_at AT TIME ZONE 'UTC') AS period,
			count(*) AS txn_count,
			coalesce(sum(amount), 0) AS total_amount,
			coalesce(avg(amount), 0) AS avg_amount,
			count(*) FILTER (WHERE status IN ('authorized', 'completed', 'settled')) AS success_count,
			count(*) FILTER (WHERE status = 'declined') AS declined_count
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY period
		ORDER BY period ASC`, trunc)

	rows, err := executor.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("summarize by period: %w", MapError(err))
	}
	defer rows.Close()

	var summaries []models.PeriodSummary
	for rows.Next() {
		var (
			s     models.PeriodSummary
			total pgtype.Numeric
			avg   pgtype.Numeric
		)
		if err := rows.Scan(&s.Period, &s.Count, &total, &avg, &s.SuccessCount, &s.DeclinedCount); err != nil {
			return nil, fmt.Errorf("scan period summary: %w", err)
		}
		if s.TotalAmount, err = pgNumericToDecimal(total); err != nil {
			return nil, fmt.Errorf("convert total amount: %w", err)
		}
		if s.AvgAmount, err = pgNumericToDecimal(avg); err != nil {
			return nil, fmt.Errorf("convert avg amount: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read period summaries: %w", MapError(err))
	}
	return summaries, nil
}
