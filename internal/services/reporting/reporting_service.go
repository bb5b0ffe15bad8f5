// Package reporting produces grouped transaction volume summaries.
package reporting

import (
	"context"
	"time"

	"github.com/cardnetsim/processing/internal/domain"
	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
)

// Service implements the reporting aggregator
type Service struct {
	db         ports.DBPort
	reportRepo ports.ReportingRepository
	logger     ports.Logger
}

// NewService creates a new reporting service
func NewService(db ports.DBPort, reportRepo ports.ReportingRepository, logger ports.Logger) *Service {
	return &Service{
		db:         db,
		reportRepo: reportRepo,
		logger:     logger,
	}
}

// Summarize groups transaction volume and success rate between start and
// end (exclusive) by the calendar bucket implied by grouping, ordered by
// period ascending. An unknown grouping fails before touching the store.
func (s *Service) Summarize(ctx context.Context, start, end time.Time, grouping models.Grouping) ([]models.PeriodSummary, error) {
	if !grouping.Valid() {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationInvalidGrouping, "grouping must be daily, weekly or monthly").
			WithDetail("grouping", string(grouping))
	}
	if !end.After(start) {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "end date must be after start date")
	}

	summaries, err := s.reportRepo.SummarizeByPeriod(ctx, nil, start.UTC(), end.UTC(), grouping)
	if err != nil {
		return nil, err
	}

	// Success rate is computed here so the store query stays a plain rollup
	for i := range summaries {
		summaries[i].SuccessRatePct = successRatePct(summaries[i].SuccessCount, summaries[i].Count)
	}

	s.logger.Debug("summary produced",
		ports.String("grouping", string(grouping)),
		ports.Int("periods", len(summaries)))

	return summaries, nil
}
