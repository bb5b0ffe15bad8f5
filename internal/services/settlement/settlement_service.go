// Package settlement batches completed transactions into per-merchant
// settlements, net of the merchant's processing fee.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/cardnetsim/processing/internal/domain"
	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
	"github.com/cardnetsim/processing/pkg/observability"
	"github.com/cardnetsim/processing/pkg/timeutil"
)

const (
	minorUnitPlaces = 2

	defaultPageSize int32 = 50
	maxPageSize     int32 = 500
)

var oneHundred = decimal.NewFromInt(100)

// SettlementResult reports what one settlement run produced. A run that
// found nothing eligible returns zero totals, which is not an error.
type SettlementResult struct {
	TotalAmount      decimal.Decimal
	SettlementID     int64
	TransactionCount int32
}

// Service implements the settlement engine
type Service struct {
	db             ports.DBPort
	merchRepo      ports.MerchantRepository
	txRepo         ports.TransactionRepository
	settlementRepo ports.SettlementRepository
	logger         ports.Logger
}

// NewService creates a new settlement service
func NewService(
	db ports.DBPort,
	merchRepo ports.MerchantRepository,
	txRepo ports.TransactionRepository,
	settlementRepo ports.SettlementRepository,
	logger ports.Logger,
) *Service {
	return &Service{
		db:             db,
		merchRepo:      merchRepo,
		txRepo:         txRepo,
		settlementRepo: settlementRepo,
		logger:         logger,
	}
}

// SettleMerchant batches the merchant's completed, unclaimed transactions
// into one settlement for settlementDate, atomically. The merchant row is
// locked first, so two runs for the same merchant serialize; the eligible
// transactions are then locked FOR UPDATE, so no transaction can be summed
// into two settlements. Lock contention surfaces as ConcurrencyConflict and
// the caller retries the whole operation.
func (s *Service) SettleMerchant(ctx context.Context, merchantID int64, settlementDate time.Time) (*SettlementResult, error) {
	if merchantID <= 0 {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "merchant id is required")
	}
	settlementDate = timeutil.StartOfDay(settlementDate)

	result := &SettlementResult{TotalAmount: decimal.Zero}

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		// Per-merchant serialization point
		merchant, err := s.merchRepo.GetByIDForUpdate(ctx, tx, merchantID)
		if err != nil {
			return err
		}

		// One settlement per merchant per date; a repeated run for the
		// same date settles nothing new
		exists, err := s.settlementRepo.ExistsForMerchantAndDate(ctx, tx, merchantID, settlementDate)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		txns, err := s.txRepo.LockSettleable(ctx, tx, merchantID)
		if err != nil {
			return err
		}
		if len(txns) == 0 {
			return nil
		}

		total := decimal.Zero
		for _, txn := range txns {
			fee := txn.Amount.Mul(merchant.FeeRate).Div(oneHundred).Round(minorUnitPlaces)
			total = total.Add(txn.Amount.Sub(fee))
		}
		total = total.Round(minorUnitPlaces)

		settlement := &models.Settlement{
			MerchantID:       merchantID,
			BatchID:          uuid.New().String(),
			TotalAmount:      total,
			TransactionCount: int32(len(txns)),
			SettlementDate:   settlementDate,
			Status:           models.SettlementCompleted,
		}
		if err := s.settlementRepo.Create(ctx, tx, settlement); err != nil {
			return fmt.Errorf("create settlement: %w", err)
		}

		for _, txn := range txns {
			if err := s.txRepo.MarkSettled(ctx, tx, txn.ID, settlement.ID); err != nil {
				return fmt.Errorf("mark transaction settled: %w", err)
			}
		}

		if err := s.merchRepo.AddToSettlementAmount(ctx, tx, merchantID, total); err != nil {
			return fmt.Errorf("update merchant settlement amount: %w", err)
		}

		result.SettlementID = settlement.ID
		result.TotalAmount = total
		result.TransactionCount = settlement.TransactionCount
		return nil
	})

	if err != nil {
		outcome := "error"
		if domain.IsConflictError(err) {
			outcome = "conflict"
		}
		observability.RecordSettlement(outcome, 0)
		s.logger.Error("settlement failed",
			ports.Int64("merchant_id", merchantID),
			ports.String("settlement_date", settlementDate.Format(time.DateOnly)),
			ports.Err(err))
		return nil, err
	}

	if result.TransactionCount == 0 {
		observability.RecordSettlement("empty", 0)
		s.logger.Info("no transactions eligible for settlement",
			ports.Int64("merchant_id", merchantID),
			ports.String("settlement_date", settlementDate.Format(time.DateOnly)))
		return result, nil
	}

	observability.RecordSettlement("settled", int(result.TransactionCount))
	s.logger.Info("settlement completed",
		ports.Int64("merchant_id", merchantID),
		ports.Int64("settlement_id", result.SettlementID),
		ports.String("total_amount", result.TotalAmount.String()),
		ports.Int("transaction_count", int(result.TransactionCount)))

	return result, nil
}

// ListByMerchant lists a merchant's settlements, newest first.
func (s *Service) ListByMerchant(ctx context.Context, merchantID int64, limit, offset int32) ([]*models.Settlement, error) {
	if merchantID <= 0 {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "merchant id is required")
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.settlementRepo.ListByMerchant(ctx, nil, merchantID, limit, offset)
}
