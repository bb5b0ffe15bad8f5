package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
)

// FeeRepository implements ports.FeeRepository against PostgreSQL
type FeeRepository struct {
	db ports.DBPort
}

// NewFeeRepository creates a new fee repository
func NewFeeRepository(db ports.DBPort) *FeeRepository {
	return &FeeRepository{db: db}
}

func (r *FeeRepository) executor(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

const feeTierColumns = `id, exchange_id, card_type, merchant_category, percentage_fee, fixed_fee, effective_from, effective_to`

// FindCurrentTier returns the tier covering asOf with the latest
// effective_from, or nil when no tier matches
func (r *FeeRepository) FindCurrentTier(ctx context.Context, db ports.DBTX, cardType models.CardType, merchantCategory string, asOf time.Time) (*models.FeeTier, error) {
	row := r.executor(db).QueryRow(ctx,
		`SELECT `+feeTierColumns+`
		 FROM interchange_fees
		 WHERE card_type = $1 AND merchant_category = $2
		   AND effective_from <= $3 AND effective_to > $3
		 ORDER BY effective_from DESC
		 LIMIT 1`,
		string(cardType), merchantCategory, asOf)

	tier, err := scanFeeTier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find current fee tier: %w", MapError(err))
	}
	return tier, nil
}

// ListTiers lists all tiers for an exchange
func (r *FeeRepository) ListTiers(ctx context.Context, db ports.DBTX, exchangeID int64) ([]*models.FeeTier, error) {
	rows, err := r.executor(db).Query(ctx,
		`SELECT `+feeTierColumns+`
		 FROM interchange_fees
		 WHERE exchange_id = $1
		 ORDER BY card_type, merchant_category, effective_from`, exchangeID)
	if err != nil {
		return nil, fmt.Errorf("list fee tiers: %w", MapError(err))
	}
	defer rows.Close()

	var tiers []*models.FeeTier
	for rows.Next() {
		tier, err := scanFeeTier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fee tier: %w", err)
		}
		tiers = append(tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read fee tiers: %w", MapError(err))
	}
	return tiers, nil
}

func scanFeeTier(row pgx.Row) (*models.FeeTier, error) {
	var (
		tier       models.FeeTier
		percentage pgtype.Numeric
		fixed      pgtype.Numeric
	)
	err := row.Scan(
		&tier.ID,
		&tier.ExchangeID,
		&tier.CardType,
		&tier.MerchantCategory,
		&percentage,
		&fixed,
		&tier.EffectiveFrom,
		&tier.EffectiveTo,
	)
	if err != nil {
		return nil, err
	}

	if tier.PercentageFee, err = pgNumericToDecimal(percentage); err != nil {
		return nil, fmt.Errorf("convert percentage fee: %w", err)
	}
	if tier.FixedFee, err = pgNumericToDecimal(fixed); err != nil {
		return nil, fmt.Errorf("convert fixed fee: %w", err)
	}
	return &tier, nil
}
