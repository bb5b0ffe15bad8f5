package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cardnetsim/processing/internal/domain"
	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
)

// SettlementRepository implements ports.SettlementRepository against PostgreSQL
type SettlementRepository struct {
	db ports.DBPort
}

// NewSettlementRepository creates a new settlement repository
func NewSettlementRepository(db ports.DBPort) *SettlementRepository {
	return &SettlementRepository{db: db}
}

func (r *SettlementRepository) executor(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

const settlementColumns = `id, merchant_id, batch_id, total_amount, transaction_count, settlement_date, status, created_at`

// Create inserts a new settlement and fills in its assigned ID
func (r *SettlementRepository) Create(ctx context.Context, tx ports.DBTX, settlement *models.Settlement) error {
	total, err := decimalToNumeric(settlement.TotalAmount)
	if err != nil {
		return fmt.Errorf("convert total amount: %w", err)
	}

	err = r.executor(tx).QueryRow(ctx,
		`INSERT INTO settlements (merchant_id, batch_id, total_amount, transaction_count, settlement_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		settlement.MerchantID,
		settlement.BatchID,
		total,
		settlement.TransactionCount,
		settlement.SettlementDate,
		string(settlement.Status),
	).Scan(&settlement.ID, &settlement.CreatedAt)
	if err != nil {
		return fmt.Errorf("create settlement: %w", MapError(err))
	}
	return nil
}

// GetByID retrieves a settlement by its ID
func (r *SettlementRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*models.Settlement, error) {
	row := r.executor(db).QueryRow(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE id = $1`, id)

	settlement, err := scanSettlement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodeSettlementNotFound, "settlement not found").WithDetail("settlement_id", id)
		}
		return nil, fmt.Errorf("get settlement by id: %w", MapError(err))
	}
	return settlement, nil
}

// ListByMerchant lists a merchant's settlements, newest first
func (r *SettlementRepository) ListByMerchant(ctx context.Context, db ports.DBTX, merchantID int64, limit, offset int32) ([]*models.Settlement, error) {
	rows, err := r.executor(db).Query(ctx,
		`SELECT `+settlementColumns+`
		 FROM settlements
		 WHERE merchant_id = $1
		 ORDER BY settlement_date DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		merchantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list settlements by merchant: %w", MapError(err))
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read settlements: %w", MapError(err))
	}
	return settlements, nil
}

// ExistsForMerchantAndDate reports whether the merchant already has a
// settlement dated settlementDate
func (r *SettlementRepository) ExistsForMerchantAndDate(ctx context.Context, db ports.DBTX, merchantID int64, settlementDate time.Time) (bool, error) {
	var exists bool
	err := r.executor(db).QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM settlements WHERE merchant_id = $1 AND settlement_date = $2
		 )`, merchantID, settlementDate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check settlement existence: %w", MapError(err))
	}
	return exists, nil
}

func scanSettlement(row pgx.Row) (*models.Settlement, error) {
	var (
		settlement models.Settlement
		total      pgtype.Numeric
	)
	err := row.Scan(
		&settlement.ID,
		&settlement.MerchantID,
		&settlement.BatchID,
		&total,
		&settlement.TransactionCount,
		&settlement.SettlementDate,
		&settlement.Status,
		&settlement.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if settlement.TotalAmount, err = pgNumericToDecimal(total); err != nil {
		return nil, fmt.Errorf("convert total amount: %w", err)
	}
	return &settlement, nil
}
