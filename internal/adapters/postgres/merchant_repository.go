package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/cardnetsim/processing/internal/domain"
	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
)

// MerchantRepository implements ports.MerchantRepository against PostgreSQL
type MerchantRepository struct {
	db ports.DBPort
}

// NewMerchantRepository creates a new merchant repository
func NewMerchantRepository(db ports.DBPort) *MerchantRepository {
	return &MerchantRepository{db: db}
}

func (r *MerchantRepository) executor(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

const merchantColumns = `id, name, category_code, fee_rate, terminal_id, settlement_amount, acquiring_bank_id, created_at, updated_at`

// GetByID retrieves a merchant by its ID
func (r *MerchantRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*models.Merchant, error) {
	row := r.executor(db).QueryRow(ctx,
		`SELECT `+merchantColumns+` FROM merchants WHERE id = $1`, id)
	return r.scanMerchant(row, id)
}

// GetByIDForUpdate retrieves a merchant row locked FOR UPDATE. Two
// settlement runs for the same merchant block here, so the read of
// settleable transactions that follows is serialized.
func (r *MerchantRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id int64) (*models.Merchant, error) {
	row := r.executor(tx).QueryRow(ctx,
		`SELECT `+merchantColumns+` FROM merchants WHERE id = $1 FOR UPDATE`, id)
	return r.scanMerchant(row, id)
}

// AddToSettlementAmount increments the merchant's cumulative settled amount
func (r *MerchantRepository) AddToSettlementAmount(ctx context.Context, tx ports.DBTX, id int64, amount decimal.Decimal) error {
	numeric, err := decimalToNumeric(amount)
	if err != nil {
		return fmt.Errorf("convert settlement amount: %w", err)
	}

	tag, err := r.executor(tx).Exec(ctx,
		`UPDATE merchants SET settlement_amount = settlement_amount + $2, updated_at = now()
		 WHERE id = $1`, id, numeric)
	if err != nil {
		return fmt.Errorf("add to settlement amount: %w", MapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrorCodeMerchantNotFound, "merchant not found").WithDetail("merchant_id", id)
	}
	return nil
}

func (r *MerchantRepository) scanMerchant(row pgx.Row, id int64) (*models.Merchant, error) {
	var (
		m       models.Merchant
		feeRate pgtype.Numeric
		settled pgtype.Numeric
	)
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.CategoryCode,
		&feeRate,
		&m.TerminalID,
		&settled,
		&m.AcquiringBankID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodeMerchantNotFound, "merchant not found").WithDetail("merchant_id", id)
		}
		return nil, fmt.Errorf("get merchant: %w", MapError(err))
	}

	if m.FeeRate, err = pgNumericToDecimal(feeRate); err != nil {
		return nil, fmt.Errorf("convert fee rate: %w", err)
	}
	if m.SettlementAmount, err = pgNumericToDecimal(settled); err != nil {
		return nil, fmt.Errorf("convert settlement amount: %w", err)
	}
	return &m, nil
}

// BankRepository implements ports.BankRepository
type BankRepository struct {
	db ports.DBPort
}

// NewBankRepository creates a new bank repository
func NewBankRepository(db ports.DBPort) *BankRepository {
	return &BankRepository{db: db}
}

// GetByID retrieves a bank by its ID
func (r *BankRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*models.Bank, error) {
	executor := db
	if executor == nil {
		executor = r.db.GetDB()
	}

	var b models.Bank
	err := executor.QueryRow(ctx,
		`SELECT id, name, role, settlement_account, is_active, created_at
		 FROM banks WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &b.Role, &b.SettlementAccount, &b.IsActive, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodeBankNotFound, "bank not found").WithDetail("bank_id", id)
		}
		return nil, fmt.Errorf("get bank by id: %w", MapError(err))
	}
	return &b, nil
}
