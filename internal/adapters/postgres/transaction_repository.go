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

// TransactionRepository implements ports.TransactionRepository against PostgreSQL
type TransactionRepository struct {
	db ports.DBPort
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db ports.DBPort) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) executor(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

const transactionColumns = `id, card_id, merchant_id, acquiring_bank_id, issuing_bank_id,
	amount, currency, status, reference_number, settlement_id, created_at, updated_at`

// Create inserts a new transaction and fills in its assigned ID
func (r *TransactionRepository) Create(ctx context.Context, tx ports.DBTX, transaction *models.Transaction) error {
	amount, err := decimalToNumeric(transaction.Amount)
	if err != nil {
		return fmt.Errorf("convert amount: %w", err)
	}

	err = r.executor(tx).QueryRow(ctx,
		`INSERT INTO transactions
			(card_id, merchant_id, acquiring_bank_id, issuing_bank_id, amount, currency, status, reference_number)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		transaction.CardID,
		transaction.MerchantID,
		transaction.AcquiringBankID,
		transaction.IssuingBankID,
		amount,
		transaction.Currency,
		string(transaction.Status),
		transaction.ReferenceNumber,
	).Scan(&transaction.ID, &transaction.CreatedAt, &transaction.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", MapError(err))
	}
	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*models.Transaction, error) {
	row := r.executor(db).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodeTxnNotFound, "transaction not found").WithDetail("transaction_id", id)
		}
		return nil, fmt.Errorf("get transaction by id: %w", MapError(err))
	}
	return txn, nil
}

// GetByReferenceNumber retrieves a transaction by its unique reference number
func (r *TransactionRepository) GetByReferenceNumber(ctx context.Context, db ports.DBTX, ref string) (*models.Transaction, error) {
	row := r.executor(db).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference_number = $1`, ref)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodeTxnNotFound, "transaction not found").WithDetail("reference_number", ref)
		}
		return nil, fmt.Errorf("get transaction by reference: %w", MapError(err))
	}
	return txn, nil
}

// UpdateStatus advances the lifecycle status of a transaction. Status only
// moves forward, so the update is guarded by the set of statuses allowed
// to precede the requested one.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx ports.DBTX, id int64, status models.TransactionStatus) error {
	prior := models.PriorStatuses(status)
	if len(prior) == 0 {
		return domain.NewDomainError(domain.ErrorCodeTxnInvalidState, "no status may transition here").
			WithDetail("requested_status", string(status))
	}
	allowed := make([]string, len(prior))
	for i, s := range prior {
		allowed[i] = string(s)
	}

	tag, err := r.executor(tx).Exec(ctx,
		`UPDATE transactions SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = ANY($3)`,
		id, string(status), allowed)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", MapError(err))
	}
	if tag.RowsAffected() == 0 {
		var current string
		err := r.executor(tx).QueryRow(ctx,
			`SELECT status FROM transactions WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewDomainError(domain.ErrorCodeTxnNotFound, "transaction not found").WithDetail("transaction_id", id)
		}
		if err != nil {
			return fmt.Errorf("update transaction status: %w", MapError(err))
		}
		return domain.NewDomainError(domain.ErrorCodeTxnInvalidState, "status cannot move backwards").
			WithDetail("transaction_id", id).
			WithDetail("current_status", current).
			WithDetail("requested_status", string(status))
	}
	return nil
}

// LockSettleable selects the merchant's completed transactions not yet
// claimed by any settlement, locking the rows so concurrent settlement runs
// cannot claim the same transaction twice
func (r *TransactionRepository) LockSettleable(ctx context.Context, tx ports.DBTX, merchantID int64) ([]*models.Transaction, error) {
	rows, err := r.executor(tx).Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE merchant_id = $1 AND status = $2 AND settlement_id IS NULL
		 ORDER BY id
		 FOR UPDATE`,
		merchantID, string(models.StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("lock settleable transactions: %w", MapError(err))
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// MarkSettled sets status to settled and links the transaction to its settlement
func (r *TransactionRepository) MarkSettled(ctx context.Context, tx ports.DBTX, id, settlementID int64) error {
	tag, err := r.executor(tx).Exec(ctx,
		`UPDATE transactions SET status = $2, settlement_id = $3, updated_at = now()
		 WHERE id = $1 AND settlement_id IS NULL`,
		id, string(models.StatusSettled), settlementID)
	if err != nil {
		return fmt.Errorf("mark transaction settled: %w", MapError(err))
	}
	if tag.RowsAffected() == 0 {
		// row vanished or was claimed despite the lock
		return domain.NewDomainError(domain.ErrorCodeConcurrencyConflict, "transaction already claimed by another settlement").
			WithDetail("transaction_id", id)
	}
	return nil
}

// CountByCardSince counts a card's transactions created at or after the given instant
func (r *TransactionRepository) CountByCardSince(ctx context.Context, db ports.DBTX, cardID int64, since time.Time) (int, error) {
	var count int
	err := r.executor(db).QueryRow(ctx,
		`SELECT count(*) FROM transactions WHERE card_id = $1 AND created_at >= $2`,
		cardID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions by card: %w", MapError(err))
	}
	return count, nil
}

// ListByMerchant lists transactions for a merchant with pagination
func (r *TransactionRepository) ListByMerchant(ctx context.Context, db ports.DBTX, merchantID int64, limit, offset int32) ([]*models.Transaction, error) {
	rows, err := r.executor(db).Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE merchant_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		merchantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions by merchant: %w", MapError(err))
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read transactions: %w", MapError(err))
	}
	return txns, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		txn    models.Transaction
		amount pgtype.Numeric
	)
	err := row.Scan(
		&txn.ID,
		&txn.CardID,
		&txn.MerchantID,
		&txn.AcquiringBankID,
		&txn.IssuingBankID,
		&amount,
		&txn.Currency,
		&txn.Status,
		&txn.ReferenceNumber,
		&txn.SettlementID,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if txn.Amount, err = pgNumericToDecimal(amount); err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	return &txn, nil
}
