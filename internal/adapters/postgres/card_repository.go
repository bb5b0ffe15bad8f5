package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cardnetsim/processing/internal/domain"
	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
)

// CardRepository implements ports.CardRepository against PostgreSQL
type CardRepository struct {
	db ports.DBPort
}

// NewCardRepository creates a new card repository
func NewCardRepository(db ports.DBPort) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) executor(db ports.DBTX) ports.DBTX {
	if db != nil {
		return db
	}
	return r.db.GetDB()
}

const cardColumns = `id, cardholder_id, issuing_bank_id, card_token, card_type, expiry_date, is_active, created_at, updated_at`

// GetByID retrieves a card by its ID
func (r *CardRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*models.Card, error) {
	row := r.executor(db).QueryRow(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)

	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodeCardNotFound, "card not found").WithDetail("card_id", id)
		}
		return nil, fmt.Errorf("get card by id: %w", MapError(err))
	}
	return card, nil
}

// ListByCardholder lists all cards owned by a cardholder
func (r *CardRepository) ListByCardholder(ctx context.Context, db ports.DBTX, cardholderID int64) ([]*models.Card, error) {
	rows, err := r.executor(db).Query(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE cardholder_id = $1 ORDER BY id`, cardholderID)
	if err != nil {
		return nil, fmt.Errorf("list cards by cardholder: %w", MapError(err))
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cards by cardholder: %w", MapError(err))
	}
	return cards, nil
}

// SetActive updates the card's active flag and returns the previous value
func (r *CardRepository) SetActive(ctx context.Context, tx ports.DBTX, id int64, active bool) (bool, error) {
	var wasActive bool
	err := r.executor(tx).QueryRow(ctx,
		`UPDATE cards c SET is_active = $2, updated_at = now()
		 FROM (SELECT is_active FROM cards WHERE id = $1 FOR UPDATE) prev
		 WHERE c.id = $1
		 RETURNING prev.is_active`, id, active).Scan(&wasActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.NewDomainError(domain.ErrorCodeCardNotFound, "card not found").WithDetail("card_id", id)
		}
		return false, fmt.Errorf("set card active: %w", MapError(err))
	}
	return wasActive, nil
}

func scanCard(row pgx.Row) (*models.Card, error) {
	var card models.Card
	err := row.Scan(
		&card.ID,
		&card.CardholderID,
		&card.IssuingBankID,
		&card.CardToken,
		&card.Type,
		&card.ExpiryDate,
		&card.IsActive,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// CardholderRepository implements ports.CardholderRepository
type CardholderRepository struct {
	db ports.DBPort
}

// NewCardholderRepository creates a new cardholder repository
func NewCardholderRepository(db ports.DBPort) *CardholderRepository {
	return &CardholderRepository{db: db}
}

// GetByID retrieves a cardholder by its ID
func (r *CardholderRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*models.Cardholder, error) {
	executor := db
	if executor == nil {
		executor = r.db.GetDB()
	}

	var ch models.Cardholder
	err := executor.QueryRow(ctx,
		`SELECT id, first_name, last_name, email, phone, created_at
		 FROM cardholders WHERE id = $1`, id).
		Scan(&ch.ID, &ch.FirstName, &ch.LastName, &ch.Email, &ch.Phone, &ch.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodeCardholderNotFound, "cardholder not found").WithDetail("cardholder_id", id)
		}
		return nil, fmt.Errorf("get cardholder by id: %w", MapError(err))
	}
	return &ch, nil
}
