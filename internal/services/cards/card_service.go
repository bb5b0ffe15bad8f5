// Package cards manages card lifecycle state.
package cards

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cardnetsim/processing/internal/domain"
	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
	"github.com/cardnetsim/processing/pkg/timeutil"
)

// Service implements card lifecycle operations and the card-side
// directory lookups (cardholders and issuing banks)
type Service struct {
	db             ports.DBPort
	cardRepo       ports.CardRepository
	cardholderRepo ports.CardholderRepository
	bankRepo       ports.BankRepository
	statusLog      ports.CardStatusLog
	logger         ports.Logger
}

// NewService creates a new card service
func NewService(
	db ports.DBPort,
	cardRepo ports.CardRepository,
	cardholderRepo ports.CardholderRepository,
	bankRepo ports.BankRepository,
	statusLog ports.CardStatusLog,
	logger ports.Logger,
) *Service {
	return &Service{
		db:             db,
		cardRepo:       cardRepo,
		cardholderRepo: cardholderRepo,
		bankRepo:       bankRepo,
		statusLog:      statusLog,
		logger:         logger,
	}
}

// SetActive flips the card's active flag. Every transition is written to
// the append-only status log in the same unit of work as the flag update.
func (s *Service) SetActive(ctx context.Context, cardID int64, active bool) error {
	if cardID <= 0 {
		return domain.NewDomainError(domain.ErrorCodeValidationMissingField, "card id is required")
	}

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		wasActive, err := s.cardRepo.SetActive(ctx, tx, cardID, active)
		if err != nil {
			return err
		}
		if wasActive == active {
			return nil // no transition, nothing to audit
		}

		change := &models.CardStatusChange{
			CardID:    cardID,
			OldActive: wasActive,
			NewActive: active,
			ChangedAt: timeutil.Now(),
		}
		if err := s.statusLog.Append(ctx, tx, change); err != nil {
			return fmt.Errorf("audit card status change: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("card active flag updated",
		ports.Int64("card_id", cardID),
		ports.String("active", fmt.Sprintf("%t", active)))
	return nil
}

// Get retrieves a card together with its issuing bank
func (s *Service) Get(ctx context.Context, cardID int64) (*models.Card, *models.Bank, error) {
	card, err := s.cardRepo.GetByID(ctx, nil, cardID)
	if err != nil {
		return nil, nil, err
	}
	bank, err := s.bankRepo.GetByID(ctx, nil, card.IssuingBankID)
	if err != nil {
		return nil, nil, err
	}
	return card, bank, nil
}

// GetCardholder retrieves a cardholder and the cards they own
func (s *Service) GetCardholder(ctx context.Context, cardholderID int64) (*models.Cardholder, []*models.Card, error) {
	if cardholderID <= 0 {
		return nil, nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "cardholder id is required")
	}

	holder, err := s.cardholderRepo.GetByID(ctx, nil, cardholderID)
	if err != nil {
		return nil, nil, err
	}
	cards, err := s.cardRepo.ListByCardholder(ctx, nil, cardholderID)
	if err != nil {
		return nil, nil, err
	}
	return holder, cards, nil
}
