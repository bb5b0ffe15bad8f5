// Package authorization implements per-transaction authorization decisioning.
package authorization

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
	"github.com/cardnetsim/processing/internal/services/fees"
	"github.com/cardnetsim/processing/pkg/observability"
	"github.com/cardnetsim/processing/pkg/timeutil"
)

// ResultStatus tags the outcome of an Authorize call. Callers must
// distinguish error (system failure, retryable) from declined (business
// decision, final) by this tag, never by message text.
type ResultStatus string

const (
	ResultApproved ResultStatus = "approved"
	ResultDeclined ResultStatus = "declined"
	ResultError    ResultStatus = "error"
)

// AuthorizeRequest carries the inputs for one authorization
type AuthorizeRequest struct {
	Currency        string
	ReferenceNumber string
	Amount          decimal.Decimal
	CardID          int64
	MerchantID      int64
}

// AuthorizeResult is the caller-facing outcome of an authorization
type AuthorizeResult struct {
	InterchangeFee  decimal.Decimal // zero unless approved and a tier applies
	Status          ResultStatus
	AuthCode        string
	ResponseCode    string
	ResponseMessage string
	CorrelationID   string // set only when Status is error
	TransactionID   int64  // zero when Status is error
}

// Service implements the authorization engine
type Service struct {
	db         ports.DBPort
	cardRepo   ports.CardRepository
	merchRepo  ports.MerchantRepository
	txRepo     ports.TransactionRepository
	authRepo   ports.AuthorizationRepository
	feeService *fees.Service
	logger     ports.Logger
}

// NewService creates a new authorization service
func NewService(
	db ports.DBPort,
	cardRepo ports.CardRepository,
	merchRepo ports.MerchantRepository,
	txRepo ports.TransactionRepository,
	authRepo ports.AuthorizationRepository,
	feeService *fees.Service,
	logger ports.Logger,
) *Service {
	return &Service{
		db:         db,
		cardRepo:   cardRepo,
		merchRepo:  merchRepo,
		txRepo:     txRepo,
		authRepo:   authRepo,
		feeService: feeService,
		logger:     logger,
	}
}

// Authorize validates a card against business rules and records the
// approve/decline decision. The transaction, authorization, response and
// status update are one atomic unit of work: any failure rolls the whole
// thing back and the caller sees an error result with no transaction id.
func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	// Point reads before the unit of work: a missing card or merchant is a
	// NotFound for the caller, not a decline
	card, err := s.cardRepo.GetByID(ctx, nil, req.CardID)
	if err != nil {
		return nil, err
	}
	merchant, err := s.merchRepo.GetByID(ctx, nil, req.MerchantID)
	if err != nil {
		return nil, err
	}

	decision := decide(card, timeutil.Now())

	// Quote the interchange fee for approved transactions. A missing tier
	// is a configuration gap worth surfacing in the logs, not a decline.
	interchangeFee := decimal.Zero
	if decision.result == ResultApproved {
		tier, err := s.feeService.ResolveFee(ctx, card.Type, merchant.CategoryCode, timeutil.Now())
		switch {
		case err == nil:
			interchangeFee = fees.ComputeFee(req.Amount, tier)
		case domain.IsDomainError(err, domain.ErrorCodeNoApplicableFeeTier):
			s.logger.Warn("authorizing without interchange fee quote",
				ports.String("card_type", string(card.Type)),
				ports.String("merchant_category", merchant.CategoryCode))
		default:
			return nil, err
		}
	}

	var result *AuthorizeResult

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		txn := &models.Transaction{
			CardID:          card.ID,
			MerchantID:      merchant.ID,
			AcquiringBankID: merchant.AcquiringBankID,
			IssuingBankID:   card.IssuingBankID,
			Amount:          req.Amount,
			Currency:        req.Currency,
			Status:          models.StatusInitiated,
			ReferenceNumber: req.ReferenceNumber,
		}
		if err := s.txRepo.Create(ctx, tx, txn); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		authCode := AuthCode(txn.ID)

		auth := &models.Authorization{
			TransactionID: txn.ID,
			AuthCode:      authCode,
			Status:        decision.authStatus,
			RequestPayload: models.AuthRequestPayload{
				CardID:          req.CardID,
				MerchantID:      req.MerchantID,
				Amount:          req.Amount.String(),
				Currency:        req.Currency,
				ReferenceNumber: req.ReferenceNumber,
			},
		}
		if err := s.authRepo.Create(ctx, tx, auth); err != nil {
			return fmt.Errorf("create authorization: %w", err)
		}

		resp := &models.AuthorizationResponse{
			AuthorizationID: auth.ID,
			ResponseCode:    decision.responseCode,
			ResponseMessage: decision.responseMessage,
			Payload: models.AuthResponsePayload{
				TransactionID:  txn.ID,
				Decision:       string(decision.authStatus),
				AuthCode:       authCode,
				InterchangeFee: interchangeFee.String(),
			},
		}
		if err := s.authRepo.CreateResponse(ctx, tx, resp); err != nil {
			return fmt.Errorf("create authorization response: %w", err)
		}

		if err := s.txRepo.UpdateStatus(ctx, tx, txn.ID, decision.txnStatus); err != nil {
			return fmt.Errorf("update transaction status: %w", err)
		}

		result = &AuthorizeResult{
			TransactionID:   txn.ID,
			Status:          decision.result,
			AuthCode:        authCode,
			ResponseCode:    decision.responseCode,
			ResponseMessage: decision.responseMessage,
			InterchangeFee:  interchangeFee,
		}
		return nil
	})

	if err != nil {
		// The unit of work rolled back; expose nothing but a correlation id
		correlationID := uuid.New().String()
		s.logger.Error("authorize failed",
			ports.String("correlation_id", correlationID),
			ports.Int64("card_id", req.CardID),
			ports.Int64("merchant_id", req.MerchantID),
			ports.String("reference_number", req.ReferenceNumber),
			ports.Err(err))
		observability.RecordAuthorization(string(ResultError), "")
		return &AuthorizeResult{
			Status:        ResultError,
			CorrelationID: correlationID,
		}, nil
	}

	s.logger.Info("authorize completed",
		ports.Int64("transaction_id", result.TransactionID),
		ports.String("status", string(result.Status)),
		ports.String("response_code", result.ResponseCode))
	observability.RecordAuthorization(string(result.Status), result.ResponseCode)

	return result, nil
}

// GetByReference looks up a transaction by its reference number together
// with the authorization recorded for it. Used by the operational surface
// to answer "what happened to this authorization".
func (s *Service) GetByReference(ctx context.Context, ref string) (*models.Transaction, *models.Authorization, error) {
	if ref == "" {
		return nil, nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "reference number is required")
	}

	txn, err := s.txRepo.GetByReferenceNumber(ctx, nil, ref)
	if err != nil {
		return nil, nil, err
	}
	auth, err := s.authRepo.GetByTransactionID(ctx, nil, txn.ID)
	if err != nil {
		return nil, nil, err
	}
	return txn, auth, nil
}

// decision holds the precomputed outcome of the business rules
type decision struct {
	result          ResultStatus
	authStatus      models.AuthorizationStatus
	txnStatus       models.TransactionStatus
	responseCode    string
	responseMessage string
}

// decide applies the decline rules in priority order: an inactive card
// declines before an expired one, first match wins
func decide(card *models.Card, now time.Time) decision {
	switch {
	case !card.IsActive:
		return decision{
			result:          ResultDeclined,
			authStatus:      models.AuthStatusDeclined,
			txnStatus:       models.StatusDeclined,
			responseCode:    models.ResponseCodeInvalidCard,
			responseMessage: "Invalid card",
		}
	case card.IsExpired(now):
		return decision{
			result:          ResultDeclined,
			authStatus:      models.AuthStatusDeclined,
			txnStatus:       models.StatusDeclined,
			responseCode:    models.ResponseCodeExpiredCard,
			responseMessage: "Expired card",
		}
	default:
		return decision{
			result:          ResultApproved,
			authStatus:      models.AuthStatusApproved,
			txnStatus:       models.StatusAuthorized,
			responseCode:    models.ResponseCodeApproved,
			responseMessage: "Approved",
		}
	}
}

func validateRequest(req AuthorizeRequest) error {
	if req.CardID <= 0 {
		return domain.NewDomainError(domain.ErrorCodeValidationMissingField, "card id is required")
	}
	if req.MerchantID <= 0 {
		return domain.NewDomainError(domain.ErrorCodeValidationMissingField, "merchant id is required")
	}
	if req.ReferenceNumber == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationMissingField, "reference number is required")
	}
	if req.Currency == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationMissingField, "currency is required")
	}
	if !req.Amount.IsPositive() {
		return domain.NewDomainError(domain.ErrorCodeValidationAmountInvalid, "amount must be greater than zero")
	}
	return nil
}
