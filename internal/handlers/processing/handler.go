// Package processing exposes the processing core over a thin HTTP surface.
// Handlers only decode requests, call a service and encode the result.
package processing

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/cardnetsim/processing/internal/domain"
	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
	"github.com/cardnetsim/processing/internal/services/authorization"
	"github.com/cardnetsim/processing/internal/services/cards"
	"github.com/cardnetsim/processing/internal/services/fees"
	"github.com/cardnetsim/processing/internal/services/fraud"
	"github.com/cardnetsim/processing/internal/services/reporting"
	"github.com/cardnetsim/processing/internal/services/settlement"
	"github.com/cardnetsim/processing/pkg/timeutil"
)

// FraudDefaults are the velocity-scan parameters applied when a
// fraud-check request does not override them
type FraudDefaults struct {
	WindowHours int
	Threshold   int
}

// Handler wires the processing services to HTTP routes
type Handler struct {
	authService       *authorization.Service
	settlementService *settlement.Service
	fraudDetector     *fraud.Detector
	reportingService  *reporting.Service
	cardService       *cards.Service
	feeService        *fees.Service
	fraudDefaults     FraudDefaults
	logger            ports.Logger
}

// NewHandler creates a new processing handler
func NewHandler(
	authService *authorization.Service,
	settlementService *settlement.Service,
	fraudDetector *fraud.Detector,
	reportingService *reporting.Service,
	cardService *cards.Service,
	feeService *fees.Service,
	fraudDefaults FraudDefaults,
	logger ports.Logger,
) *Handler {
	return &Handler{
		authService:       authService,
		settlementService: settlementService,
		fraudDetector:     fraudDetector,
		reportingService:  reportingService,
		cardService:       cardService,
		feeService:        feeService,
		fraudDefaults:     fraudDefaults,
		logger:            logger,
	}
}

// Routes mounts all processing routes on a chi router
func (h *Handler) Routes(r chi.Router) {
	r.Post("/authorize", h.Authorize)
	r.Get("/transactions/{reference}", h.TransactionByReference)
	r.Post("/merchants/{merchantID}/settlements", h.SettleMerchant)
	r.Get("/merchants/{merchantID}/settlements", h.ListSettlements)
	r.Get("/cardholders/{cardholderID}/fraud-check", h.FraudCheck)
	r.Get("/cardholders/{cardholderID}", h.CardholderByID)
	r.Get("/reports/summary", h.Summary)
	r.Get("/fees/quote", h.FeeQuote)
	r.Get("/fees/tiers", h.FeeTiers)
	r.Get("/cards/{cardID}", h.CardByID)
	r.Put("/cards/{cardID}/active", h.SetCardActive)
}

type authorizeRequest struct {
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	ReferenceNumber string `json:"reference_number"`
	CardID          int64  `json:"card_id"`
	MerchantID      int64  `json:"merchant_id"`
}

type authorizeResponse struct {
	Status          string `json:"status"`
	AuthCode        string `json:"auth_code,omitempty"`
	InterchangeFee  string `json:"interchange_fee,omitempty"`
	ResponseCode    string `json:"response_code,omitempty"`
	ResponseMessage string `json:"response_message,omitempty"`
	CorrelationID   string `json:"correlation_id,omitempty"`
	TransactionID   int64  `json:"transaction_id,omitempty"`
}

// Authorize handles POST /authorize
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationFailed, "invalid request body"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationAmountInvalid, "amount is not a valid decimal"))
		return
	}

	result, err := h.authService.Authorize(r.Context(), authorization.AuthorizeRequest{
		CardID:          req.CardID,
		MerchantID:      req.MerchantID,
		Amount:          amount,
		Currency:        req.Currency,
		ReferenceNumber: req.ReferenceNumber,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := authorizeResponse{
		Status:          string(result.Status),
		AuthCode:        result.AuthCode,
		ResponseCode:    result.ResponseCode,
		ResponseMessage: result.ResponseMessage,
		CorrelationID:   result.CorrelationID,
		TransactionID:   result.TransactionID,
	}
	if result.Status == authorization.ResultApproved && result.InterchangeFee.IsPositive() {
		resp.InterchangeFee = result.InterchangeFee.StringFixed(2)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type transactionResponse struct {
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	ReferenceNumber string `json:"reference_number"`
	Status          string `json:"status"`
	AuthCode        string `json:"auth_code"`
	AuthStatus      string `json:"auth_status"`
	TransactionID   int64  `json:"transaction_id"`
	CardID          int64  `json:"card_id"`
	MerchantID      int64  `json:"merchant_id"`
	SettlementID    *int64 `json:"settlement_id,omitempty"`
}

// TransactionByReference handles GET /transactions/{reference}
func (h *Handler) TransactionByReference(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "reference")

	txn, auth, err := h.authService.GetByReference(r.Context(), ref)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, transactionResponse{
		TransactionID:   txn.ID,
		CardID:          txn.CardID,
		MerchantID:      txn.MerchantID,
		Amount:          txn.Amount.StringFixed(2),
		Currency:        txn.Currency,
		ReferenceNumber: txn.ReferenceNumber,
		Status:          string(txn.Status),
		SettlementID:    txn.SettlementID,
		AuthCode:        auth.AuthCode,
		AuthStatus:      string(auth.Status),
	})
}

type settleRequest struct {
	SettlementDate string `json:"settlement_date"` // YYYY-MM-DD
}

type settleResponse struct {
	TotalAmount      string `json:"total_amount"`
	SettlementID     int64  `json:"settlement_id,omitempty"`
	TransactionCount int32  `json:"transaction_count"`
}

// SettleMerchant handles POST /merchants/{merchantID}/settlements
func (h *Handler) SettleMerchant(w http.ResponseWriter, r *http.Request) {
	merchantID, err := strconv.ParseInt(chi.URLParam(r, "merchantID"), 10, 64)
	if err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationFailed, "invalid merchant id"))
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationFailed, "invalid request body"))
		return
	}
	settlementDate, err := time.Parse(time.DateOnly, req.SettlementDate)
	if err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationFailed, "settlement_date must be YYYY-MM-DD"))
		return
	}

	result, err := h.settlementService.SettleMerchant(r.Context(), merchantID, settlementDate)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, settleResponse{
		TotalAmount:      result.TotalAmount.StringFixed(2),
		SettlementID:     result.SettlementID,
		TransactionCount: result.TransactionCount,
	})
}

type settlementRow struct {
	BatchID          string `json:"batch_id"`
	SettlementDate   string `json:"settlement_date"`
	TotalAmount      string `json:"total_amount"`
	Status           string `json:"status"`
	SettlementID     int64  `json:"settlement_id"`
	TransactionCount int32  `json:"transaction_count"`
}

// ListSettlements handles GET /merchants/{merchantID}/settlements
func (h *Handler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	merchantID, err := strconv.ParseInt(chi.URLParam(r, "merchantID"), 10, 64)
	if err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationFailed, "invalid merchant id"))
		return
	}

	limit := int32(queryInt(r, "limit", 50))
	offset := int32(queryInt(r, "offset", 0))

	settlements, err := h.settlementService.ListByMerchant(r.Context(), merchantID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	rows := make([]settlementRow, len(settlements))
	for i, s := range settlements {
		rows[i] = settlementRow{
			SettlementID:     s.ID,
			BatchID:          s.BatchID,
			SettlementDate:   s.SettlementDate.Format(time.DateOnly),
			TotalAmount:      s.TotalAmount.StringFixed(2),
			TransactionCount: s.TransactionCount,
			Status:           string(s.Status),
		}
	}

	h.writeJSON(w, http.StatusOK, rows)
}

type fraudHit struct {
	CardToken        string `json:"card_token"`
	CardID           int64  `json:"card_id"`
	TransactionCount int    `json:"transaction_count"`
}

// FraudCheck handles GET /cardholders/{cardholderID}/fraud-check
func (h *Handler) FraudCheck(w http.ResponseWriter, r *http.Request) {
	cardholderID, err := strconv.ParseInt(chi.URLParam(r, "cardholderID"), 10, 64)
	if err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationFailed, "invalid cardholder id"))
		return
	}

	windowHours := queryInt(r, "window_hours", h.fraudDefaults.WindowHours)
	threshold := queryInt(r, "threshold", h.fraudDefaults.Threshold)

	hits := make([]fraudHit, 0)
	for velocity, err := range h.fraudDetector.DetectSuspiciousCards(r.Context(), cardholderID, windowHours, threshold) {
		if err != nil {
			h.writeError(w, err)
			return
		}
		hits = append(hits, fraudHit{
			CardID:           velocity.CardID,
			CardToken:        velocity.CardToken,
			TransactionCount: velocity.TransactionCount,
		})
	}

	h.writeJSON(w, http.StatusOK, hits)
}

type summaryRow struct {
	Period         string `json:"period"`
	TotalAmount    string `json:"total_amount"`
	AvgAmount      string `json:"avg_amount"`
	SuccessRatePct string `json:"success_rate_pct"`
	Count          int64  `json:"count"`
	SuccessCount   int64  `json:"success_count"`
	DeclinedCount  int64  `json:"declined_count"`
}

// Summary handles GET /reports/summary?start=...&end=...&grouping=daily.
// Both bounds are whole days and end is inclusive; start defaults to the
// beginning of the current bucket, end to today.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	grouping := models.Grouping(q.Get("grouping"))
	now := timeutil.Now()

	start := timeutil.StartOfDay(now)
	switch grouping {
	case models.GroupingWeekly:
		start = timeutil.StartOfISOWeek(now)
	case models.GroupingMonthly:
		start = timeutil.StartOfMonth(now)
	}
	if v := q.Get("start"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationFailed, "start must be YYYY-MM-DD"))
			return
		}
		start = parsed
	}

	end := timeutil.EndOfDay(now)
	if v := q.Get("end"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationFailed, "end must be YYYY-MM-DD"))
			return
		}
		end = timeutil.EndOfDay(parsed)
	}

	summaries, err := h.reportingService.Summarize(r.Context(), start, end, grouping)
	if err != nil {
		h.writeError(w, err)
		return
	}

	rows := make([]summaryRow, len(summaries))
	for i, s := range summaries {
		rows[i] = summaryRow{
			Period:         s.Period.Format(time.DateOnly),
			Count:          s.Count,
			TotalAmount:    s.TotalAmount.StringFixed(2),
			AvgAmount:      s.AvgAmount.StringFixed(2),
			SuccessCount:   s.SuccessCount,
			DeclinedCount:  s.DeclinedCount,
			SuccessRatePct: s.SuccessRatePct.StringFixed(2),
		}
	}

	h.writeJSON(w, http.StatusOK, rows)
}

type feeQuoteResponse struct {
	CardType         string `json:"card_type"`
	MerchantCategory string `json:"merchant_category"`
	PercentageFee    string `json:"percentage_fee"`
	FixedFee         string `json:"fixed_fee"`
	Fee              string `json:"fee,omitempty"`
}

// FeeQuote handles GET /fees/quote?card_type=...&merchant_category=...&amount=...&as_of=...
func (h *Handler) FeeQuote(w http.ResponseWriter, r *http.Request) {
	cardType := models.CardType(r.URL.Query().Get("card_type"))
	category := r.URL.Query().Get("merchant_category")

	asOf := time.Now().UTC()
	if v := r.URL.Query().Get("as_of"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationFailed, "as_of must be YYYY-MM-DD"))
			return
		}
		asOf = parsed
	}

	tier, err := h.feeService.ResolveFee(r.Context(), cardType, category, asOf)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := feeQuoteResponse{
		CardType:         string(tier.CardType),
		MerchantCategory: tier.MerchantCategory,
		PercentageFee:    tier.PercentageFee.String(),
		FixedFee:         tier.FixedFee.StringFixed(2),
	}
	if v := r.URL.Query().Get("amount"); v != "" {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationAmountInvalid, "amount is not a valid decimal"))
			return
		}
		resp.Fee = fees.ComputeFee(amount, tier).StringFixed(2)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetCardActive handles PUT /cards/{cardID}/active
func (h *Handler) SetCardActive(w http.ResponseWriter, r *http.Request) {
	cardID, err := strconv.ParseInt(chi.URLParam(r, "cardID"), 10, 64)
	if err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationFailed, "invalid card id"))
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationFailed, "invalid request body"))
		return
	}

	if err := h.cardService.SetActive(r.Context(), cardID, req.Active); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type bankInfo struct {
	Name string `json:"name"`
	Role string `json:"role"`
	ID   int64  `json:"id"`
}

type cardResponse struct {
	CardToken   string   `json:"card_token"`
	CardType    string   `json:"card_type"`
	ExpiryDate  string   `json:"expiry_date"`
	IssuingBank bankInfo `json:"issuing_bank"`
	ID          int64    `json:"id"`
	IsActive    bool     `json:"is_active"`
}

// CardByID handles GET /cards/{cardID}
func (h *Handler) CardByID(w http.ResponseWriter, r *http.Request) {
	cardID, err := strconv.ParseInt(chi.URLParam(r, "cardID"), 10, 64)
	if err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationFailed, "invalid card id"))
		return
	}

	card, bank, err := h.cardService.Get(r.Context(), cardID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newCardResponse(card, bank))
}

func newCardResponse(card *models.Card, bank *models.Bank) cardResponse {
	resp := cardResponse{
		ID:         card.ID,
		CardToken:  card.CardToken,
		CardType:   string(card.Type),
		ExpiryDate: card.ExpiryDate.Format(time.DateOnly),
		IsActive:   card.IsActive,
	}
	if bank != nil {
		resp.IssuingBank = bankInfo{ID: bank.ID, Name: bank.Name, Role: string(bank.Role)}
	}
	return resp
}

type cardRow struct {
	CardToken  string `json:"card_token"`
	CardType   string `json:"card_type"`
	ExpiryDate string `json:"expiry_date"`
	ID         int64  `json:"id"`
	IsActive   bool   `json:"is_active"`
}

type cardholderResponse struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Cards     []cardRow `json:"cards"`
	ID        int64     `json:"id"`
}

// CardholderByID handles GET /cardholders/{cardholderID}
func (h *Handler) CardholderByID(w http.ResponseWriter, r *http.Request) {
	cardholderID, err := strconv.ParseInt(chi.URLParam(r, "cardholderID"), 10, 64)
	if err != nil {
		h.writeError(w, domain.NewDomainError(domain.ErrorCodeValidationFailed, "invalid cardholder id"))
		return
	}

	holder, owned, err := h.cardService.GetCardholder(r.Context(), cardholderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := cardholderResponse{
		ID:        holder.ID,
		FirstName: holder.FirstName,
		LastName:  holder.LastName,
		Email:     holder.Email,
		Cards:     make([]cardRow, len(owned)),
	}
	for i, card := range owned {
		resp.Cards[i] = cardRow{
			ID:         card.ID,
			CardToken:  card.CardToken,
			CardType:   string(card.Type),
			ExpiryDate: card.ExpiryDate.Format(time.DateOnly),
			IsActive:   card.IsActive,
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type feeTierRow struct {
	CardType         string `json:"card_type"`
	MerchantCategory string `json:"merchant_category"`
	PercentageFee    string `json:"percentage_fee"`
	FixedFee         string `json:"fixed_fee"`
	EffectiveFrom    string `json:"effective_from"`
	EffectiveTo      string `json:"effective_to"`
	ID               int64  `json:"id"`
}

// FeeTiers handles GET /fees/tiers?exchange_id=...
func (h *Handler) FeeTiers(w http.ResponseWriter, r *http.Request) {
	exchangeID := int64(queryInt(r, "exchange_id", 0))

	tiers, err := h.feeService.ListTiers(r.Context(), exchangeID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	rows := make([]feeTierRow, len(tiers))
	for i, tier := range tiers {
		rows[i] = feeTierRow{
			ID:               tier.ID,
			CardType:         string(tier.CardType),
			MerchantCategory: tier.MerchantCategory,
			PercentageFee:    tier.PercentageFee.String(),
			FixedFee:         tier.FixedFee.StringFixed(2),
			EffectiveFrom:    tier.EffectiveFrom.Format(time.DateOnly),
			EffectiveTo:      tier.EffectiveTo.Format(time.DateOnly),
		}
	}
	h.writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", ports.Err(err))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps the domain taxonomy to HTTP statuses. Store errors stay
// opaque: the caller gets the code, the detail stays in the logs.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := domain.GetErrorCode(err)
	message := "internal error"

	switch {
	case domain.IsValidationError(err):
		status = http.StatusBadRequest
		message = err.Error()
	case domain.IsNotFoundError(err):
		status = http.StatusNotFound
		message = err.Error()
	case domain.IsConflictError(err):
		status = http.StatusConflict
		message = "conflict, retry the operation"
	case domain.IsDomainError(err, domain.ErrorCodeTxnInvalidState):
		status = http.StatusConflict
		message = err.Error()
	case domain.IsDomainError(err, domain.ErrorCodeNoApplicableFeeTier):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	default:
		code = domain.ErrorCodeStoreError
		h.logger.Error("request failed", ports.Err(err))
	}

	h.writeJSON(w, status, errorResponse{Code: string(code), Message: message})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
