package fraud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cardnetsim/processing/internal/adapters/zaplog"
	"github.com/cardnetsim/processing/internal/domain"
	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
)

type MockCardRepository struct {
	mock.Mock
}

func (m *MockCardRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*models.Card, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Card), args.Error(1)
}

func (m *MockCardRepository) ListByCardholder(ctx context.Context, db ports.DBTX, cardholderID int64) ([]*models.Card, error) {
	args := m.Called(ctx, db, cardholderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Card), args.Error(1)
}

func (m *MockCardRepository) SetActive(ctx context.Context, tx ports.DBTX, id int64, active bool) (bool, error) {
	args := m.Called(ctx, tx, id, active)
	return args.Bool(0), args.Error(1)
}

type MockTransactionCounter struct {
	mock.Mock
}

func (m *MockTransactionCounter) Create(ctx context.Context, tx ports.DBTX, transaction *models.Transaction) error {
	args := m.Called(ctx, tx, transaction)
	return args.Error(0)
}

func (m *MockTransactionCounter) GetByID(ctx context.Context, db ports.DBTX, id int64) (*models.Transaction, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionCounter) GetByReferenceNumber(ctx context.Context, db ports.DBTX, ref string) (*models.Transaction, error) {
	args := m.Called(ctx, db, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionCounter) UpdateStatus(ctx context.Context, tx ports.DBTX, id int64, status models.TransactionStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *MockTransactionCounter) LockSettleable(ctx context.Context, tx ports.DBTX, merchantID int64) ([]*models.Transaction, error) {
	args := m.Called(ctx, tx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionCounter) MarkSettled(ctx context.Context, tx ports.DBTX, id, settlementID int64) error {
	args := m.Called(ctx, tx, id, settlementID)
	return args.Error(0)
}

func (m *MockTransactionCounter) CountByCardSince(ctx context.Context, db ports.DBTX, cardID int64, since time.Time) (int, error) {
	args := m.Called(ctx, db, cardID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionCounter) ListByMerchant(ctx context.Context, db ports.DBTX, merchantID int64, limit, offset int32) ([]*models.Transaction, error) {
	args := m.Called(ctx, db, merchantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

type MockFraudSink struct {
	mock.Mock
}

func (m *MockFraudSink) Record(ctx context.Context, alert *models.FraudAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func holderCards() []*models.Card {
	return []*models.Card{
		{ID: 1, CardToken: "tok_a"},
		{ID: 2, CardToken: "tok_b"},
		{ID: 3, CardToken: "tok_c"},
	}
}

func collect(seq func(yield func(models.CardVelocity, error) bool)) ([]models.CardVelocity, error) {
	var out []models.CardVelocity
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func TestDetectSuspiciousCards_FiltersByThreshold(t *testing.T) {
	cards := new(MockCardRepository)
	txns := new(MockTransactionCounter)
	detector := NewDetector(cards, txns, nil, zaplog.New(zap.NewNop()))
	ctx := context.Background()

	cards.On("ListByCardholder", ctx, nil, int64(5)).Return(holderCards(), nil)
	txns.On("CountByCardSince", ctx, nil, int64(1), mock.Anything).Return(5, nil)
	txns.On("CountByCardSince", ctx, nil, int64(2), mock.Anything).Return(2, nil)
	txns.On("CountByCardSince", ctx, nil, int64(3), mock.Anything).Return(3, nil)

	hits, err := collect(detector.DetectSuspiciousCards(ctx, 5, 24, 3))
	require.NoError(t, err)

	// count == threshold flags, count below it does not
	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].CardID)
	assert.Equal(t, "tok_a", hits[0].CardToken)
	assert.Equal(t, 5, hits[0].TransactionCount)
	assert.Equal(t, int64(3), hits[1].CardID)
}

func TestDetectSuspiciousCards_Restartable(t *testing.T) {
	cards := new(MockCardRepository)
	txns := new(MockTransactionCounter)
	detector := NewDetector(cards, txns, nil, zaplog.New(zap.NewNop()))
	ctx := context.Background()

	cards.On("ListByCardholder", ctx, nil, int64(5)).Return(holderCards()[:1], nil)
	txns.On("CountByCardSince", ctx, nil, int64(1), mock.Anything).Return(4, nil)

	seq := detector.DetectSuspiciousCards(ctx, 5, 24, 3)

	first, err := collect(seq)
	require.NoError(t, err)
	second, err := collect(seq)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	cards.AssertNumberOfCalls(t, "ListByCardholder", 2)
}

func TestDetectSuspiciousCards_EarlyBreakStops(t *testing.T) {
	cards := new(MockCardRepository)
	txns := new(MockTransactionCounter)
	detector := NewDetector(cards, txns, nil, zaplog.New(zap.NewNop()))
	ctx := context.Background()

	cards.On("ListByCardholder", ctx, nil, int64(5)).Return(holderCards(), nil)
	txns.On("CountByCardSince", ctx, nil, int64(1), mock.Anything).Return(9, nil)
	txns.On("CountByCardSince", ctx, nil, int64(2), mock.Anything).Return(9, nil)
	txns.On("CountByCardSince", ctx, nil, int64(3), mock.Anything).Return(9, nil)

	var got []models.CardVelocity
	for v, err := range detector.DetectSuspiciousCards(ctx, 5, 24, 3) {
		require.NoError(t, err)
		got = append(got, v)
		break
	}

	require.Len(t, got, 1)
	txns.AssertNumberOfCalls(t, "CountByCardSince", 1)
}

func TestDetectSuspiciousCards_SinkIsBestEffort(t *testing.T) {
	cards := new(MockCardRepository)
	txns := new(MockTransactionCounter)
	sink := new(MockFraudSink)
	detector := NewDetector(cards, txns, sink, zaplog.New(zap.NewNop()))
	ctx := context.Background()

	cards.On("ListByCardholder", ctx, nil, int64(5)).Return(holderCards()[:1], nil)
	txns.On("CountByCardSince", ctx, nil, int64(1), mock.Anything).Return(6, nil)
	sink.On("Record", ctx, mock.AnythingOfType("*models.FraudAlert")).
		Return(errors.New("monitoring table unavailable"))

	hits, err := collect(detector.DetectSuspiciousCards(ctx, 5, 24, 3))
	require.NoError(t, err, "a failing sink must not fail detection")
	require.Len(t, hits, 1)
	sink.AssertExpectations(t)
}

func TestDetectSuspiciousCards_RecordsAlert(t *testing.T) {
	cards := new(MockCardRepository)
	txns := new(MockTransactionCounter)
	sink := new(MockFraudSink)
	detector := NewDetector(cards, txns, sink, zaplog.New(zap.NewNop()))
	ctx := context.Background()

	cards.On("ListByCardholder", ctx, nil, int64(5)).Return(holderCards()[:1], nil)
	txns.On("CountByCardSince", ctx, nil, int64(1), mock.Anything).Return(6, nil)
	sink.On("Record", ctx, mock.MatchedBy(func(alert *models.FraudAlert) bool {
		return alert.CardID == 1 && alert.TransactionCount == 6 && alert.Reason != ""
	})).Return(nil)

	_, err := collect(detector.DetectSuspiciousCards(ctx, 5, 24, 3))
	require.NoError(t, err)
	sink.AssertExpectations(t)
}

func TestDetectSuspiciousCards_Validation(t *testing.T) {
	detector := NewDetector(new(MockCardRepository), new(MockTransactionCounter), nil, zaplog.New(zap.NewNop()))
	ctx := context.Background()

	_, err := collect(detector.DetectSuspiciousCards(ctx, 0, 24, 3))
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))

	_, err = collect(detector.DetectSuspiciousCards(ctx, 5, 0, 3))
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))

	_, err = collect(detector.DetectSuspiciousCards(ctx, 5, 24, 0))
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}

func TestDetectSuspiciousCards_ListFailure(t *testing.T) {
	cards := new(MockCardRepository)
	detector := NewDetector(cards, new(MockTransactionCounter), nil, zaplog.New(zap.NewNop()))
	ctx := context.Background()

	cards.On("ListByCardholder", ctx, nil, int64(5)).
		Return(nil, domain.NewDomainError(domain.ErrorCodeStoreError, "query failed"))

	_, err := collect(detector.DetectSuspiciousCards(ctx, 5, 24, 3))
	require.Error(t, err)
	assert.True(t, domain.IsStoreError(err))
}
