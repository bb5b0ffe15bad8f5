package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cardnetsim/processing/internal/adapters/zaplog"
	"github.com/cardnetsim/processing/internal/domain"
	"github.com/cardnetsim/processing/internal/domain/models"
	"github.com/cardnetsim/processing/internal/domain/ports"
)

type stubDB struct{}

func (stubDB) GetDB() *pgxpool.Pool { return nil }

func (stubDB) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (stubDB) WithSerializableTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (stubDB) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

type MockMerchantRepository struct {
	mock.Mock
}

func (m *MockMerchantRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*models.Merchant, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Merchant), args.Error(1)
}

func (m *MockMerchantRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id int64) (*models.Merchant, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Merchant), args.Error(1)
}

func (m *MockMerchantRepository) AddToSettlementAmount(ctx context.Context, tx ports.DBTX, id int64, amount decimal.Decimal) error {
	args := m.Called(ctx, tx, id, amount)
	return args.Error(0)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx ports.DBTX, transaction *models.Transaction) error {
	args := m.Called(ctx, tx, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*models.Transaction, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByReferenceNumber(ctx context.Context, db ports.DBTX, ref string) (*models.Transaction, error) {
	args := m.Called(ctx, db, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, tx ports.DBTX, id int64, status models.TransactionStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *MockTransactionRepository) LockSettleable(ctx context.Context, tx ports.DBTX, merchantID int64) ([]*models.Transaction, error) {
	args := m.Called(ctx, tx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) MarkSettled(ctx context.Context, tx ports.DBTX, id, settlementID int64) error {
	args := m.Called(ctx, tx, id, settlementID)
	return args.Error(0)
}

func (m *MockTransactionRepository) CountByCardSince(ctx context.Context, db ports.DBTX, cardID int64, since time.Time) (int, error) {
	args := m.Called(ctx, db, cardID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepository) ListByMerchant(ctx context.Context, db ports.DBTX, merchantID int64, limit, offset int32) ([]*models.Transaction, error) {
	args := m.Called(ctx, db, merchantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) Create(ctx context.Context, tx ports.DBTX, settlement *models.Settlement) error {
	args := m.Called(ctx, tx, settlement)
	return args.Error(0)
}

func (m *MockSettlementRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*models.Settlement, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) ListByMerchant(ctx context.Context, db ports.DBTX, merchantID int64, limit, offset int32) ([]*models.Settlement, error) {
	args := m.Called(ctx, db, merchantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) ExistsForMerchantAndDate(ctx context.Context, db ports.DBTX, merchantID int64, settlementDate time.Time) (bool, error) {
	args := m.Called(ctx, db, merchantID, settlementDate)
	return args.Bool(0), args.Error(1)
}

type settlementFixture struct {
	service     *Service
	merch       *MockMerchantRepository
	txns        *MockTransactionRepository
	settlements *MockSettlementRepository
}

func setupSettlementService(t *testing.T) *settlementFixture {
	f := &settlementFixture{
		merch:       new(MockMerchantRepository),
		txns:        new(MockTransactionRepository),
		settlements: new(MockSettlementRepository),
	}
	f.service = NewService(stubDB{}, f.merch, f.txns, f.settlements, zaplog.New(zap.NewNop()))
	return f
}

func completedTxn(id int64, amount string) *models.Transaction {
	return &models.Transaction{
		ID:         id,
		MerchantID: 20,
		Amount:     decimal.RequireFromString(amount),
		Status:     models.StatusCompleted,
	}
}

func TestSettleMerchant_NetsFeesPerTransaction(t *testing.T) {
	f := setupSettlementService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 15, 17, 30, 0, 0, time.UTC)

	merchant := &models.Merchant{ID: 20, FeeRate: decimal.RequireFromString("2.50")}
	f.merch.On("GetByIDForUpdate", ctx, mock.Anything, int64(20)).Return(merchant, nil)
	f.settlements.On("ExistsForMerchantAndDate", ctx, mock.Anything, int64(20), mock.Anything).Return(false, nil)

	// 100.00 nets 97.50, 10.01 nets 9.76 (fee 0.250250 rounds to 0.25)
	txns := []*models.Transaction{
		completedTxn(1, "100.00"),
		completedTxn(2, "10.01"),
	}
	f.txns.On("LockSettleable", ctx, mock.Anything, int64(20)).Return(txns, nil)

	f.settlements.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.Settlement")).
		Run(func(args mock.Arguments) {
			s := args.Get(2).(*models.Settlement)
			s.ID = 7
			assert.Equal(t, "107.26", s.TotalAmount.StringFixed(2))
			assert.Equal(t, int32(2), s.TransactionCount)
			assert.Equal(t, models.SettlementCompleted, s.Status)
			assert.NotEmpty(t, s.BatchID)
			assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), s.SettlementDate)
		}).
		Return(nil)
	f.txns.On("MarkSettled", ctx, mock.Anything, int64(1), int64(7)).Return(nil)
	f.txns.On("MarkSettled", ctx, mock.Anything, int64(2), int64(7)).Return(nil)
	f.merch.On("AddToSettlementAmount", ctx, mock.Anything, int64(20), mock.Anything).Return(nil)

	result, err := f.service.SettleMerchant(ctx, 20, date)
	require.NoError(t, err)

	assert.Equal(t, int64(7), result.SettlementID)
	assert.Equal(t, "107.26", result.TotalAmount.StringFixed(2))
	assert.Equal(t, int32(2), result.TransactionCount)

	f.txns.AssertExpectations(t)
	f.settlements.AssertExpectations(t)
	f.merch.AssertExpectations(t)
}

func TestSettleMerchant_NothingEligible(t *testing.T) {
	f := setupSettlementService(t)
	ctx := context.Background()

	merchant := &models.Merchant{ID: 20, FeeRate: decimal.RequireFromString("2.50")}
	f.merch.On("GetByIDForUpdate", ctx, mock.Anything, int64(20)).Return(merchant, nil)
	f.settlements.On("ExistsForMerchantAndDate", ctx, mock.Anything, int64(20), mock.Anything).Return(false, nil)
	f.txns.On("LockSettleable", ctx, mock.Anything, int64(20)).Return([]*models.Transaction{}, nil)

	result, err := f.service.SettleMerchant(ctx, 20, time.Now())
	require.NoError(t, err, "an empty run is not an error")

	assert.Zero(t, result.SettlementID)
	assert.Zero(t, result.TransactionCount)
	assert.True(t, result.TotalAmount.IsZero())
	f.settlements.AssertNotCalled(t, "Create")
	f.merch.AssertNotCalled(t, "AddToSettlementAmount")
}

func TestSettleMerchant_SameDateRunSettlesNothing(t *testing.T) {
	f := setupSettlementService(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	merchant := &models.Merchant{ID: 20, FeeRate: decimal.RequireFromString("2.50")}
	f.merch.On("GetByIDForUpdate", ctx, mock.Anything, int64(20)).Return(merchant, nil)
	f.settlements.On("ExistsForMerchantAndDate", ctx, mock.Anything, int64(20),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)).Return(true, nil)

	result, err := f.service.SettleMerchant(ctx, 20, date)
	require.NoError(t, err)

	assert.Zero(t, result.SettlementID)
	assert.Zero(t, result.TransactionCount)
	assert.True(t, result.TotalAmount.IsZero())
	f.txns.AssertNotCalled(t, "LockSettleable")
	f.settlements.AssertNotCalled(t, "Create")
}

func TestSettleMerchant_ConflictSurfaces(t *testing.T) {
	f := setupSettlementService(t)
	ctx := context.Background()

	f.merch.On("GetByIDForUpdate", ctx, mock.Anything, int64(20)).
		Return(nil, domain.NewDomainError(domain.ErrorCodeConcurrencyConflict, "concurrent update conflict"))

	result, err := f.service.SettleMerchant(ctx, 20, time.Now())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, domain.IsConflictError(err))
}

func TestSettleMerchant_MarkSettledFailureAborts(t *testing.T) {
	f := setupSettlementService(t)
	ctx := context.Background()

	merchant := &models.Merchant{ID: 20, FeeRate: decimal.Zero}
	f.merch.On("GetByIDForUpdate", ctx, mock.Anything, int64(20)).Return(merchant, nil)
	f.settlements.On("ExistsForMerchantAndDate", ctx, mock.Anything, int64(20), mock.Anything).Return(false, nil)
	f.txns.On("LockSettleable", ctx, mock.Anything, int64(20)).
		Return([]*models.Transaction{completedTxn(1, "50.00")}, nil)
	f.settlements.On("Create", ctx, mock.Anything, mock.AnythingOfType("*models.Settlement")).
		Run(func(args mock.Arguments) { args.Get(2).(*models.Settlement).ID = 8 }).
		Return(nil)
	f.txns.On("MarkSettled", ctx, mock.Anything, int64(1), int64(8)).
		Return(domain.NewDomainError(domain.ErrorCodeConcurrencyConflict, "row already claimed"))

	result, err := f.service.SettleMerchant(ctx, 20, time.Now())
	require.Error(t, err)
	assert.Nil(t, result)
	f.merch.AssertNotCalled(t, "AddToSettlementAmount")
}

func TestSettleMerchant_InvalidMerchantID(t *testing.T) {
	f := setupSettlementService(t)

	result, err := f.service.SettleMerchant(context.Background(), 0, time.Now())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, domain.IsValidationError(err))
	f.merch.AssertNotCalled(t, "GetByIDForUpdate")
}

func TestListByMerchant_ClampsPagination(t *testing.T) {
	f := setupSettlementService(t)
	ctx := context.Background()

	rows := []*models.Settlement{{ID: 1, MerchantID: 20}}
	f.settlements.On("ListByMerchant", ctx, nil, int64(20), int32(50), int32(0)).Return(rows, nil)

	// Out-of-range limit and offset fall back to the defaults
	got, err := f.service.ListByMerchant(ctx, 20, 0, -3)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	got, err = f.service.ListByMerchant(ctx, 20, 9999, -3)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestListByMerchant_InvalidMerchantID(t *testing.T) {
	f := setupSettlementService(t)

	_, err := f.service.ListByMerchant(context.Background(), 0, 10, 0)
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
	f.settlements.AssertNotCalled(t, "ListByMerchant")
}
