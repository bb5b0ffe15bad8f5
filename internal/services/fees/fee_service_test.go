package fees

import (
	"context"
	"testing"
	"time"

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

// MockFeeRepository implements ports.FeeRepository for testing
type MockFeeRepository struct {
	mock.Mock
}

func (m *MockFeeRepository) FindCurrentTier(ctx context.Context, db ports.DBTX, cardType models.CardType, merchantCategory string, asOf time.Time) (*models.FeeTier, error) {
	args := m.Called(ctx, db, cardType, merchantCategory, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeeTier), args.Error(1)
}

func (m *MockFeeRepository) ListTiers(ctx context.Context, db ports.DBTX, exchangeID int64) ([]*models.FeeTier, error) {
	args := m.Called(ctx, db, exchangeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FeeTier), args.Error(1)
}

func setupFeeService(t *testing.T) (*Service, *MockFeeRepository) {
	repo := new(MockFeeRepository)
	return NewService(repo, zaplog.New(zap.NewNop())), repo
}

func TestResolveFee_Found(t *testing.T) {
	service, repo := setupFeeService(t)
	ctx := context.Background()
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tier := &models.FeeTier{
		CardType:         models.CardTypeCredit,
		MerchantCategory: "retail",
		PercentageFee:    decimal.RequireFromString("1.80"),
		FixedFee:         decimal.RequireFromString("0.10"),
	}
	repo.On("FindCurrentTier", ctx, nil, models.CardTypeCredit, "retail", asOf).
		Return(tier, nil)

	got, err := service.ResolveFee(ctx, models.CardTypeCredit, "retail", asOf)
	require.NoError(t, err)
	assert.Equal(t, tier, got)
	repo.AssertExpectations(t)
}

func TestResolveFee_NoTier(t *testing.T) {
	service, repo := setupFeeService(t)
	ctx := context.Background()
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	repo.On("FindCurrentTier", ctx, nil, models.CardTypePrepaid, "travel", asOf).
		Return(nil, nil)

	got, err := service.ResolveFee(ctx, models.CardTypePrepaid, "travel", asOf)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeNoApplicableFeeTier))
}

func TestResolveFee_MissingCategory(t *testing.T) {
	service, repo := setupFeeService(t)

	_, err := service.ResolveFee(context.Background(), models.CardTypeDebit, "", time.Now())
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
	repo.AssertNotCalled(t, "FindCurrentTier")
}

func TestComputeFee(t *testing.T) {
	tests := []struct {
		name       string
		amount     string
		percentage string
		fixed      string
		want       string
	}{
		{"plain percentage", "100.00", "2.50", "0", "2.50"},
		{"percentage plus fixed", "100.00", "1.80", "0.10", "1.90"},
		{"rounds half up", "10.01", "1.25", "0", "0.13"}, // 0.125125 -> 0.13
		{"sub-cent fee rounds", "1.00", "0.90", "0", "0.01"},
		{"zero percentage keeps fixed", "250.00", "0", "0.25", "0.25"},
		{"large amount", "99999.99", "2.30", "0.15", "2300.15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier := &models.FeeTier{
				PercentageFee: decimal.RequireFromString(tt.percentage),
				FixedFee:      decimal.RequireFromString(tt.fixed),
			}
			got := ComputeFee(decimal.RequireFromString(tt.amount), tier)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestListTiers_DefaultsExchange(t *testing.T) {
	service, repo := setupFeeService(t)
	ctx := context.Background()

	tiers := []*models.FeeTier{{ID: 1, CardType: models.CardTypeCredit, MerchantCategory: "retail"}}
	repo.On("ListTiers", ctx, nil, int64(1)).Return(tiers, nil)

	// Non-positive exchange ids fall back to the seeded default exchange
	got, err := service.ListTiers(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, tiers, got)

	got, err = service.ListTiers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, tiers, got)
}
