package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardnetsim/processing/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode domain.ErrorCode
	}{
		{
			name:     "serialization failure is a conflict",
			err:      &pgconn.PgError{Code: pgCodeSerializationFailure},
			wantCode: domain.ErrorCodeConcurrencyConflict,
		},
		{
			name:     "deadlock is a conflict",
			err:      &pgconn.PgError{Code: pgCodeDeadlockDetected},
			wantCode: domain.ErrorCodeConcurrencyConflict,
		},
		{
			name:     "lock not available is a conflict",
			err:      &pgconn.PgError{Code: pgCodeLockNotAvailable},
			wantCode: domain.ErrorCodeConcurrencyConflict,
		},
		{
			name:     "unique violation is a duplicate",
			err:      &pgconn.PgError{Code: pgCodeUniqueViolation},
			wantCode: domain.ErrorCodeTxnDuplicateRef,
		},
		{
			name:     "anything else is a store error",
			err:      errors.New("connection reset"),
			wantCode: domain.ErrorCodeStoreError,
		},
		{
			name:     "foreign key violation is a store error",
			err:      &pgconn.PgError{Code: "23503"},
			wantCode: domain.ErrorCodeStoreError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err)
			assert.Equal(t, tt.wantCode, domain.GetErrorCode(mapped))
			assert.ErrorIs(t, mapped, tt.err, "the driver error must stay in the chain")
		})
	}
}

func TestMapError_NoRowsPassesThrough(t *testing.T) {
	assert.ErrorIs(t, MapError(pgx.ErrNoRows), pgx.ErrNoRows)
	assert.Equal(t, domain.ErrorCode(""), domain.GetErrorCode(MapError(pgx.ErrNoRows)))
}

func TestMapError_Nil(t *testing.T) {
	assert.NoError(t, MapError(nil))
}

func TestDecimalNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "100.00", "97.50", "-12.34", "0.01", "99999.99"} {
		t.Run(s, func(t *testing.T) {
			d := decimal.RequireFromString(s)

			n, err := decimalToNumeric(d)
			require.NoError(t, err)

			back, err := pgNumericToDecimal(n)
			require.NoError(t, err)
			assert.True(t, d.Equal(back), "got %s want %s", back, d)
		})
	}
}
