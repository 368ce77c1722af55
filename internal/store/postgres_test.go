package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrimoine-app/patrimoine/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetProfile_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT user_id, first_name, age, investment_horizon`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	p, err := s.GetProfile(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateThresholds(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	twelve := 12.0
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO profiles \(user_id, cash_target_pct`).
		WithArgs("u1", (*float64)(nil), &twelve, (*float64)(nil), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpdateThresholds(context.Background(), "u1",
		model.ThresholdPatch{MaxPositionPct: &twelve}, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateThresholds_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO profiles`).
		WillReturnError(assert.AnError)

	err := s.UpdateThresholds(context.Background(), "u1", model.ThresholdPatch{}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update thresholds")
}

func TestPostgresStore_GetCachedQuote_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT symbol, price, currency, fetched_at FROM quote_cache`).
		WithArgs("UNKNOWN").
		WillReturnError(pgx.ErrNoRows)

	q, err := s.GetCachedQuote(context.Background(), "UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, q)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteHolding(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM holdings WHERE user_id = \$1 AND id = \$2`).
		WithArgs("u1", "h1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteHolding(context.Background(), "u1", "h1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceDecisions_TxRollbackOnError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM decisions WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.ReplaceDecisions(context.Background(), "u1", []model.Decision{
		{Type: model.DecisionLowLiquidity, Severity: "warning", Message: "m"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear decisions")
	assert.NoError(t, mock.ExpectationsWereMet())
}
