package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrimoine-app/patrimoine/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("GetProfileMissing", func(t *testing.T) {
		s := newStore(t)

		p, err := s.GetProfile(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("SaveAndGetProfile", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		cash := 12.5
		in := &model.UserProfile{
			UserID:                    "u1",
			FirstName:                 "Camille",
			Age:                       34,
			InvestmentHorizon:         "5-10 ans",
			MaxAcceptableLoss:         "20%",
			FinancialResilienceMonths: "6-12 mois",
			IncomeStability:           "Plutôt stables",
			RiskProfile:               "Dynamique",
			ScoreTotal:                62,
			CashTargetPct:             &cash,
			UpdatedAt:                 time.Now().UTC(),
		}
		require.NoError(t, s.SaveProfile(ctx, in))

		got, err := s.GetProfile(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Camille", got.FirstName)
		assert.Equal(t, "Dynamique", got.RiskProfile)
		require.NotNil(t, got.CashTargetPct)
		assert.Equal(t, 12.5, *got.CashTargetPct)
		assert.Nil(t, got.MaxPositionPct)
	})

	t.Run("UpdateThresholdsMergesFieldByField", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveProfile(ctx, &model.UserProfile{
			UserID:    "u2",
			UpdatedAt: time.Now().UTC(),
		}))

		twelve := 12.0
		require.NoError(t, s.UpdateThresholds(ctx, "u2",
			model.ThresholdPatch{MaxPositionPct: &twelve}, time.Now().UTC()))

		got, err := s.GetProfile(ctx, "u2")
		require.NoError(t, err)
		require.NotNil(t, got.MaxPositionPct)
		assert.Equal(t, 12.0, *got.MaxPositionPct)
		assert.Nil(t, got.CashTargetPct)
		assert.Nil(t, got.MaxAssetClassPct)

		// A later patch on another field keeps the first override.
		twenty := 20.0
		require.NoError(t, s.UpdateThresholds(ctx, "u2",
			model.ThresholdPatch{CashTargetPct: &twenty}, time.Now().UTC()))

		got, err = s.GetProfile(ctx, "u2")
		require.NoError(t, err)
		require.NotNil(t, got.MaxPositionPct)
		assert.Equal(t, 12.0, *got.MaxPositionPct)
		require.NotNil(t, got.CashTargetPct)
		assert.Equal(t, 20.0, *got.CashTargetPct)
	})

	t.Run("UpdateThresholdsCreatesRowWhenAbsent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		seven := 7.0
		require.NoError(t, s.UpdateThresholds(ctx, "fresh",
			model.ThresholdPatch{CashTargetPct: &seven}, time.Now().UTC()))

		got, err := s.GetProfile(ctx, "fresh")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NotNil(t, got.CashTargetPct)
		assert.Equal(t, 7.0, *got.CashTargetPct)
	})

	t.Run("SaveRiskScores", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		r := model.RiskProfileResult{
			ScoreTolerance: 18, ScoreCapacity: 15, ScoreBehavior: 17,
			ScoreHorizon: 8, ScoreKnowledge: 6, ScoreTotal: 64,
			RiskProfile: model.RiskProfileDynamique,
		}
		require.NoError(t, s.SaveRiskScores(ctx, "u3", r, time.Now().UTC()))

		got, err := s.GetProfile(ctx, "u3")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 64, got.ScoreTotal)
		assert.Equal(t, "Dynamique", got.RiskProfile)
	})

	t.Run("HoldingsUpsertListDelete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		h := &model.Holding{
			UserID:     "u4",
			Symbol:     "CW8",
			Name:       "MSCI World",
			AssetClass: model.AssetClassFund,
			Quantity:   decimal.RequireFromString("12.5"),
			UnitCost:   decimal.RequireFromString("410.20"),
			Currency:   "EUR",
		}
		require.NoError(t, s.UpsertHolding(ctx, h))
		require.NotEmpty(t, h.ID)

		// Upsert on the same symbol updates in place.
		h2 := &model.Holding{
			UserID:     "u4",
			Symbol:     "CW8",
			AssetClass: model.AssetClassFund,
			Quantity:   decimal.RequireFromString("15"),
			UnitCost:   decimal.RequireFromString("412"),
		}
		require.NoError(t, s.UpsertHolding(ctx, h2))

		list, err := s.ListHoldings(ctx, "u4")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].Quantity.Equal(decimal.RequireFromString("15")))

		require.NoError(t, s.DeleteHolding(ctx, "u4", list[0].ID))
		list, err = s.ListHoldings(ctx, "u4")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("ListUserIDs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveProfile(ctx, &model.UserProfile{UserID: "ua", UpdatedAt: time.Now()}))
		require.NoError(t, s.UpsertHolding(ctx, &model.Holding{
			UserID:     "ub",
			Symbol:     "ESE",
			AssetClass: model.AssetClassFund,
			Quantity:   decimal.RequireFromString("3"),
			UnitCost:   decimal.RequireFromString("25"),
		}))
		// A user present in both tables appears once.
		require.NoError(t, s.UpsertHolding(ctx, &model.Holding{
			UserID:     "ua",
			Symbol:     "CW8",
			AssetClass: model.AssetClassFund,
			Quantity:   decimal.RequireFromString("1"),
			UnitCost:   decimal.RequireFromString("400"),
		}))

		ids, err := s.ListUserIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"ua", "ub"}, ids)
	})

	t.Run("AccountsUpsertList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a := &model.Account{
			UserID:  "u5",
			Name:    "Livret A",
			Kind:    model.AccountSavings,
			Balance: decimal.RequireFromString("8000"),
		}
		require.NoError(t, s.UpsertAccount(ctx, a))

		list, err := s.ListAccounts(ctx, "u5")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].IsLiquid())
		assert.True(t, list[0].Balance.Equal(decimal.RequireFromString("8000")))
	})

	t.Run("QuoteCacheSetGetExpire", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		q := model.Quote{Symbol: "CW8", Price: decimal.RequireFromString("415.3"), Currency: "EUR"}
		require.NoError(t, s.SetCachedQuote(ctx, q, time.Hour))

		got, err := s.GetCachedQuote(ctx, "CW8")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Price.Equal(q.Price))

		// Expired entries behave like misses.
		require.NoError(t, s.SetCachedQuote(ctx, q, -time.Hour))
		got, err = s.GetCachedQuote(ctx, "CW8")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = s.GetCachedQuote(ctx, "UNKNOWN")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("SnapshotsSaveList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i, total := range []string{"1000", "1100", "1050"} {
			snap := &model.Snapshot{
				UserID:     "u6",
				TakenAt:    time.Now().UTC().Add(time.Duration(i) * time.Hour),
				TotalValue: decimal.RequireFromString(total),
				Invested:   decimal.RequireFromString("900"),
				Cash:       decimal.RequireFromString("100"),
				PnL:        decimal.RequireFromString("100"),
				PnLPct:     11.1,
			}
			require.NoError(t, s.SaveSnapshot(ctx, snap))
		}

		list, err := s.ListSnapshots(ctx, "u6", 2)
		require.NoError(t, err)
		require.Len(t, list, 2)
		// Newest first.
		assert.True(t, list[0].TotalValue.Equal(decimal.RequireFromString("1050")))
	})

	t.Run("DecisionsReplaceList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first := []model.Decision{
			{Type: model.DecisionLowLiquidity, Severity: "warning", Message: "cash below target",
				Details: map[string]any{"cash_pct": 4.2}},
			{Type: model.DecisionPositionConcentration, Severity: "high", Message: "CW8 too large"},
		}
		require.NoError(t, s.ReplaceDecisions(ctx, "u7", first))

		list, err := s.ListDecisions(ctx, "u7")
		require.NoError(t, err)
		assert.Len(t, list, 2)

		// Replace swaps the whole feed.
		require.NoError(t, s.ReplaceDecisions(ctx, "u7", []model.Decision{
			{Type: model.DecisionLowDiversification, Severity: "info", Message: "few positions"},
		}))
		list, err = s.ListDecisions(ctx, "u7")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, model.DecisionLowDiversification, list[0].Type)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
