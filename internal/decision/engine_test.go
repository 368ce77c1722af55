package decision

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrimoine-app/patrimoine/internal/model"
	"github.com/patrimoine-app/patrimoine/internal/profile"
	"github.com/patrimoine-app/patrimoine/internal/store"
	"github.com/patrimoine-app/patrimoine/internal/valuation"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func computeValuation(t *testing.T, holdings []model.Holding, accounts []model.Account) *valuation.Valuation {
	t.Helper()
	v, err := valuation.Compute(context.Background(), holdings, accounts, nil)
	require.NoError(t, err)
	return v
}

func TestEvaluatePositionConcentration(t *testing.T) {
	t.Parallel()

	v := computeValuation(t,
		[]model.Holding{
			{Symbol: "BIG", AssetClass: model.AssetClassEquity, Quantity: dec("1"), UnitCost: dec("90")},
			{Symbol: "A", AssetClass: model.AssetClassFund, Quantity: dec("1"), UnitCost: dec("5")},
			{Symbol: "B", AssetClass: model.AssetClassBond, Quantity: dec("1"), UnitCost: dec("5")},
		},
		[]model.Account{{Kind: model.AccountCash, Balance: dec("20")}},
	)
	// BIG is 90/120 = 75% of the portfolio.
	thresholds := model.StrategyThresholds{CashTargetPct: 10, MaxPositionPct: 10, MaxAssetClassPct: 80}

	decisions := Evaluate("u1", v, thresholds)

	var types []model.DecisionType
	for _, d := range decisions {
		types = append(types, d.Type)
	}
	assert.Contains(t, types, model.DecisionPositionConcentration)
	assert.NotContains(t, types, model.DecisionLowLiquidity) // cash 16.7% >= 10%
	assert.NotContains(t, types, model.DecisionLowDiversification)
}

func TestEvaluateClassConcentrationAndLiquidity(t *testing.T) {
	t.Parallel()

	v := computeValuation(t,
		[]model.Holding{
			{Symbol: "A", AssetClass: model.AssetClassCrypto, Quantity: dec("1"), UnitCost: dec("30")},
			{Symbol: "B", AssetClass: model.AssetClassCrypto, Quantity: dec("1"), UnitCost: dec("30")},
			{Symbol: "C", AssetClass: model.AssetClassCrypto, Quantity: dec("1"), UnitCost: dec("38")},
		},
		[]model.Account{{Kind: model.AccountCash, Balance: dec("2")}},
	)
	// Crypto is 98% of the portfolio, cash 2%.
	thresholds := model.StrategyThresholds{CashTargetPct: 10, MaxPositionPct: 50, MaxAssetClassPct: 80}

	decisions := Evaluate("u1", v, thresholds)

	var types []model.DecisionType
	for _, d := range decisions {
		types = append(types, d.Type)
	}
	assert.Contains(t, types, model.DecisionClassConcentration)
	assert.Contains(t, types, model.DecisionLowLiquidity)
}

func TestEvaluateLowDiversification(t *testing.T) {
	t.Parallel()

	v := computeValuation(t,
		[]model.Holding{
			{Symbol: "ONLY", AssetClass: model.AssetClassFund, Quantity: dec("1"), UnitCost: dec("50")},
		},
		[]model.Account{{Kind: model.AccountCash, Balance: dec("50")}},
	)
	thresholds := model.StrategyThresholds{CashTargetPct: 10, MaxPositionPct: 60, MaxAssetClassPct: 90}

	decisions := Evaluate("u1", v, thresholds)

	require.Len(t, decisions, 1)
	assert.Equal(t, model.DecisionLowDiversification, decisions[0].Type)
	assert.Equal(t, "info", decisions[0].Severity)
}

func TestEvaluateEmptyPortfolioProducesNothing(t *testing.T) {
	t.Parallel()

	v := computeValuation(t, nil, nil)
	decisions := Evaluate("u1", v, model.StrategyThresholds{CashTargetPct: 10, MaxPositionPct: 10, MaxAssetClassPct: 80})
	assert.Empty(t, decisions)
}

func TestEngineRefreshPersistsFeed(t *testing.T) {
	t.Parallel()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	require.NoError(t, st.SaveProfile(ctx, &model.UserProfile{
		UserID:            "u1",
		InvestmentHorizon: "2-5 ans",
		MaxAcceptableLoss: "20%",
		UpdatedAt:         time.Now().UTC(),
	}))
	require.NoError(t, st.UpsertHolding(ctx, &model.Holding{
		UserID: "u1", Symbol: "BIG", AssetClass: model.AssetClassEquity,
		Quantity: dec("1"), UnitCost: dec("95"),
	}))
	require.NoError(t, st.UpsertAccount(ctx, &model.Account{
		UserID: "u1", Name: "Compte courant", Kind: model.AccountCash, Balance: dec("5"),
	}))

	resolver := profile.NewResolver(st)
	engine := NewEngine(st, resolver, nil)

	require.NoError(t, engine.Refresh(ctx, "u1"))

	feed, err := st.ListDecisions(ctx, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, feed)

	var types []model.DecisionType
	for _, d := range feed {
		types = append(types, d.Type)
	}
	// BIG is 95% of total against the Balanced 10% position cap; cash sits
	// at 5% against the 10% target; a single position is under-diversified.
	assert.Contains(t, types, model.DecisionPositionConcentration)
	assert.Contains(t, types, model.DecisionClassConcentration)
	assert.Contains(t, types, model.DecisionLowLiquidity)
	assert.Contains(t, types, model.DecisionLowDiversification)
}
