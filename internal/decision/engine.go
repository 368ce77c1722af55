// Package decision evaluates a portfolio valuation against the user's
// effective thresholds and produces the concentration, liquidity and
// diversification alerts shown in the decisions feed.
package decision

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/patrimoine-app/patrimoine/internal/model"
	"github.com/patrimoine-app/patrimoine/internal/profile"
	"github.com/patrimoine-app/patrimoine/internal/store"
	"github.com/patrimoine-app/patrimoine/internal/valuation"
)

// minPositions below which the portfolio counts as under-diversified.
const minPositions = 3

// Evaluate checks the valuation against thresholds and returns the full
// decision set, deterministically ordered: positions, classes, liquidity,
// diversification.
func Evaluate(userID string, v *valuation.Valuation, t model.StrategyThresholds) []model.Decision {
	var out []model.Decision

	for _, p := range v.Positions {
		if p.WeightPct > t.MaxPositionPct {
			out = append(out, model.Decision{
				UserID:   userID,
				Type:     model.DecisionPositionConcentration,
				Severity: "high",
				Message: fmt.Sprintf("%s représente %.1f%% du portefeuille (plafond %.1f%%)",
					p.Holding.Symbol, p.WeightPct, t.MaxPositionPct),
				Details: map[string]any{
					"symbol":     p.Holding.Symbol,
					"weight_pct": p.WeightPct,
					"max_pct":    t.MaxPositionPct,
				},
			})
		}
	}

	for _, class := range []model.AssetClass{
		model.AssetClassEquity, model.AssetClassBond, model.AssetClassFund,
		model.AssetClassCrypto, model.AssetClassRealEstate,
	} {
		weight, ok := v.ClassWeights[class]
		if ok && weight > t.MaxAssetClassPct {
			out = append(out, model.Decision{
				UserID:   userID,
				Type:     model.DecisionClassConcentration,
				Severity: "high",
				Message: fmt.Sprintf("La classe %s pèse %.1f%% du portefeuille (plafond %.1f%%)",
					class, weight, t.MaxAssetClassPct),
				Details: map[string]any{
					"asset_class": string(class),
					"weight_pct":  weight,
					"max_pct":     t.MaxAssetClassPct,
				},
			})
		}
	}

	if v.TotalValue.IsPositive() && v.CashPct < t.CashTargetPct {
		out = append(out, model.Decision{
			UserID:   userID,
			Type:     model.DecisionLowLiquidity,
			Severity: "warning",
			Message: fmt.Sprintf("Liquidités à %.1f%% du portefeuille, sous la cible de %.1f%%",
				v.CashPct, t.CashTargetPct),
			Details: map[string]any{
				"cash_pct":   v.CashPct,
				"target_pct": t.CashTargetPct,
			},
		})
	}

	if n := len(v.Positions); n > 0 && n < minPositions {
		out = append(out, model.Decision{
			UserID:   userID,
			Type:     model.DecisionLowDiversification,
			Severity: "info",
			Message:  fmt.Sprintf("Seulement %d position(s) en portefeuille", n),
			Details:  map[string]any{"positions": n},
		})
	}

	return out
}

// Engine recomputes and persists the decision feed for a user. It also acts
// as the "decisions" dependent view: a threshold write invalidates the feed
// by triggering a refresh.
type Engine struct {
	store    store.Store
	resolver *profile.Resolver
	prices   valuation.PriceSource
}

// NewEngine creates an Engine. prices may be nil; positions are then valued
// at cost.
func NewEngine(st store.Store, resolver *profile.Resolver, prices valuation.PriceSource) *Engine {
	return &Engine{store: st, resolver: resolver, prices: prices}
}

// Name implements profile.Invalidator.
func (e *Engine) Name() string { return "decisions" }

// Invalidate implements profile.Invalidator by recomputing the feed.
func (e *Engine) Invalidate(ctx context.Context, userID string) error {
	return e.Refresh(ctx, userID)
}

// Refresh loads the portfolio, evaluates it against the user's effective
// thresholds and replaces the stored decision feed.
func (e *Engine) Refresh(ctx context.Context, userID string) error {
	holdings, err := e.store.ListHoldings(ctx, userID)
	if err != nil {
		return eris.Wrap(err, "decision: load holdings")
	}
	accounts, err := e.store.ListAccounts(ctx, userID)
	if err != nil {
		return eris.Wrap(err, "decision: load accounts")
	}
	us, err := e.resolver.Strategy(ctx, userID)
	if err != nil {
		return eris.Wrap(err, "decision: resolve strategy")
	}
	v, err := valuation.Compute(ctx, holdings, accounts, e.prices)
	if err != nil {
		return eris.Wrap(err, "decision: compute valuation")
	}

	decisions := Evaluate(userID, v, us.Thresholds)
	if err := e.store.ReplaceDecisions(ctx, userID, decisions); err != nil {
		return eris.Wrap(err, "decision: persist feed")
	}

	zap.L().Info("decision: feed refreshed",
		zap.String("user_id", userID),
		zap.Int("decisions", len(decisions)),
		zap.String("archetype", string(us.Archetype)),
	)
	return nil
}
