// Package valuation aggregates holdings, prices and account balances into a
// portfolio valuation: market value, invested capital, P&L and the position
// and asset-class weights the decision engine checks against thresholds.
package valuation

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/patrimoine-app/patrimoine/internal/model"
)

// PriceSource returns the current price for a symbol.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Position is one valued holding.
type Position struct {
	Holding     model.Holding   `json:"holding"`
	Price       decimal.Decimal `json:"price"`
	MarketValue decimal.Decimal `json:"market_value"`
	Invested    decimal.Decimal `json:"invested"`
	PnL         decimal.Decimal `json:"pnl"`
	WeightPct   float64         `json:"weight_pct"` // share of total value, cash included
}

// Valuation is the aggregate view over all positions and liquid accounts.
type Valuation struct {
	Positions    []Position                 `json:"positions"`
	ClassWeights map[model.AssetClass]float64 `json:"class_weights"`

	MarketValue decimal.Decimal `json:"market_value"`
	Invested    decimal.Decimal `json:"invested"`
	Cash        decimal.Decimal `json:"cash"`
	TotalValue  decimal.Decimal `json:"total_value"` // market value + cash
	PnL         decimal.Decimal `json:"pnl"`
	PnLPct      float64         `json:"pnl_pct"`
	CashPct     float64         `json:"cash_pct"`
}

// Compute values every holding at its current price and folds in liquid
// account balances. A nil price source values positions at cost; price
// lookup errors propagate unchanged.
func Compute(ctx context.Context, holdings []model.Holding, accounts []model.Account, prices PriceSource) (*Valuation, error) {
	v := &Valuation{
		ClassWeights: make(map[model.AssetClass]float64),
	}

	for _, h := range holdings {
		price := h.UnitCost
		if prices != nil {
			p, err := prices.Price(ctx, h.Symbol)
			if err != nil {
				return nil, eris.Wrapf(err, "valuation: price %s", h.Symbol)
			}
			price = p
		}

		invested := h.Invested()
		market := h.Quantity.Mul(price)
		v.Positions = append(v.Positions, Position{
			Holding:     h,
			Price:       price,
			MarketValue: market,
			Invested:    invested,
			PnL:         market.Sub(invested),
		})
		v.MarketValue = v.MarketValue.Add(market)
		v.Invested = v.Invested.Add(invested)
	}

	for _, a := range accounts {
		if a.IsLiquid() {
			v.Cash = v.Cash.Add(a.Balance)
		}
	}

	v.TotalValue = v.MarketValue.Add(v.Cash)
	v.PnL = v.MarketValue.Sub(v.Invested)
	if v.Invested.IsPositive() {
		v.PnLPct = v.PnL.Div(v.Invested).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	if v.TotalValue.IsPositive() {
		hundred := decimal.NewFromInt(100)
		for i := range v.Positions {
			p := &v.Positions[i]
			p.WeightPct = p.MarketValue.Div(v.TotalValue).Mul(hundred).InexactFloat64()
			v.ClassWeights[p.Holding.AssetClass] += p.WeightPct
		}
		v.CashPct = v.Cash.Div(v.TotalValue).Mul(hundred).InexactFloat64()
		if v.Cash.IsPositive() {
			v.ClassWeights[model.AssetClassCash] += v.CashPct
		}
	}

	return v, nil
}

// Snapshot converts the valuation into a persistable point-in-time record.
func (v *Valuation) Snapshot(userID string) *model.Snapshot {
	return &model.Snapshot{
		UserID:     userID,
		TotalValue: v.TotalValue,
		Invested:   v.Invested,
		Cash:       v.Cash,
		PnL:        v.PnL,
		PnLPct:     v.PnLPct,
	}
}
