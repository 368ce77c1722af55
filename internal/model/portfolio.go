package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass buckets a holding for concentration checks.
type AssetClass string

const (
	AssetClassEquity     AssetClass = "equity"
	AssetClassBond       AssetClass = "bond"
	AssetClassFund       AssetClass = "fund"
	AssetClassCrypto     AssetClass = "crypto"
	AssetClassRealEstate AssetClass = "real_estate"
	AssetClassCash       AssetClass = "cash"
)

// Holding is a single position in a user's portfolio.
type Holding struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name,omitempty"`
	AssetClass AssetClass      `json:"asset_class"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"` // average acquisition price
	Currency   string          `json:"currency,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Invested returns quantity x average unit cost.
func (h Holding) Invested() decimal.Decimal {
	return h.Quantity.Mul(h.UnitCost)
}

// AccountKind distinguishes cash-like accounts from brokerage ones.
type AccountKind string

const (
	AccountCash      AccountKind = "cash"
	AccountSavings   AccountKind = "savings"
	AccountBrokerage AccountKind = "brokerage"
)

// Account is a bank or brokerage account with a current balance. Cash and
// savings balances count toward the liquidity check.
type Account struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Kind      AccountKind     `json:"kind"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsLiquid reports whether the account balance counts as cash.
func (a Account) IsLiquid() bool {
	return a.Kind == AccountCash || a.Kind == AccountSavings
}

// Quote is a cached market price for a symbol.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Snapshot is a point-in-time portfolio valuation, appended by the snapshot
// job and read by the history views.
type Snapshot struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	TakenAt    time.Time       `json:"taken_at"`
	TotalValue decimal.Decimal `json:"total_value"`
	Invested   decimal.Decimal `json:"invested"`
	Cash       decimal.Decimal `json:"cash"`
	PnL        decimal.Decimal `json:"pnl"`
	PnLPct     float64         `json:"pnl_pct"`
}

// DecisionType identifies the rule that produced a decision.
type DecisionType string

const (
	DecisionPositionConcentration DecisionType = "position_concentration"
	DecisionClassConcentration    DecisionType = "class_concentration"
	DecisionLowLiquidity          DecisionType = "low_liquidity"
	DecisionLowDiversification    DecisionType = "low_diversification"
)

// Decision is a rule-based alert produced by evaluating a valuation against
// the user's effective thresholds.
type Decision struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      DecisionType   `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
