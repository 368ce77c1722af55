package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/patrimoine-app/patrimoine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode. WAL keeps the single-writer serialization the resolver relies on
// without blocking readers.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id                     TEXT PRIMARY KEY,
	first_name                  TEXT NOT NULL DEFAULT '',
	age                         INTEGER NOT NULL DEFAULT 0,
	investment_horizon          TEXT NOT NULL DEFAULT '',
	max_acceptable_loss         TEXT NOT NULL DEFAULT '',
	financial_resilience_months TEXT NOT NULL DEFAULT '',
	income_stability            TEXT NOT NULL DEFAULT '',
	risk_profile                TEXT NOT NULL DEFAULT '',
	score_tolerance             INTEGER NOT NULL DEFAULT 0,
	score_capacity              INTEGER NOT NULL DEFAULT 0,
	score_behavior              INTEGER NOT NULL DEFAULT 0,
	score_horizon               INTEGER NOT NULL DEFAULT 0,
	score_knowledge             INTEGER NOT NULL DEFAULT 0,
	score_total                 INTEGER NOT NULL DEFAULT 0,
	cash_target_pct             REAL,
	max_position_pct            REAL,
	max_asset_class_pct         REAL,
	updated_at                  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS holdings (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	asset_class TEXT NOT NULL,
	quantity    TEXT NOT NULL,
	unit_cost   TEXT NOT NULL,
	currency    TEXT NOT NULL DEFAULT 'EUR',
	updated_at  DATETIME NOT NULL,
	UNIQUE(user_id, symbol)
);

CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	balance    TEXT NOT NULL,
	currency   TEXT NOT NULL DEFAULT 'EUR',
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS quote_cache (
	symbol     TEXT PRIMARY KEY,
	price      TEXT NOT NULL,
	currency   TEXT NOT NULL DEFAULT 'EUR',
	fetched_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	taken_at    DATETIME NOT NULL,
	total_value TEXT NOT NULL,
	invested    TEXT NOT NULL,
	cash        TEXT NOT NULL,
	pnl         TEXT NOT NULL,
	pnl_pct     REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS decisions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	type       TEXT NOT NULL,
	severity   TEXT NOT NULL,
	message    TEXT NOT NULL,
	details    TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_holdings_user ON holdings(user_id);
CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_user ON snapshots(user_id, taken_at);
CREATE INDEX IF NOT EXISTS idx_decisions_user ON decisions(user_id);
CREATE INDEX IF NOT EXISTS idx_quote_cache_expires ON quote_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Profiles ---

func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, first_name, age, investment_horizon, max_acceptable_loss,
			financial_resilience_months, income_stability, risk_profile,
			score_tolerance, score_capacity, score_behavior, score_horizon,
			score_knowledge, score_total,
			cash_target_pct, max_position_pct, max_asset_class_pct, updated_at
		FROM profiles WHERE user_id = ?`, userID)

	var p model.UserProfile
	var cash, pos, class sql.NullFloat64
	err := row.Scan(&p.UserID, &p.FirstName, &p.Age, &p.InvestmentHorizon,
		&p.MaxAcceptableLoss, &p.FinancialResilienceMonths, &p.IncomeStability,
		&p.RiskProfile, &p.ScoreTolerance, &p.ScoreCapacity, &p.ScoreBehavior,
		&p.ScoreHorizon, &p.ScoreKnowledge, &p.ScoreTotal,
		&cash, &pos, &class, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get profile")
	}
	p.CashTargetPct = nullableFloat(cash)
	p.MaxPositionPct = nullableFloat(pos)
	p.MaxAssetClassPct = nullableFloat(class)
	return &p, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, p *model.UserProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, first_name, age, investment_horizon,
			max_acceptable_loss, financial_resilience_months, income_stability,
			risk_profile, score_tolerance, score_capacity, score_behavior,
			score_horizon, score_knowledge, score_total,
			cash_target_pct, max_position_pct, max_asset_class_pct, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			first_name = excluded.first_name,
			age = excluded.age,
			investment_horizon = excluded.investment_horizon,
			max_acceptable_loss = excluded.max_acceptable_loss,
			financial_resilience_months = excluded.financial_resilience_months,
			income_stability = excluded.income_stability,
			risk_profile = excluded.risk_profile,
			score_tolerance = excluded.score_tolerance,
			score_capacity = excluded.score_capacity,
			score_behavior = excluded.score_behavior,
			score_horizon = excluded.score_horizon,
			score_knowledge = excluded.score_knowledge,
			score_total = excluded.score_total,
			cash_target_pct = excluded.cash_target_pct,
			max_position_pct = excluded.max_position_pct,
			max_asset_class_pct = excluded.max_asset_class_pct,
			updated_at = excluded.updated_at`,
		p.UserID, p.FirstName, p.Age, p.InvestmentHorizon, p.MaxAcceptableLoss,
		p.FinancialResilienceMonths, p.IncomeStability, p.RiskProfile,
		p.ScoreTolerance, p.ScoreCapacity, p.ScoreBehavior, p.ScoreHorizon,
		p.ScoreKnowledge, p.ScoreTotal,
		p.CashTargetPct, p.MaxPositionPct, p.MaxAssetClassPct, p.UpdatedAt.UTC())
	return eris.Wrap(err, "sqlite: save profile")
}

// UpdateThresholds merges a partial patch into the stored overrides: nil
// patch fields leave the stored value alone (COALESCE on the excluded row).
func (s *SQLiteStore) UpdateThresholds(ctx context.Context, userID string, patch model.ThresholdPatch, updatedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, cash_target_pct, max_position_pct, max_asset_class_pct, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			cash_target_pct = COALESCE(excluded.cash_target_pct, profiles.cash_target_pct),
			max_position_pct = COALESCE(excluded.max_position_pct, profiles.max_position_pct),
			max_asset_class_pct = COALESCE(excluded.max_asset_class_pct, profiles.max_asset_class_pct),
			updated_at = excluded.updated_at`,
		userID, patch.CashTargetPct, patch.MaxPositionPct, patch.MaxAssetClassPct, updatedAt.UTC())
	return eris.Wrap(err, "sqlite: update thresholds")
}

func (s *SQLiteStore) SaveRiskScores(ctx context.Context, userID string, r model.RiskProfileResult, updatedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, score_tolerance, score_capacity, score_behavior,
			score_horizon, score_knowledge, score_total, risk_profile, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			score_tolerance = excluded.score_tolerance,
			score_capacity = excluded.score_capacity,
			score_behavior = excluded.score_behavior,
			score_horizon = excluded.score_horizon,
			score_knowledge = excluded.score_knowledge,
			score_total = excluded.score_total,
			risk_profile = excluded.risk_profile,
			updated_at = excluded.updated_at`,
		userID, r.ScoreTolerance, r.ScoreCapacity, r.ScoreBehavior,
		r.ScoreHorizon, r.ScoreKnowledge, r.ScoreTotal, string(r.RiskProfile), updatedAt.UTC())
	return eris.Wrap(err, "sqlite: save risk scores")
}

// --- Holdings ---

// ListUserIDs returns every user known to the store, from profiles or
// holdings. The snapshot job iterates this to value each portfolio.
func (s *SQLiteStore) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM profiles
		UNION
		SELECT user_id FROM holdings
		ORDER BY user_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list user ids")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan user id")
		}
		out = append(out, id)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list user ids")
}

func (s *SQLiteStore) ListHoldings(ctx context.Context, userID string) ([]model.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, symbol, name, asset_class, quantity, unit_cost, currency, updated_at
		FROM holdings WHERE user_id = ? ORDER BY symbol`, userID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list holdings")
	}
	defer rows.Close()

	var out []model.Holding
	for rows.Next() {
		var h model.Holding
		var qty, cost string
		if err := rows.Scan(&h.ID, &h.UserID, &h.Symbol, &h.Name, &h.AssetClass,
			&qty, &cost, &h.Currency, &h.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan holding")
		}
		if h.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, eris.Wrapf(err, "sqlite: holding %s quantity", h.ID)
		}
		if h.UnitCost, err = decimal.NewFromString(cost); err != nil {
			return nil, eris.Wrapf(err, "sqlite: holding %s unit cost", h.ID)
		}
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list holdings")
}

func (s *SQLiteStore) UpsertHolding(ctx context.Context, h *model.Holding) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.UpdatedAt.IsZero() {
		h.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holdings (id, user_id, symbol, name, asset_class, quantity, unit_cost, currency, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, symbol) DO UPDATE SET
			name = excluded.name,
			asset_class = excluded.asset_class,
			quantity = excluded.quantity,
			unit_cost = excluded.unit_cost,
			currency = excluded.currency,
			updated_at = excluded.updated_at`,
		h.ID, h.UserID, h.Symbol, h.Name, string(h.AssetClass),
		h.Quantity.String(), h.UnitCost.String(), h.Currency, h.UpdatedAt.UTC())
	return eris.Wrap(err, "sqlite: upsert holding")
}

func (s *SQLiteStore) DeleteHolding(ctx context.Context, userID, holdingID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM holdings WHERE user_id = ? AND id = ?`, userID, holdingID)
	return eris.Wrap(err, "sqlite: delete holding")
}

// --- Accounts ---

func (s *SQLiteStore) ListAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, kind, balance, currency, updated_at
		FROM accounts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list accounts")
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var a model.Account
		var balance string
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Kind, &balance,
			&a.Currency, &a.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan account")
		}
		if a.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, eris.Wrapf(err, "sqlite: account %s balance", a.ID)
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list accounts")
}

func (s *SQLiteStore) UpsertAccount(ctx context.Context, a *model.Account) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, kind, balance, currency, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			balance = excluded.balance,
			currency = excluded.currency,
			updated_at = excluded.updated_at`,
		a.ID, a.UserID, a.Name, string(a.Kind), a.Balance.String(), a.Currency, a.UpdatedAt.UTC())
	return eris.Wrap(err, "sqlite: upsert account")
}

// --- Quote cache ---

func (s *SQLiteStore) GetCachedQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, price, currency, fetched_at FROM quote_cache
		WHERE symbol = ? AND expires_at > ?`, symbol, time.Now().UTC())

	var q model.Quote
	var price string
	err := row.Scan(&q.Symbol, &price, &q.Currency, &q.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached quote")
	}
	if q.Price, err = decimal.NewFromString(price); err != nil {
		return nil, eris.Wrapf(err, "sqlite: quote %s price", symbol)
	}
	return &q, nil
}

func (s *SQLiteStore) SetCachedQuote(ctx context.Context, q model.Quote, ttl time.Duration) error {
	now := time.Now().UTC()
	if q.FetchedAt.IsZero() {
		q.FetchedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quote_cache (symbol, price, currency, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			price = excluded.price,
			currency = excluded.currency,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`,
		q.Symbol, q.Price.String(), q.Currency, q.FetchedAt.UTC(), now.Add(ttl))
	return eris.Wrap(err, "sqlite: set cached quote")
}

// --- Snapshots ---

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, user_id, taken_at, total_value, invested, cash, pnl, pnl_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.UserID, snap.TakenAt.UTC(), snap.TotalValue.String(),
		snap.Invested.String(), snap.Cash.String(), snap.PnL.String(), snap.PnLPct)
	return eris.Wrap(err, "sqlite: save snapshot")
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, userID string, limit int) ([]model.Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, taken_at, total_value, invested, cash, pnl, pnl_pct
		FROM snapshots WHERE user_id = ? ORDER BY taken_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var total, invested, cash, pnl string
		if err := rows.Scan(&snap.ID, &snap.UserID, &snap.TakenAt,
			&total, &invested, &cash, &pnl, &snap.PnLPct); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot")
		}
		if snap.TotalValue, err = decimal.NewFromString(total); err != nil {
			return nil, eris.Wrapf(err, "sqlite: snapshot %s total", snap.ID)
		}
		if snap.Invested, err = decimal.NewFromString(invested); err != nil {
			return nil, eris.Wrapf(err, "sqlite: snapshot %s invested", snap.ID)
		}
		if snap.Cash, err = decimal.NewFromString(cash); err != nil {
			return nil, eris.Wrapf(err, "sqlite: snapshot %s cash", snap.ID)
		}
		if snap.PnL, err = decimal.NewFromString(pnl); err != nil {
			return nil, eris.Wrapf(err, "sqlite: snapshot %s pnl", snap.ID)
		}
		out = append(out, snap)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list snapshots")
}

// --- Decisions ---

// ReplaceDecisions swaps the user's decision feed atomically: the decision
// engine always recomputes the full set.
func (s *SQLiteStore) ReplaceDecisions(ctx context.Context, userID string, decisions []model.Decision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace decisions")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM decisions WHERE user_id = ?`, userID); err != nil {
		return eris.Wrap(err, "sqlite: clear decisions")
	}
	for i := range decisions {
		d := &decisions[i]
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = time.Now().UTC()
		}
		var details []byte
		if d.Details != nil {
			if details, err = json.Marshal(d.Details); err != nil {
				return eris.Wrap(err, "sqlite: marshal decision details")
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO decisions (id, user_id, type, severity, message, details, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.ID, userID, string(d.Type), d.Severity, d.Message, nullableBytes(details), d.CreatedAt.UTC()); err != nil {
			return eris.Wrap(err, "sqlite: insert decision")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace decisions")
}

func (s *SQLiteStore) ListDecisions(ctx context.Context, userID string) ([]model.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, severity, message, details, created_at
		FROM decisions WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list decisions")
	}
	defer rows.Close()

	var out []model.Decision
	for rows.Next() {
		var d model.Decision
		var details sql.NullString
		if err := rows.Scan(&d.ID, &d.UserID, &d.Type, &d.Severity, &d.Message,
			&details, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan decision")
		}
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &d.Details); err != nil {
				return nil, eris.Wrapf(err, "sqlite: decision %s details", d.ID)
			}
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list decisions")
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
