package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/patrimoine-app/patrimoine/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
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
	cash_target_pct             DOUBLE PRECISION,
	max_position_pct            DOUBLE PRECISION,
	max_asset_class_pct         DOUBLE PRECISION,
	updated_at                  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS holdings (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	asset_class TEXT NOT NULL,
	quantity    NUMERIC NOT NULL,
	unit_cost   NUMERIC NOT NULL,
	currency    TEXT NOT NULL DEFAULT 'EUR',
	updated_at  TIMESTAMPTZ NOT NULL,
	UNIQUE(user_id, symbol)
);

CREATE TABLE IF NOT EXISTS accounts (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	balance    NUMERIC NOT NULL,
	currency   TEXT NOT NULL DEFAULT 'EUR',
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS quote_cache (
	symbol     TEXT PRIMARY KEY,
	price      NUMERIC NOT NULL,
	currency   TEXT NOT NULL DEFAULT 'EUR',
	fetched_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	taken_at    TIMESTAMPTZ NOT NULL,
	total_value NUMERIC NOT NULL,
	invested    NUMERIC NOT NULL,
	cash        NUMERIC NOT NULL,
	pnl         NUMERIC NOT NULL,
	pnl_pct     DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS decisions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	type       TEXT NOT NULL,
	severity   TEXT NOT NULL,
	message    TEXT NOT NULL,
	details    JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_holdings_user ON holdings(user_id);
CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_user ON snapshots(user_id, taken_at);
CREATE INDEX IF NOT EXISTS idx_decisions_user ON decisions(user_id);
CREATE INDEX IF NOT EXISTS idx_quote_cache_expires ON quote_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Profiles ---

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, first_name, age, investment_horizon, max_acceptable_loss,
			financial_resilience_months, income_stability, risk_profile,
			score_tolerance, score_capacity, score_behavior, score_horizon,
			score_knowledge, score_total,
			cash_target_pct, max_position_pct, max_asset_class_pct, updated_at
		FROM profiles WHERE user_id = $1`, userID)

	var p model.UserProfile
	err := row.Scan(&p.UserID, &p.FirstName, &p.Age, &p.InvestmentHorizon,
		&p.MaxAcceptableLoss, &p.FinancialResilienceMonths, &p.IncomeStability,
		&p.RiskProfile, &p.ScoreTolerance, &p.ScoreCapacity, &p.ScoreBehavior,
		&p.ScoreHorizon, &p.ScoreKnowledge, &p.ScoreTotal,
		&p.CashTargetPct, &p.MaxPositionPct, &p.MaxAssetClassPct, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get profile")
	}
	return &p, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p *model.UserProfile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, first_name, age, investment_horizon,
			max_acceptable_loss, financial_resilience_months, income_stability,
			risk_profile, score_tolerance, score_capacity, score_behavior,
			score_horizon, score_knowledge, score_total,
			cash_target_pct, max_position_pct, max_asset_class_pct, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			age = EXCLUDED.age,
			investment_horizon = EXCLUDED.investment_horizon,
			max_acceptable_loss = EXCLUDED.max_acceptable_loss,
			financial_resilience_months = EXCLUDED.financial_resilience_months,
			income_stability = EXCLUDED.income_stability,
			risk_profile = EXCLUDED.risk_profile,
			score_tolerance = EXCLUDED.score_tolerance,
			score_capacity = EXCLUDED.score_capacity,
			score_behavior = EXCLUDED.score_behavior,
			score_horizon = EXCLUDED.score_horizon,
			score_knowledge = EXCLUDED.score_knowledge,
			score_total = EXCLUDED.score_total,
			cash_target_pct = EXCLUDED.cash_target_pct,
			max_position_pct = EXCLUDED.max_position_pct,
			max_asset_class_pct = EXCLUDED.max_asset_class_pct,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.FirstName, p.Age, p.InvestmentHorizon, p.MaxAcceptableLoss,
		p.FinancialResilienceMonths, p.IncomeStability, p.RiskProfile,
		p.ScoreTolerance, p.ScoreCapacity, p.ScoreBehavior, p.ScoreHorizon,
		p.ScoreKnowledge, p.ScoreTotal,
		p.CashTargetPct, p.MaxPositionPct, p.MaxAssetClassPct, p.UpdatedAt.UTC())
	return eris.Wrap(err, "postgres: save profile")
}

func (s *PostgresStore) UpdateThresholds(ctx context.Context, userID string, patch model.ThresholdPatch, updatedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, cash_target_pct, max_position_pct, max_asset_class_pct, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			cash_target_pct = COALESCE(EXCLUDED.cash_target_pct, profiles.cash_target_pct),
			max_position_pct = COALESCE(EXCLUDED.max_position_pct, profiles.max_position_pct),
			max_asset_class_pct = COALESCE(EXCLUDED.max_asset_class_pct, profiles.max_asset_class_pct),
			updated_at = EXCLUDED.updated_at`,
		userID, patch.CashTargetPct, patch.MaxPositionPct, patch.MaxAssetClassPct, updatedAt.UTC())
	return eris.Wrap(err, "postgres: update thresholds")
}

func (s *PostgresStore) SaveRiskScores(ctx context.Context, userID string, r model.RiskProfileResult, updatedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, score_tolerance, score_capacity, score_behavior,
			score_horizon, score_knowledge, score_total, risk_profile, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			score_tolerance = EXCLUDED.score_tolerance,
			score_capacity = EXCLUDED.score_capacity,
			score_behavior = EXCLUDED.score_behavior,
			score_horizon = EXCLUDED.score_horizon,
			score_knowledge = EXCLUDED.score_knowledge,
			score_total = EXCLUDED.score_total,
			risk_profile = EXCLUDED.risk_profile,
			updated_at = EXCLUDED.updated_at`,
		userID, r.ScoreTolerance, r.ScoreCapacity, r.ScoreBehavior,
		r.ScoreHorizon, r.ScoreKnowledge, r.ScoreTotal, string(r.RiskProfile), updatedAt.UTC())
	return eris.Wrap(err, "postgres: save risk scores")
}

// --- Holdings ---

func (s *PostgresStore) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id FROM profiles
		UNION
		SELECT user_id FROM holdings
		ORDER BY user_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list user ids")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan user id")
		}
		out = append(out, id)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list user ids")
}

func (s *PostgresStore) ListHoldings(ctx context.Context, userID string) ([]model.Holding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, symbol, name, asset_class, quantity, unit_cost, currency, updated_at
		FROM holdings WHERE user_id = $1 ORDER BY symbol`, userID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list holdings")
	}
	defer rows.Close()

	var out []model.Holding
	for rows.Next() {
		var h model.Holding
		var qty, cost decimal.Decimal
		if err := rows.Scan(&h.ID, &h.UserID, &h.Symbol, &h.Name, &h.AssetClass,
			&qty, &cost, &h.Currency, &h.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan holding")
		}
		h.Quantity, h.UnitCost = qty, cost
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list holdings")
}

func (s *PostgresStore) UpsertHolding(ctx context.Context, h *model.Holding) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.UpdatedAt.IsZero() {
		h.UpdatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO holdings (id, user_id, symbol, name, asset_class, quantity, unit_cost, currency, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, symbol) DO UPDATE SET
			name = EXCLUDED.name,
			asset_class = EXCLUDED.asset_class,
			quantity = EXCLUDED.quantity,
			unit_cost = EXCLUDED.unit_cost,
			currency = EXCLUDED.currency,
			updated_at = EXCLUDED.updated_at`,
		h.ID, h.UserID, h.Symbol, h.Name, string(h.AssetClass),
		h.Quantity, h.UnitCost, h.Currency, h.UpdatedAt.UTC())
	return eris.Wrap(err, "postgres: upsert holding")
}

func (s *PostgresStore) DeleteHolding(ctx context.Context, userID, holdingID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM holdings WHERE user_id = $1 AND id = $2`, userID, holdingID)
	return eris.Wrap(err, "postgres: delete holding")
}

// --- Accounts ---

func (s *PostgresStore) ListAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, kind, balance, currency, updated_at
		FROM accounts WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list accounts")
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Kind, &a.Balance,
			&a.Currency, &a.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan account")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list accounts")
}

func (s *PostgresStore) UpsertAccount(ctx context.Context, a *model.Account) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, user_id, name, kind, balance, currency, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			kind = EXCLUDED.kind,
			balance = EXCLUDED.balance,
			currency = EXCLUDED.currency,
			updated_at = EXCLUDED.updated_at`,
		a.ID, a.UserID, a.Name, string(a.Kind), a.Balance, a.Currency, a.UpdatedAt.UTC())
	return eris.Wrap(err, "postgres: upsert account")
}

// --- Quote cache ---

func (s *PostgresStore) GetCachedQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT symbol, price, currency, fetched_at FROM quote_cache
		WHERE symbol = $1 AND expires_at > now()`, symbol)

	var q model.Quote
	err := row.Scan(&q.Symbol, &q.Price, &q.Currency, &q.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached quote")
	}
	return &q, nil
}

func (s *PostgresStore) SetCachedQuote(ctx context.Context, q model.Quote, ttl time.Duration) error {
	now := time.Now().UTC()
	if q.FetchedAt.IsZero() {
		q.FetchedAt = now
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quote_cache (symbol, price, currency, fetched_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol) DO UPDATE SET
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			fetched_at = EXCLUDED.fetched_at,
			expires_at = EXCLUDED.expires_at`,
		q.Symbol, q.Price, q.Currency, q.FetchedAt.UTC(), now.Add(ttl))
	return eris.Wrap(err, "postgres: set cached quote")
}

// --- Snapshots ---

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO snapshots (id, user_id, taken_at, total_value, invested, cash, pnl, pnl_pct)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		snap.ID, snap.UserID, snap.TakenAt.UTC(), snap.TotalValue,
		snap.Invested, snap.Cash, snap.PnL, snap.PnLPct)
	return eris.Wrap(err, "postgres: save snapshot")
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, userID string, limit int) ([]model.Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, taken_at, total_value, invested, cash, pnl, pnl_pct
		FROM snapshots WHERE user_id = $1 ORDER BY taken_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		if err := rows.Scan(&snap.ID, &snap.UserID, &snap.TakenAt,
			&snap.TotalValue, &snap.Invested, &snap.Cash, &snap.PnL, &snap.PnLPct); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		out = append(out, snap)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list snapshots")
}

// --- Decisions ---

func (s *PostgresStore) ReplaceDecisions(ctx context.Context, userID string, decisions []model.Decision) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace decisions")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM decisions WHERE user_id = $1`, userID); err != nil {
		return eris.Wrap(err, "postgres: clear decisions")
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
				return eris.Wrap(err, "postgres: marshal decision details")
			}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO decisions (id, user_id, type, severity, message, details, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			d.ID, userID, string(d.Type), d.Severity, d.Message, details, d.CreatedAt.UTC()); err != nil {
			return eris.Wrap(err, "postgres: insert decision")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace decisions")
}

func (s *PostgresStore) ListDecisions(ctx context.Context, userID string) ([]model.Decision, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, type, severity, message, details, created_at
		FROM decisions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list decisions")
	}
	defer rows.Close()

	var out []model.Decision
	for rows.Next() {
		var d model.Decision
		var details []byte
		if err := rows.Scan(&d.ID, &d.UserID, &d.Type, &d.Severity, &d.Message,
			&details, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan decision")
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &d.Details); err != nil {
				return nil, eris.Wrapf(err, "postgres: decision %s details", d.ID)
			}
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list decisions")
}
