// Package store persists profiles, holdings, accounts, snapshots and
// decisions behind a single interface with sqlite and postgres backends.
package store

import (
	"context"
	"time"

	"github.com/patrimoine-app/patrimoine/internal/model"
)

// Store defines the persistence interface for the tracker. Lookups that
// find nothing return (nil, nil); errors are reserved for real storage
// failures and propagate to the caller unchanged.
type Store interface {
	// Profiles
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	SaveProfile(ctx context.Context, p *model.UserProfile) error
	UpdateThresholds(ctx context.Context, userID string, patch model.ThresholdPatch, updatedAt time.Time) error
	SaveRiskScores(ctx context.Context, userID string, r model.RiskProfileResult, updatedAt time.Time) error

	// Holdings
	ListUserIDs(ctx context.Context) ([]string, error)
	ListHoldings(ctx context.Context, userID string) ([]model.Holding, error)
	UpsertHolding(ctx context.Context, h *model.Holding) error
	DeleteHolding(ctx context.Context, userID, holdingID string) error

	// Accounts
	ListAccounts(ctx context.Context, userID string) ([]model.Account, error)
	UpsertAccount(ctx context.Context, a *model.Account) error

	// Quote cache
	GetCachedQuote(ctx context.Context, symbol string) (*model.Quote, error)
	SetCachedQuote(ctx context.Context, q model.Quote, ttl time.Duration) error

	// Snapshots
	SaveSnapshot(ctx context.Context, s *model.Snapshot) error
	ListSnapshots(ctx context.Context, userID string, limit int) ([]model.Snapshot, error)

	// Decisions
	ReplaceDecisions(ctx context.Context, userID string, decisions []model.Decision) error
	ListDecisions(ctx context.Context, userID string) ([]model.Decision, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
