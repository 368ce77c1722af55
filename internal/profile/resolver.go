// Package profile exposes the single read/write surface for a user's
// effective strategy: archetype, thresholds and completeness flags, merged
// from the persisted profile and the archetype defaults on every read.
package profile

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/patrimoine-app/patrimoine/internal/model"
	"github.com/patrimoine-app/patrimoine/internal/store"
	"github.com/patrimoine-app/patrimoine/internal/strategy"
)

// ErrAuthRequired is returned by the write paths when no authenticated user
// context is available.
var ErrAuthRequired = eris.New("profile: authenticated user required")

// memoTTL bounds read staleness. Thresholds change rarely; a short window is
// enough to absorb dashboard fan-out.
const memoTTL = 3 * time.Minute

// Invalidator marks one downstream cached view (profile, diversification,
// insights, decisions) stale after a threshold write.
type Invalidator interface {
	Name() string
	Invalidate(ctx context.Context, userID string) error
}

// Resolver merges persisted profiles with archetype defaults. Reads are
// memoized per user; writes go straight to the store and broadcast
// invalidation to every registered dependent view.
type Resolver struct {
	store store.Store

	mu           sync.Mutex
	memo         map[string]memoEntry
	invalidators []Invalidator

	now func() time.Time
}

type memoEntry struct {
	strategy model.UserStrategy
	at       time.Time
}

// NewResolver creates a Resolver on top of the given store.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{
		store: st,
		memo:  make(map[string]memoEntry),
		now:   time.Now,
	}
}

// RegisterInvalidator adds a dependent view to the post-write broadcast.
func (r *Resolver) RegisterInvalidator(inv Invalidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidators = append(r.invalidators, inv)
}

// Strategy returns the user's effective strategy. Without a persisted
// profile it returns the Balanced defaults with needs-onboarding set and a
// nil classification. Store errors propagate unchanged.
func (r *Resolver) Strategy(ctx context.Context, userID string) (model.UserStrategy, error) {
	r.mu.Lock()
	if e, ok := r.memo[userID]; ok && r.now().Sub(e.at) < memoTTL {
		r.mu.Unlock()
		return e.strategy, nil
	}
	r.mu.Unlock()

	us, err := r.resolve(ctx, userID)
	if err != nil {
		return model.UserStrategy{}, err
	}

	r.mu.Lock()
	r.memo[userID] = memoEntry{strategy: us, at: r.now()}
	r.mu.Unlock()
	return us, nil
}

// resolve recomputes the merged view, bypassing the memo.
func (r *Resolver) resolve(ctx context.Context, userID string) (model.UserStrategy, error) {
	p, err := r.store.GetProfile(ctx, userID)
	if err != nil {
		return model.UserStrategy{}, err
	}
	if p == nil {
		arch := model.ArchetypeBalanced
		return model.UserStrategy{
			Thresholds:      strategy.ArchetypeThresholds(arch),
			Archetype:       arch,
			Label:           arch.Label(),
			NeedsOnboarding: true,
		}, nil
	}

	cls := strategy.Classify(p.Signals())

	// The legacy free-text label wins over the classifier suggestion when
	// both exist. Observed behavior, preserved as-is.
	arch := cls.Archetype
	if legacy, ok := strategy.ArchetypeFromLabel(p.RiskProfile); ok {
		arch = legacy
	}

	thresholds := model.ThresholdPatch{
		CashTargetPct:    p.CashTargetPct,
		MaxPositionPct:   p.MaxPositionPct,
		MaxAssetClassPct: p.MaxAssetClassPct,
	}.Apply(strategy.ArchetypeThresholds(arch))

	complete := p.InvestmentHorizon != "" && p.MaxAcceptableLoss != ""

	return model.UserStrategy{
		Thresholds:      thresholds,
		Archetype:       arch,
		Label:           arch.Label(),
		Classification:  &cls,
		ProfileExists:   true,
		ProfileComplete: complete,
		NeedsOnboarding: !complete,
	}, nil
}

// SaveThresholds persists a partial threshold patch merged with a timestamp,
// then marks every dependent view stale. The write itself fails only on
// missing auth or a store error; invalidation failures are logged and
// swallowed.
func (r *Resolver) SaveThresholds(ctx context.Context, userID string, patch model.ThresholdPatch) error {
	if userID == "" {
		return ErrAuthRequired
	}
	if err := r.store.UpdateThresholds(ctx, userID, patch, r.now().UTC()); err != nil {
		return err
	}
	r.broadcastInvalidation(ctx, userID)
	return nil
}

// ResetToDefaults overwrites all three threshold fields with the current
// archetype's defaults. The archetype is recomputed first, so a user whose
// legacy label changed resets onto the new archetype, not the old overrides.
func (r *Resolver) ResetToDefaults(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrAuthRequired
	}
	us, err := r.resolve(ctx, userID)
	if err != nil {
		return err
	}
	defaults := strategy.ArchetypeThresholds(us.Archetype)
	patch := model.ThresholdPatch{
		CashTargetPct:    &defaults.CashTargetPct,
		MaxPositionPct:   &defaults.MaxPositionPct,
		MaxAssetClassPct: &defaults.MaxAssetClassPct,
	}
	if err := r.store.UpdateThresholds(ctx, userID, patch, r.now().UTC()); err != nil {
		return err
	}
	r.broadcastInvalidation(ctx, userID)
	return nil
}

// broadcastInvalidation drops the memo entry and notifies every dependent
// view in parallel, best effort. A view that fails to invalidate logs a
// warning; it never fails the write that triggered it.
func (r *Resolver) broadcastInvalidation(ctx context.Context, userID string) {
	r.mu.Lock()
	delete(r.memo, userID)
	invs := make([]Invalidator, len(r.invalidators))
	copy(invs, r.invalidators)
	r.mu.Unlock()

	if len(invs) == 0 {
		return
	}

	// Detached from the request context: the broadcast outlives the write.
	bctx := context.WithoutCancel(ctx)
	g, gctx := errgroup.WithContext(bctx)
	for _, inv := range invs {
		g.Go(func() error {
			if err := inv.Invalidate(gctx, userID); err != nil {
				zap.L().Warn("profile: view invalidation failed",
					zap.String("view", inv.Name()),
					zap.String("user_id", userID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck
}
