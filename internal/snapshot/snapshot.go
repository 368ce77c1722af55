// Package snapshot records periodic portfolio valuations so users can see
// how their total value evolves over time.
package snapshot

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/patrimoine-app/patrimoine/internal/store"
	"github.com/patrimoine-app/patrimoine/internal/valuation"
)

const maxConcurrentUsers = 4

// Job values every known portfolio and persists the result.
type Job struct {
	store  store.Store
	prices valuation.PriceSource
}

// NewJob builds a snapshot job. prices may be nil, in which case holdings
// are valued at cost.
func NewJob(st store.Store, prices valuation.PriceSource) *Job {
	return &Job{store: st, prices: prices}
}

// RunOnce snapshots all users. Per-user failures are logged and do not stop
// the run; the first error is returned after every user was attempted.
func (j *Job) RunOnce(ctx context.Context) error {
	userIDs, err := j.store.ListUserIDs(ctx)
	if err != nil {
		return eris.Wrap(err, "snapshot: list users")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUsers)
	for _, userID := range userIDs {
		g.Go(func() error {
			if err := j.snapshotUser(ctx, userID); err != nil {
				zap.L().Warn("snapshot failed",
					zap.String("user_id", userID),
					zap.Error(err))
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "snapshot: run")
	}
	zap.L().Info("snapshot run complete", zap.Int("users", len(userIDs)))
	return nil
}

func (j *Job) snapshotUser(ctx context.Context, userID string) error {
	holdings, err := j.store.ListHoldings(ctx, userID)
	if err != nil {
		return err
	}
	accounts, err := j.store.ListAccounts(ctx, userID)
	if err != nil {
		return err
	}
	if len(holdings) == 0 && len(accounts) == 0 {
		return nil
	}

	v, err := valuation.Compute(ctx, holdings, accounts, j.prices)
	if err != nil {
		return err
	}
	return j.store.SaveSnapshot(ctx, v.Snapshot(userID))
}

// Scheduler runs the snapshot job on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	job  *Job
}

// NewScheduler registers the job under the given cron spec (standard five
// field format).
func NewScheduler(job *Job, spec string) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		ctx := context.Background()
		if err := job.RunOnce(ctx); err != nil {
			zap.L().Error("scheduled snapshot run failed", zap.Error(err))
		}
	}); err != nil {
		return nil, eris.Wrapf(err, "snapshot: register schedule %q", spec)
	}
	return &Scheduler{cron: c, job: job}, nil
}

// Start launches the cron loop in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	zap.L().Info("snapshot scheduler started")
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	zap.L().Info("snapshot scheduler stopped")
}
