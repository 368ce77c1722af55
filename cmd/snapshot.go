package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/patrimoine-app/patrimoine/internal/market"
	"github.com/patrimoine-app/patrimoine/internal/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Record portfolio valuations",
}

var snapshotRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Value every portfolio once and record the snapshots",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("snapshot"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		job := snapshot.NewJob(st, market.NewClient(cfg.Market, st))
		return job.RunOnce(ctx)
	},
}

var snapshotScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the snapshot job on the configured cron schedule",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("snapshot"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		job := snapshot.NewJob(st, market.NewClient(cfg.Market, st))
		sched, err := snapshot.NewScheduler(job, cfg.Snapshot.Schedule)
		if err != nil {
			return err
		}

		sched.Start()
		zap.L().Info("snapshot schedule active", zap.String("spec", cfg.Snapshot.Schedule))
		<-ctx.Done()
		sched.Stop()
		return nil
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotRunCmd, snapshotScheduleCmd)
	rootCmd.AddCommand(snapshotCmd)
}
