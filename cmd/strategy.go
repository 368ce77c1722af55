package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/patrimoine-app/patrimoine/internal/model"
	"github.com/patrimoine-app/patrimoine/internal/profile"
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Inspect or adjust a user's effective strategy",
}

var strategyGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the effective strategy (archetype defaults merged with overrides)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withResolver(cmd, func(ctx context.Context, r *profile.Resolver, userID string) error {
			s, err := r.Strategy(ctx, userID)
			if err != nil {
				return err
			}
			return printJSON(s)
		})
	},
}

var strategySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Override allocation thresholds (only the flags you pass change)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withResolver(cmd, func(ctx context.Context, r *profile.Resolver, userID string) error {
			patch := model.ThresholdPatch{}
			if cmd.Flags().Changed("cash-target") {
				v, _ := cmd.Flags().GetFloat64("cash-target")
				patch.CashTargetPct = &v
			}
			if cmd.Flags().Changed("max-position") {
				v, _ := cmd.Flags().GetFloat64("max-position")
				patch.MaxPositionPct = &v
			}
			if cmd.Flags().Changed("max-asset-class") {
				v, _ := cmd.Flags().GetFloat64("max-asset-class")
				patch.MaxAssetClassPct = &v
			}
			if patch.IsEmpty() {
				return eris.New("nothing to change: pass at least one of --cash-target, --max-position, --max-asset-class")
			}
			if err := r.SaveThresholds(ctx, userID, patch); err != nil {
				return err
			}
			s, err := r.Strategy(ctx, userID)
			if err != nil {
				return err
			}
			return printJSON(s)
		})
	},
}

var strategyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset thresholds to the archetype defaults",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withResolver(cmd, func(ctx context.Context, r *profile.Resolver, userID string) error {
			if err := r.ResetToDefaults(ctx, userID); err != nil {
				return err
			}
			s, err := r.Strategy(ctx, userID)
			if err != nil {
				return err
			}
			return printJSON(s)
		})
	},
}

func init() {
	strategyCmd.PersistentFlags().String("user", "", "user ID (required)")
	strategyCmd.MarkPersistentFlagRequired("user") //nolint:errcheck

	f := strategySetCmd.Flags()
	f.Float64("cash-target", 0, "target cash allocation in percent")
	f.Float64("max-position", 0, "maximum single position weight in percent")
	f.Float64("max-asset-class", 0, "maximum asset class weight in percent")

	strategyCmd.AddCommand(strategyGetCmd, strategySetCmd, strategyResetCmd)
	rootCmd.AddCommand(strategyCmd)
}

func withResolver(cmd *cobra.Command, fn func(context.Context, *profile.Resolver, string) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	userID, _ := cmd.Flags().GetString("user")

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(ctx, profile.NewResolver(st), userID)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal output")
	}
	fmt.Println(string(out))
	return nil
}
