package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/patrimoine-app/patrimoine/internal/strategy"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a user into a strategy archetype",
	Long: `Parses the stored onboarding signals (horizon, acceptable loss,
financial resilience) and classifies the user into one of four archetypes:
defensive, balanced, growth or high_volatility, with default allocation
thresholds and the reasons behind the decision.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().String("user", "", "user ID to classify (required)")
	classifyCmd.MarkFlagRequired("user") //nolint:errcheck

	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	userID, _ := cmd.Flags().GetString("user")

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := st.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if p == nil {
		return eris.Errorf("no profile found for user %s", userID)
	}

	result := strategy.Classify(p.Signals())
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal result")
	}
	fmt.Println(string(out))
	return nil
}
