package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/patrimoine-app/patrimoine/internal/model"
	"github.com/patrimoine-app/patrimoine/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score an onboarding questionnaire into a risk profile",
	Long: `Reads questionnaire answers from a JSON file and computes the risk
profile: five weighted sub-scores (tolerance, capacity, behavior, horizon,
knowledge), a 0-100 total, and a label from Prudent to Très dynamique.

Examples:
  # Score answers and print the result
  patrimoine score --answers answers.json

  # Score and persist for a user
  patrimoine score --answers answers.json --user u1 --save`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("answers", "", "path to the answers JSON file (required)")
	f.String("user", "", "user ID to persist the scores under")
	f.Bool("save", false, "persist scores and answers to the store")
	scoreCmd.MarkFlagRequired("answers") //nolint:errcheck

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, _ := cmd.Flags().GetString("answers")
	userID, _ := cmd.Flags().GetString("user")
	save, _ := cmd.Flags().GetBool("save")

	answers, err := readAnswers(path)
	if err != nil {
		return err
	}

	result := scoring.Score(*answers)

	if save {
		if userID == "" {
			return eris.New("--user is required with --save")
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		now := time.Now().UTC()
		if err := st.SaveProfile(ctx, profileFromAnswers(userID, answers, now)); err != nil {
			return err
		}
		if err := st.SaveRiskScores(ctx, userID, result, now); err != nil {
			return err
		}
		zap.L().Info("risk scores saved",
			zap.String("user_id", userID),
			zap.Int("total", result.ScoreTotal),
			zap.String("label", string(result.RiskProfile)))
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal result")
	}
	fmt.Println(string(out))
	return nil
}

func readAnswers(path string) (*model.OnboardingAnswers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read answers file %s", path)
	}
	var answers model.OnboardingAnswers
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, eris.Wrap(err, "parse answers JSON")
	}
	return &answers, nil
}

// profileFromAnswers copies the signals the classifier needs off the
// questionnaire so later strategy reads see them.
func profileFromAnswers(userID string, a *model.OnboardingAnswers, now time.Time) *model.UserProfile {
	return &model.UserProfile{
		UserID:                    userID,
		InvestmentHorizon:         a.InvestmentHorizon,
		MaxAcceptableLoss:         a.MaxAcceptableLoss,
		FinancialResilienceMonths: a.SafetyMonths,
		IncomeStability:           a.IncomeStability,
		UpdatedAt:                 now,
	}
}
