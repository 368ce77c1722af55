package main

import (
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/patrimoine-app/patrimoine/internal/model"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage cash and investment accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's accounts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		userID, _ := cmd.Flags().GetString("user")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		accounts, err := st.ListAccounts(ctx, userID)
		if err != nil {
			return err
		}
		return printJSON(accounts)
	},
}

var accountsSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Create or update an account balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		userID, _ := cmd.Flags().GetString("user")
		kind, _ := cmd.Flags().GetString("kind")
		balanceStr, _ := cmd.Flags().GetString("balance")
		currency, _ := cmd.Flags().GetString("currency")

		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		a := &model.Account{
			UserID:   userID,
			Name:     args[0],
			Kind:     model.AccountKind(kind),
			Balance:  balance,
			Currency: currency,
		}
		if err := st.UpsertAccount(ctx, a); err != nil {
			return err
		}
		return printJSON(a)
	},
}

func init() {
	accountsCmd.PersistentFlags().String("user", "", "user ID (required)")
	accountsCmd.MarkPersistentFlagRequired("user") //nolint:errcheck

	f := accountsSetCmd.Flags()
	f.String("kind", string(model.AccountSavings), "account kind: cash, savings or brokerage")
	f.String("balance", "0", "current balance")
	f.String("currency", "EUR", "currency code")

	accountsCmd.AddCommand(accountsListCmd, accountsSetCmd)
	rootCmd.AddCommand(accountsCmd)
}
