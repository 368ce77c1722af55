package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/patrimoine-app/patrimoine/internal/model"
)

var holdingsCmd = &cobra.Command{
	Use:   "holdings",
	Short: "Manage portfolio holdings",
}

var holdingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's holdings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		userID, _ := cmd.Flags().GetString("user")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		holdings, err := st.ListHoldings(ctx, userID)
		if err != nil {
			return err
		}
		return printJSON(holdings)
	},
}

var holdingsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import holdings from CSV",
	Long: `Imports holdings from a CSV file with a header row:

  symbol,name,asset_class,quantity,unit_cost,currency

Rows upsert by (user, symbol): re-importing the same file is safe.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		userID, _ := cmd.Flags().GetString("user")
		path, _ := cmd.Flags().GetString("csv")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		f, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "open csv %s", path)
		}
		defer f.Close()

		imported, err := importHoldingsCSV(ctx, f, userID, st.UpsertHolding)
		if err != nil {
			return err
		}

		zap.L().Info("holdings import complete",
			zap.String("user_id", userID),
			zap.Int("imported", imported),
			zap.String("csv", path),
		)
		return nil
	},
}

var holdingsDeleteCmd = &cobra.Command{
	Use:   "delete <holding-id>",
	Short: "Delete a holding by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		userID, _ := cmd.Flags().GetString("user")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		return st.DeleteHolding(ctx, userID, args[0])
	},
}

func init() {
	holdingsCmd.PersistentFlags().String("user", "", "user ID (required)")
	holdingsCmd.MarkPersistentFlagRequired("user") //nolint:errcheck

	holdingsImportCmd.Flags().String("csv", "", "path to CSV file (required)")
	holdingsImportCmd.MarkFlagRequired("csv") //nolint:errcheck

	holdingsCmd.AddCommand(holdingsListCmd, holdingsImportCmd, holdingsDeleteCmd)
	rootCmd.AddCommand(holdingsCmd)
}

func importHoldingsCSV(ctx context.Context, r io.Reader, userID string, upsert func(context.Context, *model.Holding) error) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, eris.Wrap(err, "read csv header")
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"symbol", "asset_class", "quantity", "unit_cost"} {
		if _, ok := col[required]; !ok {
			return 0, eris.Errorf("csv missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	imported := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, eris.Wrapf(err, "read csv line %d", line)
		}

		qty, err := decimal.NewFromString(field(record, "quantity"))
		if err != nil {
			return imported, eris.Wrapf(err, "csv line %d: quantity", line)
		}
		cost, err := decimal.NewFromString(field(record, "unit_cost"))
		if err != nil {
			return imported, eris.Wrapf(err, "csv line %d: unit_cost", line)
		}

		h := &model.Holding{
			UserID:     userID,
			Symbol:     field(record, "symbol"),
			Name:       field(record, "name"),
			AssetClass: model.AssetClass(field(record, "asset_class")),
			Quantity:   qty,
			UnitCost:   cost,
			Currency:   field(record, "currency"),
		}
		if h.Currency == "" {
			h.Currency = "EUR"
		}
		if err := upsert(ctx, h); err != nil {
			return imported, eris.Wrapf(err, "csv line %d: upsert %s", line, h.Symbol)
		}
		imported++
	}
	return imported, nil
}
