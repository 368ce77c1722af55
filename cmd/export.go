package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/patrimoine-app/patrimoine/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's portfolio to an xlsx workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		userID, _ := cmd.Flags().GetString("user")
		output, _ := cmd.Flags().GetString("output")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		f, err := os.Create(output)
		if err != nil {
			return eris.Wrapf(err, "create %s", output)
		}
		defer f.Close()

		if err := export.NewExporter(st).WriteWorkbook(ctx, userID, f); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("user_id", userID),
			zap.String("output", output))
		return nil
	},
}

func init() {
	exportCmd.Flags().String("user", "", "user ID (required)")
	exportCmd.MarkFlagRequired("user") //nolint:errcheck
	exportCmd.Flags().String("output", "portfolio.xlsx", "output file path")

	rootCmd.AddCommand(exportCmd)
}
