// Package export writes a user's portfolio to an xlsx workbook.
package export

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/patrimoine-app/patrimoine/internal/model"
	"github.com/patrimoine-app/patrimoine/internal/store"
)

const snapshotHistoryLimit = 250

// Exporter builds xlsx workbooks from stored portfolio data.
type Exporter struct {
	store store.Store
}

func NewExporter(st store.Store) *Exporter {
	return &Exporter{store: st}
}

// WriteWorkbook writes one workbook for the user with a sheet per concern:
// holdings, accounts and snapshot history.
func (e *Exporter) WriteWorkbook(ctx context.Context, userID string, w io.Writer) error {
	holdings, err := e.store.ListHoldings(ctx, userID)
	if err != nil {
		return eris.Wrap(err, "export: list holdings")
	}
	accounts, err := e.store.ListAccounts(ctx, userID)
	if err != nil {
		return eris.Wrap(err, "export: list accounts")
	}
	snapshots, err := e.store.ListSnapshots(ctx, userID, snapshotHistoryLimit)
	if err != nil {
		return eris.Wrap(err, "export: list snapshots")
	}

	f := xlsx.NewFile()
	if err := writeHoldingsSheet(f, holdings); err != nil {
		return err
	}
	if err := writeAccountsSheet(f, accounts); err != nil {
		return err
	}
	if err := writeSnapshotsSheet(f, snapshots); err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write workbook")
}

func writeHoldingsSheet(f *xlsx.File, holdings []model.Holding) error {
	sheet, err := f.AddSheet("Positions")
	if err != nil {
		return eris.Wrap(err, "export: add positions sheet")
	}
	addHeader(sheet, "Symbole", "Nom", "Classe", "Quantité", "PRU", "Investi", "Devise")
	for _, h := range holdings {
		row := sheet.AddRow()
		row.AddCell().SetString(h.Symbol)
		row.AddCell().SetString(h.Name)
		row.AddCell().SetString(string(h.AssetClass))
		row.AddCell().SetString(h.Quantity.String())
		row.AddCell().SetString(h.UnitCost.String())
		row.AddCell().SetString(h.Invested().String())
		row.AddCell().SetString(h.Currency)
	}
	return nil
}

func writeAccountsSheet(f *xlsx.File, accounts []model.Account) error {
	sheet, err := f.AddSheet("Comptes")
	if err != nil {
		return eris.Wrap(err, "export: add accounts sheet")
	}
	addHeader(sheet, "Nom", "Type", "Solde", "Devise")
	for _, a := range accounts {
		row := sheet.AddRow()
		row.AddCell().SetString(a.Name)
		row.AddCell().SetString(string(a.Kind))
		row.AddCell().SetString(a.Balance.String())
		row.AddCell().SetString(a.Currency)
	}
	return nil
}

func writeSnapshotsSheet(f *xlsx.File, snapshots []model.Snapshot) error {
	sheet, err := f.AddSheet("Historique")
	if err != nil {
		return eris.Wrap(err, "export: add history sheet")
	}
	addHeader(sheet, "Date", "Valeur totale", "Investi", "Liquidités", "Plus-value", "Plus-value %")
	// Stored newest first; export oldest first so the sheet reads as a timeline.
	for i := len(snapshots) - 1; i >= 0; i-- {
		s := snapshots[i]
		row := sheet.AddRow()
		row.AddCell().SetString(s.TakenAt.Format("2006-01-02"))
		row.AddCell().SetString(s.TotalValue.String())
		row.AddCell().SetString(s.Invested.String())
		row.AddCell().SetString(s.Cash.String())
		row.AddCell().SetString(s.PnL.String())
		row.AddCell().SetFloatWithFormat(s.PnLPct, "0.00")
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, titles ...string) {
	row := sheet.AddRow()
	for _, title := range titles {
		row.AddCell().SetString(title)
	}
}
