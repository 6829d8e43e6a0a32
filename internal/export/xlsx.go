package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	documentsSheet = "Documents"
	servicesSheet  = "Services"
)

var serviceColumns = []string{
	"Source Name",
	"Account Number",
	"Billing Period",
	"#",
	"Category",
	"Service",
	"Volume",
	"Unit",
	"Tariff",
	"Charged",
	"Recalculation",
	"Debt",
	"Paid",
	"Total",
}

// WriteXLSX writes a workbook with a document sheet and a service row sheet.
func WriteXLSX(out io.Writer, recs []Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// The default workbook starts with "Sheet1".
	if err := f.SetSheetName("Sheet1", documentsSheet); err != nil {
		return fmt.Errorf("xlsx rename sheet: %w", err)
	}
	if _, err := f.NewSheet(servicesSheet); err != nil {
		return fmt.Errorf("xlsx new sheet: %w", err)
	}

	if err := writeRow(f, documentsSheet, 1, toAny(documentColumns)); err != nil {
		return err
	}
	if err := writeRow(f, servicesSheet, 1, toAny(serviceColumns)); err != nil {
		return err
	}

	svcRow := 2
	for i := range recs {
		rec := &recs[i]
		if err := writeRow(f, documentsSheet, i+2, toAny(documentRow(rec))); err != nil {
			return err
		}
		account := deref(rec.Document.AccountNumber)
		period := formatPeriod(&rec.Document)
		for j := range rec.Services {
			s := &rec.Services[j]
			values := []any{
				rec.Document.SourceName,
				account,
				period,
				s.OrderIndex + 1,
				s.Category,
				s.Name,
				formatNumber(s.Volume),
				deref(s.Unit),
				formatNumber(s.Tariff),
				formatMoney(s.Charged),
				formatMoney(s.Recalculation),
				formatMoney(s.Debt),
				formatMoney(s.Paid),
				s.Total.StringFixed(2),
			}
			if err := writeRow(f, servicesSheet, svcRow, values); err != nil {
				return err
			}
			svcRow++
		}
	}

	_ = f.SetColWidth(documentsSheet, "A", "A", 28)
	_ = f.SetColWidth(documentsSheet, "D", "E", 36)
	_ = f.SetColWidth(servicesSheet, "F", "F", 36)

	if err := f.Write(out); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("xlsx row %d: %w", row, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
