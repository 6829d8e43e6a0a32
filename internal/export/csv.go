// Package export renders stored documents as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"epdparser/internal/domain"
)

// BOM is the UTF-8 byte order mark so Excel on Windows reads Cyrillic correctly.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Record is one exported document together with its service rows.
type Record struct {
	Document domain.Document
	Services []domain.ServiceChargeRecord
}

var documentColumns = []string{
	"Source Name",
	"Processing Status",
	"Parse Status",
	"Payer Name",
	"Address",
	"Account Number",
	"Billing Period",
	"Due Date",
	"Total Amount",
	"Total With Insurance",
	"Services Total",
	"Service Count",
	"Warning Count",
	"Parsed At",
	"Created At",
}

// Writer wraps csv.Writer for exporting documents as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the document header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(documentColumns)
}

// WriteRecords writes one row per document.
func (w *Writer) WriteRecords(recs []Record) error {
	for i := range recs {
		if err := w.csv.Write(documentRow(&recs[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// WriteCSV writes the BOM, the header and all records to out.
func WriteCSV(out io.Writer, recs []Record) error {
	if _, err := out.Write(BOM); err != nil {
		return err
	}
	w := NewWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.WriteRecords(recs); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// documentRow leaves parse columns empty for documents that were never parsed.
func documentRow(rec *Record) []string {
	doc := &rec.Document
	row := make([]string, len(documentColumns))
	row[0] = doc.SourceName
	row[1] = string(doc.ProcessingStatus)
	row[13] = formatTime(doc.ParsedAt)
	row[14] = doc.CreatedAt.Format(time.RFC3339)
	if doc.ParsedAt == nil {
		return row
	}

	row[2] = string(doc.ParseStatus)
	row[3] = deref(doc.PayerName)
	row[4] = deref(doc.Address)
	row[5] = deref(doc.AccountNumber)
	row[6] = formatPeriod(doc)
	if doc.DueDate != nil {
		row[7] = doc.DueDate.Format("02.01.2006")
	}
	row[8] = formatMoney(doc.TotalAmount)
	row[9] = formatMoney(doc.TotalWithInsurance)
	row[10] = formatMoney(doc.ServicesTotal)
	row[11] = strconv.Itoa(len(rec.Services))
	row[12] = strconv.Itoa(doc.WarningCount)
	return row
}

func formatMoney(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.StringFixed(2)
}

func formatNumber(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.String()
}

func formatPeriod(doc *domain.Document) string {
	p := doc.Period()
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%02d.%d", p.Month, p.Year)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
