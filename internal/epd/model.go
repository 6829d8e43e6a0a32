// Package epd holds the in-memory result model produced by the EPD parsing pipeline.
package epd

import (
	"time"

	"github.com/shopspring/decimal"
)

// FieldName identifies a scalar field of a ParsedDocument.
type FieldName string

const (
	FieldPayerName          FieldName = "payer_name"
	FieldAddress            FieldName = "address"
	FieldAccountNumber      FieldName = "account_number"
	FieldBillingPeriod      FieldName = "billing_period"
	FieldDueDate            FieldName = "due_date"
	FieldTotalAmount        FieldName = "total_amount"
	FieldTotalWithInsurance FieldName = "total_with_insurance"
)

// ScalarFields lists every scalar field in a stable order.
var ScalarFields = []FieldName{
	FieldPayerName,
	FieldAddress,
	FieldAccountNumber,
	FieldBillingPeriod,
	FieldDueDate,
	FieldTotalAmount,
	FieldTotalWithInsurance,
}

// Confidence is how literally a located label matched its canonical form.
type Confidence string

const (
	ConfidenceExact   Confidence = "exact"
	ConfidenceFuzzy   Confidence = "fuzzy"
	ConfidenceMissing Confidence = "missing"
)

// ParseStatus is the overall verdict for one parse.
type ParseStatus string

const (
	StatusComplete    ParseStatus = "complete"
	StatusPartial     ParseStatus = "partial"
	StatusUnsupported ParseStatus = "unsupported"
)

// WarningKind classifies a ValidationWarning.
type WarningKind string

const (
	WarningTotalMismatch       WarningKind = "total_mismatch"
	WarningPeriodImplausible   WarningKind = "period_implausible"
	WarningInsuranceBelowTotal WarningKind = "insurance_below_total"
	WarningDueDateBeforePeriod WarningKind = "due_date_before_period"
)

// Period is a billing month.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// FirstDay returns the first day of the period in UTC.
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// ServiceCharge is one accepted row of the service table.
type ServiceCharge struct {
	OrderIndex    int                 `json:"order_index"`
	Category      string              `json:"category,omitempty"`
	Name          string              `json:"name"`
	Volume        decimal.NullDecimal `json:"volume"`
	Unit          *string             `json:"unit"`
	Tariff        decimal.NullDecimal `json:"tariff"`
	Charged       decimal.NullDecimal `json:"charged"`
	Recalculation decimal.NullDecimal `json:"recalculation"`
	Debt          decimal.NullDecimal `json:"debt"`
	Paid          decimal.NullDecimal `json:"paid"`
	Total         decimal.Decimal     `json:"total"`
}

// Recalculation is one row of the recalculation table.
type Recalculation struct {
	OrderIndex  int             `json:"order_index"`
	ServiceName string          `json:"service_name"`
	Reason      string          `json:"reason,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// ValidationWarning annotates a ParsedDocument without changing its status.
type ValidationWarning struct {
	Kind     WarningKind         `json:"kind"`
	Rule     string              `json:"rule"`
	Field    string              `json:"field"`
	Expected decimal.NullDecimal `json:"expected"`
	Computed decimal.NullDecimal `json:"computed"`
	Message  string              `json:"message"`
}

// ParsedDocument is the structured result of one parse.
type ParsedDocument struct {
	SourceName         string                   `json:"source_name,omitempty"`
	PayerName          *string                  `json:"payer_name"`
	Address            *string                  `json:"address"`
	AccountNumber      *string                  `json:"account_number"`
	BillingPeriod      *Period                  `json:"billing_period"`
	DueDate            *time.Time               `json:"due_date"`
	TotalAmount        decimal.NullDecimal      `json:"total_amount"`
	TotalWithInsurance decimal.NullDecimal      `json:"total_with_insurance"`
	Services           []ServiceCharge          `json:"services"`
	Recalculations     []Recalculation          `json:"recalculations"`
	FieldConfidence    map[FieldName]Confidence `json:"field_confidence"`
	Status             ParseStatus              `json:"parse_status"`
	Warnings           []ValidationWarning      `json:"warnings"`
}

// InsuranceAmount is the voluntary insurance part of the bill, present only
// when both totals were located.
func (d *ParsedDocument) InsuranceAmount() decimal.NullDecimal {
	if !d.TotalAmount.Valid || !d.TotalWithInsurance.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d.TotalWithInsurance.Decimal.Sub(d.TotalAmount.Decimal))
}

// ServicesTotal sums the totals of all service rows.
func (d *ParsedDocument) ServicesTotal() decimal.Decimal {
	sum := decimal.Zero
	for i := range d.Services {
		sum = sum.Add(d.Services[i].Total)
	}
	return sum
}

// LocatedCount counts scalar fields matched with tier exact or fuzzy.
func (d *ParsedDocument) LocatedCount() int {
	n := 0
	for _, c := range d.FieldConfidence {
		if c == ConfidenceExact || c == ConfidenceFuzzy {
			n++
		}
	}
	return n
}
