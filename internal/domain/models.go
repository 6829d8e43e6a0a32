package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"epdparser/internal/epd"
)

// Document is a stored EPD together with its latest parse result.
type Document struct {
	ID               uuid.UUID        `db:"id" json:"id"`
	SourceName       string           `db:"source_name" json:"source_name"`
	FileType         FileType         `db:"file_type" json:"file_type"`
	FileSize         int64            `db:"file_size" json:"file_size"`
	ContentType      string           `db:"content_type" json:"content_type"`
	StorageKey       string           `db:"storage_key" json:"storage_key"`
	RawText          string           `db:"raw_text" json:"-"`
	ProcessingStatus ProcessingStatus `db:"processing_status" json:"processing_status"`
	ProcessingError  string           `db:"processing_error" json:"processing_error,omitempty"`
	Attempts         int              `db:"attempts" json:"attempts"`

	ParseStatus        epd.ParseStatus     `db:"parse_status" json:"parse_status,omitempty"`
	PayerName          *string             `db:"payer_name" json:"payer_name"`
	Address            *string             `db:"address" json:"address"`
	AccountNumber      *string             `db:"account_number" json:"account_number"`
	PeriodMonth        *int                `db:"period_month" json:"period_month"`
	PeriodYear         *int                `db:"period_year" json:"period_year"`
	DueDate            *time.Time          `db:"due_date" json:"due_date"`
	TotalAmount        decimal.NullDecimal `db:"total_amount" json:"total_amount"`
	TotalWithInsurance decimal.NullDecimal `db:"total_with_insurance" json:"total_with_insurance"`
	ServicesTotal      decimal.NullDecimal `db:"services_total" json:"services_total"`
	FieldConfidence    json.RawMessage     `db:"field_confidence" json:"field_confidence"`
	Warnings           json.RawMessage     `db:"warnings" json:"warnings"`
	WarningCount       int                 `db:"warning_count" json:"warning_count"`
	ParsedAt           *time.Time          `db:"parsed_at" json:"parsed_at"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Period returns the billing period, or nil when it was not located.
func (d *Document) Period() *epd.Period {
	if d.PeriodMonth == nil || d.PeriodYear == nil {
		return nil
	}
	return &epd.Period{Month: *d.PeriodMonth, Year: *d.PeriodYear}
}

// ApplyParse copies the scalar part of a parse result onto the document.
func (d *Document) ApplyParse(res *epd.ParsedDocument, parsedAt time.Time) error {
	confidence, err := json.Marshal(res.FieldConfidence)
	if err != nil {
		return err
	}
	warnings, err := json.Marshal(res.Warnings)
	if err != nil {
		return err
	}

	d.ParseStatus = res.Status
	d.PayerName = res.PayerName
	d.Address = res.Address
	d.AccountNumber = res.AccountNumber
	d.PeriodMonth, d.PeriodYear = nil, nil
	if p := res.BillingPeriod; p != nil {
		month, year := p.Month, p.Year
		d.PeriodMonth, d.PeriodYear = &month, &year
	}
	d.DueDate = res.DueDate
	d.TotalAmount = res.TotalAmount
	d.TotalWithInsurance = res.TotalWithInsurance
	d.ServicesTotal = decimal.NullDecimal{}
	if len(res.Services) > 0 {
		d.ServicesTotal = decimal.NewNullDecimal(res.ServicesTotal())
	}
	d.FieldConfidence = confidence
	d.Warnings = warnings
	d.WarningCount = len(res.Warnings)
	d.ParsedAt = &parsedAt
	d.ProcessingStatus = ProcessingStatusCompleted
	d.ProcessingError = ""
	return nil
}

// ParsedDocument rebuilds the stored parse result from the document and its rows.
func (d *Document) ParsedDocument(services []ServiceChargeRecord, recalcs []RecalculationRecord) (epd.ParsedDocument, error) {
	res := epd.ParsedDocument{
		SourceName:         d.SourceName,
		PayerName:          d.PayerName,
		Address:            d.Address,
		AccountNumber:      d.AccountNumber,
		BillingPeriod:      d.Period(),
		DueDate:            d.DueDate,
		TotalAmount:        d.TotalAmount,
		TotalWithInsurance: d.TotalWithInsurance,
		Services:           make([]epd.ServiceCharge, len(services)),
		Recalculations:     make([]epd.Recalculation, len(recalcs)),
		FieldConfidence:    make(map[epd.FieldName]epd.Confidence, len(epd.ScalarFields)),
		Status:             d.ParseStatus,
		Warnings:           []epd.ValidationWarning{},
	}
	for _, f := range epd.ScalarFields {
		res.FieldConfidence[f] = epd.ConfidenceMissing
	}
	if len(d.FieldConfidence) > 0 {
		var stored map[epd.FieldName]epd.Confidence
		if err := json.Unmarshal(d.FieldConfidence, &stored); err != nil {
			return res, fmt.Errorf("decoding field confidence: %w", err)
		}
		for f, c := range stored {
			res.FieldConfidence[f] = c
		}
	}
	if len(d.Warnings) > 0 {
		if err := json.Unmarshal(d.Warnings, &res.Warnings); err != nil {
			return res, fmt.Errorf("decoding warnings: %w", err)
		}
	}
	for i := range services {
		res.Services[i] = services[i].ServiceCharge()
	}
	for i := range recalcs {
		res.Recalculations[i] = epd.Recalculation{
			OrderIndex:  recalcs[i].OrderIndex,
			ServiceName: recalcs[i].ServiceName,
			Reason:      recalcs[i].Reason,
			Amount:      recalcs[i].Amount,
		}
	}
	return res, nil
}

// ServiceChargeRecord is a stored service table row.
type ServiceChargeRecord struct {
	ID            uuid.UUID           `db:"id" json:"id"`
	DocumentID    uuid.UUID           `db:"document_id" json:"document_id"`
	OrderIndex    int                 `db:"order_index" json:"order_index"`
	Category      string              `db:"category" json:"category,omitempty"`
	Name          string              `db:"name" json:"name"`
	Volume        decimal.NullDecimal `db:"volume" json:"volume"`
	Unit          *string             `db:"unit" json:"unit"`
	Tariff        decimal.NullDecimal `db:"tariff" json:"tariff"`
	Charged       decimal.NullDecimal `db:"charged" json:"charged"`
	Recalculation decimal.NullDecimal `db:"recalculation" json:"recalculation"`
	Debt          decimal.NullDecimal `db:"debt" json:"debt"`
	Paid          decimal.NullDecimal `db:"paid" json:"paid"`
	Total         decimal.Decimal     `db:"total" json:"total"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
}

// ServiceCharge maps the record back to a parsed row.
func (r *ServiceChargeRecord) ServiceCharge() epd.ServiceCharge {
	return epd.ServiceCharge{
		OrderIndex:    r.OrderIndex,
		Category:      r.Category,
		Name:          r.Name,
		Volume:        r.Volume,
		Unit:          r.Unit,
		Tariff:        r.Tariff,
		Charged:       r.Charged,
		Recalculation: r.Recalculation,
		Debt:          r.Debt,
		Paid:          r.Paid,
		Total:         r.Total,
	}
}

// NewServiceChargeRecords maps parsed rows to records of a document.
func NewServiceChargeRecords(docID uuid.UUID, rows []epd.ServiceCharge) []ServiceChargeRecord {
	out := make([]ServiceChargeRecord, len(rows))
	for i := range rows {
		r := &rows[i]
		out[i] = ServiceChargeRecord{
			ID:            uuid.New(),
			DocumentID:    docID,
			OrderIndex:    r.OrderIndex,
			Category:      r.Category,
			Name:          r.Name,
			Volume:        r.Volume,
			Unit:          r.Unit,
			Tariff:        r.Tariff,
			Charged:       r.Charged,
			Recalculation: r.Recalculation,
			Debt:          r.Debt,
			Paid:          r.Paid,
			Total:         r.Total,
		}
	}
	return out
}

// RecalculationRecord is a stored recalculation table row.
type RecalculationRecord struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	DocumentID  uuid.UUID       `db:"document_id" json:"document_id"`
	OrderIndex  int             `db:"order_index" json:"order_index"`
	ServiceName string          `db:"service_name" json:"service_name"`
	Reason      string          `db:"reason" json:"reason,omitempty"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// NewRecalculationRecords maps parsed recalculations to records of a document.
func NewRecalculationRecords(docID uuid.UUID, rows []epd.Recalculation) []RecalculationRecord {
	out := make([]RecalculationRecord, len(rows))
	for i := range rows {
		out[i] = RecalculationRecord{
			ID:          uuid.New(),
			DocumentID:  docID,
			OrderIndex:  rows[i].OrderIndex,
			ServiceName: rows[i].ServiceName,
			Reason:      rows[i].Reason,
			Amount:      rows[i].Amount,
		}
	}
	return out
}

// DocumentDetail is a document with its table rows.
type DocumentDetail struct {
	Document
	Services       []ServiceChargeRecord `json:"services"`
	Recalculations []RecalculationRecord `json:"recalculations"`
}

// DocumentFilter narrows document listings. Zero values do not filter.
type DocumentFilter struct {
	AccountNumber string
	Period        *epd.Period
	Status        ProcessingStatus
	ParseStatus   epd.ParseStatus
	Offset        int
	Limit         int
}

// Stats aggregates document counts.
type Stats struct {
	TotalDocuments     int             `db:"total_documents" json:"total_documents"`
	Queued             int             `db:"queued" json:"queued"`
	Processing         int             `db:"processing" json:"processing"`
	Completed          int             `db:"completed" json:"completed"`
	Failed             int             `db:"failed" json:"failed"`
	ParseComplete      int             `db:"parse_complete" json:"parse_complete"`
	ParsePartial       int             `db:"parse_partial" json:"parse_partial"`
	ParseUnsupported   int             `db:"parse_unsupported" json:"parse_unsupported"`
	WithWarnings       int             `db:"with_warnings" json:"with_warnings"`
	DistinctAccounts   int             `db:"distinct_accounts" json:"distinct_accounts"`
	TotalAmountSum     decimal.Decimal `db:"total_amount_sum" json:"total_amount_sum"`
	ServiceChargeCount int             `db:"service_charge_count" json:"service_charge_count"`
}
