// Package pipeline assembles a ParsedDocument from extracted EPD text.
package pipeline

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"epdparser/internal/epd"
	"epdparser/internal/epd/locator"
	"epdparser/internal/epd/profile"
	"epdparser/internal/epd/table"
	"epdparser/internal/epd/textnorm"
	"epdparser/internal/validator"
)

// Input is the text of one document plus an optional identifier used in logs.
type Input struct {
	Text       string
	SourceName string
}

// Option configures a Parser.
type Option func(*options)

type options struct {
	logger *zap.Logger
	now    func() time.Time
}

// WithLogger sets the logger. Parsing logs only at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides the clock used by the period plausibility window.
// Results depend on the clock only through that window, so callers that need
// identical output across runs pin it here or set validation.max_year.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Parser runs normalization, field location, table segmentation and
// validation. It holds only read-only data and is safe for concurrent use.
type Parser struct {
	minLines  int
	locator   *locator.Locator
	table     *table.Parser
	validator *validator.Engine
	logger    *zap.Logger
}

// New builds a Parser from a compiled profile.
func New(p *profile.Profile, opts ...Option) *Parser {
	o := options{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	settings := validator.SettingsFromProfile(p.Validation)
	settings.Now = o.now

	return &Parser{
		minLines:  p.MinLines,
		locator:   locator.New(p),
		table:     table.New(p, o.logger),
		validator: validator.NewDefaultEngine(settings, o.logger),
		logger:    o.logger,
	}
}

// Parse always returns a document; failures are expressed through field
// confidence, parse status and warnings.
func (p *Parser) Parse(in Input) epd.ParsedDocument {
	doc := epd.ParsedDocument{
		SourceName:      in.SourceName,
		Services:        []epd.ServiceCharge{},
		Recalculations:  []epd.Recalculation{},
		FieldConfidence: make(map[epd.FieldName]epd.Confidence, len(epd.ScalarFields)),
		Warnings:        []epd.ValidationWarning{},
	}
	for _, f := range epd.ScalarFields {
		doc.FieldConfidence[f] = epd.ConfidenceMissing
	}

	lines := textnorm.Normalize(in.Text)
	if len(lines) < p.minLines {
		p.logger.Debug("pipeline: too few lines",
			zap.String("source", in.SourceName), zap.Int("lines", len(lines)))
		doc.Status = epd.StatusUnsupported
		return doc
	}

	located := p.locator.Locate(lines)
	tables, err := p.table.Parse(lines)
	var tsErr *table.TableStructureError
	if errors.As(err, &tsErr) {
		p.logger.Debug("pipeline: no service table",
			zap.String("source", in.SourceName), zap.Int("lines", tsErr.Lines))
	}

	if len(located) == 0 && len(tables.Services) == 0 {
		doc.Status = epd.StatusUnsupported
		return doc
	}

	assign(&doc, located)
	if len(tables.Services) > 0 {
		doc.Services = tables.Services
	}
	if len(tables.Recalculations) > 0 {
		doc.Recalculations = tables.Recalculations
	}
	doc.Status = status(&doc)
	doc.Warnings = append(doc.Warnings, p.validator.Run(&doc)...)

	p.logger.Debug("pipeline: parsed",
		zap.String("source", in.SourceName),
		zap.String("status", string(doc.Status)),
		zap.Int("fields", len(located)),
		zap.Int("services", len(doc.Services)),
		zap.Int("skipped_rows", tables.Skipped),
		zap.Int("warnings", len(doc.Warnings)),
	)
	return doc
}

// Revalidate recomputes status and warnings after fields of a parsed
// document were changed outside the pipeline.
func (p *Parser) Revalidate(doc *epd.ParsedDocument) {
	doc.Warnings = []epd.ValidationWarning{}
	if doc.LocatedCount() == 0 && len(doc.Services) == 0 {
		doc.Status = epd.StatusUnsupported
		return
	}
	doc.Status = status(doc)
	doc.Warnings = append(doc.Warnings, p.validator.Run(doc)...)
}

func assign(doc *epd.ParsedDocument, located locator.Result) {
	for name, m := range located {
		doc.FieldConfidence[name] = m.Confidence
		switch name {
		case epd.FieldPayerName:
			doc.PayerName = stringPtr(m.Text)
		case epd.FieldAddress:
			doc.Address = stringPtr(m.Text)
		case epd.FieldAccountNumber:
			doc.AccountNumber = stringPtr(m.Text)
		case epd.FieldBillingPeriod:
			period := m.Period
			doc.BillingPeriod = &period
		case epd.FieldDueDate:
			due := m.Date
			doc.DueDate = &due
		case epd.FieldTotalAmount:
			doc.TotalAmount = decimal.NewNullDecimal(m.Amount)
		case epd.FieldTotalWithInsurance:
			doc.TotalWithInsurance = decimal.NewNullDecimal(m.Amount)
		}
	}
}

func status(doc *epd.ParsedDocument) epd.ParseStatus {
	if doc.PayerName != nil && doc.AccountNumber != nil && doc.TotalAmount.Valid && len(doc.Services) > 0 {
		return epd.StatusComplete
	}
	return epd.StatusPartial
}

func stringPtr(s string) *string { return &s }
