package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"epdparser/internal/domain"
	"epdparser/internal/epd"
	"epdparser/internal/epd/amount"
	"epdparser/internal/epd/pipeline"
	"epdparser/internal/port"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// UploadInput is the DTO for file uploads.
type UploadInput struct {
	File   multipart.File
	Header *multipart.FileHeader
}

// EditInput is a manual correction of a parsed document. Nil fields keep their
// stored value and an empty string clears a text field. A non-nil Services
// replaces every stored service row.
type EditInput struct {
	DocumentID         uuid.UUID
	PayerName          *string
	Address            *string
	AccountNumber      *string
	BillingPeriod      *epd.Period
	DueDate            *time.Time
	TotalAmount        *decimal.Decimal
	TotalWithInsurance *decimal.Decimal
	Services           []epd.ServiceCharge
}

// DocumentService defines the document management contract.
type DocumentService interface {
	// Upload extracts text from the file, archives it and queues it for parsing.
	Upload(ctx context.Context, input UploadInput) (*domain.Document, error)
	// ParseFile extracts and parses a file without storing anything.
	ParseFile(ctx context.Context, input UploadInput) (*epd.ParsedDocument, error)
	// ParseText parses already extracted text without storing anything.
	ParseText(ctx context.Context, text, sourceName string) (*epd.ParsedDocument, error)
	// ParseDocument parses a claimed document and stores the result.
	ParseDocument(ctx context.Context, doc *domain.Document, maxAttempts int)
	GetByID(ctx context.Context, docID uuid.UUID) (*domain.DocumentDetail, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, int, error)
	Reparse(ctx context.Context, docID uuid.UUID) (*domain.Document, error)
	// Edit applies a manual correction, revalidates and stores the result.
	Edit(ctx context.Context, input EditInput) (*domain.DocumentDetail, error)
	Source(ctx context.Context, docID uuid.UUID) (*domain.Document, []byte, error)
	Delete(ctx context.Context, docID uuid.UUID) error
}

type documentService struct {
	docRepo   port.DocumentRepository
	storage   port.ObjectStorage
	extractor port.TextExtractor
	parser    port.EPDParser
	maxBytes  int64
	logger    *zap.Logger
	now       func() time.Time
}

// NewDocumentService creates a new DocumentService implementation.
func NewDocumentService(
	docRepo port.DocumentRepository,
	storage port.ObjectStorage,
	extractor port.TextExtractor,
	parser port.EPDParser,
	maxBytes int64,
	logger *zap.Logger,
) DocumentService {
	return &documentService{
		docRepo:   docRepo,
		storage:   storage,
		extractor: extractor,
		parser:    parser,
		maxBytes:  maxBytes,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// sourceFile is a validated upload read into memory.
type sourceFile struct {
	name        string
	fileType    domain.FileType
	contentType string
	data        []byte
}

func (s *documentService) readUpload(input UploadInput) (*sourceFile, error) {
	name := filepath.Base(input.Header.Filename)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}
	if input.Header.Size > s.maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(input.File, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	// Magic-byte check so a renamed binary is not treated as text.
	detected, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	if domain.AllowedContentTypes[detected] != fileType {
		return nil, domain.ErrUnsupportedFileType
	}

	return &sourceFile{
		name:        name,
		fileType:    fileType,
		contentType: domain.AllowedFileTypes[fileType],
		data:        data,
	}, nil
}

func (s *documentService) Upload(ctx context.Context, input UploadInput) (*domain.Document, error) {
	src, err := s.readUpload(input)
	if err != nil {
		return nil, err
	}
	text, err := s.extractor.Extract(ctx, src.fileType, src.data)
	if err != nil {
		return nil, err
	}

	docID := uuid.New()
	key := fmt.Sprintf("documents/%s/%s", docID, src.name)
	_, err = s.storage.Upload(ctx, port.UploadInput{
		Key:         key,
		Body:        bytes.NewReader(src.data),
		ContentType: src.contentType,
		Size:        int64(len(src.data)),
	})
	if err != nil {
		s.logger.Error("documentService.Upload: storage upload failed",
			zap.Stringer("document_id", docID), zap.Error(err))
		return nil, domain.ErrUploadFailed
	}

	doc := &domain.Document{
		ID:               docID,
		SourceName:       src.name,
		FileType:         src.fileType,
		FileSize:         int64(len(src.data)),
		ContentType:      src.contentType,
		StorageKey:       key,
		RawText:          text,
		ProcessingStatus: domain.ProcessingStatusQueued,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("documentService.Upload: orphaned object", zap.String("key", key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("creating document: %w", err)
	}

	s.logger.Info("documentService.Upload: document queued",
		zap.Stringer("document_id", docID),
		zap.String("source", src.name),
		zap.Int64("size", doc.FileSize),
	)
	return doc, nil
}

func (s *documentService) ParseFile(ctx context.Context, input UploadInput) (*epd.ParsedDocument, error) {
	src, err := s.readUpload(input)
	if err != nil {
		return nil, err
	}
	text, err := s.extractor.Extract(ctx, src.fileType, src.data)
	if err != nil {
		return nil, err
	}
	return s.ParseText(ctx, text, src.name)
}

func (s *documentService) ParseText(ctx context.Context, text, sourceName string) (*epd.ParsedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyText
	}
	res := s.parser.Parse(pipeline.Input{Text: text, SourceName: sourceName})
	return &res, nil
}

func (s *documentService) ParseDocument(ctx context.Context, doc *domain.Document, maxAttempts int) {
	res := s.parser.Parse(pipeline.Input{Text: doc.RawText, SourceName: doc.SourceName})

	if err := ctx.Err(); err != nil {
		s.fail(doc, fmt.Sprintf("parse interrupted: %v", err), doc.Attempts < maxAttempts)
		return
	}
	if err := doc.ApplyParse(&res, s.now()); err != nil {
		s.fail(doc, fmt.Sprintf("encoding result: %v", err), false)
		return
	}

	services := domain.NewServiceChargeRecords(doc.ID, res.Services)
	recalcs := domain.NewRecalculationRecords(doc.ID, res.Recalculations)
	if err := s.docRepo.SaveParseResult(ctx, doc, services, recalcs); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("documentService.ParseDocument: document deleted while parsing",
				zap.Stringer("document_id", doc.ID))
			return
		}
		s.fail(doc, fmt.Sprintf("saving result: %v", err), doc.Attempts < maxAttempts)
		return
	}

	s.logger.Info("documentService.ParseDocument: document parsed",
		zap.Stringer("document_id", doc.ID),
		zap.String("parse_status", string(res.Status)),
		zap.Int("services", len(res.Services)),
		zap.Int("warnings", len(res.Warnings)),
	)
}

// fail records a processing failure. It uses a fresh context because the
// parse context may already be done.
func (s *documentService) fail(doc *domain.Document, reason string, requeue bool) {
	s.logger.Warn("documentService.ParseDocument: failed",
		zap.Stringer("document_id", doc.ID),
		zap.String("reason", reason),
		zap.Int("attempt", doc.Attempts),
		zap.Bool("requeue", requeue),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.docRepo.MarkFailed(ctx, doc.ID, reason, requeue); err != nil {
		s.logger.Error("documentService.ParseDocument: marking failure",
			zap.Stringer("document_id", doc.ID), zap.Error(err))
		return
	}
	doc.ProcessingError = reason
	doc.ProcessingStatus = domain.ProcessingStatusFailed
	if requeue {
		doc.ProcessingStatus = domain.ProcessingStatusQueued
	}
}

func (s *documentService) GetByID(ctx context.Context, docID uuid.UUID) (*domain.DocumentDetail, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	services, err := s.docRepo.ListServiceCharges(ctx, docID)
	if err != nil {
		return nil, err
	}
	recalcs, err := s.docRepo.ListRecalculations(ctx, docID)
	if err != nil {
		return nil, err
	}
	return &domain.DocumentDetail{Document: *doc, Services: services, Recalculations: recalcs}, nil
}

// NormalizeFilter validates a filter and clamps its paging.
func NormalizeFilter(f domain.DocumentFilter) (domain.DocumentFilter, error) {
	if f.Status != "" && !f.Status.Valid() {
		return f, fmt.Errorf("%w: status %q", domain.ErrInvalidFilter, f.Status)
	}
	switch f.ParseStatus {
	case "", epd.StatusComplete, epd.StatusPartial, epd.StatusUnsupported:
	default:
		return f, fmt.Errorf("%w: parse_status %q", domain.ErrInvalidFilter, f.ParseStatus)
	}
	if p := f.Period; p != nil && (p.Month < 1 || p.Month > 12) {
		return f, fmt.Errorf("%w: period month %d", domain.ErrInvalidFilter, p.Month)
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return f, nil
}

func (s *documentService) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, int, error) {
	f, err := NormalizeFilter(filter)
	if err != nil {
		return nil, 0, err
	}
	return s.docRepo.List(ctx, f)
}

func (s *documentService) Reparse(ctx context.Context, docID uuid.UUID) (*domain.Document, error) {
	if err := s.docRepo.Requeue(ctx, docID); err != nil {
		return nil, err
	}
	s.logger.Info("documentService.Reparse: document requeued", zap.Stringer("document_id", docID))
	return s.docRepo.GetByID(ctx, docID)
}

func (s *documentService) Edit(ctx context.Context, input EditInput) (*domain.DocumentDetail, error) {
	if err := validateEdit(&input); err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}
	switch {
	case doc.ProcessingStatus == domain.ProcessingStatusQueued,
		doc.ProcessingStatus == domain.ProcessingStatusProcessing:
		return nil, domain.ErrDocumentBusy
	case doc.ParsedAt == nil:
		return nil, domain.ErrDocumentNotParsed
	}

	var stored []domain.ServiceChargeRecord
	if input.Services == nil {
		if stored, err = s.docRepo.ListServiceCharges(ctx, doc.ID); err != nil {
			return nil, err
		}
	}
	recalcs, err := s.docRepo.ListRecalculations(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	res, err := doc.ParsedDocument(stored, recalcs)
	if err != nil {
		return nil, fmt.Errorf("documentService.Edit: %w", err)
	}

	edited := applyEdit(&res, &input)
	s.parser.Revalidate(&res)
	if err := doc.ApplyParse(&res, s.now()); err != nil {
		return nil, fmt.Errorf("documentService.Edit: %w", err)
	}

	serviceRecords := domain.NewServiceChargeRecords(doc.ID, res.Services)
	recalcRecords := domain.NewRecalculationRecords(doc.ID, res.Recalculations)
	if err := s.docRepo.SaveParseResult(ctx, doc, serviceRecords, recalcRecords); err != nil {
		return nil, err
	}

	s.logger.Info("documentService.Edit: document corrected",
		zap.Stringer("document_id", doc.ID),
		zap.Strings("fields", edited),
		zap.String("parse_status", string(res.Status)),
		zap.Int("warnings", len(res.Warnings)),
	)
	return &domain.DocumentDetail{Document: *doc, Services: serviceRecords, Recalculations: recalcRecords}, nil
}

// validateEdit trims and checks a correction in place.
func validateEdit(in *EditInput) error {
	for _, f := range []*string{in.PayerName, in.Address} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if in.AccountNumber != nil {
		acc := strings.Map(func(r rune) rune {
			if r == ' ' || r == '-' {
				return -1
			}
			return r
		}, *in.AccountNumber)
		if strings.IndexFunc(acc, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			return fmt.Errorf("%w: account_number must contain only digits", domain.ErrInvalidEdit)
		}
		*in.AccountNumber = acc
	}
	if p := in.BillingPeriod; p != nil && (p.Month < 1 || p.Month > 12 || p.Year < 1) {
		return fmt.Errorf("%w: billing_period %02d.%d", domain.ErrInvalidEdit, p.Month, p.Year)
	}
	if d := in.DueDate; d != nil {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		in.DueDate = &day
	}
	totals := []struct {
		field epd.FieldName
		value *decimal.Decimal
	}{
		{epd.FieldTotalAmount, in.TotalAmount},
		{epd.FieldTotalWithInsurance, in.TotalWithInsurance},
	}
	for _, t := range totals {
		if t.value == nil {
			continue
		}
		if t.value.IsNegative() || t.value.GreaterThan(amount.MaxAbs) {
			return fmt.Errorf("%w: %s out of range", domain.ErrInvalidEdit, t.field)
		}
		*t.value = t.value.RoundBank(2)
	}
	for i := range in.Services {
		row := &in.Services[i]
		row.Name = strings.TrimSpace(row.Name)
		if strings.IndexFunc(row.Name, unicode.IsLetter) < 0 {
			return fmt.Errorf("%w: services[%d].name is required", domain.ErrInvalidEdit, i)
		}
		if row.Total.Abs().GreaterThan(amount.MaxAbs) {
			return fmt.Errorf("%w: services[%d].total out of range", domain.ErrInvalidEdit, i)
		}
		row.Total = row.Total.RoundBank(2)
	}
	return nil
}

// applyEdit copies a validated correction onto res and marks the edited
// fields exact. It returns the edited field names.
func applyEdit(res *epd.ParsedDocument, in *EditInput) []string {
	var edited []string
	mark := func(f epd.FieldName, present bool) {
		edited = append(edited, string(f))
		res.FieldConfidence[f] = epd.ConfidenceMissing
		if present {
			res.FieldConfidence[f] = epd.ConfidenceExact
		}
	}
	text := func(f epd.FieldName, dst **string, v *string) {
		if v == nil {
			return
		}
		*dst = nil
		if *v != "" {
			val := *v
			*dst = &val
		}
		mark(f, *v != "")
	}

	text(epd.FieldPayerName, &res.PayerName, in.PayerName)
	text(epd.FieldAddress, &res.Address, in.Address)
	text(epd.FieldAccountNumber, &res.AccountNumber, in.AccountNumber)
	if in.BillingPeriod != nil {
		p := *in.BillingPeriod
		res.BillingPeriod = &p
		mark(epd.FieldBillingPeriod, true)
	}
	if in.DueDate != nil {
		d := *in.DueDate
		res.DueDate = &d
		mark(epd.FieldDueDate, true)
	}
	if in.TotalAmount != nil {
		res.TotalAmount = decimal.NewNullDecimal(*in.TotalAmount)
		mark(epd.FieldTotalAmount, true)
	}
	if in.TotalWithInsurance != nil {
		res.TotalWithInsurance = decimal.NewNullDecimal(*in.TotalWithInsurance)
		mark(epd.FieldTotalWithInsurance, true)
	}
	if in.Services != nil {
		res.Services = make([]epd.ServiceCharge, len(in.Services))
		for i, row := range in.Services {
			row.OrderIndex = i
			res.Services[i] = row
		}
		edited = append(edited, "services")
	}
	return edited
}

func (s *documentService) Source(ctx context.Context, docID uuid.UUID) (*domain.Document, []byte, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

func (s *documentService) Delete(ctx context.Context, docID uuid.UUID) error {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if err := s.docRepo.Delete(ctx, docID); err != nil {
		return err
	}
	if doc.StorageKey != "" {
		if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
			s.logger.Warn("documentService.Delete: removing source object",
				zap.Stringer("document_id", docID), zap.Error(err))
		}
	}
	s.logger.Info("documentService.Delete: document deleted", zap.Stringer("document_id", docID))
	return nil
}
