package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"epdparser/internal/domain"
	"epdparser/internal/epd"
	"epdparser/internal/epd/pipeline"
	"epdparser/internal/epd/profile"
	"epdparser/internal/port"
	"epdparser/internal/service"
	"epdparser/mocks"
)

type serviceDeps struct {
	docRepo   *mocks.MockDocumentRepo
	storage   *mocks.MockObjectStorage
	extractor *mocks.MockTextExtractor
	parser    *mocks.MockEPDParser
}

func setupDocumentService(maxBytes int64) (service.DocumentService, serviceDeps) {
	deps := serviceDeps{
		docRepo:   new(mocks.MockDocumentRepo),
		storage:   new(mocks.MockObjectStorage),
		extractor: new(mocks.MockTextExtractor),
		parser:    new(mocks.MockEPDParser),
	}
	svc := service.NewDocumentService(deps.docRepo, deps.storage, deps.extractor, deps.parser, maxBytes, zap.NewNop())
	return svc, deps
}

// createMultipartFile creates a fake multipart file header and content for testing.
func createMultipartFile(filename string, content []byte) service.UploadInput {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/octet-stream")

	part, _ := writer.CreatePart(h)
	_, _ = part.Write(content)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, _ := reader.ReadForm(int64(len(content) + 1024))
	file, _ := form.File["file"][0].Open()
	return service.UploadInput{File: file, Header: form.File["file"][0]}
}

func pdfContent() []byte {
	return []byte("%PDF-1.4 test content that is at least a few bytes long for detection purposes")
}

func textContent() []byte {
	return []byte("Лицевой счет: 123456789\nИтого к оплате: 100,00\n")
}

func completeResult() epd.ParsedDocument {
	account := "123456789"
	return epd.ParsedDocument{
		AccountNumber: &account,
		TotalAmount:   decimal.NewNullDecimal(decimal.RequireFromString("100.00")),
		Services: []epd.ServiceCharge{
			{OrderIndex: 0, Name: "Вода", Total: decimal.RequireFromString("100.00")},
		},
		Recalculations:  []epd.Recalculation{},
		FieldConfidence: map[epd.FieldName]epd.Confidence{epd.FieldAccountNumber: epd.ConfidenceExact},
		Status:          epd.StatusPartial,
		Warnings:        []epd.ValidationWarning{},
	}
}

func TestDocumentService_Upload_Success(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	input := createMultipartFile("epd_july.txt", textContent())

	deps.extractor.On("Extract", mock.Anything, domain.FileTypeTXT, textContent()).
		Return("Лицевой счет: 123456789", nil)
	deps.storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return strings.HasPrefix(in.Key, "documents/") &&
			strings.HasSuffix(in.Key, "/epd_july.txt") &&
			in.ContentType == "text/plain"
	})).Return(&port.UploadOutput{Location: "s3://bucket/key"}, nil)
	deps.docRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Document")).Return(nil)

	doc, err := svc.Upload(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "epd_july.txt", doc.SourceName)
	assert.Equal(t, domain.FileTypeTXT, doc.FileType)
	assert.Equal(t, domain.ProcessingStatusQueued, doc.ProcessingStatus)
	assert.Equal(t, "Лицевой счет: 123456789", doc.RawText)
	assert.Equal(t, int64(len(textContent())), doc.FileSize)
	assert.Contains(t, doc.StorageKey, doc.ID.String())
	deps.storage.AssertExpectations(t)
	deps.docRepo.AssertExpectations(t)
}

func TestDocumentService_Upload_Validation(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content []byte
		max     int64
		wantErr error
	}{
		{"unsupported_extension", "scan.png", pdfContent(), 1 << 20, domain.ErrUnsupportedFileType},
		{"too_large", "epd.pdf", pdfContent(), 10, domain.ErrFileTooLarge},
		{"content_mismatch", "epd.txt", pdfContent(), 1 << 20, domain.ErrUnsupportedFileType},
		{"text_renamed_to_pdf", "epd.pdf", textContent(), 1 << 20, domain.ErrUnsupportedFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := setupDocumentService(tt.max)
			_, err := svc.Upload(context.Background(), createMultipartFile(tt.file, tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
			deps.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
			deps.docRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestDocumentService_Upload_ExtractionFails(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	deps.extractor.On("Extract", mock.Anything, domain.FileTypePDF, mock.Anything).
		Return("", domain.ErrEmptyText)

	_, err := svc.Upload(context.Background(), createMultipartFile("epd.pdf", pdfContent()))

	assert.ErrorIs(t, err, domain.ErrEmptyText)
	deps.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestDocumentService_Upload_StorageFails(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	deps.extractor.On("Extract", mock.Anything, domain.FileTypePDF, mock.Anything).Return("text", nil)
	deps.storage.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("s3 down"))

	_, err := svc.Upload(context.Background(), createMultipartFile("epd.pdf", pdfContent()))

	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	deps.docRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDocumentService_Upload_CreateFailsRemovesObject(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	deps.extractor.On("Extract", mock.Anything, domain.FileTypePDF, mock.Anything).Return("text", nil)
	deps.storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	deps.storage.On("Delete", mock.Anything, mock.AnythingOfType("string")).Return(nil)
	deps.docRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := svc.Upload(context.Background(), createMultipartFile("epd.pdf", pdfContent()))

	require.Error(t, err)
	deps.storage.AssertCalled(t, "Delete", mock.Anything, mock.AnythingOfType("string"))
}

func TestDocumentService_ParseText(t *testing.T) {
	t.Run("delegates_to_parser", func(t *testing.T) {
		svc, deps := setupDocumentService(1 << 20)
		deps.parser.On("Parse", pipeline.Input{Text: "ЕПД", SourceName: "inline"}).Return(completeResult())

		res, err := svc.ParseText(context.Background(), "ЕПД", "inline")

		require.NoError(t, err)
		assert.Equal(t, "123456789", *res.AccountNumber)
	})

	t.Run("blank_text", func(t *testing.T) {
		svc, deps := setupDocumentService(1 << 20)
		_, err := svc.ParseText(context.Background(), "  \n ", "inline")
		assert.ErrorIs(t, err, domain.ErrEmptyText)
		deps.parser.AssertNotCalled(t, "Parse", mock.Anything)
	})

	t.Run("canceled_context", func(t *testing.T) {
		svc, _ := setupDocumentService(1 << 20)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.ParseText(ctx, "ЕПД", "inline")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDocumentService_ParseFile(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	deps.extractor.On("Extract", mock.Anything, domain.FileTypePDF, mock.Anything).Return("ЕПД", nil)
	deps.parser.On("Parse", pipeline.Input{Text: "ЕПД", SourceName: "epd.pdf"}).Return(completeResult())

	res, err := svc.ParseFile(context.Background(), createMultipartFile("epd.pdf", pdfContent()))

	require.NoError(t, err)
	assert.Len(t, res.Services, 1)
	deps.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestDocumentService_ParseDocument_Success(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	doc := &domain.Document{ID: uuid.New(), SourceName: "epd.txt", RawText: "ЕПД", Attempts: 1,
		ProcessingStatus: domain.ProcessingStatusProcessing}

	deps.parser.On("Parse", pipeline.Input{Text: "ЕПД", SourceName: "epd.txt"}).Return(completeResult())
	deps.docRepo.On("SaveParseResult", mock.Anything,
		mock.MatchedBy(func(d *domain.Document) bool {
			return d.ProcessingStatus == domain.ProcessingStatusCompleted && d.ParseStatus == epd.StatusPartial
		}),
		mock.MatchedBy(func(rows []domain.ServiceChargeRecord) bool {
			return len(rows) == 1 && rows[0].DocumentID == doc.ID && rows[0].Name == "Вода"
		}),
		mock.AnythingOfType("[]domain.RecalculationRecord"),
	).Return(nil)

	svc.ParseDocument(context.Background(), doc, 3)

	deps.docRepo.AssertExpectations(t)
	deps.docRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, "123456789", *doc.AccountNumber)
	assert.True(t, doc.ServicesTotal.Valid)
	assert.NotNil(t, doc.ParsedAt)
}

func TestDocumentService_ParseDocument_SaveFails(t *testing.T) {
	tests := []struct {
		name       string
		attempts   int
		wantStatus domain.ProcessingStatus
		requeue    bool
	}{
		{"requeued_below_max", 1, domain.ProcessingStatusQueued, true},
		{"failed_at_max", 3, domain.ProcessingStatusFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := setupDocumentService(1 << 20)
			doc := &domain.Document{ID: uuid.New(), RawText: "ЕПД", Attempts: tt.attempts}

			deps.parser.On("Parse", mock.Anything).Return(completeResult())
			deps.docRepo.On("SaveParseResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(errors.New("connection reset"))
			deps.docRepo.On("MarkFailed", mock.Anything, doc.ID, mock.AnythingOfType("string"), tt.requeue).Return(nil)

			svc.ParseDocument(context.Background(), doc, 3)

			deps.docRepo.AssertExpectations(t)
			assert.Equal(t, tt.wantStatus, doc.ProcessingStatus)
			assert.Contains(t, doc.ProcessingError, "connection reset")
		})
	}
}

func TestDocumentService_ParseDocument_DeletedWhileParsing(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	doc := &domain.Document{ID: uuid.New(), RawText: "ЕПД", Attempts: 1}

	deps.parser.On("Parse", mock.Anything).Return(completeResult())
	deps.docRepo.On("SaveParseResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(domain.ErrNotFound)

	svc.ParseDocument(context.Background(), doc, 3)

	deps.docRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_ParseDocument_ContextDone(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	doc := &domain.Document{ID: uuid.New(), RawText: "ЕПД", Attempts: 1}
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	deps.parser.On("Parse", mock.Anything).Return(completeResult())
	deps.docRepo.On("MarkFailed", mock.Anything, doc.ID, mock.AnythingOfType("string"), true).Return(nil)

	svc.ParseDocument(ctx, doc, 3)

	deps.docRepo.AssertNotCalled(t, "SaveParseResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	deps.docRepo.AssertExpectations(t)
}

func TestDocumentService_GetByID(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	docID := uuid.New()
	deps.docRepo.On("GetByID", mock.Anything, docID).Return(&domain.Document{ID: docID}, nil)
	deps.docRepo.On("ListServiceCharges", mock.Anything, docID).
		Return([]domain.ServiceChargeRecord{{Name: "Вода"}}, nil)
	deps.docRepo.On("ListRecalculations", mock.Anything, docID).Return([]domain.RecalculationRecord{}, nil)

	detail, err := svc.GetByID(context.Background(), docID)

	require.NoError(t, err)
	assert.Equal(t, docID, detail.ID)
	assert.Len(t, detail.Services, 1)
	assert.Empty(t, detail.Recalculations)
}

func TestDocumentService_GetByID_NotFound(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	deps.docRepo.On("GetByID", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	_, err := svc.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_List_NormalizesFilter(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	deps.docRepo.On("List", mock.Anything, domain.DocumentFilter{Offset: 0, Limit: 100}).
		Return([]domain.Document{}, 0, nil)

	_, _, err := svc.List(context.Background(), domain.DocumentFilter{Offset: -5, Limit: 1000})

	require.NoError(t, err)
	deps.docRepo.AssertExpectations(t)
}

func TestNormalizeFilter(t *testing.T) {
	tests := []struct {
		name    string
		in      domain.DocumentFilter
		want    domain.DocumentFilter
		wantErr bool
	}{
		{"defaults", domain.DocumentFilter{}, domain.DocumentFilter{Limit: 20}, false},
		{"keeps_valid", domain.DocumentFilter{Offset: 40, Limit: 50, Status: domain.ProcessingStatusFailed},
			domain.DocumentFilter{Offset: 40, Limit: 50, Status: domain.ProcessingStatusFailed}, false},
		{"bad_status", domain.DocumentFilter{Status: "done"}, domain.DocumentFilter{}, true},
		{"bad_parse_status", domain.DocumentFilter{ParseStatus: "ok"}, domain.DocumentFilter{}, true},
		{"bad_period", domain.DocumentFilter{Period: &epd.Period{Month: 13, Year: 2025}}, domain.DocumentFilter{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.NormalizeFilter(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidFilter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentService_Reparse(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	docID := uuid.New()
	deps.docRepo.On("Requeue", mock.Anything, docID).Return(nil)
	deps.docRepo.On("GetByID", mock.Anything, docID).
		Return(&domain.Document{ID: docID, ProcessingStatus: domain.ProcessingStatusQueued}, nil)

	doc, err := svc.Reparse(context.Background(), docID)

	require.NoError(t, err)
	assert.Equal(t, domain.ProcessingStatusQueued, doc.ProcessingStatus)
}

func TestDocumentService_Reparse_Busy(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	deps.docRepo.On("Requeue", mock.Anything, mock.Anything).Return(domain.ErrDocumentBusy)

	_, err := svc.Reparse(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrDocumentBusy)
	deps.docRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestDocumentService_Source(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	docID := uuid.New()
	deps.docRepo.On("GetByID", mock.Anything, docID).
		Return(&domain.Document{ID: docID, StorageKey: "documents/x/epd.pdf"}, nil)
	deps.storage.On("Download", mock.Anything, "documents/x/epd.pdf").Return(pdfContent(), nil)

	doc, data, err := svc.Source(context.Background(), docID)

	require.NoError(t, err)
	assert.Equal(t, docID, doc.ID)
	assert.Equal(t, pdfContent(), data)
}

func TestDocumentService_Delete(t *testing.T) {
	t.Run("removes_row_and_object", func(t *testing.T) {
		svc, deps := setupDocumentService(1 << 20)
		docID := uuid.New()
		deps.docRepo.On("GetByID", mock.Anything, docID).
			Return(&domain.Document{ID: docID, StorageKey: "documents/x/epd.pdf"}, nil)
		deps.docRepo.On("Delete", mock.Anything, docID).Return(nil)
		deps.storage.On("Delete", mock.Anything, "documents/x/epd.pdf").Return(nil)

		require.NoError(t, svc.Delete(context.Background(), docID))
		deps.storage.AssertExpectations(t)
	})

	t.Run("storage_failure_is_not_fatal", func(t *testing.T) {
		svc, deps := setupDocumentService(1 << 20)
		docID := uuid.New()
		deps.docRepo.On("GetByID", mock.Anything, docID).
			Return(&domain.Document{ID: docID, StorageKey: "k"}, nil)
		deps.docRepo.On("Delete", mock.Anything, docID).Return(nil)
		deps.storage.On("Delete", mock.Anything, "k").Return(errors.New("s3 down"))

		assert.NoError(t, svc.Delete(context.Background(), docID))
	})

	t.Run("not_found", func(t *testing.T) {
		svc, deps := setupDocumentService(1 << 20)
		deps.docRepo.On("GetByID", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

		assert.ErrorIs(t, svc.Delete(context.Background(), uuid.New()), domain.ErrNotFound)
		deps.docRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

// storedMismatch returns a parsed document whose stated total disagrees with
// its two service rows, plus the stored rows.
func storedMismatch(t *testing.T) (*domain.Document, []domain.ServiceChargeRecord) {
	t.Helper()
	account := "123456789"
	res := epd.ParsedDocument{
		AccountNumber: &account,
		TotalAmount:   decimal.NewNullDecimal(decimal.RequireFromString("10000.00")),
		Services: []epd.ServiceCharge{
			{OrderIndex: 0, Name: "Отопление", Total: decimal.RequireFromString("10625.00")},
			{OrderIndex: 1, Name: "Вода", Total: decimal.RequireFromString("135.60")},
		},
		FieldConfidence: map[epd.FieldName]epd.Confidence{
			epd.FieldAccountNumber: epd.ConfidenceExact,
			epd.FieldTotalAmount:   epd.ConfidenceFuzzy,
		},
		Status:   epd.StatusPartial,
		Warnings: []epd.ValidationWarning{{Kind: epd.WarningTotalMismatch, Rule: "total.services_sum"}},
	}
	doc := &domain.Document{ID: uuid.New(), SourceName: "epd.txt"}
	require.NoError(t, doc.ApplyParse(&res, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)))
	return doc, domain.NewServiceChargeRecords(doc.ID, res.Services)
}

func TestDocumentService_Edit_RevalidatesWithParser(t *testing.T) {
	p, err := profile.Default()
	require.NoError(t, err)
	docRepo := new(mocks.MockDocumentRepo)
	svc := service.NewDocumentService(docRepo, new(mocks.MockObjectStorage), new(mocks.MockTextExtractor),
		pipeline.New(p), 1<<20, zap.NewNop())

	doc, rows := storedMismatch(t)
	docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	docRepo.On("ListServiceCharges", mock.Anything, doc.ID).Return(rows, nil)
	docRepo.On("ListRecalculations", mock.Anything, doc.ID).Return([]domain.RecalculationRecord{}, nil)

	var saved *domain.Document
	docRepo.On("SaveParseResult", mock.Anything, mock.Anything,
		mock.MatchedBy(func(r []domain.ServiceChargeRecord) bool { return len(r) == 2 }),
		mock.Anything,
	).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*domain.Document)
	}).Return(nil)

	total := decimal.RequireFromString("10760.6")
	payer := "  Иванов Иван Иванович "
	detail, err := svc.Edit(context.Background(), service.EditInput{
		DocumentID:  doc.ID,
		PayerName:   &payer,
		TotalAmount: &total,
	})

	require.NoError(t, err)
	docRepo.AssertExpectations(t)
	require.NotNil(t, saved)
	assert.Equal(t, epd.StatusComplete, saved.ParseStatus)
	assert.Equal(t, domain.ProcessingStatusCompleted, saved.ProcessingStatus)
	assert.Equal(t, "Иванов Иван Иванович", *saved.PayerName)
	assert.Equal(t, "10760.60", saved.TotalAmount.Decimal.StringFixed(2))
	assert.Zero(t, saved.WarningCount)
	assert.JSONEq(t, `[]`, string(saved.Warnings))

	var conf map[string]string
	require.NoError(t, json.Unmarshal(saved.FieldConfidence, &conf))
	assert.Equal(t, "exact", conf["total_amount"])
	assert.Equal(t, "exact", conf["payer_name"])
	assert.Equal(t, "exact", conf["account_number"])
	assert.Equal(t, "missing", conf["address"])

	require.Len(t, detail.Services, 2)
	assert.Equal(t, "Вода", detail.Services[1].Name)
}

func TestDocumentService_Edit_ReplacesServices(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	doc, _ := storedMismatch(t)
	deps.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	deps.docRepo.On("ListRecalculations", mock.Anything, doc.ID).Return([]domain.RecalculationRecord{}, nil)
	deps.parser.On("Revalidate", mock.MatchedBy(func(d *epd.ParsedDocument) bool {
		return len(d.Services) == 1 && d.Services[0].Name == "Электроэнергия" && d.Services[0].OrderIndex == 0
	})).Run(func(args mock.Arguments) {
		d := args.Get(0).(*epd.ParsedDocument)
		d.Status = epd.StatusPartial
		d.Warnings = []epd.ValidationWarning{}
	})
	deps.docRepo.On("SaveParseResult", mock.Anything, doc,
		mock.MatchedBy(func(r []domain.ServiceChargeRecord) bool {
			return len(r) == 1 && r[0].Total.StringFixed(2) == "740.40" && r[0].DocumentID == doc.ID
		}),
		mock.Anything,
	).Return(nil)

	detail, err := svc.Edit(context.Background(), service.EditInput{
		DocumentID: doc.ID,
		Services: []epd.ServiceCharge{
			{OrderIndex: 7, Name: " Электроэнергия ", Total: decimal.RequireFromString("740.404")},
		},
	})

	require.NoError(t, err)
	deps.docRepo.AssertExpectations(t)
	deps.parser.AssertExpectations(t)
	deps.docRepo.AssertNotCalled(t, "ListServiceCharges", mock.Anything, mock.Anything)
	require.Len(t, detail.Services, 1)
	assert.Equal(t, 0, detail.Services[0].OrderIndex)
}

func TestDocumentService_Edit_ClearsTextField(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	doc, rows := storedMismatch(t)
	deps.docRepo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	deps.docRepo.On("ListServiceCharges", mock.Anything, doc.ID).Return(rows, nil)
	deps.docRepo.On("ListRecalculations", mock.Anything, doc.ID).Return([]domain.RecalculationRecord{}, nil)
	deps.parser.On("Revalidate", mock.MatchedBy(func(d *epd.ParsedDocument) bool {
		return d.AccountNumber == nil && d.FieldConfidence[epd.FieldAccountNumber] == epd.ConfidenceMissing
	})).Return()
	deps.docRepo.On("SaveParseResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	empty := ""
	_, err := svc.Edit(context.Background(), service.EditInput{DocumentID: doc.ID, AccountNumber: &empty})

	require.NoError(t, err)
	deps.parser.AssertExpectations(t)
	assert.Nil(t, doc.AccountNumber)
}

func TestDocumentService_Edit_Rejected(t *testing.T) {
	parsedAt := time.Now()
	tests := []struct {
		name   string
		doc    *domain.Document
		input  func(id uuid.UUID) service.EditInput
		target error
	}{
		{
			name: "queued",
			doc:  &domain.Document{ProcessingStatus: domain.ProcessingStatusQueued, ParsedAt: &parsedAt},
			input: func(id uuid.UUID) service.EditInput {
				return service.EditInput{DocumentID: id}
			},
			target: domain.ErrDocumentBusy,
		},
		{
			name: "processing",
			doc:  &domain.Document{ProcessingStatus: domain.ProcessingStatusProcessing},
			input: func(id uuid.UUID) service.EditInput {
				return service.EditInput{DocumentID: id}
			},
			target: domain.ErrDocumentBusy,
		},
		{
			name: "never_parsed",
			doc:  &domain.Document{ProcessingStatus: domain.ProcessingStatusFailed},
			input: func(id uuid.UUID) service.EditInput {
				return service.EditInput{DocumentID: id}
			},
			target: domain.ErrDocumentNotParsed,
		},
		{
			name: "account_with_letters",
			input: func(id uuid.UUID) service.EditInput {
				acc := "12AB34"
				return service.EditInput{DocumentID: id, AccountNumber: &acc}
			},
			target: domain.ErrInvalidEdit,
		},
		{
			name: "month_13",
			input: func(id uuid.UUID) service.EditInput {
				return service.EditInput{DocumentID: id, BillingPeriod: &epd.Period{Month: 13, Year: 2025}}
			},
			target: domain.ErrInvalidEdit,
		},
		{
			name: "negative_total",
			input: func(id uuid.UUID) service.EditInput {
				v := decimal.RequireFromString("-1")
				return service.EditInput{DocumentID: id, TotalAmount: &v}
			},
			target: domain.ErrInvalidEdit,
		},
		{
			name: "total_over_bound",
			input: func(id uuid.UUID) service.EditInput {
				v := decimal.RequireFromString("1000000000")
				return service.EditInput{DocumentID: id, TotalAmount: &v}
			},
			target: domain.ErrInvalidEdit,
		},
		{
			name: "service_without_name",
			input: func(id uuid.UUID) service.EditInput {
				return service.EditInput{DocumentID: id, Services: []epd.ServiceCharge{{Name: " ", Total: decimal.NewFromInt(1)}}}
			},
			target: domain.ErrInvalidEdit,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := setupDocumentService(1 << 20)
			docID := uuid.New()
			if tt.doc != nil {
				tt.doc.ID = docID
				deps.docRepo.On("GetByID", mock.Anything, docID).Return(tt.doc, nil)
			}

			_, err := svc.Edit(context.Background(), tt.input(docID))

			assert.ErrorIs(t, err, tt.target)
			deps.docRepo.AssertNotCalled(t, "SaveParseResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			deps.parser.AssertNotCalled(t, "Revalidate", mock.Anything)
		})
	}
}

func TestDocumentService_Edit_NotFound(t *testing.T) {
	svc, deps := setupDocumentService(1 << 20)
	deps.docRepo.On("GetByID", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	_, err := svc.Edit(context.Background(), service.EditInput{DocumentID: uuid.New()})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
