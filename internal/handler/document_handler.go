package handler

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"epdparser/internal/domain"
	"epdparser/internal/epd"
	"epdparser/internal/epd/amount"
	"epdparser/internal/export"
	"epdparser/internal/service"
)

// DocumentHandler handles stored document endpoints.
type DocumentHandler struct {
	documentService service.DocumentService
	exportService   service.ExportService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documentService service.DocumentService, exportService service.ExportService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, exportService: exportService}
}

// Upload handles POST /api/v1/documents
// @Summary Upload an EPD
// @Description Upload a PDF or text EPD. Text is extracted immediately and the document is queued for parsing.
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "EPD file (PDF or TXT)"
// @Success 202 {object} Response{data=domain.Document} "Document queued"
// @Failure 400 {object} ErrorResponseBody "Missing file or unsupported type"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Failure 422 {object} ErrorResponseBody "No text could be extracted"
// @Failure 500 {object} ErrorResponseBody "Upload failed"
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	doc, err := h.documentService.Upload(c.Request.Context(), service.UploadInput{File: file, Header: header})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, doc)
}

// GetByID handles GET /api/v1/documents/:id
// @Summary Get document by ID
// @Description Get a stored document with its service and recalculation rows
// @Tags documents
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response{data=domain.DocumentDetail} "Document details"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetByID(c *gin.Context) {
	docID, ok := parseID(c)
	if !ok {
		return
	}

	detail, err := h.documentService.GetByID(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, detail)
}

// List handles GET /api/v1/documents
// @Summary List documents
// @Description List stored documents, newest first, with optional filters
// @Tags documents
// @Produce json
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Param account_number query string false "Filter by account number"
// @Param period query string false "Filter by billing period (MM.YYYY)"
// @Param status query string false "Filter by processing status"
// @Param parse_status query string false "Filter by parse status"
// @Success 200 {object} Response{data=[]domain.Document,meta=PagMeta} "List of documents"
// @Failure 400 {object} ErrorResponseBody "Invalid filter"
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	filter.Offset, filter.Limit = parsePagination(c)

	docs, total, err := h.documentService.List(c.Request.Context(), filter)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, docs, PagMeta{Total: total, Offset: filter.Offset, Limit: filter.Limit})
}

// Reparse handles POST /api/v1/documents/:id/reparse
// @Summary Reparse a document
// @Description Queue a stored document for parsing again, for example after a profile change
// @Tags documents
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 202 {object} Response{data=domain.Document} "Document queued"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Document is being processed"
// @Router /documents/{id}/reparse [post]
func (h *DocumentHandler) Reparse(c *gin.Context) {
	docID, ok := parseID(c)
	if !ok {
		return
	}

	doc, err := h.documentService.Reparse(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, doc)
}

// Edit handles PATCH /api/v1/documents/:id
// @Summary Correct a parsed document
// @Description Apply a manual correction. Edited fields get confidence "exact", status and warnings are recomputed.
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Param request body EditDocumentRequest true "Fields to correct"
// @Success 200 {object} Response{data=domain.DocumentDetail} "Corrected document"
// @Failure 400 {object} ErrorResponseBody "Invalid ID or correction"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Document is queued, processing or not parsed"
// @Router /documents/{id} [patch]
func (h *DocumentHandler) Edit(c *gin.Context) {
	docID, ok := parseID(c)
	if !ok {
		return
	}

	var req EditDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	input, err := req.toInput(docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	detail, err := h.documentService.Edit(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, detail)
}

func (r *EditDocumentRequest) toInput(docID uuid.UUID) (service.EditInput, error) {
	in := service.EditInput{
		DocumentID:    docID,
		PayerName:     r.PayerName,
		Address:       r.Address,
		AccountNumber: r.AccountNumber,
	}
	if r.BillingPeriod != nil {
		p, ok := periodValue(*r.BillingPeriod)
		if !ok {
			return in, fmt.Errorf("%w: billing_period must be MM.YYYY", domain.ErrInvalidEdit)
		}
		in.BillingPeriod = p
	}
	if r.DueDate != nil {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(*r.DueDate))
		if err != nil {
			return in, fmt.Errorf("%w: due_date must be YYYY-MM-DD", domain.ErrInvalidEdit)
		}
		in.DueDate = &d
	}

	var err error
	if in.TotalAmount, err = editMoney("total_amount", r.TotalAmount); err != nil {
		return in, err
	}
	if in.TotalWithInsurance, err = editMoney("total_with_insurance", r.TotalWithInsurance); err != nil {
		return in, err
	}

	if r.Services == nil {
		return in, nil
	}
	in.Services = make([]epd.ServiceCharge, len(r.Services))
	for i, row := range r.Services {
		sc, err := row.toServiceCharge(i)
		if err != nil {
			return in, err
		}
		in.Services[i] = sc
	}
	return in, nil
}

func (row *EditServiceRow) toServiceCharge(i int) (epd.ServiceCharge, error) {
	sc := epd.ServiceCharge{OrderIndex: i, Category: strings.TrimSpace(row.Category), Name: row.Name}
	if row.Unit != nil && strings.TrimSpace(*row.Unit) != "" {
		unit := strings.TrimSpace(*row.Unit)
		sc.Unit = &unit
	}
	if row.Total == nil {
		return sc, fmt.Errorf("%w: services[%d].total is required", domain.ErrInvalidEdit, i)
	}
	total, err := amount.Normalize(*row.Total)
	if err != nil {
		return sc, fmt.Errorf("%w: services[%d].total: %v", domain.ErrInvalidEdit, i, err)
	}
	sc.Total = total

	columns := []struct {
		name  string
		raw   *string
		dst   *decimal.NullDecimal
		parse func(string) (decimal.Decimal, error)
	}{
		{"volume", row.Volume, &sc.Volume, amount.Quantity},
		{"tariff", row.Tariff, &sc.Tariff, amount.Quantity},
		{"charged", row.Charged, &sc.Charged, amount.Normalize},
		{"recalculation", row.Recalculation, &sc.Recalculation, amount.Normalize},
		{"debt", row.Debt, &sc.Debt, amount.Normalize},
		{"paid", row.Paid, &sc.Paid, amount.Normalize},
	}
	for _, col := range columns {
		if col.raw == nil || strings.TrimSpace(*col.raw) == "" {
			continue
		}
		d, err := col.parse(*col.raw)
		if err != nil {
			return sc, fmt.Errorf("%w: services[%d].%s: %v", domain.ErrInvalidEdit, i, col.name, err)
		}
		*col.dst = decimal.NewNullDecimal(d)
	}
	return sc, nil
}

func editMoney(field string, raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := amount.Normalize(*raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidEdit, field, err)
	}
	return &d, nil
}

// Source handles GET /api/v1/documents/:id/source
// @Summary Download the original file
// @Tags documents
// @Produce octet-stream
// @Param id path string true "Document ID (UUID)"
// @Success 200 {file} file "Original file"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Router /documents/{id}/source [get]
func (h *DocumentHandler) Source(c *gin.Context) {
	docID, ok := parseID(c)
	if !ok {
		return
	}

	doc, data, err := h.documentService.Source(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.SourceName}))
	c.Data(http.StatusOK, doc.ContentType, data)
}

// Delete handles DELETE /api/v1/documents/:id
// @Summary Delete a document
// @Description Delete a document, its rows and its stored source file
// @Tags documents
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} Response "Document deleted"
// @Failure 400 {object} ErrorResponseBody "Invalid ID"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	docID, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), docID); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "document deleted"})
}

// Export handles GET /api/v1/documents/export
// @Summary Export documents
// @Description Export filtered documents as CSV or XLSX
// @Tags documents
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv or xlsx" default(csv)
// @Param account_number query string false "Filter by account number"
// @Param period query string false "Filter by billing period (MM.YYYY)"
// @Param status query string false "Filter by processing status"
// @Param parse_status query string false "Filter by parse status"
// @Success 200 {file} file "Export file"
// @Failure 400 {object} ErrorResponseBody "Invalid filter or format"
// @Router /documents/export [get]
func (h *DocumentHandler) Export(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		HandleError(c, err)
		return
	}
	format := domain.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(domain.ExportFormatCSV))))

	var buf bytes.Buffer
	if err := h.exportService.Export(c.Request.Context(), filter, format, &buf); err != nil {
		HandleError(c, err)
		return
	}

	name := "epd_export"
	if filter.AccountNumber != "" {
		name = "epd_" + filter.AccountNumber
	}
	filename := export.BuildFilename(name, format, time.Now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return uuid.Nil, false
	}
	return docID, true
}

// parseFilter reads the shared list and export filters from the query string.
func parseFilter(c *gin.Context) (domain.DocumentFilter, error) {
	f := domain.DocumentFilter{
		AccountNumber: strings.TrimSpace(c.Query("account_number")),
		Status:        domain.ProcessingStatus(c.Query("status")),
		ParseStatus:   epd.ParseStatus(c.Query("parse_status")),
	}
	if raw := c.Query("period"); raw != "" {
		p, err := parsePeriod(raw)
		if err != nil {
			return f, err
		}
		f.Period = p
	}
	return f, nil
}

// parsePeriod accepts "MM.YYYY" or "M.YYYY".
func parsePeriod(raw string) (*epd.Period, error) {
	p, ok := periodValue(raw)
	if !ok {
		return nil, fmt.Errorf("%w: period must be MM.YYYY", domain.ErrInvalidFilter)
	}
	return p, nil
}

func periodValue(raw string) (*epd.Period, bool) {
	m, y, ok := strings.Cut(strings.TrimSpace(raw), ".")
	month, errM := strconv.Atoi(m)
	year, errY := strconv.Atoi(y)
	if !ok || errM != nil || errY != nil || len(y) != 4 || month < 1 || month > 12 {
		return nil, false
	}
	return &epd.Period{Month: month, Year: year}, true
}
