package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"epdparser/internal/service"
)

// ParseHandler parses EPDs synchronously without storing them.
type ParseHandler struct {
	documentService service.DocumentService
}

// NewParseHandler creates a new ParseHandler.
func NewParseHandler(documentService service.DocumentService) *ParseHandler {
	return &ParseHandler{documentService: documentService}
}

// Parse handles POST /api/v1/parse
// @Summary Parse an EPD
// @Description Parse extracted text (JSON body) or an uploaded file (multipart) and return the structured result. Nothing is stored.
// @Tags parse
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param request body ParseTextRequest false "Extracted EPD text"
// @Param file formData file false "EPD file (PDF or TXT)"
// @Success 200 {object} Response{data=ParsedDocument} "Parse result"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 422 {object} ErrorResponseBody "No text"
// @Router /parse [post]
func (h *ParseHandler) Parse(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.parseFile(c)
		return
	}

	var req ParseTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "text is required")
		return
	}

	res, err := h.documentService.ParseText(c.Request.Context(), req.Text, req.SourceName)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, res)
}

func (h *ParseHandler) parseFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	res, err := h.documentService.ParseFile(c.Request.Context(), service.UploadInput{File: file, Header: header})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, res)
}
