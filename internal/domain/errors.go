package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrEmptyText           = errors.New("document contains no text")
	ErrTextExtraction      = errors.New("text extraction failed")
	ErrInvalidFilter       = errors.New("invalid filter")
	ErrDocumentBusy        = errors.New("document is being processed")
	ErrDocumentNotParsed   = errors.New("document has not been parsed yet")
	ErrInvalidEdit         = errors.New("invalid correction")
)
