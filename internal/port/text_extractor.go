package port

import (
	"context"

	"epdparser/internal/domain"
)

// TextExtractor turns a source file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, fileType domain.FileType, data []byte) (string, error)
}
