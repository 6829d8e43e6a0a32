package port

import (
	"epdparser/internal/epd"
	"epdparser/internal/epd/pipeline"
)

// EPDParser converts extracted text into a ParsedDocument.
type EPDParser interface {
	Parse(in pipeline.Input) epd.ParsedDocument
	// Revalidate recomputes status and warnings of an edited document.
	Revalidate(doc *epd.ParsedDocument)
}
