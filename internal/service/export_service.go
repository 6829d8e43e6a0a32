package service

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"epdparser/internal/domain"
	"epdparser/internal/export"
	"epdparser/internal/port"
)

// ExportService renders filtered documents as CSV or XLSX.
type ExportService interface {
	Export(ctx context.Context, filter domain.DocumentFilter, format domain.ExportFormat, w io.Writer) error
}

type exportService struct {
	docRepo port.DocumentRepository
	logger  *zap.Logger
}

// NewExportService creates a new ExportService implementation.
func NewExportService(docRepo port.DocumentRepository, logger *zap.Logger) ExportService {
	return &exportService{docRepo: docRepo, logger: logger}
}

func (s *exportService) Export(ctx context.Context, filter domain.DocumentFilter, format domain.ExportFormat, w io.Writer) error {
	if format != domain.ExportFormatCSV && format != domain.ExportFormatXLSX {
		return fmt.Errorf("%w: format %q", domain.ErrInvalidFilter, format)
	}
	f, err := NormalizeFilter(filter)
	if err != nil {
		return err
	}

	docs, err := s.docRepo.ListAll(ctx, f)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	recs := make([]export.Record, len(docs))
	for i := range docs {
		recs[i].Document = docs[i]
		if docs[i].ParsedAt == nil {
			continue
		}
		services, err := s.docRepo.ListServiceCharges(ctx, docs[i].ID)
		if err != nil {
			return fmt.Errorf("listing services of %s: %w", docs[i].ID, err)
		}
		recs[i].Services = services
	}

	s.logger.Info("exportService.Export: exporting documents",
		zap.String("format", string(format)), zap.Int("documents", len(recs)))

	if format == domain.ExportFormatXLSX {
		return export.WriteXLSX(w, recs)
	}
	return export.WriteCSV(w, recs)
}
