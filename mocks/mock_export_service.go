package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"epdparser/internal/domain"
)

// MockExportService is a mock implementation of service.ExportService.
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Export(ctx context.Context, filter domain.DocumentFilter, format domain.ExportFormat, w io.Writer) error {
	args := m.Called(ctx, filter, format, w)
	return args.Error(0)
}
