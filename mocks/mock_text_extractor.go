package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"epdparser/internal/domain"
)

// MockTextExtractor is a mock implementation of port.TextExtractor.
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) Extract(ctx context.Context, fileType domain.FileType, data []byte) (string, error) {
	args := m.Called(ctx, fileType, data)
	return args.String(0), args.Error(1)
}
