package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"epdparser/internal/domain"
	"epdparser/internal/epd"
	"epdparser/internal/service"
)

// MockDocumentService is a mock implementation of service.DocumentService.
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, input service.UploadInput) (*domain.Document, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) ParseFile(ctx context.Context, input service.UploadInput) (*epd.ParsedDocument, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*epd.ParsedDocument), args.Error(1)
}

func (m *MockDocumentService) ParseText(ctx context.Context, text, sourceName string) (*epd.ParsedDocument, error) {
	args := m.Called(ctx, text, sourceName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*epd.ParsedDocument), args.Error(1)
}

func (m *MockDocumentService) ParseDocument(ctx context.Context, doc *domain.Document, maxAttempts int) {
	m.Called(ctx, doc, maxAttempts)
}

func (m *MockDocumentService) GetByID(ctx context.Context, docID uuid.UUID) (*domain.DocumentDetail, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentDetail), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Document), args.Int(1), args.Error(2)
}

func (m *MockDocumentService) Reparse(ctx context.Context, docID uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) Source(ctx context.Context, docID uuid.UUID) (*domain.Document, []byte, error) {
	args := m.Called(ctx, docID)
	var doc *domain.Document
	if v := args.Get(0); v != nil {
		doc = v.(*domain.Document)
	}
	var data []byte
	if v := args.Get(1); v != nil {
		data = v.([]byte)
	}
	return doc, data, args.Error(2)
}

func (m *MockDocumentService) Delete(ctx context.Context, docID uuid.UUID) error {
	args := m.Called(ctx, docID)
	return args.Error(0)
}

func (m *MockDocumentService) Edit(ctx context.Context, input service.EditInput) (*domain.DocumentDetail, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentDetail), args.Error(1)
}
