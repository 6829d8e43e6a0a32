package mocks

import (
	"github.com/stretchr/testify/mock"

	"epdparser/internal/epd"
	"epdparser/internal/epd/pipeline"
)

// MockEPDParser is a mock implementation of port.EPDParser.
type MockEPDParser struct {
	mock.Mock
}

func (m *MockEPDParser) Parse(in pipeline.Input) epd.ParsedDocument {
	args := m.Called(in)
	return args.Get(0).(epd.ParsedDocument)
}

func (m *MockEPDParser) Revalidate(doc *epd.ParsedDocument) {
	m.Called(doc)
}
