package port

import (
	"context"

	"github.com/google/uuid"

	"epdparser/internal/domain"
)

// DocumentRepository defines the contract for document persistence.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, int, error)
	// ListAll returns every document matching filter, ignoring paging.
	ListAll(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	// ClaimQueued atomically moves up to limit queued documents to processing.
	ClaimQueued(ctx context.Context, limit int) ([]domain.Document, error)
	// SaveParseResult replaces the table rows and stores the scalar result in one transaction.
	SaveParseResult(ctx context.Context, doc *domain.Document, services []domain.ServiceChargeRecord, recalcs []domain.RecalculationRecord) error
	MarkFailed(ctx context.Context, docID uuid.UUID, reason string, requeue bool) error
	Requeue(ctx context.Context, docID uuid.UUID) error
	Delete(ctx context.Context, docID uuid.UUID) error
	ListServiceCharges(ctx context.Context, docID uuid.UUID) ([]domain.ServiceChargeRecord, error)
	ListRecalculations(ctx context.Context, docID uuid.UUID) ([]domain.RecalculationRecord, error)
}
