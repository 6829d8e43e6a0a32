package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"epdparser/internal/domain"
	"epdparser/internal/port"
)

type documentRepo struct {
	db *sqlx.DB
}

// NewDocumentRepo creates a new PostgreSQL-backed DocumentRepository.
func NewDocumentRepo(db *sqlx.DB) port.DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *domain.Document) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := `INSERT INTO epd_documents (
		id, source_name, file_type, file_size, content_type, storage_key, raw_text,
		processing_status, processing_error, attempts,
		created_at, updated_at
	) VALUES (
		:id, :source_name, :file_type, :file_size, :content_type, :storage_key, :raw_text,
		:processing_status, :processing_error, :attempts,
		:created_at, :updated_at
	)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("documentRepo.Create: %w", err)
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.GetContext(ctx, &doc, "SELECT * FROM epd_documents WHERE id = $1", docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("documentRepo.GetByID: %w", err)
	}
	return &doc, nil
}

// whereClause renders the filter as a WHERE clause with positional arguments.
func whereClause(f domain.DocumentFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.AccountNumber != "" {
		add("account_number = $%d", f.AccountNumber)
	}
	if f.Period != nil {
		add("period_month = $%d", f.Period.Month)
		add("period_year = $%d", f.Period.Year)
	}
	if f.Status != "" {
		add("processing_status = $%d", f.Status)
	}
	if f.ParseStatus != "" {
		add("parse_status = $%d", f.ParseStatus)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *documentRepo) List(ctx context.Context, f domain.DocumentFilter) ([]domain.Document, int, error) {
	where, args := whereClause(f)

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM epd_documents"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("documentRepo.List count: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf("SELECT * FROM epd_documents%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d", where, n+1, n+2)
	var docs []domain.Document
	if err := r.db.SelectContext(ctx, &docs, query, append(args, f.Limit, f.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("documentRepo.List: %w", err)
	}
	return docs, total, nil
}

func (r *documentRepo) ListAll(ctx context.Context, f domain.DocumentFilter) ([]domain.Document, error) {
	where, args := whereClause(f)
	var docs []domain.Document
	if err := r.db.SelectContext(ctx, &docs, "SELECT * FROM epd_documents"+where+" ORDER BY created_at", args...); err != nil {
		return nil, fmt.Errorf("documentRepo.ListAll: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.SelectContext(ctx, &docs,
		`UPDATE epd_documents SET
			processing_status = 'processing', attempts = attempts + 1, updated_at = $2
		 WHERE id IN (
			SELECT id FROM epd_documents
			WHERE processing_status = 'queued'
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`,
		limit, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ClaimQueued: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) SaveParseResult(
	ctx context.Context,
	doc *domain.Document,
	services []domain.ServiceChargeRecord,
	recalcs []domain.RecalculationRecord,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("documentRepo.SaveParseResult begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	doc.UpdatedAt = now
	result, err := tx.NamedExecContext(ctx,
		`UPDATE epd_documents SET
			processing_status = :processing_status, processing_error = :processing_error,
			parse_status = :parse_status,
			payer_name = :payer_name, address = :address, account_number = :account_number,
			period_month = :period_month, period_year = :period_year, due_date = :due_date,
			total_amount = :total_amount, total_with_insurance = :total_with_insurance,
			services_total = :services_total,
			field_confidence = :field_confidence, warnings = :warnings, warning_count = :warning_count,
			parsed_at = :parsed_at, updated_at = :updated_at
		 WHERE id = :id`, doc)
	if err != nil {
		return fmt.Errorf("documentRepo.SaveParseResult update: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM service_charges WHERE document_id = $1", doc.ID); err != nil {
		return fmt.Errorf("documentRepo.SaveParseResult clear services: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM recalculations WHERE document_id = $1", doc.ID); err != nil {
		return fmt.Errorf("documentRepo.SaveParseResult clear recalculations: %w", err)
	}

	if len(services) > 0 {
		for i := range services {
			services[i].CreatedAt = now
		}
		_, err = tx.NamedExecContext(ctx,
			`INSERT INTO service_charges (
				id, document_id, order_index, category, name, volume, unit, tariff,
				charged, recalculation, debt, paid, total, created_at
			) VALUES (
				:id, :document_id, :order_index, :category, :name, :volume, :unit, :tariff,
				:charged, :recalculation, :debt, :paid, :total, :created_at
			)`, services)
		if err != nil {
			return fmt.Errorf("documentRepo.SaveParseResult services: %w", err)
		}
	}
	if len(recalcs) > 0 {
		for i := range recalcs {
			recalcs[i].CreatedAt = now
		}
		_, err = tx.NamedExecContext(ctx,
			`INSERT INTO recalculations (
				id, document_id, order_index, service_name, reason, amount, created_at
			) VALUES (
				:id, :document_id, :order_index, :service_name, :reason, :amount, :created_at
			)`, recalcs)
		if err != nil {
			return fmt.Errorf("documentRepo.SaveParseResult recalculations: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("documentRepo.SaveParseResult commit: %w", err)
	}
	return nil
}

func (r *documentRepo) MarkFailed(ctx context.Context, docID uuid.UUID, reason string, requeue bool) error {
	status := domain.ProcessingStatusFailed
	if requeue {
		status = domain.ProcessingStatusQueued
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE epd_documents SET processing_status = $1, processing_error = $2, updated_at = $3
		 WHERE id = $4`,
		status, reason, time.Now().UTC(), docID)
	if err != nil {
		return fmt.Errorf("documentRepo.MarkFailed: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *documentRepo) Requeue(ctx context.Context, docID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE epd_documents SET
			processing_status = 'queued', processing_error = '', attempts = 0, updated_at = $1
		 WHERE id = $2 AND processing_status <> 'processing'`,
		time.Now().UTC(), docID)
	if err != nil {
		return fmt.Errorf("documentRepo.Requeue: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, docID); err != nil {
		return err
	}
	return domain.ErrDocumentBusy
}

func (r *documentRepo) Delete(ctx context.Context, docID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM epd_documents WHERE id = $1", docID)
	if err != nil {
		return fmt.Errorf("documentRepo.Delete: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *documentRepo) ListServiceCharges(ctx context.Context, docID uuid.UUID) ([]domain.ServiceChargeRecord, error) {
	rows := []domain.ServiceChargeRecord{}
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM service_charges WHERE document_id = $1 ORDER BY order_index", docID)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ListServiceCharges: %w", err)
	}
	return rows, nil
}

func (r *documentRepo) ListRecalculations(ctx context.Context, docID uuid.UUID) ([]domain.RecalculationRecord, error) {
	rows := []domain.RecalculationRecord{}
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM recalculations WHERE document_id = $1 ORDER BY order_index", docID)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ListRecalculations: %w", err)
	}
	return rows, nil
}
