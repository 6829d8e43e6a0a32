package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"epdparser/internal/domain"
	"epdparser/internal/port"
)

type statsRepo struct {
	db *sqlx.DB
}

// NewStatsRepo creates a new PostgreSQL-backed StatsRepository.
func NewStatsRepo(db *sqlx.DB) port.StatsRepository {
	return &statsRepo{db: db}
}

const docStatsQuery = `SELECT
	COUNT(*) AS total_documents,
	COUNT(CASE WHEN processing_status = 'queued' THEN 1 END) AS queued,
	COUNT(CASE WHEN processing_status = 'processing' THEN 1 END) AS processing,
	COUNT(CASE WHEN processing_status = 'completed' THEN 1 END) AS completed,
	COUNT(CASE WHEN processing_status = 'failed' THEN 1 END) AS failed,
	COUNT(CASE WHEN parse_status = 'complete' THEN 1 END) AS parse_complete,
	COUNT(CASE WHEN parse_status = 'partial' THEN 1 END) AS parse_partial,
	COUNT(CASE WHEN parse_status = 'unsupported' THEN 1 END) AS parse_unsupported,
	COUNT(CASE WHEN warning_count > 0 THEN 1 END) AS with_warnings,
	COUNT(DISTINCT account_number) AS distinct_accounts,
	COALESCE(SUM(total_amount), 0) AS total_amount_sum,
	(SELECT COUNT(*) FROM service_charges) AS service_charge_count
FROM epd_documents`

func (r *statsRepo) GetStats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats
	if err := r.db.GetContext(ctx, &stats, docStatsQuery); err != nil {
		return nil, fmt.Errorf("statsRepo.GetStats: %w", err)
	}
	return &stats, nil
}
