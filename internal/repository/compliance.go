package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ComplianceRepository supplies the completed-compliance sets fed into
// gating evaluation: SOP acknowledgements and training completions per
// user and site.
type ComplianceRepository struct {
	pool *pgxpool.Pool
}

// NewComplianceRepository creates a new ComplianceRepository.
func NewComplianceRepository(pool *pgxpool.Pool) *ComplianceRepository {
	return &ComplianceRepository{pool: pool}
}

// CompletedSOPIDs returns the SOP ids a user has acknowledged at a site.
func (r *ComplianceRepository) CompletedSOPIDs(ctx context.Context, userID, siteID string) ([]string, error) {
	return r.queryIDs(ctx, "sop_acknowledgements", "sop_id", userID, siteID)
}

// CompletedTrainingIDs returns the training module ids a user has completed
// at a site.
func (r *ComplianceRepository) CompletedTrainingIDs(ctx context.Context, userID, siteID string) ([]string, error) {
	return r.queryIDs(ctx, "training_completions", "training_id", userID, siteID)
}

func (r *ComplianceRepository) queryIDs(ctx context.Context, table, column, userID, siteID string) ([]string, error) {
	query, args, err := psql.
		Select(column).
		From(table).
		Where(sq.Eq{"user_id": userID, "site_id": siteID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", table, err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", column, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return ids, nil
}
