package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-report-service/internal/domain"
)

// ReportArtifactRepository encapsulates artifact metadata persistence.
type ReportArtifactRepository interface {
	Insert(ctx context.Context, artifact *domain.ReportArtifact) error
	List(ctx context.Context, limit, offset int) ([]domain.ReportArtifact, error)
	Count(ctx context.Context) (int, error)
	GetByName(ctx context.Context, name string) (*domain.ReportArtifact, error)
}

type reportArtifactRepository struct {
	pool *pgxpool.Pool
}

// NewReportArtifactRepository instantiates the repository.
func NewReportArtifactRepository(pool *pgxpool.Pool) ReportArtifactRepository {
	return &reportArtifactRepository{pool: pool}
}

func (r *reportArtifactRepository) Insert(ctx context.Context, artifact *domain.ReportArtifact) error {
	const query = `
        INSERT INTO report_artifacts (name, content_type, size_bytes, requested_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		artifact.Name,
		artifact.ContentType,
		artifact.SizeBytes,
		artifact.RequestedBy,
	).Scan(&artifact.ID, &artifact.CreatedAt)
}

func (r *reportArtifactRepository) List(ctx context.Context, limit, offset int) ([]domain.ReportArtifact, error) {
	const query = `
        SELECT id, name, content_type, size_bytes, requested_by, created_at
        FROM report_artifacts
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artifacts := make([]domain.ReportArtifact, 0, limit)
	for rows.Next() {
		var a domain.ReportArtifact
		if err := rows.Scan(&a.ID, &a.Name, &a.ContentType, &a.SizeBytes, &a.RequestedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

func (r *reportArtifactRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM report_artifacts`).Scan(&count)
	return count, err
}

func (r *reportArtifactRepository) GetByName(ctx context.Context, name string) (*domain.ReportArtifact, error) {
	const query = `
        SELECT id, name, content_type, size_bytes, requested_by, created_at
        FROM report_artifacts
        WHERE name = $1`
	var a domain.ReportArtifact
	err := r.pool.QueryRow(ctx, query, name).Scan(&a.ID, &a.Name, &a.ContentType, &a.SizeBytes, &a.RequestedBy, &a.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, pgx.ErrNoRows
		}
		return nil, err
	}
	return &a, nil
}
