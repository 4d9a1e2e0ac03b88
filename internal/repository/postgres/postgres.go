package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/3ngin33r0d1y/API-Monitoring/internal/domain"
	"github.com/3ngin33r0d1y/API-Monitoring/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.DeploymentRecordRepository = (*Repository)(nil)
	_ repository.ProjectRepository          = (*Repository)(nil)
)

// UpsertRecord stores the latest observation for a service, environment,
// project and region key, preserving the first-seen timestamp that fixes
// grouping order.
func (r *Repository) UpsertRecord(ctx context.Context, record *domain.DeploymentRecord) error {
	const query = `INSERT INTO deployment_records
		(id, service_name, version, environment, status, response_time_ms, project_id, region, reported_at, first_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (service_name, environment, project_id, region) DO UPDATE SET
			version = EXCLUDED.version,
			status = EXCLUDED.status,
			response_time_ms = EXCLUDED.response_time_ms,
			reported_at = EXCLUDED.reported_at`
	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.ServiceName,
		record.Version,
		record.Environment,
		record.Status,
		record.ResponseTimeMS,
		record.ProjectID,
		record.Region,
		record.ReportedAt,
		record.FirstSeenAt,
	)
	return err
}

// ListRecords returns every record ordered by first-seen time so that the
// engine's service grouping stays stable across refreshes.
func (r *Repository) ListRecords(ctx context.Context) ([]domain.DeploymentRecord, error) {
	const query = `SELECT id, service_name, version, environment, status, response_time_ms, project_id, region, reported_at, first_seen_at
		FROM deployment_records
		ORDER BY first_seen_at, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.DeploymentRecord
	for rows.Next() {
		var rec domain.DeploymentRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.ServiceName,
			&rec.Version,
			&rec.Environment,
			&rec.Status,
			&rec.ResponseTimeMS,
			&rec.ProjectID,
			&rec.Region,
			&rec.ReportedAt,
			&rec.FirstSeenAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteRecordsReportedBefore prunes observations collectors stopped
// refreshing.
func (r *Repository) DeleteRecordsReportedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM deployment_records WHERE reported_at < $1`
	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpsertProject stores or renames a project.
func (r *Repository) UpsertProject(ctx context.Context, project *domain.Project) error {
	const query = `INSERT INTO projects (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`
	_, err := r.pool.Exec(ctx, query, project.ID, project.Name, project.CreatedAt)
	return err
}

// ListProjects returns all known projects.
func (r *Repository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	const query = `SELECT id, name, created_at FROM projects ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
