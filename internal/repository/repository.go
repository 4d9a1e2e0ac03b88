package repository

import (
	"context"
	"time"

	"github.com/3ngin33r0d1y/API-Monitoring/internal/domain"
)

// DeploymentRecordRepository persists the latest observed deployment per
// service, environment and region.
type DeploymentRecordRepository interface {
	UpsertRecord(ctx context.Context, record *domain.DeploymentRecord) error
	ListRecords(ctx context.Context) ([]domain.DeploymentRecord, error)
	DeleteRecordsReportedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ProjectRepository persists the project-id to display-name lookup.
type ProjectRepository interface {
	UpsertProject(ctx context.Context, project *domain.Project) error
	ListProjects(ctx context.Context) ([]domain.Project, error)
}
