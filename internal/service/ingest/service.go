package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/3ngin33r0d1y/API-Monitoring/internal/domain"
	"github.com/3ngin33r0d1y/API-Monitoring/internal/repository"
)

// ErrEmptyBatch rejects collector pushes carrying no records.
var ErrEmptyBatch = errors.New("ingest: empty record batch")

// RecordInput is one observation pushed by a collector. Fields mirror what
// collectors scrape off service health endpoints; almost everything is
// optional because the engine degrades gracefully on missing data.
type RecordInput struct {
	ServiceName    string   `json:"service_name"`
	Version        string   `json:"version"`
	Environment    string   `json:"environment"`
	Status         string   `json:"status"`
	ResponseTimeMS *float64 `json:"response_time_ms"`
	ProjectID      string   `json:"project_id"`
	ProjectName    string   `json:"project_name"`
	Region         string   `json:"region"`
}

// Service stores collector observations for later evaluation.
type Service struct {
	records  repository.DeploymentRecordRepository
	projects repository.ProjectRepository
	logger   *slog.Logger
	now      func() time.Time
}

// New returns an ingest service.
func New(records repository.DeploymentRecordRepository, projects repository.ProjectRepository, logger *slog.Logger) Service {
	return Service{
		records:  records,
		projects: projects,
		logger:   logger,
		now:      time.Now,
	}
}

// Ingest upserts a batch of observations plus any project names they carry,
// returning the number of records stored.
func (s Service) Ingest(ctx context.Context, batch []RecordInput) (int, error) {
	if len(batch) == 0 {
		return 0, ErrEmptyBatch
	}
	now := s.now().UTC()

	seenProjects := make(map[string]struct{})
	for _, in := range batch {
		projectID := strings.TrimSpace(in.ProjectID)
		name := strings.TrimSpace(in.ProjectName)
		if projectID == "" || name == "" {
			continue
		}
		if _, ok := seenProjects[projectID]; ok {
			continue
		}
		seenProjects[projectID] = struct{}{}
		project := domain.Project{ID: projectID, Name: name, CreatedAt: now}
		if err := s.projects.UpsertProject(ctx, &project); err != nil {
			return 0, fmt.Errorf("upsert project %s: %w", projectID, err)
		}
	}

	stored := 0
	for _, in := range batch {
		record := domain.DeploymentRecord{
			ID:             uuid.NewString(),
			ServiceName:    strings.TrimSpace(in.ServiceName),
			Version:        strings.TrimSpace(in.Version),
			Environment:    strings.ToLower(strings.TrimSpace(in.Environment)),
			Status:         domain.NormalizeStatus(strings.ToLower(strings.TrimSpace(in.Status))),
			ResponseTimeMS: in.ResponseTimeMS,
			ProjectID:      strings.TrimSpace(in.ProjectID),
			Region:         strings.TrimSpace(in.Region),
			ReportedAt:     now,
			FirstSeenAt:    now,
		}
		if err := s.records.UpsertRecord(ctx, &record); err != nil {
			return stored, fmt.Errorf("upsert record for %s/%s: %w", record.ServiceName, record.Environment, err)
		}
		stored++
	}
	s.logger.Info("collector batch ingested", "records", stored, "projects", len(seenProjects))
	return stored, nil
}

// Prune removes records that collectors stopped refreshing.
func (s Service) Prune(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-ttl)
	removed, err := s.records.DeleteRecordsReportedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune stale records: %w", err)
	}
	if removed > 0 {
		s.logger.Info("stale records pruned", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}
