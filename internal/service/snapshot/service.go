package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/3ngin33r0d1y/API-Monitoring/internal/compliance"
	"github.com/3ngin33r0d1y/API-Monitoring/internal/repository"
)

// Service assembles engine snapshots from persisted records and runs the
// evaluation. The engine itself stays pure; all I/O lives here.
type Service struct {
	records  repository.DeploymentRecordRepository
	projects repository.ProjectRepository
	engine   *compliance.Engine
	logger   *slog.Logger
}

// New returns a snapshot service.
func New(records repository.DeploymentRecordRepository, projects repository.ProjectRepository, engine *compliance.Engine, logger *slog.Logger) Service {
	return Service{
		records:  records,
		projects: projects,
		engine:   engine,
		logger:   logger,
	}
}

// Load reads the current records and project lookup into a snapshot.
func (s Service) Load(ctx context.Context) (compliance.Snapshot, error) {
	records, err := s.records.ListRecords(ctx)
	if err != nil {
		return compliance.Snapshot{}, fmt.Errorf("list deployment records: %w", err)
	}
	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		return compliance.Snapshot{}, fmt.Errorf("list projects: %w", err)
	}
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	return compliance.Snapshot{Records: records, ProjectNames: names}, nil
}

// Evaluate loads a fresh snapshot and runs the compliance engine over it.
func (s Service) Evaluate(ctx context.Context) (*compliance.Result, error) {
	snap, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Evaluate(snap)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("compliance evaluated",
		"records", len(snap.Records),
		"services", result.TotalServices,
		"violations", len(result.Violations),
		"score", result.ScorePercent,
	)
	return result, nil
}
