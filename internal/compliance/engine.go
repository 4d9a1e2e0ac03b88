package compliance

import (
	"fmt"
	"math"
	"time"

	"github.com/3ngin33r0d1y/API-Monitoring/internal/domain"
)

// Snapshot is the engine's input: the flat record list supplied by the data
// source plus the project-id to display-name lookup. The engine only reads
// it.
type Snapshot struct {
	Records      []domain.DeploymentRecord
	ProjectNames map[string]string
}

// ServiceStatus summarizes one service inside a Result, in grouping order.
type ServiceStatus struct {
	ServiceName  string         `json:"service_name"`
	ProjectName  string         `json:"project_name,omitempty"`
	Environments EnvironmentMap `json:"environments"`
	Stages       StageVersions  `json:"stages"`
	Compliant    bool           `json:"compliant"`
}

// Result is the engine's sole output. Violations follow service grouping
// order, then rule order within a service.
type Result struct {
	Services               []ServiceStatus `json:"services"`
	Violations             []Violation     `json:"violations"`
	Diagnostics            []AliasConflict `json:"diagnostics,omitempty"`
	TotalServices          int             `json:"total_services"`
	ServicesWithViolations int             `json:"services_with_violations"`
	CompliantServices      int             `json:"compliant_services"`
	ScorePercent           int             `json:"compliance_score_percent"`
	ComputedAt             time.Time       `json:"computed_at"`
}

// EvaluationError reports an unexpected internal failure during evaluation.
// Evaluation is atomic: when this is returned no partial result exists.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("compliance evaluation failed: %v", e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Engine evaluates version-promotion compliance over record snapshots. It is
// a pure function of its input: no state survives between invocations, so
// overlapping evaluations are safe and identical snapshots produce identical
// results.
type Engine struct {
	rules RuleConfig
	now   func() time.Time
}

// NewEngine returns an engine applying the given rule set.
func NewEngine(rules RuleConfig) *Engine {
	return &Engine{rules: rules, now: time.Now}
}

// Evaluate groups the snapshot's records per service, resolves canonical
// stages, applies the promotion rules and rolls the outcome up into a fleet
// score. Malformed input degrades gracefully; only a broken internal
// invariant yields an *EvaluationError.
func (e *Engine) Evaluate(snapshot Snapshot) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = &EvaluationError{Err: fmt.Errorf("panic during evaluation: %v", rec)}
		}
	}()

	groups := GroupRecords(snapshot.Records)
	res := &Result{
		Services:   make([]ServiceStatus, 0, groups.Len()),
		Violations: []Violation{},
		ComputedAt: e.now().UTC(),
	}

	for _, name := range groups.ServiceNames() {
		envs := groups.Environments(name)
		stages, conflicts := ResolveStages(envs)
		for i := range conflicts {
			conflicts[i].ServiceName = name
		}
		res.Diagnostics = append(res.Diagnostics, conflicts...)

		projectName := snapshot.ProjectNames[groups.ProjectID(name)]
		violations := EvaluateService(name, projectName, stages, e.rules)

		res.Services = append(res.Services, ServiceStatus{
			ServiceName:  name,
			ProjectName:  projectName,
			Environments: envs,
			Stages:       stages.Versions(),
			Compliant:    len(violations) == 0,
		})
		res.Violations = append(res.Violations, violations...)
		if len(violations) > 0 {
			res.ServicesWithViolations++
		}
	}

	res.TotalServices = groups.Len()
	res.CompliantServices = res.TotalServices - res.ServicesWithViolations
	res.ScorePercent = scorePercent(res.CompliantServices, res.TotalServices)
	return res, nil
}

// scorePercent is the fleet score: percentage of services with zero
// violations, rounded half-up. An empty fleet is fully compliant.
func scorePercent(compliant, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(100 * float64(compliant) / float64(total)))
}
