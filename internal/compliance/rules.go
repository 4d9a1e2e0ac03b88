package compliance

import "fmt"

// Violation severity levels.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Violation is one detected breach of the promotion policy for one service.
// Immutable once emitted.
type Violation struct {
	ServiceName   string        `json:"service_name"`
	ProjectName   string        `json:"project_name"`
	Severity      string        `json:"severity"`
	Message       string        `json:"message"`
	StageVersions StageVersions `json:"stage_versions"`
}

// RuleConfig selects which promotion rules the evaluator applies. The
// missing-UAT check has historically been applied inconsistently between
// callers, so it is an explicit option instead of a hardcoded default.
type RuleConfig struct {
	IncludeMissingUATWarning bool
}

// DefaultRuleConfig enables the full rule set, including the missing-UAT
// structural warning.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{IncludeMissingUATWarning: true}
}

// EvaluateService applies the promotion rules to one service's resolved
// stages. Rules run in a fixed order, never short-circuit, and each emits
// its own violation, so a single service can accumulate several. The policy
// enforced is a dev -> uat -> oat -> prod pipeline: a version must never sit
// further along the pipeline than it does in an earlier stage.
func EvaluateService(serviceName, projectName string, stages StageSet, cfg RuleConfig) []Violation {
	versions := stages.Versions()

	emit := func(severity, message string) Violation {
		return Violation{
			ServiceName:   serviceName,
			ProjectName:   projectName,
			Severity:      severity,
			Message:       message,
			StageVersions: versions,
		}
	}

	var violations []Violation
	if stages.Prod.Present && stages.UAT.Present && CompareVersions(versions.Prod, versions.UAT) > 0 {
		violations = append(violations, emit(SeverityCritical,
			fmt.Sprintf("PROD version (%s) is higher than UAT version (%s)", versions.Prod, versions.UAT)))
	}
	if stages.Prod.Present && stages.OAT.Present && CompareVersions(versions.Prod, versions.OAT) > 0 {
		violations = append(violations, emit(SeverityCritical,
			fmt.Sprintf("PROD version (%s) is higher than OAT version (%s)", versions.Prod, versions.OAT)))
	}
	if stages.OAT.Present && stages.UAT.Present && CompareVersions(versions.OAT, versions.UAT) > 0 {
		violations = append(violations, emit(SeverityWarning,
			fmt.Sprintf("OAT version (%s) is higher than UAT version (%s)", versions.OAT, versions.UAT)))
	}
	if cfg.IncludeMissingUATWarning && stages.Prod.Present && !stages.UAT.Present {
		violations = append(violations, emit(SeverityWarning,
			fmt.Sprintf("PROD exists (%s) but UAT environment is missing", versions.Prod)))
	}
	return violations
}
