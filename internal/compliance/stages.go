package compliance

import "github.com/3ngin33r0d1y/API-Monitoring/internal/domain"

// Canonical deployment stages, ordered along the promotion pipeline.
const (
	StageDev  = "dev"
	StageUAT  = "uat"
	StageOAT  = "oat"
	StageProd = "prod"
)

// stageAliases lists the raw labels accepted for each canonical stage, in
// precedence order: the first label found in the environment map wins and
// later aliases are ignored for resolution.
var stageAliases = map[string][]string{
	StageDev:  {"dev", "development"},
	StageUAT:  {"uat", "staging"},
	StageOAT:  {"oat"},
	StageProd: {"prod", "production"},
}

// StageRecord is the resolved record for one canonical stage. Present is
// false when no alias matched or when the matched record carries no version,
// so every rule precondition reduces to a Present check.
type StageRecord struct {
	Record  domain.DeploymentRecord
	Present bool
}

// Version returns the resolved version, or "" for an absent stage.
func (s StageRecord) Version() string {
	if !s.Present {
		return ""
	}
	return s.Record.Version
}

// StageSet holds the four canonical stages resolved for one service.
type StageSet struct {
	Dev  StageRecord
	UAT  StageRecord
	OAT  StageRecord
	Prod StageRecord
}

// StageVersions is the display snapshot of resolved versions attached to
// every violation.
type StageVersions struct {
	Dev  string `json:"dev,omitempty"`
	UAT  string `json:"uat,omitempty"`
	OAT  string `json:"oat,omitempty"`
	Prod string `json:"prod,omitempty"`
}

// Versions collapses the set into its version snapshot.
func (s StageSet) Versions() StageVersions {
	return StageVersions{
		Dev:  s.Dev.Version(),
		UAT:  s.UAT.Version(),
		OAT:  s.OAT.Version(),
		Prod: s.Prod.Version(),
	}
}

// AliasConflict reports two raw labels aliasing to the same canonical stage
// with different versions. The lower-precedence label is ignored during
// resolution, which silently hides a version unless surfaced here.
type AliasConflict struct {
	ServiceName    string `json:"service_name"`
	Stage          string `json:"stage"`
	ChosenLabel    string `json:"chosen_label"`
	ChosenVersion  string `json:"chosen_version"`
	IgnoredLabel   string `json:"ignored_label"`
	IgnoredVersion string `json:"ignored_version"`
}

// ResolveStages maps raw environment labels onto the canonical stages. The
// input map is never mutated; raw labels stay visible to callers for display.
func ResolveStages(envs EnvironmentMap) (StageSet, []AliasConflict) {
	var conflicts []AliasConflict
	set := StageSet{
		Dev:  resolveStage(envs, StageDev, &conflicts),
		UAT:  resolveStage(envs, StageUAT, &conflicts),
		OAT:  resolveStage(envs, StageOAT, &conflicts),
		Prod: resolveStage(envs, StageProd, &conflicts),
	}
	return set, conflicts
}

func resolveStage(envs EnvironmentMap, stage string, conflicts *[]AliasConflict) StageRecord {
	aliases := stageAliases[stage]
	for i, label := range aliases {
		record, ok := envs[label]
		if !ok {
			continue
		}
		for _, shadowed := range aliases[i+1:] {
			other, present := envs[shadowed]
			if present && other.Version != record.Version {
				*conflicts = append(*conflicts, AliasConflict{
					Stage:          stage,
					ChosenLabel:    label,
					ChosenVersion:  record.Version,
					IgnoredLabel:   shadowed,
					IgnoredVersion: other.Version,
				})
			}
		}
		return StageRecord{Record: record, Present: record.Version != ""}
	}
	return StageRecord{}
}
