package compliance

import (
	"testing"

	"github.com/3ngin33r0d1y/API-Monitoring/internal/domain"
)

func TestResolveStagesAliasPrecedence(t *testing.T) {
	envs := EnvironmentMap{
		"uat":        {ServiceName: "pay-api", Environment: "uat", Version: "1.0.0"},
		"staging":    {ServiceName: "pay-api", Environment: "staging", Version: "1.2.0"},
		"production": {ServiceName: "pay-api", Environment: "production", Version: "1.0.0"},
	}

	stages, conflicts := ResolveStages(envs)
	if !stages.UAT.Present || stages.UAT.Version() != "1.0.0" {
		t.Fatalf("expected uat label to win over staging, got %q", stages.UAT.Version())
	}
	if !stages.Prod.Present || stages.Prod.Version() != "1.0.0" {
		t.Fatalf("expected production alias to resolve prod, got %q", stages.Prod.Version())
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected one alias conflict, got %d", len(conflicts))
	}
	c := conflicts[0]
	if c.Stage != StageUAT || c.ChosenLabel != "uat" || c.IgnoredLabel != "staging" {
		t.Fatalf("unexpected conflict: %+v", c)
	}
	if c.ChosenVersion != "1.0.0" || c.IgnoredVersion != "1.2.0" {
		t.Fatalf("conflict versions wrong: %+v", c)
	}
}

func TestResolveStagesNoConflictWhenAliasesAgree(t *testing.T) {
	envs := EnvironmentMap{
		"dev":         {Version: "1.0.0"},
		"development": {Version: "1.0.0"},
	}

	stages, conflicts := ResolveStages(envs)
	if !stages.Dev.Present {
		t.Fatal("expected dev stage to resolve")
	}
	if len(conflicts) != 0 {
		t.Fatalf("matching alias versions must not conflict, got %d", len(conflicts))
	}
}

func TestResolveStagesAbsentWithoutVersion(t *testing.T) {
	envs := EnvironmentMap{
		"prod": {ServiceName: "cache-api", Environment: "prod", Status: domain.StatusOnline},
	}

	stages, _ := ResolveStages(envs)
	if stages.Prod.Present {
		t.Fatal("a record without a version must leave the stage absent")
	}
	if stages.Prod.Version() != "" {
		t.Fatalf("absent stage must report empty version, got %q", stages.Prod.Version())
	}
}

func TestResolveStagesFirstAliasWithoutVersionDoesNotFallBack(t *testing.T) {
	envs := EnvironmentMap{
		"uat":     {Environment: "uat"},
		"staging": {Environment: "staging", Version: "2.0.0"},
	}

	stages, _ := ResolveStages(envs)
	if stages.UAT.Present {
		t.Fatal("precedence is fixed: an empty-version uat record must not fall back to staging")
	}
}

func TestResolveStagesDoesNotMutateInput(t *testing.T) {
	envs := EnvironmentMap{
		"staging": {Version: "1.0.0"},
		"oat":     {Version: "1.0.0"},
	}

	ResolveStages(envs)
	if len(envs) != 2 {
		t.Fatalf("resolution must not mutate the raw map, got %d entries", len(envs))
	}
	if _, ok := envs["staging"]; !ok {
		t.Fatal("raw staging label must survive resolution")
	}
}

func TestStageSetVersionsSnapshot(t *testing.T) {
	envs := EnvironmentMap{
		"dev":  {Version: "1.0.0"},
		"uat":  {Version: "1.1.0"},
		"oat":  {Version: "1.1.0"},
		"prod": {Version: "1.0.5"},
	}

	stages, _ := ResolveStages(envs)
	versions := stages.Versions()
	want := StageVersions{Dev: "1.0.0", UAT: "1.1.0", OAT: "1.1.0", Prod: "1.0.5"}
	if versions != want {
		t.Fatalf("got %+v, want %+v", versions, want)
	}
}
