package compliance

import "github.com/3ngin33r0d1y/API-Monitoring/internal/domain"

// unknownKey substitutes for missing service names and environment labels.
const unknownKey = "unknown"

// EnvironmentMap maps raw environment labels to the record most recently
// seen under that exact label. Labels that alias to the same canonical stage
// (for example "uat" and "staging") stay distinct; resolution happens at
// read time in ResolveStages.
type EnvironmentMap map[string]domain.DeploymentRecord

// ServiceGroups partitions deployment records per service while preserving
// the order in which services were first seen.
type ServiceGroups struct {
	order      []string
	byService  map[string]EnvironmentMap
	projectIDs map[string]string
}

// GroupRecords buckets records by service name, then by raw environment
// label. A later record under the identical raw label overwrites an earlier
// one. Single linear pass; no merging across labels.
func GroupRecords(records []domain.DeploymentRecord) *ServiceGroups {
	g := &ServiceGroups{
		byService:  make(map[string]EnvironmentMap),
		projectIDs: make(map[string]string),
	}
	for _, record := range records {
		name := record.ServiceName
		if name == "" {
			name = unknownKey
		}
		envs, ok := g.byService[name]
		if !ok {
			envs = make(EnvironmentMap)
			g.byService[name] = envs
			g.order = append(g.order, name)
		}
		label := record.Environment
		if label == "" {
			label = unknownKey
		}
		envs[label] = record
		if g.projectIDs[name] == "" && record.ProjectID != "" {
			g.projectIDs[name] = record.ProjectID
		}
	}
	return g
}

// Len reports the number of distinct services.
func (g *ServiceGroups) Len() int {
	return len(g.order)
}

// ServiceNames returns service names in first-seen order.
func (g *ServiceGroups) ServiceNames() []string {
	names := make([]string, len(g.order))
	copy(names, g.order)
	return names
}

// Environments returns the raw-label map for one service, or nil when the
// service is unknown.
func (g *ServiceGroups) Environments(service string) EnvironmentMap {
	return g.byService[service]
}

// ProjectID returns the first non-empty project identifier observed for the
// service.
func (g *ServiceGroups) ProjectID(service string) string {
	return g.projectIDs[service]
}
