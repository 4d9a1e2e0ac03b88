package domain

import "time"

// Deployment status values reported by collectors.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusUnknown = "unknown"
)

// DeploymentRecord is one observed deployment of a service in one raw
// environment. Records are snapshots owned by the collectors; the engine
// only reads them.
type DeploymentRecord struct {
	ID             string    `json:"id"`
	ServiceName    string    `json:"service_name"`
	Version        string    `json:"version,omitempty"`
	Environment    string    `json:"environment"` // raw label as reported, not normalized
	Status         string    `json:"status"`
	ResponseTimeMS *float64  `json:"response_time_ms,omitempty"`
	ProjectID      string    `json:"project_id,omitempty"`
	Region         string    `json:"region,omitempty"`
	ReportedAt     time.Time `json:"reported_at"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
}

// NormalizeStatus coerces a raw collector status onto the known set.
func NormalizeStatus(raw string) string {
	switch raw {
	case StatusOnline, StatusOffline:
		return raw
	default:
		return StatusUnknown
	}
}
