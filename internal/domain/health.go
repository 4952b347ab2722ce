package domain

import "time"

// Health statuses reported by dependency probes.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// SystemHealthCheck captures the outcome of a single dependency probe.
type SystemHealthCheck struct {
	Status    string
	Latency   time.Duration
	Error     string
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency probes for the health endpoints.
type SystemHealthReport struct {
	Status      string
	GeneratedAt time.Time
	Version     string
	Environment string
	Uptime      time.Duration
	Checks      map[string]SystemHealthCheck
}
