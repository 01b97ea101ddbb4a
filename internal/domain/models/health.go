package models

import (
	"strings"
	"time"
)

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// ParseHealthStatus maps anything that is not healthy or degraded to unhealthy.
func ParseHealthStatus(s string) HealthStatus {
	switch HealthStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusHealthy:
		return StatusHealthy
	case StatusDegraded:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

// HealthComponent is one row of the backend's system health table.
type HealthComponent struct {
	Component string       `json:"component"`
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message"`
	UpdatedAt time.Time    `json:"updated_at"`
}
