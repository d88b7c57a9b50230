package application

import (
	"context"
	"log/slog"
	"time"
)

// HealthStatus is the combined state of the service's dependencies.
type HealthStatus string

const (
	HealthOK       HealthStatus = "ok"
	HealthDegraded HealthStatus = "degraded"
)

// defaultCheckTimeout bounds a single dependency check.
const defaultCheckTimeout = 2 * time.Second

// HealthCheck probes one named dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// ComponentHealth is the outcome of one HealthCheck. Error is empty when the
// check passed.
type ComponentHealth struct {
	Name   string
	Status HealthStatus
	Error  string
}

// HealthReport aggregates every component. Status is degraded when any
// component failed.
type HealthReport struct {
	Status     HealthStatus
	Components []ComponentHealth
}

// HealthService runs the registered dependency checks on demand.
type HealthService struct {
	checks  []HealthCheck
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthService creates a HealthService over checks, run in order.
func NewHealthService(logger *slog.Logger, checks ...HealthCheck) *HealthService {
	return &HealthService{
		checks:  checks,
		timeout: defaultCheckTimeout,
		logger:  logger,
	}
}

// Report runs every check under its own timeout and combines the results.
func (s *HealthService) Report(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:     HealthOK,
		Components: make([]ComponentHealth, 0, len(s.checks)),
	}

	for _, c := range s.checks {
		component := ComponentHealth{Name: c.Name, Status: HealthOK}
		if err := s.run(ctx, c); err != nil {
			s.logger.Warn("health check failed", "component", c.Name, "error", err)
			component.Status = HealthDegraded
			component.Error = err.Error()
			report.Status = HealthDegraded
		}
		report.Components = append(report.Components, component)
	}

	return report
}

func (s *HealthService) run(ctx context.Context, c HealthCheck) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return c.Check(ctx)
}
