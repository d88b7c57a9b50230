package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(context.Context) error { return nil }

func TestHealthService_AllPassing(t *testing.T) {
	svc := NewHealthService(discardLogger(),
		HealthCheck{Name: "database", Check: passing},
		HealthCheck{Name: "schema", Check: passing},
	)

	report := svc.Report(context.Background())

	assert.Equal(t, HealthOK, report.Status)
	require.Len(t, report.Components, 2)
	assert.Equal(t, "database", report.Components[0].Name)
	assert.Equal(t, HealthOK, report.Components[1].Status)
	assert.Empty(t, report.Components[1].Error)
}

func TestHealthService_OneFailingDegrades(t *testing.T) {
	svc := NewHealthService(discardLogger(),
		HealthCheck{Name: "database", Check: func(context.Context) error { return errors.New("database is locked") }},
		HealthCheck{Name: "schema", Check: passing},
	)

	report := svc.Report(context.Background())

	assert.Equal(t, HealthDegraded, report.Status)
	assert.Equal(t, HealthDegraded, report.Components[0].Status)
	assert.Equal(t, "database is locked", report.Components[0].Error)
	assert.Equal(t, HealthOK, report.Components[1].Status)
}

func TestHealthService_CheckTimesOut(t *testing.T) {
	svc := NewHealthService(discardLogger(), HealthCheck{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	svc.timeout = 10 * time.Millisecond

	report := svc.Report(context.Background())

	assert.Equal(t, HealthDegraded, report.Status)
	assert.Contains(t, report.Components[0].Error, "deadline exceeded")
}

func TestHealthService_NoChecks(t *testing.T) {
	report := NewHealthService(discardLogger()).Report(context.Background())
	assert.Equal(t, HealthOK, report.Status)
	assert.Empty(t, report.Components)
}
