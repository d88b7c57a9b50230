package driven

import (
	"context"

	"github.com/ericfisherdev/credreview/internal/domain/model"
)

// ProbeHistoryStore persists liveness probe outcomes keyed by site.
type ProbeHistoryStore interface {
	// Record appends a probe outcome for site.
	Record(ctx context.Context, site string, result model.ProbeResult) error

	// ListRecent returns up to limit entries, newest first. An empty site
	// lists entries across all sites.
	ListRecent(ctx context.Context, site string, limit int) ([]model.ProbeHistoryEntry, error)
}
