package driven

import (
	"context"

	"github.com/ericfisherdev/credreview/internal/domain/model"
)

// SiteProber classifies a site URL as alive, dead, or unknown. Implementations
// report failures as an unknown result rather than an error.
type SiteProber interface {
	Probe(ctx context.Context, rawURL string) model.ProbeResult
}
