package driven

import (
	"context"

	"github.com/ericfisherdev/credreview/internal/domain/model"
)

// BreachFallback is a trusted intermediary that accepts raw secrets and
// returns breach counts positionally aligned with the request.
type BreachFallback interface {
	CountSecrets(ctx context.Context, secrets []string) ([]model.BreachCount, error)
}
