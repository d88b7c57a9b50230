package driven

import (
	"context"
	"errors"
)

// ErrIdentityNotConfigured is returned when OAuth client credentials are absent.
var ErrIdentityNotConfigured = errors.New("oauth client not configured: set CREDREVIEW_GOOGLE_CLIENT_ID")

// IdentityProvider builds consent URLs and exchanges authorization codes for
// the user's profile claims.
type IdentityProvider interface {
	AuthURL(state string) (string, error)
	ExchangeProfile(ctx context.Context, code string) (map[string]any, error)
}
