// Package oauth implements the IdentityProvider port with Google sign-in.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ericfisherdev/credreview/internal/domain/port/driven"
)

// DefaultUserInfoURL returns the signed-in user's OpenID profile.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

var scopes = []string{"openid", "profile", "email", "https://www.googleapis.com/auth/userinfo.profile"}

// Compile-time interface satisfaction check.
var _ driven.IdentityProvider = (*GoogleProvider)(nil)

// GoogleProvider builds consent URLs and exchanges authorization codes for
// the user's profile.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a provider for the given OAuth client. Missing
// credentials are reported lazily by AuthURL and ExchangeProfile.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return NewProviderWithEndpoint(clientID, clientSecret, redirectURL, google.Endpoint, DefaultUserInfoURL)
}

// NewProviderWithEndpoint creates a provider against custom endpoints.
// Intended for tests that point at an httptest server.
func NewProviderWithEndpoint(clientID, clientSecret, redirectURL string, endpoint oauth2.Endpoint, userInfoURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

// AuthURL returns the consent page URL carrying state.
func (p *GoogleProvider) AuthURL(state string) (string, error) {
	if p.config.ClientID == "" {
		return "", fmt.Errorf("%w: client id missing", driven.ErrIdentityNotConfigured)
	}
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// ExchangeProfile trades code for a token and fetches the user profile.
func (p *GoogleProvider) ExchangeProfile(ctx context.Context, code string) (map[string]any, error) {
	if p.config.ClientID == "" || p.config.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client credentials missing", driven.ErrIdentityNotConfigured)
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var profile map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return profile, nil
}
