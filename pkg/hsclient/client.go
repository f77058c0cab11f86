package hsclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/hubspot-client/internal/client"
	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// New creates a HubSpot CRM client. The caller's config is not modified.
func New(ctx context.Context, config *hubspot.Config) (hubspot.Client, error) {
	if config == nil {
		return nil, hubspot.ErrConfigRequired
	}

	normalized := *config
	normalized.BaseURL = NormalizeBaseURL(config.BaseURL)

	if normalized.TokenURL != "" {
		normalized.TokenURL = NormalizeBaseURL(normalized.TokenURL)
	}

	c, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NormalizeBaseURL trims a trailing slash and adds "https://" when no scheme
// is given. An empty value yields the public API host.
func NormalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return constants.DefaultBaseURL
	}

	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return baseURL
}

// NewWithToken creates a client authenticated with a private app token.
func NewWithToken(ctx context.Context, token string) (hubspot.Client, error) {
	return New(ctx, &hubspot.Config{
		AccessToken: token,
	})
}

// NewWithRefreshToken creates a client for an OAuth app installation. Access
// tokens are obtained from refreshToken and renewed before they expire.
func NewWithRefreshToken(ctx context.Context, clientID, clientSecret, refreshToken string) (hubspot.Client, error) {
	return New(ctx, &hubspot.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
	})
}
