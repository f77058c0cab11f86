package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrNoValidCredentials = errors.New("no valid credentials available: a refresh token with client id and secret is required")
)

// OAuth2Config configures the refresh-token grant of a HubSpot public app.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string
	HTTPClient   *http.Client
}

// OAuth2TokenManager renews HubSpot OAuth access tokens with the refresh-token grant.
type OAuth2TokenManager struct {
	config      *OAuth2Config
	oauthConfig *oauth2.Config
	store       *TokenStore
	mu          sync.Mutex
}

// NewOAuth2TokenManager creates a manager. An AccessToken in config is used
// until it is rejected or a refresh is forced.
func NewOAuth2TokenManager(config *OAuth2Config) *OAuth2TokenManager {
	if config.TokenURL == "" {
		config.TokenURL = constants.DefaultTokenURL
	}

	manager := &OAuth2TokenManager{
		config: config,
		oauthConfig: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store: NewTokenStore(),
	}

	if config.AccessToken != "" {
		manager.store.Set(&Token{
			AccessToken:  config.AccessToken,
			RefreshToken: config.RefreshToken,
			TokenType:    "bearer",
		})
	}

	return manager
}

// GetToken returns a valid access token, refreshing it when it is missing or about to expire.
func (m *OAuth2TokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token.Valid() {
		return token.AccessToken, nil
	}

	err := m.RefreshToken(ctx)
	if err != nil {
		return "", err
	}

	return m.store.Get().AccessToken, nil
}

// RefreshToken exchanges the refresh token for a new access token.
func (m *OAuth2TokenManager) RefreshToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	refreshToken := m.config.RefreshToken
	if current := m.store.Get(); current != nil && current.RefreshToken != "" {
		refreshToken = current.RefreshToken
	}

	if refreshToken == "" || m.config.ClientID == "" || m.config.ClientSecret == "" {
		return ErrNoValidCredentials
	}

	httpClient := m.config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.ShortHTTPTimeout}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)

	oauthToken, err := m.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return fmt.Errorf("refreshing access token: %w", err)
	}

	token := &Token{
		AccessToken:  oauthToken.AccessToken,
		RefreshToken: oauthToken.RefreshToken,
		TokenType:    oauthToken.TokenType,
		ExpiresAt:    oauthToken.Expiry,
	}

	if !oauthToken.Expiry.IsZero() {
		token.ExpiresIn = int(time.Until(oauthToken.Expiry).Seconds())
	}

	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	m.store.Set(token)

	return nil
}

// SetToken installs an access token obtained elsewhere.
func (m *OAuth2TokenManager) SetToken(accessToken string, expiresAt time.Time) {
	refreshToken := m.config.RefreshToken
	if current := m.store.Get(); current != nil && current.RefreshToken != "" {
		refreshToken = current.RefreshToken
	}

	m.store.Set(&Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
	})
}

// CurrentToken returns the stored token, or nil before the first refresh.
func (m *OAuth2TokenManager) CurrentToken() *Token {
	return m.store.Get()
}
