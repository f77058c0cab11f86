package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/hubspot-client/internal/auth"
	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/internal/http"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// Static errors for err113 compliance.
var (
	ErrNoTokenManagerConfigured = errors.New("no token manager configured")
	ErrStaticTokenCannotRefresh = errors.New("static token cannot be refreshed")
)

// Client implements the hubspot.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	baseURL      string
	logger       hubspot.Logger

	// Resource clients
	companies        *ObjectsClient[*hubspot.Company]
	contacts         *ObjectsClient[*hubspot.Contact]
	deals            *ObjectsClient[*hubspot.Deal]
	tickets          *ObjectsClient[*hubspot.Ticket]
	associations     *AssociationsClient
	associationTypes *AssociationTypesClient
}

// createTokenManager picks the token manager for the credentials in config.
// A private app token alone is static; with OAuth app credentials it is used
// until HubSpot rejects it and then renewed.
func createTokenManager(config *hubspot.Config) auth.TokenManager {
	hasOAuth := config.ClientID != "" && config.ClientSecret != "" && config.RefreshToken != ""

	switch {
	case hasOAuth:
		return auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL:     config.TokenURL,
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RefreshToken: config.RefreshToken,
			AccessToken:  config.AccessToken,
		})
	case config.AccessToken != "":
		return &staticTokenManager{token: config.AccessToken}
	default:
		return nil
	}
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *hubspot.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.Interceptors != nil {
		httpOpts = append(httpOpts, http.WithInterceptors(config.Interceptors))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.ExtendedRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// New creates a HubSpot client from config.
func New(ctx context.Context, config *hubspot.Config) (*Client, error) {
	if config == nil {
		return nil, hubspot.ErrConfigRequired
	}

	tokenManager := createTokenManager(config)
	if tokenManager == nil {
		return nil, hubspot.ErrNoCredentials
	}

	return NewWithTokenManager(config, tokenManager)
}

// NewWithTokenManager creates a HubSpot client that authenticates through tokenManager.
func NewWithTokenManager(config *hubspot.Config, tokenManager auth.TokenManager) (*Client, error) {
	if config == nil {
		return nil, hubspot.ErrConfigRequired
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = constants.DefaultBaseURL
	}

	httpClient := http.NewClient(baseURL, tokenManager, createHTTPClientOptions(config)...)

	client := &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		baseURL:      httpClient.BaseURL(),
		logger:       config.Logger,
	}

	client.initializeResourceClients()

	return client, nil
}

// BaseURL returns the API host the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// Companies implements hubspot.Client.Companies.
func (c *Client) Companies() hubspot.CompaniesClient {
	return c.companies
}

// Contacts implements hubspot.Client.Contacts.
func (c *Client) Contacts() hubspot.ContactsClient {
	return c.contacts
}

// Deals implements hubspot.Client.Deals.
func (c *Client) Deals() hubspot.DealsClient {
	return c.deals
}

// Tickets implements hubspot.Client.Tickets.
func (c *Client) Tickets() hubspot.TicketsClient {
	return c.tickets
}

// Associations implements hubspot.Client.Associations.
func (c *Client) Associations() hubspot.AssociationsClient {
	return c.associations
}

// AssociationTypes implements hubspot.Client.AssociationTypes.
func (c *Client) AssociationTypes() hubspot.AssociationTypesClient {
	return c.associationTypes
}

// GetToken returns the current access token from the token manager.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	if c.tokenManager == nil {
		return "", ErrNoTokenManagerConfigured
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}

	return token, nil
}

// initializeResourceClients initializes all resource-specific clients.
func (c *Client) initializeResourceClients() {
	c.companies = NewCompaniesClient(c.httpClient)
	c.contacts = NewContactsClient(c.httpClient)
	c.deals = NewDealsClient(c.httpClient)
	c.tickets = NewTicketsClient(c.httpClient)
	c.associations = NewAssociationsClient(c.httpClient)
	c.associationTypes = NewAssociationTypesClient(c.httpClient)
}

// staticTokenManager serves a private app token.
type staticTokenManager struct {
	token string
}

func (m *staticTokenManager) GetToken(ctx context.Context) (string, error) {
	return m.token, nil
}

func (m *staticTokenManager) RefreshToken(ctx context.Context) error {
	return ErrStaticTokenCannotRefresh
}

func (m *staticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.token = token
}
