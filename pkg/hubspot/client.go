package hubspot

import (
	"context"
	"time"
)

// ObjectsClient is the CRUD, search and batch surface shared by every CRM object type.
type ObjectsClient[E Entity] interface {
	// ObjectType returns the object type name used in paths, e.g. "companies".
	ObjectType() string

	Create(ctx context.Context, entity E) (E, error)
	Update(ctx context.Context, entity E) (E, error)
	CreateOrUpdate(ctx context.Context, entity E) (E, error)
	Delete(ctx context.Context, entity E) error
	DeleteByID(ctx context.Context, id int64) error

	// GetByUniqueID returns nil, nil when no record matches.
	GetByUniqueID(ctx context.Context, id Identifier, opts *GetOptions) (E, error)

	Search(ctx context.Context, opts *SearchRequestOptions) (*Envelope[E], error)
	SearchAll(ctx context.Context, opts *SearchRequestOptions) ([]E, error)
	List(ctx context.Context, opts *SearchRequestOptions) (*Envelope[E], error)
	RecentlyCreated(ctx context.Context) (*Envelope[E], error)
	RecentlyUpdated(ctx context.Context) (*Envelope[E], error)

	BatchCreate(ctx context.Context, entities []E) (*Envelope[E], error)
	BatchUpdate(ctx context.Context, entities []E) (*Envelope[E], error)
	BatchUpsert(ctx context.Context, entities []E, idProperty string) (*Envelope[E], error)
	BatchCreateOrUpdate(ctx context.Context, entities []E) (*Envelope[E], error)
	BatchRead(ctx context.Context, ids []Identifier, opts *GetOptions) (*Envelope[E], error)
	BatchArchive(ctx context.Context, ids []int64) (*Envelope[E], error)
}

// Typed object clients.
type (
	CompaniesClient = ObjectsClient[*Company]
	ContactsClient  = ObjectsClient[*Contact]
	DealsClient     = ObjectsClient[*Deal]
	TicketsClient   = ObjectsClient[*Ticket]
)

// AssociationsClient manages links between records through the v4 API.
type AssociationsClient interface {
	// Associate links two records. Without types the default association is used.
	Associate(ctx context.Context, from, to ObjectRef, types ...AssociationTypeID) error
	List(ctx context.Context, from ObjectRef, toType string, opts *SearchRequestOptions) (*Envelope[AssociatedObject], error)
	ListAll(ctx context.Context, from ObjectRef, toType string) ([]AssociatedObject, error)
	Remove(ctx context.Context, from, to ObjectRef) error

	BatchAssociateDefault(ctx context.Context, fromType, toType string, inputs []AssociationInput) (*Envelope[AssociationCreateResult], error)
	BatchCreate(ctx context.Context, fromType, toType string, inputs []AssociationInput) (*Envelope[AssociationCreateResult], error)
	BatchRead(ctx context.Context, fromType, toType string, ids []int64) (*Envelope[AssociationBatchResult], error)
	BatchArchive(ctx context.Context, fromType, toType string, inputs []AssociationArchiveInput) error
	BatchArchiveLabels(ctx context.Context, fromType, toType string, inputs []AssociationArchiveInput) error
}

// AssociationTypesClient manages custom association labels.
type AssociationTypesClient interface {
	List(ctx context.Context, fromType, toType string) ([]AssociationLabel, error)
	Create(ctx context.Context, fromType, toType string, definition AssociationTypeDefinition) (AssociationTypePair, error)
	Update(ctx context.Context, fromType, toType string, update AssociationTypeUpdate) error
	Delete(ctx context.Context, fromType, toType string, typeID int64) error
}

// ObjectClients provides access to the per-object clients.
type ObjectClients interface {
	Companies() CompaniesClient
	Contacts() ContactsClient
	Deals() DealsClient
	Tickets() TicketsClient
}

// Client is the HubSpot CRM client.
type Client interface {
	ObjectClients
	Associations() AssociationsClient
	AssociationTypes() AssociationTypesClient
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a hubspot.Client.
//
// # Authentication precedence
//
//  1. AccessToken: a private app token sent as a static Bearer token.
//  2. ClientID/ClientSecret/RefreshToken: OAuth2 refresh-token grant against
//     TokenURL. The access token is renewed shortly before it expires and
//     once more after any 401.
//  3. Otherwise hsclient.New fails with ErrNoCredentials.
//
// # Timeouts and retries
//
// Per-request timeouts should generally be controlled via the context passed
// to client methods. 429 and 5xx responses are retried with exponential
// backoff, honouring Retry-After; tune with RetryMax/RetryWaitMin/RetryWaitMax.
type Config struct {
	// BaseURL: API host, "https://api.hubapi.com" when empty. hsclient.New
	// trims a trailing slash and adds "https://" if no scheme is present.
	BaseURL string

	// AccessToken: private app token.
	AccessToken string

	// OAuth2 app credentials.
	ClientID     string
	ClientSecret string
	RefreshToken string

	// TokenURL: OAuth2 token endpoint, "https://api.hubapi.com/oauth/v1/token" when empty.
	TokenURL string

	HTTPTimeout  time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// UserAgent: overrides the default User-Agent header.
	UserAgent string

	// Debug: enables request/response logging when a Logger is provided.
	Debug bool

	// Logger: optional structured logger used by the HTTP layer.
	Logger Logger

	// Interceptors: optional hooks run around every API call, once per call
	// rather than once per retry attempt.
	Interceptors *InterceptorChain
}
