package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// Endpoints.
const (
	// DefaultBaseURL is the HubSpot public API host.
	DefaultBaseURL = "https://api.hubapi.com"

	// DefaultTokenURL is the OAuth2 token endpoint used for refresh-token grants.
	DefaultTokenURL = "https://api.hubapi.com/oauth/v1/token"

	// ObjectsPathV3 prefixes the CRM v3 object endpoints.
	ObjectsPathV3 = "/crm/v3/objects/"

	// ObjectsPathV4 prefixes the record-level v4 association endpoints.
	ObjectsPathV4 = "/crm/v4/objects/"

	// AssociationsPathV4 prefixes the v4 batch association and label endpoints.
	AssociationsPathV4 = "/crm/v4/associations/"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as token refresh.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 5

	// LowRetryMax is used for operations that should retry fewer times.
	LowRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// ExtendedRetryWaitMax is used when rate limits call for longer waits.
	ExtendedRetryWaitMax = 30 * time.Second

	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second
)

// CRM request ceilings.
const (
	// MaxBatchSize is the largest number of inputs accepted by a v3 batch endpoint.
	MaxBatchSize = 100

	// MaxFilterGroups is the number of OR'd filter groups a search accepts.
	MaxFilterGroups = 3

	// MaxFiltersPerGroup is the number of AND'd filters a filter group accepts.
	MaxFiltersPerGroup = 3

	// MaxSearchLimit is the page size ceiling for search and list calls.
	MaxSearchLimit = 100

	// MaxHistoryLimit is the page size ceiling when property history is requested.
	MaxHistoryLimit = 50

	// DefaultAssociationPageSize is the page size used when listing associations.
	DefaultAssociationPageSize = 500

	// DefaultMaxPages bounds iterators that fetch every page.
	DefaultMaxPages = 1000

	// RecentWindow is the look-back period of the "recently created" filter.
	RecentWindow = 7 * 24 * time.Hour

	// PrivateAppRequestsPerSecond and PrivateAppBurst match the private app
	// allowance of 100 calls per 10 seconds.
	PrivateAppRequestsPerSecond = 10
	PrivateAppBurst             = 100
)

// Wire formats.
const (
	// DateTimeLayout is how HubSpot renders datetime property values.
	DateTimeLayout = "2006-01-02T15:04:05.000Z"

	// DateLayout is how HubSpot renders date-only property values.
	DateLayout = "2006-01-02"
)

// Display constants.
const (
	// StandardPageSize is the page size the CLI requests by default.
	StandardPageSize = 50

	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)

// CLI defaults.
const (
	// ConfigDirName is the directory under $HOME holding the CLI configuration.
	ConfigDirName = ".hubspot"

	// ConfigFileName is the CLI configuration file inside ConfigDirName.
	ConfigFileName = "config.yml"

	// DefaultProfile names the profile login writes when none is given.
	DefaultProfile = "default"

	// DefaultMockAddr is where "hubspot mock" listens by default.
	DefaultMockAddr = "127.0.0.1:8080"

	// MockShutdownTimeout bounds the graceful shutdown of "hubspot mock".
	MockShutdownTimeout = 5 * time.Second
)
