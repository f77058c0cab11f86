package constants

import "errors"

// Configuration errors.
var (
	ErrNoProfilesConfigured = errors.New("no profiles configured, use 'hubspot login' to add one")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrNoRefreshToken       = errors.New("no refresh token available, please run 'hubspot login' again")
	ErrFailedRetrieveToken  = errors.New("failed to retrieve refreshed token")
	ErrUnknownConfigKey     = errors.New("unknown configuration key")
	ErrNotAuthenticated     = errors.New("not authenticated, use 'hubspot login' first")
	ErrTokenRequired        = errors.New("an access token is required")
)

// Argument errors.
var (
	ErrInvalidPropertyFlag = errors.New("invalid --property value, expected name=value")
	ErrInvalidFilterFlag   = errors.New("invalid --filter value, expected property:OPERATOR[:value[:highValue]]")
	ErrInvalidSortFlag     = errors.New("invalid --sort value, expected property[:ASCENDING|DESCENDING]")
	ErrUnsupportedObject   = errors.New("unsupported object type")
	ErrRecordNotFound      = errors.New("record not found")
	ErrUnsupportedOutput   = errors.New("unsupported output format")
)
