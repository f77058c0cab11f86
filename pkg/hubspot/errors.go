package hubspot

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
)

// HubSpot error categories.
const (
	CategoryValidationError = "VALIDATION_ERROR"
	CategoryObjectNotFound  = "OBJECT_NOT_FOUND"
	CategoryConflict        = "CONFLICT"
	CategoryRateLimits      = "RATE_LIMITS"
	CategoryUnauthorized    = "INVALID_AUTHENTICATION"
)

// ErrValidation is the root of every error raised before a request is sent.
var ErrValidation = errors.New("client-side validation failed")

// Client-side validation errors. All of them wrap ErrValidation; range
// violations additionally wrap ErrOutOfRange.
var (
	ErrOutOfRange          = fmt.Errorf("%w: value out of range", ErrValidation)
	ErrMissingIdentifier   = fmt.Errorf("%w: entity has no identifier", ErrValidation)
	ErrNumericIDRequired   = fmt.Errorf("%w: a numeric record id is required", ErrValidation)
	ErrMissingIDProperty   = fmt.Errorf("%w: named identifiers need an idProperty", ErrValidation)
	ErrTooManyFilterGroups = fmt.Errorf("%w: at most %d filter groups are allowed", ErrOutOfRange, constants.MaxFilterGroups)
	ErrTooManyFilters      = fmt.Errorf("%w: at most %d filters per group are allowed", ErrOutOfRange, constants.MaxFiltersPerGroup)
	ErrLimitTooHigh        = fmt.Errorf("%w: limit may not exceed %d", ErrOutOfRange, constants.MaxSearchLimit)
	ErrHistoryLimitTooHigh = fmt.Errorf("%w: limit may not exceed %d when property history is requested", ErrOutOfRange, constants.MaxHistoryLimit)
	ErrNegativeLimit       = fmt.Errorf("%w: limit may not be negative", ErrOutOfRange)
	ErrBatchTooLarge       = fmt.Errorf("%w: a batch may hold at most %d inputs", ErrOutOfRange, constants.MaxBatchSize)
	ErrUnknownCategory     = fmt.Errorf("%w: unknown association category", ErrValidation)
	ErrMissingOperator     = fmt.Errorf("%w: filter has a property but no operator", ErrValidation)
	ErrInvalidObjectRef    = fmt.Errorf("%w: object reference needs a type and a numeric id", ErrValidation)
)

// Configuration and iteration errors.
var (
	ErrConfigRequired = errors.New("config is required")
	ErrNoCredentials  = errors.New("an access token or OAuth client credentials with a refresh token are required")
	ErrNoMoreItems    = errors.New("no more items")
)

// ValidationError describes a request rejected locally, before it reached the API.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}

	return fmt.Sprintf("%s: %v: %s", e.Field, e.Err, e.Reason)
}

// Unwrap returns the sentinel the validation failure is classified under.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(field string, err error, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...), Err: err}
}

// ErrorDetail is one entry of the errors array of an API error body.
type ErrorDetail struct {
	Message     string              `json:"message"`
	Code        string              `json:"code,omitempty"`
	In          string              `json:"in,omitempty"`
	SubCategory string              `json:"subCategory,omitempty"`
	Context     map[string][]string `json:"context,omitempty"`
}

// APIError is returned for every unsuccessful HTTP status.
type APIError struct {
	StatusCode    int           `json:"-"`
	Status        string        `json:"-"`
	Body          string        `json:"-"`
	Message       string        `json:"message"`
	Category      string        `json:"category"`
	SubCategory   string        `json:"subCategory,omitempty"`
	CorrelationID string        `json:"correlationId"`
	Details       []ErrorDetail `json:"errors,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}

	if e.Category != "" {
		return fmt.Sprintf("%s: %s (%s, status: %d)", e.Status, msg, e.Category, e.StatusCode)
	}

	return fmt.Sprintf("%s: %s (status: %d)", e.Status, msg, e.StatusCode)
}

var existingIDPattern = regexp.MustCompile(`Existing ID:\s*(\d+)`)

// ExistingID extracts the id HubSpot reports when a create collides with a
// record that already owns the unique value.
func (e *APIError) ExistingID() (int64, bool) {
	match := existingIDPattern.FindStringSubmatch(e.Message)
	if match == nil {
		return 0, false
	}

	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// ParseAPIError builds an APIError from a response status and body. Bodies that
// are not HubSpot error documents are kept verbatim in Body.
func ParseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{}
	_ = json.Unmarshal(body, apiErr)

	apiErr.StatusCode = statusCode
	apiErr.Status = http.StatusText(statusCode)
	apiErr.Body = string(body)

	return apiErr
}

func asAPIError(err error) (*APIError, bool) {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}

// IsNotFound checks if the error is a 404 from the API.
func IsNotFound(err error) bool {
	apiErr, ok := asAPIError(err)

	return ok && (apiErr.StatusCode == http.StatusNotFound || apiErr.Category == CategoryObjectNotFound)
}

// IsConflict checks if the error reports a duplicate or conflicting record.
func IsConflict(err error) bool {
	apiErr, ok := asAPIError(err)

	return ok && (apiErr.StatusCode == http.StatusConflict || apiErr.Category == CategoryConflict)
}

// IsRateLimited checks if the error is a 429 that outlived the transport retries.
func IsRateLimited(err error) bool {
	apiErr, ok := asAPIError(err)

	return ok && (apiErr.StatusCode == http.StatusTooManyRequests || apiErr.Category == CategoryRateLimits)
}

// IsUnauthorized checks if the error is a 401 from the API.
func IsUnauthorized(err error) bool {
	apiErr, ok := asAPIError(err)

	return ok && apiErr.StatusCode == http.StatusUnauthorized
}

// IsServerValidation checks if HubSpot rejected the request content.
func IsServerValidation(err error) bool {
	apiErr, ok := asAPIError(err)

	return ok && apiErr.Category == CategoryValidationError
}

// IsClientValidation checks if err was raised locally before any request was sent.
func IsClientValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// ExistingID extracts the conflicting record id from err, if any.
func ExistingID(err error) (int64, bool) {
	apiErr, ok := asAPIError(err)
	if !ok {
		return 0, false
	}

	return apiErr.ExistingID()
}
