package hubspottest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// apiError is a failure the fake reports as a HubSpot error document.
type apiError struct {
	status   int
	category string
	message  string
	context  map[string][]string
}

func (e *apiError) Error() string {
	return e.message
}

func notFound(format string, args ...interface{}) *apiError {
	return &apiError{status: http.StatusNotFound, category: hubspot.CategoryObjectNotFound, message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...interface{}) *apiError {
	return &apiError{status: http.StatusConflict, category: hubspot.CategoryConflict, message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...interface{}) *apiError {
	return &apiError{status: http.StatusBadRequest, category: hubspot.CategoryValidationError, message: fmt.Sprintf(format, args...)}
}

// errorDocument is HubSpot's error response body.
type errorDocument struct {
	Status        string              `json:"status"`
	Message       string              `json:"message"`
	CorrelationID string              `json:"correlationId"`
	Category      string              `json:"category"`
	Context       map[string][]string `json:"context,omitempty"`
}

// batchError is one entry of a batch response's errors list.
func batchError(err error, ids ...string) hubspot.BatchError {
	entry := hubspot.BatchError{Status: "error", Message: err.Error(), Category: "INTERNAL_ERROR"}

	var apiErr *apiError
	if errors.As(err, &apiErr) {
		entry.Category = apiErr.category
		entry.Context = apiErr.context
	}

	if len(ids) > 0 {
		if entry.Context == nil {
			entry.Context = map[string][]string{}
		}

		entry.Context["ids"] = ids
	}

	return entry
}
