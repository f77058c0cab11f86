package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// apiCall is one expected request and the canned answer to it.
type apiCall struct {
	Method     string
	Path       string
	Query      map[string]string
	StatusCode int
	Response   interface{}
	CheckBody  func(t *testing.T, body map[string]interface{})
}

// recordingServer answers a fixed sequence of calls and fails the test on
// any request it does not expect.
type recordingServer struct {
	*httptest.Server

	mu     sync.Mutex
	calls  []apiCall
	served int
}

func newRecordingServer(t *testing.T, calls ...apiCall) *recordingServer {
	t.Helper()

	rs := &recordingServer{calls: calls}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		rs.mu.Lock()
		index := rs.served
		rs.served++
		rs.mu.Unlock()

		if !assert.Less(t, index, len(rs.calls), "unexpected request %s %s", request.Method, request.URL.Path) {
			writer.WriteHeader(http.StatusTeapot)

			return
		}

		expected := rs.calls[index]
		assert.Equal(t, expected.Method, request.Method)
		assert.Equal(t, expected.Path, request.URL.Path)
		assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))

		for key, value := range expected.Query {
			assert.Equal(t, value, request.URL.Query().Get(key), "query parameter %s", key)
		}

		if expected.CheckBody != nil {
			raw, err := io.ReadAll(request.Body)
			assert.NoError(t, err)

			var body map[string]interface{}

			assert.NoError(t, json.Unmarshal(raw, &body))
			expected.CheckBody(t, body)
		}

		status := expected.StatusCode
		if status == 0 {
			status = http.StatusOK
		}

		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(status)

		if expected.Response != nil {
			_ = json.NewEncoder(writer).Encode(expected.Response)
		}
	}))
	t.Cleanup(rs.Close)

	return rs
}

// Served returns the number of requests answered so far.
func (rs *recordingServer) Served() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.served
}

// NewTestClient creates a client for baseURL authenticated with a static token.
func NewTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := NewWithTokenManager(&hubspot.Config{BaseURL: baseURL}, &staticTokenManager{token: "test-token"})
	require.NoError(t, err)

	return client
}

// record renders a properties-bag response.
func record(id string, props map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"id":         id,
		"properties": props,
		"createdAt":  "2024-03-01T10:00:00.000Z",
		"updatedAt":  "2024-03-02T10:00:00.000Z",
		"archived":   false,
	}
}

// collection renders a batch or search response.
func collection(after string, records ...map[string]interface{}) map[string]interface{} {
	results := make([]interface{}, 0, len(records))
	for _, r := range records {
		results = append(results, r)
	}

	response := map[string]interface{}{
		"status":  "COMPLETE",
		"results": results,
	}

	if after != "" {
		response["paging"] = map[string]interface{}{
			"next": map[string]interface{}{"after": after, "link": "https://api.hubapi.com/next"},
		}
	}

	return response
}

func errorBody(category, message string) map[string]interface{} {
	return map[string]interface{}{
		"status":        "error",
		"message":       message,
		"category":      category,
		"correlationId": "aeb5f871-7f07-4993-9211-075dc63e7cbf",
	}
}

func inputs(t *testing.T, body map[string]interface{}) []map[string]interface{} {
	t.Helper()

	raw, ok := body["inputs"].([]interface{})
	assert.True(t, ok, "body has no inputs: %v", body)

	out := make([]map[string]interface{}, 0, len(raw))

	for _, item := range raw {
		input, ok := item.(map[string]interface{})
		if assert.True(t, ok) {
			out = append(out, input)
		}
	}

	return out
}
