package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hshttp "github.com/fivetwenty-io/hubspot-client/internal/http"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// MockTokenManager for testing.
type MockTokenManager struct {
	mu        sync.Mutex
	token     string
	refreshed string
	refreshes int
	err       error
}

func (m *MockTokenManager) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.token, m.err
}

func (m *MockTokenManager) RefreshToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refreshes++
	if m.refreshed != "" {
		m.token = m.refreshed
	}

	return nil
}

// MockLogger for testing.
type MockLogger struct {
	logs []map[string]interface{}
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "debug", "msg": msg, "fields": fields})
}

func (l *MockLogger) Info(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "info", "msg": msg, "fields": fields})
}

func (l *MockLogger) Warn(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "warn", "msg": msg, "fields": fields})
}

func (l *MockLogger) Error(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "error", "msg": msg, "fields": fields})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/crm/v3/objects/companies", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))

			response := map[string]string{"id": "512", "name": "Acme"}
			_ = json.NewEncoder(writer).Encode(response)
		}))
		defer server.Close()

		tokenManager := &MockTokenManager{token: "test-token"}
		client := hshttp.NewClient(server.URL, tokenManager)

		req := &hshttp.Request{
			Method: "GET",
			Path:   "/crm/v3/objects/companies",
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result map[string]string

		err = json.Unmarshal(resp.Body, &result)
		require.NoError(t, err)
		assert.Equal(t, "512", result["id"])
		assert.Equal(t, "Acme", result["name"])
	})

	t.Run("request with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/crm/v3/objects/companies", request.URL.Path)
			assert.Equal(t, "limit=2", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := hshttp.NewClient(server.URL, nil)

		req := &hshttp.Request{
			Method: "GET",
			Path:   "/crm/v3/objects/companies",
			Query:  url.Values{"limit": []string{"2"}},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "Acme", body["name"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := hshttp.NewClient(server.URL, nil)

		req := &hshttp.Request{
			Method: "POST",
			Path:   "/crm/v3/objects/companies",
			Body:   map[string]string{"name": "Acme"},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)

			response := map[string]string{
				"status":        "error",
				"message":       "Object not found.  objectId are usually numeric.",
				"correlationId": "b2e5",
				"category":      "OBJECT_NOT_FOUND",
			}
			_ = json.NewEncoder(writer).Encode(response)
		}))
		defer server.Close()

		client := hshttp.NewClient(server.URL, nil)

		req := &hshttp.Request{
			Method: "GET",
			Path:   "/crm/v3/objects/companies/404",
		}

		resp, err := client.Do(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, 404, resp.StatusCode)

		apiErr := &hubspot.APIError{}
		ok := errors.As(err, &apiErr)
		require.True(t, ok)
		assert.Equal(t, "OBJECT_NOT_FOUND", apiErr.Category)
		assert.Equal(t, "b2e5", apiErr.CorrelationID)
		assert.Equal(t, "Not Found", apiErr.Status)
		assert.True(t, hubspot.IsNotFound(err))
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := hshttp.NewClient(server.URL, nil)

		req := &hshttp.Request{
			Method: "GET",
			Path:   "/crm/v3/objects/companies",
			Headers: map[string]string{
				"X-Custom-Header": "custom-value",
			},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := hshttp.NewClient(server.URL, nil, hshttp.WithLogger(logger), hshttp.WithDebug(true))

		req := &hshttp.Request{
			Method: "GET",
			Path:   "/crm/v3/objects/companies",
		}

		_, err := client.Do(context.Background(), req)
		require.NoError(t, err)

		// Should have logged request and response
		assert.Len(t, logger.logs, 2)
		assert.Equal(t, "HTTP Request", logger.logs[0]["msg"])
		assert.Equal(t, "HTTP Response", logger.logs[1]["msg"])
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(*hshttp.Client, context.Context) (*hshttp.Response, error)
	}{
		{
			name:   "GET",
			method: "GET",
			fn: func(c *hshttp.Client, ctx context.Context) (*hshttp.Response, error) {
				return c.Get(ctx, "/test", nil)
			},
		},
		{
			name:   "POST",
			method: "POST",
			fn: func(c *hshttp.Client, ctx context.Context) (*hshttp.Response, error) {
				return c.Post(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PUT",
			method: "PUT",
			fn: func(c *hshttp.Client, ctx context.Context) (*hshttp.Response, error) {
				return c.Put(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PATCH",
			method: "PATCH",
			fn: func(c *hshttp.Client, ctx context.Context) (*hshttp.Response, error) {
				return c.Patch(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "DELETE",
			method: "DELETE",
			fn: func(c *hshttp.Client, ctx context.Context) (*hshttp.Response, error) {
				return c.Delete(ctx, "/test")
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/test", request.URL.Path)
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := hshttp.NewClient(server.URL, nil)
			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("retries on 5xx errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			if attempts.Load() < 3 {
				writer.WriteHeader(http.StatusInternalServerError)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := hshttp.NewClient(server.URL, nil, hshttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("retries on rate limiting", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			if attempts.Load() < 2 {
				writer.WriteHeader(http.StatusTooManyRequests)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := hshttp.NewClient(server.URL, nil, hshttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("does not retry on client errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)

			writer.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := hshttp.NewClient(server.URL, nil, hshttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load()) // Should not retry
	})
}

func TestClient_Authentication(t *testing.T) {
	t.Parallel()

	t.Run("refreshes once after 401", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)

			if request.Header.Get("Authorization") != "Bearer fresh-token" {
				writer.WriteHeader(http.StatusUnauthorized)
				_, _ = writer.Write([]byte(`{"status":"error","message":"expired","category":"EXPIRED_AUTHENTICATION"}`))

				return
			}

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		tokenManager := &MockTokenManager{token: "stale-token", refreshed: "fresh-token"}
		client := hshttp.NewClient(server.URL, tokenManager)

		resp, err := client.Get(context.Background(), "/crm/v3/objects/contacts", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(2), attempts.Load())
		assert.Equal(t, 1, tokenManager.refreshes)
	})

	t.Run("gives up when refresh does not help", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		tokenManager := &MockTokenManager{token: "bad-token"}
		client := hshttp.NewClient(server.URL, tokenManager)

		resp, err := client.Get(context.Background(), "/crm/v3/objects/contacts", nil)
		require.Error(t, err)
		assert.Equal(t, 401, resp.StatusCode)
		assert.True(t, hubspot.IsUnauthorized(err))
		assert.Equal(t, 1, tokenManager.refreshes)
	})

	t.Run("token errors stop the request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			t.Error("request should not be sent")
		}))
		defer server.Close()

		tokenManager := &MockTokenManager{err: errors.New("no token")}
		client := hshttp.NewClient(server.URL, tokenManager)

		_, err := client.Get(context.Background(), "/crm/v3/objects/contacts", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting auth token")
	})
}

func TestClient_UserAgentAndRawBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "crm-sync/2.1", request.Header.Get("User-Agent"))

		var body map[string]interface{}

		_ = json.NewDecoder(request.Body).Decode(&body)
		assert.Equal(t, "raw", body["kind"])
		writer.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := hshttp.NewClient(server.URL+"/", nil, hshttp.WithUserAgent("crm-sync/2.1"), hshttp.WithTimeout(time.Second))
	assert.Equal(t, server.URL, client.BaseURL())

	resp, err := client.Post(context.Background(), "/raw", []byte(`{"kind":"raw"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var target map[string]interface{}

	require.NoError(t, hshttp.DecodeJSON(resp, &target))
	assert.Nil(t, target)
}

func TestClient_LogsRetries(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if attempts.Add(1) == 1 {
			writer.Header().Set("Retry-After", "0")
			writer.WriteHeader(http.StatusTooManyRequests)

			return
		}

		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger := &MockLogger{}
	client := hshttp.NewClient(server.URL, nil,
		hshttp.WithLogger(logger),
		hshttp.WithRetryConfig(2, time.Millisecond, 10*time.Millisecond),
	)

	_, err := client.Get(context.Background(), "/crm/v3/objects/deals", nil)
	require.NoError(t, err)

	var retries int

	for _, entry := range logger.logs {
		if entry["msg"] == "Retrying HTTP request" {
			retries++
		}
	}

	assert.Equal(t, 1, retries)
}

func TestClient_Interceptors(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "sync-42", request.Header.Get("X-Sync-Run"))

		if attempts.Add(1) == 1 {
			writer.Header().Set("Retry-After", "0")
			writer.WriteHeader(http.StatusTooManyRequests)

			return
		}

		writer.WriteHeader(http.StatusNotFound)
		_, _ = writer.Write([]byte(`{"status":"error","message":"resource not found","category":"OBJECT_NOT_FOUND"}`))
	}))
	defer server.Close()

	chain := hubspot.NewInterceptorChain()
	chain.AddRequestInterceptor(hubspot.HeaderInterceptor(map[string]string{"X-Sync-Run": "sync-42"}))

	collector := hubspot.NewMetricsCollector()
	collector.Install(chain)

	var observed []int

	chain.AddResponseInterceptor(func(ctx context.Context, req *hubspot.Request, resp *hubspot.Response) error {
		observed = append(observed, resp.StatusCode)
		assert.True(t, hubspot.IsNotFound(resp.Error))

		return nil
	})

	client := hshttp.NewClient(server.URL, nil,
		hshttp.WithInterceptors(chain),
		hshttp.WithRetryConfig(2, time.Millisecond, 10*time.Millisecond),
	)

	_, err := client.Get(context.Background(), "/crm/v3/objects/deals/7", nil)
	require.Error(t, err)
	assert.True(t, hubspot.IsNotFound(err))

	assert.Equal(t, []int{http.StatusNotFound}, observed)

	metrics, ok := collector.GetMetrics("GET /crm/v3/objects/deals/7")
	require.True(t, ok)
	assert.Equal(t, int64(1), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalErrors)
}

func TestClient_RequestInterceptorAborts(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	blocked := errors.New("quota exhausted")

	chain := hubspot.NewInterceptorChain()
	chain.AddRequestInterceptor(func(ctx context.Context, req *hubspot.Request) error {
		return blocked
	})

	client := hshttp.NewClient(server.URL, nil, hshttp.WithInterceptors(chain))

	_, err := client.Get(context.Background(), "/crm/v3/objects/deals", url.Values{"limit": {"1"}})
	require.ErrorIs(t, err, blocked)
	assert.Zero(t, hits.Load())
}

func TestClient_InterceptorsRunOnceAcrossTokenRefresh(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		attempts.Add(1)
		assert.Equal(t, "sync-42", request.Header.Get("X-Sync-Run"))

		if request.Header.Get("Authorization") != "Bearer fresh-token" {
			writer.WriteHeader(http.StatusUnauthorized)
			_, _ = writer.Write([]byte(`{"status":"error","message":"expired","category":"EXPIRED_AUTHENTICATION"}`))

			return
		}

		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	chain := hubspot.NewInterceptorChain()
	chain.AddRequestInterceptor(hubspot.HeaderInterceptor(map[string]string{"X-Sync-Run": "sync-42"}))

	var requests, responses atomic.Int32

	chain.AddRequestInterceptor(func(ctx context.Context, req *hubspot.Request) error {
		requests.Add(1)

		return nil
	})
	chain.AddResponseInterceptor(func(ctx context.Context, req *hubspot.Request, resp *hubspot.Response) error {
		responses.Add(1)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NoError(t, resp.Error)

		return nil
	})

	collector := hubspot.NewMetricsCollector()
	collector.Install(chain)

	tokenManager := &MockTokenManager{token: "stale-token", refreshed: "fresh-token"}
	client := hshttp.NewClient(server.URL, tokenManager, hshttp.WithInterceptors(chain))

	resp, err := client.Get(context.Background(), "/crm/v3/objects/contacts", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, 1, tokenManager.refreshes)
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, int32(1), responses.Load())

	metrics, ok := collector.GetMetrics("GET /crm/v3/objects/contacts")
	require.True(t, ok)
	assert.Equal(t, int64(1), metrics.TotalRequests)
	assert.Equal(t, int64(0), metrics.TotalErrors)
}
