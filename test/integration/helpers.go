//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/fivetwenty-io/hubspot-client/pkg/hsclient"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	BaseURL     string
	AccessToken string
	Debug       bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		BaseURL:     os.Getenv("HUBSPOT_API_URL"),
		AccessToken: os.Getenv("HUBSPOT_ACCESS_TOKEN"),
		Debug:       os.Getenv("HUBSPOT_VERBOSE") == "true",
	}
}

// NewTestClient skips the test when no portal token is configured.
func NewTestClient(t *testing.T) hubspot.Client {
	t.Helper()

	config := LoadTestConfig()
	if config.AccessToken == "" {
		t.Skip("HUBSPOT_ACCESS_TOKEN environment variable not set, skipping integration tests")
	}

	client, err := hsclient.New(context.Background(), &hubspot.Config{
		BaseURL:     config.BaseURL,
		AccessToken: config.AccessToken,
		Debug:       config.Debug,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	return client
}

// uniqueName returns a company-like name that will not collide across runs.
func uniqueName(faker *gofakeit.Faker) string {
	return fmt.Sprintf("%s %d", faker.Company(), time.Now().UnixNano())
}
