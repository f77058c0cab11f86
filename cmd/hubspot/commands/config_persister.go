package commands

import (
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
)

// ConfigPersister implements the auth.ConfigPersister interface.
type ConfigPersister struct {
	mutex sync.Mutex
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// UpdateAccessToken stores a renewed access token under profile.
func (p *ConfigPersister) UpdateAccessToken(profile, token string, expiresAt time.Time, refreshToken string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()

	profileConfig, exists := config.Profiles[profile]
	if !exists {
		return fmt.Errorf("profile '%s': %w", profile, constants.ErrProfileNotFound)
	}

	profileConfig.Token = token
	if !expiresAt.IsZero() {
		profileConfig.TokenExpiresAt = &expiresAt
	}

	// HubSpot may rotate the refresh token along with the access token.
	if refreshToken != "" {
		profileConfig.RefreshToken = refreshToken
	}

	now := time.Now()
	profileConfig.LastRefreshed = &now

	return saveConfigStruct(config)
}
