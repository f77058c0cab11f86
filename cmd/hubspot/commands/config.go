package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/hubspot-client/internal/auth"
	"github.com/fivetwenty-io/hubspot-client/internal/client"
	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/pkg/hsclient"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

const (
	keyBaseURL      = "base_url"
	keyToken        = "token"
	keyRefreshToken = "refresh_token"
	keyClientID     = "client_id"
	keyClientSecret = "client_secret"
)

// Config represents the CLI configuration.
type Config struct {
	Profiles       map[string]*ProfileConfig `json:"profiles,omitempty"        yaml:"profiles,omitempty"`
	CurrentProfile string                    `json:"current_profile,omitempty" yaml:"current_profile,omitempty"`

	// Global settings
	Output string `json:"output" yaml:"output"`
}

// ProfileConfig holds the credentials for one HubSpot account.
type ProfileConfig struct {
	BaseURL        string     `json:"base_url,omitempty"         yaml:"base_url,omitempty"`
	Token          string     `json:"token,omitempty"            yaml:"token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	RefreshToken   string     `json:"refresh_token,omitempty"    yaml:"refresh_token,omitempty"`
	ClientID       string     `json:"client_id,omitempty"        yaml:"client_id,omitempty"`
	ClientSecret   string     `json:"client_secret,omitempty"    yaml:"client_secret,omitempty"`
	LastRefreshed  *time.Time `json:"last_refreshed,omitempty"   yaml:"last_refreshed,omitempty"`
}

// usesOAuth reports whether the profile can renew its own access tokens.
func (p *ProfileConfig) usesOAuth() bool {
	return p.RefreshToken != "" && p.ClientID != "" && p.ClientSecret != ""
}

// masked returns a copy safe to print.
func (p *ProfileConfig) masked() *ProfileConfig {
	c := *p

	for _, secret := range []*string{&c.Token, &c.RefreshToken, &c.ClientSecret} {
		if *secret != "" {
			*secret = constants.MaskedSecret
		}
	}

	return &c
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage HubSpot CLI configuration including profiles and settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			shown := &Config{
				Profiles:       make(map[string]*ProfileConfig, len(config.Profiles)),
				CurrentProfile: config.CurrentProfile,
				Output:         config.Output,
			}
			for name, profile := range config.Profiles {
				shown.Profiles[name] = profile.masked()
			}

			handled, err := renderStructured(cmd, shown)
			if handled || err != nil {
				return err
			}

			rows := [][]string{
				{"Output", shown.Output},
				{"Current Profile", valueOrNA(shown.CurrentProfile)},
			}

			for _, name := range profileNames(shown) {
				profile := shown.Profiles[name]
				prefix := "Profile " + name + " "
				rows = append(rows,
					[]string{prefix + "Base URL", valueOrNA(profile.BaseURL)},
					[]string{prefix + "Token", valueOrNA(profile.Token)},
				)

				if profile.ClientID != "" {
					rows = append(rows, []string{prefix + "Client ID", profile.ClientID})
				}

				if profile.TokenExpiresAt != nil {
					rows = append(rows, []string{prefix + "Token Expires", profile.TokenExpiresAt.Format(time.RFC3339)})
				}
			}

			return renderTable(cmd, []string{"Property", "Value"}, rows)
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	var profileFlag string

	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long: `Set a global configuration value (output, current_profile) or, with
--profile, a profile value (base_url, token, refresh_token, client_id, client_secret).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			err := applyConfigValue(config, profileFlag, args[0], args[1])
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", qualifiedKey(profileFlag, args[0]))

			return nil
		},
	}

	cmd.Flags().StringVar(&profileFlag, "profile", "", "profile to configure")

	return cmd
}

func newConfigUnsetCommand() *cobra.Command {
	var profileFlag string

	cmd := &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a global or profile configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			err := applyConfigValue(config, profileFlag, args[0], "")
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", qualifiedKey(profileFlag, args[0]))

			return nil
		},
	}

	cmd.Flags().StringVar(&profileFlag, "profile", "", "profile to configure")

	return cmd
}

func qualifiedKey(profile, key string) string {
	if profile == "" {
		return key
	}

	return profile + "." + key
}

func applyConfigValue(config *Config, profileName, key, value string) error {
	if profileName == "" {
		switch key {
		case "output":
			config.Output = value
		case "current_profile":
			if _, ok := config.Profiles[value]; value != "" && !ok {
				return fmt.Errorf("%w: %s", constants.ErrProfileNotFound, value)
			}

			config.CurrentProfile = value
		default:
			return fmt.Errorf("%w: %s, use --profile for profile settings", constants.ErrUnknownConfigKey, key)
		}

		return nil
	}

	profile, ok := config.Profiles[profileName]
	if !ok {
		profile = &ProfileConfig{}
		config.Profiles[profileName] = profile
	}

	switch key {
	case keyBaseURL:
		profile.BaseURL = value
	case keyToken:
		profile.Token = value
		profile.TokenExpiresAt = nil
	case keyRefreshToken:
		profile.RefreshToken = value
	case keyClientID:
		profile.ClientID = value
	case keyClientSecret:
		profile.ClientSecret = value
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return nil
}

func loadConfig() *Config {
	config := &Config{
		Output:         viper.GetString("output"),
		CurrentProfile: viper.GetString("current_profile"),
		Profiles:       make(map[string]*ProfileConfig),
	}

	for name, raw := range viper.GetStringMap("profiles") {
		if profileMap, ok := raw.(map[string]interface{}); ok {
			config.Profiles[name] = parseProfileConfig(profileMap)
		}
	}

	return config
}

func parseProfileConfig(profileMap map[string]interface{}) *ProfileConfig {
	profile := &ProfileConfig{}

	for key, target := range map[string]*string{
		keyBaseURL:      &profile.BaseURL,
		keyToken:        &profile.Token,
		keyRefreshToken: &profile.RefreshToken,
		keyClientID:     &profile.ClientID,
		keyClientSecret: &profile.ClientSecret,
	} {
		if value, ok := profileMap[key].(string); ok {
			*target = value
		}
	}

	profile.TokenExpiresAt = parseTimestamp(profileMap["token_expires_at"])
	profile.LastRefreshed = parseTimestamp(profileMap["last_refreshed"])

	return profile
}

func parseTimestamp(raw interface{}) *time.Time {
	switch value := raw.(type) {
	case time.Time:
		return &value
	case string:
		parsed, err := time.Parse(time.RFC3339, value)
		if err == nil {
			return &parsed
		}
	}

	return nil
}

func profileNames(config *Config) []string {
	names := make([]string, 0, len(config.Profiles))
	for name := range config.Profiles {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName, constants.ConfigFileName), nil
}

func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Later reads in this process see the new values.
	viper.SetConfigFile(configFile)

	err = viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to reload config file: %w", err)
	}

	return nil
}

// currentProfile resolves the --profile flag, then the configured current
// profile, then the only profile there is.
func currentProfile(config *Config) (string, *ProfileConfig, error) {
	name := viper.GetString("profile")
	if name == "" {
		name = config.CurrentProfile
	}

	if name == "" {
		if len(config.Profiles) != 1 {
			return "", nil, constants.ErrNoProfilesConfigured
		}

		for only := range config.Profiles {
			name = only
		}
	}

	profile, ok := config.Profiles[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", constants.ErrProfileNotFound, name)
	}

	return name, profile, nil
}

// newClient builds a client from --token/--api (or HUBSPOT_TOKEN) when given,
// otherwise from the selected profile.
func newClient(ctx context.Context) (hubspot.Client, error) {
	logger := newLogger()

	token := viper.GetString("token")
	if token != "" {
		return hsclient.New(ctx, &hubspot.Config{
			BaseURL:      viper.GetString("api"),
			AccessToken:  token,
			Debug:        viper.GetBool("verbose"),
			Logger:       logger,
			Interceptors: newInterceptors(),
		})
	}

	config := loadConfig()

	name, profile, err := currentProfile(config)
	if err != nil {
		return nil, err
	}

	baseURL := profile.BaseURL
	if api := viper.GetString("api"); api != "" {
		baseURL = api
	}

	clientConfig := &hubspot.Config{
		BaseURL:      hsclient.NormalizeBaseURL(baseURL),
		AccessToken:  profile.Token,
		ClientID:     profile.ClientID,
		ClientSecret: profile.ClientSecret,
		RefreshToken: profile.RefreshToken,
		Debug:        viper.GetBool("verbose"),
		Logger:       logger,
		Interceptors: newInterceptors(),
	}

	if profile.usesOAuth() {
		return createClientWithTokenRefresh(clientConfig, name, profile)
	}

	if profile.Token == "" {
		return nil, constants.ErrNotAuthenticated
	}

	return hsclient.New(ctx, clientConfig)
}

// createClientWithTokenRefresh creates a client whose renewed tokens are
// written back to the profile.
func createClientWithTokenRefresh(config *hubspot.Config, name string, profile *ProfileConfig) (hubspot.Client, error) {
	var expiry time.Time
	if profile.TokenExpiresAt != nil {
		expiry = *profile.TokenExpiresAt
	}

	tokenManager := auth.NewConfigTokenManager(&auth.OAuth2Config{
		TokenURL:     config.TokenURL,
		ClientID:     profile.ClientID,
		ClientSecret: profile.ClientSecret,
		RefreshToken: profile.RefreshToken,
	}, NewConfigPersister(), name, profile.Token, expiry)

	c, err := client.NewWithTokenManager(config, tokenManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create client with token manager: %w", err)
	}

	return c, nil
}

// newInterceptors keeps CLI calls, including --all paging, inside the
// private app rate limit.
func newInterceptors() *hubspot.InterceptorChain {
	chain := hubspot.NewInterceptorChain()
	chain.AddRequestInterceptor(hubspot.RateLimitInterceptor(constants.PrivateAppRequestsPerSecond, constants.PrivateAppBurst))

	return chain
}

func valueOrNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return constants.NotAvailable
	}

	return value
}
