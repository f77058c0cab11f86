package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/pkg/hsclient"
	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	var (
		profileName  string
		clientID     string
		clientSecret string
		refreshToken string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to HubSpot",
		Long: `Store credentials for a HubSpot account in a configuration profile.

A private app access token is read from --token, HUBSPOT_TOKEN, or a prompt.
OAuth apps pass --client-id, --client-secret and --refresh-token instead.
The credentials are checked with a one-record request before they are saved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			profile := &ProfileConfig{
				BaseURL:      hsclient.NormalizeBaseURL(viper.GetString("api")),
				ClientID:     clientID,
				ClientSecret: clientSecret,
				RefreshToken: refreshToken,
			}

			if !profile.usesOAuth() {
				token, err := readToken(cmd)
				if err != nil {
					return err
				}

				profile.Token = token
			}

			err := verifyProfile(ctx, profile)
			if err != nil {
				return err
			}

			config := loadConfig()
			if profileName == "" {
				profileName = constants.DefaultProfile
			}

			config.Profiles[profileName] = profile
			if config.CurrentProfile == "" || len(config.Profiles) == 1 {
				config.CurrentProfile = profileName
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as profile %s\n", profile.BaseURL, profileName)

			return nil
		},
	}

	cmd.Flags().StringVar(&profileName, "name", "", "profile name (default \"default\")")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth app client id")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth app client secret")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "OAuth refresh token")

	return cmd
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget stored credentials",
		Long:  "Remove the tokens and client secret of the current profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			name, profile, err := currentProfile(config)
			if err != nil {
				return err
			}

			profile.Token = ""
			profile.TokenExpiresAt = nil
			profile.RefreshToken = ""
			profile.ClientSecret = ""

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged out of profile %s\n", name)

			return nil
		},
	}
}

func readToken(cmd *cobra.Command) (string, error) {
	token := strings.TrimSpace(viper.GetString("token"))
	if token != "" {
		return token, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", constants.ErrTokenRequired
	}

	_, _ = fmt.Fprint(cmd.OutOrStdout(), "Access token: ")

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))

	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	token = strings.TrimSpace(string(raw))
	if token == "" {
		return "", constants.ErrTokenRequired
	}

	return token, nil
}

// verifyProfile lists a single company with the new credentials.
func verifyProfile(ctx context.Context, profile *ProfileConfig) error {
	c, err := hsclient.New(ctx, &hubspot.Config{
		BaseURL:      profile.BaseURL,
		AccessToken:  profile.Token,
		ClientID:     profile.ClientID,
		ClientSecret: profile.ClientSecret,
		RefreshToken: profile.RefreshToken,
		Logger:       newLogger(),
		Debug:        viper.GetBool("verbose"),
		Interceptors: newInterceptors(),
	})
	if err != nil {
		return err
	}

	opts := hubspot.NewSearchRequestOptions()

	err = opts.SetLimit(1)
	if err != nil {
		return err
	}

	_, err = c.Companies().List(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to verify credentials: %w", err)
	}

	return nil
}
