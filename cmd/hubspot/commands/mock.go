package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
	"github.com/fivetwenty-io/hubspot-client/internal/hubspottest"
)

// NewMockCommand creates the mock command
func NewMockCommand() *cobra.Command {
	var (
		addr string
		dsn  string
		seed int
	)

	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve a local fake of the HubSpot CRM API",
		Long: `Serve the CRM objects and associations API from a local SQLite database.

Point the CLI or the library at the printed URL and token. With --seed N the
store starts with N generated companies, each with contacts, a deal and a ticket.
Records survive restarts when --db names a file.`,
		Example: "  hubspot mock --seed 5\n  hubspot --api http://127.0.0.1:8080 --token <token> companies list",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			token := viper.GetString("token")
			if token == "" {
				token = "pat-local-" + uuid.NewString()
			}

			db, err := hubspottest.OpenDB(dsn)
			if err != nil {
				return err
			}

			defer func() { _ = db.Close() }()

			server, err := hubspottest.New(ctx, db, hubspottest.WithToken(token), hubspottest.WithLogger(newLogger()))
			if err != nil {
				return fmt.Errorf("failed to start fake server: %w", err)
			}

			if seed > 0 {
				result, err := server.Store().Seed(ctx, seed, time.Now().UnixNano())
				if err != nil {
					return fmt.Errorf("failed to seed records: %w", err)
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d companies, %d contacts, %d deals, %d tickets\n",
					len(result.Companies), len(result.Contacts), len(result.Deals), len(result.Tickets))
			}

			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}

			httpServer := &http.Server{
				Handler:           server.Handler(),
				ReadHeaderTimeout: constants.ShortHTTPTimeout,
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\nToken: %s\n", listener.Addr(), token)

			errc := make(chan error, 1)

			go func() {
				errc <- httpServer.Serve(listener)
			}()

			select {
			case err = <-errc:
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.MockShutdownTimeout)
				defer cancel()

				err = httpServer.Shutdown(shutdownCtx)
			}

			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("fake server stopped: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", constants.DefaultMockAddr, "listen address")
	cmd.Flags().StringVar(&dsn, "db", ":memory:", "SQLite database file")
	cmd.Flags().IntVar(&seed, "seed", 0, "number of generated companies to start with")

	return cmd
}
