// Package cli implements catalogctl, the command-line admin console. Commands work on the
// provider's working copy, so they run against the remote API, the local cache or the bundled
// dataset, whichever tier is available.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/application/provider"
	"github.com/catalogsite/backend/internal/infrastructure/cache"
	"github.com/catalogsite/backend/internal/infrastructure/config"
	"github.com/catalogsite/backend/internal/infrastructure/dataset"
	"github.com/catalogsite/backend/internal/infrastructure/gateway"
	"github.com/catalogsite/backend/internal/infrastructure/logger"
)

var (
	console *provider.Provider
	remote  *gateway.Client
	closer  func() error

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Admin console for the catalog site",
	Long: `Reads and edits the site document, products and inquiries.
Writes are committed to the local cache first and then pushed to the site data API.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupServices,
	PersistentPostRunE: teardownServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

// SetServices injects the provider and API client used by the commands
func SetServices(p *provider.Provider, c *gateway.Client) {
	console = p
	remote = c
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// setupServices builds the services from configuration unless they were injected
func setupServices(cmd *cobra.Command, _ []string) error {
	if console != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewCLI(verbose)

	client := gateway.New(cfg.Client.APIBaseURL,
		gateway.WithTimeout(cfg.Client.Timeout),
		gateway.WithLogger(log.Named("gateway")),
	)
	local, err := cache.Open(&cfg.Cache, log.Named("cache"))
	if err != nil {
		return fmt.Errorf("failed to open local cache: %w", err)
	}

	console = provider.New(client, local, dataset.Default, log.Named("provider"),
		provider.WithAsyncSync(cfg.Client.AsyncSync),
		provider.WithLargeDocumentThreshold(cfg.Client.LargeDocumentThreshold),
	)
	remote = client
	closer = local.Close

	log.Debug("Console ready",
		zap.String("api", client.BaseURL()),
		zap.String("cache", cfg.Cache.Driver),
		zap.String("command", cmd.CommandPath()),
	)
	return nil
}

// teardownServices waits for background pushes and releases the cache
func teardownServices(_ *cobra.Command, _ []string) error {
	if console != nil {
		console.Wait()
	}
	if closer == nil {
		return nil
	}
	err := closer()
	closer = nil
	return err
}

func requireConsole() error {
	if console == nil {
		return errors.New("console not configured")
	}
	return nil
}
