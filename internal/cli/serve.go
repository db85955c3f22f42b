package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"solution-gateway/internal/config"
	"solution-gateway/internal/logging"
	"solution-gateway/internal/server"
	"solution-gateway/internal/transport"
)

var (
	serveConfigPath string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the solution gateway server",
	Long: `Start the solution gateway: connect to the client host's asset service,
initialize the workspace solution cache, and serve JSON-RPC requests.

The server runs until interrupted. On shutdown every in-flight
materialization is cancelled.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", config.DefaultConfigFile, "Configuration file path")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Override the configured listen port")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(serveConfigPath)
	if err != nil {
		return HandleConfigError(err, serveConfigPath)
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return HandleConfigError(err, serveConfigPath)
	}

	logger := logging.NewStructuredLogger(&logging.LoggerConfig{
		Level:            logging.ParseLevel(cfg.Logging.Level),
		Component:        "solution-gateway",
		EnableJSON:       cfg.Logging.JSON,
		EnableCaller:     true,
		IncludeTimestamp: true,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, err := transport.NewAssetTransport(transport.ClientConfig{
		Address:     cfg.AssetSource.Address,
		Transport:   cfg.AssetSource.Transport,
		DialTimeout: cfg.AssetSource.DialTimeoutDuration(),
	})
	if err != nil {
		return fmt.Errorf("failed to create asset transport: %w", err)
	}

	if err := tr.Start(ctx); err != nil {
		return &CLIError{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to connect to asset service at %s", cfg.AssetSource.Address),
			Cause:   err,
			Suggestions: []string{
				"Check that the client host's asset service is running",
				"Verify asset_source.address in the configuration",
			},
		}
	}
	defer func() { _ = tr.Stop() }()

	gateway := server.NewGateway(cfg, logger, tr)

	logger.WithFields(map[string]interface{}{
		"port":         cfg.Port,
		"asset_source": cfg.AssetSource.Address,
	}).Info("starting solution gateway")

	if err := gateway.Start(ctx); err != nil {
		return &CLIError{
			Type:    ErrorTypeRuntime,
			Message: "solution gateway exited with an error",
			Cause:   err,
		}
	}

	return nil
}
