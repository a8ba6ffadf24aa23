package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/tpa-claims/internal/container"
)

func newServeCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the claims API server. Pending database migrations are
applied first unless --skip-migrations is given. The server stops
gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := container.NewContainer(cfg, logger, container.WithAutoMigrate(!skipMigrations))
			if err != nil {
				return fmt.Errorf("failed to create container: %w", err)
			}

			if err := c.Start(ctx); err != nil {
				_ = c.Close()
				return fmt.Errorf("failed to start container: %w", err)
			}

			logger.Info("Starting claims server",
				zap.String("address", cfg.Server.Address()),
				zap.String("storage", cfg.Storage.Driver),
				zap.Bool("metrics", cfg.Metrics.Enabled))

			runErr := c.Run(ctx)

			if err := c.Close(); err != nil {
				logger.Error("Container shutdown error", zap.Error(err))
			}

			if runErr != nil && ctx.Err() == nil {
				return fmt.Errorf("server stopped: %w", runErr)
			}

			logger.Info("Server exited")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on startup")

	return cmd
}
