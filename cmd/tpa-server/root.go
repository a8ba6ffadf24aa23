package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/tpa-claims/internal/config"
	"github.com/garyjia/tpa-claims/pkg/utils"
)

const defaultConfigPath = "configs/config.yaml"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "tpa-server",
		Short:        "Health insurance claims API server",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path (default: "+defaultConfigPath+" when present)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())

	return root
}

// loadConfig reads the --config flag, falling back to the default file
// when it exists and to built-in defaults otherwise.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" && config.Exists(defaultConfigPath) {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "tpa-claims",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
