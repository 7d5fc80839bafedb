package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/devicecap/modules/devicecap"
	"github.com/dmitrymomot/devicecap/pkg/config"
	"github.com/dmitrymomot/devicecap/pkg/logger"
	"github.com/dmitrymomot/devicecap/pkg/requestid"
)

func newRootCmd() *cobra.Command {
	var envFiles []string

	rootCmd := &cobra.Command{
		Use:           "devicecap",
		Short:         "Subscription and device capacity service",
		Long:          "devicecap manages subscription plan changes, device activation and device capacity for accounts.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return config.LoadEnvFiles(envFiles...)
		},
	}
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load before reading the environment")

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newApplyDueCmd(),
	)
	return rootCmd
}

// newLogger builds the process logger and makes it the slog default.
func newLogger() (*slog.Logger, error) {
	var cfg baseConfig
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithContextExtractors(requestid.LoggerExtractor(), devicecap.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		opts = append(opts, logger.WithLevel(level))
	}
	log := logger.New(opts...)
	logger.SetAsDefault(log)
	return log, nil
}
