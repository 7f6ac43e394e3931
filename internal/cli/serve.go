package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/housekeeper/internal/app"
	"github.com/shaiso/housekeeper/internal/config"
	"github.com/shaiso/housekeeper/internal/telemetry"
)

// NewServeCmd создаёт команду запуска процесса.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run leader-gated pollers and the admin HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger := telemetry.SetupLogger(cfg.LogLevel, cfg.LogFormat)
			logger.Info("starting housekeeper", "env", cfg.AppEnv)

			// graceful shutdown
			ctx, cancel := signal.NotifyContext(contextOrBackground(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			defer a.Close()

			if err := a.Run(ctx); err != nil {
				return err
			}

			logger.Info("housekeeper stopped")
			return nil
		},
	}
}

// contextOrBackground нужен командам, запущенным через Execute без контекста.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
