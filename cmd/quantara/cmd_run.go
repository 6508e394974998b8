package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/app"
)

func (c *cli) runCmd() *cobra.Command {
	var (
		metricsAddr string
		scripts     []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the application until interrupted",
		Long: `Starts the bus, the state store, the timer registry, the system
monitor, snapshot persistence and the configured Lua scripts, then blocks
until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Monitor.MetricsAddr = metricsAddr
			}
			cfg.Scripts.Paths = append(cfg.Scripts.Paths, scripts...)

			a, err := app.New(cfg, c.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c.logger.Info("starting",
				zap.String("version", version),
				zap.String("snapshot", cfg.Snapshot.Path),
			)
			return a.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringSliceVar(&scripts, "script", nil, "additional Lua script to load (repeatable)")
	return cmd
}

// contextOf returns the command context or a background context.
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
