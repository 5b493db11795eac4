package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mohammadpnp/user-directory/internal/bootstrap"
	"github.com/mohammadpnp/user-directory/internal/config"
	"github.com/mohammadpnp/user-directory/internal/logger"
)

func newRootCmd() *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:          "userdir",
		Short:        "User directory service with asynchronous spreadsheet import",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load before the environment (default .env,.env.local)")

	cmd.AddCommand(newServeCmd(&envFiles))
	cmd.AddCommand(newWorkerCmd(&envFiles))
	return cmd
}

// setup loads config, initializes logging and opens every backend. The
// returned context is cancelled on SIGINT/SIGTERM.
func setup(parent context.Context, envFiles []string, component string) (context.Context, context.CancelFunc, *bootstrap.App, zerolog.Logger, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, nil, nil, zerolog.Nop(), err
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.Component(component)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)

	a, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		stop()
		return nil, nil, nil, log, err
	}
	return ctx, stop, a, log, nil
}
