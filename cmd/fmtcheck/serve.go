package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fmtcheck/fmtcheck/internal/logger"
	"github.com/fmtcheck/fmtcheck/internal/server"
	"github.com/fmtcheck/fmtcheck/pkg/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the GitHub webhook service",
		Long: `Listens for push events and checks each pushed commit in the background.
Settings come from the environment (and .env); see fmtcheckd.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	cfg, err := config.Load(env.ConfigFile)
	if err != nil {
		return err
	}

	log := logger.New(env.LogLevel, env.LogFormat)
	srv, err := server.New(env, cfg, log)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
