// Command fmtcheckd is the fmtcheck webhook service.
// It serves the GitHub webhook endpoint and a health check.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fmtcheck/fmtcheck/internal/logger"
	"github.com/fmtcheck/fmtcheck/internal/server"
	"github.com/fmtcheck/fmtcheck/pkg/config"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Initialization error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(env.LogLevel, env.LogFormat)

	cfg, err := config.Load(env.ConfigFile)
	if err != nil {
		log.Fatal("load config", err)
	}

	srv, err := server.New(env, cfg, log)
	if err != nil {
		log.Fatal("initialize server", err)
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("starting fmtcheckd on :%s", env.Port)
	if err := srv.Run(ctx); err != nil {
		log.Fatal("server stopped", err)
	}
}
