// Package server wires the webhook service: GitHub client, formatter,
// checker and the HTTP endpoints, plus graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fmtcheck/fmtcheck/internal/check"
	"github.com/fmtcheck/fmtcheck/internal/formatter"
	"github.com/fmtcheck/fmtcheck/internal/github"
	"github.com/fmtcheck/fmtcheck/internal/logger"
	"github.com/fmtcheck/fmtcheck/internal/webhook"
	"github.com/fmtcheck/fmtcheck/pkg/config"
)

// Server serves the GitHub webhook endpoint and a health check.
type Server struct {
	httpServer      *http.Server
	webhook         *webhook.Handler
	log             *logger.Logger
	shutdownTimeout time.Duration
}

// New builds the service from the process environment and check config.
func New(env *config.Env, cfg *config.Config, log *logger.Logger) (*Server, error) {
	if err := env.ValidateService(); err != nil {
		return nil, err
	}
	client, err := NewGitHubClient(env, cfg)
	if err != nil {
		return nil, err
	}
	checker := check.NewChecker(client, NewFormatter(cfg), cfg.Options(), log)
	return newServer(":"+env.Port, []byte(env.WebhookSecret), checker, log, env.ShutdownTimeout), nil
}

func newServer(addr string, secret []byte, checker webhook.Checker, log *logger.Logger, shutdownTimeout time.Duration) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	s := &Server{
		webhook:         webhook.NewHandler(secret, checker, log),
		log:             log,
		shutdownTimeout: shutdownTimeout,
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/webhooks/github", s.webhook)
	mux.HandleFunc("GET /healthz", healthHandler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           recovery(log, logging(log, mux)),
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

// NewGitHubClient returns a client authenticating as the GitHub App when
// app credentials are configured, or with the static token otherwise.
func NewGitHubClient(env *config.Env, cfg *config.Config) (*github.Client, error) {
	var tokens github.TokenSource
	if env.UsesApp() {
		auth, err := github.NewAppAuth(env.AppID, env.PrivateKey, env.APIURL, nil)
		if err != nil {
			return nil, fmt.Errorf("github app auth: %w", err)
		}
		tokens = auth
	} else {
		tokens = github.StaticToken(env.Token)
	}
	return github.NewClient(tokens, github.Options{
		BaseURL:       env.APIURL,
		StatusContext: cfg.Status.Context,
		TargetURL:     cfg.Status.TargetURL,
	}), nil
}

// NewFormatter returns the scalafmt runner described by cfg.
func NewFormatter(cfg *config.Config) *formatter.Scalafmt {
	return &formatter.Scalafmt{
		Binary:  cfg.Scalafmt.Binary,
		Timeout: cfg.ScalafmtTimeout(),
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then stops accepting requests and
// waits for every in-flight check to publish its final status.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Infof("listening on %s", ln.Addr())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)

		s.log.Info("waiting for in-flight checks")
		s.webhook.Wait()
		s.log.Info("shutdown complete")
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
