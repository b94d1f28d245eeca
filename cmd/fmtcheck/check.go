package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fmtcheck/fmtcheck/internal/check"
	"github.com/fmtcheck/fmtcheck/internal/logger"
	"github.com/fmtcheck/fmtcheck/internal/server"
	"github.com/fmtcheck/fmtcheck/pkg/config"
	"github.com/fmtcheck/fmtcheck/pkg/surface"
)

// errCheckFailed is returned when the run ends in anything but success. The
// final status has already been printed by then.
var errCheckFailed = errors.New("formatting check did not pass")

func newCheckCmd() *cobra.Command {
	var opts checkOpts

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the formatting of one commit",
		Long: `Fetches the scalafmt configuration and every Scala file of the commit from
GitHub, formats each file and stops at the first one that differs. Statuses are
printed locally; with --publish they are also posted to the commit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.repo, "repo", "", "Repository as owner/name (required)")
	cmd.Flags().StringVar(&opts.sha, "sha", "", "Commit SHA to check (required)")
	cmd.Flags().Int64Var(&opts.installation, "installation", 0, "GitHub App installation ID")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "Post statuses to the commit on GitHub")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to fmtcheck config (default: FMTCHECK_CONFIG or .fmtcheck/config.yaml)")
	cmd.Flags().StringVar(&opts.outputFmt, "output", "text", "Output format: text or json")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("sha")

	return cmd
}

type checkOpts struct {
	repo         string
	sha          string
	installation int64
	publish      bool
	configPath   string
	outputFmt    string
	logLevel     string
}

func runCheck(ctx context.Context, opts checkOpts, stdout, stderr io.Writer) error {
	local, err := newLocalReporter(opts.outputFmt, stdout)
	if err != nil {
		return err
	}

	repo, err := check.ParseRepository(opts.repo)
	if err != nil {
		return err
	}
	t := check.Target{Repo: repo, Ref: opts.sha, InstallationID: opts.installation}

	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	if env.UsesApp() && t.InstallationID == 0 {
		return fmt.Errorf("--installation is required when GitHub App credentials are configured")
	}

	cfg, err := config.Load(firstNonEmpty(opts.configPath, env.ConfigFile, findConfig()))
	if err != nil {
		return err
	}

	client, err := server.NewGitHubClient(env, cfg)
	if err != nil {
		return err
	}
	rc, err := client.Repo(ctx, t)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", t.Repo, err)
	}

	var reporter check.Reporter = local
	if opts.publish {
		reporter = surface.Tee{rc, local}
	}

	log := logger.NewWriter(stderr, opts.logLevel, "text")
	st, err := check.NewWorkflow(rc, reporter, server.NewFormatter(cfg), cfg.Options(), log).Run(ctx, t)
	if err != nil {
		return err
	}
	if st.Kind != check.KindSuccess {
		return errCheckFailed
	}
	return nil
}

func newLocalReporter(format string, w io.Writer) (check.Reporter, error) {
	switch format {
	case "text":
		return surface.NewTerminal(w), nil
	case "json":
		return surface.NewJSON(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

func findConfig() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return config.FindConfigFile(wd)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
