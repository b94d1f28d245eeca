// Package formatter provides check.Formatter implementations.
package formatter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/fmtcheck/fmtcheck/internal/check"
)

// Scalafmt wraps the scalafmt command-line tool.
type Scalafmt struct {
	Binary  string        // path to scalafmt or scalafmt-native ("" means "scalafmt" on PATH)
	Timeout time.Duration // per-file limit, 0 for none
	TempDir string        // where the config file is written ("" means os.TempDir)
}

// Format pipes source through scalafmt and returns its output. Build files
// are formatted with the sbt dialect.
func (s *Scalafmt) Format(ctx context.Context, source string, dialect check.Dialect, config string) (string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	configFile, err := writeTempConfig(s.TempDir, config)
	if err != nil {
		return "", err
	}
	defer os.Remove(configFile)

	cmd := exec.CommandContext(ctx, s.binary(), buildArgs(configFile, dialect)...)
	cmd.Stdin = strings.NewReader(source)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("scalafmt failed: %w\nstderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (s *Scalafmt) binary() string {
	if s.Binary == "" {
		return "scalafmt"
	}
	return s.Binary
}

// buildArgs returns the scalafmt arguments for one stdin invocation.
func buildArgs(configFile string, dialect check.Dialect) []string {
	assumed := "stdin.scala"
	if dialect == check.DialectBuild {
		assumed = "stdin.sbt"
	}
	return []string{
		"--config", configFile,
		"--stdin",
		"--assume-filename", assumed,
		"--non-interactive",
		"--quiet",
	}
}

func writeTempConfig(dir, config string) (string, error) {
	f, err := os.CreateTemp(dir, "scalafmt-*.conf")
	if err != nil {
		return "", fmt.Errorf("create config file: %w", err)
	}
	if _, err := f.WriteString(config); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write config file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close config file: %w", err)
	}
	return f.Name(), nil
}

// Func adapts a plain function to check.Formatter.
type Func func(source string, dialect check.Dialect, config string) (string, error)

// Format calls f.
func (f Func) Format(_ context.Context, source string, dialect check.Dialect, config string) (string, error) {
	return f(source, dialect, config)
}
