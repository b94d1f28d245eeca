package formatter

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/fmtcheck/fmtcheck/internal/check"
)

// fakeScalafmt writes a shell script standing in for scalafmt. It records its
// arguments and the config it was given, then runs body.
func fakeScalafmt(t *testing.T, body string) (binary, dir string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	dir = t.TempDir()
	binary = filepath.Join(dir, "scalafmt")
	script := "#!/bin/sh\n" +
		"echo \"$@\" > " + filepath.Join(dir, "args") + "\n" +
		"cat \"$2\" > " + filepath.Join(dir, "config") + "\n" +
		body + "\n"
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake scalafmt: %v", err)
	}
	return binary, dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestScalafmt_PassesThroughStdout(t *testing.T) {
	bin, dir := fakeScalafmt(t, "cat")
	s := &Scalafmt{Binary: bin, TempDir: t.TempDir()}

	got, err := s.Format(context.Background(), "object A\n", check.DialectSource, "maxColumn = 80\n")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != "object A\n" {
		t.Errorf("output = %q, want %q", got, "object A\n")
	}
	if cfg := readFile(t, filepath.Join(dir, "config")); cfg != "maxColumn = 80\n" {
		t.Errorf("config seen by scalafmt = %q", cfg)
	}
	if args := readFile(t, filepath.Join(dir, "args")); !strings.Contains(args, "--assume-filename stdin.scala") {
		t.Errorf("args = %q, want scala dialect", args)
	}

	entries, err := os.ReadDir(s.TempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("config file not cleaned up: %v", entries)
	}
}

func TestScalafmt_BuildDialect(t *testing.T) {
	bin, dir := fakeScalafmt(t, "cat")
	s := &Scalafmt{Binary: bin}

	if _, err := s.Format(context.Background(), "name := \"x\"\n", check.DialectBuild, ""); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if args := readFile(t, filepath.Join(dir, "args")); !strings.Contains(args, "--assume-filename stdin.sbt") {
		t.Errorf("args = %q, want sbt dialect", args)
	}
}

func TestScalafmt_Reformats(t *testing.T) {
	bin, _ := fakeScalafmt(t, "sed 's/  */ /g'")
	s := &Scalafmt{Binary: bin}

	got, err := s.Format(context.Background(), "object  A\n", check.DialectSource, "")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != "object A\n" {
		t.Errorf("output = %q, want %q", got, "object A\n")
	}
}

func TestScalafmt_Failure(t *testing.T) {
	bin, _ := fakeScalafmt(t, "echo 'error: illegal start of definition' >&2\nexit 1")
	s := &Scalafmt{Binary: bin}

	_, err := s.Format(context.Background(), "object {", check.DialectSource, "")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "illegal start of definition") {
		t.Errorf("error %q does not carry stderr", err)
	}
}

func TestScalafmt_Timeout(t *testing.T) {
	bin, _ := fakeScalafmt(t, "exec sleep 5")
	s := &Scalafmt{Binary: bin, Timeout: 100 * time.Millisecond}

	start := time.Now()
	if _, err := s.Format(context.Background(), "object A\n", check.DialectSource, ""); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestScalafmt_MissingBinary(t *testing.T) {
	s := &Scalafmt{Binary: filepath.Join(t.TempDir(), "does-not-exist")}
	if _, err := s.Format(context.Background(), "object A\n", check.DialectSource, ""); err == nil {
		t.Fatal("expected error for missing binary, got nil")
	}
}

func TestBuildArgs(t *testing.T) {
	args := buildArgs("/tmp/x.conf", check.DialectSource)
	want := []string{"--config", "/tmp/x.conf", "--stdin", "--assume-filename", "stdin.scala", "--non-interactive", "--quiet"}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Errorf("buildArgs = %v, want %v", args, want)
	}
}

func TestFunc(t *testing.T) {
	var f check.Formatter = Func(func(src string, d check.Dialect, cfg string) (string, error) {
		return strings.ToUpper(src) + d.String() + cfg, nil
	})
	got, err := f.Format(context.Background(), "a", check.DialectBuild, "!")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != "Abuild!" {
		t.Errorf("got %q, want %q", got, "Abuild!")
	}
}
