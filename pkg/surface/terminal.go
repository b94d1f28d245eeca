package surface

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fmtcheck/fmtcheck/internal/check"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// Terminal prints each status as one line. Progress lines are dimmed.
type Terminal struct {
	W io.Writer

	mu sync.Mutex
}

// NewTerminal returns a Terminal writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{W: w}
}

func (r *Terminal) Publish(_ context.Context, t check.Target, s check.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := fmt.Sprintf("%s@%s", t.Repo, t.ShortRef())
	line := s.Description()
	if !s.Terminal() {
		line = dim(line)
	}
	_, err := fmt.Fprintf(r.W, "%s %s %s\n", bold(prefix), colored(stateLabel(s), kindColor(s.Kind)), line)
	return err
}

func stateLabel(s check.Status) string {
	if s.Kind == check.KindError {
		return "[error]"
	}
	return "[" + string(s.State()) + "]"
}

func kindColor(k check.Kind) string {
	if noColor() {
		return ""
	}
	switch k {
	case check.KindSuccess:
		return colorGreen
	case check.KindFailure, check.KindError:
		return colorRed
	default:
		return colorYellow
	}
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func colored(s, color string) string {
	if noColor() || color == "" {
		return s
	}
	return color + s + colorReset
}
