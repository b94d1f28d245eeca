package check

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fmtcheck/fmtcheck/internal/logger"
)

// Session bundles the per-run view of a repository: reads and status writes
// authorized for one target.
type Session interface {
	Source
	Reporter
}

// Connector opens a Session for a target, e.g. by minting an installation
// token. Each call returns a fresh Session; runs never share one.
type Connector interface {
	Connect(ctx context.Context, t Target) (Session, error)
}

// Checker runs one Workflow per target.
type Checker struct {
	connector Connector
	formatter Formatter
	opts      Options
	log       *logger.Logger
}

// NewChecker creates a Checker.
func NewChecker(connector Connector, formatter Formatter, opts Options, log *logger.Logger) *Checker {
	if log == nil {
		log = logger.Nop()
	}
	return &Checker{
		connector: connector,
		formatter: formatter,
		opts:      opts,
		log:       log,
	}
}

// Check verifies t and returns the terminal status. An error means either no
// session could be opened, so nothing was published, or the terminal status
// could not be delivered.
func (c *Checker) Check(ctx context.Context, t Target) (Status, error) {
	log := c.log.
		With("run_id", uuid.NewString()).
		WithStrings("repo", t.Repo.String(), "sha", t.ShortRef())

	sess, err := c.connector.Connect(ctx, t)
	if err != nil {
		log.Error("open session", err)
		return Status{}, fmt.Errorf("connect to %s: %w", t.Repo, err)
	}

	log.Info("run started")
	st, err := NewWorkflow(sess, sess, c.formatter, c.opts, log).Run(ctx, t)
	if err != nil {
		log.Error("run finished without delivering its result", err)
		return st, err
	}
	log.Infof("run finished: %s", st)
	return st, nil
}
