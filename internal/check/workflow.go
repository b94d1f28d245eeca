package check

import (
	"context"
	"fmt"

	"github.com/fmtcheck/fmtcheck/internal/logger"
)

// Formatter reformats source text. Output equal to the input means the input
// is well-formatted.
type Formatter interface {
	Format(ctx context.Context, source string, dialect Dialect, config string) (string, error)
}

// Reporter publishes a status against t.Ref.
type Reporter interface {
	Publish(ctx context.Context, t Target, s Status) error
}

// Options tunes which files a run checks and where the format config lives.
type Options struct {
	Extensions      []string // files to check
	BuildExtensions []string // subset checked with DialectBuild
	ConfigPath      string   // repository path of the format config
}

// DefaultOptions checks Scala sources and sbt build files against .scalafmt.conf.
func DefaultOptions() Options {
	return Options{
		Extensions:      []string{".scala", ".sbt"},
		BuildExtensions: []string{".sbt"},
		ConfigPath:      ".scalafmt.conf",
	}
}

// Workflow verifies one commit. It holds no per-run state, so a value may be
// reused, but runs never share anything beyond their collaborators.
type Workflow struct {
	lister    *Lister
	fetcher   *Fetcher
	formatter Formatter
	reporter  Reporter
	opts      Options
	log       *logger.Logger
}

// NewWorkflow wires a workflow from its collaborators.
func NewWorkflow(source Source, reporter Reporter, formatter Formatter, opts Options, log *logger.Logger) *Workflow {
	if log == nil {
		log = logger.Nop()
	}
	return &Workflow{
		lister:    NewLister(source, opts.Extensions),
		fetcher:   NewFetcher(source),
		formatter: formatter,
		reporter:  reporter,
		opts:      opts,
		log:       log,
	}
}

// stepKind is the outcome of one iteration of the verification loop.
type stepKind int

const (
	stepContinue stepKind = iota
	stepSuccess
	stepFailure
	stepError
)

type step struct {
	kind   stepKind
	path   string
	detail string
}

func (s step) status() Status {
	switch s.kind {
	case stepFailure:
		return Failure(s.path)
	case stepError:
		return Error(s.detail)
	default:
		return Success()
	}
}

func errorStep(err error) step {
	return step{kind: stepError, detail: err.Error()}
}

// Run checks every matching file of t and returns the terminal status it
// published. The returned error is set only when publishing the terminal
// status failed.
func (w *Workflow) Run(ctx context.Context, t Target) (Status, error) {
	w.publish(ctx, t, Preparing())

	final := w.verify(ctx, t).status()

	w.log.Infof("%s: %s", final.State(), final.Description())
	if err := w.reporter.Publish(ctx, t, final); err != nil {
		return final, fmt.Errorf("publish %s status: %w", final, err)
	}
	return final, nil
}

func (w *Workflow) verify(ctx context.Context, t Target) step {
	config, err := w.fetcher.Fetch(ctx, t, w.opts.ConfigPath)
	if err != nil {
		w.log.Error("fetch format config", err)
		return errorStep(err)
	}

	files, err := w.lister.List(ctx, t)
	if err != nil {
		w.log.Error("list files", err)
		return errorStep(err)
	}
	w.log.Debugf("checking %d files", len(files))

	total := len(files)
	for count := 0; ; count++ {
		if count == total {
			return step{kind: stepSuccess}
		}
		if count > 0 {
			w.publish(ctx, t, Pending(count, total))
		}
		if s := w.checkFile(ctx, t, files[count], config); s.kind != stepContinue {
			return s
		}
	}
}

func (w *Workflow) checkFile(ctx context.Context, t Target, path, config string) step {
	before, err := w.fetcher.Fetch(ctx, t, path)
	if err != nil {
		w.log.Errorf("%s: %v", path, err)
		return errorStep(err)
	}

	after, err := w.formatter.Format(ctx, before, DialectFor(path, w.opts.BuildExtensions), config)
	if err != nil {
		ferr := &FormatError{Path: path, Err: err}
		w.log.Errorf("%s: %v", path, ferr)
		return errorStep(ferr)
	}

	if after != before {
		w.log.Errorf("mis-formatted: %s", path)
		return step{kind: stepFailure, path: path}
	}
	return step{kind: stepContinue}
}

// publish sends a progress status. Delivery is best effort.
func (w *Workflow) publish(ctx context.Context, t Target, s Status) {
	w.log.Infof("%s: %s", s.State(), s.Description())
	if err := w.reporter.Publish(ctx, t, s); err != nil {
		w.log.Warnf("publish %s: %v", s, err)
	}
}
