package check

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"
)

// Source reads repository data at a commit.
type Source interface {
	// Tree returns every blob path of the commit's tree, recursively, in the
	// order the forge lists them.
	Tree(ctx context.Context, t Target) ([]string, error)
	// Content returns the decoded bytes of path at t.Ref.
	Content(ctx context.Context, t Target, path string) ([]byte, error)
}

// Lister produces the file list of a run.
type Lister struct {
	source     Source
	extensions []string
}

// NewLister creates a Lister keeping paths that end in one of extensions.
func NewLister(source Source, extensions []string) *Lister {
	return &Lister{source: source, extensions: extensions}
}

// List returns the matching paths of t's tree, preserving listing order.
func (l *Lister) List(ctx context.Context, t Target) ([]string, error) {
	paths, err := l.source.Tree(ctx, t)
	if err != nil {
		return nil, &RetrievalError{Op: "list tree", Ref: t.Ref, Err: err}
	}
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		if hasAnySuffix(p, l.extensions) {
			files = append(files, p)
		}
	}
	return files, nil
}

// Fetcher returns file contents as text.
type Fetcher struct {
	source Source
}

// NewFetcher creates a Fetcher reading from source.
func NewFetcher(source Source) *Fetcher {
	return &Fetcher{source: source}
}

// Fetch returns the text of path at t.Ref. Binary content is rejected.
func (f *Fetcher) Fetch(ctx context.Context, t Target, path string) (string, error) {
	data, err := f.source.Content(ctx, t, path)
	if err != nil {
		return "", &RetrievalError{Op: "fetch", Path: path, Ref: t.Ref, Err: err}
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", &RetrievalError{Op: "fetch", Path: path, Ref: t.Ref, Err: ErrNotText}
	}
	return string(data), nil
}

// Dialect selects the formatter mode for a file.
type Dialect int

const (
	DialectSource Dialect = iota // plain source files, e.g. .scala
	DialectBuild                 // build definitions, e.g. .sbt
)

func (d Dialect) String() string {
	if d == DialectBuild {
		return "build"
	}
	return "source"
}

// DialectFor returns DialectBuild when path ends in one of buildExtensions.
func DialectFor(path string, buildExtensions []string) Dialect {
	if hasAnySuffix(path, buildExtensions) {
		return DialectBuild
	}
	return DialectSource
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if suf != "" && strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
