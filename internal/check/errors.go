package check

import (
	"errors"
	"fmt"
)

// ErrNotText is returned when fetched content is not valid UTF-8 text.
var ErrNotText = errors.New("content is not UTF-8 text")

// RetrievalError reports a failure to obtain the tree listing, a file, or the
// format config.
type RetrievalError struct {
	Op   string // "list tree", "fetch"
	Path string // empty for tree listings
	Ref  string
	Err  error
}

func (e *RetrievalError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s at %s: %v", e.Op, e.Ref, e.Err)
	}
	return fmt.Sprintf("%s %s at %s: %v", e.Op, e.Path, e.Ref, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// FormatError reports that the formatter could not process a file.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
