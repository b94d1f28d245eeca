package check

import (
	"fmt"
	"math"
)

// Kind enumerates the externally visible states of a run.
type Kind int

const (
	KindPreparing Kind = iota
	KindPending
	KindSuccess
	KindFailure
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindPreparing:
		return "Preparing"
	case KindPending:
		return "Pending"
	case KindSuccess:
		return "Success"
	case KindFailure:
		return "Failure"
	case KindError:
		return "Error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// State is the commit status state understood by the forge.
type State string

const (
	StatePending State = "pending"
	StateSuccess State = "success"
	StateFailure State = "failure"
)

// Status is one published state of a run. Only the fields relevant to Kind
// are set; use the constructors below.
type Status struct {
	Kind   Kind
	Count  int    // Pending: files confirmed well-formatted so far
	Total  int    // Pending: size of the file list
	Path   string // Failure: the mis-formatted file
	Detail string // Error: free-text cause
}

func Preparing() Status { return Status{Kind: KindPreparing} }

func Pending(count, total int) Status {
	return Status{Kind: KindPending, Count: count, Total: total}
}

func Success() Status { return Status{Kind: KindSuccess} }

func Failure(path string) Status { return Status{Kind: KindFailure, Path: path} }

func Error(detail string) Status { return Status{Kind: KindError, Detail: detail} }

// Terminal reports whether s ends a run.
func (s Status) Terminal() bool {
	switch s.Kind {
	case KindSuccess, KindFailure, KindError:
		return true
	default:
		return false
	}
}

// State maps s to a commit status state. Errors stay pending: an
// infrastructure problem says nothing definite about the code.
func (s Status) State() State {
	switch s.Kind {
	case KindSuccess:
		return StateSuccess
	case KindFailure:
		return StateFailure
	default:
		return StatePending
	}
}

// Description is the human-readable text published with the status.
func (s Status) Description() string {
	switch s.Kind {
	case KindPending:
		if s.Count > 0 && s.Total > 0 {
			return fmt.Sprintf("Checking %d files: %d%% done", s.Total, Percentage(s.Count, s.Total))
		}
		return "Preparing"
	case KindSuccess:
		return "All files are well-formatted"
	case KindFailure:
		return fmt.Sprintf("File %s is mis-formatted", s.Path)
	case KindError:
		return fmt.Sprintf("An error occurred: %s", s.Detail)
	default:
		return "Preparing"
	}
}

// String renders s compactly, e.g. "Pending(1,3)" or "Failure(A.scala)".
func (s Status) String() string {
	switch s.Kind {
	case KindPending:
		return fmt.Sprintf("Pending(%d,%d)", s.Count, s.Total)
	case KindFailure:
		return fmt.Sprintf("Failure(%s)", s.Path)
	case KindError:
		return fmt.Sprintf("Error(%s)", s.Detail)
	default:
		return s.Kind.String()
	}
}

// Percentage returns round(count*100/total), rounding halves away from zero.
// It returns 0 when total is not positive.
func Percentage(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}
