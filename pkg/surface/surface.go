// Package surface renders commit statuses for local output targets:
// terminal and JSON lines. Reporters can be combined with Tee so a run
// published to GitHub is also shown locally.
package surface

import (
	"context"
	"errors"

	"github.com/fmtcheck/fmtcheck/internal/check"
)

// Record is the serialized form of one published status.
type Record struct {
	Repository  string `json:"repository"`
	SHA         string `json:"sha"`
	Kind        string `json:"kind"`
	State       string `json:"state"`
	Description string `json:"description"`
	Terminal    bool   `json:"terminal"`
}

// NewRecord builds the Record for a status published against t.
func NewRecord(t check.Target, s check.Status) Record {
	return Record{
		Repository:  t.Repo.String(),
		SHA:         t.Ref,
		Kind:        s.Kind.String(),
		State:       string(s.State()),
		Description: s.Description(),
		Terminal:    s.Terminal(),
	}
}

// Tee publishes every status to each reporter in order. All reporters see
// the status even if an earlier one fails; the errors are joined.
type Tee []check.Reporter

func (t Tee) Publish(ctx context.Context, target check.Target, s check.Status) error {
	var errs []error
	for _, r := range t {
		if err := r.Publish(ctx, target, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
