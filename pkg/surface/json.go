package surface

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/fmtcheck/fmtcheck/internal/check"
)

// JSON writes each status as one JSON object per line.
type JSON struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSON returns a JSON reporter writing to w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{enc: json.NewEncoder(w)}
}

func (r *JSON) Publish(_ context.Context, t check.Target, s check.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(NewRecord(t, s))
}
