package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/fmtcheck/fmtcheck/internal/check"
	"github.com/fmtcheck/fmtcheck/internal/logger"
)

// Checker runs one verification of a commit.
type Checker interface {
	Check(ctx context.Context, t check.Target) (check.Status, error)
}

// Handler processes incoming GitHub webhook events. Each accepted push
// starts a run in its own goroutine, detached from the request.
type Handler struct {
	webhookSecret []byte
	checker       Checker
	log           *logger.Logger

	runs sync.WaitGroup
}

// NewHandler creates a new webhook Handler.
func NewHandler(webhookSecret []byte, checker Checker, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		webhookSecret: webhookSecret,
		checker:       checker,
		log:           log,
	}
}

// ServeHTTP handles incoming webhook requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20)) // 10 MB limit
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Hub-Signature-256")
	if err := VerifySignature(body, signature, h.webhookSecret); err != nil {
		h.log.Warnf("webhook signature verification failed: %v", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	if eventType == "" {
		http.Error(w, "missing X-GitHub-Event header", http.StatusBadRequest)
		return
	}

	event, err := ParseEvent(eventType, body)
	if errors.Is(err, ErrUnsupportedEvent) {
		h.log.Debugf("ignoring %s event", eventType)
		respond(w, http.StatusAccepted, "ignored")
		return
	}
	if err != nil {
		h.log.Warnf("webhook parse error for %s: %v", eventType, err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	case *PingEvent:
		h.log.Infof("received ping for hook %d", e.HookID)
		respond(w, http.StatusOK, "pong")
		return

	case *PushEvent:
		t, ok, err := e.Target()
		if err != nil {
			h.log.Warnf("handle push event: %v", err)
			http.Error(w, "invalid repository", http.StatusBadRequest)
			return
		}
		if !ok {
			h.log.Infof("ignoring push to %s without head commit", e.Repository.FullName)
			respond(w, http.StatusAccepted, "ignored")
			return
		}
		h.start(context.WithoutCancel(r.Context()), t)
	}

	respond(w, http.StatusAccepted, "accepted")
}

// start runs the check for t in the background.
func (h *Handler) start(ctx context.Context, t check.Target) {
	h.log.Infof("starting check of %s at %s", t.Repo, t.Ref)
	h.runs.Add(1)
	go func() {
		defer h.runs.Done()
		if _, err := h.checker.Check(ctx, t); err != nil {
			h.log.Error("check run failed", err)
		}
	}()
}

// Wait blocks until every run started so far has finished, including its
// final status publish.
func (h *Handler) Wait() {
	h.runs.Wait()
}

func respond(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
