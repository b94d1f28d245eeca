package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fmtcheck/fmtcheck/internal/check"
)

func computeHMAC(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := []byte("webhook-secret-123")
	payload := []byte(`{"action":"opened"}`)

	tests := []struct {
		name      string
		payload   []byte
		signature string
		secret    []byte
		wantErr   bool
	}{
		{
			name:      "valid signature",
			payload:   payload,
			signature: computeHMAC(payload, secret),
			secret:    secret,
			wantErr:   false,
		},
		{
			name:      "wrong secret",
			payload:   payload,
			signature: computeHMAC(payload, []byte("wrong-secret")),
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "tampered payload",
			payload:   []byte(`{"action":"closed"}`),
			signature: computeHMAC(payload, secret),
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "missing sha256= prefix",
			payload:   payload,
			signature: "not-a-valid-sig",
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid hex after prefix",
			payload:   payload,
			signature: "sha256=zzzz",
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "empty signature",
			payload:   payload,
			signature: "",
			secret:    secret,
			wantErr:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := VerifySignature(tc.payload, tc.signature, tc.secret)
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseEvent_Push(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantRepo string
		wantOK   bool
		wantRef  string
		wantInst int64
	}{
		{
			name: "push with head commit",
			payload: `{"ref":"refs/heads/main","after":"abc123def456",
				"head_commit":{"id":"abc123def456","message":"fix"},
				"repository":{"id":42,"full_name":"octocat/hello-world","default_branch":"main"},
				"installation":{"id":12345}}`,
			wantRepo: "octocat/hello-world",
			wantOK:   true,
			wantRef:  "abc123def456",
			wantInst: 12345,
		},
		{
			name: "push to feature branch",
			payload: `{"ref":"refs/heads/feature/new-thing","after":"deadbeef",
				"head_commit":{"id":"deadbeef"},
				"repository":{"full_name":"org/repo","default_branch":"main"},
				"installation":{"id":67890}}`,
			wantRepo: "org/repo",
			wantOK:   true,
			wantRef:  "deadbeef",
			wantInst: 67890,
		},
		{
			name: "branch deletion",
			payload: `{"ref":"refs/heads/gone","after":"0000000000000000000000000000000000000000",
				"deleted":true,"head_commit":null,
				"repository":{"full_name":"org/repo"},"installation":{"id":1}}`,
			wantRepo: "org/repo",
			wantOK:   false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			event, err := ParseEvent("push", []byte(tc.payload))
			if err != nil {
				t.Fatalf("ParseEvent: %v", err)
			}

			push, ok := event.(*PushEvent)
			if !ok {
				t.Fatalf("expected *PushEvent, got %T", event)
			}
			if push.Repository.FullName != tc.wantRepo {
				t.Errorf("repo = %q, want %q", push.Repository.FullName, tc.wantRepo)
			}

			target, ok, err := push.Target()
			if err != nil {
				t.Fatalf("Target: %v", err)
			}
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if target.Repo.String() != tc.wantRepo {
				t.Errorf("target repo = %q, want %q", target.Repo, tc.wantRepo)
			}
			if target.Ref != tc.wantRef {
				t.Errorf("target ref = %q, want %q", target.Ref, tc.wantRef)
			}
			if target.InstallationID != tc.wantInst {
				t.Errorf("installation = %d, want %d", target.InstallationID, tc.wantInst)
			}
		})
	}
}

func TestPushEvent_TargetInvalidRepository(t *testing.T) {
	e := &PushEvent{HeadCommit: &Commit{ID: "abc"}, Repository: GitHubRepository{FullName: "no-slash"}}
	if _, _, err := e.Target(); err == nil {
		t.Error("expected error for malformed full_name, got nil")
	}
}

func TestParseEvent_Ping(t *testing.T) {
	event, err := ParseEvent("ping", []byte(`{"zen":"Keep it logically awesome.","hook_id":7}`))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	ping, ok := event.(*PingEvent)
	if !ok {
		t.Fatalf("expected *PingEvent, got %T", event)
	}
	if ping.HookID != 7 {
		t.Errorf("hook id = %d, want 7", ping.HookID)
	}
}

func TestParseEvent_UnsupportedType(t *testing.T) {
	_, err := ParseEvent("pull_request", []byte(`{}`))
	if !errors.Is(err, ErrUnsupportedEvent) {
		t.Errorf("expected ErrUnsupportedEvent, got %v", err)
	}
}

func TestParseEvent_InvalidJSON(t *testing.T) {
	types := []string{"push", "ping"}
	for _, eventType := range types {
		t.Run(eventType, func(t *testing.T) {
			_, err := ParseEvent(eventType, []byte(`{invalid json`))
			if err == nil {
				t.Errorf("expected error parsing invalid JSON for %s, got nil", eventType)
			}
			if errors.Is(err, ErrUnsupportedEvent) {
				t.Errorf("invalid JSON reported as unsupported event")
			}
		})
	}
}

// fakeChecker records targets and blocks each run until release is closed.
type fakeChecker struct {
	mu      sync.Mutex
	targets []check.Target
	release chan struct{}
	started chan struct{}
	done    chan struct{}
	ctxErr  error
}

func newFakeChecker() *fakeChecker {
	return &fakeChecker{
		release: make(chan struct{}),
		started: make(chan struct{}, 16),
		done:    make(chan struct{}, 16),
	}
}

func (f *fakeChecker) Check(ctx context.Context, t check.Target) (check.Status, error) {
	f.mu.Lock()
	f.targets = append(f.targets, t)
	f.mu.Unlock()
	f.started <- struct{}{}
	<-f.release
	f.mu.Lock()
	f.ctxErr = ctx.Err()
	f.mu.Unlock()
	f.done <- struct{}{}
	return check.Success(), nil
}

const testSecret = "webhook-secret-123"

func newRequest(t *testing.T, event, body string, secret []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/github", bytes.NewBufferString(body))
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-Hub-Signature-256", computeHMAC([]byte(body), secret))
	return req
}

const pushBody = `{"ref":"refs/heads/main","after":"abc123",
	"head_commit":{"id":"abc123"},
	"repository":{"full_name":"octocat/hello-world"},
	"installation":{"id":99}}`

func TestHandler_PushStartsDetachedRun(t *testing.T) {
	checker := newFakeChecker()
	h := NewHandler([]byte(testSecret), checker, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := newRequest(t, "push", pushBody, []byte(testSecret)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	select {
	case <-checker.started:
	case <-time.After(5 * time.Second):
		t.Fatal("run was not started")
	}

	// The request finishing must not cancel the run.
	cancel()
	close(checker.release)
	h.Wait()

	checker.mu.Lock()
	defer checker.mu.Unlock()
	if len(checker.targets) != 1 {
		t.Fatalf("expected 1 run, got %d", len(checker.targets))
	}
	want := check.Target{Repo: check.Repository{Owner: "octocat", Name: "hello-world"}, Ref: "abc123", InstallationID: 99}
	if checker.targets[0] != want {
		t.Errorf("target = %+v, want %+v", checker.targets[0], want)
	}
	if checker.ctxErr != nil {
		t.Errorf("run context was cancelled: %v", checker.ctxErr)
	}
}

func TestHandler_WaitDrainsRuns(t *testing.T) {
	checker := newFakeChecker()
	h := NewHandler([]byte(testSecret), checker, nil)

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), newRequest(t, "push", pushBody, []byte(testSecret)))
	}
	for i := 0; i < 3; i++ {
		<-checker.started
	}

	waited := make(chan struct{})
	go func() {
		h.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while runs were in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(checker.release)
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after runs finished")
	}
	if len(checker.done) != 3 {
		t.Errorf("expected 3 finished runs, got %d", len(checker.done))
	}
}

func TestHandler_Responses(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		event    string
		body     string
		secret   []byte
		wantCode int
	}{
		{name: "wrong method", method: http.MethodGet, event: "push", body: pushBody, secret: []byte(testSecret), wantCode: http.StatusMethodNotAllowed},
		{name: "bad signature", event: "push", body: pushBody, secret: []byte("other"), wantCode: http.StatusUnauthorized},
		{name: "missing event header", event: "", body: pushBody, secret: []byte(testSecret), wantCode: http.StatusBadRequest},
		{name: "ping", event: "ping", body: `{"zen":"hi","hook_id":1}`, secret: []byte(testSecret), wantCode: http.StatusOK},
		{name: "unsupported event", event: "issues", body: `{}`, secret: []byte(testSecret), wantCode: http.StatusAccepted},
		{name: "invalid payload", event: "push", body: `{bad`, secret: []byte(testSecret), wantCode: http.StatusBadRequest},
		{name: "branch deletion", event: "push", body: `{"deleted":true,"repository":{"full_name":"a/b"}}`, secret: []byte(testSecret), wantCode: http.StatusAccepted},
		{name: "malformed repository", event: "push", body: `{"head_commit":{"id":"x"},"repository":{"full_name":"ab"}}`, secret: []byte(testSecret), wantCode: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checker := newFakeChecker()
			h := NewHandler([]byte(testSecret), checker, nil)

			req := newRequest(t, tc.event, tc.body, tc.secret)
			if tc.method != "" {
				req.Method = tc.method
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			h.Wait()
			if len(checker.targets) != 0 {
				t.Errorf("expected no run, got %d", len(checker.targets))
			}
		})
	}
}
