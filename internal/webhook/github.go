// Package webhook handles incoming GitHub webhook events.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fmtcheck/fmtcheck/internal/check"
)

// ErrUnsupportedEvent is returned by ParseEvent for event types the service
// does not act on.
var ErrUnsupportedEvent = errors.New("unsupported event type")

// VerifySignature validates the X-Hub-Signature-256 header against the payload.
func VerifySignature(payload []byte, signature string, secret []byte) error {
	if !strings.HasPrefix(signature, "sha256=") {
		return fmt.Errorf("invalid signature format")
	}
	sig, err := hex.DecodeString(signature[7:])
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	if !hmac.Equal(sig, expected) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// PushEvent represents a push webhook event.
type PushEvent struct {
	Ref          string              `json:"ref"`
	After        string              `json:"after"`
	Deleted      bool                `json:"deleted"`
	HeadCommit   *Commit             `json:"head_commit"`
	Repository   GitHubRepository    `json:"repository"`
	Installation InstallationPayload `json:"installation"`
}

// PingEvent is sent once when a webhook is created.
type PingEvent struct {
	Zen    string `json:"zen"`
	HookID int64  `json:"hook_id"`
}

// Commit is the head commit of a push.
type Commit struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// InstallationPayload contains installation details.
type InstallationPayload struct {
	ID int64 `json:"id"`
}

// GitHubRepository represents a GitHub repository.
type GitHubRepository struct {
	ID            int64  `json:"id"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
}

// Target returns the commit the push asks to be checked. ok is false when
// the push carries no head commit, as for a deleted branch.
func (e *PushEvent) Target() (t check.Target, ok bool, err error) {
	if e.Deleted || e.HeadCommit == nil || e.HeadCommit.ID == "" {
		return check.Target{}, false, nil
	}
	repo, err := check.ParseRepository(e.Repository.FullName)
	if err != nil {
		return check.Target{}, false, err
	}
	return check.Target{
		Repo:           repo,
		Ref:            e.HeadCommit.ID,
		InstallationID: e.Installation.ID,
	}, true, nil
}

// ParseEvent parses a webhook payload based on the event type.
func ParseEvent(eventType string, payload []byte) (interface{}, error) {
	switch eventType {
	case "ping":
		var e PingEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("parse ping event: %w", err)
		}
		return &e, nil
	case "push":
		var e PushEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("parse push event: %w", err)
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, eventType)
	}
}
