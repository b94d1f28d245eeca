// Package github talks to the GitHub REST API: tree listings, file contents
// and commit statuses for one commit at a time.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/fmtcheck/fmtcheck/internal/check"
)

const (
	// DefaultBaseURL is the public GitHub API endpoint.
	DefaultBaseURL = "https://api.github.com"
	// DefaultStatusContext labels the commit statuses this checker publishes.
	DefaultStatusContext = "scalafmt"

	acceptJSON = "application/vnd.github+json"
)

var (
	_ check.Connector = (*Client)(nil)
	_ check.Session   = (*RepoClient)(nil)
)

// ErrNotFound matches API errors with status 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github API error %d on %s %s: %s", e.StatusCode, e.Method, e.URL, e.Message)
}

// Is reports whether e matches ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

func newAPIError(req *http.Request, resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(body))
	if m := gjson.GetBytes(body, "message"); m.Type == gjson.String && m.Str != "" {
		msg = m.Str
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Method:     req.Method,
		URL:        req.URL.Path,
		Message:    msg,
	}
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	StatusContext string
	TargetURL     string // optional link attached to every status
	HTTPClient    *http.Client
}

// Client opens per-commit sessions against the GitHub API.
type Client struct {
	baseURL       string
	statusContext string
	targetURL     string
	httpClient    *http.Client
	tokens        TokenSource
}

// NewClient creates a Client authenticating through tokens.
func NewClient(tokens TokenSource, opts Options) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		statusContext: opts.StatusContext,
		targetURL:     opts.TargetURL,
		httpClient:    opts.HTTPClient,
		tokens:        tokens,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.statusContext == "" {
		c.statusContext = DefaultStatusContext
	}
	if c.httpClient == nil {
		c.httpClient = defaultHTTPClient()
	}
	return c
}

// Connect mints a token for t's installation and returns a RepoClient bound
// to it. It implements check.Connector.
func (c *Client) Connect(ctx context.Context, t check.Target) (check.Session, error) {
	return c.Repo(ctx, t)
}

// Repo is Connect with a concrete return type.
func (c *Client) Repo(ctx context.Context, t check.Target) (*RepoClient, error) {
	token, err := c.tokens.Token(ctx, t.InstallationID)
	if err != nil {
		return nil, fmt.Errorf("get installation token: %w", err)
	}
	return &RepoClient{
		client: c,
		token:  token,
		repo:   t.Repo,
	}, nil
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", acceptJSON)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(req, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
