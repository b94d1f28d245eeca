package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/fmtcheck/fmtcheck/internal/check"
)

// MaxDescriptionLength is GitHub's limit on commit status descriptions.
const MaxDescriptionLength = 140

// ErrTreeTruncated is returned when GitHub could not list the whole tree.
var ErrTreeTruncated = errors.New("tree listing truncated by GitHub")

// RepoClient reads one repository and writes its commit statuses with a
// single token. It implements check.Session.
type RepoClient struct {
	client *Client
	token  string
	repo   check.Repository
}

type treeResponse struct {
	SHA       string `json:"sha"`
	Truncated bool   `json:"truncated"`
	Tree      []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		SHA  string `json:"sha"`
	} `json:"tree"`
}

type contentResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
}

type statusRequest struct {
	State       string `json:"state"`
	Description string `json:"description"`
	Context     string `json:"context"`
	TargetURL   string `json:"target_url,omitempty"`
}

func (r *RepoClient) repoPath() string {
	return "/repos/" + url.PathEscape(r.repo.Owner) + "/" + url.PathEscape(r.repo.Name)
}

// Tree lists every blob of t.Ref's tree recursively.
func (r *RepoClient) Tree(ctx context.Context, t check.Target) ([]string, error) {
	path := fmt.Sprintf("%s/git/trees/%s?recursive=1", r.repoPath(), url.PathEscape(t.Ref))

	var resp treeResponse
	if err := r.client.do(ctx, r.token, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Truncated {
		return nil, ErrTreeTruncated
	}

	paths := make([]string, 0, len(resp.Tree))
	for _, node := range resp.Tree {
		if node.Type == "blob" {
			paths = append(paths, node.Path)
		}
	}
	return paths, nil
}

// Content returns the decoded bytes of path at t.Ref. Files too large for the
// contents API are read through the blob API.
func (r *RepoClient) Content(ctx context.Context, t check.Target, path string) ([]byte, error) {
	apiPath := fmt.Sprintf("%s/contents/%s?ref=%s", r.repoPath(), escapePath(path), url.QueryEscape(t.Ref))

	var resp contentResponse
	if err := r.client.do(ctx, r.token, http.MethodGet, apiPath, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Type != "" && resp.Type != "file" {
		return nil, fmt.Errorf("%s is a %s, not a file", path, resp.Type)
	}

	switch resp.Encoding {
	case "base64":
		return decodeBase64(resp.Content)
	case "none", "":
		if resp.SHA == "" {
			return nil, fmt.Errorf("%s: no content returned", path)
		}
		return r.blob(ctx, resp.SHA)
	default:
		return nil, fmt.Errorf("%s: unsupported encoding %q", path, resp.Encoding)
	}
}

func (r *RepoClient) blob(ctx context.Context, sha string) ([]byte, error) {
	var resp contentResponse
	if err := r.client.do(ctx, r.token, http.MethodGet, r.repoPath()+"/git/blobs/"+url.PathEscape(sha), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Encoding != "base64" {
		return nil, fmt.Errorf("blob %s: unsupported encoding %q", sha, resp.Encoding)
	}
	return decodeBase64(resp.Content)
}

// Publish creates a commit status for s on t.Ref. It implements check.Reporter.
func (r *RepoClient) Publish(ctx context.Context, t check.Target, s check.Status) error {
	body := statusRequest{
		State:       string(s.State()),
		Description: truncate(s.Description(), MaxDescriptionLength),
		Context:     r.client.statusContext,
		TargetURL:   r.client.targetURL,
	}
	path := fmt.Sprintf("%s/statuses/%s", r.repoPath(), url.PathEscape(t.Ref))
	if err := r.client.do(ctx, r.token, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("create status: %w", err)
	}
	return nil
}

// decodeBase64 decodes GitHub's line-wrapped base64.
func decodeBase64(s string) ([]byte, error) {
	s = strings.NewReplacer("\n", "", "\r", "").Replace(s)
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64 content: %w", err)
	}
	return data, nil
}

// escapePath escapes each segment of a repository path.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
