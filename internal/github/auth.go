package github

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TokenSource yields an access token for a repository installation.
type TokenSource interface {
	Token(ctx context.Context, installationID int64) (string, error)
}

// StaticToken is a personal access token or a token provided by CI.
type StaticToken string

// Token returns the token unchanged.
func (s StaticToken) Token(context.Context, int64) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty token")
	}
	return string(s), nil
}

// AppAuth authenticates as a GitHub App installation (JWT -> installation token).
// Every call mints a new token; nothing is cached between runs.
type AppAuth struct {
	appID      int64
	privateKey *rsa.PrivateKey
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewAppAuth creates an AppAuth from the App ID and PEM-encoded private key.
func NewAppAuth(appID int64, privateKeyPEM []byte, baseURL string, httpClient *http.Client) (*AppAuth, error) {
	key, err := ParsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	return &AppAuth{
		appID:      appID,
		privateKey: key,
		baseURL:    baseURL,
		httpClient: httpClient,
		now:        time.Now,
	}, nil
}

// Token exchanges an App JWT for an installation access token.
func (a *AppAuth) Token(ctx context.Context, installationID int64) (string, error) {
	if installationID == 0 {
		return "", fmt.Errorf("missing installation id")
	}

	jwt, err := a.generateJWT()
	if err != nil {
		return "", fmt.Errorf("generate JWT: %w", err)
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.baseURL, installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+jwt)
	req.Header.Set("Accept", acceptJSON)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request installation token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", newAPIError(req, resp)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	return result.Token, nil
}

func (a *AppAuth) generateJWT() (string, error) {
	now := a.now()
	// GitHub App JWTs: iat is backdated 60s, exp is max 10 minutes
	iat := now.Add(-60 * time.Second)
	exp := now.Add(5 * time.Minute)

	return signJWT(a.appID, iat, exp, a.privateKey)
}
