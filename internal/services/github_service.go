package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vitrina/internal/config"
	"vitrina/internal/errs"

	"go.uber.org/zap"
)

const (
	defaultGitHubBaseURL = "https://api.github.com"
	githubTimeout        = 15 * time.Second

	// Contents API rejects payloads past this size; surface the limit as a
	// clear error instead of letting the host truncate or 502.
	maxContentBytes = 25 * 1024 * 1024
)

// RemoteContent is the metadata the content host returns for an existing file.
type RemoteContent struct {
	SHA     string
	HTMLURL string
}

// GitHubService is a minimal client for the repository contents API: enough
// to provision a pages repo and mirror files into it with optimistic
// concurrency on the per-file sha.
type GitHubService interface {
	CreateRepo(ctx context.Context, name string) error
	GetContents(ctx context.Context, repo, path, branch string) (*RemoteContent, error)
	PutContents(ctx context.Context, repo, path, branch, message string, content []byte, sha string) (*RemoteContent, error)
}

type githubClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	owner      string
	logger     *zap.Logger
}

func NewGitHubService(cfg config.GitHubConfig, logger *zap.Logger) GitHubService {
	return &githubClient{
		httpClient: &http.Client{Timeout: githubTimeout},
		baseURL:    defaultGitHubBaseURL,
		token:      cfg.Token,
		owner:      cfg.Owner,
		logger:     logger,
	}
}

// NewGitHubServiceWithBaseURL points the client at an alternate API host.
// Used by tests.
func NewGitHubServiceWithBaseURL(cfg config.GitHubConfig, baseURL string, logger *zap.Logger) GitHubService {
	svc := NewGitHubService(cfg, logger).(*githubClient)
	svc.baseURL = baseURL
	return svc
}

func (g *githubClient) checkConfigured() error {
	if g.token == "" {
		return errs.Config("GITHUB_TOKEN is not set")
	}
	if g.owner == "" {
		return errs.Config("GITHUB_OWNER is not set")
	}
	return nil
}

// CreateRepo provisions a public repository under the configured owner.
// A 422 from the host means the repo already exists, which is fine: repo
// creation is idempotent from the wizard's point of view.
func (g *githubClient) CreateRepo(ctx context.Context, name string) error {
	if err := g.checkConfigured(); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"name":     name,
		"private":  false,
		"has_wiki": false,
	})
	if err != nil {
		return err
	}

	status, respBody, err := g.do(ctx, http.MethodPost, g.baseURL+"/user/repos", body)
	if err != nil {
		return errs.Transient("create repo", err)
	}

	switch {
	case status == http.StatusCreated:
		g.logger.Info("repository created", zap.String("repo", name))
		return nil
	case status == http.StatusUnprocessableEntity:
		g.logger.Info("repository already exists", zap.String("repo", name))
		return nil
	default:
		return fmt.Errorf("create repo %s: status %d: %s", name, status, truncate(respBody, 200))
	}
}

// GetContents fetches the current sha for a path. A missing path is a
// NotFound, which callers treat as "create rather than update".
func (g *githubClient) GetContents(ctx context.Context, repo, path, branch string) (*RemoteContent, error) {
	if err := g.checkConfigured(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s", g.baseURL, g.owner, repo, path, branch)
	status, respBody, err := g.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Transient("get contents", err)
	}

	switch status {
	case http.StatusOK:
		var payload struct {
			SHA     string `json:"sha"`
			HTMLURL string `json:"html_url"`
		}
		if err := json.Unmarshal(respBody, &payload); err != nil {
			return nil, fmt.Errorf("decode contents response: %w", err)
		}
		return &RemoteContent{SHA: payload.SHA, HTMLURL: payload.HTMLURL}, nil
	case http.StatusNotFound:
		return nil, errs.NotFound("%s/%s@%s", repo, path, branch)
	default:
		return nil, fmt.Errorf("get contents %s/%s: status %d: %s", repo, path, status, truncate(respBody, 200))
	}
}

// PutContents writes one file. sha is the optimistic-concurrency precondition:
// empty sha creates, a non-empty sha must match the current blob or the host
// answers with a conflict status.
func (g *githubClient) PutContents(ctx context.Context, repo, path, branch, message string, content []byte, sha string) (*RemoteContent, error) {
	if err := g.checkConfigured(); err != nil {
		return nil, err
	}
	if len(content) > maxContentBytes {
		return nil, errs.Validation("%s is %d bytes, contents API limit is %d", path, len(content), maxContentBytes)
	}

	payload := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.baseURL, g.owner, repo, path)
	status, respBody, err := g.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return nil, errs.Transient("put contents", err)
	}

	switch status {
	case http.StatusOK, http.StatusCreated:
		var resp struct {
			Content struct {
				SHA     string `json:"sha"`
				HTMLURL string `json:"html_url"`
			} `json:"content"`
		}
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("decode put response: %w", err)
		}
		return &RemoteContent{SHA: resp.Content.SHA, HTMLURL: resp.Content.HTMLURL}, nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return nil, errs.Conflict(fmt.Sprintf("%s/%s: stale sha", repo, path), nil)
	default:
		return nil, fmt.Errorf("put contents %s/%s: status %d: %s", repo, path, status, truncate(respBody, 200))
	}
}

func (g *githubClient) do(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
