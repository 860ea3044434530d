// Package githost is the source-hosting collaborator client. It covers the
// operations the pipeline needs: repository creation, per-file contents
// upload, and the git data primitives (blob, tree, commit, ref) used for
// atomic edit commits.
package githost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/brightlane/siteforge/internal/site"
)

type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(token, baseURL string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		logger: slog.Default().With("component", "githost"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a token is present. Checked before any
// pipeline execution so "not configured" surfaces as ConfigurationError.
func (c *Client) Configured() bool {
	return c.token != ""
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &site.PublishError{Op: method + " " + path, Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &site.PublishError{Op: method + " " + path, Cause: err}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &site.PublishError{Op: method + " " + path, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &site.PublishError{Op: method + " " + path, StatusCode: resp.StatusCode, Cause: err}
	}

	c.logger.Debug("source host call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return &site.PublishError{Op: method + " " + path, StatusCode: resp.StatusCode, Cause: err}
			}
		}
		return nil
	}

	return c.mapError(method+" "+path, resp.StatusCode, respBody)
}

func (c *Client) mapError(op string, status int, body []byte) error {
	upstream := upstreamMessage(body)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &site.AuthenticationError{Op: op, StatusCode: status}
	case http.StatusUnprocessableEntity:
		return &site.NameConflictError{}
	case http.StatusNotFound:
		return &site.PublishError{Op: op, StatusCode: status, Upstream: upstream, Cause: ErrNotFound}
	default:
		return &site.PublishError{Op: op, StatusCode: status, Upstream: upstream}
	}
}

// ErrNotFound marks 404 responses; some callers use it for optimistic
// existence checks where absence is expected.
var ErrNotFound = fmt.Errorf("resource not found")

func upstreamMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}

// --- identity and repositories ---

type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

func (c *Client) GetAuthenticatedUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type Repo struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
	Owner         User   `json:"owner"`
}

// CreateRepo creates a repository for the authenticated user. auto_init is
// deliberately absent: content is pushed explicitly afterwards.
func (c *Client) CreateRepo(ctx context.Context, name, description string, private bool) (*Repo, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"private":     private,
	}
	var repo Repo
	if err := c.do(ctx, http.MethodPost, "/user/repos", body, &repo); err != nil {
		var conflict *site.NameConflictError
		if errors.As(err, &conflict) {
			return nil, &site.NameConflictError{Name: name}
		}
		return nil, err
	}
	if repo.DefaultBranch == "" {
		repo.DefaultBranch = "main"
	}
	return &repo, nil
}

// PutContents creates or updates a single file via the contents API. Each
// call produces one commit.
func (c *Client) PutContents(ctx context.Context, owner, repo, path, message, content, sha string) error {
	body := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
	}
	if sha != "" {
		body["sha"] = sha
	}
	url := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path)
	return c.do(ctx, http.MethodPut, url, body, nil)
}

// --- branches and trees ---

type Branch struct {
	Name   string `json:"name"`
	Commit struct {
		SHA    string `json:"sha"`
		Commit struct {
			Tree struct {
				SHA string `json:"sha"`
			} `json:"tree"`
		} `json:"commit"`
	} `json:"commit"`
}

func (c *Client) GetBranch(ctx context.Context, owner, repo, branch string) (*Branch, error) {
	var b Branch
	url := fmt.Sprintf("/repos/%s/%s/branches/%s", owner, repo, branch)
	if err := c.do(ctx, http.MethodGet, url, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) GetRepo(ctx context.Context, owner, repo string) (*Repo, error) {
	var r Repo
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s", owner, repo), nil, &r); err != nil {
		return nil, err
	}
	if r.DefaultBranch == "" {
		r.DefaultBranch = "main"
	}
	return &r, nil
}

type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha,omitempty"`
}

type Tree struct {
	SHA       string      `json:"sha"`
	Entries   []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

func (c *Client) GetTree(ctx context.Context, owner, repo, sha string, recursive bool) (*Tree, error) {
	url := fmt.Sprintf("/repos/%s/%s/git/trees/%s", owner, repo, sha)
	if recursive {
		url += "?recursive=1"
	}
	var tree Tree
	if err := c.do(ctx, http.MethodGet, url, nil, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// GetFileContent fetches and decodes a single file via the contents API.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	url := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path)
	if ref != "" {
		url += "?ref=" + ref
	}
	var out struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := c.do(ctx, http.MethodGet, url, nil, &out); err != nil {
		return "", err
	}
	if out.Encoding != "base64" {
		return out.Content, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(compactBase64(out.Content))
	if err != nil {
		return "", &site.PublishError{Op: "decode " + path, Cause: err}
	}
	return string(decoded), nil
}

// compactBase64 strips the newlines the contents API inserts into encoded
// payloads.
func compactBase64(s string) string {
	return string(bytes.ReplaceAll(bytes.ReplaceAll([]byte(s), []byte("\n"), nil), []byte("\r"), nil))
}

// --- git data primitives for atomic commits ---

func (c *Client) CreateBlob(ctx context.Context, owner, repo, content string) (string, error) {
	body := map[string]string{
		"content":  base64.StdEncoding.EncodeToString([]byte(content)),
		"encoding": "base64",
	}
	var out struct {
		SHA string `json:"sha"`
	}
	url := fmt.Sprintf("/repos/%s/%s/git/blobs", owner, repo)
	if err := c.do(ctx, http.MethodPost, url, body, &out); err != nil {
		return "", err
	}
	return out.SHA, nil
}

func (c *Client) CreateTree(ctx context.Context, owner, repo, baseTree string, entries []TreeEntry) (string, error) {
	body := map[string]any{
		"base_tree": baseTree,
		"tree":      entries,
	}
	var out struct {
		SHA string `json:"sha"`
	}
	url := fmt.Sprintf("/repos/%s/%s/git/trees", owner, repo)
	if err := c.do(ctx, http.MethodPost, url, body, &out); err != nil {
		return "", err
	}
	return out.SHA, nil
}

func (c *Client) CreateCommit(ctx context.Context, owner, repo, message, tree string, parents []string) (string, error) {
	body := map[string]any{
		"message": message,
		"tree":    tree,
		"parents": parents,
	}
	var out struct {
		SHA string `json:"sha"`
	}
	url := fmt.Sprintf("/repos/%s/%s/git/commits", owner, repo)
	if err := c.do(ctx, http.MethodPost, url, body, &out); err != nil {
		return "", err
	}
	return out.SHA, nil
}

func (c *Client) UpdateRef(ctx context.Context, owner, repo, branch, sha string) error {
	body := map[string]any{
		"sha":   sha,
		"force": false,
	}
	url := fmt.Sprintf("/repos/%s/%s/git/refs/heads/%s", owner, repo, branch)
	return c.do(ctx, http.MethodPatch, url, body, nil)
}
