// Package hosting is the deployment-platform collaborator client and the
// deployment trigger built on it. Platform failures here are soft by
// design: the repository already exists by the time anything in this
// package runs, so errors downgrade into a partial DeploymentResult
// instead of propagating.
package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// codeProjectExists is the platform's sentinel for a duplicate project
// name; it means "fetch the existing project", not failure.
const codeProjectExists = "project_already_exists"

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
		logger: slog.Default().With("component", "hosting"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool {
	return c.token != ""
}

// apiError is the platform's structured {error:{code,message}} body.
type apiError struct {
	Code    string
	Message string
	Status  int
}

func (e *apiError) Error() string {
	return fmt.Sprintf("hosting API error (status %d, code %s): %s", e.Status, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, teamID string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	full := c.baseURL + path
	if teamID != "" {
		sep := "?"
		if u, err := url.Parse(full); err == nil && u.RawQuery != "" {
			sep = "&"
		}
		full += sep + "teamId=" + url.QueryEscape(teamID)
	}

	req, err := http.NewRequestWithContext(ctx, method, full, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	c.logger.Debug("hosting call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil {
			return json.Unmarshal(respBody, out)
		}
		return nil
	}

	var parsed struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(respBody, &parsed)
	return &apiError{
		Code:    parsed.Error.Code,
		Message: parsed.Error.Message,
		Status:  resp.StatusCode,
	}
}

// --- accounts ---

type Team struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

func (c *Client) ListTeams(ctx context.Context) ([]Team, error) {
	var out struct {
		Teams []Team `json:"teams"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/teams", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Teams, nil
}

func (c *Client) GetUser(ctx context.Context) (string, error) {
	var out struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/user", "", nil, &out); err != nil {
		return "", err
	}
	return out.User.ID, nil
}

// --- projects ---

type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateProject provisions a static project bound to the repository. No
// build framework, no install or build commands: the artifact tree is
// already deployable as-is.
func (c *Client) CreateProject(ctx context.Context, teamID, name, repoFullName string) (*Project, error) {
	body := map[string]any{
		"name":      name,
		"framework": nil,
		"gitRepository": map[string]string{
			"type": "github",
			"repo": repoFullName,
		},
	}
	var project Project
	err := c.do(ctx, http.MethodPost, "/v10/projects", teamID, body, &project)
	if err == nil {
		return &project, nil
	}

	var ae *apiError
	if asAPIError(err, &ae) && ae.Code == codeProjectExists {
		c.logger.Info("project already exists, fetching it", "name", name)
		return c.GetProject(ctx, teamID, name)
	}
	return nil, err
}

func (c *Client) GetProject(ctx context.Context, teamID, name string) (*Project, error) {
	var project Project
	if err := c.do(ctx, http.MethodGet, "/v9/projects/"+url.PathEscape(name), teamID, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// LinkRepo explicitly pairs the repository with the project. Callers treat
// failure as non-fatal: the pairing made at project creation may already be
// in place.
func (c *Client) LinkRepo(ctx context.Context, teamID, projectID, repoFullName string) error {
	body := map[string]any{
		"type": "github",
		"repo": repoFullName,
	}
	return c.do(ctx, http.MethodPost, "/v9/projects/"+url.PathEscape(projectID)+"/link", teamID, body, nil)
}

// --- deployments ---

type Deployment struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	State string `json:"readyState"`
}

type GitSource struct {
	RepoID int64
	Ref    string
	SHA    string
}

// CreateDeployment requests a production deployment tied to a specific
// commit. SHA may be empty when the head could not be resolved at publish
// time, in which case the branch ref alone drives the deployment.
func (c *Client) CreateDeployment(ctx context.Context, teamID, name, projectID string, src GitSource) (*Deployment, error) {
	gitSource := map[string]any{
		"type":   "github",
		"repoId": src.RepoID,
		"ref":    src.Ref,
	}
	if src.SHA != "" {
		gitSource["sha"] = src.SHA
	}
	body := map[string]any{
		"name":      name,
		"project":   projectID,
		"target":    "production",
		"gitSource": gitSource,
	}
	var deployment Deployment
	if err := c.do(ctx, http.MethodPost, "/v13/deployments", teamID, body, &deployment); err != nil {
		return nil, err
	}
	return &deployment, nil
}

// ListDeployments returns the project's deployments, most recent first.
// Used for status polling after a trigger.
func (c *Client) ListDeployments(ctx context.Context, teamID, projectID string, limit int) ([]Deployment, error) {
	path := fmt.Sprintf("/v6/deployments?projectId=%s&limit=%d", url.QueryEscape(projectID), limit)
	var out struct {
		Deployments []Deployment `json:"deployments"`
	}
	if err := c.do(ctx, http.MethodGet, path, teamID, nil, &out); err != nil {
		return nil, err
	}
	return out.Deployments, nil
}

func asAPIError(err error, target **apiError) bool {
	return errors.As(err, target)
}
