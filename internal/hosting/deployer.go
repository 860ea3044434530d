package hosting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brightlane/siteforge/internal/site"
)

// maxProjectNameLen is the platform's project-name length limit.
const maxProjectNameLen = 52

// platformDomain is the canonical domain deployments resolve under; used
// to predict the deployment URL when the trigger response omits one.
const platformDomain = "vercel.app"

// Deployer resolves the hosting account, provisions the project, and
// triggers the production deployment. Every step is allowed to fail softly:
// the returned DeploymentResult carries a best-guess URL plus error context
// rather than an error return, because the durable artifact (the repo)
// already exists and must not be lost to a hosting hiccup.
type Deployer struct {
	client        *Client
	logger        *slog.Logger
	readyAttempts int
	readyInterval time.Duration
}

func NewDeployer(client *Client, readyAttempts int, readyInterval time.Duration, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	if readyAttempts < 1 {
		readyAttempts = 1
	}
	if readyInterval <= 0 {
		readyInterval = time.Second
	}
	return &Deployer{
		client:        client,
		logger:        logger.With("component", "deployer"),
		readyAttempts: readyAttempts,
		readyInterval: readyInterval,
	}
}

// Deploy never returns a Go error: failures are folded into the result.
// Callers distinguish full success (Deployed true), partial success
// (Deployed false with URL and Err context), and not-configured (Deployed
// false, Err is a ConfigurationError).
func (d *Deployer) Deploy(ctx context.Context, identity *site.RepoIdentity, nameHint string) site.DeploymentResult {
	slug := site.Slugify(nameHint, maxProjectNameLen)
	fallbackURL := fmt.Sprintf("https://%s.%s", slug, platformDomain)

	result := site.DeploymentResult{URL: fallbackURL}

	if !d.client.Configured() {
		result.Err = &site.ConfigurationError{Credential: "VERCEL_TOKEN"}
		d.logger.Warn("hosting token not configured, skipping deployment", "slug", slug)
		return result
	}

	teamID := d.resolveTeam(ctx)

	project, err := d.client.CreateProject(ctx, teamID, slug, identity.RepoFullName)
	if err != nil {
		result.Err = &site.DeploymentError{Step: "create-project", Cause: err}
		d.logger.Warn("project creation failed, returning partial result",
			"slug", slug,
			"error", err)
		return result
	}
	result.ProjectURL = fmt.Sprintf("https://vercel.com/projects/%s", project.Name)

	// Best effort; pairing at creation time usually suffices.
	if err := d.client.LinkRepo(ctx, teamID, project.ID, identity.RepoFullName); err != nil {
		d.logger.Warn("repo link failed, continuing",
			"project", project.Name,
			"error", err)
	}

	d.waitUntilReady(ctx, teamID, project.Name)

	src := GitSource{
		RepoID: identity.RepoID,
		Ref:    identity.DefaultBranch,
	}
	if identity.SHAKnown() {
		src.SHA = identity.LatestCommitSHA
	}

	deployment, err := d.client.CreateDeployment(ctx, teamID, slug, project.ID, src)
	if err != nil {
		result.Err = &site.DeploymentError{Step: "create-deployment", Cause: err}
		d.logger.Warn("deployment trigger failed, returning partial result",
			"project", project.Name,
			"error", err)
		return result
	}

	result.Deployed = true
	if deployment.URL != "" {
		result.URL = "https://" + deployment.URL
	}

	d.logger.Info("deployment triggered",
		"project", project.Name,
		"deployment_id", deployment.ID,
		"url", result.URL)

	return result
}

// resolveTeam prefers the first team on the token, falls back to the
// individual account, and tolerates having neither; subsequent calls then
// simply omit team scoping.
func (d *Deployer) resolveTeam(ctx context.Context) string {
	teams, err := d.client.ListTeams(ctx)
	if err == nil && len(teams) > 0 {
		return teams[0].ID
	}
	if err != nil {
		d.logger.Debug("team listing failed, trying user account", "error", err)
	}
	userID, err := d.client.GetUser(ctx)
	if err != nil {
		d.logger.Debug("user resolution failed, proceeding unscoped", "error", err)
		return ""
	}
	return userID
}

// waitUntilReady polls project existence a bounded number of times before
// the deployment trigger. Replaces a fixed stabilization sleep with an
// explicit readiness check; running out of attempts is not fatal.
func (d *Deployer) waitUntilReady(ctx context.Context, teamID, projectName string) {
	for attempt := 0; attempt < d.readyAttempts; attempt++ {
		if _, err := d.client.GetProject(ctx, teamID, projectName); err == nil {
			return
		}
		select {
		case <-time.After(d.readyInterval):
		case <-ctx.Done():
			return
		}
	}
	d.logger.Warn("project readiness poll exhausted, triggering anyway",
		"project", projectName,
		"attempts", d.readyAttempts)
}
