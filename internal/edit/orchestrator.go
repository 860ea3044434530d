// Package edit applies a natural-language change request to an already
// published site: classify which files must change, regenerate each one,
// assemble a single atomic commit, and re-trigger deployment, streaming
// progress to the caller throughout.
package edit

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/brightlane/siteforge/internal/agent"
	"github.com/brightlane/siteforge/internal/githost"
	"github.com/brightlane/siteforge/internal/hosting"
	"github.com/brightlane/siteforge/internal/modeltext"
	"github.com/brightlane/siteforge/internal/site"
)

// Emitter receives progress events over the long-lived response. After each
// state transition the orchestrator emits {message, percentage} with
// percentages monotonically non-decreasing; exactly one terminal call ends
// the stream. Implementations must swallow write errors once the peer has
// disconnected.
type Emitter interface {
	Progress(message string, percentage int)
	Succeed(message, commitSHA string)
	Fail(code, message string)
}

const analyzeSystemPrompt = `You are a senior front-end developer maintaining a generated static website.
Given a change request and the repository's file list, decide which files must change.
Respond with a single JSON object:
{"filesToModify":[{"path","reason","changes"}],"filesToCreate":[{"path","reason","content"}]}
Only include files that genuinely need to change for this request.`

const regenerateSystemPrompt = `You are a senior front-end developer editing one file of a generated static website.
Apply the requested change to the file. Preserve the shared stylesheet and script references,
keep all unrelated functionality intact, and return the complete updated file content only.`

var repoURLPattern = regexp.MustCompile(`^(?:https?://)?[^/\s]+/([\w.-]+)/([\w.-]+?)(?:\.git)?/?$`)

// sourceExtensions filters the repository tree to files worth editing.
var sourceExtensions = map[string]bool{
	".html": true, ".css": true, ".js": true, ".json": true,
	".md": true, ".ts": true, ".jsx": true, ".tsx": true,
}

type Orchestrator struct {
	client    agent.Client
	gh        *githost.Client
	publisher *githost.Publisher
	deployer  *hosting.Deployer
	logger    *slog.Logger
	maxFiles  int
}

func NewOrchestrator(client agent.Client, gh *githost.Client, publisher *githost.Publisher, deployer *hosting.Deployer, maxFiles int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxFiles < 1 {
		maxFiles = 1
	}
	return &Orchestrator{
		client:    client,
		gh:        gh,
		publisher: publisher,
		deployer:  deployer,
		logger:    logger.With("component", "edit"),
		maxFiles:  maxFiles,
	}
}

// ParseRepoURL extracts owner and repo from any syntactically valid
// host/owner/repo URL.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	m := repoURLPattern.FindStringSubmatch(strings.TrimSpace(repoURL))
	if m == nil {
		return "", "", &site.ValidationError{Field: "repoUrl", Message: "expected host/owner/repo"}
	}
	return m[1], m[2], nil
}

// ApplyEdit runs the edit state machine. A malformed URL fails before any
// progress is emitted; every later failure is converted into a terminal
// stream event rather than returned, since the response is already
// committed to the stream by then.
func (o *Orchestrator) ApplyEdit(ctx context.Context, repoURL, editPrompt string, emitter Emitter) error {
	owner, repoName, err := ParseRepoURL(repoURL)
	if err != nil {
		return err
	}

	if !o.gh.Configured() {
		return &site.ConfigurationError{Credential: "GITHUB_TOKEN"}
	}
	if !o.client.Configured() {
		return &site.ConfigurationError{Credential: "GEMINI_API_KEY"}
	}

	o.logger.Info("edit started",
		"repo", owner+"/"+repoName,
		"prompt_length", len(editPrompt))

	emitter.Progress("Reading repository", 5)

	repo, err := o.gh.GetRepo(ctx, owner, repoName)
	if err != nil {
		emitter.Fail("REPO_UNAVAILABLE", err.Error())
		return nil
	}

	files, err := o.fetchTree(ctx, owner, repoName, repo.DefaultBranch)
	if err != nil {
		emitter.Fail("TREE_FETCH_FAILED", err.Error())
		return nil
	}
	if len(files) == 0 {
		emitter.Fail("EMPTY_REPOSITORY", "no editable files found in repository")
		return nil
	}

	emitter.Progress(fmt.Sprintf("Analyzing %d files", len(files)), 20)

	plan := o.analyze(ctx, editPrompt, files)
	total := len(plan.FilesToModify) + len(plan.FilesToCreate)
	if total == 0 {
		emitter.Fail("NOTHING_TO_CHANGE", "could not determine any files to change")
		return nil
	}

	emitter.Progress(fmt.Sprintf("Updating %d files", total), 30)

	byPath := make(map[string]string, len(files))
	for _, f := range files {
		byPath[f.Path] = f.Content
	}

	changes := make([]githost.ChangedFile, 0, total)
	done := 0
	for _, mod := range plan.FilesToModify {
		original, ok := byPath[mod.Path]
		if !ok {
			o.logger.Warn("planned file not in fetched tree, skipping", "path", mod.Path)
			continue
		}
		updated, err := o.regenerate(ctx, editPrompt, mod, original)
		if err != nil {
			emitter.Fail("REGENERATION_FAILED", fmt.Sprintf("regenerating %s: %v", mod.Path, err))
			return nil
		}
		changes = append(changes, githost.ChangedFile{Path: mod.Path, Content: updated})
		done++
		emitter.Progress(fmt.Sprintf("Updated %s", mod.Path), 30+(40*done)/total)
	}
	for _, create := range plan.FilesToCreate {
		changes = append(changes, githost.ChangedFile{Path: create.Path, Content: create.Content})
		done++
		emitter.Progress(fmt.Sprintf("Created %s", create.Path), 30+(40*done)/total)
	}

	if len(changes) == 0 {
		emitter.Fail("NOTHING_TO_CHANGE", "edit plan referenced no existing files")
		return nil
	}

	emitter.Progress("Committing changes", 75)

	message := commitMessage(editPrompt)
	commitSHA, err := o.publisher.PublishAtomic(ctx, owner, repoName, repo.DefaultBranch, message, changes)
	if err != nil {
		emitter.Fail("COMMIT_FAILED", err.Error())
		return nil
	}

	emitter.Progress("Triggering redeployment", 90)

	// Best effort: most configurations redeploy from the push webhook
	// anyway, so a trigger failure is logged and the edit still succeeds.
	identity := &site.RepoIdentity{
		RepoURL:         repo.HTMLURL,
		RepoFullName:    repo.FullName,
		RepoOwner:       owner,
		RepoID:          repo.ID,
		DefaultBranch:   repo.DefaultBranch,
		LatestCommitSHA: commitSHA,
	}
	deployment := o.deployer.Deploy(ctx, identity, repoName)
	if !deployment.Deployed {
		o.logger.Warn("redeploy trigger failed after edit",
			"repo", repo.FullName,
			"error", deployment.Err)
	}

	o.logger.Info("edit finished",
		"repo", repo.FullName,
		"commit", commitSHA,
		"files_changed", len(changes))

	emitter.Succeed(fmt.Sprintf("Applied changes to %d files", len(changes)), commitSHA)
	return nil
}

// fetchTree lists the default branch recursively, filters to source
// extensions, caps the candidate count, and fetches each file's content.
func (o *Orchestrator) fetchTree(ctx context.Context, owner, repo, branch string) ([]site.RepoFile, error) {
	head, err := o.gh.GetBranch(ctx, owner, repo, branch)
	if err != nil {
		return nil, err
	}

	tree, err := o.gh.GetTree(ctx, owner, repo, head.Commit.SHA, true)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range tree.Entries {
		if entry.Type != "blob" {
			continue
		}
		if !sourceExtensions[extension(entry.Path)] {
			continue
		}
		paths = append(paths, entry.Path)
		if len(paths) >= o.maxFiles {
			break
		}
	}

	files := make([]site.RepoFile, 0, len(paths))
	for _, path := range paths {
		content, err := o.gh.GetFileContent(ctx, owner, repo, path, branch)
		if err != nil {
			return nil, err
		}
		files = append(files, site.RepoFile{Path: path, Content: content})
	}
	return files, nil
}

// analyze asks the model which files must change. An unparseable plan falls
// back to applying the literal edit prompt to every component-like file (or
// every fetched file when none match) so the orchestrator always attempts
// something.
func (o *Orchestrator) analyze(ctx context.Context, editPrompt string, files []site.RepoFile) *site.EditPlan {
	var b strings.Builder
	fmt.Fprintf(&b, "Change request: %s\n\nRepository files:\n", editPrompt)
	for _, f := range files {
		fmt.Fprintf(&b, "- %s\n", f.Path)
	}

	raw, err := o.client.CompleteJSON(ctx, analyzeSystemPrompt, b.String())
	if err != nil {
		o.logger.Warn("analysis call failed, using fallback plan", "error", err)
		return fallbackPlan(editPrompt, files)
	}

	var plan site.EditPlan
	if !modeltext.DecodeJSON(raw, &plan) {
		o.logger.Warn("edit plan was not parseable JSON, using fallback plan",
			"response_length", len(raw))
		return fallbackPlan(editPrompt, files)
	}
	return &plan
}

func fallbackPlan(editPrompt string, files []site.RepoFile) *site.EditPlan {
	plan := &site.EditPlan{}
	for _, f := range files {
		if strings.Contains(f.Path, "components/") || strings.Contains(f.Path, "sections/") {
			plan.FilesToModify = append(plan.FilesToModify, site.FileModification{
				Path:    f.Path,
				Reason:  "fallback: plan unparseable",
				Changes: editPrompt,
			})
		}
	}
	if len(plan.FilesToModify) == 0 {
		for _, f := range files {
			plan.FilesToModify = append(plan.FilesToModify, site.FileModification{
				Path:    f.Path,
				Reason:  "fallback: plan unparseable",
				Changes: editPrompt,
			})
		}
	}
	return plan
}

// regenerate produces the full updated content of one file.
func (o *Orchestrator) regenerate(ctx context.Context, editPrompt string, mod site.FileModification, original string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall change request: %s\n", editPrompt)
	fmt.Fprintf(&b, "Requested change for this file: %s\n\n", mod.Changes)
	fmt.Fprintf(&b, "Current content of %s:\n\n%s", mod.Path, original)

	raw, err := o.client.Complete(ctx, regenerateSystemPrompt, b.String())
	if err != nil {
		return "", &site.GenerationError{Stage: "regenerate " + mod.Path, Cause: err}
	}
	return modeltext.StripFences(raw), nil
}

func commitMessage(editPrompt string) string {
	summary := strings.TrimSpace(editPrompt)
	if len(summary) > 72 {
		summary = summary[:69] + "..."
	}
	return "Update site: " + summary
}

func extension(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx == -1 {
		return ""
	}
	return path[idx:]
}
