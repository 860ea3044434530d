package githost

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/brightlane/siteforge/internal/site"
)

// Publisher pushes generated file sets into repositories. Two named
// operations exist deliberately: PublishInitial populates a fresh repository
// with one commit per file via the contents API, and PublishAtomic batches
// an edit into a single commit via the git data API. Initial population
// trades atomicity for simplicity; edits are smaller and benefit from a
// single commit.
type Publisher struct {
	client             *Client
	logger             *slog.Logger
	maxConcurrentBlobs int
}

func NewPublisher(client *Client, maxConcurrentBlobs int, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrentBlobs < 1 {
		maxConcurrentBlobs = 1
	}
	return &Publisher{
		client:             client,
		logger:             logger.With("component", "publisher"),
		maxConcurrentBlobs: maxConcurrentBlobs,
	}
}

// PublishInitial creates the repository and uploads every file in list
// order. The credential is checked before any network call; a name conflict
// surfaces before any upload has been attempted.
func (p *Publisher) PublishInitial(ctx context.Context, name, description string, private bool, files []site.GeneratedFile) (*site.RepoIdentity, error) {
	if !p.client.Configured() {
		return nil, &site.ConfigurationError{Credential: "GITHUB_TOKEN"}
	}

	user, err := p.client.GetAuthenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	repo, err := p.client.CreateRepo(ctx, name, description, private)
	if err != nil {
		return nil, err
	}

	p.logger.Info("repository created",
		"repo", repo.FullName,
		"file_count", len(files))

	for _, file := range files {
		message := fmt.Sprintf("Add %s", file.Name)
		if err := p.client.PutContents(ctx, user.Login, repo.Name, file.Name, message, file.Content, ""); err != nil {
			return nil, err
		}
	}

	identity := &site.RepoIdentity{
		RepoURL:       repo.HTMLURL,
		RepoFullName:  repo.FullName,
		RepoOwner:     user.Login,
		RepoID:        repo.ID,
		DefaultBranch: repo.DefaultBranch,
	}

	// Best effort: seed the head SHA for the deployment trigger. When the
	// branch cannot be read yet the literal branch name stands in, and
	// consumers fall back to the branch pointer.
	branch, err := p.client.GetBranch(ctx, user.Login, repo.Name, repo.DefaultBranch)
	if err != nil {
		p.logger.Warn("could not resolve head commit, using branch name placeholder",
			"repo", repo.FullName,
			"error", err)
		identity.LatestCommitSHA = repo.DefaultBranch
		return identity, nil
	}
	identity.LatestCommitSHA = branch.Commit.SHA

	return identity, nil
}

// ChangedFile is one entry of an atomic commit.
type ChangedFile struct {
	Path    string
	Content string
}

// PublishAtomic assembles one commit for all changed files: concurrent blob
// creation, then a tree rooted at the prior head's tree, one commit, and a
// ref update. Either the branch moves to a commit containing every change
// or it does not move at all.
func (p *Publisher) PublishAtomic(ctx context.Context, owner, repo, branch, message string, changes []ChangedFile) (string, error) {
	if !p.client.Configured() {
		return "", &site.ConfigurationError{Credential: "GITHUB_TOKEN"}
	}
	if len(changes) == 0 {
		return "", &site.PublishError{Op: "atomic commit", Cause: fmt.Errorf("no changes to commit")}
	}

	head, err := p.client.GetBranch(ctx, owner, repo, branch)
	if err != nil {
		return "", err
	}
	parentSHA := head.Commit.SHA
	baseTree := head.Commit.Commit.Tree.SHA

	// Blob creation is independent per file, so uploads run concurrently;
	// only tree assembly depends on all of them.
	var mu sync.Mutex
	blobSHAs := make(map[string]string, len(changes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrentBlobs)
	for _, change := range changes {
		g.Go(func() error {
			sha, err := p.client.CreateBlob(gctx, owner, repo, change.Content)
			if err != nil {
				return err
			}
			mu.Lock()
			blobSHAs[change.Path] = sha
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	paths := make([]string, 0, len(blobSHAs))
	for path := range blobSHAs {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	entries := make([]TreeEntry, 0, len(paths))
	for _, path := range paths {
		entries = append(entries, TreeEntry{
			Path: path,
			Mode: "100644",
			Type: "blob",
			SHA:  blobSHAs[path],
		})
	}

	treeSHA, err := p.client.CreateTree(ctx, owner, repo, baseTree, entries)
	if err != nil {
		return "", err
	}

	commitSHA, err := p.client.CreateCommit(ctx, owner, repo, message, treeSHA, []string{parentSHA})
	if err != nil {
		return "", err
	}

	if err := p.client.UpdateRef(ctx, owner, repo, branch, commitSHA); err != nil {
		return "", err
	}

	p.logger.Info("atomic commit published",
		"repo", owner+"/"+repo,
		"branch", branch,
		"commit", commitSHA,
		"file_count", len(changes))

	return commitSHA, nil
}
