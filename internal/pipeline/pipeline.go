package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brightlane/siteforge/internal/githost"
	"github.com/brightlane/siteforge/internal/hosting"
	"github.com/brightlane/siteforge/internal/site"
)

// Strategy selects how the site is materialized.
type Strategy string

const (
	// StrategyFreeform generates every artifact with the model.
	StrategyFreeform Strategy = "freeform"
	// StrategyTemplated substitutes structured content into the fixed
	// skeleton; fully deterministic output.
	StrategyTemplated Strategy = "templated"
)

// Result is the terminal summary returned to the caller. Repository
// creation succeeding while deployment fails is a valid partial-success
// state, reported distinctly from total failure via NeedsManualImport.
type Result struct {
	RepoURL           string
	VercelURL         string
	ProjectURL        string
	AutoDeployed      bool
	NeedsManualImport bool
	Message           string
}

// Pipeline chains planner, materializer, publisher, and deployer. One
// sequential flow per request; all external calls honor ctx.
type Pipeline struct {
	planner      *Planner
	materializer *Materializer
	publisher    *githost.Publisher
	deployer     *hosting.Deployer
	logger       *slog.Logger
	now          func() time.Time
}

func New(planner *Planner, materializer *Materializer, publisher *githost.Publisher, deployer *hosting.Deployer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		planner:      planner,
		materializer: materializer,
		publisher:    publisher,
		deployer:     deployer,
		logger:       logger.With("component", "pipeline"),
		now:          time.Now,
	}
}

// Generate runs the full pipeline. Failures before the repository exists
// are fatal and returned as errors; once the repository is created, hosting
// failures downgrade to a partial-success Result.
func (p *Pipeline) Generate(ctx context.Context, intake *site.IntakeRecord, strategy Strategy) (*Result, error) {
	if err := intake.Validate(); err != nil {
		return nil, err
	}

	start := p.now()
	p.logger.Info("generation started",
		"company", intake.CompanyName,
		"strategy", string(strategy),
		"page_count", len(intake.Pages))

	var files []site.GeneratedFile
	switch strategy {
	case StrategyTemplated:
		content, err := p.planner.PlanSiteContent(ctx, intake)
		if err != nil {
			return nil, err
		}
		files, err = p.materializer.MaterializeTemplated(intake, content)
		if err != nil {
			return nil, err
		}
	default:
		plan, err := p.planner.Plan(ctx, intake)
		if err != nil {
			return nil, err
		}
		files, err = p.materializer.MaterializeFreeform(ctx, intake, plan)
		if err != nil {
			return nil, err
		}
	}

	repoName := p.repoName(intake.CompanyName)
	description := fmt.Sprintf("Website for %s (%s, %s), generated by siteforge", intake.CompanyName, intake.Industry, intake.City)

	identity, err := p.publisher.PublishInitial(ctx, repoName, description, false, files)
	if err != nil {
		return nil, err
	}

	deployment := p.deployer.Deploy(ctx, identity, repoName)

	result := &Result{
		RepoURL:      identity.RepoURL,
		VercelURL:    deployment.URL,
		ProjectURL:   deployment.ProjectURL,
		AutoDeployed: deployment.Deployed,
	}

	if deployment.Deployed {
		result.Message = fmt.Sprintf("Website generated and deployed in %s", p.now().Sub(start).Round(time.Second))
	} else {
		result.NeedsManualImport = true
		result.Message = "Repository created; deployment pending, import the repository manually"
		if deployment.Err != nil {
			p.logger.Warn("deployment downgraded to partial success",
				"repo", identity.RepoFullName,
				"error", deployment.Err)
		}
	}

	p.logger.Info("generation finished",
		"repo", identity.RepoFullName,
		"auto_deployed", result.AutoDeployed,
		"duration_ms", p.now().Sub(start).Milliseconds())

	return result, nil
}

// repoName is the slugified company name plus a numeric suffix. The suffix
// is the accepted mitigation for name conflicts: a retry at a later instant
// produces a different name.
func (p *Pipeline) repoName(companyName string) string {
	return fmt.Sprintf("%s-%d", site.Slugify(companyName, 60), p.now().Unix())
}
