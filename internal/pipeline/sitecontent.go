package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/brightlane/siteforge/internal/modeltext"
	"github.com/brightlane/siteforge/internal/site"
)

const siteContentSystemPrompt = `You are a professional web developer and content strategist.
Produce the full structured content for a small business website.
Respond with a single JSON object shaped like:
{"meta":{"title","description","keywords"},
 "navbar":{"logoText","links":[{"label","url"}]},
 "hero":{"title","subtitle","ctaText","ctaLink"},
 "pages":[{"route","title","sections":[{"type","content":{...}}]}],
 "footer":{"companyName","description","contact","links":[{"label","url"}]}}
Section types: hero (title, subtitle, ctaText, ctaLink), about (title, description),
features (title, items), services (title, items), contact (title).
Routes: "/" for the home page, "/<slug>" for the rest.`

// PlanSiteContent asks the model for the richer structured plan the
// templated materializer consumes. Whatever comes back, parseable or not,
// is normalized against the intake afterwards, so completeness never
// depends on model behavior. An empty SiteContent (total parse failure)
// still yields a full fallback site.
func (p *Planner) PlanSiteContent(ctx context.Context, intake *site.IntakeRecord) (*site.SiteContent, error) {
	if err := intake.Validate(); err != nil {
		return nil, err
	}
	if !p.client.Configured() {
		return nil, &site.ConfigurationError{Credential: "GEMINI_API_KEY"}
	}

	prompt := composeSiteContentPrompt(intake)

	raw, err := p.client.CompleteJSON(ctx, siteContentSystemPrompt, prompt)
	if err != nil {
		return nil, &site.GenerationError{Stage: "site-content", Cause: err}
	}

	var sc site.SiteContent
	if !modeltext.DecodeJSON(raw, &sc) {
		p.logger.Warn("site content was not parseable JSON, synthesizing fallback site",
			"response_length", len(raw))
		sc = site.SiteContent{}
	}

	site.NormalizeSiteContent(intake, &sc)
	return &sc, nil
}

func composeSiteContentPrompt(intake *site.IntakeRecord) string {
	var b strings.Builder
	b.WriteString(composePlanPrompt(intake))
	b.WriteString("\nThe pages array must contain an entry for every requested page, using these routes:\n")
	routes := site.RoutesFor(intake.Pages)
	for i, page := range intake.Pages {
		fmt.Fprintf(&b, "- %s: %s\n", page.Title, routes[i])
	}
	return b.String()
}
