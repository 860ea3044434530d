package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/brightlane/siteforge/internal/agent"
	"github.com/brightlane/siteforge/internal/modeltext"
	"github.com/brightlane/siteforge/internal/site"
)

const freeformSystemPrompt = `You are an expert front-end developer.
Produce complete, production-quality code for a small business website.
Return only the requested artifact with no surrounding commentary.
All pages share styles.css and script.js via relative links.`

// Materializer expands a content plan into the deployable file set. Two
// interchangeable strategies exist: the freeform strategy here issues one
// generative call per artifact, and the templated strategy in template.go
// substitutes structured content into a fixed skeleton.
type Materializer struct {
	client       agent.Client
	logger       *slog.Logger
	pageParallel int
}

func NewMaterializer(client agent.Client, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		client:       client,
		logger:       logger.With("component", "materializer"),
		pageParallel: 3,
	}
}

// MaterializeFreeform generates every artifact from the model: the home
// page first, then the remaining pages (concurrently, order preserved in
// the output), then the shared stylesheet and script. Any call failure
// aborts the whole batch; no partial file set is ever returned.
func (m *Materializer) MaterializeFreeform(ctx context.Context, intake *site.IntakeRecord, plan *site.ContentPlan) ([]site.GeneratedFile, error) {
	planContext := planAsContext(plan)

	m.logger.Info("materializing site",
		"strategy", "freeform",
		"page_count", len(intake.Pages))

	routes := site.RoutesFor(intake.Pages)

	home, err := m.generatePage(ctx, intake, planContext, intake.Pages[0], routes[0], nil)
	if err != nil {
		return nil, err
	}

	type pageResult struct {
		index int
		file  site.GeneratedFile
	}

	rest := intake.Pages[1:]
	results := make([]site.GeneratedFile, len(rest))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.pageParallel)
	for i, spec := range rest {
		g.Go(func() error {
			file, err := m.generatePage(gctx, intake, planContext, spec, routes[i+1], navTitles(intake))
			if err != nil {
				return err
			}
			results[i] = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	styles, err := m.generateAsset(ctx, planContext, "styles.css",
		"Write the single shared stylesheet styles.css for the whole site. Respond with CSS only.")
	if err != nil {
		return nil, err
	}
	script, err := m.generateAsset(ctx, planContext, "script.js",
		"Write the single shared script script.js for the whole site (navigation toggle, smooth scrolling, form handling). Respond with JavaScript only.")
	if err != nil {
		return nil, err
	}

	files := make([]site.GeneratedFile, 0, len(intake.Pages)+4)
	files = append(files, home)
	files = append(files, results...)
	files = append(files, styles, script)
	files = append(files, readme(intake))
	files = append(files, metadataManifest(intake, nil))

	return files, nil
}

func (m *Materializer) generatePage(ctx context.Context, intake *site.IntakeRecord, planContext string, spec site.PageSpec, route string, nav []string) (site.GeneratedFile, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate the complete HTML document for the %q page of %s's website.\n", spec.Title, intake.CompanyName)
	fmt.Fprintf(&b, "Page purpose: %s\n", spec.Information)
	if len(nav) > 0 {
		fmt.Fprintf(&b, "The navigation must link to these pages in order: %s\n", strings.Join(nav, ", "))
	}
	fmt.Fprintf(&b, "Link the shared stylesheet as styles.css and the shared script as script.js using root-relative paths.\n")
	if intake.ContactForm && strings.EqualFold(spec.Title, "contact") {
		b.WriteString("Include a contact form.\n")
	}
	if intake.BookingForm {
		b.WriteString("Include a booking call to action.\n")
	}
	b.WriteString("\nDesign and content plan:\n")
	b.WriteString(planContext)

	raw, err := m.client.Complete(ctx, freeformSystemPrompt, b.String())
	if err != nil {
		return site.GeneratedFile{}, &site.GenerationError{Stage: "page " + route, Cause: err}
	}

	return site.GeneratedFile{
		Name:    site.FileNameFor(route),
		Content: modeltext.StripFences(raw),
	}, nil
}

func (m *Materializer) generateAsset(ctx context.Context, planContext, name, instruction string) (site.GeneratedFile, error) {
	prompt := instruction + "\n\nDesign and content plan:\n" + planContext
	raw, err := m.client.Complete(ctx, freeformSystemPrompt, prompt)
	if err != nil {
		return site.GeneratedFile{}, &site.GenerationError{Stage: name, Cause: err}
	}
	return site.GeneratedFile{Name: name, Content: modeltext.StripFences(raw)}, nil
}

// readme summarizes the intake deterministically; no model call.
func readme(intake *site.IntakeRecord) site.GeneratedFile {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", intake.CompanyName)
	fmt.Fprintf(&b, "Website for %s, a %s business in %s.\n\n", intake.CompanyName, intake.Industry, intake.City)
	b.WriteString("## Pages\n\n")
	routes := site.RoutesFor(intake.Pages)
	for i, page := range intake.Pages {
		fmt.Fprintf(&b, "- [%s](%s)\n", page.Title, routes[i])
	}
	b.WriteString("\n## Contact\n\n")
	fmt.Fprintf(&b, "%s, %s · %s · %s\n", intake.Address, intake.City, intake.PhoneNumber, intake.Email)
	b.WriteString("\nGenerated by siteforge.\n")
	return site.GeneratedFile{Name: "README.md", Content: b.String()}
}

// metadataManifest captures the full intake (and any sourced imagery) for
// later reference and audit. Stored in the repository as metadata.json.
func metadataManifest(intake *site.IntakeRecord, images []site.ImageRef) site.GeneratedFile {
	manifest := struct {
		FormData *site.IntakeRecord `json:"formData"`
		Images   []site.ImageRef    `json:"images,omitempty"`
		Version  int                `json:"version"`
	}{
		FormData: intake,
		Images:   images,
		Version:  1,
	}
	data, _ := json.MarshalIndent(manifest, "", "  ")
	return site.GeneratedFile{Name: "metadata.json", Content: string(data) + "\n"}
}

func planAsContext(plan *site.ContentPlan) string {
	if plan == nil {
		return "(no plan available)"
	}
	if plan.Degraded() {
		return plan.RawPlan
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return plan.DesignApproach
	}
	return string(data)
}

func navTitles(intake *site.IntakeRecord) []string {
	titles := make([]string, len(intake.Pages))
	for i, p := range intake.Pages {
		titles[i] = p.Title
	}
	return titles
}
