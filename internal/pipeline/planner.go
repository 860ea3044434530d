// Package pipeline implements the website generation pipeline: content
// planning, site materialization, repository publishing, and deployment
// triggering, in that order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brightlane/siteforge/internal/agent"
	"github.com/brightlane/siteforge/internal/modeltext"
	"github.com/brightlane/siteforge/internal/site"
)

const plannerSystemPrompt = `You are a professional web developer and content strategist.
Given a business profile, produce a design and content plan for their website.
Respond with a single JSON object with these keys:
designApproach (string), colorPalette (array of hex strings),
typography (object of role to font), pageFeatures (object of page title to feature notes),
navigation (array of page titles in order), responsiveness (string),
interactiveElements (array of strings).`

// Planner turns an intake record into a content plan via one generative
// call. Unparseable model output degrades to a raw-text plan instead of
// failing; collaborator failure aborts the pipeline.
type Planner struct {
	client agent.Client
	logger *slog.Logger
}

func NewPlanner(client agent.Client, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		client: client,
		logger: logger.With("component", "planner"),
	}
}

func (p *Planner) Plan(ctx context.Context, intake *site.IntakeRecord) (*site.ContentPlan, error) {
	if err := intake.Validate(); err != nil {
		return nil, err
	}
	if !p.client.Configured() {
		return nil, &site.ConfigurationError{Credential: "GEMINI_API_KEY"}
	}

	prompt := composePlanPrompt(intake)

	p.logger.Debug("requesting content plan",
		"company", intake.CompanyName,
		"page_count", len(intake.Pages),
		"prompt_length", len(prompt))

	raw, err := p.client.CompleteJSON(ctx, plannerSystemPrompt, prompt)
	if err != nil {
		return nil, &site.GenerationError{Stage: "content-plan", Cause: err}
	}

	var plan site.ContentPlan
	if !modeltext.DecodeJSON(raw, &plan) {
		// Degraded mode: keep the model's text verbatim so the freeform
		// materializer can still use it as context.
		p.logger.Warn("content plan was not parseable JSON, continuing degraded",
			"response_length", len(raw))
		return &site.ContentPlan{RawPlan: raw}, nil
	}

	p.logger.Info("content plan ready",
		"design_approach", plan.DesignApproach,
		"palette_size", len(plan.ColorPalette))

	return &plan, nil
}

func composePlanPrompt(intake *site.IntakeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Business profile:\n")
	fmt.Fprintf(&b, "- Company: %s\n", intake.CompanyName)
	fmt.Fprintf(&b, "- Industry: %s\n", intake.Industry)
	if intake.CompanyType != "" {
		fmt.Fprintf(&b, "- Company type: %s\n", intake.CompanyType)
	}
	fmt.Fprintf(&b, "- Address: %s, %s\n", intake.Address, intake.City)
	fmt.Fprintf(&b, "- Phone: %s\n", intake.PhoneNumber)
	fmt.Fprintf(&b, "- Email: %s\n", intake.Email)
	if intake.Colors != "" {
		fmt.Fprintf(&b, "- Preferred colors: %s\n", intake.Colors)
	}
	if intake.BrandThemes != "" {
		fmt.Fprintf(&b, "- Brand themes: %s\n", intake.BrandThemes)
	}
	if intake.ExtraInfo != "" {
		fmt.Fprintf(&b, "- Additional notes: %s\n", intake.ExtraInfo)
	}

	b.WriteString("\nRequested pages:\n")
	for i, page := range intake.Pages {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, page.Title, page.Information)
	}

	if intake.ContactForm {
		b.WriteString("\nThe site must include a contact form.\n")
	}
	if intake.BookingForm {
		b.WriteString("The site must include a booking form.\n")
	}

	return b.String()
}
