package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/brightlane/siteforge/internal/agent"
	"github.com/brightlane/siteforge/internal/site"
)

func testIntake() *site.IntakeRecord {
	return &site.IntakeRecord{
		CompanyName: "Acme Corp",
		Industry:    "Consulting",
		CompanyType: "Professional Services",
		Address:     "1 Main St",
		City:        "Springfield",
		PhoneNumber: "555-0100",
		Email:       "a@acme.test",
		Colors:      "navy and gold",
		BrandThemes: "trust, clarity",
		Pages: []site.PageSpec{
			{Title: "Home", Information: "landing page"},
			{Title: "Services", Information: "list of services"},
		},
	}
}

func TestPlannerParsesPlan(t *testing.T) {
	mock := agent.NewMockClient().RespondDefault(`{
		"designApproach": "minimal and professional",
		"colorPalette": ["#001f3f", "#ffd700"],
		"navigation": ["Home", "Services"]
	}`)

	planner := NewPlanner(mock, nil)
	plan, err := planner.Plan(context.Background(), testIntake())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Degraded() {
		t.Fatal("plan unexpectedly degraded")
	}
	if plan.DesignApproach != "minimal and professional" {
		t.Errorf("DesignApproach = %q", plan.DesignApproach)
	}
	if len(plan.ColorPalette) != 2 {
		t.Errorf("ColorPalette = %v", plan.ColorPalette)
	}
}

// A non-JSON response always yields the raw text verbatim, and never an
// error.
func TestPlannerFallbackIdempotence(t *testing.T) {
	inputs := []string{
		"I think the site should feel warm and welcoming, with big photos.",
		"```\nnot json either\n```",
		"",
	}
	for _, raw := range inputs {
		mock := agent.NewMockClient().RespondDefault(raw)
		planner := NewPlanner(mock, nil)

		plan, err := planner.Plan(context.Background(), testIntake())
		if err != nil {
			t.Fatalf("Plan() error = %v for input %q", err, raw)
		}
		if !plan.Degraded() && raw != "" {
			t.Errorf("plan not degraded for input %q", raw)
		}
		if plan.RawPlan != raw {
			t.Errorf("RawPlan = %q, want verbatim %q", plan.RawPlan, raw)
		}
	}
}

func TestPlannerCollaboratorFailureAborts(t *testing.T) {
	mock := agent.NewMockClient().Fail(errors.New("quota exceeded"))
	planner := NewPlanner(mock, nil)

	_, err := planner.Plan(context.Background(), testIntake())
	var genErr *site.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %v, want *site.GenerationError", err)
	}
}

func TestPlannerRejectsInvalidIntake(t *testing.T) {
	intake := testIntake()
	intake.Pages = nil

	planner := NewPlanner(agent.NewMockClient(), nil)
	_, err := planner.Plan(context.Background(), intake)

	var ve *site.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *site.ValidationError", err)
	}
	if len(planner.client.(*agent.MockClient).Calls()) != 0 {
		t.Error("collaborator was called despite invalid intake")
	}
}

// Without a model credential both planning entry points stop before any
// call leaves the process, and the error names the missing key.
func TestPlannerModelNotConfigured(t *testing.T) {
	planner := NewPlanner(agent.NewHTTPClient("", "http://unused.invalid", "m"), nil)

	_, err := planner.Plan(context.Background(), testIntake())
	var configErr *site.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("Plan() error = %v, want *site.ConfigurationError", err)
	}
	if configErr.Credential != "GEMINI_API_KEY" {
		t.Errorf("Credential = %q", configErr.Credential)
	}

	_, err = planner.PlanSiteContent(context.Background(), testIntake())
	if !errors.As(err, &configErr) {
		t.Fatalf("PlanSiteContent() error = %v, want *site.ConfigurationError", err)
	}
}

func TestPlanSiteContentNormalizesModelOutput(t *testing.T) {
	// Model omits the services page and returns bogus navigation.
	mock := agent.NewMockClient().RespondDefault(`{
		"meta": {"title": "Acme Corp", "description": "Consulting in Springfield"},
		"navbar": {"logoText": "Acme", "links": [{"label": "Nope", "url": "/nope"}]},
		"pages": [{"route": "/", "title": "Home", "sections": [
			{"type": "hero", "content": {"title": "Welcome to Acme"}}
		]}]
	}`)

	planner := NewPlanner(mock, nil)
	sc, err := planner.PlanSiteContent(context.Background(), testIntake())
	if err != nil {
		t.Fatalf("PlanSiteContent() error = %v", err)
	}

	if len(sc.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(sc.Pages))
	}
	if sc.Pages[1].Route != "/services" {
		t.Errorf("page[1].Route = %q, want /services", sc.Pages[1].Route)
	}
	if len(sc.Navbar.Links) != 2 || sc.Navbar.Links[0].URL != "/" {
		t.Errorf("navbar links not rebuilt: %+v", sc.Navbar.Links)
	}
}

func TestPlanSiteContentUnparseableStillCompletes(t *testing.T) {
	mock := agent.NewMockClient().RespondDefault("sorry, no JSON today")
	planner := NewPlanner(mock, nil)

	sc, err := planner.PlanSiteContent(context.Background(), testIntake())
	if err != nil {
		t.Fatalf("PlanSiteContent() error = %v", err)
	}
	if len(sc.Pages) != 2 {
		t.Fatalf("pages = %d, want full fallback site", len(sc.Pages))
	}
}
