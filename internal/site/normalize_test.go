package site

import "testing"

func sampleIntake() *IntakeRecord {
	return &IntakeRecord{
		CompanyName: "Acme Corp",
		Industry:    "Consulting",
		CompanyType: "Professional Services",
		Address:     "1 Main St",
		City:        "Springfield",
		PhoneNumber: "555-0100",
		Email:       "a@acme.test",
		Colors:      "navy and gold",
		BrandThemes: "trust, clarity",
		Pages: []PageSpec{
			{Title: "Home", Information: "landing page"},
			{Title: "Services", Information: "list of services"},
			{Title: "Contact", Information: "how to reach us"},
		},
	}
}

func TestNormalizeSiteContentCompleteness(t *testing.T) {
	intake := sampleIntake()

	// Model returned only one of three requested pages, with navigation
	// links that must not be trusted.
	sc := &SiteContent{
		Navbar: Navbar{Links: []Link{{Label: "Bogus", URL: "/bogus"}}},
		Pages: []Page{
			{Route: "/services", Title: "Services", Sections: []Section{{Type: "features"}}},
		},
		Footer: Footer{Links: []Link{{Label: "Wrong", URL: "/wrong"}}},
	}

	NormalizeSiteContent(intake, sc)

	wantRoutes := []string{"/", "/services", "/contact"}
	if len(sc.Pages) != len(wantRoutes) {
		t.Fatalf("got %d pages, want %d", len(sc.Pages), len(wantRoutes))
	}
	for i, want := range wantRoutes {
		if sc.Pages[i].Route != want {
			t.Errorf("page %d route = %q, want %q", i, sc.Pages[i].Route, want)
		}
	}

	// The model-provided services page survives untouched.
	if sc.Pages[1].Sections[0].Type != "features" {
		t.Errorf("model-provided page was replaced: %+v", sc.Pages[1])
	}

	// Synthesized pages carry the hero+about fallback.
	for _, i := range []int{0, 2} {
		p := sc.Pages[i]
		if len(p.Sections) != 2 || p.Sections[0].Type != "hero" || p.Sections[1].Type != "about" {
			t.Errorf("fallback page %q sections = %+v", p.Route, p.Sections)
		}
	}

	// Navigation rebuilt from the intake list, in input order.
	if len(sc.Navbar.Links) != 3 || len(sc.Footer.Links) != 3 {
		t.Fatalf("nav links = %d, footer links = %d, want 3 each", len(sc.Navbar.Links), len(sc.Footer.Links))
	}
	for i, want := range []Link{
		{Label: "Home", URL: "/"},
		{Label: "Services", URL: "/services"},
		{Label: "Contact", URL: "/contact"},
	} {
		if sc.Navbar.Links[i] != want {
			t.Errorf("navbar link %d = %+v, want %+v", i, sc.Navbar.Links[i], want)
		}
		if sc.Footer.Links[i] != want {
			t.Errorf("footer link %d = %+v, want %+v", i, sc.Footer.Links[i], want)
		}
	}
}

func TestNormalizeKeepsExtraModelPages(t *testing.T) {
	intake := sampleIntake()
	sc := &SiteContent{
		Pages: []Page{
			{Route: "/", Title: "Home"},
			{Route: "/services", Title: "Services"},
			{Route: "/contact", Title: "Contact"},
			{Route: "/blog", Title: "Blog"},
		},
	}

	NormalizeSiteContent(intake, sc)

	if len(sc.Pages) != 4 {
		t.Fatalf("got %d pages, want 4", len(sc.Pages))
	}
	if sc.Pages[3].Route != "/blog" {
		t.Errorf("extra page route = %q, want /blog", sc.Pages[3].Route)
	}
	// But navigation only covers the authoritative intake pages.
	if len(sc.Navbar.Links) != 3 {
		t.Errorf("navbar links = %d, want 3", len(sc.Navbar.Links))
	}
}

// A non-first page titled "home" must not steal the root route; every page
// keeps a distinct route and therefore a distinct output file.
func TestNormalizeDistinctRoutesForHomeNotFirst(t *testing.T) {
	intake := sampleIntake()
	intake.Pages = []PageSpec{
		{Title: "About", Information: "who we are"},
		{Title: "Home", Information: "landing page"},
	}
	sc := &SiteContent{}
	NormalizeSiteContent(intake, sc)

	if len(sc.Pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(sc.Pages))
	}
	if sc.Pages[0].Route != "/" || sc.Pages[1].Route != "/home" {
		t.Errorf("routes = [%q %q], want [/ /home]", sc.Pages[0].Route, sc.Pages[1].Route)
	}
	if FileNameFor(sc.Pages[0].Route) == FileNameFor(sc.Pages[1].Route) {
		t.Error("two pages share one output file")
	}
}

func TestNormalizeFillsDefaultsFromIntake(t *testing.T) {
	intake := sampleIntake()
	sc := &SiteContent{}
	NormalizeSiteContent(intake, sc)

	if sc.Meta.Title != "Acme Corp" {
		t.Errorf("Meta.Title = %q", sc.Meta.Title)
	}
	if sc.Navbar.LogoText != "Acme Corp" {
		t.Errorf("Navbar.LogoText = %q", sc.Navbar.LogoText)
	}
	if sc.Footer.Contact == "" {
		t.Error("Footer.Contact not filled")
	}
}

func TestIntakeValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*IntakeRecord)
		wantErr bool
	}{
		{"valid", func(r *IntakeRecord) {}, false},
		{"missing company name", func(r *IntakeRecord) { r.CompanyName = "" }, true},
		{"bad email", func(r *IntakeRecord) { r.Email = "not-an-email" }, true},
		{"empty page list", func(r *IntakeRecord) { r.Pages = nil }, true},
		{"page missing title", func(r *IntakeRecord) { r.Pages[0].Title = "" }, true},
		{"page missing information", func(r *IntakeRecord) { r.Pages[1].Information = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intake := sampleIntake()
			tt.mutate(intake)
			err := intake.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var ve *ValidationError
				if !asValidation(err, &ve) {
					t.Errorf("error is %T, want *ValidationError", err)
				}
			}
		})
	}
}

func asValidation(err error, target **ValidationError) bool {
	ve, ok := err.(*ValidationError)
	if ok {
		*target = ve
	}
	return ok
}
