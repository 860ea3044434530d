package site

import "fmt"

// NormalizeSiteContent enforces the completeness invariant on a model-built
// SiteContent: every route implied by the intake's page list must exist, and
// navigation is rebuilt from the authoritative intake pages rather than
// trusted from the model. Pages the model invented beyond the intake list
// are kept after the required ones.
func NormalizeSiteContent(intake *IntakeRecord, sc *SiteContent) {
	if sc.Meta.Title == "" {
		sc.Meta.Title = intake.CompanyName
	}
	if sc.Meta.Description == "" {
		sc.Meta.Description = fmt.Sprintf("%s, %s in %s", intake.CompanyName, intake.Industry, intake.City)
	}
	if sc.Navbar.LogoText == "" {
		sc.Navbar.LogoText = intake.CompanyName
	}
	if sc.Hero.Title == "" {
		sc.Hero.Title = intake.CompanyName
	}
	if sc.Footer.CompanyName == "" {
		sc.Footer.CompanyName = intake.CompanyName
	}
	if sc.Footer.Contact == "" {
		sc.Footer.Contact = fmt.Sprintf("%s, %s · %s · %s", intake.Address, intake.City, intake.PhoneNumber, intake.Email)
	}

	byRoute := make(map[string]Page, len(sc.Pages))
	for _, p := range sc.Pages {
		byRoute[normalizeRoute(p.Route)] = p
	}

	ordered := make([]Page, 0, len(intake.Pages))
	seen := make(map[string]bool, len(intake.Pages))
	links := make([]Link, 0, len(intake.Pages))

	routes := RoutesFor(intake.Pages)
	for i, spec := range intake.Pages {
		route := routes[i]
		seen[route] = true
		links = append(links, Link{Label: spec.Title, URL: route})

		if p, ok := byRoute[route]; ok {
			p.Route = route
			if p.Title == "" {
				p.Title = spec.Title
			}
			ordered = append(ordered, p)
			continue
		}
		ordered = append(ordered, fallbackPage(intake, spec, route))
	}

	// Extra model-invented pages survive, after the required set.
	for _, p := range sc.Pages {
		route := normalizeRoute(p.Route)
		if !seen[route] {
			seen[route] = true
			p.Route = route
			ordered = append(ordered, p)
		}
	}

	sc.Pages = ordered
	sc.Navbar.Links = links
	sc.Footer.Links = append([]Link(nil), links...)
}

// fallbackPage synthesizes the minimal hero+about page for a route the
// model omitted.
func fallbackPage(intake *IntakeRecord, spec PageSpec, route string) Page {
	return Page{
		Route: route,
		Title: spec.Title,
		Sections: []Section{
			{
				Type: "hero",
				Content: map[string]any{
					"title":    spec.Title,
					"subtitle": intake.CompanyName,
				},
			},
			{
				Type: "about",
				Content: map[string]any{
					"title":       spec.Title,
					"description": spec.Information,
				},
			},
		},
	}
}

func normalizeRoute(route string) string {
	if route == "" || route == "/" {
		return "/"
	}
	if route[0] != '/' {
		return "/" + route
	}
	return route
}
