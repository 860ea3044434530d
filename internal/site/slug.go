package site

import (
	"fmt"
	"strings"
)

// Slugify derives a lowercase, hyphenated, length-bounded identifier from a
// human-readable name, suitable for repository and hosting project names.
// Runs of non-alphanumeric characters collapse to a single hyphen.
func Slugify(name string, maxLen int) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if maxLen > 0 && len(slug) > maxLen {
		slug = strings.Trim(slug[:maxLen], "-")
	}
	if slug == "" {
		slug = "site"
	}
	return slug
}

// RouteFor maps a page title to its site route. The first page and any page
// titled "home" map to the root route.
func RouteFor(title string, index int) string {
	if index == 0 || strings.EqualFold(strings.TrimSpace(title), "home") {
		return "/"
	}
	return "/" + Slugify(title, 0)
}

// RoutesFor assigns one route per requested page, in input order, with no
// two pages sharing a route. A non-first page titled "home" would collide
// with the root route; collisions fall back to the title slug, then to a
// numeric suffix, so every page keeps its own output file.
func RoutesFor(pages []PageSpec) []string {
	routes := make([]string, len(pages))
	seen := make(map[string]bool, len(pages))
	for i, p := range pages {
		route := RouteFor(p.Title, i)
		if seen[route] {
			route = "/" + Slugify(p.Title, 0)
		}
		for n := 2; seen[route]; n++ {
			route = fmt.Sprintf("/%s-%d", Slugify(p.Title, 0), n)
		}
		seen[route] = true
		routes[i] = route
	}
	return routes
}

// FileNameFor maps a route to its output file path: "/" becomes index.html,
// "/services" becomes services/index.html.
func FileNameFor(route string) string {
	trimmed := strings.Trim(route, "/")
	if trimmed == "" {
		return "index.html"
	}
	return trimmed + "/index.html"
}
