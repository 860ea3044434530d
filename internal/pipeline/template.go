package pipeline

import (
	"fmt"
	"html"
	"strings"

	"github.com/brightlane/siteforge/internal/site"
)

// Templated strategy: expands a normalized SiteContent against a fixed
// skeleton by literal token substitution. Fully deterministic: identical
// input produces identical files, names and content both. All interpolated
// user-controlled text is HTML-escaped; section blocks with no content are
// removed whole rather than rendered empty.

const pageSkeleton = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{PAGE_TITLE}}</title>
  <meta name="description" content="{{META_DESCRIPTION}}">
  <meta name="keywords" content="{{META_KEYWORDS}}">
  <link rel="stylesheet" href="/styles.css">
</head>
<body>
  <header class="navbar">
    <a class="navbar-logo" href="/">{{LOGO_TEXT}}</a>
    <nav class="navbar-links">
{{NAV_ITEMS}}    </nav>
  </header>
  <main>
{{SECTIONS}}  </main>
  <footer class="footer">
    <div class="footer-about">
      <h3>{{FOOTER_COMPANY}}</h3>
      <p>{{FOOTER_DESCRIPTION}}</p>
      <p>{{FOOTER_CONTACT}}</p>
    </div>
    <nav class="footer-links">
{{FOOTER_ITEMS}}    </nav>
{{ATTRIBUTION_LINK}}  </footer>
  <script src="/script.js"></script>
</body>
</html>
`

// MaterializeTemplated renders one file per route plus the shared assets,
// the hosting config, and the metadata manifest. The attributions page is
// emitted only when imagery was sourced.
func (m *Materializer) MaterializeTemplated(intake *site.IntakeRecord, sc *site.SiteContent) ([]site.GeneratedFile, error) {
	if err := intake.Validate(); err != nil {
		return nil, err
	}
	site.NormalizeSiteContent(intake, sc)

	hasImages := len(sc.Images) > 0

	files := make([]site.GeneratedFile, 0, len(sc.Pages)+5)
	for _, page := range sc.Pages {
		files = append(files, site.GeneratedFile{
			Name:    site.FileNameFor(page.Route),
			Content: renderPage(sc, page, hasImages),
		})
	}

	files = append(files, site.GeneratedFile{Name: "styles.css", Content: templatedStylesheet})
	files = append(files, site.GeneratedFile{Name: "script.js", Content: templatedScript})
	files = append(files, hostingConfig())
	files = append(files, metadataManifest(intake, sc.Images))
	if hasImages {
		files = append(files, attributionsPage(sc))
	}

	return files, nil
}

func renderPage(sc *site.SiteContent, page site.Page, hasImages bool) string {
	var sections strings.Builder
	for _, section := range page.Sections {
		block := renderSection(section)
		if block != "" {
			sections.WriteString(block)
		}
	}

	attribution := ""
	if hasImages {
		attribution = "    <p class=\"footer-attribution\"><a href=\"/attributions/\">Image attributions</a></p>\n"
	}

	title := esc(page.Title)
	if page.Route == "/" {
		title = esc(sc.Meta.Title)
	} else {
		title = fmt.Sprintf("%s · %s", title, esc(sc.Meta.Title))
	}

	replacer := strings.NewReplacer(
		"{{PAGE_TITLE}}", title,
		"{{META_DESCRIPTION}}", esc(sc.Meta.Description),
		"{{META_KEYWORDS}}", esc(sc.Meta.Keywords),
		"{{LOGO_TEXT}}", esc(sc.Navbar.LogoText),
		"{{NAV_ITEMS}}", renderLinks(sc.Navbar.Links, "      "),
		"{{SECTIONS}}", sections.String(),
		"{{FOOTER_COMPANY}}", esc(sc.Footer.CompanyName),
		"{{FOOTER_DESCRIPTION}}", esc(sc.Footer.Description),
		"{{FOOTER_CONTACT}}", esc(sc.Footer.Contact),
		"{{FOOTER_ITEMS}}", renderLinks(sc.Footer.Links, "      "),
		"{{ATTRIBUTION_LINK}}", attribution,
	)
	return replacer.Replace(pageSkeleton)
}

func renderLinks(links []site.Link, indent string) string {
	var b strings.Builder
	for _, link := range links {
		fmt.Fprintf(&b, "%s<a href=\"%s\">%s</a>\n", indent, esc(link.URL), esc(link.Label))
	}
	return b.String()
}

// renderSection maps a section type to its markup. Unknown types and
// sections with no usable content return "" so the whole block disappears
// from the page.
func renderSection(section site.Section) string {
	content := section.Content
	switch section.Type {
	case "hero":
		title := stringField(content, "title")
		if title == "" {
			return ""
		}
		var b strings.Builder
		b.WriteString("    <section class=\"hero\">\n")
		fmt.Fprintf(&b, "      <h1>%s</h1>\n", esc(title))
		if subtitle := stringField(content, "subtitle"); subtitle != "" {
			fmt.Fprintf(&b, "      <p class=\"hero-subtitle\">%s</p>\n", esc(subtitle))
		}
		if cta := stringField(content, "ctaText"); cta != "" {
			link := stringField(content, "ctaLink")
			if link == "" {
				link = "/"
			}
			fmt.Fprintf(&b, "      <a class=\"hero-cta\" href=\"%s\">%s</a>\n", esc(link), esc(cta))
		}
		b.WriteString("    </section>\n")
		return b.String()

	case "about":
		description := stringField(content, "description")
		if description == "" {
			return ""
		}
		var b strings.Builder
		b.WriteString("    <section class=\"about\">\n")
		if title := stringField(content, "title"); title != "" {
			fmt.Fprintf(&b, "      <h2>%s</h2>\n", esc(title))
		}
		fmt.Fprintf(&b, "      <p>%s</p>\n", esc(description))
		b.WriteString("    </section>\n")
		return b.String()

	case "features", "services":
		items := listField(content, "items")
		if len(items) == 0 {
			return ""
		}
		var b strings.Builder
		fmt.Fprintf(&b, "    <section class=\"%s\">\n", section.Type)
		if title := stringField(content, "title"); title != "" {
			fmt.Fprintf(&b, "      <h2>%s</h2>\n", esc(title))
		}
		b.WriteString("      <ul>\n")
		for _, item := range items {
			fmt.Fprintf(&b, "        <li>%s</li>\n", esc(item))
		}
		b.WriteString("      </ul>\n    </section>\n")
		return b.String()

	case "contact":
		var b strings.Builder
		b.WriteString("    <section class=\"contact\">\n")
		if title := stringField(content, "title"); title != "" {
			fmt.Fprintf(&b, "      <h2>%s</h2>\n", esc(title))
		}
		b.WriteString("      <form class=\"contact-form\" method=\"post\" action=\"#\">\n")
		b.WriteString("        <input type=\"text\" name=\"name\" placeholder=\"Name\" required>\n")
		b.WriteString("        <input type=\"email\" name=\"email\" placeholder=\"Email\" required>\n")
		b.WriteString("        <textarea name=\"message\" placeholder=\"Message\" required></textarea>\n")
		b.WriteString("        <button type=\"submit\">Send</button>\n")
		b.WriteString("      </form>\n    </section>\n")
		return b.String()

	default:
		return ""
	}
}

func stringField(content map[string]any, key string) string {
	if content == nil {
		return ""
	}
	if v, ok := content[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func listField(content map[string]any, key string) []string {
	if content == nil {
		return nil
	}
	raw, ok := content[key].([]any)
	if !ok {
		return nil
	}
	items := make([]string, 0, len(raw))
	for _, entry := range raw {
		switch v := entry.(type) {
		case string:
			items = append(items, v)
		case map[string]any:
			if title, ok := v["title"].(string); ok {
				items = append(items, title)
			}
		}
	}
	return items
}

func esc(s string) string {
	return html.EscapeString(s)
}

// hostingConfig emits the static-hosting routing and security-headers
// config committed alongside the site.
func hostingConfig() site.GeneratedFile {
	const content = `{
  "cleanUrls": true,
  "trailingSlash": true,
  "headers": [
    {
      "source": "/(.*)",
      "headers": [
        { "key": "X-Content-Type-Options", "value": "nosniff" },
        { "key": "X-Frame-Options", "value": "DENY" },
        { "key": "Referrer-Policy", "value": "strict-origin-when-cross-origin" }
      ]
    }
  ]
}
`
	return site.GeneratedFile{Name: "vercel.json", Content: content}
}

func attributionsPage(sc *site.SiteContent) site.GeneratedFile {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n  <meta charset=\"UTF-8\">\n  <title>Image Attributions</title>\n  <link rel=\"stylesheet\" href=\"/styles.css\">\n</head>\n<body>\n  <main class=\"attributions\">\n    <h1>Image Attributions</h1>\n    <ul>\n")
	for _, img := range sc.Images {
		fmt.Fprintf(&b, "      <li><a href=\"%s\">%s</a> (%s)</li>\n", esc(img.URL), esc(img.Alt), esc(img.Attribution))
	}
	b.WriteString("    </ul>\n  </main>\n</body>\n</html>\n")
	return site.GeneratedFile{Name: "attributions/index.html", Content: b.String()}
}

// templatedStylesheet is shared by every templated site. Brand colors come
// through as CSS variables so a follow-up edit can restyle without touching
// the markup.
const templatedStylesheet = `:root {
  --primary: #1f2937;
  --accent: #2563eb;
}
* { box-sizing: border-box; margin: 0; }
body { font-family: system-ui, sans-serif; color: var(--primary); line-height: 1.6; }
.navbar { display: flex; justify-content: space-between; align-items: center; padding: 1rem 2rem; }
.navbar-logo { font-weight: 700; text-decoration: none; color: var(--primary); }
.navbar-links a { margin-left: 1.25rem; text-decoration: none; color: var(--primary); }
.hero { padding: 5rem 2rem; text-align: center; }
.hero-cta { display: inline-block; margin-top: 1.5rem; padding: 0.75rem 1.5rem; background: var(--accent); color: #fff; border-radius: 6px; text-decoration: none; }
.about, .features, .services, .contact { padding: 3rem 2rem; max-width: 60rem; margin: 0 auto; }
.contact-form { display: grid; gap: 0.75rem; max-width: 28rem; }
.contact-form input, .contact-form textarea { padding: 0.6rem; border: 1px solid #d1d5db; border-radius: 4px; }
.contact-form button { padding: 0.6rem; background: var(--accent); color: #fff; border: 0; border-radius: 4px; }
.footer { padding: 2rem; border-top: 1px solid #e5e7eb; display: flex; flex-wrap: wrap; gap: 2rem; justify-content: space-between; }
.footer-links a { display: block; text-decoration: none; color: var(--primary); }
@media (max-width: 640px) { .navbar { flex-direction: column; gap: 0.5rem; } }
`

const templatedScript = `document.addEventListener('DOMContentLoaded', function () {
  document.querySelectorAll('a[href^="#"]').forEach(function (anchor) {
    anchor.addEventListener('click', function (event) {
      var target = document.querySelector(anchor.getAttribute('href'));
      if (target) {
        event.preventDefault();
        target.scrollIntoView({ behavior: 'smooth' });
      }
    });
  });
  var form = document.querySelector('.contact-form');
  if (form) {
    form.addEventListener('submit', function (event) {
      event.preventDefault();
      form.reset();
      alert('Thank you! We will be in touch soon.');
    });
  }
});
`
