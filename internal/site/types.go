// Package site defines the domain types shared by every pipeline stage:
// the caller-supplied intake record, the intermediate content plans, the
// materialized file set, and the identities produced by publishing and
// deployment.
package site

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// PageSpec is one requested page from the intake form.
type PageSpec struct {
	Title       string `json:"title" validate:"required"`
	Information string `json:"information" validate:"required"`
}

// IntakeRecord is the structured business-intake form submitted once per
// generation request. Read-only after construction; never persisted.
type IntakeRecord struct {
	CompanyName string `json:"companyName" validate:"required"`
	Industry    string `json:"industry" validate:"required"`
	CompanyType string `json:"companyType"`
	Address     string `json:"address" validate:"required"`
	City        string `json:"city" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Email       string `json:"email" validate:"required,email"`

	Colors      string `json:"colors"`
	BrandThemes string `json:"brandThemes"`
	ExtraInfo   string `json:"extraInfo"`

	Pages []PageSpec `json:"pages" validate:"required,min=1,dive"`

	ContactForm bool `json:"contactForm"`
	BookingForm bool `json:"bookingForm"`
}

var intakeValidator = validator.New()

// Validate checks the intake invariants: required sitewide fields, a
// non-empty page list, and title+information on every page. Returns a
// *ValidationError naming the first offending field.
func (r *IntakeRecord) Validate() error {
	if err := intakeValidator.Struct(r); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			first := errs[0]
			return &ValidationError{
				Field:   first.Field(),
				Message: fmt.Sprintf("failed %q constraint", first.Tag()),
			}
		}
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

// ContentPlan is the design/content brief produced by the planner. When the
// model's output is not parseable JSON the plan degenerates to RawPlan only;
// downstream consumers tolerate either shape.
type ContentPlan struct {
	DesignApproach      string            `json:"designApproach,omitempty"`
	ColorPalette        []string          `json:"colorPalette,omitempty"`
	Typography          map[string]string `json:"typography,omitempty"`
	PageFeatures        map[string]string `json:"pageFeatures,omitempty"`
	Navigation          []string          `json:"navigation,omitempty"`
	Responsiveness      string            `json:"responsiveness,omitempty"`
	InteractiveElements []string          `json:"interactiveElements,omitempty"`

	// RawPlan carries the model's verbatim text when it was not parseable
	// JSON. This is a permitted degraded state, not an error.
	RawPlan string `json:"rawPlan,omitempty"`
}

// Degraded reports whether the plan is the unparsed raw-text form.
func (p *ContentPlan) Degraded() bool {
	return p.RawPlan != ""
}

// SiteContent is the richer structured plan used by the templated
// materializer path.
type SiteContent struct {
	Meta   Meta      `json:"meta"`
	Navbar Navbar    `json:"navbar"`
	Hero   Hero      `json:"hero"`
	Pages  []Page    `json:"pages"`
	Footer Footer    `json:"footer"`
	Images []ImageRef `json:"images,omitempty"`
}

type Meta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
}

type Navbar struct {
	LogoText string `json:"logoText"`
	Links    []Link `json:"links"`
}

type Hero struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	CTAText  string `json:"ctaText"`
	CTALink  string `json:"ctaLink"`
}

type Page struct {
	Route    string    `json:"route"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Section content is opaque to everything except the template renderer.
type Section struct {
	Type    string         `json:"type"`
	Content map[string]any `json:"content"`
}

type Footer struct {
	CompanyName string `json:"companyName"`
	Description string `json:"description"`
	Contact     string `json:"contact"`
	Links       []Link `json:"links"`
}

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ImageRef records sourced imagery and its required attribution.
type ImageRef struct {
	URL         string `json:"url"`
	Alt         string `json:"alt"`
	Attribution string `json:"attribution"`
}

// GeneratedFile is one entry of the deployable artifact tree. Paths are
// relative and may contain subdirectories (services/index.html). The full
// batch is immutable once produced and is committed whole or not at all.
type GeneratedFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// RepoIdentity is everything later stages need from the publisher.
type RepoIdentity struct {
	RepoURL         string `json:"repoUrl"`
	RepoFullName    string `json:"repoFullName"`
	RepoOwner       string `json:"repoOwner"`
	RepoID          int64  `json:"repoId"`
	// LatestCommitSHA holds the default branch's head commit, or the
	// literal branch name "main" when the head could not be resolved.
	// Consumers requiring a real SHA must treat the fallback as "unknown,
	// use branch pointer instead".
	LatestCommitSHA string `json:"latestCommitSha"`
	DefaultBranch   string `json:"defaultBranch"`
}

// SHAKnown reports whether LatestCommitSHA is a real commit SHA rather than
// the branch-name placeholder.
func (r *RepoIdentity) SHAKnown() bool {
	return r.LatestCommitSHA != "" && r.LatestCommitSHA != r.DefaultBranch && r.LatestCommitSHA != "main"
}

// DeploymentResult may be partial: deployment failing after the repository
// exists is a valid terminal state, reported distinctly from total failure.
type DeploymentResult struct {
	URL        string `json:"url,omitempty"`
	ProjectURL string `json:"projectUrl,omitempty"`
	Deployed   bool   `json:"deployed"`
	// Err carries context when the deployment was downgraded to partial
	// success. Never fatal to the overall operation.
	Err error `json:"-"`
}

// EditPlan is what the edit orchestrator derives from the model for a
// natural-language change request.
type EditPlan struct {
	FilesToModify []FileModification `json:"filesToModify"`
	FilesToCreate []FileCreation     `json:"filesToCreate"`
}

type FileModification struct {
	Path    string `json:"path"`
	Reason  string `json:"reason"`
	Changes string `json:"changes"`
}

type FileCreation struct {
	Path    string `json:"path"`
	Reason  string `json:"reason"`
	Content string `json:"content"`
}

// RepoFile is a fetched repository file considered by the edit orchestrator.
type RepoFile struct {
	Path    string
	Content string
}
