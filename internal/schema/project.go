package schema

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MinSeedLength is the shortest accepted project seed.
const MinSeedLength = 8

// ProjectFile is project.json. Seed is fixed at creation and feeds
// instance id derivation.
type ProjectFile struct {
	SchemaVersion string `json:"schemaVersion"`
	ProjectID     string `json:"projectId"`
	ProjectName   string `json:"projectName"`
	ClientName    string `json:"clientName"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
	Seed          string `json:"seed"`
}

// ApplyDefaults is a no-op: every project field is required.
func (p *ProjectFile) ApplyDefaults() {}

// Validate validates the project document.
func (p *ProjectFile) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.SchemaVersion, validation.Required, validation.Match(versionRe)),
		validation.Field(&p.ProjectID, validation.Required),
		validation.Field(&p.ProjectName, validation.Required),
		validation.Field(&p.ClientName, validation.Required),
		validation.Field(&p.CreatedAt, validation.Required, validation.Date(time.RFC3339)),
		validation.Field(&p.UpdatedAt, validation.Required, validation.Date(time.RFC3339)),
		validation.Field(&p.Seed, validation.Required, validation.Length(MinSeedLength, 0)),
	)
}

// Timestamp formats t the way project documents store it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// SiteFile is site.json.
type SiteFile struct {
	Title      string    `json:"title"`
	Navigation []NavItem `json:"navigation"`
	SEO        SiteSEO   `json:"seo"`
}

// NavItem is one entry of the site navigation.
type NavItem struct {
	Label  string `json:"label"`
	PageID string `json:"pageId,omitempty"`
	Href   string `json:"href,omitempty"`
}

// Validate validates a navigation entry.
func (n NavItem) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Label, validation.Required),
		validation.Field(&n.Href, validation.When(n.PageID == "", validation.Required)),
	)
}

// SiteSEO holds site-wide SEO defaults.
type SiteSEO struct {
	TitleTemplate string `json:"titleTemplate,omitempty"`
	Description   string `json:"description,omitempty"`
}

// DefaultSiteTitle is used when site.json has no title.
const DefaultSiteTitle = "Untitled site"

// ApplyDefaults fills optional site fields.
func (s *SiteFile) ApplyDefaults() {
	if s.Title == "" {
		s.Title = DefaultSiteTitle
	}
	if s.Navigation == nil {
		s.Navigation = []NavItem{}
	}
}

// Validate validates the site document.
func (s *SiteFile) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Title, validation.Required),
		validation.Field(&s.Navigation),
	)
}

// ThemeFile is theme.json.
type ThemeFile struct {
	Tokens map[string]string `json:"tokens"`
}

// DefaultThemeTokens returns the token set of a freshly created project.
func DefaultThemeTokens() map[string]string {
	return map[string]string{
		"color.primary": "#1f6feb",
		"color.surface": "#ffffff",
		"color.text":    "#111827",
		"font.body":     "system-ui, sans-serif",
		"font.heading":  "system-ui, sans-serif",
		"radius.base":   "8px",
		"space.unit":    "4px",
	}
}

// ApplyDefaults fills the token map when absent.
func (t *ThemeFile) ApplyDefaults() {
	if t.Tokens == nil {
		t.Tokens = DefaultThemeTokens()
	}
}

// Validate validates the theme document.
func (t *ThemeFile) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Tokens, validation.Each(validation.Required)),
	)
}
