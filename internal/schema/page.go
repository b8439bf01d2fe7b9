package schema

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Block visibility values.
const (
	VisibilityVisible = "visible"
	VisibilityHidden  = "hidden"
)

// PageManifestFile is a file under pages/.
type PageManifestFile struct {
	PageID string       `json:"pageId"`
	Route  string       `json:"route"`
	Title  string       `json:"title"`
	SEO    PageSEO      `json:"seo"`
	Blocks []BlockEntry `json:"blocks"`
}

// PageSEO overrides the site SEO defaults for one page.
type PageSEO struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// BlockEntry places one block instance on a page. Props and StyleOverrides
// are plugin-shaped and kept as decoded JSON.
type BlockEntry struct {
	InstanceID     string            `json:"instanceId,omitempty"`
	BlockID        string            `json:"blockId"`
	Props          any               `json:"props"`
	ContentRefs    map[string]string `json:"contentRefs"`
	StyleOverrides any               `json:"styleOverrides"`
	Visibility     string            `json:"visibility"`
}

// Validate validates a block entry.
func (b BlockEntry) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.BlockID, validation.Required),
		validation.Field(&b.Visibility, validation.Required, validation.In(VisibilityVisible, VisibilityHidden)),
		validation.Field(&b.ContentRefs, validation.Each(validation.Required)),
	)
}

func (b *BlockEntry) applyDefaults() {
	if b.Props == nil {
		b.Props = map[string]any{}
	}
	if b.StyleOverrides == nil {
		b.StyleOverrides = map[string]any{}
	}
	if b.ContentRefs == nil {
		b.ContentRefs = map[string]string{}
	}
	if b.Visibility == "" {
		b.Visibility = VisibilityVisible
	}
}

// ApplyDefaults fills optional page and block fields.
func (p *PageManifestFile) ApplyDefaults() {
	if p.Blocks == nil {
		p.Blocks = []BlockEntry{}
	}
	for i := range p.Blocks {
		p.Blocks[i].applyDefaults()
	}
}

// Validate validates the page document.
func (p *PageManifestFile) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.PageID, validation.Required),
		validation.Field(&p.Route, validation.Required, validation.By(routeRule)),
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Blocks),
	)
}

func routeRule(value any) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, "/") {
		return validation.NewError("validation_route_absolute", "must start with /")
	}
	return nil
}

// ContentRecordFile is a file under content/.
type ContentRecordFile struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// ApplyDefaults fills the data payload when absent.
func (c *ContentRecordFile) ApplyDefaults() {
	if c.Data == nil {
		c.Data = map[string]any{}
	}
}

// Validate validates the content record.
func (c *ContentRecordFile) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.Type, validation.Required),
	)
}

// NewHomePage returns the page every new project starts with.
func NewHomePage() PageManifestFile {
	p := PageManifestFile{
		PageID: "home",
		Route:  "/",
		Title:  "Home",
	}
	p.ApplyDefaults()
	return p
}
