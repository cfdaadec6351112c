// Package registry loads the declarative collection definitions that drive
// the generic content engine. The registry file is the single source of
// truth for collection names, storage directories, front-matter schemas, and
// AI classification hints; adding a collection is a config edit, not a code
// change.
package registry

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldConfig describes one extra front-matter field of a collection.
// Default, when set, is written verbatim into items created from email;
// scalar or list values both pass through to the front matter.
type FieldConfig struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
	Prompt   string `yaml:"prompt"`
	Default  any    `yaml:"default"`
}

// CollectionConfig is the static definition of one collection.
type CollectionConfig struct {
	Name string `yaml:"-"`

	Label   string `yaml:"label"`
	Tagline string `yaml:"tagline"`

	DirName    string `yaml:"dir"`
	Layout     string `yaml:"layout"`
	Permalink  string `yaml:"permalink"`
	DatePrefix bool   `yaml:"date_prefix"`

	EmailSuffix string `yaml:"email_suffix"`
	TitlePrompt string `yaml:"title_prompt"`

	Fields []FieldConfig `yaml:"fields"`

	NavLabel string `yaml:"nav_label"`
	NavURL   string `yaml:"nav_url"`
	NavMatch string `yaml:"nav_match"`

	ClassificationHint string `yaml:"classification_hint"`
}

// Column is one display column of the list view: header plus the
// front-matter key it projects.
type Column struct {
	Header string
	Key    string
}

// SiteURL returns the public URL of the collection on the given site base.
func (c *CollectionConfig) SiteURL(baseURL string) string {
	path := c.NavURL
	if path == "" {
		path = "/" + c.Name + "/"
	}
	return strings.TrimRight(baseURL, "/") + path
}

// RequiredFields returns "title" plus every required extra field name.
func (c *CollectionConfig) RequiredFields() []string {
	out := []string{"title"}
	for _, f := range c.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// ExtraFieldNames returns the names of all configured extra fields.
func (c *CollectionConfig) ExtraFieldNames() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}

// Columns returns the list-view projection: slug and title, then up to two
// extra fields, or the date when the collection has no extra fields.
func (c *CollectionConfig) Columns() []Column {
	cols := []Column{{Header: "Slug", Key: "slug"}, {Header: "Title", Key: "title"}}
	for i, f := range c.Fields {
		if i == 2 {
			break
		}
		header := f.Prompt
		if header == "" {
			header = titleCase(f.Name)
		}
		cols = append(cols, Column{Header: header, Key: f.Name})
	}
	if len(c.Fields) == 0 {
		cols = append(cols, Column{Header: "Date", Key: "date"})
	}
	return cols
}

// NavItem is one entry of the site navigation block.
type NavItem struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
	Match string `yaml:"match"`
}

// NavDropdown is the dropdown menu of the navigation block.
type NavDropdown struct {
	Label string   `yaml:"label"`
	Items []string `yaml:"items"`
}

// Navigation is the global navigation block of the registry file. It is
// parsed and exposed for completeness; the content engine does not use it.
type Navigation struct {
	Main     []NavItem    `yaml:"main"`
	Dropdown *NavDropdown `yaml:"dropdown"`
}

// Registry is the loaded, immutable set of collection configs.
type Registry struct {
	collections map[string]*CollectionConfig
	order       []string
	navigation  Navigation
}

type registryFile struct {
	Collections yaml.Node  `yaml:"collections"`
	Navigation  Navigation `yaml:"navigation"`
}

// Load reads and parses the registry file. A missing or malformed file is
// fatal to the caller; there is no retry or fallback source.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Registry from raw YAML, preserving declaration order.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("registry: parse: %w", err)
	}

	r := &Registry{
		collections: make(map[string]*CollectionConfig),
		navigation:  file.Navigation,
	}

	if file.Collections.Kind == 0 {
		return nil, fmt.Errorf("registry: no collections defined")
	}
	if file.Collections.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("registry: collections must be a mapping")
	}
	for i := 0; i+1 < len(file.Collections.Content); i += 2 {
		name := file.Collections.Content[i].Value
		cfg := &CollectionConfig{Name: name}
		if err := file.Collections.Content[i+1].Decode(cfg); err != nil {
			return nil, fmt.Errorf("registry: collection %q: %w", name, err)
		}
		applyDefaults(cfg)
		if _, dup := r.collections[name]; dup {
			return nil, fmt.Errorf("registry: duplicate collection %q", name)
		}
		r.collections[name] = cfg
		r.order = append(r.order, name)
	}
	if len(r.order) == 0 {
		return nil, fmt.Errorf("registry: no collections defined")
	}
	return r, nil
}

func applyDefaults(c *CollectionConfig) {
	if c.Label == "" {
		c.Label = titleCase(c.Name)
	}
	if c.DirName == "" {
		c.DirName = "_" + c.Name
	}
	if c.Layout == "" {
		c.Layout = c.Name
	}
	if c.Permalink == "" {
		c.Permalink = "/" + c.Name + "/:slug/"
	}
	if c.EmailSuffix == "" {
		c.EmailSuffix = c.Name
	}
	if c.TitlePrompt == "" {
		c.TitlePrompt = "Title"
	}
	if c.NavMatch == "" {
		c.NavMatch = "contains"
	}
	for i := range c.Fields {
		if c.Fields[i].Prompt == "" {
			c.Fields[i].Prompt = titleCase(c.Fields[i].Name)
		}
	}
}

// Get returns the config for name, or nil when absent.
func (r *Registry) Get(name string) *CollectionConfig {
	return r.collections[name]
}

// Names returns collection names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Navigation returns the parsed navigation block.
func (r *Registry) Navigation() Navigation {
	return r.navigation
}

// ClassificationPrompt builds the instruction block handed to the AI
// classifier: one numbered line per collection with its hint.
func (r *Registry) ClassificationPrompt() string {
	var b strings.Builder
	b.WriteString("Classify this content into ONE of these categories:\n\n")
	for i, name := range r.order {
		hint := strings.TrimSpace(r.collections[name].ClassificationHint)
		fmt.Fprintf(&b, "%d. %s - %s\n\n", i+1, strings.ToUpper(name), hint)
	}
	b.WriteString("Respond with ONLY the category name in uppercase.")
	return b.String()
}

// titleCase uppercases the first letter of each underscore- or
// space-separated word ("url_link" → "Url Link").
func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
