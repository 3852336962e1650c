package provider

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Type selects which executor serves a provider.
type Type string

const (
	TypeAPI     Type = "api"
	TypeScraper Type = "scraper"
)

// RenderMode selects how a scraper provider's search page is fetched.
type RenderMode string

const (
	RenderBrowser RenderMode = "browser"
	RenderStatic  RenderMode = "static"
)

const (
	DefaultAPIMaxResults     = 30
	DefaultAPITimeout        = 15 * time.Second
	DefaultScraperMaxResults = 10
	DefaultScraperWait       = 10 * time.Second
)

// Config is one provider definition. Exactly one of API or Scraper is set,
// matching Type.
type Config struct {
	Name      string
	Type      Type
	Enabled   bool
	Countries []string

	API     *APIConfig
	Scraper *ScraperConfig
}

type APIConfig struct {
	URL        string            `yaml:"apiUrl"`
	Method     string            `yaml:"method"`
	Params     map[string]string `yaml:"params"`
	Headers    map[string]string `yaml:"headers"`
	Mapper     APIMapper         `yaml:"mapper"`
	MaxResults int               `yaml:"maxResults"`
	// RateLimit is the number of requests per second allowed against the
	// provider. Zero means unlimited.
	RateLimit float64       `yaml:"rateLimit"`
	Timeout   time.Duration `yaml:"timeout"`
}

// APIMapper locates the item list in a response body and maps each item's
// fields by path.
type APIMapper struct {
	ItemsPath string            `yaml:"itemsPath"`
	Fields    map[string]string `yaml:"fields"`
}

type ScraperConfig struct {
	SearchURL    string        `yaml:"searchUrl"`
	BaseURL      string        `yaml:"baseUrl"`
	CardSelector string        `yaml:"productCardSelector"`
	Render       RenderMode    `yaml:"render"`
	MaxResults   int           `yaml:"maxResults"`
	WaitTimeout  time.Duration `yaml:"waitTimeout"`
	Mapper       ScraperMapper `yaml:"mapper"`
}

type ScraperMapper struct {
	Fields map[string]FieldSelector `yaml:"fields"`
}

// FieldSelector reads a field from a product card. An empty Selector means the
// card element itself; an empty Attribute means the element's text.
type FieldSelector struct {
	Selector  string `yaml:"selector"`
	Attribute string `yaml:"attribute"`
}

// UnknownTypeError is returned when a provider names a type no executor serves.
type UnknownTypeError struct {
	Name string
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("provider %q has unknown type %q", e.Name, e.Type)
}

// UnmarshalYAML decodes the provider's "config" object into the variant named
// by its type.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name      string    `yaml:"name"`
		Type      string    `yaml:"type"`
		Enabled   bool      `yaml:"enabled"`
		Countries []string  `yaml:"countries"`
		Config    yaml.Node `yaml:"config"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw.Name) == "" {
		return fmt.Errorf("provider at line %d has no name", value.Line)
	}

	c.Name = raw.Name
	c.Enabled = raw.Enabled
	c.Countries = raw.Countries
	c.Type = Type(strings.ToLower(strings.TrimSpace(raw.Type)))

	switch c.Type {
	case TypeAPI:
		api := &APIConfig{}
		if err := decodeVariant(&raw.Config, api); err != nil {
			return fmt.Errorf("provider %q: decode api config: %w", c.Name, err)
		}
		api.applyDefaults()
		c.API = api
	case TypeScraper:
		scraper := &ScraperConfig{}
		if err := decodeVariant(&raw.Config, scraper); err != nil {
			return fmt.Errorf("provider %q: decode scraper config: %w", c.Name, err)
		}
		scraper.applyDefaults()
		c.Scraper = scraper
	default:
		return &UnknownTypeError{Name: raw.Name, Type: raw.Type}
	}
	return nil
}

func decodeVariant(node *yaml.Node, out any) error {
	if node.Kind == 0 {
		return nil
	}
	return node.Decode(out)
}

func (a *APIConfig) applyDefaults() {
	if a.Method == "" {
		a.Method = "GET"
	}
	a.Method = strings.ToUpper(a.Method)
	if a.MaxResults <= 0 {
		a.MaxResults = DefaultAPIMaxResults
	}
	if a.Timeout <= 0 {
		a.Timeout = DefaultAPITimeout
	}
}

func (s *ScraperConfig) applyDefaults() {
	s.Render = RenderMode(strings.ToLower(string(s.Render)))
	if s.Render == "" {
		s.Render = RenderBrowser
	}
	if s.MaxResults <= 0 {
		s.MaxResults = DefaultScraperMaxResults
	}
	if s.WaitTimeout <= 0 {
		s.WaitTimeout = DefaultScraperWait
	}
}

// IsGlobal reports whether the provider serves every country.
func (c Config) IsGlobal() bool {
	return len(c.Countries) == 0
}

// Serves reports whether the provider is enabled for the given country.
func (c Config) Serves(country string) bool {
	if !c.Enabled {
		return false
	}
	if c.IsGlobal() {
		return true
	}
	for _, code := range c.Countries {
		if strings.EqualFold(code, country) {
			return true
		}
	}
	return false
}
