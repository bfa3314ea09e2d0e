package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var ErrNotFound = errors.New("catalog: not found")

// Template is a scene prompt with bracketed fields the user fills in.
type Template struct {
	ID       string `yaml:"id"`
	Group    string `yaml:"group"`
	Label    string `yaml:"label"`
	Template string `yaml:"template"`
}

// Inspiration is a featured example song.
type Inspiration struct {
	ID         string   `yaml:"id"`
	Snippet    string   `yaml:"snippet"`
	Template   string   `yaml:"template"`
	FullLyrics string   `yaml:"fullLyrics"`
	SunoPrompt string   `yaml:"sunoPrompt"`
	Tags       []string `yaml:"tags"`
	Image      string   `yaml:"image"`
}

// Combined returns the lyrics followed by the prompt, ready to be copied.
func (i *Inspiration) Combined() string {
	return fmt.Sprintf("%s\n\n[Suno Prompt: %s]", i.FullLyrics, i.SunoPrompt)
}

// Pack is a purchasable credit pack. Zero credits means unlimited.
type Pack struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Price         string   `yaml:"price"`
	OriginalPrice string   `yaml:"originalPrice"`
	Credits       int      `yaml:"credits"`
	Features      []string `yaml:"features"`
}

func (p *Pack) Unlimited() bool {
	return p.Credits == 0
}

type Contact struct {
	WeChat           string   `yaml:"wechat"`
	Title            string   `yaml:"title"`
	Subtitle         string   `yaml:"subtitle"`
	PricePerSong     string   `yaml:"pricePerSong"`
	VerificationCode string   `yaml:"verificationCode"`
	Items            []string `yaml:"items"`
}

// Lines returns the contact items with the placeholders expanded.
func (c *Contact) Lines() []string {
	r := strings.NewReplacer("%PRICE%", c.PricePerSong, "%CODE%", c.VerificationCode)
	lines := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, r.Replace(item))
	}
	return lines
}

type Catalog struct {
	Contact      Contact       `yaml:"contact"`
	Pricing      []Pack        `yaml:"pricing"`
	Templates    []Template    `yaml:"templates"`
	Inspirations []Inspiration `yaml:"inspirations"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("catalog: couldn't unmarshal: %w", err)
	}
	return &c, nil
}

func (c *Catalog) Template(id string) (*Template, error) {
	for i := range c.Templates {
		if c.Templates[i].ID == id {
			return &c.Templates[i], nil
		}
	}
	return nil, fmt.Errorf("%w: template %q", ErrNotFound, id)
}

func (c *Catalog) Inspiration(id string) (*Inspiration, error) {
	for i := range c.Inspirations {
		if c.Inspirations[i].ID == id {
			return &c.Inspirations[i], nil
		}
	}
	return nil, fmt.Errorf("%w: inspiration %q", ErrNotFound, id)
}

// Group returns the templates of a group in catalog order.
func (c *Catalog) Group(group string) []Template {
	var ts []Template
	for _, t := range c.Templates {
		if t.Group == group {
			ts = append(ts, t)
		}
	}
	return ts
}
