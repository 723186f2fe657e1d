package catalog

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes a chat model the relay accepts. Generation
// parameters are forwarded verbatim to the upstream API.
type Profile struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	MaxTokens   int     `yaml:"max_tokens" json:"-"`
	Temperature float64 `yaml:"temperature" json:"-"`
	TopP        float64 `yaml:"top_p" json:"-"`
}

// Catalog is the immutable set of models loaded at startup.
type Catalog struct {
	profiles  map[string]Profile
	order     []string
	defaultID string
}

const DefaultModelID = "deepseek-r1-250120"

func defaultProfiles() []Profile {
	return []Profile{
		{
			ID:          "deepseek-r1-250120",
			Name:        "DeepSeek R1",
			Description: "DeepSeek R1 250120版本，具有强大的文本理解和生成能力",
			MaxTokens:   2000,
			Temperature: 0.7,
			TopP:        0.95,
		},
		{
			ID:          "spark-3.5",
			Name:        "讯飞星火",
			Description: "讯飞星火3.5模型，擅长中文理解和创作",
			MaxTokens:   1500,
			Temperature: 0.8,
			TopP:        0.9,
		},
		{
			ID:          "qwen-max",
			Name:        "通义千问Max",
			Description: "阿里巴巴通义千问Max模型，全能的AI助手",
			MaxTokens:   2000,
			Temperature: 0.7,
			TopP:        0.95,
		},
	}
}

// Load reads the model catalog from the given YAML file. A missing file
// is not an error: the compiled-in catalog is used instead so the relay
// can start with zero local configuration.
func Load(path string) (*Catalog, error) {
	profiles := defaultProfiles()

	data, err := os.ReadFile(path)
	if err == nil {
		var fileProfiles struct {
			Models []Profile `yaml:"models"`
		}
		if err := yaml.Unmarshal(data, &fileProfiles); err != nil {
			return nil, fmt.Errorf("failed to parse models config %s: %w", path, err)
		}
		if len(fileProfiles.Models) > 0 {
			profiles = fileProfiles.Models
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read models config %s: %w", path, err)
	} else {
		log.Printf("Models config %s not found, using built-in catalog", path)
	}

	return New(profiles)
}

// New builds a catalog from an explicit profile list.
func New(profiles []Profile) (*Catalog, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("model catalog cannot be empty")
	}

	c := &Catalog{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("model profile with empty id in catalog")
		}
		if _, dup := c.profiles[p.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q in catalog", p.ID)
		}
		c.profiles[p.ID] = p
		c.order = append(c.order, p.ID)
	}

	c.defaultID = DefaultModelID
	if _, ok := c.profiles[c.defaultID]; !ok {
		c.defaultID = c.order[0]
	}
	return c, nil
}

// Get looks up a profile by id. The second return reports membership.
func (c *Catalog) Get(id string) (Profile, bool) {
	p, ok := c.profiles[id]
	return p, ok
}

// DefaultID returns the model used when a request omits model_id.
func (c *Catalog) DefaultID() string {
	return c.defaultID
}

// List returns profiles in declaration order.
func (c *Catalog) List() []Profile {
	out := make([]Profile, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.profiles[id])
	}
	return out
}
