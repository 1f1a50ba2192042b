package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	goerrors "github.com/TudorHulban/go-errors"
	"gopkg.in/yaml.v3"

	"planline/internal/schedule"
)

// Config models planline.yml.
type Config struct {
	Workers struct {
		Rates map[string]float64 `yaml:"rates" json:"rates"`
	} `yaml:"workers" json:"workers"`
	Schedule struct {
		Scenarios       []string `yaml:"scenarios" json:"scenarios"`
		DefaultScenario string   `yaml:"default_scenario" json:"default_scenario"`
	} `yaml:"schedule" json:"schedule"`
	Dine DineConfig `yaml:"dine" json:"dine"`
	Yelp YelpConfig `yaml:"yelp" json:"yelp"`
}

type DineConfig struct {
	CatalogURL   string        `yaml:"catalog_url" json:"catalog_url,omitempty"`
	RatingsURL   string        `yaml:"ratings_url" json:"ratings_url,omitempty"`
	CatalogFile  string        `yaml:"catalog_file" json:"catalog_file,omitempty"`
	RatingsFile  string        `yaml:"ratings_file" json:"ratings_file,omitempty"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
}

type YelpConfig struct {
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	DefaultLocation string `yaml:"default_location" json:"default_location"`
	SearchLimit     int    `yaml:"search_limit" json:"search_limit"`
	ReviewsLimit    int    `yaml:"reviews_limit" json:"reviews_limit"`
}

// Rates returns the worker rate table.
func (c *Config) Rates() schedule.Rates {
	return schedule.Rates(c.Workers.Rates)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Workers.Rates) == 0 {
		return goerrors.ErrValidation{
			Caller: "Validate - Config",
			Issue: goerrors.ErrNilInput{
				InputName: "workers.rates",
			},
		}
	}
	if err := c.Rates().Validate(); err != nil {
		return err
	}
	if len(c.Schedule.Scenarios) == 0 {
		return goerrors.ErrValidation{
			Caller: "Validate - Config",
			Issue: goerrors.ErrNilInput{
				InputName: "schedule.scenarios",
			},
		}
	}
	seen := map[string]bool{}
	for _, s := range c.Schedule.Scenarios {
		if s == "" {
			return fmt.Errorf("schedule.scenarios contains an empty name")
		}
		if seen[s] {
			return fmt.Errorf("schedule.scenarios lists %s twice", s)
		}
		if _, isRole := c.Workers.Rates[s]; isRole {
			return fmt.Errorf("scenario %s collides with a worker role", s)
		}
		seen[s] = true
	}
	if c.Schedule.DefaultScenario != "" && !seen[c.Schedule.DefaultScenario] {
		return fmt.Errorf("schedule.default_scenario %s is not a listed scenario", c.Schedule.DefaultScenario)
	}
	if c.Dine.FetchTimeout < 0 {
		return goerrors.ErrValidation{
			Caller: "Validate - Config",
			Issue: goerrors.ErrNegativeInput{
				InputName: "dine.fetch_timeout",
			},
		}
	}
	if c.Yelp.SearchLimit < 0 || c.Yelp.ReviewsLimit < 0 {
		return goerrors.ErrValidation{
			Caller: "Validate - Config",
			Issue: goerrors.ErrNegativeInput{
				InputName: "yelp limits",
			},
		}
	}
	return nil
}

// Scenario resolves the scenario to solve: the requested one, else the
// configured default, else the first listed scenario.
func (c *Config) Scenario(requested string) string {
	if requested != "" {
		return requested
	}
	if c.Schedule.DefaultScenario != "" {
		return c.Schedule.DefaultScenario
	}
	if len(c.Schedule.Scenarios) > 0 {
		return c.Schedule.Scenarios[0]
	}
	return ""
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with pl init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config when the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "planline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Sections left
// out of the file keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	rates := cfg.Workers.Rates
	cfg.Workers.Rates = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if cfg.Workers.Rates == nil {
		cfg.Workers.Rates = rates
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `workers:
  rates:
    projectManager: 150
    fullStackDev1: 125
    fullStackDev2: 125
    cloudDevops: 140
    dataEngineer: 135

schedule:
  scenarios: [best, expected, worst]
  default_scenario: expected

dine:
  catalog_file: data/restaurants-v001.json
  ratings_file: data/yelp-data.json
  fetch_timeout: 10s

yelp:
  endpoint: https://api.yelp.com/v3/graphql
  default_location: "Marlborough, MA"
  search_limit: 1
  reviews_limit: 3
`
