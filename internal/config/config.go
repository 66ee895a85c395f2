package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds editor settings loaded from cmmnedit.yml.
type Config struct {
	Log     Log     `yaml:"log"`
	History History `yaml:"history"`
	Rules   Rules   `yaml:"rules"`
	Graph   Graph   `yaml:"graph"`
	MCP     MCP     `yaml:"mcp"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format,omitempty" validate:"omitempty,oneof=json console"`
}

// History bounds the undo history. Limit 0 keeps every operation.
type History struct {
	Limit int `yaml:"limit,omitempty" validate:"gte=0"`
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `yaml:"width" validate:"gt=0"`
	Height float64 `yaml:"height" validate:"gt=0"`
}

// MinSize holds the resize minimums per shape family.
type MinSize struct {
	Stage      Size `yaml:"stage"`
	Generic    Size `yaml:"generic"`
	Annotation Size `yaml:"annotation"`
}

// Rules tunes the rule engine.
type Rules struct {
	// AttachThreshold is how far from a host's border a criterion may be
	// dropped and still attach.
	AttachThreshold float64 `yaml:"attachThreshold,omitempty" validate:"gte=0"`
	MinSize         MinSize `yaml:"minSize"`
}

// Graph selects the document graph backend.
type Graph struct {
	Backend string `yaml:"backend,omitempty" validate:"omitempty,oneof=memory kuzu"`
	Path    string `yaml:"path,omitempty" validate:"required_if=Backend kuzu"`
}

// MCP configures the MCP server. An empty Addr serves over stdio.
type MCP struct {
	Addr string `yaml:"addr,omitempty" validate:"omitempty,hostname_port"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log: Log{Level: "info", Format: "console"},
		Rules: Rules{
			AttachThreshold: 15,
			MinSize: MinSize{
				Stage:      Size{Width: 140, Height: 120},
				Generic:    Size{Width: 100, Height: 80},
				Annotation: Size{Width: 50, Height: 30},
			},
		},
		Graph: Graph{Backend: "memory"},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load attempts to read cmmnedit.yml or cmmnedit.yaml from the given
// directory. Returns the defaults (not an error) if no config file exists.
func Load(dir string) (*Config, error) {
	for _, name := range []string{"cmmnedit.yml", "cmmnedit.yaml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFile(path)
	}
	return Default(), nil
}

// LoadFile reads and validates the config at path. Keys missing from the
// file keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
