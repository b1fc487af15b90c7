package brand

import (
	"fmt"
	"os"

	"github.com/flanksource/commons/logger"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML brand config from path. An empty path returns
// Default().
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read brand config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debugf("Loaded brand config from %s (%d templates)", path, len(cfg.Templates))
	return cfg, nil
}

// Parse decodes and validates a YAML brand config. Omitted watermark and
// template settings take the built-in defaults.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse brand config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid brand config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Fonts.Primary == "" {
		c.Fonts.Primary = def.Fonts.Primary
	}
	if c.Watermark.Label == "" {
		c.Watermark.Label = def.Watermark.Label
	}
	// zero means unset; a fully transparent watermark is addWatermark: false
	if c.Watermark.Opacity == 0 {
		c.Watermark.Opacity = def.Watermark.Opacity
	}
	if c.Watermark.Position == "" {
		c.Watermark.Position = def.Watermark.Position
	}
	if c.Watermark.FontSize == 0 {
		c.Watermark.FontSize = def.Watermark.FontSize
	}
	if len(c.Templates) == 0 {
		c.Templates = def.Templates
	}
	for id, t := range c.Templates {
		if t.LineThicknessMultiplier == 0 {
			t.LineThicknessMultiplier = 1.0
		}
		if t.Name == "" {
			t.Name = id
		}
		c.Templates[id] = t
	}
	if c.DefaultTemplate == "" {
		if _, ok := c.Templates[DefaultTemplateID]; ok {
			c.DefaultTemplate = DefaultTemplateID
		} else if _, ok := c.Templates["default"]; ok {
			c.DefaultTemplate = "default"
		}
	}
}
