package brand

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "excalidraw", cfg.DefaultTemplate)
	assert.Len(t, cfg.Templates, 4)
}

func TestMapColor(t *testing.T) {
	cfg := Default()

	to, ok := cfg.MapColor("#1971c2")
	assert.True(t, ok)
	assert.Equal(t, "#0066CC", to)

	_, ok = cfg.MapColor("#1971C2")
	assert.False(t, ok, "lookup is case-sensitive")

	_, ok = cfg.MapColor("#abcdef")
	assert.False(t, ok)
}

func TestResolveFont(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.Fonts.Primary, cfg.ResolveFont(Template{ReplaceFonts: true}, "Virgil"))
	assert.Equal(t, "Virgil", cfg.ResolveFont(Template{}, "Virgil"))
}

func TestResolveTemplate(t *testing.T) {
	cfg := Default()

	tpl, id := cfg.ResolveTemplate("technical")
	assert.Equal(t, "technical", id)
	assert.Equal(t, 0.75, tpl.LineThicknessMultiplier)

	for _, unknown := range []string{"", "nope"} {
		tpl, id = cfg.ResolveTemplate(unknown)
		assert.Equal(t, "excalidraw", id)
		assert.Equal(t, cfg.Templates["excalidraw"], tpl)
	}
}

func TestWatermarkPosition(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BottomLeft, cfg.WatermarkPosition(cfg.Templates["technical"]))
	assert.Equal(t, BottomRight, cfg.WatermarkPosition(Template{WatermarkPosition: "middle"}))

	cfg.Watermark.Position = TopLeft
	assert.Equal(t, TopLeft, cfg.WatermarkPosition(Template{}))
}

func TestTemplateListSorted(t *testing.T) {
	list := Default().TemplateList()
	ids := make([]string, 0, len(list))
	for _, info := range list {
		ids = append(ids, info.ID)
	}
	assert.Equal(t, []string{"default", "excalidraw", "presentation", "technical"}, ids)
	assert.Equal(t, "Technical Diagram", list[3].Name)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad palette color", func(c *Config) { c.Colors.Primary = "blue" }, "colors.primary"},
		{"duplicate mapping", func(c *Config) {
			c.ColorMapping = append(c.ColorMapping, ColorPair{From: "#1971c2", To: "#000000"})
		}, "duplicate source color"},
		{"opacity", func(c *Config) { c.Watermark.Opacity = 1.5 }, "watermark.opacity"},
		{"position", func(c *Config) { c.Watermark.Position = "center" }, "watermark.position"},
		{"multiplier", func(c *Config) {
			tpl := c.Templates["default"]
			tpl.LineThicknessMultiplier = 0
			c.Templates["default"] = tpl
		}, "lineThicknessMultiplier"},
		{"weight", func(c *Config) { c.Fonts.Weights["bold"] = 1000 }, "fonts.weights.bold"},
		{"default template", func(c *Config) { c.DefaultTemplate = "missing" }, "defaultTemplate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		cfg, err := LoadFile("")
		require.NoError(t, err)
		assert.Equal(t, Default().DefaultTemplate, cfg.DefaultTemplate)
	})

	t.Run("yaml with defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "brand.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
colors:
  primary: "#112233"
colorMapping:
  - from: "#ffffff"
    to: "#112233"
  - from: "#000000"
    to: "#222222"
watermark:
  label: ACME
templates:
  default:
    adjustColors: true
`), 0o644))

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "ACME", cfg.Watermark.Label)
		assert.Equal(t, 0.15, cfg.Watermark.Opacity)
		assert.Equal(t, BottomRight, cfg.Watermark.Position)
		assert.Equal(t, "default", cfg.DefaultTemplate)
		assert.Equal(t, "#ffffff", cfg.ColorMapping[0].From, "mapping order is preserved")
	})

	t.Run("default template must exist", func(t *testing.T) {
		_, err := Parse([]byte("templates:\n  plain: {}\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "defaultTemplate")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
