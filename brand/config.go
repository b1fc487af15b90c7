// Package brand describes the company visual identity applied to diagrams:
// the palette, the mapping from diagram-tool colors to brand colors, font
// stacks, the watermark and the named style templates.
//
// A Config is built once (Default or LoadFile) and is never mutated
// afterwards, so it can be shared by any number of concurrent conversions.
package brand

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/samber/lo"
)

// Position is a watermark corner.
type Position string

const (
	TopLeft     Position = "top-left"
	TopRight    Position = "top-right"
	BottomLeft  Position = "bottom-left"
	BottomRight Position = "bottom-right"
)

// Positions lists the supported watermark corners.
var Positions = []Position{TopLeft, TopRight, BottomLeft, BottomRight}

// Valid reports whether p is one of the four corners.
func (p Position) Valid() bool {
	return lo.Contains(Positions, p)
}

// OrDefault returns p, or BottomRight when p is unset or unrecognized.
func (p Position) OrDefault() Position {
	if p.Valid() {
		return p
	}
	return BottomRight
}

// Palette holds the named brand colors.
type Palette struct {
	Primary   string `yaml:"primary" json:"primary"`
	Secondary string `yaml:"secondary" json:"secondary"`
	Accent    string `yaml:"accent" json:"accent"`
	Dark      string `yaml:"dark" json:"dark"`
	Light     string `yaml:"light" json:"light"`
	Neutral   string `yaml:"neutral" json:"neutral"`
	Success   string `yaml:"success,omitempty" json:"success,omitempty"`
	Warning   string `yaml:"warning,omitempty" json:"warning,omitempty"`
	Error     string `yaml:"error,omitempty" json:"error,omitempty"`
	Info      string `yaml:"info,omitempty" json:"info,omitempty"`
}

// Named returns the non-empty palette entries keyed by name.
func (p Palette) Named() map[string]string {
	all := map[string]string{
		"primary":   p.Primary,
		"secondary": p.Secondary,
		"accent":    p.Accent,
		"dark":      p.Dark,
		"light":     p.Light,
		"neutral":   p.Neutral,
		"success":   p.Success,
		"warning":   p.Warning,
		"error":     p.Error,
		"info":      p.Info,
	}
	return lo.PickBy(all, func(_ string, v string) bool { return v != "" })
}

// ColorPair maps one source-tool color to a brand color.
type ColorPair struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Fonts holds the brand font stacks and the weight table.
type Fonts struct {
	Primary   string         `yaml:"primary" json:"primary"`
	Secondary string         `yaml:"secondary,omitempty" json:"secondary,omitempty"`
	Monospace string         `yaml:"monospace,omitempty" json:"monospace,omitempty"`
	Weights   map[string]int `yaml:"weights,omitempty" json:"weights,omitempty"`
}

// Watermark configures the brand label stamped onto outputs.
type Watermark struct {
	Label    string   `yaml:"label" json:"label"`
	Opacity  float64  `yaml:"opacity" json:"opacity"`
	Position Position `yaml:"position" json:"position"`
	// FontSize is in pixels and only applies to raster outputs.
	FontSize float64 `yaml:"fontSize,omitempty" json:"fontSize,omitempty"`
	// FontPath is an optional TTF file for raster outputs.
	FontPath string `yaml:"fontPath,omitempty" json:"fontPath,omitempty"`
}

// Template is a named bundle of style rules.
type Template struct {
	Name                    string   `yaml:"name" json:"name"`
	Description             string   `yaml:"description,omitempty" json:"description,omitempty"`
	PreserveLayout          bool     `yaml:"preserveLayout" json:"preserveLayout"`
	AdjustColors            bool     `yaml:"adjustColors" json:"adjustColors"`
	AddWatermark            bool     `yaml:"addWatermark" json:"addWatermark"`
	WatermarkPosition       Position `yaml:"watermarkPosition,omitempty" json:"watermarkPosition,omitempty"`
	ReplaceFonts            bool     `yaml:"replaceFonts" json:"replaceFonts"`
	LineThicknessMultiplier float64  `yaml:"lineThicknessMultiplier" json:"lineThicknessMultiplier"`
}

// Config is the complete brand description.
type Config struct {
	Colors          Palette             `yaml:"colors" json:"colors"`
	ColorMapping    []ColorPair         `yaml:"colorMapping" json:"colorMapping"`
	Fonts           Fonts               `yaml:"fonts" json:"fonts"`
	Watermark       Watermark           `yaml:"watermark" json:"watermark"`
	Templates       map[string]Template `yaml:"templates" json:"templates"`
	DefaultTemplate string              `yaml:"defaultTemplate" json:"defaultTemplate"`
}

// TemplateInfo is the public listing entry for a template.
type TemplateInfo struct {
	ID          string `json:"id" pretty:"label=ID"`
	Name        string `json:"name" pretty:"label=Name"`
	Description string `json:"description,omitempty" pretty:"label=Description"`
}

// TemplateList returns every template sorted by id.
func (c Config) TemplateList() []TemplateInfo {
	ids := lo.Keys(c.Templates)
	sort.Strings(ids)
	return lo.Map(ids, func(id string, _ int) TemplateInfo {
		t := c.Templates[id]
		return TemplateInfo{ID: id, Name: t.Name, Description: t.Description}
	})
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// IsHexColor reports whether s is a #rgb, #rrggbb or #rrggbbaa color.
func IsHexColor(s string) bool {
	return hexColor.MatchString(s)
}

// Validate checks the invariants every component relies on.
func (c Config) Validate() error {
	for name, v := range c.Colors.Named() {
		if !hexColor.MatchString(v) {
			return fmt.Errorf("colors.%s: %q is not a hex color", name, v)
		}
	}

	seen := map[string]bool{}
	for i, pair := range c.ColorMapping {
		if !hexColor.MatchString(pair.From) || !hexColor.MatchString(pair.To) {
			return fmt.Errorf("colorMapping[%d]: %q -> %q must both be hex colors", i, pair.From, pair.To)
		}
		if seen[pair.From] {
			return fmt.Errorf("colorMapping[%d]: duplicate source color %s", i, pair.From)
		}
		seen[pair.From] = true
	}

	if c.Fonts.Primary == "" {
		return fmt.Errorf("fonts.primary is required")
	}
	for name, w := range c.Fonts.Weights {
		if w < 100 || w > 900 {
			return fmt.Errorf("fonts.weights.%s: %d is outside 100..900", name, w)
		}
	}

	if c.Watermark.Opacity < 0 || c.Watermark.Opacity > 1 {
		return fmt.Errorf("watermark.opacity: %v is outside [0,1]", c.Watermark.Opacity)
	}
	if c.Watermark.Position != "" && !c.Watermark.Position.Valid() {
		return fmt.Errorf("watermark.position: unknown position %q", c.Watermark.Position)
	}

	if len(c.Templates) == 0 {
		return fmt.Errorf("at least one template is required")
	}
	for id, t := range c.Templates {
		if t.LineThicknessMultiplier <= 0 {
			return fmt.Errorf("templates.%s.lineThicknessMultiplier must be > 0, got %v", id, t.LineThicknessMultiplier)
		}
		if t.WatermarkPosition != "" && !t.WatermarkPosition.Valid() {
			return fmt.Errorf("templates.%s.watermarkPosition: unknown position %q", id, t.WatermarkPosition)
		}
	}
	if _, ok := c.Templates[c.DefaultTemplate]; !ok {
		return fmt.Errorf("defaultTemplate %q does not name a template", c.DefaultTemplate)
	}
	return nil
}
