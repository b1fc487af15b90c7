package brand

// MapColor returns the brand color for an exact, case-sensitive match of
// src in the color mapping.
func (c Config) MapColor(src string) (string, bool) {
	for _, pair := range c.ColorMapping {
		if pair.From == src {
			return pair.To, true
		}
	}
	return "", false
}

// ResolveFont returns the brand primary font stack when the template
// replaces fonts, and src otherwise.
func (c Config) ResolveFont(tpl Template, src string) string {
	if tpl.ReplaceFonts {
		return c.Fonts.Primary
	}
	return src
}

// ResolveTemplate looks up id and falls back to the default template for
// empty or unknown ids. The second return value is the id actually used.
func (c Config) ResolveTemplate(id string) (Template, string) {
	if t, ok := c.Templates[id]; ok {
		return t, id
	}
	return c.Templates[c.DefaultTemplate], c.DefaultTemplate
}

// WatermarkPosition returns the corner for tpl, preferring the template's
// own position over the brand default.
func (c Config) WatermarkPosition(tpl Template) Position {
	if tpl.WatermarkPosition.Valid() {
		return tpl.WatermarkPosition
	}
	return c.Watermark.Position.OrDefault()
}
