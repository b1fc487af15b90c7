package brand

// DefaultTemplateID is the template used when a request names none or an
// unknown one.
const DefaultTemplateID = "excalidraw"

// Default returns the built-in company brand.
func Default() Config {
	return Config{
		Colors: Palette{
			Primary:   "#0066CC",
			Secondary: "#FF9900",
			Accent:    "#00CC99",
			Dark:      "#333333",
			Light:     "#F5F5F5",
			Neutral:   "#CCCCCC",
			Success:   "#00AA55",
			Warning:   "#FFCC00",
			Error:     "#CC3300",
			Info:      "#0099FF",
		},
		// Excalidraw's default stroke palette.
		ColorMapping: []ColorPair{
			{From: "#1971c2", To: "#0066CC"},
			{From: "#e67700", To: "#FF9900"},
			{From: "#087f5b", To: "#00CC99"},
			{From: "#000000", To: "#333333"},
			{From: "#343a40", To: "#333333"},
			{From: "#868e96", To: "#CCCCCC"},
		},
		Fonts: Fonts{
			Primary:   "Helvetica Neue, Arial, sans-serif",
			Secondary: "Georgia, Times, serif",
			Monospace: "Courier New, monospace",
			Weights: map[string]int{
				"light":    300,
				"regular":  400,
				"semibold": 600,
				"bold":     700,
			},
		},
		Watermark: Watermark{
			Label:    "Company Brand",
			Opacity:  0.15,
			Position: BottomRight,
			FontSize: 14,
		},
		Templates: map[string]Template{
			"default": {
				Name:                    "Default Template",
				Description:             "Brand colors and fonts with a watermark",
				PreserveLayout:          true,
				AdjustColors:            true,
				AddWatermark:            true,
				WatermarkPosition:       BottomRight,
				ReplaceFonts:            true,
				LineThicknessMultiplier: 1.0,
			},
			"technical": {
				Name:                    "Technical Diagram",
				Description:             "Thinner lines for dense technical drawings",
				PreserveLayout:          true,
				AdjustColors:            true,
				AddWatermark:            true,
				WatermarkPosition:       BottomLeft,
				ReplaceFonts:            true,
				LineThicknessMultiplier: 0.75,
			},
			"presentation": {
				Name:                    "Presentation Style",
				Description:             "Heavier lines for slides, no watermark",
				PreserveLayout:          true,
				AdjustColors:            true,
				AddWatermark:            false,
				ReplaceFonts:            true,
				LineThicknessMultiplier: 1.25,
			},
			DefaultTemplateID: {
				Name:                    "Excalidraw Brand Converter",
				Description:             "Maps the Excalidraw palette onto the brand palette",
				PreserveLayout:          true,
				AdjustColors:            true,
				AddWatermark:            true,
				WatermarkPosition:       BottomRight,
				ReplaceFonts:            true,
				LineThicknessMultiplier: 1.0,
			},
		},
		DefaultTemplate: DefaultTemplateID,
	}
}
