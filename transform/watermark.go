package transform

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/flanksource/brandify/brand"
)

// WatermarkID is the id of the group injected into branded SVGs.
const WatermarkID = "company-watermark"

type anchor struct {
	x, y, textAnchor, baseline string
}

var svgAnchors = map[brand.Position]anchor{
	brand.TopLeft:     {"5%", "5%", "start", "hanging"},
	brand.TopRight:    {"95%", "5%", "end", "hanging"},
	brand.BottomLeft:  {"5%", "95%", "start", ""},
	brand.BottomRight: {"95%", "95%", "end", ""},
}

// WatermarkMarkup renders the watermark group for pos.
func WatermarkMarkup(cfg brand.Config, pos brand.Position) string {
	a := svgAnchors[pos.OrDefault()]

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Group(fmt.Sprintf(`id="%s"`, WatermarkID), fmt.Sprintf(`opacity="%g"`, cfg.Watermark.Opacity))
	fmt.Fprintf(canvas.Writer, `<text x="%s" y="%s" text-anchor="%s"`, a.x, a.y, a.textAnchor)
	if a.baseline != "" {
		fmt.Fprintf(canvas.Writer, ` dominant-baseline="%s"`, a.baseline)
	}
	fmt.Fprintf(canvas.Writer, ` font-family="%s" font-size="12" fill="%s">%s</text>`+"\n",
		escape(cfg.Fonts.Primary), escape(cfg.Colors.Primary), escape(cfg.Watermark.Label))
	canvas.Gend()
	return buf.String()
}

// svgo's Text only takes integer coordinates, so the <text> element is
// written by hand and its values escaped here.
func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// InsertWatermark places the watermark group right before the last
// closing </svg>. Markup without one is returned unchanged.
func InsertWatermark(markup string, cfg brand.Config, pos brand.Position) (string, bool) {
	i := strings.LastIndex(markup, "</svg>")
	if i < 0 {
		return markup, false
	}
	return markup[:i] + WatermarkMarkup(cfg, pos) + markup[i:], true
}
