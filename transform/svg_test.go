package transform

import (
	"context"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const excalidrawSVG = `<svg version="1.1" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50" width="100" height="50">
  <!-- svg-source:excalidraw -->
  <rect x="10" y="10" width="30" height="20" stroke="#1971c2" fill="#e67700"/>
  <path d="M0 0 L10 10" stroke="#087f5b"/>
  <text x="5" y="45" font-family="Virgil, Segoe UI Emoji" fill="#000000">Hi</text>
  <line stroke="#343a40"/><circle fill="#868e96"/>
</svg>
`

type fakeRasterizer struct {
	err   error
	calls int
}

func (f *fakeRasterizer) Rasterize(_ context.Context, svg []byte, outputPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("PNG:"+string(svg)), 0o644)
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSVGColorSubstitution(t *testing.T) {
	cfg := brand.Default()
	out := NewSVG(cfg, nil).Brand(excalidrawSVG, brand.Template{AdjustColors: true, LineThicknessMultiplier: 1})

	for _, pair := range cfg.ColorMapping {
		assert.Contains(t, out, pair.To)
		assert.NotContains(t, out, pair.From)
	}
	assert.Contains(t, out, `font-family="Virgil, Segoe UI Emoji"`)
	assert.NotContains(t, out, WatermarkID)
}

func TestSVGSubstitutionIsTextual(t *testing.T) {
	cfg := brand.Default()
	in := `<svg><g id="#1971c2-group"/></svg>`
	out := NewSVG(cfg, nil).Brand(in, brand.Template{AdjustColors: true})
	assert.Equal(t, `<svg><g id="#0066CC-group"/></svg>`, out)
}

func TestSVGFontReplacement(t *testing.T) {
	cfg := brand.Default()
	out := NewSVG(cfg, nil).Brand(excalidrawSVG, brand.Template{ReplaceFonts: true})
	assert.Contains(t, out, `font-family="Helvetica Neue, Arial, sans-serif"`)
	assert.NotContains(t, out, "Virgil")
	assert.Contains(t, out, "#1971c2", "colors untouched without adjustColors")
}

func TestSVGWatermark(t *testing.T) {
	cfg := brand.Default()
	s := NewSVG(cfg, nil)

	t.Run("bottom-right default", func(t *testing.T) {
		out := s.Brand(excalidrawSVG, brand.Template{AddWatermark: true})
		i := strings.Index(out, `<g id="company-watermark" opacity="0.15"`)
		require.GreaterOrEqual(t, i, 0, out)
		assert.Less(t, i, strings.LastIndex(out, "</svg>"))
		assert.Contains(t, out, `x="95%" y="95%" text-anchor="end"`)
		assert.Contains(t, out, ">Company Brand</text>")
		assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "</g>\n</svg>"))
	})

	t.Run("template position", func(t *testing.T) {
		out := s.Brand(excalidrawSVG, brand.Template{AddWatermark: true, WatermarkPosition: brand.TopLeft})
		assert.Contains(t, out, `x="5%" y="5%" text-anchor="start"`)
	})

	t.Run("label is escaped", func(t *testing.T) {
		cfg := brand.Default()
		cfg.Watermark.Label = "R&D <team>"
		out := NewSVG(cfg, nil).Brand("<svg></svg>", brand.Template{AddWatermark: true})
		assert.Contains(t, out, "R&amp;D &lt;team&gt;")
	})

	t.Run("attributes are escaped", func(t *testing.T) {
		cfg := brand.Default()
		cfg.Fonts.Primary = `"Helvetica Neue", Arial`
		cfg.Colors.Primary = `#000" onload="x`
		markup := WatermarkMarkup(cfg, brand.BottomRight)
		assert.Contains(t, markup, `font-family="&#34;Helvetica Neue&#34;, Arial"`)
		assert.NotContains(t, markup, `onload="x"`)

		var g struct {
			Text struct {
				FontFamily string `xml:"font-family,attr"`
				Fill       string `xml:"fill,attr"`
			} `xml:"text"`
		}
		require.NoError(t, xml.Unmarshal([]byte(markup), &g))
		assert.Equal(t, cfg.Fonts.Primary, g.Text.FontFamily)
		assert.Equal(t, cfg.Colors.Primary, g.Text.Fill)
	})

	t.Run("inserted before the last closing tag", func(t *testing.T) {
		in := `<svg><svg></svg><rect/></svg>`
		out := s.Brand(in, brand.Template{AddWatermark: true})
		assert.True(t, strings.HasPrefix(out, `<svg><svg></svg><rect/><g id="company-watermark"`))
	})
}

func TestSVGWithoutClosingTag(t *testing.T) {
	in := writeInput(t, "broken.svg", `<svg width="10" height="10"><rect/>`)
	output := filepath.Join(t.TempDir(), "out.svg")

	tpl, id := brand.Default().ResolveTemplate("excalidraw")
	tpl.AdjustColors = false
	tpl.ReplaceFonts = false
	result, err := NewSVG(brand.Default(), nil).Apply(context.Background(), Request{
		Input: in, Output: output, Template: tpl, TemplateID: id,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, MethodSVG, result.Metadata.ProcessMethod)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, `<svg width="10" height="10"><rect/>`, string(data))
}

func TestSVGApply(t *testing.T) {
	cfg := brand.Default()
	tpl, id := cfg.ResolveTemplate("default")
	in := writeInput(t, "diagram.svg", excalidrawSVG)
	dir := t.TempDir()

	t.Run("svg output", func(t *testing.T) {
		output := filepath.Join(dir, "out.svg")
		result, err := NewSVG(cfg, nil).Apply(context.Background(), Request{Input: in, Output: output, Template: tpl, TemplateID: id})
		require.NoError(t, err)
		assert.Equal(t, output, result.Output)
		assert.Equal(t, "default", result.Metadata.TemplateApplied)

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Contains(t, string(data), "#0066CC")
		assert.Contains(t, string(data), WatermarkID)
	})

	t.Run("raster output", func(t *testing.T) {
		r := &fakeRasterizer{}
		output := filepath.Join(dir, "out.png")
		result, err := NewSVG(cfg, r).Apply(context.Background(), Request{Input: in, Output: output, Template: tpl, TemplateID: id})
		require.NoError(t, err)
		assert.Equal(t, 1, r.calls)
		assert.Equal(t, output, result.Output)

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "PNG:"))
		assert.Contains(t, string(data), WatermarkID)
	})

	t.Run("rasterizer failure leaves nothing behind", func(t *testing.T) {
		outDir := t.TempDir()
		output := filepath.Join(outDir, "out.png")
		_, err := NewSVG(cfg, &fakeRasterizer{err: errors.New("no renderer")}).Apply(context.Background(),
			Request{Input: in, Output: output, Template: tpl, TemplateID: id})
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ProcessingError))

		entries, err := os.ReadDir(outDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("no rasterizer", func(t *testing.T) {
		_, err := NewSVG(cfg, nil).Apply(context.Background(),
			Request{Input: in, Output: filepath.Join(dir, "x.jpg"), Template: tpl, TemplateID: id})
		assert.True(t, errs.Is(err, errs.ProcessingError))
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := NewSVG(cfg, nil).Apply(context.Background(),
			Request{Input: filepath.Join(dir, "missing.svg"), Output: filepath.Join(dir, "y.svg"), Template: tpl, TemplateID: id})
		assert.True(t, errs.Is(err, errs.IOError))
		assert.NoFileExists(t, filepath.Join(dir, "y.svg"))
	})
}
