package transform

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/detect"
	"github.com/flanksource/brandify/errs"
	"github.com/flanksource/commons/logger"
	"github.com/google/uuid"
)

var fontFamilyAttr = regexp.MustCompile(`font-family="[^"]*"`)

// SVG brands SVG markup by text substitution. The rewrite is deliberately
// not DOM-aware: a mapped color literal is replaced wherever it appears,
// including ids and comments.
type SVG struct {
	cfg        brand.Config
	rasterizer Rasterizer
}

// NewSVG returns the SVG strategy. rasterizer may be nil, in which case
// raster output paths fail with a ProcessingError.
func NewSVG(cfg brand.Config, rasterizer Rasterizer) *SVG {
	return &SVG{cfg: cfg, rasterizer: rasterizer}
}

func (s *SVG) Name() string { return MethodSVG }

// Brand applies the template's color, font and watermark steps to markup.
func (s *SVG) Brand(markup string, tpl brand.Template) string {
	if tpl.AdjustColors {
		for _, pair := range s.cfg.ColorMapping {
			markup = strings.ReplaceAll(markup, pair.From, pair.To)
		}
	}
	if tpl.ReplaceFonts {
		markup = fontFamilyAttr.ReplaceAllLiteralString(markup, `font-family="`+s.cfg.Fonts.Primary+`"`)
	}
	if tpl.AddWatermark {
		var inserted bool
		markup, inserted = InsertWatermark(markup, s.cfg, s.cfg.WatermarkPosition(tpl))
		if !inserted {
			logger.Debugf("No closing </svg> tag, skipping watermark")
		}
	}
	return markup
}

func (s *SVG) Apply(ctx context.Context, req Request) (*Result, error) {
	data, err := readInput(req.Input)
	if err != nil {
		return nil, err
	}
	branded := s.Brand(string(data), req.Template)

	if !detect.IsRasterPath(req.Output) {
		if err := WriteAtomic(req.Output, []byte(branded)); err != nil {
			return nil, err
		}
		return success(req.Output, MethodSVG, req.TemplateID), nil
	}

	if s.rasterizer == nil {
		return nil, errs.New(errs.ProcessingError, "no SVG rasterizer configured for %s", filepath.Ext(req.Output))
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return nil, errs.Wrap(errs.IOError, err, "failed to create output directory")
	}
	// rasterize next to the target so the final rename stays on one filesystem
	tmp := filepath.Join(filepath.Dir(req.Output), "."+uuid.NewString()+filepath.Ext(req.Output))
	if err := s.rasterizer.Rasterize(ctx, []byte(branded), tmp); err != nil {
		os.Remove(tmp)
		return nil, errs.Wrap(errs.ProcessingError, err, "failed to rasterize SVG")
	}
	if err := os.Rename(tmp, req.Output); err != nil {
		os.Remove(tmp)
		return nil, errs.Wrap(errs.IOError, err, "failed to write %s", filepath.Base(req.Output))
	}
	return success(req.Output, MethodSVG, req.TemplateID), nil
}
