// Package convert dispatches artifacts to the branding strategies and runs
// the tiered fallback chain around them.
package convert

import (
	"context"
	"strings"

	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/detect"
	"github.com/flanksource/brandify/errs"
	"github.com/flanksource/brandify/transform"
	"github.com/flanksource/commons/logger"
	"github.com/samber/lo"
)

var log = logger.GetLogger("convert")

// Request names the input, the output path and the template to apply.
// An empty or unknown TemplateID falls back to the default template.
type Request struct {
	Input      string `json:"input"`
	Output     string `json:"output"`
	TemplateID string `json:"template,omitempty"`
}

// Targets lists the output extensions each input format can be written as.
var Targets = map[detect.Format][]string{
	detect.SVG:       {"svg", "png", "jpg", "jpeg"},
	detect.JSONScene: {"json"},
	detect.Raster:    {"png", "jpg", "jpeg"},
}

// CanProduce reports whether an input of format can be written with ext.
func CanProduce(format detect.Format, ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return lo.Contains(Targets[format], ext)
}

// Converter applies the in-process strategy matching the input format.
type Converter struct {
	brand      brand.Config
	rasterizer transform.Rasterizer
	strategies map[detect.Format]transform.Strategy
}

// New builds a converter for cfg. rasterizer may be nil, in which case SVG
// inputs can only be written as SVG.
func New(cfg brand.Config, rasterizer transform.Rasterizer) *Converter {
	return &Converter{
		brand:      cfg,
		rasterizer: rasterizer,
		strategies: map[detect.Format]transform.Strategy{
			detect.SVG:       transform.NewSVG(cfg, rasterizer),
			detect.JSONScene: transform.NewScene(cfg),
			detect.Raster:    transform.NewRaster(cfg),
		},
	}
}

// WithBrand returns a converter for a different brand that shares the
// rasterizer.
func (c *Converter) WithBrand(cfg brand.Config) *Converter {
	return New(cfg, c.rasterizer)
}

// Brand returns the config the converter applies.
func (c *Converter) Brand() brand.Config {
	return c.brand
}

// Convert resolves the template and brands req.Input into req.Output.
func (c *Converter) Convert(ctx context.Context, req Request) (*transform.Result, error) {
	tpl, id := c.brand.ResolveTemplate(req.TemplateID)
	if req.TemplateID != "" && req.TemplateID != id {
		log.Debugf("unknown template %q, using %s", req.TemplateID, id)
	}
	return c.Apply(ctx, req, tpl, id)
}

// Apply brands req.Input with an already resolved template.
func (c *Converter) Apply(ctx context.Context, req Request, tpl brand.Template, templateID string) (*transform.Result, error) {
	format, err := detect.DetectFormat(req.Input)
	if err != nil {
		return nil, err
	}
	strategy, ok := c.strategies[format]
	if !ok {
		return nil, errs.New(errs.UnsupportedFormat, "no strategy for %s", format)
	}
	return strategy.Apply(ctx, transform.Request{
		Input:      req.Input,
		Output:     req.Output,
		Template:   tpl,
		TemplateID: templateID,
	})
}
