// Package transform holds the three in-process branding strategies, one per
// artifact format. Each strategy is built with the brand config it applies
// and is safe for concurrent use.
package transform

import (
	"context"

	"github.com/flanksource/brandify/brand"
)

// Request is a single branding job.
type Request struct {
	Input  string
	Output string
	// Template is already resolved; TemplateID is the id it resolved to.
	Template   brand.Template
	TemplateID string
}

// Strategy brands one artifact format.
type Strategy interface {
	// Name is the processMethod tag reported in the result metadata.
	Name() string
	Apply(ctx context.Context, req Request) (*Result, error)
}

// Rasterizer renders SVG markup to a PNG or JPEG file.
type Rasterizer interface {
	Rasterize(ctx context.Context, svg []byte, outputPath string) error
}

// Process method tags.
const (
	MethodSVG    = "svg"
	MethodJSON   = "json"
	MethodRaster = "raster"
)
