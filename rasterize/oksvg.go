package rasterize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// fallbackWidth is used when the SVG declares no usable size.
const fallbackWidth = 800

// OKSVGConverter renders in process with oksvg. It supports a subset of
// SVG (no text shaping, no filters) and needs nothing installed, so it is
// registered last as the converter of final resort.
type OKSVGConverter struct{}

func NewOKSVGConverter() *OKSVGConverter {
	return &OKSVGConverter{}
}

func (c *OKSVGConverter) Name() string {
	return "oksvg"
}

func (c *OKSVGConverter) IsAvailable() bool {
	return true
}

func (c *OKSVGConverter) SupportedFormats() []string {
	return []string{"png", "jpg", "jpeg"}
}

func (c *OKSVGConverter) Convert(ctx context.Context, svgPath, outputPath string, options *Options) error {
	if options == nil {
		options = DefaultOptions()
	}
	format := strings.ToLower(options.Format)
	if !supports(c, format) {
		return NewConverterError(c.Name(), "convert", fmt.Errorf("unsupported format: %s", format))
	}

	svgBytes, err := os.ReadFile(svgPath)
	if err != nil {
		return NewConverterError(c.Name(), "read SVG", err)
	}
	if err := ctx.Err(); err != nil {
		return NewConverterError(c.Name(), "convert", err)
	}

	img, err := c.render(svgBytes, options, format != "png")
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if format == "png" {
		err = png.Encode(&buf, img)
	} else {
		quality := options.Quality
		if quality <= 0 {
			quality = 95
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return NewConverterError(c.Name(), "encode "+format, err)
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return NewConverterError(c.Name(), "write output", err)
	}
	return nil
}

func (c *OKSVGConverter) render(svgBytes []byte, options *Options, opaque bool) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgBytes), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, NewConverterError(c.Name(), "parse SVG", err)
	}

	width, height := options.Width, options.Height
	if width <= 0 || height <= 0 {
		w, h, err := Dimensions(svgBytes)
		if err != nil {
			w, h = icon.ViewBox.W, icon.ViewBox.H
		}
		if w <= 0 || h <= 0 {
			w, h = fallbackWidth, fallbackWidth
		}
		width, height = scale(w, h, width, height)
	}

	icon.SetTarget(0, 0, float64(width), float64(height))
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))

	var bg color.Color
	if options.BackgroundColor != "" {
		parsed, err := colorful.Hex(options.BackgroundColor)
		if err != nil {
			return nil, NewConverterError(c.Name(), "parse background", err)
		}
		bg = parsed
	} else if opaque {
		bg = color.White
	}
	if bg != nil {
		draw.Draw(rgba, rgba.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}

	scanner := rasterx.NewScannerGV(width, height, rgba, rgba.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)
	icon.Draw(raster, 1.0)
	return rgba, nil
}

// scale fills in a missing target dimension from the SVG aspect ratio.
func scale(svgW, svgH float64, width, height int) (int, int) {
	switch {
	case width > 0:
		return width, int(math.Max(1, math.Round(float64(width)*svgH/svgW)))
	case height > 0:
		return int(math.Max(1, math.Round(float64(height)*svgW/svgH))), height
	default:
		return int(math.Max(1, math.Round(svgW))), int(math.Max(1, math.Round(svgH)))
	}
}
