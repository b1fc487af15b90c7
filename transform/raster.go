package transform

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"sync"

	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/errs"
	"github.com/flanksource/brandify/rasterize"
	"github.com/flanksource/commons/logger"
	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// WatermarkMargin is the distance in pixels between the label and the
// image edges.
const WatermarkMargin = 20

// JPEGQuality is used for every JPEG this package writes.
const JPEGQuality = 95

// Raster stamps the watermark onto PNG and JPEG images. Pixels are never
// recolored.
type Raster struct {
	cfg brand.Config
}

func NewRaster(cfg brand.Config) *Raster {
	return &Raster{cfg: cfg}
}

func (r *Raster) Name() string { return MethodRaster }

var (
	defaultFont     *opentype.Font
	defaultFontErr  error
	defaultFontOnce sync.Once
)

// face returns the watermark face at the configured size: FontPath when
// set, Go Regular otherwise.
func (r *Raster) face() (font.Face, error) {
	size := r.cfg.Watermark.FontSize
	if size <= 0 {
		size = 14
	}
	if r.cfg.Watermark.FontPath != "" {
		face, err := gg.LoadFontFace(r.cfg.Watermark.FontPath, size)
		if err != nil {
			return nil, errs.Wrap(errs.IOError, err, "failed to load watermark font")
		}
		return face, nil
	}

	defaultFontOnce.Do(func() {
		defaultFont, defaultFontErr = opentype.Parse(goregular.TTF)
	})
	if defaultFontErr != nil {
		return nil, errs.Wrap(errs.ProcessingError, defaultFontErr, "failed to parse default watermark font")
	}
	face, err := opentype.NewFace(defaultFont, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, errs.Wrap(errs.ProcessingError, err, "failed to build watermark face")
	}
	return face, nil
}

// Watermark draws the brand label onto a copy of img at pos. The label
// stays fully inside the margin, descenders included.
func (r *Raster) Watermark(img image.Image, pos brand.Position) (image.Image, error) {
	face, err := r.face()
	if err != nil {
		return nil, err
	}
	defer face.Close()

	dc := gg.NewContextForImage(img)
	dc.SetFontFace(face)

	c, err := colorful.Hex(r.cfg.Colors.Primary)
	if err != nil {
		logger.Warnf("Invalid primary color %q, drawing watermark in black", r.cfg.Colors.Primary)
		c = colorful.Color{}
	}
	dc.SetRGBA(c.R, c.G, c.B, r.cfg.Watermark.Opacity)

	label := r.cfg.Watermark.Label
	w, _ := dc.MeasureString(label)
	metrics := face.Metrics()
	ascent := float64(metrics.Ascent) / 64
	descent := float64(metrics.Descent) / 64
	width, height := float64(dc.Width()), float64(dc.Height())

	// y is the text baseline
	x, y := width-WatermarkMargin-w, height-WatermarkMargin-descent
	switch pos.OrDefault() {
	case brand.TopLeft:
		x, y = WatermarkMargin, WatermarkMargin+ascent
	case brand.TopRight:
		y = WatermarkMargin + ascent
	case brand.BottomLeft:
		x = WatermarkMargin
	}
	dc.DrawString(label, x, y)
	return dc.Image(), nil
}

func (r *Raster) Apply(_ context.Context, req Request) (*Result, error) {
	data, err := readInput(req.Input)
	if err != nil {
		return nil, err
	}
	outFormat, err := rasterize.FormatForPath(req.Output)
	if err != nil {
		return nil, errs.New(errs.UnsupportedFormat, "raster input cannot be written as %s", filepath.Ext(req.Output))
	}

	img, inFormat, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "failed to decode %s", filepath.Base(req.Input))
	}
	if inFormat == "jpeg" {
		inFormat = "jpg"
	}

	var out []byte
	switch {
	case req.Template.AddWatermark:
		stamped, err := r.Watermark(img, r.cfg.WatermarkPosition(req.Template))
		if err != nil {
			return nil, err
		}
		if out, err = encode(stamped, outFormat); err != nil {
			return nil, err
		}
	case inFormat == outFormat:
		// nothing to draw: keep the original bytes
		out = data
	default:
		if out, err = encode(img, outFormat); err != nil {
			return nil, err
		}
	}

	if err := WriteAtomic(req.Output, out); err != nil {
		return nil, err
	}
	return success(req.Output, MethodRaster, req.TemplateID), nil
}

func encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if format == "png" {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, errs.Wrap(errs.ProcessingError, err, "failed to encode %s", format)
	}
	return buf.Bytes(), nil
}
