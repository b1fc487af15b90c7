package transform

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	return img
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return writeInput(t, "diagram.png", buf.String())
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

// changedBounds returns the bounding box of pixels that differ at 8 bits
// per channel.
func changedBounds(a, b image.Image) image.Rectangle {
	var r image.Rectangle
	bounds := a.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r1, g1, b1, a1 := a.At(x, y).RGBA()
			r2, g2, b2, a2 := b.At(x, y).RGBA()
			if r1>>8 != r2>>8 || g1>>8 != g2>>8 || b1>>8 != b2>>8 || a1>>8 != a2>>8 {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

func TestRasterWithoutWatermarkIsIdentical(t *testing.T) {
	src := whiteImage(64, 32)
	src.Set(3, 3, color.RGBA{25, 113, 194, 255})
	in := writePNG(t, src)
	out := filepath.Join(t.TempDir(), "out.png")

	tpl, id := brand.Default().ResolveTemplate("presentation")
	require.False(t, tpl.AddWatermark)

	result, err := NewRaster(brand.Default()).Apply(context.Background(), Request{Input: in, Output: out, Template: tpl, TemplateID: id})
	require.NoError(t, err)
	assert.Equal(t, MethodRaster, result.Metadata.ProcessMethod)

	original, err := os.ReadFile(in)
	require.NoError(t, err)
	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, original, written)
}

func TestRasterFormatChangeKeepsPixels(t *testing.T) {
	src := whiteImage(16, 16)
	src.Set(1, 1, color.RGBA{0, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, &jpeg.Options{Quality: 100}))
	in := writeInput(t, "photo.jpg", buf.String())
	out := filepath.Join(t.TempDir(), "out.png")

	_, err := NewRaster(brand.Default()).Apply(context.Background(), Request{Input: in, Output: out, Template: brand.Template{}})
	require.NoError(t, err)

	decodedIn, err := jpeg.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.True(t, changedBounds(decodedIn, decodePNG(t, out)).Empty())
}

func TestRasterWatermarkCorners(t *testing.T) {
	const w, h = 320, 120
	src := whiteImage(w, h)
	in := writePNG(t, src)

	tests := []struct {
		pos   brand.Position
		check func(t *testing.T, r image.Rectangle)
	}{
		{brand.BottomRight, func(t *testing.T, r image.Rectangle) {
			assert.LessOrEqual(t, r.Max.X, w-WatermarkMargin+2)
			assert.Greater(t, r.Min.X, w/2)
			assert.LessOrEqual(t, r.Max.Y, h-WatermarkMargin+4)
			assert.Greater(t, r.Min.Y, h/2)
		}},
		{brand.TopLeft, func(t *testing.T, r image.Rectangle) {
			assert.GreaterOrEqual(t, r.Min.X, WatermarkMargin-2)
			assert.Less(t, r.Max.X, w/2)
			assert.GreaterOrEqual(t, r.Min.Y, WatermarkMargin-2)
			assert.Less(t, r.Max.Y, h/2)
		}},
		{brand.TopRight, func(t *testing.T, r image.Rectangle) {
			assert.Greater(t, r.Min.X, w/2)
			assert.Less(t, r.Max.Y, h/2)
		}},
		{brand.BottomLeft, func(t *testing.T, r image.Rectangle) {
			assert.Less(t, r.Max.X, w/2)
			assert.Greater(t, r.Min.Y, h/2)
		}},
		{"somewhere", func(t *testing.T, r image.Rectangle) {
			assert.Greater(t, r.Min.X, w/2, "unknown position falls back to bottom-right")
			assert.Greater(t, r.Min.Y, h/2)
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.pos), func(t *testing.T) {
			cfg := brand.Default()
			cfg.Watermark.Position = tt.pos
			out := filepath.Join(t.TempDir(), "out.png")

			_, err := NewRaster(cfg).Apply(context.Background(), Request{
				Input:    in,
				Output:   out,
				Template: brand.Template{AddWatermark: true},
			})
			require.NoError(t, err)

			changed := changedBounds(src, decodePNG(t, out))
			require.False(t, changed.Empty(), "watermark drew nothing")
			tt.check(t, changed)
		})
	}
}

func TestRasterWatermarkFontSize(t *testing.T) {
	src := whiteImage(400, 200)
	in := writePNG(t, src)

	bounds := func(size float64) image.Rectangle {
		cfg := brand.Default()
		cfg.Watermark.FontSize = size
		out := filepath.Join(t.TempDir(), "out.png")
		_, err := NewRaster(cfg).Apply(context.Background(), Request{
			Input: in, Output: out, Template: brand.Template{AddWatermark: true},
		})
		require.NoError(t, err)
		return changedBounds(src, decodePNG(t, out))
	}

	small, large := bounds(14), bounds(28)
	require.False(t, small.Empty())
	assert.Greater(t, large.Dx(), small.Dx()*3/2)
	assert.Greater(t, large.Dy(), small.Dy()*3/2)
	assert.LessOrEqual(t, large.Max.Y, 200-WatermarkMargin+3)
}

func TestRasterJPEGOutput(t *testing.T) {
	in := writePNG(t, whiteImage(50, 50))
	out := filepath.Join(t.TempDir(), "out.jpeg")

	tpl, id := brand.Default().ResolveTemplate("excalidraw")
	_, err := NewRaster(brand.Default()).Apply(context.Background(), Request{Input: in, Output: out, Template: tpl, TemplateID: id})
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestRasterErrors(t *testing.T) {
	r := NewRaster(brand.Default())
	dir := t.TempDir()

	t.Run("not an image", func(t *testing.T) {
		in := writeInput(t, "fake.png", "definitely not a png")
		_, err := r.Apply(context.Background(), Request{Input: in, Output: filepath.Join(dir, "a.png")})
		assert.True(t, errs.Is(err, errs.IOError))
		assert.NoFileExists(t, filepath.Join(dir, "a.png"))
	})

	t.Run("non raster output", func(t *testing.T) {
		in := writePNG(t, whiteImage(4, 4))
		_, err := r.Apply(context.Background(), Request{Input: in, Output: filepath.Join(dir, "a.svg")})
		assert.True(t, errs.Is(err, errs.UnsupportedFormat))
	})

	t.Run("missing font", func(t *testing.T) {
		cfg := brand.Default()
		cfg.Watermark.FontPath = filepath.Join(dir, "missing.ttf")
		in := writePNG(t, whiteImage(4, 4))
		_, err := NewRaster(cfg).Apply(context.Background(), Request{
			Input: in, Output: filepath.Join(dir, "b.png"), Template: brand.Template{AddWatermark: true},
		})
		assert.True(t, errs.Is(err, errs.IOError))
	})
}
