// Package rasterize renders branded SVG documents to PNG or JPEG through a
// prioritized list of converters: external tools when installed, a headless
// browser when enabled, and a pure Go renderer that is always present.
package rasterize

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Converter turns an SVG file into a raster file.
type Converter interface {
	// Name returns the name of the converter
	Name() string

	// IsAvailable checks if the converter can run on this system
	IsAvailable() bool

	// SupportedFormats returns the output formats this converter writes
	SupportedFormats() []string

	Convert(ctx context.Context, svgPath, outputPath string, options *Options) error
}

// Options holds options for a single conversion.
type Options struct {
	// Output format (png, jpg, jpeg)
	Format string

	// Output width in pixels (0 = from the SVG)
	Width int

	// Output height in pixels (0 = from the SVG)
	Height int

	// DPI for external tools (0 = tool default)
	DPI int

	// Background color, transparent if empty. JPEG output is always opaque.
	BackgroundColor string

	// Quality for JPEG (1-100, 0 = 95)
	Quality int
}

// DefaultOptions returns PNG output at the SVG's own size.
func DefaultOptions() *Options {
	return &Options{
		Format:  "png",
		DPI:     96,
		Quality: 95,
	}
}

// FormatForPath returns the raster format implied by path's extension.
func FormatForPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return "png", nil
	case ".jpg", ".jpeg":
		return "jpg", nil
	default:
		return "", fmt.Errorf("%q is not a raster output", ext)
	}
}

// ConverterError represents an error from a converter
type ConverterError struct {
	Converter string
	Operation string
	Err       error
}

func (e *ConverterError) Error() string {
	return fmt.Sprintf("%s converter %s failed: %v", e.Converter, e.Operation, e.Err)
}

func (e *ConverterError) Unwrap() error {
	return e.Err
}

// NewConverterError creates a new converter error
func NewConverterError(converter, operation string, err error) error {
	return &ConverterError{
		Converter: converter,
		Operation: operation,
		Err:       err,
	}
}

func supports(c Converter, format string) bool {
	for _, f := range c.SupportedFormats() {
		if f == format {
			return true
		}
	}
	return false
}
