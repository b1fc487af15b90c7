package rasterize

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// InkscapeConverter renders with the Inkscape 1.x command line.
type InkscapeConverter struct {
	binary string
}

func NewInkscapeConverter() *InkscapeConverter {
	return &InkscapeConverter{binary: "inkscape"}
}

func (c *InkscapeConverter) Name() string {
	return "inkscape"
}

func (c *InkscapeConverter) IsAvailable() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

func (c *InkscapeConverter) SupportedFormats() []string {
	return []string{"png"}
}

func (c *InkscapeConverter) Convert(ctx context.Context, svgPath, outputPath string, options *Options) error {
	if options == nil {
		options = DefaultOptions()
	}
	if !supports(c, options.Format) {
		return NewConverterError(c.Name(), "convert", fmt.Errorf("unsupported format: %s", options.Format))
	}

	args := []string{
		svgPath,
		"--export-filename=" + outputPath,
		"--export-type=png",
	}
	if options.Width > 0 {
		args = append(args, "--export-width="+strconv.Itoa(options.Width))
	}
	if options.Height > 0 {
		args = append(args, "--export-height="+strconv.Itoa(options.Height))
	}
	if options.DPI > 0 {
		args = append(args, "--export-dpi="+strconv.Itoa(options.DPI))
	}
	if options.BackgroundColor != "" {
		args = append(args, "--export-background="+options.BackgroundColor)
	}

	output, err := exec.CommandContext(ctx, c.binary, args...).CombinedOutput()
	if err != nil {
		return NewConverterError(c.Name(), "convert", fmt.Errorf("command failed: %w, output: %s", err, string(output)))
	}
	return nil
}
