package rasterize

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// RSVGConverter renders with librsvg's rsvg-convert.
type RSVGConverter struct {
	binary string
}

func NewRSVGConverter() *RSVGConverter {
	return &RSVGConverter{binary: "rsvg-convert"}
}

func (c *RSVGConverter) Name() string {
	return "rsvg-convert"
}

func (c *RSVGConverter) IsAvailable() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

// rsvg-convert has no JPEG writer.
func (c *RSVGConverter) SupportedFormats() []string {
	return []string{"png"}
}

func (c *RSVGConverter) Convert(ctx context.Context, svgPath, outputPath string, options *Options) error {
	if options == nil {
		options = DefaultOptions()
	}
	if !supports(c, options.Format) {
		return NewConverterError(c.Name(), "convert", fmt.Errorf("unsupported format: %s", options.Format))
	}

	args := []string{"--format=png"}
	if options.Width > 0 {
		args = append(args, "--width="+strconv.Itoa(options.Width))
	}
	if options.Height > 0 {
		args = append(args, "--height="+strconv.Itoa(options.Height))
	}
	if options.DPI > 0 {
		args = append(args, "--dpi-x="+strconv.Itoa(options.DPI), "--dpi-y="+strconv.Itoa(options.DPI))
	}
	if options.BackgroundColor != "" {
		args = append(args, "--background-color="+options.BackgroundColor)
	}
	args = append(args, "--output="+outputPath, svgPath)

	output, err := exec.CommandContext(ctx, c.binary, args...).CombinedOutput()
	if err != nil {
		return NewConverterError(c.Name(), "convert", fmt.Errorf("command failed: %w, output: %s", err, string(output)))
	}
	return nil
}
