package exec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flanksource/brandify/errs"
	"github.com/flanksource/commons/text"
)

const (
	DefaultImage   = "company-style-processor:latest"
	DefaultTimeout = 120 * time.Second
)

// Docker runs the style processor image against one file. The input is
// mounted read-only at /input<ext>, the output directory at /output, and
// the container is told which template and output file to use through
// TEMPLATE_NAME and OUTPUT_FILE.
type Docker struct {
	Binary       string
	Image        string
	TemplatesDir string
	Timeout      time.Duration
}

// NewDocker returns a runner for image with the default binary and timeout.
func NewDocker(image, templatesDir string, timeout time.Duration) *Docker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Docker{Binary: "docker", Image: image, TemplatesDir: templatesDir, Timeout: timeout}
}

// Configured reports whether an image is set.
func (d *Docker) Configured() bool {
	return d != nil && d.Image != ""
}

// Args builds the docker command line for one conversion.
func (d *Docker) Args(input, output, templateID string) ([]string, error) {
	absInput, err := filepath.Abs(input)
	if err != nil {
		return nil, err
	}
	absOutput, err := filepath.Abs(output)
	if err != nil {
		return nil, err
	}

	args := []string{
		"run", "--rm",
		"-v", absInput + ":/input" + strings.ToLower(filepath.Ext(input)) + ":ro",
		"-v", filepath.Dir(absOutput) + ":/output",
	}
	if d.TemplatesDir != "" {
		templates, err := filepath.Abs(d.TemplatesDir)
		if err != nil {
			return nil, err
		}
		args = append(args, "-v", templates+":/templates:ro")
	}
	args = append(args,
		"-e", "TEMPLATE_NAME="+templateID,
		"-e", "OUTPUT_FILE=/output/"+filepath.Base(absOutput),
		d.Image,
	)
	return args, nil
}

// Process converts input to output inside the container. A failed run
// never leaves a partial output behind.
func (d *Docker) Process(ctx context.Context, input, output, templateID string) error {
	if !d.Configured() {
		return errs.New(errs.ProcessingError, "no processor image configured")
	}
	if _, err := os.Stat(input); err != nil {
		return errs.Wrap(errs.IOError, err, "failed to read %s", filepath.Base(input))
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return errs.Wrap(errs.IOError, err, "failed to create output directory")
	}
	args, err := d.Args(input, output, templateID)
	if err != nil {
		return errs.Wrap(errs.ProcessingError, err, "invalid processor paths")
	}

	p := New(d.Binary, args...).WithTimeout(d.Timeout).Run(ctx)
	if !p.IsOK() {
		os.Remove(output)
		if p.TimedOut() {
			return errs.New(errs.ProcessingError, "%s timed out after %s", d.Image, text.HumanizeDuration(d.Timeout))
		}
		return errs.Wrap(errs.ProcessingError, fmt.Errorf("%v: %s", p.Err, strings.TrimSpace(p.Out())), "%s failed", d.Image)
	}
	if _, err := os.Stat(output); err != nil {
		return errs.New(errs.ProcessingError, "%s produced no output", d.Image)
	}
	p.Log.Debugf("%s finished in %s", d.Image, text.HumanizeDuration(p.Duration))
	return nil
}
