// Package brandify wires the branding pipeline together: brand config,
// strategies, the tiered fallback chain and the services behind it.
package brandify

import (
	"os"
	"strings"
	"time"

	"github.com/flanksource/brandify/ai"
	"github.com/flanksource/brandify/convert"
	"github.com/flanksource/brandify/exec"
	"github.com/flanksource/brandify/stylesvc"
	"github.com/samber/lo"
)

// Options configures an App. Zero durations take the package defaults.
type Options struct {
	Port       string `yaml:"port"`
	UploadsDir string `yaml:"uploadsDir"`
	// BrandConfig is a YAML file; empty uses the built-in brand.
	BrandConfig string `yaml:"brandConfig,omitempty"`

	RemoteEndpoint string        `yaml:"remoteEndpoint,omitempty"`
	RemoteAPIKey   string        `yaml:"-"`
	RemoteTimeout  time.Duration `yaml:"remoteTimeout"`

	ModelURL     string        `yaml:"modelUrl,omitempty"`
	ModelEngine  string        `yaml:"modelEngine"`
	Model        string        `yaml:"model"`
	ModelTimeout time.Duration `yaml:"modelTimeout"`

	ProcessorImage   string        `yaml:"processorImage,omitempty"`
	TemplatesDir     string        `yaml:"templatesDir,omitempty"`
	ProcessorTimeout time.Duration `yaml:"processorTimeout"`

	// Tiers is a comma separated chain, see convert.ParseOrder.
	Tiers string `yaml:"tiers"`

	Rasterizer string `yaml:"rasterizer,omitempty"`
	Playwright bool   `yaml:"playwright"`

	CachePath string        `yaml:"cachePath,omitempty"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
	NoCache   bool          `yaml:"noCache"`
}

// DefaultOptions reads the environment.
func DefaultOptions() Options {
	return Options{
		Port:             lo.CoalesceOrEmpty(os.Getenv("PORT"), "5000"),
		UploadsDir:       lo.CoalesceOrEmpty(os.Getenv("UPLOADS_DIR"), "uploads"),
		BrandConfig:      os.Getenv("BRAND_CONFIG"),
		RemoteEndpoint:   os.Getenv("MCP_ENDPOINT"),
		RemoteAPIKey:     os.Getenv("MCP_API_KEY"),
		RemoteTimeout:    stylesvc.DefaultTimeout,
		ModelURL:         os.Getenv("MODEL_RUNNER_URL"),
		ModelEngine:      lo.CoalesceOrEmpty(os.Getenv("MODEL_RUNNER_ENGINE"), ai.DefaultEngine),
		Model:            lo.CoalesceOrEmpty(os.Getenv("DEFAULT_MODEL"), ai.DefaultModel),
		ModelTimeout:     ai.DefaultTimeout,
		ProcessorImage:   os.Getenv("PROCESSOR_IMAGE"),
		ProcessorTimeout: exec.DefaultTimeout,
		Tiers:            strings.Join(convert.DefaultOrder, ","),
		CacheTTL:         7 * 24 * time.Hour,
	}
}

// Addr is the listen address for Port.
func (o Options) Addr() string {
	if strings.Contains(o.Port, ":") {
		return o.Port
	}
	return ":" + o.Port
}
