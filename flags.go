package brandify

import (
	"time"

	"github.com/flanksource/brandify/formatters"
	"github.com/flanksource/brandify/task"
	"github.com/flanksource/commons/logger"
	"github.com/spf13/pflag"
)

type AllFlags struct {
	Options                  `yaml:",inline"`
	task.ManagerOptions      `yaml:"-"`
	formatters.FormatOptions `yaml:"-"`
	logger.Flags             `yaml:"-"`
}

var Flags AllFlags = AllFlags{
	Options:        DefaultOptions(),
	ManagerOptions: task.DefaultManagerOptions(),
	Flags: logger.Flags{
		Level:       "info",
		LogToStderr: true,
	},
}

// BindAllFlags adds the logging and service flags to a pflag set (for Cobra).
func BindAllFlags(flags *pflag.FlagSet) AllFlags {
	flags.CountVarP(&Flags.Flags.LevelCount, "loglevel", "v", "Increase logging level")
	flags.StringVar(&Flags.Flags.Level, "log-level", "info", "Set the default log level")
	flags.BoolVar(&Flags.Flags.JsonLogs, "json-logs", false, "Print logs in json format to stderr")
	flags.BoolVar(&Flags.Flags.ReportCaller, "report-caller", false, "Report log caller info")
	flags.BoolVar(&Flags.Flags.LogToStderr, "log-to-stderr", true, "Log to stderr instead of stdout")

	o := &Flags.Options
	flags.StringVar(&o.BrandConfig, "brand", o.BrandConfig, "Brand config YAML (env BRAND_CONFIG)")
	flags.StringVar(&o.UploadsDir, "uploads", o.UploadsDir, "Uploads directory (env UPLOADS_DIR)")

	flags.StringVar(&o.RemoteEndpoint, "mcp-endpoint", o.RemoteEndpoint, "Style service endpoint (env MCP_ENDPOINT)")
	flags.StringVar(&o.RemoteAPIKey, "mcp-api-key", o.RemoteAPIKey, "Style service API key (env MCP_API_KEY)")
	flags.DurationVar(&o.RemoteTimeout, "mcp-timeout", o.RemoteTimeout, "Style service timeout")

	flags.StringVar(&o.ModelURL, "model-runner-url", o.ModelURL, "Model runner URL (env MODEL_RUNNER_URL)")
	flags.StringVar(&o.ModelEngine, "model-runner-engine", o.ModelEngine, "Model runner engine (env MODEL_RUNNER_ENGINE)")
	flags.StringVar(&o.Model, "model", o.Model, "Model name (env DEFAULT_MODEL)")
	flags.DurationVar(&o.ModelTimeout, "model-timeout", o.ModelTimeout, "Model runner timeout")

	flags.StringVar(&o.ProcessorImage, "processor-image", o.ProcessorImage, "Docker image for the process tier (env PROCESSOR_IMAGE)")
	flags.StringVar(&o.TemplatesDir, "templates-dir", o.TemplatesDir, "Directory mounted at /templates in the processor")
	flags.DurationVar(&o.ProcessorTimeout, "processor-timeout", o.ProcessorTimeout, "Processor container timeout")

	flags.StringVar(&o.Tiers, "tiers", o.Tiers, "Fallback chain: remote, model, process, builtin, copy")
	flags.StringVar(&o.Rasterizer, "rasterizer", o.Rasterizer, "Preferred SVG rasterizer: rsvg-convert, inkscape, playwright, oksvg")
	flags.BoolVar(&o.Playwright, "playwright", o.Playwright, "Enable the headless browser rasterizer")

	flags.StringVar(&o.CachePath, "cache-db", o.CachePath, "Model response cache (default ~/.cache/brandify.db)")
	flags.DurationVar(&o.CacheTTL, "cache-ttl", 7*24*time.Hour, "Model response cache TTL")
	flags.BoolVar(&o.NoCache, "no-cache", false, "Disable the model response cache")

	task.BindManagerPFlags(flags, &Flags.ManagerOptions)
	formatters.BindPFlags(flags, &Flags.FormatOptions)
	return Flags
}

func (a AllFlags) String() string {
	s, _ := formatters.YAML(a.Options)
	return s
}

// UseFlags configures logging and resolves the output format. The task
// manager shares --no-color with the formatter.
func (a *AllFlags) UseFlags() error {
	logger.Configure(a.Flags)
	logger.Debugf("Using flags:\n%s", a)
	a.ManagerOptions.NoColor = a.FormatOptions.NoColor
	return a.FormatOptions.ResolveFormat()
}
