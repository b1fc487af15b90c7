package brandify

import (
	"context"
	"time"

	"github.com/flanksource/brandify/ai"
	"github.com/flanksource/brandify/ai/cache"
	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/convert"
	"github.com/flanksource/brandify/exec"
	"github.com/flanksource/brandify/rasterize"
	"github.com/flanksource/brandify/server"
	"github.com/flanksource/brandify/shutdown"
	"github.com/flanksource/brandify/stylesvc"
	"github.com/flanksource/brandify/transform"
	"github.com/flanksource/commons/logger"
)

var log = logger.GetLogger("brandify")

// Version is set by the binary at build time.
var Version = "dev"

// App holds every component built from Options.
type App struct {
	Options    Options
	Brand      brand.Config
	Rasterizer *rasterize.Manager
	Converter  *convert.Converter
	Remote     *stylesvc.Client
	Model      *ai.Client
	Docker     *exec.Docker
	Cache      *cache.Cache
	Chain      convert.Chain
}

// New loads the brand config and builds the pipeline. The model cache is
// opened only when a model runner is configured and caching is enabled.
func New(opts Options) (*App, error) {
	cfg, err := brand.LoadFile(opts.BrandConfig)
	if err != nil {
		return nil, err
	}
	app := &App{Options: opts, Brand: cfg}

	app.Rasterizer = rasterize.NewDefaultManager(opts.Playwright)
	if opts.Rasterizer != "" {
		if err := app.Rasterizer.SetPreferred(opts.Rasterizer); err != nil {
			log.Warnf("Ignoring --rasterizer: %v", err)
		}
	}
	app.Converter = convert.New(cfg, app.Rasterizer)

	app.Remote = stylesvc.New(stylesvc.Config{
		Endpoint: opts.RemoteEndpoint,
		APIKey:   opts.RemoteAPIKey,
		Timeout:  opts.RemoteTimeout,
	}, cfg)

	if opts.ModelURL != "" && !opts.NoCache {
		app.Cache, err = cache.New(cache.Config{DBPath: opts.CachePath, TTL: opts.CacheTTL})
		if err != nil {
			log.Warnf("Model response cache disabled: %v", err)
			app.Cache = nil
		}
	}
	app.Model = ai.New(ai.Config{
		URL:     opts.ModelURL,
		Engine:  opts.ModelEngine,
		Model:   opts.Model,
		Timeout: opts.ModelTimeout,
	}, cfg, app.Cache)

	app.Docker = exec.NewDocker(opts.ProcessorImage, opts.TemplatesDir, opts.ProcessorTimeout)

	app.Chain, err = convert.ParseOrder(opts.Tiers, app.Tiers())
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Tiers returns every tier by name.
func (a *App) Tiers() map[string]convert.Tier {
	return map[string]convert.Tier{
		convert.TierRemote:  &convert.Remote{Client: a.Remote, Brand: a.Brand},
		convert.TierModel:   &convert.Model{Client: a.Model, Converter: a.Converter},
		convert.TierProcess: &convert.Process{Docker: a.Docker, Brand: a.Brand},
		convert.TierBuiltin: &convert.Builtin{Converter: a.Converter},
		convert.TierCopy:    convert.Copy{},
	}
}

// Convert runs the in-process strategies directly.
func (a *App) Convert(ctx context.Context, req convert.Request) (*transform.Result, error) {
	return a.Converter.Convert(ctx, req)
}

// Server builds the HTTP API over the chain.
func (a *App) Server() *server.Server {
	return server.New(server.Options{UploadsDir: a.Options.UploadsDir, Version: Version}, a.Brand, a.Chain, a.Remote, a.Model)
}

// Serve runs the HTTP API until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	log.Infof("Style service: %s", describe(a.Remote.Configured(), a.Options.RemoteEndpoint))
	log.Infof("Model runner: %s", describe(a.Model.Configured(), a.Options.ModelURL))
	log.Infof("Conversion chain: %v", a.Chain.Names())
	return a.Server().ListenAndServe(ctx, a.Options.Addr(), 10*time.Second)
}

func describe(ok bool, endpoint string) string {
	if ok {
		return endpoint
	}
	return "not configured"
}

// RegisterShutdownHooks closes the app when the process stops.
func (a *App) RegisterShutdownHooks() {
	shutdown.AddHookWithPriority("rasterizers", shutdown.PriorityWorkers, func() {
		if err := a.Rasterizer.Close(); err != nil {
			log.Warnf("Failed to close rasterizers: %v", err)
		}
	})
	shutdown.AddHookWithPriority("model cache", shutdown.PriorityDatabase, func() {
		if a.Cache != nil {
			if err := a.Cache.Close(); err != nil {
				log.Warnf("Failed to close cache: %v", err)
			}
		}
	})
}

// Close releases the rasterizers and the cache.
func (a *App) Close() {
	if a.Rasterizer != nil {
		_ = a.Rasterizer.Close()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
}
