package convert

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/flanksource/brandify/ai"
	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/errs"
	"github.com/flanksource/brandify/exec"
	"github.com/flanksource/brandify/stylesvc"
	"github.com/flanksource/brandify/transform"
)

// Process method tags for the tiers that do not delegate to a strategy.
const (
	MethodRemote  = "mcp"
	MethodModel   = "docker-model-runner"
	MethodProcess = "docker-cli"
	MethodCopy    = "fallback-copy"
)

// CopyMessage is reported when the chain fell through to a plain copy.
const CopyMessage = "Processing failed, returned original image"

// Remote sends the artifact to the style service.
type Remote struct {
	Client *stylesvc.Client
	Brand  brand.Config
}

func (t *Remote) Name() string     { return TierRemote }
func (t *Remote) Configured() bool { return t.Client.Configured() }

func (t *Remote) Run(ctx context.Context, req Request) (*transform.Result, error) {
	_, id := t.Brand.ResolveTemplate(req.TemplateID)
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(req.Output)), ".")
	res, err := t.Client.Process(ctx, req.Input, id, format)
	if err != nil {
		return nil, err
	}
	if err := transform.WriteAtomic(req.Output, res.Image); err != nil {
		return nil, err
	}
	return &transform.Result{
		Success: true,
		Output:  req.Output,
		Metadata: transform.Metadata{
			ProcessMethod:   MethodRemote,
			TemplateApplied: id,
			Extra:           res.Metadata,
		},
	}, nil
}

// Model asks the model runner for style parameters and applies them with
// the in-process strategies.
type Model struct {
	Client    *ai.Client
	Converter *Converter
}

func (t *Model) Name() string     { return TierModel }
func (t *Model) Configured() bool { return t.Client.Configured() }

func (t *Model) Run(ctx context.Context, req Request) (*transform.Result, error) {
	style, err := t.Client.RequestStyle(ctx, req.Input, req.TemplateID)
	if err != nil {
		return nil, err
	}

	cfg := AdjustColors(t.Converter.Brand(), style.Params.ColorAdjustments)
	tpl, id := StyleTemplate(cfg, req.TemplateID, style.Params)
	converter := t.Converter
	if len(style.Params.ColorAdjustments) > 0 {
		converter = converter.WithBrand(cfg)
	}

	result, err := converter.Apply(ctx, req, tpl, id)
	if err != nil {
		return nil, err
	}
	result.Metadata.Extra = map[string]any{"strategy": result.Metadata.ProcessMethod, "cacheHit": style.CacheHit}
	result.Metadata.ProcessMethod = MethodModel
	result.Metadata.Model = style.Model
	result.Metadata.StyleParams = style.Params.Map()
	return result, nil
}

// StyleTemplate resolves the template the model chose. A style_name that
// is not a known template keeps the requested one; add_logo and a valid
// logo_position override the watermark settings.
func StyleTemplate(cfg brand.Config, requested string, params ai.StyleParams) (brand.Template, string) {
	tpl, id := cfg.ResolveTemplate(requested)
	if chosen, ok := cfg.Templates[params.StyleName]; ok {
		tpl, id = chosen, params.StyleName
	}
	if params.AddLogo != nil {
		tpl.AddWatermark = *params.AddLogo
	}
	if pos := brand.Position(params.LogoPosition); pos.Valid() {
		tpl.WatermarkPosition = pos
	}
	return tpl, id
}

// AdjustColors returns a copy of cfg whose primary and secondary colors
// follow the model's color_adjustments. Mapping entries that targeted the
// old color are redirected. Invalid colors are ignored.
func AdjustColors(cfg brand.Config, adjustments map[string]string) brand.Config {
	if len(adjustments) == 0 {
		return cfg
	}
	mapping := make([]brand.ColorPair, len(cfg.ColorMapping))
	copy(mapping, cfg.ColorMapping)

	retarget := func(old, next string) {
		for i := range mapping {
			if strings.EqualFold(mapping[i].To, old) {
				mapping[i].To = next
			}
		}
	}
	if c, ok := adjustments["primary_color"]; ok && brand.IsHexColor(c) {
		retarget(cfg.Colors.Primary, c)
		cfg.Colors.Primary = c
	}
	if c, ok := adjustments["secondary_color"]; ok && brand.IsHexColor(c) {
		retarget(cfg.Colors.Secondary, c)
		cfg.Colors.Secondary = c
	}
	cfg.ColorMapping = mapping
	return cfg
}

// Process runs the style processor container.
type Process struct {
	Docker *exec.Docker
	Brand  brand.Config
}

func (t *Process) Name() string     { return TierProcess }
func (t *Process) Configured() bool { return t.Docker.Configured() }

func (t *Process) Run(ctx context.Context, req Request) (*transform.Result, error) {
	_, id := t.Brand.ResolveTemplate(req.TemplateID)
	if err := t.Docker.Process(ctx, req.Input, req.Output, id); err != nil {
		return nil, err
	}
	return &transform.Result{
		Success: true,
		Output:  req.Output,
		Metadata: transform.Metadata{
			ProcessMethod:   MethodProcess,
			TemplateApplied: id,
			Extra:           map[string]any{"image": t.Docker.Image},
		},
	}, nil
}

// Builtin runs the in-process strategies.
type Builtin struct {
	Converter *Converter
}

func (t *Builtin) Name() string     { return TierBuiltin }
func (t *Builtin) Configured() bool { return t.Converter != nil }

func (t *Builtin) Run(ctx context.Context, req Request) (*transform.Result, error) {
	return t.Converter.Convert(ctx, req)
}

// Copy writes the input unchanged. It only fails on I/O errors.
type Copy struct{}

func (Copy) Name() string     { return TierCopy }
func (Copy) Configured() bool { return true }

func (Copy) Run(_ context.Context, req Request) (*transform.Result, error) {
	data, err := os.ReadFile(req.Input)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "failed to read %s", filepath.Base(req.Input))
	}
	if err := transform.WriteAtomic(req.Output, data); err != nil {
		return nil, err
	}
	return &transform.Result{
		Success: true,
		Output:  req.Output,
		Metadata: transform.Metadata{
			ProcessMethod: MethodCopy,
			Message:       CopyMessage,
			Fallback:      true,
		},
	}, nil
}
