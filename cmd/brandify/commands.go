package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flanksource/brandify"
	"github.com/flanksource/brandify/ai/cache"
	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/convert"
	"github.com/flanksource/brandify/detect"
	"github.com/flanksource/brandify/shutdown"
	"github.com/flanksource/brandify/task"
	"github.com/flanksource/brandify/transform"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newConvertCommand() *cobra.Command {
	var output, templateID, to string
	var useChain bool

	cmd := &cobra.Command{
		Use:   "convert <input> [input...]",
		Short: "Brand one or more diagrams",
		Long: `Brand SVG, PNG/JPG or Excalidraw JSON files with a template.

Without --output each result is written next to its input as
<name>-branded.<ext>. --to changes the output type, e.g. an SVG can be
rasterized to png or jpg. Inputs are converted as tasks, see --max-concurrent
and --max-retries.`,
		Example: `  brandify convert diagram.svg
  brandify convert diagram.svg -t presentation --to png
  brandify convert scene.excalidraw.json -o out/scene.json
  brandify convert exports/*.png --chain --tiers remote,model,builtin,copy --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && len(args) > 1 {
				return fmt.Errorf("--output can only be used with a single input")
			}
			app, err := brandify.New(brandify.Flags.Options)
			if err != nil {
				return err
			}
			defer app.Close()

			run := app.Convert
			if useChain {
				run = app.Chain.Run
			}

			ctx, cancel := shutdown.WithSignals(cmd.Context())
			defer cancel()
			manager := task.NewManager(ctx, brandify.Flags.ManagerOptions)

			results := make([]*transform.Result, len(args))
			for i, input := range args {
				out := output
				if out == "" {
					out = defaultOutput(input, to)
				}
				req := convert.Request{Input: input, Output: out, TemplateID: templateID}
				manager.Start(input, func(ctx context.Context, t *task.Task) error {
					t.Infof("converting to %s", req.Output)
					res, err := run(ctx, req)
					if err != nil {
						return err
					}
					results[i] = res
					if res.Metadata.Fallback {
						t.Warnf("%s (%s)", res.Metadata.Message, res.Output)
					} else {
						t.Infof("%s via %s", res.Output, res.Metadata.ProcessMethod)
					}
					return nil
				})
			}

			failed := manager.Wait()
			if err := printFormatted(lo.Compact(results)); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d conversions failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	cmd.Flags().StringVarP(&templateID, "template", "t", "", "Template id (default from the brand config)")
	cmd.Flags().StringVar(&to, "to", "", "Output type: svg, png, jpg, json (default: same as input)")
	cmd.Flags().BoolVar(&useChain, "chain", false, "Run the fallback chain instead of the in-process strategies")
	return cmd
}

func defaultOutput(input, format string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)
	if format != "" {
		ext = "." + strings.TrimPrefix(strings.ToLower(format), ".")
	}
	return filepath.Join(filepath.Dir(input), stem+"-branded"+ext)
}

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file> [file...]",
		Short: "Show the detected format and size of diagram files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var infos []detect.Info
			var errs []error
			for _, path := range args {
				info, err := detect.Inspect(path)
				if err != nil {
					errs = append(errs, err)
					fmt.Fprintf(os.Stderr, "%s %s: %v\n", errorStyle().Render("✗"), path, err)
					continue
				}
				infos = append(infos, info)
			}
			var err error
			if len(args) == 1 && len(infos) == 1 {
				err = printFormatted(infos[0])
			} else if len(infos) > 0 {
				err = printFormatted(infos)
			}
			return errors.Join(append(errs, err)...)
		},
	}
}

func newTemplatesCommand() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the available templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := brand.LoadFile(brandify.Flags.BrandConfig)
			if err != nil {
				return err
			}
			templates := cfg.TemplateList()
			if remote {
				app, err := brandify.New(brandify.Flags.Options)
				if err != nil {
					return err
				}
				defer app.Close()
				if templates, err = app.Remote.Templates(cmd.Context()); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(os.Stderr, mutedStyle().Render("default: "+cfg.DefaultTemplate))
			}
			return printFormatted(templates)
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "List the templates of the remote style service")
	return cmd
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the conversion API:

  GET  /api/templates             list templates
  POST /api/convert               multipart upload (file or image, template, outputFormat)
  GET  /api/health                service status
  GET  /api/model-runner/status   model runner configuration
  GET  /uploads/*                 uploaded and converted files`,
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := cmd.Flags().GetString("port")
			if port != "" {
				brandify.Flags.Port = port
			}
			app, err := brandify.New(brandify.Flags.Options)
			if err != nil {
				return err
			}
			app.RegisterShutdownHooks()

			ctx, cancel := shutdown.WithSignals(cmd.Context())
			defer cancel()
			err = app.Serve(ctx)
			shutdown.Shutdown()
			return err
		},
	}
	cmd.Flags().StringP("port", "p", "", "Listen port or address (env PORT, default 5000)")
	return cmd
}

func newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models served by the model runner",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := brandify.New(brandify.Flags.Options)
			if err != nil {
				return err
			}
			defer app.Close()
			if !app.Model.Configured() {
				return fmt.Errorf("no model runner configured, set --model-runner-url or MODEL_RUNNER_URL")
			}
			models, err := app.Model.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			current := app.Model.GetConfig().Model
			for _, m := range models {
				if m == current {
					fmt.Println(successStyle().Render("* " + m))
				} else {
					fmt.Println("  " + m)
				}
			}
			return nil
		},
	}
}

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the model response cache",
	}

	open := func() (*cache.Cache, error) {
		return cache.New(cache.Config{DBPath: brandify.Flags.CachePath, TTL: brandify.Flags.CacheTTL})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics per model",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()
			stats, err := c.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, mutedStyle().Render(c.Path()))
			if len(stats) == 0 {
				fmt.Fprintln(os.Stderr, "No cached responses")
				return nil
			}
			return printFormatted(stats)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached response",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()
			n, err := c.Clear()
			if err != nil {
				return err
			}
			fmt.Println(successStyle().Render(fmt.Sprintf("Removed %d cached responses", n)))
			return nil
		},
	})
	return cmd
}
