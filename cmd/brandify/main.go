package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/flanksource/brandify"
	"github.com/spf13/cobra"
)

// Build information (set by goreleaser)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	brandify.Version = version
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle().Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "brandify",
		Short: "Apply company branding to Excalidraw diagrams",
		Long: `Brandify remaps colors, fonts and stroke widths of Excalidraw exports
(SVG, PNG/JPG or .excalidraw JSON scenes) onto the company brand and
optionally stamps a watermark.

Conversions run in-process by default. The serve command exposes the HTTP API
backed by a fallback chain of the remote style service, a local model runner,
a processor container and a plain copy.`,
		Example: `  brandify convert diagram.svg -t technical -o branded.png
  brandify detect exports/*.svg
  brandify serve --mcp-endpoint http://styles:8080/v1/mcpserver`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return brandify.Flags.UseFlags()
		},
	}
	brandify.BindAllFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newConvertCommand())
	rootCmd.AddCommand(newDetectCommand())
	rootCmd.AddCommand(newTemplatesCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newModelsCommand())
	rootCmd.AddCommand(newCacheCommand())
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(getVersionInfo())
		},
	}
}

func getVersionInfo() string {
	return fmt.Sprintf("brandify %s (commit: %s, built: %s, go: %s)",
		version, commit, date, runtime.Version())
}
