package formatters

import (
	"fmt"

	"github.com/spf13/pflag"
)

// FormatOptions contains options for formatting operations
type FormatOptions struct {
	Format  string
	NoColor bool

	// Format-specific boolean flags (mutually exclusive)
	JSON     bool
	YAML     bool
	CSV      bool
	Markdown bool
	Pretty   bool
}

// BindPFlags adds formatting flags to the provided pflag set (for cobra)
func BindPFlags(flags *pflag.FlagSet, options *FormatOptions) {
	flags.StringVar(&options.Format, "format", "pretty", "Output format: pretty, json, yaml, csv, markdown")
	flags.BoolVar(&options.NoColor, "no-color", false, "Disable colored output")

	flags.BoolVar(&options.JSON, "json", false, "Output in JSON format")
	flags.BoolVar(&options.YAML, "yaml", false, "Output in YAML format")
	flags.BoolVar(&options.CSV, "csv", false, "Output in CSV format")
	flags.BoolVar(&options.Markdown, "markdown", false, "Output in Markdown format")
	flags.BoolVar(&options.Pretty, "pretty", false, "Output in pretty format (default)")
}

// ResolveFormat resolves the output format from format-specific flags
func (options *FormatOptions) ResolveFormat() error {
	count := 0
	selected := ""
	for _, f := range []struct {
		set  bool
		name string
	}{
		{options.JSON, "json"},
		{options.YAML, "yaml"},
		{options.CSV, "csv"},
		{options.Markdown, "markdown"},
		{options.Pretty, "pretty"},
	} {
		if f.set {
			count++
			selected = f.name
		}
	}

	if count > 1 {
		return fmt.Errorf("multiple format flags specified; please use only one format flag")
	}
	if count == 1 {
		options.Format = selected
	}
	return nil
}
