package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/flanksource/brandify"
	"github.com/flanksource/brandify/formatters"
	"golang.org/x/term"
)

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func style(color string) lipgloss.Style {
	if !isTerminal() || brandify.Flags.FormatOptions.NoColor {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func errorStyle() lipgloss.Style   { return style("9").Bold(true) }
func successStyle() lipgloss.Style { return style("10") }
func mutedStyle() lipgloss.Style   { return style("8") }

// printFormatted writes v to stdout in the format chosen by the global
// format flags.
func printFormatted(v any) error {
	out, err := formatters.Format(v, brandify.Flags.FormatOptions)
	if err != nil {
		return err
	}
	if out == "" {
		return nil
	}
	if out[len(out)-1] != '\n' {
		out += "\n"
	}
	_, err = fmt.Fprint(os.Stdout, out)
	return err
}
