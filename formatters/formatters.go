// Package formatters renders command results as pretty text, JSON, YAML,
// CSV or Markdown.
package formatters

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Format renders data in the format selected by opts.
func Format(data any, opts FormatOptions) (string, error) {
	if err := opts.ResolveFormat(); err != nil {
		return "", err
	}
	switch strings.ToLower(opts.Format) {
	case "json":
		return JSON(data)
	case "yaml", "yml":
		return YAML(data)
	case "csv":
		return CSV(data)
	case "markdown", "md":
		return Markdown(data)
	case "", "pretty":
		return Pretty(data, opts.NoColor)
	default:
		return "", fmt.Errorf("unsupported format: %s", opts.Format)
	}
}

func JSON(data any) (string, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func YAML(data any) (string, error) {
	b, err := yaml.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CSV writes a header of column keys followed by one record per row.
// Nested structs are flattened into dotted keys.
func CSV(data any) (string, error) {
	t, err := toTable(data)
	if err != nil {
		return "", err
	}
	if len(t.columns) == 0 {
		return "", nil
	}

	var out strings.Builder
	w := csv.NewWriter(&out)
	if err := w.Write(lo.Map(t.columns, func(c column, _ int) string { return c.Key })); err != nil {
		return "", err
	}
	for _, row := range t.rows {
		if err := w.Write(lo.Map(t.columns, func(c column, _ int) string { return row[c.Key] })); err != nil {
			return "", err
		}
	}
	w.Flush()
	return out.String(), w.Error()
}

func Markdown(data any) (string, error) {
	t, err := toTable(data)
	if err != nil {
		return "", err
	}
	cols := t.used()
	if len(cols) == 0 {
		return "", nil
	}

	var out strings.Builder
	if !t.list {
		for _, c := range cols {
			if v := t.rows[0][c.Key]; v != "" {
				fmt.Fprintf(&out, "- **%s**: %s\n", c.Label, escapeMarkdown(v))
			}
		}
		return out.String(), nil
	}

	out.WriteString("| " + strings.Join(lo.Map(cols, func(c column, _ int) string { return c.Label }), " | ") + " |\n")
	out.WriteString("|" + strings.Repeat(" --- |", len(cols)) + "\n")
	for _, row := range t.rows {
		cells := lo.Map(cols, func(c column, _ int) string { return escapeMarkdown(row[c.Key]) })
		out.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return out.String(), nil
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

// Pretty renders lists as a bordered table and a single struct as aligned
// "label: value" lines. Empty values are skipped.
func Pretty(data any, noColor bool) (string, error) {
	t, err := toTable(data)
	if err != nil {
		return "", err
	}
	cols := t.used()
	if len(cols) == 0 {
		return "", nil
	}

	renderer := lipgloss.DefaultRenderer()
	if noColor {
		renderer = lipgloss.NewRenderer(io.Discard)
		renderer.SetColorProfile(termenv.Ascii)
	}
	label := renderer.NewStyle().Foreground(lipgloss.Color("14"))

	if !t.list {
		width := lo.Max(lo.Map(cols, func(c column, _ int) int { return len(c.Label) }))
		var out strings.Builder
		for _, c := range cols {
			v := t.rows[0][c.Key]
			if v == "" {
				continue
			}
			fmt.Fprintf(&out, "%s %s\n", label.Render(c.Label+":"+strings.Repeat(" ", width-len(c.Label))), v)
		}
		return out.String(), nil
	}

	header := renderer.NewStyle().Foreground(lipgloss.Color("8")).Bold(true).Padding(0, 1)
	plain := renderer.NewStyle().Padding(0, 1)
	tbl := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(renderer.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(lo.Map(cols, func(c column, _ int) string { return c.Label })...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return header
			}
			return plain
		})
	for _, row := range t.rows {
		tbl.Row(lo.Map(cols, func(c column, _ int) string { return row[c.Key] })...)
	}
	return tbl.String() + "\n", nil
}
