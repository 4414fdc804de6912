package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-yaml"
)

// OutputFormat selects how Output renders a value.
type OutputFormat string

const (
	FormatYAML OutputFormat = "yaml"
	FormatJSON OutputFormat = "json"
	// FormatRaw writes []byte and string values as-is and falls back to
	// YAML for anything else.
	FormatRaw OutputFormat = "raw"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatYAML, FormatJSON, FormatRaw:
		return f, nil
	case "":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want yaml, json or raw)", s)
	}
}

// OutputOptions configures Output.
type OutputOptions struct {
	Format OutputFormat

	// File is written instead of stdout when set.
	File string

	// Writer overrides File and stdout.
	Writer io.Writer
}

// Output renders result in the requested format.
func Output(result any, opts OutputOptions) error {
	w := io.Writer(os.Stdout)
	switch {
	case opts.Writer != nil:
		w = opts.Writer
	case opts.File != "":
		f, err := os.Create(opts.File)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML, "":
		return outputYAML(w, result)
	case FormatRaw:
		switch v := result.(type) {
		case []byte:
			_, err := w.Write(v)
			return err
		case string:
			_, err := io.WriteString(w, v)
			return err
		}
		return outputYAML(w, result)
	default:
		return fmt.Errorf("unsupported output format %q", opts.Format)
	}
}

func outputYAML(w io.Writer, result any) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff9f"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaf00"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

// PrintSuccess prints a status line to stdout.
func PrintSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stdout, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// PrintInfo prints an informational line to stdout.
func PrintInfo(format string, args ...any) {
	fmt.Fprintln(os.Stdout, dimStyle.Render("ℹ "+fmt.Sprintf(format, args...)))
}

// PrintWarning prints a warning to stderr.
func PrintWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, warnStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// PrintError prints an error to stderr. The message is printed verbatim
// after the prefix so server error text reaches the user unchanged.
func PrintError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error:")+" "+fmt.Sprintf(format, args...))
}
