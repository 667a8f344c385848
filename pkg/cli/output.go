package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"mercator-hq/stylecheck/pkg/diag"
)

// OutputFormat represents the output format for diagnostics.
type OutputFormat string

const (
	// FormatText is colored, human readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is a JSON array of events.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output with a header row.
	FormatCSV OutputFormat = "csv"
)

// ParseOutputFormat validates a --format flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", NewConfigError("--format", fmt.Sprintf("unknown format %q (want text, json or csv)", s))
	}
}

// Formatter writes diagnostics.
type Formatter interface {
	FormatEvents(w io.Writer, events []diag.Event) error
}

// Summary counts events per level.
type Summary struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// Summarize counts events per level.
func Summarize(events []diag.Event) Summary {
	s := Summary{Total: len(events)}
	for _, e := range events {
		switch e.Level {
		case diag.LevelError:
			s.Errors++
		case diag.LevelWarning:
			s.Warnings++
		case diag.LevelInfo:
			s.Infos++
		}
	}
	return s
}

func (s Summary) String() string {
	if s.Total == 0 {
		return "No problems found."
	}
	return fmt.Sprintf("%d problems (%d errors, %d warnings, %d infos)",
		s.Total, s.Errors, s.Warnings, s.Infos)
}

// TextFormatter prints one line per event followed by a summary.
type TextFormatter struct {
	// Color enables ANSI colors.
	Color bool
}

// FormatEvents implements Formatter.
func (f *TextFormatter) FormatEvents(w io.Writer, events []diag.Event) error {
	path := f.style(color.Bold)
	for _, e := range events {
		location := fmt.Sprintf("%s:%d", e.File, e.Line)
		if e.Column > 0 {
			location += ":" + strconv.Itoa(e.Column)
		}

		line := fmt.Sprintf("%s: %s: %s", path.Sprint(location), f.levelStyle(e.Level).Sprint(e.Level), e.Message)
		if e.Source != "" {
			line += " " + f.style(color.Faint).Sprintf("[%s]", e.Source)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, Summarize(events))
	return err
}

func (f *TextFormatter) levelStyle(l diag.Level) *color.Color {
	switch l {
	case diag.LevelError:
		return f.style(color.FgRed, color.Bold)
	case diag.LevelWarning:
		return f.style(color.FgYellow)
	case diag.LevelInfo:
		return f.style(color.FgCyan)
	default:
		return f.style(color.Faint)
	}
}

func (f *TextFormatter) style(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if f.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// JSONFormatter writes the events as a JSON array.
type JSONFormatter struct {
	Indent bool
}

// FormatEvents implements Formatter.
func (f *JSONFormatter) FormatEvents(w io.Writer, events []diag.Event) error {
	if events == nil {
		events = []diag.Event{}
	}
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(events)
}

// CSVFormatter writes a header row and one row per event.
type CSVFormatter struct{}

// csvHeaders are the column names written by CSVFormatter.
var csvHeaders = []string{"file", "line", "column", "level", "message", "source"}

// FormatEvents implements Formatter.
func (f *CSVFormatter) FormatEvents(w io.Writer, events []diag.Event) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(csvHeaders); err != nil {
		return err
	}
	for _, e := range events {
		row := []string{
			e.File,
			strconv.Itoa(e.Line),
			strconv.Itoa(e.Column),
			e.Level.String(),
			e.Message,
			e.Source,
		}
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// NewFormatter creates a formatter for format. useColor only affects text
// output.
func NewFormatter(format OutputFormat, useColor bool) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{Color: useColor}
	}
}
