package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"mercator-hq/stylecheck/pkg/diag"
)

var testEvents = []diag.Event{
	{File: "/src/A.java", Line: 2, Column: 10, Message: "Line has trailing spaces.", Level: diag.LevelWarning, Source: "RegexpSingleline"},
	{File: "/src/A.java", Line: 3, Message: "Comment matches to-do format 'TODO:'.", Level: diag.LevelInfo, Source: "TodoComment"},
	{File: "/src/B.java", Line: 7, Message: "Line is longer than 100 characters.", Level: diag.LevelError},
}

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}
	buf := &bytes.Buffer{}

	if err := formatter.FormatEvents(buf, testEvents); err != nil {
		t.Fatalf("FormatEvents() error = %v, want nil", err)
	}

	want := strings.Join([]string{
		"/src/A.java:2:10: warning: Line has trailing spaces. [RegexpSingleline]",
		"/src/A.java:3: info: Comment matches to-do format 'TODO:'. [TodoComment]",
		"/src/B.java:7: error: Line is longer than 100 characters.",
		"3 problems (1 errors, 1 warnings, 1 infos)",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("FormatEvents() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestTextFormatterColor(t *testing.T) {
	formatter := &TextFormatter{Color: true}
	buf := &bytes.Buffer{}

	if err := formatter.FormatEvents(buf, testEvents[2:]); err != nil {
		t.Fatalf("FormatEvents() error = %v, want nil", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("FormatEvents() = %q, want ANSI escapes", buf.String())
	}
}

func TestTextFormatterEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&TextFormatter{}).FormatEvents(buf, nil); err != nil {
		t.Fatalf("FormatEvents() error = %v, want nil", err)
	}
	if buf.String() != "No problems found.\n" {
		t.Errorf("FormatEvents() = %q, want %q", buf.String(), "No problems found.\n")
	}
}

func TestJSONFormatter(t *testing.T) {
	tests := []struct {
		name   string
		events []diag.Event
		indent bool
		want   int
	}{
		{name: "nil events", events: nil, want: 0},
		{name: "indented", events: testEvents, indent: true, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &JSONFormatter{Indent: tt.indent}
			if err := formatter.FormatEvents(buf, tt.events); err != nil {
				t.Fatalf("FormatEvents() error = %v, want nil", err)
			}

			var result []map[string]any
			if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
				t.Fatalf("FormatEvents() produced invalid JSON: %v", err)
			}
			if len(result) != tt.want {
				t.Errorf("len(result) = %d, want %d", len(result), tt.want)
			}
		})
	}
}

func TestJSONFormatterLevelName(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&JSONFormatter{}).FormatEvents(buf, testEvents[:1]); err != nil {
		t.Fatalf("FormatEvents() error = %v, want nil", err)
	}
	if !strings.Contains(buf.String(), `"level":"warning"`) {
		t.Errorf("FormatEvents() = %s, want level name", buf.String())
	}
}

func TestCSVFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&CSVFormatter{}).FormatEvents(buf, testEvents); err != nil {
		t.Fatalf("FormatEvents() error = %v, want nil", err)
	}

	records, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v, want nil", err)
	}
	if len(records) != 4 {
		t.Fatalf("len(records) = %d, want 4", len(records))
	}
	if strings.Join(records[0], ",") != "file,line,column,level,message,source" {
		t.Errorf("header = %v", records[0])
	}
	if records[3][3] != "error" || records[3][1] != "7" {
		t.Errorf("row = %v, want line 7 error", records[3])
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name   string
		format OutputFormat
		want   string
	}{
		{name: "text formatter", format: FormatText, want: "*cli.TextFormatter"},
		{name: "json formatter", format: FormatJSON, want: "*cli.JSONFormatter"},
		{name: "csv formatter", format: FormatCSV, want: "*cli.CSVFormatter"},
		{name: "default to text", format: "unknown", want: "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := NewFormatter(tt.format, false)
			got := fmt.Sprintf("%T", formatter)
			if got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "json", want: FormatJSON},
		{in: "csv", want: FormatCSV},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
