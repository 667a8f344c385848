package tasks

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportFormat names a task export format.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

var csvHeader = []string{"id", "scan_id", "file", "line", "column", "level", "source", "message", "recorded_at"}

// Export writes tasks to w in the given format. JSON output is an
// indented array, empty when there are no tasks.
func Export(w io.Writer, format ExportFormat, tasks []*Task) error {
	switch format {
	case FormatCSV:
		return exportCSV(w, tasks)
	case FormatJSON:
		if tasks == nil {
			tasks = []*Task{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tasks); err != nil {
			return fmt.Errorf("failed to export %d tasks as json: %w", len(tasks), err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func exportCSV(w io.Writer, tasks []*Task) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to export tasks as csv: %w", err)
	}
	for _, t := range tasks {
		row := []string{
			t.ID,
			t.ScanID,
			t.File,
			strconv.Itoa(t.Line),
			strconv.Itoa(t.Column),
			t.Level.String(),
			t.Source,
			t.Message,
			t.RecordedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to export tasks as csv: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to export tasks as csv: %w", err)
	}
	return nil
}
