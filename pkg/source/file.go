package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File is the loaded content of one source file.
//
// A *File is the identity used by caches downstream: two loads of the
// same path produce two distinct *File values.
type File struct {
	// Path is the absolute path of the file.
	Path string

	// Content is the raw file content.
	Content []byte

	// Lines holds the content split on newlines without terminators.
	Lines []string

	// Comments holds every comment block in source order.
	Comments []CommentBlock

	// ModTime is the modification time observed at load.
	ModTime time.Time
}

// Load reads and parses the file at path.
func Load(ctx context.Context, path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %q: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", abs, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%q is a directory", abs)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", abs, err)
	}

	f, err := Parse(ctx, abs, content)
	if err != nil {
		return nil, err
	}
	f.ModTime = info.ModTime()
	return f, nil
}

// Parse builds a File from in-memory content, as used for unsaved
// editor buffers.
func Parse(ctx context.Context, path string, content []byte) (*File, error) {
	comments, err := ExtractComments(ctx, path, content)
	if err != nil {
		return nil, err
	}

	return &File{
		Path:     path,
		Content:  content,
		Lines:    splitLines(content),
		Comments: comments,
	}, nil
}

// Line returns the 1-based line n, or "" when out of range.
func (f *File) Line(n int) string {
	if n < 1 || n > len(f.Lines) {
		return ""
	}
	return f.Lines[n-1]
}

// EndsWithNewline reports whether the content ends with a line terminator.
func (f *File) EndsWithNewline() bool {
	return len(f.Content) == 0 || f.Content[len(f.Content)-1] == '\n'
}

func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	trimmed := bytes.TrimSuffix(content, []byte("\n"))
	raw := bytes.Split(trimmed, []byte("\n"))
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = string(bytes.TrimSuffix(l, []byte("\r")))
	}
	return lines
}
