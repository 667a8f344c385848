package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"mercator-hq/stylecheck/pkg/source"
)

// Reporter receives findings from a check. Lines and columns are 1-based;
// a line of 0 reports against the whole file.
type Reporter func(line, column int, message string)

// Check inspects one file at a time.
type Check interface {
	Process(ctx context.Context, f *source.File, report Reporter) error
}

// Factory builds a check from its module configuration.
type Factory func(m *Module) (Check, error)

// builtinFactories are registered in the default loader.
var builtinFactories = map[string]Factory{
	"FileLength":         newFileLength,
	"FileTabCharacter":   newFileTabCharacter,
	"LineLength":         newLineLength,
	"NewlineAtEndOfFile": newNewlineAtEndOfFile,
	"RegexpSingleline":   newRegexpSingleline,
	"TodoComment":        newTodoComment,
}

type fileLength struct {
	max int
}

func newFileLength(m *Module) (Check, error) {
	limit, err := m.Int("max", 2000)
	if err != nil {
		return nil, err
	}
	return &fileLength{max: limit}, nil
}

func (c *fileLength) Process(_ context.Context, f *source.File, report Reporter) error {
	if len(f.Lines) > c.max {
		report(1, 0, fmt.Sprintf("File length is %d lines (max allowed is %d).", len(f.Lines), c.max))
	}
	return nil
}

type fileTabCharacter struct {
	eachLine bool
}

func newFileTabCharacter(m *Module) (Check, error) {
	return &fileTabCharacter{eachLine: m.String("eachLine", "false") == "true"}, nil
}

func (c *fileTabCharacter) Process(_ context.Context, f *source.File, report Reporter) error {
	for i, line := range f.Lines {
		if col := strings.IndexByte(line, '\t'); col >= 0 {
			if c.eachLine {
				report(i+1, col+1, "Line contains a tab character.")
				continue
			}
			report(i+1, col+1, "File contains tab characters (this is the first instance).")
			return nil
		}
	}
	return nil
}

type lineLength struct {
	max    int
	ignore *regexp.Regexp
}

func newLineLength(m *Module) (Check, error) {
	limit, err := m.Int("max", 80)
	if err != nil {
		return nil, err
	}
	ignore, err := m.Regexp("ignorePattern", "")
	if err != nil {
		return nil, err
	}
	return &lineLength{max: limit, ignore: ignore}, nil
}

func (c *lineLength) Process(ctx context.Context, f *source.File, report Reporter) error {
	for i, line := range f.Lines {
		if i%512 == 0 && ctx.Err() != nil {
			return nil
		}
		n := utf8.RuneCountInString(line)
		if n <= c.max {
			continue
		}
		if c.ignore != nil && c.ignore.MatchString(line) {
			continue
		}
		report(i+1, 0, fmt.Sprintf("Line is longer than %d characters (found %d).", c.max, n))
	}
	return nil
}

type newlineAtEndOfFile struct{}

func newNewlineAtEndOfFile(*Module) (Check, error) {
	return newlineAtEndOfFile{}, nil
}

func (newlineAtEndOfFile) Process(_ context.Context, f *source.File, report Reporter) error {
	if !f.EndsWithNewline() {
		report(0, 0, "File does not end with a newline.")
	}
	return nil
}

type regexpSingleline struct {
	format  *regexp.Regexp
	message string
	minimum int
	maximum int
}

func newRegexpSingleline(m *Module) (Check, error) {
	format, err := m.Regexp("format", "$.")
	if err != nil {
		return nil, err
	}
	minimum, err := m.Int("minimum", 0)
	if err != nil {
		return nil, err
	}
	maximum, err := m.Int("maximum", 0)
	if err != nil {
		return nil, err
	}
	return &regexpSingleline{
		format:  format,
		message: m.String("message", fmt.Sprintf("Line matches the illegal pattern '%s'.", format)),
		minimum: minimum,
		maximum: maximum,
	}, nil
}

func (c *regexpSingleline) Process(_ context.Context, f *source.File, report Reporter) error {
	matches := 0
	for i, line := range f.Lines {
		loc := c.format.FindStringIndex(line)
		if loc == nil {
			continue
		}
		matches++
		if matches > c.maximum {
			report(i+1, loc[0]+1, c.message)
		}
	}
	if matches < c.minimum {
		report(0, 0, fmt.Sprintf("File contains %d matches of '%s' (minimum is %d).", matches, c.format, c.minimum))
	}
	return nil
}

type todoComment struct {
	format *regexp.Regexp
}

func newTodoComment(m *Module) (Check, error) {
	format, err := m.Regexp("format", "TODO:")
	if err != nil {
		return nil, err
	}
	return &todoComment{format: format}, nil
}

func (c *todoComment) Process(_ context.Context, f *source.File, report Reporter) error {
	for _, block := range f.Comments {
		for _, l := range block.Lines() {
			if c.format.MatchString(l.Text) {
				report(l.Line, 0, fmt.Sprintf("Comment matches to-do format '%s'.", c.format))
			}
		}
	}
	return nil
}
