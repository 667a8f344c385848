package markers

import (
	"cmp"
	"slices"
)

// Kind is the effect a tag has on the lines that follow it.
type Kind uint8

const (
	// Begin starts a region whose events are reported.
	Begin Kind = iota
	// End starts a region whose events are suppressed.
	End
)

// String returns "begin" or "end".
func (k Kind) String() string {
	if k == End {
		return "end"
	}
	return "begin"
}

// Tag is a region boundary at a 1-based line.
type Tag struct {
	Line int
	Kind Kind
}

// Set is the marker information extracted from one file.
type Set struct {
	// Tags are sorted ascending by line, End before Begin on equal lines.
	Tags []Tag

	// Excluded holds lines suppressed by single-line markers.
	Excluded map[int]struct{}
}

// SortTags sorts tags in place by line. At equal lines End sorts before
// Begin; otherwise the input order is kept.
func SortTags(tags []Tag) {
	slices.SortStableFunc(tags, func(a, b Tag) int {
		if c := cmp.Compare(a.Line, b.Line); c != 0 {
			return c
		}
		// End (1) before Begin (0).
		return cmp.Compare(b.Kind, a.Kind)
	})
}

// Classify reports whether an event at line is accepted.
//
// tags must be sorted. The scan stops at the first tag past line, or at a
// Begin tag on line itself, which then encloses the line. The enclosing
// tag decides: End rejects, Begin or no tag accepts. Lines in excluded
// are always rejected.
func Classify(tags []Tag, excluded map[int]struct{}, line int) bool {
	if _, ok := excluded[line]; ok {
		return false
	}

	enclosing := -1
	for i, tag := range tags {
		if tag.Line > line {
			break
		}
		enclosing = i
		// A Begin on the event line re-enables checking for that line.
		if tag.Line == line && tag.Kind == Begin {
			break
		}
	}

	return enclosing < 0 || tags[enclosing].Kind == Begin
}

// Accept reports whether an event at line is accepted by s.
func (s Set) Accept(line int) bool {
	return Classify(s.Tags, s.Excluded, line)
}
