package markers

import (
	"fmt"
	"regexp"

	"mercator-hq/stylecheck/pkg/source"
)

// Patterns holds the comment markers recognized by Extract.
type Patterns struct {
	// RegionStart suppresses the lines after it (produces an End tag).
	RegionStart *regexp.Regexp

	// RegionStop resumes reporting after it (produces a Begin tag).
	RegionStop *regexp.Regexp

	// SingleLine suppress only the line they appear on.
	SingleLine []*regexp.Regexp
}

// DefaultPatterns returns the form designer markers.
func DefaultPatterns() Patterns {
	return Patterns{
		RegionStart: regexp.MustCompile(`GEN-BEGIN:`),
		RegionStop:  regexp.MustCompile(`GEN-END:`),
		SingleLine: []*regexp.Regexp{
			regexp.MustCompile(`GEN-FIRST:`),
			regexp.MustCompile(`GEN-LAST:`),
		},
	}
}

// CompilePatterns compiles marker expressions. Empty strings fall back to
// the defaults.
func CompilePatterns(regionStart, regionStop string, singleLine []string) (Patterns, error) {
	p := DefaultPatterns()

	if regionStart != "" {
		re, err := regexp.Compile(regionStart)
		if err != nil {
			return Patterns{}, fmt.Errorf("invalid region start marker %q: %w", regionStart, err)
		}
		p.RegionStart = re
	}

	if regionStop != "" {
		re, err := regexp.Compile(regionStop)
		if err != nil {
			return Patterns{}, fmt.Errorf("invalid region stop marker %q: %w", regionStop, err)
		}
		p.RegionStop = re
	}

	if len(singleLine) > 0 {
		p.SingleLine = nil
		for _, expr := range singleLine {
			re, err := regexp.Compile(expr)
			if err != nil {
				return Patterns{}, fmt.Errorf("invalid single line marker %q: %w", expr, err)
			}
			p.SingleLine = append(p.SingleLine, re)
		}
	}

	return p, nil
}

// Extract scans every comment line and builds the marker set. Each line
// contributes at most one marker, checked in the order region start,
// region stop, single line.
func (p Patterns) Extract(blocks []source.CommentBlock) Set {
	set := Set{Excluded: make(map[int]struct{})}

	for _, block := range blocks {
		for _, l := range block.Lines() {
			switch {
			case p.RegionStart != nil && p.RegionStart.MatchString(l.Text):
				set.Tags = append(set.Tags, Tag{Line: l.Line, Kind: End})
			case p.RegionStop != nil && p.RegionStop.MatchString(l.Text):
				set.Tags = append(set.Tags, Tag{Line: l.Line, Kind: Begin})
			case p.matchSingle(l.Text):
				set.Excluded[l.Line] = struct{}{}
			}
		}
	}

	SortTags(set.Tags)
	return set
}

func (p Patterns) matchSingle(text string) bool {
	for _, re := range p.SingleLine {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
