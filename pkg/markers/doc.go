// Package markers suppresses diagnostics inside generated code regions.
//
// Form designers bracket generated code with comment markers. A
// "GEN-BEGIN:" comment ends the hand-written region and a "GEN-END:"
// comment starts it again. A "GEN-FIRST:" or "GEN-LAST:" comment
// suppresses exactly its own line. Markers are reduced to a sorted list
// of tags and each event line is classified with a sweep over that list.
package markers
