// Package source loads files for scanning and extracts their comment
// blocks.
//
// Go and Java files are parsed with tree-sitter so that comment markers
// inside string literals are never mistaken for real comments. Other
// files fall back to a lexical scanner that understands // and /* */
// comments.
package source
