package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
)

// CommentBlock is one comment as it appears in the file.
type CommentBlock struct {
	// StartLine is the 1-based line the comment starts on.
	StartLine int

	// Text is the comment text including its delimiters.
	Text string
}

// Lines returns the comment split into lines, each paired with its
// 1-based line number in the file.
func (c CommentBlock) Lines() []NumberedLine {
	parts := strings.Split(c.Text, "\n")
	out := make([]NumberedLine, len(parts))
	for i, p := range parts {
		out[i] = NumberedLine{Line: c.StartLine + i, Text: strings.TrimSuffix(p, "\r")}
	}
	return out
}

// NumberedLine is a line of text with its 1-based line number.
type NumberedLine struct {
	Line int
	Text string
}

// commentNodeTypes lists the tree-sitter node types that hold comments
// for the supported grammars.
var commentNodeTypes = map[string]bool{
	"comment":       true,
	"line_comment":  true,
	"block_comment": true,
}

// languageFor returns the tree-sitter grammar for a file, or nil.
func languageFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return golang.GetLanguage()
	case ".java":
		return java.GetLanguage()
	default:
		return nil
	}
}

// ExtractComments returns the comment blocks of content in source order.
func ExtractComments(ctx context.Context, path string, content []byte) ([]CommentBlock, error) {
	lang := languageFor(path)
	if lang == nil {
		return lexicalComments(content), nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}
	defer tree.Close()

	var blocks []CommentBlock
	collectComments(tree.RootNode(), content, &blocks)
	return blocks, nil
}

func collectComments(node *sitter.Node, content []byte, blocks *[]CommentBlock) {
	if commentNodeTypes[node.Type()] {
		*blocks = append(*blocks, CommentBlock{
			StartLine: int(node.StartPoint().Row) + 1,
			Text:      node.Content(content),
		})
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collectComments(node.Child(i), content, blocks)
	}
}

// lexicalComments finds // and /* */ comments, skipping string and
// character literals.
func lexicalComments(content []byte) []CommentBlock {
	var (
		blocks []CommentBlock
		line   = 1
		n      = len(content)
	)

	for i := 0; i < n; i++ {
		c := content[i]
		switch {
		case c == '\n':
			line++

		case c == '"' || c == '\'' || c == '`':
			quote := c
			for i++; i < n && content[i] != quote; i++ {
				if content[i] == '\\' && quote != '`' {
					i++
					if i < n && content[i] == '\n' {
						line++
					}
					continue
				}
				if content[i] == '\n' {
					line++
					if quote != '`' {
						break
					}
				}
			}

		case c == '/' && i+1 < n && content[i+1] == '/':
			start := i
			for i < n && content[i] != '\n' {
				i++
			}
			blocks = append(blocks, CommentBlock{StartLine: line, Text: string(content[start:i])})
			i--

		case c == '/' && i+1 < n && content[i+1] == '*':
			start, startLine := i, line
			i += 2
			for i < n && !(content[i] == '*' && i+1 < n && content[i+1] == '/') {
				if content[i] == '\n' {
					line++
				}
				i++
			}
			end := i + 2
			if end > n {
				end = n
			}
			blocks = append(blocks, CommentBlock{StartLine: startLine, Text: string(content[start:end])})
			i = end - 1
		}
	}

	return blocks
}
