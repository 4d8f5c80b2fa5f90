package ui

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is a fenced code block found in markdown.
type CodeBlock struct {
	Language string
	Code     string
}

var codeBlockParser = goldmark.New().Parser()

// ExtractCodeBlocks returns the fenced code blocks of markdown in document
// order. Indented blocks are ignored.
func ExtractCodeBlocks(markdown string) []CodeBlock {
	source := []byte(markdown)
	doc := codeBlockParser.Parse(text.NewReader(source))

	var blocks []CodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		blocks = append(blocks, CodeBlock{
			Language: string(fenced.Language(source)),
			Code:     strings.TrimSuffix(string(fenced.Lines().Value(source)), "\n"),
		})
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

// LastCodeBlock returns the final fenced code block in markdown.
func LastCodeBlock(markdown string) (CodeBlock, bool) {
	blocks := ExtractCodeBlocks(markdown)
	if len(blocks) == 0 {
		return CodeBlock{}, false
	}
	return blocks[len(blocks)-1], true
}
