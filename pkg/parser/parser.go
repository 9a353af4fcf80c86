// Package parser turns Python source text into a syntax.Node tree.
//
// Parsing is done with tree-sitter's Python grammar. Tree-sitter recovers
// from syntax errors by inserting ERROR and MISSING nodes; this package
// refuses such trees and reports a ParseError instead, so callers only ever
// see complete, valid trees. Constructs the grammar accepts but Python 3
// does not (print statements, backquotes, long literals, TabError cases)
// are rejected the same way.
package parser

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/panbanda/pymetrics/pkg/syntax"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Parser wraps a tree-sitter parser configured for Python.
// A Parser is not safe for concurrent use; use one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the converted tree and its source.
type ParseResult struct {
	Root   *syntax.Node
	Source []byte
	Label  string
}

// ParseError reports source text that is not valid Python.
type ParseError struct {
	Label   string
	Message string
	Line    int // 1-based, 0 when unknown
	Column  int // 1-based, 0 when unknown
}

func (e *ParseError) Error() string {
	loc := e.Label
	if loc == "" {
		loc = "<source>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", loc, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}

// New creates a new parser instance.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// ParseFile reads and parses a file. The path doubles as the label.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.Parse(source, path)
}

// Parse parses source. label is only used in diagnostics.
func (p *Parser) Parse(source []byte, label string) (*ParseResult, error) {
	if !utf8.Valid(source) {
		return nil, &ParseError{Label: label, Message: "source is not valid UTF-8"}
	}
	if source == nil {
		source = []byte{}
	}

	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root, source, label)
	}
	if perr := validate(root, source, label); perr != nil {
		return nil, perr
	}

	c := &converter{src: source}
	return &ParseResult{
		Root:   c.module(root),
		Source: source,
		Label:  label,
	}, nil
}

// syntaxError locates the first ERROR or MISSING node in document order.
func syntaxError(root *sitter.Node, source []byte, label string) *ParseError {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.IsMissing() {
			pt := n.StartPoint()
			return &ParseError{
				Label:   label,
				Message: fmt.Sprintf("missing %q", n.Type()),
				Line:    int(pt.Row) + 1,
				Column:  int(pt.Column) + 1,
			}
		}
		if n.Type() == "ERROR" {
			pt := n.StartPoint()
			msg := "invalid syntax"
			if text := firstLine(nodeText(n, source)); text != "" {
				msg = fmt.Sprintf("invalid syntax near %q", text)
			}
			return &ParseError{
				Label:   label,
				Message: msg,
				Line:    int(pt.Row) + 1,
				Column:  int(pt.Column) + 1,
			}
		}

		// Push in reverse so the leftmost child is examined first.
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			child := n.Child(i)
			if child != nil && (child.HasError() || child.IsMissing()) {
				stack = append(stack, child)
			}
		}
	}
	return &ParseError{Label: label, Message: "invalid syntax"}
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			s = s[:i]
			break
		}
	}
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}

// nodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}
