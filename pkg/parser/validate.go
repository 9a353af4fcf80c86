package parser

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// tree-sitter's Python grammar still accepts several Python 2 forms and
// a few constructs CPython rejects. validate walks the error-free tree and
// reports the first such construct in document order.

// hardKeywords are Python 3 keywords the grammar lets through as names.
var hardKeywords = map[string]bool{
	"async": true,
	"await": true,
}

type validator struct {
	src   []byte
	label string
	// quoted holds the byte ranges of strings and comments.
	quoted [][2]uint32
	// stmtStarts holds the first statement beginning on each line.
	stmtStarts map[uint32]*sitter.Node
}

func validate(root *sitter.Node, src []byte, label string) *ParseError {
	v := &validator{src: src, label: label, stmtStarts: make(map[uint32]*sitter.Node)}
	if err := v.walk(root); err != nil {
		return err
	}
	if err := v.backticks(); err != nil {
		return err
	}
	return v.indentation()
}

func (v *validator) errorAt(n *sitter.Node, format string, args ...any) *ParseError {
	pt := n.StartPoint()
	return &ParseError{
		Label:   v.label,
		Message: fmt.Sprintf(format, args...),
		Line:    int(pt.Row) + 1,
		Column:  int(pt.Column) + 1,
	}
}

// walk visits nodes in document order.
func (v *validator) walk(root *sitter.Node) *ParseError {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := v.check(n); err != nil {
			return err
		}

		count := int(n.ChildCount())
		for i := count - 1; i >= 0; i-- {
			child := n.Child(i)
			if child == nil {
				continue
			}
			if child.IsNamed() && (n.Type() == "module" || n.Type() == "block") {
				v.statementStart(child)
			}
			stack = append(stack, child)
		}
	}
	return nil
}

func (v *validator) statementStart(n *sitter.Node) {
	if n.Type() == "comment" {
		return
	}
	row := n.StartPoint().Row
	if prev, ok := v.stmtStarts[row]; ok && prev.StartByte() < n.StartByte() {
		return
	}
	v.stmtStarts[row] = n
}

func (v *validator) check(n *sitter.Node) *ParseError {
	switch n.Type() {
	case "string", "comment":
		v.quoted = append(v.quoted, [2]uint32{n.StartByte(), n.EndByte()})
	case "print_statement":
		// print >>f, x and print (x) are shift and call expressions in
		// Python 3.
		if first := firstNamed(n); first == nil || (first.Type() != "parenthesized_expression" && first.Type() != "chevron") {
			return v.errorAt(n, "Missing parentheses in call to 'print'")
		}
	case "exec_statement":
		return v.errorAt(n, "Missing parentheses in call to 'exec'")
	case "comparison_operator":
		for i := 0; i < int(n.ChildCount()); i++ {
			if op := n.Child(i); op != nil && op.Type() == "<>" {
				return v.errorAt(op, "invalid syntax: '<>' is not an operator")
			}
		}
	case "integer":
		if msg := invalidInteger(nodeText(n, v.src)); msg != "" {
			return v.errorAt(n, "%s", msg)
		}
	case "identifier":
		if name := nodeText(n, v.src); hardKeywords[name] {
			return v.errorAt(n, "invalid syntax: %q is a keyword", name)
		}
	case "delete_statement":
		for _, target := range namedChildren(n) {
			if bad := invalidDeleteTarget(target); bad != nil {
				return v.errorAt(bad, "cannot delete %s", strings.ReplaceAll(bad.Type(), "_", " "))
			}
		}
	case "for_in_clause":
		if hasTokenAfter(n, "in", ",") {
			return v.errorAt(n, "invalid syntax: comprehension iterable must be parenthesized")
		}
	case "argument_list":
		args := namedChildren(n)
		for _, arg := range args {
			if arg.Type() == "generator_expression" && len(args) > 1 && !strings.HasPrefix(nodeText(arg, v.src), "(") {
				return v.errorAt(arg, "Generator expression must be parenthesized")
			}
		}
	case "parameters", "lambda_parameters":
		seenKwargs := false
		for _, p := range namedChildren(n) {
			if seenKwargs {
				return v.errorAt(p, "arguments cannot follow var-keyword argument")
			}
			seenKwargs = isKwargs(p)
		}
	case "block":
		if len(namedChildren(n)) == 0 {
			return v.errorAt(n, "expected an indented block")
		}
	}
	return nil
}

func firstNamed(n *sitter.Node) *sitter.Node {
	children := namedChildren(n)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// hasTokenAfter reports whether the anonymous token want follows the
// anonymous token after among n's children.
func hasTokenAfter(n *sitter.Node, after, want string) bool {
	seen := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || child.IsNamed() {
			continue
		}
		switch {
		case child.Type() == after:
			seen = true
		case seen && child.Type() == want:
			return true
		}
	}
	return false
}

func isKwargs(n *sitter.Node) bool {
	if n.Type() == "dictionary_splat_pattern" {
		return true
	}
	if n.Type() == "typed_parameter" {
		first := firstNamed(n)
		return first != nil && first.Type() == "dictionary_splat_pattern"
	}
	return false
}

// invalidDeleteTarget returns the first node under a del target that is
// not a name, attribute, subscript or a sequence of those.
func invalidDeleteTarget(n *sitter.Node) *sitter.Node {
	switch n.Type() {
	case "identifier", "attribute", "subscript":
		return nil
	case "expression_list", "tuple", "list", "parenthesized_expression", "pattern_list", "tuple_pattern", "list_pattern":
		for _, child := range namedChildren(n) {
			if bad := invalidDeleteTarget(child); bad != nil {
				return bad
			}
		}
		return nil
	default:
		return n
	}
}

// invalidInteger describes why an integer literal is not valid Python 3,
// or returns "".
func invalidInteger(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	if strings.HasSuffix(lower, "l") {
		return "invalid decimal literal: long integer suffix"
	}
	if strings.HasSuffix(lower, "j") || len(text) < 2 || text[0] != '0' {
		return ""
	}
	if c := lower[1]; c == 'x' || c == 'o' || c == 'b' {
		return ""
	}
	if strings.Trim(text, "0_") != "" {
		return "leading zeros in decimal integer literals are not permitted"
	}
	return ""
}

// backticks rejects the Python 2 repr quotes outside strings and comments.
func (v *validator) backticks() *ParseError {
	sort.Slice(v.quoted, func(i, j int) bool { return v.quoted[i][0] < v.quoted[j][0] })
	line, col := 1, 1
	q := 0
	for i := 0; i < len(v.src); i++ {
		for q < len(v.quoted) && v.quoted[q][1] <= uint32(i) {
			q++
		}
		inside := q < len(v.quoted) && v.quoted[q][0] <= uint32(i)
		switch {
		case v.src[i] == '`' && !inside:
			return &ParseError{Label: v.label, Message: "invalid syntax: backquote is not an operator", Line: line, Column: col}
		case v.src[i] == '\n':
			line++
			col = 1
		default:
			col++
		}
	}
	return nil
}

// indentation applies the tokenizer's tab consistency rule: indentation
// measured with 8-column tabs and with 1-column tabs must order lines the
// same way.
func (v *validator) indentation() *ParseError {
	rows := make([]uint32, 0, len(v.stmtStarts))
	for row := range v.stmtStarts {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i] < rows[j] })

	lines := strings.Split(string(v.src), "\n")
	cols, altcols := []int{0}, []int{0}
	for _, row := range rows {
		n := v.stmtStarts[row]
		if int(row) >= len(lines) {
			continue
		}
		line := lines[row]
		col, altcol, width := measureIndent(line)
		if uint32(width) != n.StartPoint().Column {
			continue
		}

		top := len(cols) - 1
		switch {
		case col == cols[top]:
			if altcol != altcols[top] {
				return v.tabError(n)
			}
		case col > cols[top]:
			if altcol <= altcols[top] {
				return v.tabError(n)
			}
			cols = append(cols, col)
			altcols = append(altcols, altcol)
		default:
			for top > 0 && col < cols[top] {
				top--
			}
			cols, altcols = cols[:top+1], altcols[:top+1]
			if col == cols[top] && altcol != altcols[top] {
				return v.tabError(n)
			}
		}
	}
	return nil
}

func (v *validator) tabError(n *sitter.Node) *ParseError {
	return v.errorAt(n, "inconsistent use of tabs and spaces in indentation")
}

// measureIndent returns the indentation of line with 8-column tabs, with
// 1-column tabs, and its width in bytes.
func measureIndent(line string) (col, altcol, width int) {
	for width < len(line) {
		switch line[width] {
		case ' ':
			col++
			altcol++
		case '\t':
			col = (col/8 + 1) * 8
			altcol++
		case '\f':
			col, altcol = 0, 0
		default:
			return col, altcol, width
		}
		width++
	}
	return col, altcol, width
}
