package parser

import (
	"strings"

	"github.com/panbanda/pymetrics/pkg/syntax"
	sitter "github.com/smacker/go-tree-sitter"
)

var binaryOps = map[string]string{
	"+":  "Add",
	"-":  "Sub",
	"*":  "Mult",
	"@":  "MatMult",
	"/":  "Div",
	"//": "FloorDiv",
	"%":  "Mod",
	"**": "Pow",
	"<<": "LShift",
	">>": "RShift",
	"|":  "BitOr",
	"^":  "BitXor",
	"&":  "BitAnd",
}

var unaryOps = map[string]string{
	"+":   "UAdd",
	"-":   "USub",
	"~":   "Invert",
	"not": "Not",
}

var compareOps = map[string]string{
	"==":     "Eq",
	"!=":     "NotEq",
	"<>":     "NotEq",
	"<":      "Lt",
	"<=":     "LtE",
	">":      "Gt",
	">=":     "GtE",
	"is":     "Is",
	"is not": "IsNot",
	"in":     "In",
	"not in": "NotIn",
}

func binaryOpName(sym string) string {
	if name, ok := binaryOps[sym]; ok {
		return name
	}
	return sym
}

// expr converts n into exactly one expression node. Several operands (for
// example a bare "a, b") become a Tuple; nothing converts to nil.
func (c *converter) expr(n *sitter.Node, ctx syntax.ExprContext) *syntax.Node {
	if n == nil {
		return nil
	}
	nodes := c.exprs(n, ctx)
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	default:
		t := syntax.New(syntax.KindTuple, span(n))
		t.Ctx = ctx
		return t.Add(nodes...)
	}
}

// exprList converts sibling operands into one node, as Python does for a
// comma separated expression list.
func (c *converter) exprList(items []*sitter.Node, ctx syntax.ExprContext) *syntax.Node {
	var nodes []*syntax.Node
	for _, item := range items {
		nodes = append(nodes, c.exprs(item, ctx)...)
	}
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	default:
		t := syntax.New(syntax.KindTuple, spanOf(nodes))
		t.Ctx = ctx
		return t.Add(nodes...)
	}
}

func spanOf(nodes []*syntax.Node) syntax.Span {
	first, last := nodes[0].Span, nodes[len(nodes)-1].Span
	return syntax.Span{
		StartLine: first.StartLine,
		StartCol:  first.StartCol,
		EndLine:   last.EndLine,
		EndCol:    last.EndCol,
	}
}

// exprs converts n into zero or more expression nodes. Grammar wrappers with
// no Python counterpart are transparent.
func (c *converter) exprs(n *sitter.Node, ctx syntax.ExprContext) []*syntax.Node {
	if n == nil {
		return nil
	}
	one := func(node *syntax.Node) []*syntax.Node {
		if node == nil {
			return nil
		}
		return []*syntax.Node{node}
	}

	switch n.Type() {
	case "comment":
		return nil
	case "identifier", "keyword_identifier":
		name := syntax.New(syntax.KindName, span(n))
		name.Name = c.text(n)
		name.Ctx = ctx
		return one(name)
	case "attribute":
		attr := syntax.New(syntax.KindAttribute, span(n))
		attr.Name = c.text(n.ChildByFieldName("attribute"))
		attr.Ctx = ctx
		return one(attr.Add(c.expr(n.ChildByFieldName("object"), syntax.Load)))
	case "subscript":
		sub := syntax.New(syntax.KindSubscript, span(n))
		sub.Ctx = ctx
		sub.Add(c.expr(n.ChildByFieldName("value"), syntax.Load))
		if children := namedChildren(n); len(children) > 1 {
			sub.Add(c.exprList(children[1:], syntax.Load))
		}
		return one(sub)
	case "call":
		return one(c.call(n))
	case "binary_operator":
		bin := syntax.New(syntax.KindBinOp, span(n))
		bin.Op = binaryOpName(c.text(n.ChildByFieldName("operator")))
		bin.Add(c.expr(n.ChildByFieldName("left"), syntax.Load))
		return one(bin.Add(c.expr(n.ChildByFieldName("right"), syntax.Load)))
	case "unary_operator":
		un := syntax.New(syntax.KindUnaryOp, span(n))
		un.Op = unaryOps[c.text(n.ChildByFieldName("operator"))]
		return one(un.Add(c.expr(n.ChildByFieldName("argument"), syntax.Load)))
	case "not_operator":
		un := syntax.New(syntax.KindUnaryOp, span(n))
		un.Op = "Not"
		return one(un.Add(c.expr(n.ChildByFieldName("argument"), syntax.Load)))
	case "boolean_operator":
		return one(c.boolOp(n))
	case "comparison_operator":
		return one(c.compare(n))
	case "conditional_expression":
		ifexp := syntax.New(syntax.KindIfExp, span(n))
		for _, child := range namedChildren(n) {
			ifexp.Add(c.expr(child, syntax.Load))
		}
		return one(ifexp)
	case "named_expression":
		named := syntax.New(syntax.KindNamedExpr, span(n))
		named.Targets = c.targets(n.ChildByFieldName("name"), syntax.Store)
		named.Add(named.Targets...)
		return one(named.Add(c.expr(n.ChildByFieldName("value"), syntax.Load)))
	case "lambda":
		lam := syntax.New(syntax.KindLambda, span(n))
		lam.Args = c.parameters(n.ChildByFieldName("parameters"))
		lam.Add(lam.Args)
		return one(lam.Add(c.expr(n.ChildByFieldName("body"), syntax.Load)))
	case "await":
		aw := syntax.New(syntax.KindAwait, span(n))
		return one(aw.Add(c.exprList(namedChildren(n), syntax.Load)))
	case "yield":
		kind := syntax.KindYield
		if hasToken(n, "from") {
			kind = syntax.KindYieldFrom
		}
		y := syntax.New(kind, span(n))
		return one(y.Add(c.exprList(namedChildren(n), syntax.Load)))
	case "list", "list_pattern":
		return one(c.collection(syntax.KindList, n, ctx))
	case "tuple", "tuple_pattern", "pattern_list", "expression_list":
		return one(c.collection(syntax.KindTuple, n, ctx))
	case "set":
		return one(c.collection(syntax.KindSet, n, syntax.Load))
	case "dictionary":
		d := syntax.New(syntax.KindDict, span(n))
		for _, child := range namedChildren(n) {
			if child.Type() == "pair" {
				d.Add(c.expr(child.ChildByFieldName("key"), syntax.Load))
				d.Add(c.expr(child.ChildByFieldName("value"), syntax.Load))
				continue
			}
			d.Add(c.exprs(child, syntax.Load)...)
		}
		return one(d)
	case "list_comprehension":
		return one(c.comprehension(syntax.KindListComp, n))
	case "set_comprehension":
		return one(c.comprehension(syntax.KindSetComp, n))
	case "dictionary_comprehension":
		return one(c.comprehension(syntax.KindDictComp, n))
	case "generator_expression":
		return one(c.comprehension(syntax.KindGeneratorExp, n))
	case "list_splat", "list_splat_pattern", "dictionary_splat", "dictionary_splat_pattern":
		star := syntax.New(syntax.KindStarred, span(n))
		star.Ctx = ctx
		return one(star.Add(c.exprList(namedChildren(n), ctx)))
	case "slice":
		sl := syntax.New(syntax.KindSlice, span(n))
		for _, child := range namedChildren(n) {
			sl.Add(c.exprs(child, syntax.Load)...)
		}
		return one(sl)
	case "string":
		return one(c.str(n))
	case "concatenated_string":
		return one(c.concatenated(n))
	case "integer", "float":
		k := syntax.New(syntax.KindConstant, span(n))
		k.Literal = syntax.LiteralNumber
		k.Value = c.text(n)
		return one(k)
	case "true", "false":
		k := syntax.New(syntax.KindConstant, span(n))
		k.Literal = syntax.LiteralBool
		k.Value = c.text(n)
		return one(k)
	case "none":
		k := syntax.New(syntax.KindConstant, span(n))
		k.Literal = syntax.LiteralNull
		k.Value = "None"
		return one(k)
	case "ellipsis":
		k := syntax.New(syntax.KindConstant, span(n))
		k.Literal = syntax.LiteralEllipsis
		k.Value = "..."
		return one(k)
	case "parenthesized_expression", "type", "as_pattern_target", "case_pattern", "interpolation":
		var out []*syntax.Node
		for _, child := range namedChildren(n) {
			out = append(out, c.exprs(child, ctx)...)
		}
		if n.Type() == "parenthesized_expression" && len(out) > 1 {
			t := syntax.New(syntax.KindTuple, span(n))
			t.Ctx = ctx
			return one(t.Add(out...))
		}
		return out
	case "keyword_argument":
		return one(c.argument(n))
	default:
		var out []*syntax.Node
		for _, child := range namedChildren(n) {
			out = append(out, c.exprs(child, ctx)...)
		}
		return out
	}
}

func (c *converter) collection(kind syntax.Kind, n *sitter.Node, ctx syntax.ExprContext) *syntax.Node {
	node := syntax.New(kind, span(n))
	node.Ctx = ctx
	for _, child := range namedChildren(n) {
		node.Add(c.exprs(child, ctx)...)
	}
	return node
}

// argument converts one entry of a call or class argument list.
func (c *converter) argument(n *sitter.Node) *syntax.Node {
	switch n.Type() {
	case "keyword_argument":
		kw := syntax.New(syntax.KindKeyword, span(n))
		kw.Name = c.text(n.ChildByFieldName("name"))
		return kw.Add(c.expr(n.ChildByFieldName("value"), syntax.Load))
	case "dictionary_splat":
		// **kwargs is a keyword without a name.
		kw := syntax.New(syntax.KindKeyword, span(n))
		return kw.Add(c.exprList(namedChildren(n), syntax.Load))
	default:
		return c.expr(n, syntax.Load)
	}
}

func (c *converter) call(n *sitter.Node) *syntax.Node {
	call := syntax.New(syntax.KindCall, span(n))
	call.Add(c.expr(n.ChildByFieldName("function"), syntax.Load))
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return call
	}
	if args.Type() == "generator_expression" {
		return call.Add(c.comprehension(syntax.KindGeneratorExp, args))
	}
	for _, arg := range namedChildren(args) {
		call.Add(c.argument(arg))
	}
	return call
}

// boolOp flattens left-nested chains of the same operator into one node,
// so "a and b and c" yields a single BoolOp with three values.
func (c *converter) boolOp(n *sitter.Node) *syntax.Node {
	node := syntax.New(syntax.KindBoolOp, span(n))
	op := c.text(n.ChildByFieldName("operator"))
	if op == "and" {
		node.Op = "And"
	} else {
		node.Op = "Or"
	}

	var operands []*sitter.Node
	cur := n
	for {
		operands = append(operands, cur.ChildByFieldName("right"))
		left := cur.ChildByFieldName("left")
		if left != nil && left.Type() == "boolean_operator" && c.text(left.ChildByFieldName("operator")) == op {
			cur = left
			continue
		}
		operands = append(operands, left)
		break
	}
	for i := len(operands) - 1; i >= 0; i-- {
		if v := c.expr(operands[i], syntax.Load); v != nil {
			node.Values = append(node.Values, v)
		}
	}
	return node.Add(node.Values...)
}

func (c *converter) compare(n *sitter.Node) *syntax.Node {
	node := syntax.New(syntax.KindCompare, span(n))
	var pending string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		if child.IsNamed() {
			pending = ""
			node.Add(c.expr(child, syntax.Load))
			continue
		}
		tok := child.Type()
		// Older grammars emit "not in" and "is not" as two tokens.
		switch {
		case tok == "not" && pending == "":
			pending = "not"
			continue
		case tok == "in" && pending == "not":
			tok = "not in"
		case tok == "not" && pending == "is":
			node.Ops[len(node.Ops)-1] = compareOps["is not"]
			pending = ""
			continue
		}
		pending = ""
		if tok == "is" {
			pending = "is"
		}
		if name, ok := compareOps[tok]; ok {
			node.Ops = append(node.Ops, name)
		}
	}
	return node
}

// comprehension converts a list/set/dict comprehension or generator
// expression. Each for-in clause becomes a comprehension node that owns the
// if clauses following it.
func (c *converter) comprehension(kind syntax.Kind, n *sitter.Node) *syntax.Node {
	node := syntax.New(kind, span(n))
	if body := n.ChildByFieldName("body"); body != nil {
		if body.Type() == "pair" {
			node.Add(c.expr(body.ChildByFieldName("key"), syntax.Load))
			node.Add(c.expr(body.ChildByFieldName("value"), syntax.Load))
		} else {
			node.Add(c.expr(body, syntax.Load))
		}
	}

	var current *syntax.Node
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "for_in_clause":
			current = syntax.New(syntax.KindComprehension, span(child))
			current.Targets = c.targets(child.ChildByFieldName("left"), syntax.Store)
			current.Add(current.Targets...)
			current.Add(c.expr(child.ChildByFieldName("right"), syntax.Load))
			node.Add(current)
		case "if_clause":
			if current != nil {
				current.Add(c.exprList(namedChildren(child), syntax.Load))
			}
		}
	}
	return node
}

// stringPrefix returns the lowercase prefix letters of a string literal.
func stringPrefix(raw string) string {
	i := strings.IndexAny(raw, `"'`)
	if i < 0 {
		return ""
	}
	return strings.ToLower(raw[:i])
}

func isTripleQuoted(raw string) bool {
	body := raw[len(stringPrefix(raw)):]
	return strings.HasPrefix(body, `"""`) || strings.HasPrefix(body, `'''`)
}

func (c *converter) str(n *sitter.Node) *syntax.Node {
	raw := c.text(n)
	prefix := stringPrefix(raw)
	if strings.Contains(prefix, "f") {
		js := syntax.New(syntax.KindJoinedStr, span(n))
		js.Value = raw
		js.TripleQuoted = isTripleQuoted(raw)
		for _, child := range namedChildren(n) {
			if child.Type() == "interpolation" {
				js.Add(c.exprs(child, syntax.Load)...)
			}
		}
		return js
	}
	k := syntax.New(syntax.KindConstant, span(n))
	k.Literal = syntax.LiteralString
	if strings.Contains(prefix, "b") {
		k.Literal = syntax.LiteralBytes
	}
	k.Value = raw
	k.TripleQuoted = isTripleQuoted(raw)
	return k
}

func (c *converter) concatenated(n *sitter.Node) *syntax.Node {
	parts := namedChildren(n)
	var converted []*syntax.Node
	joined := false
	for _, part := range parts {
		s := c.expr(part, syntax.Load)
		if s == nil {
			continue
		}
		if s.Kind == syntax.KindJoinedStr {
			joined = true
		}
		converted = append(converted, s)
	}
	raw := c.text(n)
	if joined {
		js := syntax.New(syntax.KindJoinedStr, span(n))
		js.Value = raw
		for _, s := range converted {
			js.Add(s.Children...)
		}
		return js
	}
	k := syntax.New(syntax.KindConstant, span(n))
	k.Literal = syntax.LiteralString
	if len(converted) > 0 {
		k.Literal = converted[0].Literal
		k.TripleQuoted = converted[0].TripleQuoted
	}
	k.Value = raw
	return k
}
