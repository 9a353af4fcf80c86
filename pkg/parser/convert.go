package parser

import (
	"strings"

	"github.com/panbanda/pymetrics/pkg/syntax"
	sitter "github.com/smacker/go-tree-sitter"
)

// converter lowers a tree-sitter concrete tree into the syntax tree.
type converter struct {
	src []byte
}

func (c *converter) text(n *sitter.Node) string {
	return nodeText(n, c.src)
}

func span(n *sitter.Node) syntax.Span {
	start, end := n.StartPoint(), n.EndPoint()
	return syntax.Span{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column),
	}
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func hasToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && !child.IsNamed() && child.Type() == token {
			return true
		}
	}
	return false
}

func (c *converter) module(root *sitter.Node) *syntax.Node {
	mod := syntax.New(syntax.KindModule, span(root))
	mod.Body = c.block(root)
	mod.Add(mod.Body...)
	return mod
}

// block converts the statements of a module or block node.
func (c *converter) block(n *sitter.Node) []*syntax.Node {
	var stmts []*syntax.Node
	for _, child := range namedChildren(n) {
		stmts = append(stmts, c.statement(child)...)
	}
	return stmts
}

// body converts the field that holds a compound statement's suite.
func (c *converter) body(n *sitter.Node, field string) []*syntax.Node {
	return c.block(n.ChildByFieldName(field))
}

func (c *converter) statement(n *sitter.Node) []*syntax.Node {
	switch n.Type() {
	case "expression_statement":
		return c.expressionStatement(n)
	case "return_statement":
		return []*syntax.Node{syntax.New(syntax.KindReturn, span(n)).Add(c.exprList(namedChildren(n), syntax.Load))}
	case "delete_statement":
		del := syntax.New(syntax.KindDelete, span(n))
		for _, child := range namedChildren(n) {
			del.Targets = append(del.Targets, c.targets(child, syntax.Del)...)
		}
		return []*syntax.Node{del.Add(del.Targets...)}
	case "raise_statement":
		return []*syntax.Node{c.simple(syntax.KindRaise, n)}
	case "assert_statement":
		return []*syntax.Node{c.simple(syntax.KindAssert, n)}
	case "pass_statement":
		return []*syntax.Node{syntax.New(syntax.KindPass, span(n))}
	case "break_statement":
		return []*syntax.Node{syntax.New(syntax.KindBreak, span(n))}
	case "continue_statement":
		return []*syntax.Node{syntax.New(syntax.KindContinue, span(n))}
	case "global_statement":
		return []*syntax.Node{c.scopeDecl(syntax.KindGlobal, n)}
	case "nonlocal_statement":
		return []*syntax.Node{c.scopeDecl(syntax.KindNonlocal, n)}
	case "import_statement":
		return []*syntax.Node{c.importStatement(n)}
	case "import_from_statement", "future_import_statement":
		return []*syntax.Node{c.importFrom(n)}
	case "if_statement":
		return []*syntax.Node{c.ifStatement(n)}
	case "for_statement":
		return []*syntax.Node{c.forStatement(n)}
	case "while_statement":
		return []*syntax.Node{c.whileStatement(n)}
	case "try_statement":
		return []*syntax.Node{c.tryStatement(n)}
	case "with_statement":
		return []*syntax.Node{c.withStatement(n)}
	case "match_statement":
		return []*syntax.Node{c.matchStatement(n)}
	case "function_definition":
		return []*syntax.Node{c.functionDef(n, nil)}
	case "class_definition":
		return []*syntax.Node{c.classDef(n, nil)}
	case "decorated_definition":
		return []*syntax.Node{c.decorated(n)}
	case "block", "module":
		return c.block(n)
	default:
		// Statement forms without a dedicated kind (type aliases, a
		// parenthesized print) are kept as expression statements.
		return []*syntax.Node{c.simple(syntax.KindExpr, n)}
	}
}

// simple builds a statement whose children are its operand expressions.
func (c *converter) simple(kind syntax.Kind, n *sitter.Node) *syntax.Node {
	node := syntax.New(kind, span(n))
	for _, child := range namedChildren(n) {
		node.Add(c.exprs(child, syntax.Load)...)
	}
	return node
}

func (c *converter) scopeDecl(kind syntax.Kind, n *sitter.Node) *syntax.Node {
	node := syntax.New(kind, span(n))
	for _, child := range namedChildren(n) {
		if child.Type() == "identifier" {
			node.Names = append(node.Names, c.text(child))
		}
	}
	return node
}

func (c *converter) expressionStatement(n *sitter.Node) []*syntax.Node {
	children := namedChildren(n)
	if len(children) == 1 {
		switch children[0].Type() {
		case "assignment":
			return []*syntax.Node{c.assignment(children[0])}
		case "augmented_assignment":
			return []*syntax.Node{c.augAssignment(children[0])}
		}
	}
	expr := syntax.New(syntax.KindExpr, span(n))
	return []*syntax.Node{expr.Add(c.exprList(children, syntax.Load))}
}

func (c *converter) assignment(n *sitter.Node) *syntax.Node {
	if annotation := n.ChildByFieldName("type"); annotation != nil {
		node := syntax.New(syntax.KindAnnAssign, span(n))
		node.Targets = c.targets(n.ChildByFieldName("left"), syntax.Store)
		node.Add(node.Targets...)
		node.Add(c.expr(annotation, syntax.Load))
		if right := n.ChildByFieldName("right"); right != nil {
			node.Add(c.expr(right, syntax.Load))
		}
		return node
	}

	// a = b = value is a right-nested chain of assignments.
	node := syntax.New(syntax.KindAssign, span(n))
	cur := n
	for {
		node.Targets = append(node.Targets, c.targets(cur.ChildByFieldName("left"), syntax.Store)...)
		right := cur.ChildByFieldName("right")
		if right != nil && right.Type() == "assignment" && right.ChildByFieldName("type") == nil {
			cur = right
			continue
		}
		node.Add(node.Targets...)
		if right != nil {
			node.Add(c.expr(right, syntax.Load))
		}
		return node
	}
}

func (c *converter) augAssignment(n *sitter.Node) *syntax.Node {
	node := syntax.New(syntax.KindAugAssign, span(n))
	op := c.text(n.ChildByFieldName("operator"))
	node.Op = binaryOpName(strings.TrimSuffix(op, "="))
	node.Targets = c.targets(n.ChildByFieldName("left"), syntax.Store)
	node.Add(node.Targets...)
	return node.Add(c.expr(n.ChildByFieldName("right"), syntax.Load))
}

// targets converts an assignment target. A bare "a, b" pattern list is a
// single Tuple target, matching Python's own tree.
func (c *converter) targets(n *sitter.Node, ctx syntax.ExprContext) []*syntax.Node {
	if n == nil {
		return nil
	}
	if t := c.expr(n, ctx); t != nil {
		return []*syntax.Node{t}
	}
	return nil
}

func (c *converter) importStatement(n *sitter.Node) *syntax.Node {
	node := syntax.New(syntax.KindImport, span(n))
	for _, child := range namedChildren(n) {
		alias := c.alias(child)
		if alias == nil {
			continue
		}
		node.Names = append(node.Names, alias.Name)
		node.Add(alias)
	}
	return node
}

func (c *converter) importFrom(n *sitter.Node) *syntax.Node {
	node := syntax.New(syntax.KindImportFrom, span(n))
	moduleName := n.ChildByFieldName("module_name")
	if n.Type() == "future_import_statement" {
		node.Module = "__future__"
	}
	if moduleName != nil {
		switch moduleName.Type() {
		case "relative_import":
			for _, part := range namedChildren(moduleName) {
				switch part.Type() {
				case "import_prefix":
					node.Level = strings.Count(c.text(part), ".")
				case "dotted_name":
					node.Module = c.text(part)
				}
			}
		default:
			node.Module = c.text(moduleName)
		}
	}

	for _, child := range namedChildren(n) {
		if moduleName != nil && child.StartByte() == moduleName.StartByte() && child.EndByte() == moduleName.EndByte() {
			continue
		}
		if child.Type() == "wildcard_import" {
			a := syntax.New(syntax.KindAlias, span(child))
			a.Name = "*"
			node.Names = append(node.Names, a.Name)
			node.Add(a)
			continue
		}
		if alias := c.alias(child); alias != nil {
			node.Names = append(node.Names, alias.Name)
			node.Add(alias)
		}
	}
	return node
}

func (c *converter) alias(n *sitter.Node) *syntax.Node {
	switch n.Type() {
	case "dotted_name", "identifier":
		a := syntax.New(syntax.KindAlias, span(n))
		a.Name = c.text(n)
		return a
	case "aliased_import":
		a := syntax.New(syntax.KindAlias, span(n))
		a.Name = c.text(n.ChildByFieldName("name"))
		return a
	}
	return nil
}

func (c *converter) ifStatement(n *sitter.Node) *syntax.Node {
	head := syntax.New(syntax.KindIf, span(n))
	head.Add(c.expr(n.ChildByFieldName("condition"), syntax.Load))
	head.Body = c.body(n, "consequence")
	head.Add(head.Body...)

	tail := head
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "elif_clause":
			link := syntax.New(syntax.KindIf, span(child))
			link.Elif = true
			link.Add(c.expr(child.ChildByFieldName("condition"), syntax.Load))
			link.Body = c.body(child, "consequence")
			link.Add(link.Body...)
			tail.Orelse = []*syntax.Node{link}
			tail.Add(link)
			tail = link
		case "else_clause":
			tail.Orelse = c.body(child, "body")
			tail.Add(tail.Orelse...)
		}
	}
	return head
}

// elseBody returns the statements of an optional trailing else clause.
func (c *converter) elseBody(n *sitter.Node) []*syntax.Node {
	for _, child := range namedChildren(n) {
		if child.Type() == "else_clause" {
			return c.body(child, "body")
		}
	}
	return nil
}

func (c *converter) forStatement(n *sitter.Node) *syntax.Node {
	kind := syntax.KindFor
	if hasToken(n, "async") {
		kind = syntax.KindAsyncFor
	}
	node := syntax.New(kind, span(n))
	node.Targets = c.targets(n.ChildByFieldName("left"), syntax.Store)
	node.Add(node.Targets...)
	node.Add(c.expr(n.ChildByFieldName("right"), syntax.Load))
	node.Body = c.body(n, "body")
	node.Orelse = c.elseBody(n)
	node.Add(node.Body...)
	return node.Add(node.Orelse...)
}

func (c *converter) whileStatement(n *sitter.Node) *syntax.Node {
	node := syntax.New(syntax.KindWhile, span(n))
	node.Add(c.expr(n.ChildByFieldName("condition"), syntax.Load))
	node.Body = c.body(n, "body")
	node.Orelse = c.elseBody(n)
	node.Add(node.Body...)
	return node.Add(node.Orelse...)
}

func (c *converter) tryStatement(n *sitter.Node) *syntax.Node {
	node := syntax.New(syntax.KindTry, span(n))
	node.Body = c.body(n, "body")
	node.Add(node.Body...)
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "except_clause", "except_group_clause":
			h := c.exceptHandler(child)
			node.Handlers = append(node.Handlers, h)
			node.Add(h)
		case "else_clause":
			node.Orelse = c.body(child, "body")
			node.Add(node.Orelse...)
		case "finally_clause":
			node.Finalbody = c.block(firstOfType(child, "block"))
			node.Add(node.Finalbody...)
		}
	}
	return node
}

func firstOfType(n *sitter.Node, typ string) *sitter.Node {
	for _, child := range namedChildren(n) {
		if child.Type() == typ {
			return child
		}
	}
	return nil
}

func (c *converter) exceptHandler(n *sitter.Node) *syntax.Node {
	node := syntax.New(syntax.KindExceptHandler, span(n))
	var exprs []*sitter.Node
	for _, child := range namedChildren(n) {
		if child.Type() == "block" {
			node.Body = c.block(child)
			continue
		}
		exprs = append(exprs, child)
	}

	// except E as name: the grammar exposes the alias either as a trailing
	// identifier after an "as" token or inside an as_pattern.
	if len(exprs) == 1 && exprs[0].Type() == "as_pattern" {
		parts := namedChildren(exprs[0])
		if len(parts) > 0 {
			node.Add(c.expr(parts[0], syntax.Load))
		}
		if len(parts) > 1 {
			node.Name = c.text(parts[len(parts)-1])
		}
	} else if len(exprs) >= 2 && (hasToken(n, "as") || hasToken(n, ",")) {
		node.Add(c.expr(exprs[0], syntax.Load))
		node.Name = c.text(exprs[len(exprs)-1])
	} else if len(exprs) > 0 {
		node.Add(c.exprList(exprs, syntax.Load))
	}
	return node.Add(node.Body...)
}

func (c *converter) withStatement(n *sitter.Node) *syntax.Node {
	kind := syntax.KindWith
	if hasToken(n, "async") {
		kind = syntax.KindAsyncWith
	}
	node := syntax.New(kind, span(n))
	for _, child := range namedChildren(n) {
		if child.Type() != "with_clause" {
			continue
		}
		for _, item := range namedChildren(child) {
			if item.Type() == "with_item" {
				node.Add(c.withItem(item))
			}
		}
	}
	node.Body = c.body(n, "body")
	return node.Add(node.Body...)
}

func (c *converter) withItem(n *sitter.Node) *syntax.Node {
	item := syntax.New(syntax.KindWithItem, span(n))
	value := n.ChildByFieldName("value")
	if value == nil {
		return item
	}
	if value.Type() == "as_pattern" {
		parts := namedChildren(value)
		if len(parts) > 0 {
			item.Add(c.expr(parts[0], syntax.Load))
		}
		if len(parts) > 1 {
			target := parts[len(parts)-1]
			if target.Type() == "as_pattern_target" {
				if inner := namedChildren(target); len(inner) == 1 {
					target = inner[0]
				}
			}
			item.Targets = c.targets(target, syntax.Store)
			item.Add(item.Targets...)
		}
		return item
	}
	item.Add(c.expr(value, syntax.Load))
	if alias := n.ChildByFieldName("alias"); alias != nil {
		item.Targets = c.targets(alias, syntax.Store)
		item.Add(item.Targets...)
	}
	return item
}

func (c *converter) matchStatement(n *sitter.Node) *syntax.Node {
	node := syntax.New(syntax.KindMatch, span(n))
	if subject := n.ChildByFieldName("subject"); subject != nil {
		node.Add(c.expr(subject, syntax.Load))
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		body = firstOfType(n, "block")
	}
	for _, clause := range namedChildren(body) {
		if clause.Type() != "case_clause" {
			continue
		}
		mc := syntax.New(syntax.KindMatchCase, span(clause))
		for _, part := range namedChildren(clause) {
			if part.Type() == "block" {
				mc.Body = c.block(part)
				continue
			}
			mc.Add(c.exprs(part, syntax.Load)...)
		}
		mc.Add(mc.Body...)
		node.Add(mc)
	}
	return node
}

func (c *converter) decorated(n *sitter.Node) *syntax.Node {
	var decorators []*syntax.Node
	for _, child := range namedChildren(n) {
		if child.Type() != "decorator" {
			continue
		}
		if d := c.exprList(namedChildren(child), syntax.Load); d != nil {
			decorators = append(decorators, d)
		}
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		return syntax.New(syntax.KindInvalid, span(n))
	}
	switch def.Type() {
	case "function_definition":
		return c.functionDef(def, decorators)
	case "class_definition":
		return c.classDef(def, decorators)
	}
	return syntax.New(syntax.KindInvalid, span(def))
}

func (c *converter) functionDef(n *sitter.Node, decorators []*syntax.Node) *syntax.Node {
	kind := syntax.KindFunctionDef
	if hasToken(n, "async") {
		kind = syntax.KindAsyncFunctionDef
	}
	node := syntax.New(kind, span(n))
	node.Name = c.text(n.ChildByFieldName("name"))
	node.Decorators = decorators
	node.Add(decorators...)

	node.Args = c.parameters(n.ChildByFieldName("parameters"))
	node.Add(node.Args)
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		node.Add(c.expr(ret, syntax.Load))
	}
	node.Body = c.body(n, "body")
	return node.Add(node.Body...)
}

func (c *converter) classDef(n *sitter.Node, decorators []*syntax.Node) *syntax.Node {
	node := syntax.New(syntax.KindClassDef, span(n))
	node.Name = c.text(n.ChildByFieldName("name"))
	node.Decorators = decorators
	node.Add(decorators...)

	for _, arg := range namedChildren(n.ChildByFieldName("superclasses")) {
		converted := c.argument(arg)
		if converted == nil {
			continue
		}
		if converted.Kind != syntax.KindKeyword {
			node.Bases = append(node.Bases, converted)
		}
		node.Add(converted)
	}
	node.Body = c.body(n, "body")
	return node.Add(node.Body...)
}

// parameters converts a parameter list into an arguments node. Defaults and
// annotations become children of the arguments/arg nodes respectively.
func (c *converter) parameters(n *sitter.Node) *syntax.Node {
	if n == nil {
		return syntax.New(syntax.KindArguments, syntax.Span{})
	}
	args := syntax.New(syntax.KindArguments, span(n))
	var defaults []*syntax.Node
	for _, p := range namedChildren(n) {
		arg := syntax.New(syntax.KindArg, span(p))
		switch p.Type() {
		case "identifier":
			arg.Name = c.text(p)
		case "list_splat_pattern", "dictionary_splat_pattern":
			arg.Name = c.text(firstOfType(p, "identifier"))
		case "typed_parameter":
			for _, part := range namedChildren(p) {
				switch part.Type() {
				case "identifier":
					arg.Name = c.text(part)
				case "list_splat_pattern", "dictionary_splat_pattern":
					arg.Name = c.text(firstOfType(part, "identifier"))
				}
			}
			arg.Add(c.expr(p.ChildByFieldName("type"), syntax.Load))
		case "default_parameter", "typed_default_parameter":
			arg.Name = c.text(p.ChildByFieldName("name"))
			if typ := p.ChildByFieldName("type"); typ != nil {
				arg.Add(c.expr(typ, syntax.Load))
			}
			if v := c.expr(p.ChildByFieldName("value"), syntax.Load); v != nil {
				defaults = append(defaults, v)
			}
		default:
			// keyword_separator (*) and positional_separator (/)
			continue
		}
		args.Add(arg)
	}
	return args.Add(defaults...)
}
