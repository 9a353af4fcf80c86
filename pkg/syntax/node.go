// Package syntax defines the Python syntax tree consumed by the metrics
// engine.
//
// The tree mirrors the shape of Python's own ast module: statements own
// their bodies directly (there is no block node), elif chains are nested If
// nodes in the orelse of their head, and chained boolean operators collapse
// into a single BoolOp. Each Node exclusively owns its Children; the
// variant views (Body, Orelse, Targets, ...) only reference nodes that are
// already in Children.
package syntax

// Kind identifies the variant of a Node.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindModule
	KindFunctionDef
	KindAsyncFunctionDef
	KindClassDef
	KindReturn
	KindDelete
	KindAssign
	KindAugAssign
	KindAnnAssign
	KindFor
	KindAsyncFor
	KindWhile
	KindIf
	KindWith
	KindAsyncWith
	KindWithItem
	KindMatch
	KindMatchCase
	KindRaise
	KindTry
	KindExceptHandler
	KindAssert
	KindImport
	KindImportFrom
	KindAlias
	KindGlobal
	KindNonlocal
	KindExpr
	KindPass
	KindBreak
	KindContinue
	KindBoolOp
	KindNamedExpr
	KindBinOp
	KindUnaryOp
	KindLambda
	KindIfExp
	KindDict
	KindSet
	KindListComp
	KindSetComp
	KindDictComp
	KindGeneratorExp
	KindComprehension
	KindAwait
	KindYield
	KindYieldFrom
	KindCompare
	KindCall
	KindKeyword
	KindJoinedStr
	KindConstant
	KindAttribute
	KindSubscript
	KindStarred
	KindName
	KindList
	KindTuple
	KindSlice
	KindArguments
	KindArg

	kindCount
)

var kindNames = [kindCount]string{
	KindInvalid:          "Invalid",
	KindModule:           "Module",
	KindFunctionDef:      "FunctionDef",
	KindAsyncFunctionDef: "AsyncFunctionDef",
	KindClassDef:         "ClassDef",
	KindReturn:           "Return",
	KindDelete:           "Delete",
	KindAssign:           "Assign",
	KindAugAssign:        "AugAssign",
	KindAnnAssign:        "AnnAssign",
	KindFor:              "For",
	KindAsyncFor:         "AsyncFor",
	KindWhile:            "While",
	KindIf:               "If",
	KindWith:             "With",
	KindAsyncWith:        "AsyncWith",
	KindWithItem:         "withitem",
	KindMatch:            "Match",
	KindMatchCase:        "match_case",
	KindRaise:            "Raise",
	KindTry:              "Try",
	KindExceptHandler:    "ExceptHandler",
	KindAssert:           "Assert",
	KindImport:           "Import",
	KindImportFrom:       "ImportFrom",
	KindAlias:            "alias",
	KindGlobal:           "Global",
	KindNonlocal:         "Nonlocal",
	KindExpr:             "Expr",
	KindPass:             "Pass",
	KindBreak:            "Break",
	KindContinue:         "Continue",
	KindBoolOp:           "BoolOp",
	KindNamedExpr:        "NamedExpr",
	KindBinOp:            "BinOp",
	KindUnaryOp:          "UnaryOp",
	KindLambda:           "Lambda",
	KindIfExp:            "IfExp",
	KindDict:             "Dict",
	KindSet:              "Set",
	KindListComp:         "ListComp",
	KindSetComp:          "SetComp",
	KindDictComp:         "DictComp",
	KindGeneratorExp:     "GeneratorExp",
	KindComprehension:    "comprehension",
	KindAwait:            "Await",
	KindYield:            "Yield",
	KindYieldFrom:        "YieldFrom",
	KindCompare:          "Compare",
	KindCall:             "Call",
	KindKeyword:          "keyword",
	KindJoinedStr:        "JoinedStr",
	KindConstant:         "Constant",
	KindAttribute:        "Attribute",
	KindSubscript:        "Subscript",
	KindStarred:          "Starred",
	KindName:             "Name",
	KindList:             "List",
	KindTuple:            "Tuple",
	KindSlice:            "Slice",
	KindArguments:        "arguments",
	KindArg:              "arg",
}

// String returns the Python ast class name of the kind.
func (k Kind) String() string {
	if k >= kindCount {
		return "Invalid"
	}
	return kindNames[k]
}

// Valid reports whether k is a known, non-invalid kind.
func (k Kind) Valid() bool {
	return k > KindInvalid && k < kindCount
}

// IsFunction reports whether k is a function definition.
func (k Kind) IsFunction() bool {
	return k == KindFunctionDef || k == KindAsyncFunctionDef
}

// IsScope reports whether k opens a function or class scope.
func (k Kind) IsScope() bool {
	return k.IsFunction() || k == KindClassDef
}

// LiteralKind classifies Constant nodes.
type LiteralKind uint8

const (
	LiteralNone LiteralKind = iota
	LiteralString
	LiteralBytes
	LiteralNumber
	LiteralBool
	LiteralNull
	LiteralEllipsis
)

// ExprContext mirrors Python's Load/Store/Del expression contexts.
type ExprContext uint8

const (
	Load ExprContext = iota
	Store
	Del
)

// Span is the source range covered by a node. Lines are 1-based, columns
// are 0-based byte offsets within the line.
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// Node is one vertex of the syntax tree.
type Node struct {
	Kind     Kind
	Span     Span
	Children []*Node

	// Name holds identifier text: the id of a Name, the name of a
	// FunctionDef/ClassDef/arg/keyword, the attribute of an Attribute, and
	// the imported name of an alias.
	Name string

	// Names lists identifiers declared by Global and Nonlocal.
	Names []string

	// Module is the dotted module of an ImportFrom (may be empty for
	// "from . import x"); Level is its count of leading dots.
	Module string
	Level  int

	// Op is the operator of BinOp, UnaryOp, BoolOp and AugAssign.
	// Ops holds the operators of a Compare in source order.
	Op  string
	Ops []string

	// Literal and Value describe a Constant; Value is the raw source text.
	Literal      LiteralKind
	Value        string
	TripleQuoted bool

	Ctx ExprContext

	// Elif marks an If that was written as an elif link of a chain.
	Elif bool

	// Variant views into Children.
	Decorators []*Node // FunctionDef, AsyncFunctionDef, ClassDef
	Bases      []*Node // ClassDef positional bases
	Args       *Node   // FunctionDef, AsyncFunctionDef, Lambda (KindArguments)
	Body       []*Node
	Orelse     []*Node
	Finalbody  []*Node
	Handlers   []*Node // Try
	Targets    []*Node // Assign, AugAssign, AnnAssign, For, comprehension, withitem, NamedExpr, Delete
	Values     []*Node // BoolOp operands
}

// New creates a node of the given kind spanning span.
func New(kind Kind, span Span) *Node {
	return &Node{Kind: kind, Span: span}
}

// Add appends children to n and returns n.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// Docstring returns the docstring constant of a module, class or function
// body, or nil when the first statement is not a string expression.
func (n *Node) Docstring() *Node {
	if n == nil || len(n.Body) == 0 {
		return nil
	}
	switch n.Kind {
	case KindModule, KindClassDef, KindFunctionDef, KindAsyncFunctionDef:
	default:
		return nil
	}
	first := n.Body[0]
	if first.Kind != KindExpr || len(first.Children) != 1 {
		return nil
	}
	c := first.Children[0]
	if c.Kind != KindConstant || c.Literal != LiteralString {
		return nil
	}
	return c
}

// ParamCount returns the number of declared parameters of a function or
// lambda, counting *args and **kwargs.
func (n *Node) ParamCount() int {
	if n == nil || n.Args == nil {
		return 0
	}
	count := 0
	for _, c := range n.Args.Children {
		if c.Kind == KindArg {
			count++
		}
	}
	return count
}
