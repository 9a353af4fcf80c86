// Package engine implements the single-pass traversal that turns a syntax
// tree into a Snapshot of raw metric counters.
//
// All mutable bookkeeping lives in a state value owned by one Run. Function
// and class bodies are entered by pushing a scope that saves the enclosing
// counters and popped on exit, restoring them; nothing relies on the Go call
// stack, and the walk itself is iterative.
package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/panbanda/pymetrics/pkg/syntax"
)

// ErrEngineUsed is returned when Run is called twice without Reset.
var ErrEngineUsed = errors.New("engine already ran; call Reset before reuse")

// Fault reports a violated invariant found while traversing a tree, which
// indicates a malformed tree rather than bad user input.
type Fault struct {
	Line    int
	Message string
}

func (f *Fault) Error() string {
	if f.Line > 0 {
		return fmt.Sprintf("analysis fault at line %d: %s", f.Line, f.Message)
	}
	return "analysis fault: " + f.Message
}

func faultf(n *syntax.Node, format string, args ...any) *Fault {
	line := 0
	if n != nil {
		line = n.Span.StartLine
	}
	return &Fault{Line: line, Message: fmt.Sprintf(format, args...)}
}

// Engine runs traversals. One Engine handles one file at a time; analyze
// files concurrently with separate engines.
type Engine struct {
	st   *state
	used bool
}

// New creates a ready engine.
func New() *Engine {
	return &Engine{st: newState()}
}

// Reset discards all state so the engine can analyze another file.
func (e *Engine) Reset() {
	e.st = newState()
	e.used = false
}

// Nesting returns the engine's current block-nesting counter. It is 0 before
// a run and after any successful run.
func (e *Engine) Nesting() int {
	return e.st.nesting
}

// Run traverses root, whose source text is source, and returns the
// resulting snapshot.
func (e *Engine) Run(root *syntax.Node, source []byte) (*Snapshot, error) {
	if e.used {
		return nil, ErrEngineUsed
	}
	e.used = true

	if root == nil || root.Kind != syntax.KindModule {
		return nil, faultf(root, "traversal root must be a Module")
	}
	if err := syntax.Walk(root, e.st); err != nil {
		return nil, err
	}
	if e.st.nesting != 0 || e.st.cogNesting != 0 || len(e.st.scopes) != 0 {
		return nil, &Fault{Message: fmt.Sprintf("unbalanced traversal: nesting=%d scopes=%d", e.st.nesting, len(e.st.scopes))}
	}
	return e.st.snapshot(source), nil
}

// Run analyzes root with a fresh engine.
func Run(root *syntax.Node, source []byte) (*Snapshot, error) {
	return New().Run(root, source)
}

// scope is the saved context of an enclosing function or class body.
type scope struct {
	kind syntax.Kind
	node *syntax.Node

	fn  int // index into state.functions, -1 for classes
	cls int // index into state.classes, -1 for functions

	cyclomatic int
	cognitive  int
	maxNesting int

	savedNesting    int
	savedCogNesting int

	refs map[string]struct{}
}

type state struct {
	nodeCount int
	maxDepth  int
	histogram map[string]int

	nesting    int
	cogNesting int
	maxNesting int

	decisions int
	cognitive int

	scopes    []*scope
	functions []FunctionRecord
	classes   []ClassRecord

	operators map[string]int
	operands  map[string]int

	counts   ConstructCounts
	literals LiteralCounts

	variables map[string]struct{}
	globals   map[string]struct{}
	nonlocals map[string]struct{}
	imports   []Import

	docstrings lineSet
	// strings holds the lines inside other multi-line string literals.
	strings lineSet
}

func newState() *state {
	return &state{
		histogram:  make(map[string]int),
		operators:  make(map[string]int),
		operands:   make(map[string]int),
		variables:  make(map[string]struct{}),
		globals:    make(map[string]struct{}),
		nonlocals:  make(map[string]struct{}),
		docstrings: newLineSet(),
		strings:    newLineSet(),
	}
}

func (s *state) current() *scope {
	if len(s.scopes) == 0 {
		return nil
	}
	return s.scopes[len(s.scopes)-1]
}

// currentFunction returns the innermost enclosing function scope.
func (s *state) currentFunction() *scope {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if s.scopes[i].fn >= 0 {
			return s.scopes[i]
		}
	}
	return nil
}

// addDecision records a cyclomatic increment and the matching cognitive
// increment with the given nesting bonus.
func (s *state) addDecision(amount, bonus int) {
	if amount <= 0 {
		return
	}
	s.decisions += amount
	s.cognitive += amount + bonus
	if sc := s.current(); sc != nil {
		sc.cyclomatic += amount
		sc.cognitive += amount + bonus
	}
}

// opensBlock reports whether n increases block nesting. Elif links share
// their head's level.
func opensBlock(n *syntax.Node) bool {
	switch n.Kind {
	case syntax.KindIf:
		return !n.Elif
	case syntax.KindFor, syntax.KindAsyncFor, syntax.KindWhile,
		syntax.KindTry, syntax.KindWith, syntax.KindAsyncWith:
		return true
	}
	return false
}

func (s *state) pushBlock() {
	s.nesting++
	s.cogNesting++
	if s.nesting > s.maxNesting {
		s.maxNesting = s.nesting
	}
	if sc := s.currentFunction(); sc != nil && s.nesting > sc.maxNesting {
		sc.maxNesting = s.nesting
	}
}

func (s *state) popBlock() {
	s.nesting--
	s.cogNesting--
}

// Enter implements syntax.Visitor.
func (s *state) Enter(n *syntax.Node, depth int) error {
	if !n.Kind.Valid() {
		return faultf(n, "invalid node kind %d", n.Kind)
	}
	s.nodeCount++
	if depth+1 > s.maxDepth {
		s.maxDepth = depth + 1
	}
	s.histogram[n.Kind.String()]++

	if err := s.enter(n); err != nil {
		return err
	}
	if opensBlock(n) {
		s.pushBlock()
	}
	// A lambda body sits one cognitive level deeper without opening a block.
	if n.Kind == syntax.KindLambda {
		s.cogNesting++
	}
	return nil
}

// Exit implements syntax.Visitor.
func (s *state) Exit(n *syntax.Node, _ int) error {
	if n.Kind == syntax.KindLambda {
		s.cogNesting--
	}
	if opensBlock(n) {
		s.popBlock()
	}
	if n.Kind.IsScope() {
		return s.popScope(n)
	}
	return nil
}

// enter dispatches on the node kind. Every kind is listed so that adding a
// kind without deciding how it is counted is caught in review.
func (s *state) enter(n *syntax.Node) error {
	switch n.Kind {
	case syntax.KindModule:
		// The module docstring counts as docstring lines too.
		s.docstring(n)

	case syntax.KindFunctionDef, syntax.KindAsyncFunctionDef:
		return s.enterFunction(n)

	case syntax.KindClassDef:
		return s.enterClass(n)

	case syntax.KindIf:
		s.enterIf(n)

	case syntax.KindFor, syntax.KindAsyncFor:
		if n.Kind == syntax.KindAsyncFor {
			s.counts.AsyncFor++
		} else {
			s.counts.For++
		}
		if len(n.Orelse) > 0 {
			s.counts.LoopElse++
		}
		s.addDecision(1, s.cogNesting)

	case syntax.KindWhile:
		s.counts.While++
		if len(n.Orelse) > 0 {
			s.counts.LoopElse++
		}
		s.addDecision(1, s.cogNesting)

	case syntax.KindWith, syntax.KindAsyncWith:
		if n.Kind == syntax.KindAsyncWith {
			s.counts.AsyncWith++
		} else {
			s.counts.With++
		}
		s.addDecision(1, s.cogNesting)

	case syntax.KindTry:
		s.counts.Try++
		s.counts.Except += len(n.Handlers)
		amount := len(n.Handlers)
		if len(n.Orelse) > 0 {
			s.counts.TryElse++
			amount++
		}
		if len(n.Finalbody) > 0 {
			s.counts.Finally++
			amount++
		}
		s.addDecision(amount, s.cogNesting)

	case syntax.KindExceptHandler:
		if n.Name != "" {
			s.variables[n.Name] = struct{}{}
		}

	case syntax.KindBoolOp:
		if len(n.Values) < 2 {
			return faultf(n, "BoolOp with %d operands", len(n.Values))
		}
		s.operators[n.Op]++
		s.counts.BoolOps += len(n.Values) - 1
		s.addDecision(len(n.Values)-1, s.cogNesting)

	case syntax.KindBinOp, syntax.KindUnaryOp:
		if n.Op == "" {
			return faultf(n, "%s without operator", n.Kind)
		}
		s.operators[n.Op]++

	case syntax.KindAugAssign:
		if n.Op != "" {
			s.operators[n.Op]++
		}
		s.counts.Assignments++

	case syntax.KindCompare:
		if len(n.Ops) == 0 {
			return faultf(n, "Compare without operators")
		}
		for _, op := range n.Ops {
			s.operators[op]++
		}
		s.counts.Comparisons += len(n.Ops)

	case syntax.KindAssign:
		s.counts.Assignments += len(n.Targets)

	case syntax.KindAnnAssign:
		// A bare annotation declares without assigning.
		if len(n.Children) > len(n.Targets)+1 {
			s.counts.Assignments++
		}

	case syntax.KindNamedExpr:
		s.counts.Assignments++

	case syntax.KindName:
		s.enterName(n)

	case syntax.KindConstant:
		switch n.Literal {
		case syntax.LiteralString, syntax.LiteralBytes:
			s.literals.String++
			s.stringLines(n)
		case syntax.LiteralNumber:
			s.literals.Number++
		case syntax.LiteralBool:
			s.literals.Boolean++
		case syntax.LiteralNull:
			s.literals.None++
		case syntax.LiteralEllipsis:
		}

	case syntax.KindJoinedStr:
		s.literals.String++
		s.stringLines(n)

	case syntax.KindImport:
		for _, name := range n.Names {
			s.imports = append(s.imports, Import{Module: name, Line: n.Span.StartLine})
		}

	case syntax.KindImportFrom:
		s.imports = append(s.imports, Import{
			Module: n.Module,
			Names:  append([]string(nil), n.Names...),
			Level:  n.Level,
			From:   true,
			Line:   n.Span.StartLine,
		})

	case syntax.KindGlobal:
		for _, name := range n.Names {
			s.globals[name] = struct{}{}
		}

	case syntax.KindNonlocal:
		for _, name := range n.Names {
			s.nonlocals[name] = struct{}{}
		}

	case syntax.KindYield, syntax.KindYieldFrom:
		s.counts.Yield++
		if sc := s.currentFunction(); sc != nil {
			s.functions[sc.fn].IsGenerator = true
		}

	case syntax.KindAwait:
		s.counts.Await++
	case syntax.KindReturn:
		s.counts.Return++
	case syntax.KindRaise:
		s.counts.Raise++
	case syntax.KindAssert:
		s.counts.Assert++
	case syntax.KindDelete:
		s.counts.Delete++
	case syntax.KindBreak:
		s.counts.Break++
	case syntax.KindContinue:
		s.counts.Continue++
	case syntax.KindPass:
		s.counts.Pass++
	case syntax.KindIfExp:
		s.counts.IfExp++
	case syntax.KindListComp:
		s.counts.ListComp++
	case syntax.KindSetComp:
		s.counts.SetComp++
	case syntax.KindDictComp:
		s.counts.DictComp++
	case syntax.KindGeneratorExp:
		s.counts.GenExp++
	case syntax.KindLambda:
		s.counts.Lambda++
	case syntax.KindCall:
		s.counts.Call++
	case syntax.KindMatch:
		s.counts.Match++
	case syntax.KindMatchCase:
		s.counts.MatchCase++

	case syntax.KindWithItem, syntax.KindAlias, syntax.KindExpr,
		syntax.KindDict, syntax.KindSet, syntax.KindComprehension,
		syntax.KindKeyword, syntax.KindAttribute, syntax.KindSubscript,
		syntax.KindStarred, syntax.KindList, syntax.KindTuple,
		syntax.KindSlice, syntax.KindArguments, syntax.KindArg:
		// Counted in the histogram only.

	default:
		return faultf(n, "unhandled node kind %s", n.Kind)
	}
	return nil
}

func (s *state) enterIf(n *syntax.Node) {
	s.counts.If++
	bonus := s.cogNesting
	if n.Elif {
		s.counts.Elif++
		// The head already raised the level; elif links sit beside it.
		bonus--
	}
	if len(n.Orelse) > 0 && !(len(n.Orelse) == 1 && n.Orelse[0].Kind == syntax.KindIf && n.Orelse[0].Elif) {
		s.counts.Else++
	}
	s.addDecision(1, bonus)
}

func (s *state) enterName(n *syntax.Node) {
	switch n.Name {
	case "True", "False", "None":
		return
	}
	s.operands[n.Name]++
	if n.Ctx == syntax.Store && n.Name != "_" {
		s.variables[n.Name] = struct{}{}
	}
	if n.Ctx == syntax.Load {
		for i := len(s.scopes) - 1; i >= 0; i-- {
			if s.scopes[i].refs != nil {
				s.scopes[i].refs[n.Name] = struct{}{}
			}
		}
	}
}

// docstring registers the docstring of a module, class or function body
// and reports whether one exists.
func (s *state) docstring(n *syntax.Node) bool {
	doc := n.Docstring()
	if doc == nil {
		return false
	}
	s.counts.Docstrings++
	if doc.TripleQuoted {
		s.docstrings.addRange(doc.Span.StartLine, doc.Span.EndLine)
	}
	return true
}

// stringLines marks the lines a triple-quoted literal spans so that text
// inside it is not mistaken for comments or blank lines.
func (s *state) stringLines(n *syntax.Node) {
	if n.TripleQuoted && n.Span.EndLine > n.Span.StartLine {
		s.strings.addRange(n.Span.StartLine, n.Span.EndLine)
	}
}

func (s *state) enterFunction(n *syntax.Node) error {
	if n.Name == "" {
		return faultf(n, "function definition without a name")
	}
	if n.Args == nil {
		return faultf(n, "function %s without an argument list", n.Name)
	}

	rec := FunctionRecord{
		Name:         n.Name,
		Params:       n.ParamCount(),
		Decorators:   len(n.Decorators),
		HasDocstring: s.docstring(n),
		StartLine:    n.Span.StartLine,
		EndLine:      n.Span.EndLine,
		IsAsync:      n.Kind == syntax.KindAsyncFunctionDef,
	}
	if parent := s.current(); parent != nil && parent.cls >= 0 && isDirectChild(parent.node, n) {
		rec.IsMethod = true
		rec.Class = parent.node.Name
	}
	s.counts.Decorators += len(n.Decorators)
	s.functions = append(s.functions, rec)

	s.pushScope(&scope{
		kind:       n.Kind,
		node:       n,
		fn:         len(s.functions) - 1,
		cls:        -1,
		cyclomatic: 1,
	})
	// Function bodies start at nesting level zero.
	s.nesting = 0
	s.cogNesting = 0
	return nil
}

func (s *state) enterClass(n *syntax.Node) error {
	if n.Name == "" {
		return faultf(n, "class definition without a name")
	}
	rec := ClassRecord{
		Name:         n.Name,
		Bases:        make([]string, 0, len(n.Bases)),
		Decorators:   len(n.Decorators),
		HasDocstring: s.docstring(n),
		StartLine:    n.Span.StartLine,
		EndLine:      n.Span.EndLine,
	}
	for _, b := range n.Bases {
		rec.Bases = append(rec.Bases, dottedName(b))
	}
	s.counts.Decorators += len(n.Decorators)
	s.classes = append(s.classes, rec)

	s.pushScope(&scope{
		kind:       n.Kind,
		node:       n,
		fn:         -1,
		cls:        len(s.classes) - 1,
		cyclomatic: 1,
		refs:       make(map[string]struct{}),
	})
	return nil
}

func (s *state) pushScope(sc *scope) {
	sc.savedNesting = s.nesting
	sc.savedCogNesting = s.cogNesting
	s.scopes = append(s.scopes, sc)
}

func (s *state) popScope(n *syntax.Node) error {
	sc := s.current()
	if sc == nil || sc.node != n {
		return faultf(n, "scope stack out of sync at %s %q", n.Kind, n.Name)
	}
	s.scopes = s.scopes[:len(s.scopes)-1]

	if sc.fn >= 0 {
		rec := &s.functions[sc.fn]
		rec.Cyclomatic = sc.cyclomatic
		rec.Cognitive = sc.cognitive
		rec.MaxNesting = sc.maxNesting
		if rec.Cyclomatic < 1 {
			return faultf(n, "function %s finished with cyclomatic complexity %d", rec.Name, rec.Cyclomatic)
		}
	}
	if sc.cls >= 0 {
		rec := &s.classes[sc.cls]
		for _, stmt := range n.Body {
			if stmt.Kind.IsFunction() {
				rec.Methods++
			}
		}
		rec.References = sortedKeys(sc.refs)
	}

	balanced := s.nesting == sc.savedNesting && s.cogNesting == sc.savedCogNesting
	if sc.fn >= 0 {
		balanced = s.nesting == 0 && s.cogNesting == 0
	}
	if !balanced {
		return faultf(n, "unbalanced nesting leaving %s", n.Name)
	}
	s.nesting = sc.savedNesting
	s.cogNesting = sc.savedCogNesting
	return nil
}

func isDirectChild(parent, child *syntax.Node) bool {
	for _, stmt := range parent.Body {
		if stmt == child {
			return true
		}
	}
	return false
}

// dottedName renders a Name or Attribute chain as "a.b.c"; anything else
// (calls, subscripts) renders as its kind.
func dottedName(n *syntax.Node) string {
	switch n.Kind {
	case syntax.KindName:
		return n.Name
	case syntax.KindAttribute:
		if len(n.Children) == 1 {
			return dottedName(n.Children[0]) + "." + n.Name
		}
		return n.Name
	case syntax.KindSubscript:
		if len(n.Children) > 0 {
			return dottedName(n.Children[0])
		}
	}
	return n.Kind.String()
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *state) snapshot(source []byte) *Snapshot {
	functions := s.functions
	if functions == nil {
		functions = []FunctionRecord{}
	}
	classes := s.classes
	if classes == nil {
		classes = []ClassRecord{}
	}
	imports := s.imports
	if imports == nil {
		imports = []Import{}
	}
	return &Snapshot{
		Cyclomatic: 1 + s.decisions,
		Cognitive:  s.cognitive,
		MaxNesting: s.maxNesting,
		Functions:  functions,
		Classes:    classes,
		Operators:  s.operators,
		Operands:   s.operands,
		Lines:      classifyLines(source, s.docstrings, s.strings),
		NodeCount:  s.nodeCount,
		MaxDepth:   s.maxDepth,
		NodeTypes:  s.histogram,
		Counts:     s.counts,
		Literals:   s.literals,
		Variables:  sortedKeys(s.variables),
		Globals:    sortedKeys(s.globals),
		Nonlocals:  sortedKeys(s.nonlocals),
		Imports:    imports,
	}
}
