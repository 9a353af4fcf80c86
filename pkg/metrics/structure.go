package metrics

import (
	"github.com/panbanda/pymetrics/pkg/engine"
)

// StructureMetrics describes the shape of the syntax tree.
type StructureMetrics struct {
	NodeTypeCounts  map[string]int `json:"node_type_counts"`
	UniqueNodeTypes int            `json:"unique_node_types"`
	TotalNodes      int            `json:"total_nodes"`
	MaxASTDepth     int            `json:"max_ast_depth"`

	IfCount        int `json:"if_count"`
	ElifCount      int `json:"elif_count"`
	ElseCount      int `json:"else_count"`
	ForCount       int `json:"for_count"`
	AsyncForCount  int `json:"async_for_count"`
	WhileCount     int `json:"while_count"`
	LoopElseCount  int `json:"loop_else_count"`
	TryCount       int `json:"try_count"`
	ExceptCount    int `json:"except_count"`
	TryElseCount   int `json:"try_else_count"`
	FinallyCount   int `json:"finally_count"`
	WithCount      int `json:"with_count"`
	AsyncWithCount int `json:"async_with_count"`
	MatchCount     int `json:"match_count"`
	MatchCaseCount int `json:"match_case_count"`
	BreakCount     int `json:"break_count"`
	ContinueCount  int `json:"continue_count"`
	PassCount      int `json:"pass_count"`

	ListComprehensions int `json:"list_comprehension_count"`
	SetComprehensions  int `json:"set_comprehension_count"`
	DictComprehensions int `json:"dict_comprehension_count"`
	GeneratorExprs     int `json:"generator_expression_count"`
	ConditionalExprs   int `json:"conditional_expression_count"`
	LambdaCount        int `json:"lambda_count"`
	GeneratorFunctions int `json:"generator_function_count"`
	AsyncFunctions     int `json:"async_function_count"`
	DecoratorCount     int `json:"decorator_count"`
	DocstringCount     int `json:"docstring_count"`

	ReturnCount int `json:"return_count"`
	RaiseCount  int `json:"raise_count"`
	AssertCount int `json:"assert_count"`
	DeleteCount int `json:"delete_count"`
	YieldCount  int `json:"yield_count"`
	AwaitCount  int `json:"await_count"`
	CallCount   int `json:"call_count"`

	VariableCount  int `json:"variable_count"`
	GlobalCount    int `json:"global_count"`
	NonlocalCount  int `json:"nonlocal_count"`
	StringLiterals int `json:"string_literal_count"`
	NumberLiterals int `json:"number_literal_count"`
	BoolLiterals   int `json:"boolean_literal_count"`
	NoneLiterals   int `json:"none_literal_count"`

	NamingConventions     map[string]int `json:"naming_conventions"`
	NamingConventionScore float64        `json:"naming_convention_score"`
}

// Structure publishes the node histogram, construct tallies and naming
// compliance.
func Structure(s *engine.Snapshot) (*StructureMetrics, error) {
	if s.NodeCount < 1 || s.MaxDepth < 1 {
		return nil, faultf("structure", "empty traversal")
	}
	c := s.Counts
	m := &StructureMetrics{
		NodeTypeCounts:  copyCounts(s.NodeTypes),
		UniqueNodeTypes: len(s.NodeTypes),
		TotalNodes:      s.NodeCount,
		MaxASTDepth:     s.MaxDepth,

		IfCount:        c.If,
		ElifCount:      c.Elif,
		ElseCount:      c.Else,
		ForCount:       c.For,
		AsyncForCount:  c.AsyncFor,
		WhileCount:     c.While,
		LoopElseCount:  c.LoopElse,
		TryCount:       c.Try,
		ExceptCount:    c.Except,
		TryElseCount:   c.TryElse,
		FinallyCount:   c.Finally,
		WithCount:      c.With,
		AsyncWithCount: c.AsyncWith,
		MatchCount:     c.Match,
		MatchCaseCount: c.MatchCase,
		BreakCount:     c.Break,
		ContinueCount:  c.Continue,
		PassCount:      c.Pass,

		ListComprehensions: c.ListComp,
		SetComprehensions:  c.SetComp,
		DictComprehensions: c.DictComp,
		GeneratorExprs:     c.GenExp,
		ConditionalExprs:   c.IfExp,
		LambdaCount:        c.Lambda,
		DecoratorCount:     c.Decorators,
		DocstringCount:     c.Docstrings,

		ReturnCount: c.Return,
		RaiseCount:  c.Raise,
		AssertCount: c.Assert,
		DeleteCount: c.Delete,
		YieldCount:  c.Yield,
		AwaitCount:  c.Await,
		CallCount:   c.Call,

		VariableCount:  len(s.Variables),
		GlobalCount:    len(s.Globals),
		NonlocalCount:  len(s.Nonlocals),
		StringLiterals: s.Literals.String,
		NumberLiterals: s.Literals.Number,
		BoolLiterals:   s.Literals.Boolean,
		NoneLiterals:   s.Literals.None,
	}

	functions := make([]string, 0, len(s.Functions))
	for _, fn := range s.Functions {
		functions = append(functions, fn.Name)
		if fn.IsGenerator {
			m.GeneratorFunctions++
		}
		if fn.IsAsync {
			m.AsyncFunctions++
		}
	}
	classes := make([]string, 0, len(s.Classes))
	for _, cls := range s.Classes {
		classes = append(classes, cls.Name)
	}

	naming := Naming(functions, classes, s.Variables)
	m.NamingConventions = naming.Counts
	m.NamingConventionScore = naming.Score
	return m, nil
}
