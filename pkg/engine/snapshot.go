package engine

// FunctionRecord describes one function or method definition. The
// complexity fields are frozen when the definition's subtree is exited.
type FunctionRecord struct {
	Name         string `json:"name"`
	Class        string `json:"class,omitempty"`
	Params       int    `json:"parameters"`
	Decorators   int    `json:"decorators"`
	HasDocstring bool   `json:"has_docstring"`
	StartLine    int    `json:"line"`
	EndLine      int    `json:"end_line,omitempty"`
	IsMethod     bool   `json:"is_method"`
	IsAsync      bool   `json:"is_async"`
	IsGenerator  bool   `json:"is_generator"`
	Cyclomatic   int    `json:"cyclomatic_complexity"`
	Cognitive    int    `json:"cognitive_complexity"`
	MaxNesting   int    `json:"max_nesting_depth"`
}

// ClassRecord describes one class definition.
type ClassRecord struct {
	Name         string   `json:"name"`
	Bases        []string `json:"bases"`
	Decorators   int      `json:"decorators"`
	HasDocstring bool     `json:"has_docstring"`
	Methods      int      `json:"methods"`
	StartLine    int      `json:"line"`
	EndLine      int      `json:"end_line,omitempty"`
	// References holds every name loaded inside the class body, sorted.
	References []string `json:"-"`
}

// Import is one imported module reference.
type Import struct {
	Module string   `json:"module"`
	Names  []string `json:"names,omitempty"`
	Level  int      `json:"level,omitempty"`
	From   bool     `json:"from"`
	Line   int      `json:"line"`
}

// LineCounts classifies every physical line exactly once.
type LineCounts struct {
	Physical  int
	Logical   int
	Comment   int
	Blank     int
	Docstring int
}

// ConstructCounts tallies syntactic constructs.
type ConstructCounts struct {
	If          int
	Elif        int
	Else        int
	For         int
	AsyncFor    int
	While       int
	LoopElse    int
	Try         int
	Except      int
	TryElse     int
	Finally     int
	With        int
	AsyncWith   int
	Match       int
	MatchCase   int
	Break       int
	Continue    int
	Pass        int
	IfExp       int
	ListComp    int
	SetComp     int
	DictComp    int
	GenExp      int
	Lambda      int
	Return      int
	Raise       int
	Assert      int
	Delete      int
	Yield       int
	Await       int
	Call        int
	Decorators  int
	Docstrings  int
	Assignments int // assignment targets, AugAssign and AnnAssign-with-value count once
	Comparisons int // comparison operator tokens
	BoolOps     int // boolean operator tokens
}

// LiteralCounts tallies constants by kind.
type LiteralCounts struct {
	String  int
	Number  int
	Boolean int
	None    int
}

// Snapshot is the complete set of raw counters produced by one traversal.
// It is read-only once Run returns.
type Snapshot struct {
	// Cyclomatic is the file total: 1 plus every decision point in the file.
	Cyclomatic int
	Cognitive  int
	MaxNesting int

	Functions []FunctionRecord
	Classes   []ClassRecord

	Operators map[string]int
	Operands  map[string]int

	Lines LineCounts

	NodeCount int
	MaxDepth  int
	NodeTypes map[string]int

	Counts   ConstructCounts
	Literals LiteralCounts

	Variables []string
	Globals   []string
	Nonlocals []string
	Imports   []Import
}

// Empty reports whether the file declares no functions and no classes.
func (s *Snapshot) Empty() bool {
	return len(s.Functions) == 0 && len(s.Classes) == 0
}
