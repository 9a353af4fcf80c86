package metrics

import (
	"github.com/panbanda/pymetrics/pkg/engine"
)

// FunctionComplexity is the published view of one function.
type FunctionComplexity struct {
	engine.FunctionRecord
	Rank string `json:"rank"`
}

// ComplexityMetrics summarises control-flow complexity for a file.
type ComplexityMetrics struct {
	Cyclomatic            int                  `json:"cyclomatic_complexity"`
	Cognitive             int                  `json:"cognitive_complexity"`
	MaxNesting            int                  `json:"max_nesting_depth"`
	AverageComplexity     float64              `json:"average_complexity"`
	MaxFunctionComplexity int                  `json:"max_function_complexity"`
	Rank                  string               `json:"complexity_rank"`
	FunctionCount         int                  `json:"function_count"`
	Functions             []FunctionComplexity `json:"functions"`
}

// Complexity publishes the cyclomatic, cognitive and nesting counters.
func Complexity(s *engine.Snapshot) (*ComplexityMetrics, error) {
	if s.MaxNesting < 0 {
		return nil, faultf("complexity", "negative nesting depth %d", s.MaxNesting)
	}
	m := &ComplexityMetrics{
		Cyclomatic:    s.Cyclomatic,
		Cognitive:     s.Cognitive,
		MaxNesting:    s.MaxNesting,
		FunctionCount: len(s.Functions),
		Functions:     make([]FunctionComplexity, 0, len(s.Functions)),
	}

	for _, fn := range s.Functions {
		if fn.Cyclomatic < 1 {
			return nil, faultf("complexity", "function %s has cyclomatic complexity %d", fn.Name, fn.Cyclomatic)
		}
		if fn.Cyclomatic > m.MaxFunctionComplexity {
			m.MaxFunctionComplexity = fn.Cyclomatic
		}
		m.Functions = append(m.Functions, FunctionComplexity{FunctionRecord: fn, Rank: Rank(fn.Cyclomatic)})
	}
	m.AverageComplexity = round(AverageComplexity(s), 2)

	// Files without functions are ranked on their module-level total.
	if len(s.Functions) > 0 {
		m.Rank = RankFloat(m.AverageComplexity)
	} else {
		m.Rank = Rank(s.Cyclomatic)
	}
	return m, nil
}

// AverageComplexity is the mean cyclomatic complexity over every function
// and method in the file, 0 when there are none.
func AverageComplexity(s *engine.Snapshot) float64 {
	total := 0
	for _, fn := range s.Functions {
		total += fn.Cyclomatic
	}
	return ratio(total, len(s.Functions))
}

// Rank grades a cyclomatic complexity value on the A (simple) to F
// (unmaintainable) scale.
func Rank(cc int) string {
	return RankFloat(float64(cc))
}

// RankFloat grades a possibly fractional complexity such as an average.
func RankFloat(cc float64) string {
	switch {
	case cc <= 5:
		return "A"
	case cc <= 10:
		return "B"
	case cc <= 20:
		return "C"
	case cc <= 30:
		return "D"
	case cc <= 40:
		return "E"
	default:
		return "F"
	}
}

// Thresholds are the warning limits applied to function complexity.
type Thresholds struct {
	Cyclomatic      int
	Cognitive       int
	Nesting         int
	Maintainability float64
}

// DefaultThresholds returns sensible defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Cyclomatic:      10,
		Cognitive:       15,
		Nesting:         4,
		Maintainability: 50,
	}
}

// Violations lists the limits fn exceeds, as short labels.
func (t Thresholds) Violations(fn engine.FunctionRecord) []string {
	var out []string
	if t.Cyclomatic > 0 && fn.Cyclomatic > t.Cyclomatic {
		out = append(out, "cyclomatic")
	}
	if t.Cognitive > 0 && fn.Cognitive > t.Cognitive {
		out = append(out, "cognitive")
	}
	if t.Nesting > 0 && fn.MaxNesting > t.Nesting {
		out = append(out, "nesting")
	}
	return out
}
