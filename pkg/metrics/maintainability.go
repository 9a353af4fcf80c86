package metrics

import (
	"math"

	"github.com/panbanda/pymetrics/pkg/engine"
)

// MaintainabilityMetrics holds the maintainability index and ABC score.
type MaintainabilityMetrics struct {
	Index          float64 `json:"maintainability_index"`
	Rank           string  `json:"maintainability_rank"`
	CommentRatio   float64 `json:"comment_ratio"`
	ABCAssignments int     `json:"abc_assignment_count"`
	ABCBranches    int     `json:"abc_branch_count"`
	ABCConditions  int     `json:"abc_condition_count"`
	ABCMagnitude   float64 `json:"abc_magnitude"`
}

// Maintainability combines Halstead volume, cyclomatic complexity and
// logical line count into the maintainability index:
//
//	MI = 171 - 5.2*ln(V) - 0.23*CC - 16.2*ln(L) [+ 50*sin(sqrt(2.4*r))]
//
// clamped at zero. A file without logical lines scores 0 (rank F).
func Maintainability(s *engine.Snapshot, h *HalsteadMetrics, opts Options) (*MaintainabilityMetrics, error) {
	if h == nil {
		return nil, faultf("maintainability", "halstead metrics unavailable")
	}
	m := &MaintainabilityMetrics{
		CommentRatio: round(ratio(s.Lines.Comment, s.Lines.Physical), 4),
	}
	m.Index = round(maintainabilityIndex(h.Volume, s.Cyclomatic, s.Lines.Logical, m.CommentRatio, opts.CommentTerm), 2)
	m.Rank = MaintainabilityRank(m.Index)

	m.ABCAssignments, m.ABCBranches, m.ABCConditions = abc(s)
	a, b, c := float64(m.ABCAssignments), float64(m.ABCBranches), float64(m.ABCConditions)
	m.ABCMagnitude = round(math.Sqrt(a*a+b*b+c*c), 2)

	if m.Index < 0 {
		return nil, faultf("maintainability", "negative index %f", m.Index)
	}
	if err := finite("maintainability", map[string]float64{
		"maintainability_index": m.Index, "abc_magnitude": m.ABCMagnitude,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

func maintainabilityIndex(volume float64, cc, logical int, commentRatio float64, commentTerm bool) float64 {
	if logical <= 0 {
		return 0
	}
	mi := 171.0
	if volume > 0 {
		mi -= 5.2 * math.Log(volume)
	}
	mi -= 0.23 * float64(cc)
	mi -= 16.2 * math.Log(float64(logical))
	if commentTerm && commentRatio > 0 {
		mi += 50 * math.Sin(math.Sqrt(2.4*commentRatio))
	}
	return math.Max(0, mi)
}

// MaintainabilityRank grades an index: above 85 is A, above 70 B, above 50
// C, above 25 D, anything else F.
func MaintainabilityRank(mi float64) string {
	switch {
	case mi > 85:
		return "A"
	case mi > 70:
		return "B"
	case mi > 50:
		return "C"
	case mi > 25:
		return "D"
	default:
		return "F"
	}
}

// abc derives assignment, branch and condition counts. Elif links count as
// conditions like any other if.
func abc(s *engine.Snapshot) (assignments, branches, conditions int) {
	c := s.Counts
	assignments = c.Assignments
	branches = c.For + c.AsyncFor + c.Try + c.With + c.AsyncWith
	conditions = c.If + c.While + c.Comparisons + c.BoolOps
	return assignments, branches, conditions
}
