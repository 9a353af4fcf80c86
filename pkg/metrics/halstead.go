package metrics

import (
	"math"

	"github.com/panbanda/pymetrics/pkg/engine"
)

// HalsteadMetrics represents Halstead software science metrics.
type HalsteadMetrics struct {
	UniqueOperators int            `json:"unique_operators"` // n1
	UniqueOperands  int            `json:"unique_operands"`  // n2
	TotalOperators  int            `json:"total_operators"`  // N1
	TotalOperands   int            `json:"total_operands"`   // N2
	Vocabulary      int            `json:"halstead_vocabulary"`
	Length          int            `json:"halstead_length"`
	Volume          float64        `json:"halstead_volume"`     // V = N * log2(n)
	Difficulty      float64        `json:"halstead_difficulty"` // D = (n1/2) * (N2/n2)
	Effort          float64        `json:"halstead_effort"`     // E = D * V
	Time            float64        `json:"halstead_time"`       // T = E / 18
	Bugs            float64        `json:"halstead_bugs"`       // B = V / 3000
	Operators       map[string]int `json:"operators"`
	Operands        map[string]int `json:"operands"`
}

// Halstead computes Halstead metrics from the operator and operand
// frequency tables.
func Halstead(s *engine.Snapshot) (*HalsteadMetrics, error) {
	h := &HalsteadMetrics{
		Operators: copyCounts(s.Operators),
		Operands:  copyCounts(s.Operands),
	}
	for _, c := range h.Operators {
		h.TotalOperators += c
	}
	for _, c := range h.Operands {
		h.TotalOperands += c
	}
	h.UniqueOperators = len(h.Operators)
	h.UniqueOperands = len(h.Operands)
	h.Vocabulary = h.UniqueOperators + h.UniqueOperands
	h.Length = h.TotalOperators + h.TotalOperands

	h.calculateDerived()

	if h.Vocabulary != h.UniqueOperators+h.UniqueOperands || h.Length != h.TotalOperators+h.TotalOperands {
		return nil, faultf("halstead", "vocabulary or length out of balance")
	}
	if err := finite("halstead", map[string]float64{
		"volume": h.Volume, "difficulty": h.Difficulty, "effort": h.Effort,
	}); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *HalsteadMetrics) calculateDerived() {
	if h.Vocabulary <= 1 || h.Length == 0 {
		return
	}

	h.Volume = float64(h.Length) * math.Log2(float64(h.Vocabulary))
	if h.UniqueOperands == 0 {
		return
	}

	h.Difficulty = (float64(h.UniqueOperators) / 2.0) *
		(float64(h.TotalOperands) / float64(h.UniqueOperands))
	h.Effort = h.Difficulty * h.Volume
	h.Time = h.Effort / 18.0
	h.Bugs = h.Volume / 3000.0
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
