// Package metrics turns a traversal snapshot into published metric
// sections. Every aggregator is a pure function of its inputs.
package metrics

import (
	"fmt"
	"math"
)

// Options tunes aggregation. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// CommentTerm adds the 50*sin(sqrt(2.4*r)) comment bonus to the
	// maintainability index when the comment ratio is positive.
	CommentTerm bool
	// LocalPackages are top-level module names treated as first-party
	// imports in addition to relative imports.
	LocalPackages []string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{CommentTerm: true}
}

// Fault reports an aggregator invariant violation.
type Fault struct {
	Section string
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Section, f.Message)
}

func faultf(section, format string, args ...any) *Fault {
	return &Fault{Section: section, Message: fmt.Sprintf(format, args...)}
}

// finite rejects NaN and infinite results, which would not survive JSON
// encoding.
func finite(section string, values map[string]float64) error {
	for name, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return faultf(section, "%s is not finite", name)
		}
	}
	return nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
