package analyzer

import (
	"fmt"

	"github.com/panbanda/pymetrics/pkg/engine"
	"github.com/panbanda/pymetrics/pkg/metrics"
	"github.com/panbanda/pymetrics/pkg/report"
)

// Assemble runs every aggregator over snap. A failing aggregator marks only
// its own section (and sections derived from it) as error.
func Assemble(label string, snap *engine.Snapshot, opts metrics.Options) *report.MetricsReport {
	r := &report.MetricsReport{File: label, Compilability: true}

	r.Complexity = section(func() (*metrics.ComplexityMetrics, error) {
		return metrics.Complexity(snap)
	})
	r.Halstead = section(func() (*metrics.HalsteadMetrics, error) {
		return metrics.Halstead(snap)
	})
	r.Maintainability = section(func() (*metrics.MaintainabilityMetrics, error) {
		if !r.Halstead.OK() {
			return nil, fmt.Errorf("halstead_analysis unavailable: %s", r.Halstead.Message)
		}
		return metrics.Maintainability(snap, r.Halstead.Metrics, opts)
	})
	r.Size = section(func() (*metrics.SizeMetrics, error) {
		return metrics.Size(snap, opts)
	})
	r.Structure = section(func() (*metrics.StructureMetrics, error) {
		return metrics.Structure(snap)
	})
	return r
}

func section[T any](fn func() (*T, error)) (s report.Section[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			s = report.Failed[T](report.StatusError, fmt.Sprintf("internal error: %v", rec))
		}
	}()
	m, err := fn()
	if err != nil {
		return report.Failed[T](report.StatusError, err.Error())
	}
	if m == nil {
		return report.Failed[T](report.StatusError, "no result")
	}
	return report.Success(m)
}
