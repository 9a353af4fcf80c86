package analyzer

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/panbanda/pymetrics/internal/fileproc"
	"github.com/panbanda/pymetrics/pkg/parser"
	"github.com/panbanda/pymetrics/pkg/report"
	"github.com/panbanda/pymetrics/pkg/stats"
)

// Batch is the result of analyzing many files.
type Batch struct {
	Reports []*report.MetricsReport    `json:"reports"`
	Summary Summary                    `json:"summary"`
	Errors  []fileproc.ProcessingError `json:"-"`
	Cached  int                        `json:"-"` // reports loaded from the report cache
}

// Summary aggregates successful sections across a batch.
type Summary struct {
	Files           int           `json:"files"`
	SyntaxErrors    int           `json:"syntax_errors"`
	Faults          int           `json:"faults"`
	Duplicates      int           `json:"duplicates"`
	Cyclomatic      stats.Summary `json:"cyclomatic_complexity"`
	Cognitive       stats.Summary `json:"cognitive_complexity"`
	HalsteadVolume  stats.Summary `json:"halstead_volume"`
	Maintainability stats.Summary `json:"maintainability_index"`
	LogicalLines    stats.Summary `json:"logical_lines"`
}

// AllCached reports whether no file in the batch needed a fresh analysis.
func (b *Batch) AllCached() bool {
	return b.Cached > 0 && b.Cached+b.Summary.Duplicates == len(b.Reports)
}

// AnalyzeFiles analyzes paths concurrently. Files whose contents are
// byte-identical to an earlier file reuse its report under their own label.
// Reports keep the input order; unreadable files are listed in Errors.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string) (*Batch, error) {
	memo := newMemo()
	var cached atomic.Int64
	reports, errs := fileproc.MapFiles(ctx, paths, fileproc.Options{
		Workers:    a.workers,
		OnProgress: a.onProgress,
	}, func(p *parser.Parser, path string) (*report.MetricsReport, error) {
		source, err := a.readFile(path)
		if err != nil {
			return nil, err
		}
		return memo.do(source, path, func() *report.MetricsReport {
			r, hit := a.analyzeCached(p, source, path)
			if hit {
				cached.Add(1)
			}
			return r
		}), nil
	})

	b := &Batch{Reports: reports}
	if b.Reports == nil {
		b.Reports = []*report.MetricsReport{}
	}
	if errs != nil {
		b.Errors = errs.Errors
	}
	b.Summary = Summarize(b.Reports)
	b.Summary.Duplicates = memo.duplicates()
	b.Cached = int(cached.Load())

	if err := ctx.Err(); err != nil {
		return b, err
	}
	return b, nil
}

// Summarize counts failures and describes each metric's distribution over
// the sections that succeeded.
func Summarize(reports []*report.MetricsReport) Summary {
	s := Summary{Files: len(reports)}
	var cc, cog, vol, mi, loc []float64
	for _, r := range reports {
		switch r.Complexity.Status {
		case report.StatusSyntaxError:
			s.SyntaxErrors++
		case report.StatusError:
			s.Faults++
		}
		if r.Complexity.OK() {
			cc = append(cc, float64(r.Complexity.Metrics.Cyclomatic))
			cog = append(cog, float64(r.Complexity.Metrics.Cognitive))
		}
		if r.Halstead.OK() {
			vol = append(vol, r.Halstead.Metrics.Volume)
		}
		if r.Maintainability.OK() {
			mi = append(mi, r.Maintainability.Metrics.Index)
		}
		if r.Size.OK() {
			loc = append(loc, float64(r.Size.Metrics.LogicalLines))
		}
	}
	s.Cyclomatic = stats.Summarize(cc)
	s.Cognitive = stats.Summarize(cog)
	s.HalsteadVolume = stats.Summarize(vol)
	s.Maintainability = stats.Summarize(mi)
	s.LogicalLines = stats.Summarize(loc)
	return s
}

// memo shares one analysis among identical sources within a batch. The
// xxhash digest buckets candidates; bytes are compared before reuse.
type memo struct {
	mu      sync.Mutex
	entries map[uint64][]*memoEntry
	hits    int
}

type memoEntry struct {
	source []byte
	done   chan struct{}
	report *report.MetricsReport
}

func newMemo() *memo {
	return &memo{entries: make(map[uint64][]*memoEntry)}
}

func (m *memo) do(source []byte, label string, fn func() *report.MetricsReport) *report.MetricsReport {
	sum := xxhash.Sum64(source)

	m.mu.Lock()
	for _, e := range m.entries[sum] {
		if bytes.Equal(e.source, source) {
			m.hits++
			m.mu.Unlock()
			<-e.done
			cp := *e.report
			cp.File = label
			return &cp
		}
	}
	e := &memoEntry{source: source, done: make(chan struct{})}
	m.entries[sum] = append(m.entries[sum], e)
	m.mu.Unlock()

	defer close(e.done)
	e.report = fn()
	return e.report
}

func (m *memo) duplicates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits
}
