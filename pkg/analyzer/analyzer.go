// Package analyzer assembles MetricsReports: it parses source, runs the
// traversal engine and the metric aggregators, and folds every failure into
// the report instead of returning it.
package analyzer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/panbanda/pymetrics/internal/cache"
	"github.com/panbanda/pymetrics/pkg/engine"
	"github.com/panbanda/pymetrics/pkg/metrics"
	"github.com/panbanda/pymetrics/pkg/parser"
	"github.com/panbanda/pymetrics/pkg/report"
	"github.com/panbanda/pymetrics/pkg/source"
)

// Version identifies the metric definitions. It salts cache keys, so bump
// it whenever a formula or counting rule changes.
const Version = "1"

// ErrFileTooLarge is returned for files above the configured size limit.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// Analyzer produces reports. It holds no per-file state and is safe for
// concurrent use.
type Analyzer struct {
	metrics     metrics.Options
	logger      *slog.Logger
	cache       *cache.Cache
	maxFileSize int64
	workers     int
	onProgress  func(path string)
	source      source.ContentSource
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithMetricsOptions sets the aggregation options.
func WithMetricsOptions(opts metrics.Options) Option {
	return func(a *Analyzer) {
		a.metrics = opts
	}
}

// WithLogger sets the logger. Library code logs at Debug and Warn only.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithCache enables report caching.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithWorkers bounds batch concurrency (<= 0 = 2x NumCPU).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithProgress registers a callback invoked after each batch file.
func WithProgress(fn func(path string)) Option {
	return func(a *Analyzer) {
		a.onProgress = fn
	}
}

// WithSource reads files through src instead of the filesystem.
func WithSource(src source.ContentSource) Option {
	return func(a *Analyzer) {
		a.source = src
	}
}

// New creates an analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		metrics: metrics.DefaultOptions(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAnalyzer = New()

// Analyze analyzes one source text with default options. label is only
// used in diagnostics and the report's file field.
func Analyze(source []byte, label string) *report.MetricsReport {
	return defaultAnalyzer.Analyze(source, label)
}

// Analyze analyzes one source text. It never returns nil and never panics.
func (a *Analyzer) Analyze(source []byte, label string) *report.MetricsReport {
	p := parser.New()
	defer p.Close()
	return a.analyze(p, source, label)
}

// AnalyzeFile reads and analyzes path. Only I/O problems are returned as
// errors; analysis failures are recorded in the report.
func (a *Analyzer) AnalyzeFile(path string) (*report.MetricsReport, error) {
	source, err := a.readFile(path)
	if err != nil {
		return nil, err
	}
	return a.Analyze(source, path), nil
}

func (a *Analyzer) readFile(path string) ([]byte, error) {
	if a.source != nil {
		data, err := a.source.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		if a.maxFileSize > 0 && int64(len(data)) > a.maxFileSize {
			return nil, fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, len(data), a.maxFileSize)
		}
		return data, nil
	}
	if a.maxFileSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		if info.Size() > a.maxFileSize {
			return nil, fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, info.Size(), a.maxFileSize)
		}
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return source, nil
}

// cacheSalt captures everything besides the source that shapes a report.
func (a *Analyzer) cacheSalt() string {
	return fmt.Sprintf("v%s|comment=%t|local=%s", Version, a.metrics.CommentTerm, strings.Join(a.metrics.LocalPackages, ","))
}

func (a *Analyzer) analyze(p *parser.Parser, source []byte, label string) *report.MetricsReport {
	r, _ := a.analyzeCached(p, source, label)
	return r
}

// analyzeCached is analyze that also reports whether the report came from
// the cache.
func (a *Analyzer) analyzeCached(p *parser.Parser, source []byte, label string) (r *report.MetricsReport, hit bool) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Warn("analysis panicked", slog.String("file", label), slog.Any("panic", rec))
			r = report.Fault(label, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	var key string
	if a.cache != nil {
		key = cache.Key(source, a.cacheSalt())
		if cached, ok := a.cache.Load(key); ok {
			a.logger.Debug("cache hit", slog.String("file", label))
			cached.File = label
			return cached, true
		}
	}

	r = a.run(p, source, label)

	if a.cache != nil {
		if err := a.cache.Store(key, r); err != nil {
			a.logger.Warn("failed to cache report", slog.String("file", label), slog.Any("error", err))
		}
	}
	return r, false
}

func (a *Analyzer) run(p *parser.Parser, source []byte, label string) *report.MetricsReport {
	res, err := p.Parse(source, label)
	if err != nil {
		var perr *parser.ParseError
		if errors.As(err, &perr) {
			a.logger.Debug("syntax error", slog.String("file", label), slog.Int("line", perr.Line), slog.String("message", perr.Message))
			return report.SyntaxFailure(label, &report.SyntaxError{
				Message: perr.Message,
				Line:    perr.Line,
				Column:  perr.Column,
			})
		}
		a.logger.Warn("parser failed", slog.String("file", label), slog.Any("error", err))
		r := report.Fault(label, err.Error())
		r.Compilability = false
		return r
	}

	snap, err := engine.Run(res.Root, res.Source)
	if err != nil {
		a.logger.Warn("traversal fault", slog.String("file", label), slog.Any("error", err))
		return report.Fault(label, err.Error())
	}
	return Assemble(label, snap, a.metrics)
}
