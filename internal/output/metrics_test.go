package output

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/pymetrics/pkg/analyzer"
	"github.com/panbanda/pymetrics/pkg/metrics"
	"github.com/panbanda/pymetrics/pkg/report"
)

const branchy = `def route(kind, x):
    if kind == "a":
        for i in range(x):
            if i % 2:
                while x:
                    x -= 1
    elif kind == "b":
        return 1
    elif kind == "c":
        return 2
    return 0
`

func testBatch(t *testing.T) *analyzer.Batch {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	paths := []string{
		write("ok.py", "class Box:\n    def size(self):\n        return 1\n"),
		write("branchy.py", branchy),
		write("broken.py", "def f(:\n"),
		write("empty.py", ""),
		filepath.Join(dir, "missing.py"),
	}
	b, err := analyzer.New().AnalyzeFiles(context.Background(), paths)
	require.NoError(t, err)
	return b
}

func strictThresholds() metrics.Thresholds {
	return metrics.Thresholds{Cyclomatic: 3, Cognitive: 3, Nesting: 2, Maintainability: 50}
}

func TestWarnings(t *testing.T) {
	b := testBatch(t)
	warnings := Warnings(b.Reports, strictThresholds())

	joined := strings.Join(warnings, "\n")
	assert.Contains(t, joined, "branchy.py:1 route - cyclomatic complexity")
	assert.Contains(t, joined, "branchy.py:1 route - cognitive complexity")
	assert.Contains(t, joined, "branchy.py:1 route - nesting depth 4 exceeds threshold 2")
	assert.Contains(t, joined, "broken.py:1 - syntax error")
	assert.NotContains(t, joined, "ok.py")
	assert.NotContains(t, joined, "empty.py")

	assert.Empty(t, Warnings(b.Reports[:1], metrics.DefaultThresholds()))
}

func TestWarnings_SectionFault(t *testing.T) {
	r := report.Fault("x.py", "boom")
	warnings := Warnings([]*report.MetricsReport{r}, metrics.DefaultThresholds())
	assert.Len(t, warnings, len(report.SectionNames))
	assert.Equal(t, "x.py - complexity_analysis failed", warnings[0])
}

func TestBatchView_Text(t *testing.T) {
	v, err := NewBatchView(testBatch(t), strictThresholds(), false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewWriterFormatter(FormatText, &buf, false).Output(v))
	text := buf.String()

	assert.Contains(t, text, "Python Metrics")
	assert.Contains(t, text, "ok.py")
	assert.Contains(t, text, "syntax_error")
	assert.Contains(t, text, "Box.size")
	assert.Contains(t, text, "Warnings (")
	assert.Contains(t, text, "Skipped files")
	assert.Contains(t, text, "missing.py")
}

func TestBatchView_Markdown(t *testing.T) {
	v, err := NewBatchView(testBatch(t), metrics.DefaultThresholds(), false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewWriterFormatter(FormatMarkdown, &buf, false).Output(v))
	md := buf.String()
	assert.Contains(t, md, "# Python Metrics")
	assert.Contains(t, md, "## Files")
	assert.Contains(t, md, "## Functions")
	assert.Contains(t, md, "| File | Function | Line |")
}

func TestBatchView_JSON(t *testing.T) {
	b := testBatch(t)
	v, err := NewBatchView(b, metrics.DefaultThresholds(), false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewWriterFormatter(FormatJSON, &buf, false).Output(v))

	var doc struct {
		Reports []json.RawMessage `json:"reports"`
		Summary analyzer.Summary  `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Reports, 4)
	assert.Equal(t, 4, doc.Summary.Files)
	assert.Equal(t, 1, doc.Summary.SyntaxErrors)
	for _, raw := range doc.Reports {
		assert.NoError(t, report.ValidateJSON(raw))
	}
}

func TestBatchView_Flat(t *testing.T) {
	v, err := NewBatchView(testBatch(t), metrics.DefaultThresholds(), true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewWriterFormatter(FormatJSON, &buf, false).Output(v))
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 4)

	// Every row carries the same columns whether or not analysis succeeded.
	for _, row := range rows[1:] {
		assert.Len(t, row, len(rows[0]))
	}
	assert.Equal(t, "syntax_error", rows[2]["complexity_analysis_status"])
	assert.Nil(t, rows[2]["cyclomatic_complexity"])
	assert.Equal(t, false, rows[2]["compilability"])
	assert.NotContains(t, rows[0], "functions")

	buf.Reset()
	require.NoError(t, NewWriterFormatter(FormatText, &buf, false).Output(v))
	assert.Contains(t, buf.String(), "Rows")
}

func TestBatchView_YAMLAndTOON(t *testing.T) {
	v, err := NewBatchView(testBatch(t), metrics.DefaultThresholds(), true)
	require.NoError(t, err)

	for _, format := range []Format{FormatYAML, FormatTOON} {
		var buf bytes.Buffer
		require.NoError(t, NewWriterFormatter(format, &buf, false).Output(v), format)
		assert.Contains(t, buf.String(), "maintainability_index", format)
		assert.Contains(t, buf.String(), "ok.py", format)
	}
}
