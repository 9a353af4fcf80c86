package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/pymetrics/internal/cache"
	"github.com/panbanda/pymetrics/pkg/engine"
	"github.com/panbanda/pymetrics/pkg/metrics"
	"github.com/panbanda/pymetrics/pkg/report"
)

var samples = map[string]string{
	"simple": "def f():\n    pass\n",
	"branches": `def classify(x, y):
    if x > 0 and y > 0:
        return "both"
    elif x > 0 or y > 0:
        return "one"
    else:
        return "none"
`,
	"loops": `import os
from collections import defaultdict


def walk(root):
    """Collect files by extension."""
    seen = defaultdict(list)
    for dirpath, _, names in os.walk(root):
        for name in names:
            while name.startswith("."):
                name = name[1:]
            seen[name.rsplit(".", 1)[-1]].append(name)
    return seen
`,
	"classes": `class Shape:
    """A shape."""

    sides = 0

    def area(self):
        raise NotImplementedError


class Square(Shape):
    sides = 4

    def __init__(self, size):
        self.size = size

    def area(self):
        return self.size ** 2


# helpers
squares = [Square(i) for i in range(3) if i]
total = sum(s.area() for s in squares)
`,
	"try": `def load(path):
    try:
        with open(path) as fh:
            data = fh.read()
    except OSError as err:
        raise RuntimeError(err)
    except ValueError:
        data = None
    else:
        data = data.strip()
    finally:
        print("done")
    return data
`,
	"async": `async def fetch(client, urls):
    results = []
    async with client:
        async for chunk in client.stream(urls):
            results.append(await chunk)
    return [r for r in results if r is not None]
`,
	"empty":    "",
	"comments": "# only a comment\n\n",
}

func TestScenarioA_SimpleFunction(t *testing.T) {
	r := Analyze([]byte("def f():\n    pass\n"), "a.py")

	require.True(t, r.Succeeded())
	assert.True(t, r.Compilability)
	assert.Equal(t, 1, r.Size.Metrics.FunctionCount)
	assert.Equal(t, 0, r.Size.Metrics.ClassCount)
	assert.Equal(t, 1, r.Complexity.Metrics.Cyclomatic)
	assert.Equal(t, 2, r.Size.Metrics.LogicalLines)
}

func TestScenarioB_ElifChain(t *testing.T) {
	code := "def f(x, y):\n    if x:\n        a = 1\n    elif y:\n        a = 2\n    else:\n        a = 3\n"
	r := Analyze([]byte(code), "b.py")

	require.True(t, r.Succeeded())
	assert.Equal(t, 3, r.Complexity.Metrics.Cyclomatic)
	assert.Equal(t, 3, r.Maintainability.Metrics.ABCAssignments)
}

func TestScenarioC_SyntaxError(t *testing.T) {
	r := Analyze([]byte("def f(:\n"), "c.py")

	assert.False(t, r.Compilability)
	require.NotNil(t, r.SyntaxError)
	assert.Equal(t, 1, r.SyntaxError.Line)
	for name, status := range r.Statuses() {
		assert.Equal(t, report.StatusSyntaxError, status, name)
	}

	data, err := r.JSON(false)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	doc := make(map[string]map[string]any)
	for _, name := range report.SectionNames {
		var section map[string]any
		require.NoError(t, json.Unmarshal(raw[name], &section))
		doc[name] = section
	}
	assert.Nil(t, doc["complexity_analysis"]["cyclomatic_complexity"])
	assert.Nil(t, doc["halstead_analysis"]["halstead_volume"])
	assert.Nil(t, doc["maintainability_analysis"]["maintainability_index"])
	assert.Nil(t, doc["size_analysis"]["logical_lines"])
	assert.Nil(t, doc["structure_analysis"]["naming_convention_score"])
}

func TestAnalyze_Python2SourceNotCompilable(t *testing.T) {
	sources := []string{
		"print \"hi\"\n",
		"exec \"x=1\"\n",
		"del f()\n",
		"f(x for x in y, 1)\n",
		"if x:\n\tpass\n        pass\n",
		"def f(**k, a):\n    pass\n",
		"x = 0777\n",
		"x = 10L\n",
		"class A:\nreturn\n",
		"async = 1\n",
		"`x`\n",
		"x <> y\n",
	}
	for _, src := range sources {
		r := Analyze([]byte(src), "py2.py")
		assert.False(t, r.Compilability, "%q", src)
		for name, status := range r.Statuses() {
			assert.Equal(t, report.StatusSyntaxError, status, "%q %s", src, name)
		}
	}

	r := Analyze([]byte("x = *a,\n"), "ok.py")
	assert.True(t, r.Compilability)
}

func TestScenarioD_NestedLoops(t *testing.T) {
	code := "def f(R):\n  for i in R:\n    for j in R:\n      pass\n"
	r := Analyze([]byte(code), "d.py")

	require.True(t, r.Succeeded())
	assert.Equal(t, 2, r.Complexity.Metrics.MaxNesting)
}

func TestScenarioE_NoDefinitions(t *testing.T) {
	r := Analyze([]byte("x = 1\ny = x + 2\n"), "e.py")

	require.True(t, r.Succeeded())
	assert.Equal(t, 0, r.Complexity.Metrics.FunctionCount)
	assert.Equal(t, 0, r.Size.Metrics.ClassCount)
	assert.NotNil(t, r.Complexity.Metrics.Functions)
	assert.Empty(t, r.Complexity.Metrics.Functions)
	assert.Empty(t, r.Size.Metrics.Classes)
	assert.NotNil(t, r.Size.Metrics.StdlibImports)
}

func TestEmptyInput(t *testing.T) {
	r := Analyze(nil, "")

	require.True(t, r.Succeeded())
	assert.Equal(t, 0, r.Size.Metrics.PhysicalLines)
	assert.Zero(t, r.Maintainability.Metrics.Index)
	assert.Equal(t, "F", r.Maintainability.Metrics.Rank)
	assert.Equal(t, 1.0, r.Structure.Metrics.NamingConventionScore)
	require.NoError(t, r.Validate())
}

func TestProperties(t *testing.T) {
	for name, code := range samples {
		t.Run(name, func(t *testing.T) {
			r := Analyze([]byte(code), name+".py")
			require.True(t, r.Succeeded(), "statuses: %v", r.Statuses())

			for _, fn := range r.Complexity.Metrics.Functions {
				assert.GreaterOrEqual(t, fn.Cyclomatic, 1, fn.Name)
			}

			s := r.Size.Metrics
			assert.Equal(t, s.PhysicalLines, s.LogicalLines+s.CommentLines+s.BlankLines+s.DocstringLines)

			h := r.Halstead.Metrics
			assert.Equal(t, h.UniqueOperators+h.UniqueOperands, h.Vocabulary)
			assert.Equal(t, h.TotalOperators+h.TotalOperands, h.Length)

			assert.GreaterOrEqual(t, r.Maintainability.Metrics.Index, 0.0)
			assert.GreaterOrEqual(t, r.Complexity.Metrics.MaxNesting, 0)

			require.NoError(t, r.Validate())
		})
	}
}

func TestDeterminism(t *testing.T) {
	for name, code := range samples {
		first, err := Analyze([]byte(code), name).JSON(false)
		require.NoError(t, err)
		second, err := New().Analyze([]byte(code), name).JSON(false)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(first, second), name)
	}
}

func TestAnalyze_Details(t *testing.T) {
	r := Analyze([]byte(samples["classes"]), "classes.py")
	require.True(t, r.Succeeded())

	assert.Equal(t, 2, r.Size.Metrics.ClassCount)
	assert.Equal(t, 3, r.Size.Metrics.MethodCount)
	require.Len(t, r.Size.Metrics.Classes, 2)
	assert.Equal(t, 1, r.Size.Metrics.Classes[1].DIT)
	assert.Equal(t, 1, r.Size.Metrics.Classes[0].NOC)
	assert.Equal(t, 1, r.Structure.Metrics.ListComprehensions)
	assert.Equal(t, 1, r.Structure.Metrics.GeneratorExprs)
	assert.Equal(t, 1, r.Size.Metrics.CommentLines)
	assert.Equal(t, 1, r.Size.Metrics.DocstringLines)

	loops := Analyze([]byte(samples["loops"]), "loops.py")
	require.True(t, loops.Succeeded())
	assert.Equal(t, []string{"collections", "os"}, loops.Size.Metrics.StdlibImports)
	assert.Equal(t, 3, loops.Complexity.Metrics.MaxNesting)
}

func TestAssemble_AggregatorFaultIsolated(t *testing.T) {
	snap := &engine.Snapshot{
		Cyclomatic: 1,
		NodeCount:  1,
		MaxDepth:   1,
		NodeTypes:  map[string]int{"Module": 1},
		Operators:  map[string]int{},
		Operands:   map[string]int{},
		// Lines that do not partition fault the size aggregator only.
		Lines: engine.LineCounts{Physical: 2, Logical: 1},
	}

	r := Assemble("x.py", snap, metrics.DefaultOptions())
	assert.Equal(t, report.StatusError, r.Size.Status)
	assert.NotEmpty(t, r.Size.Message)
	assert.Equal(t, report.StatusSuccess, r.Complexity.Status)
	assert.Equal(t, report.StatusSuccess, r.Halstead.Status)
	assert.Equal(t, report.StatusSuccess, r.Maintainability.Status)
	assert.Equal(t, report.StatusSuccess, r.Structure.Status)
}

func TestAssemble_RecoversPanics(t *testing.T) {
	// A nil snapshot makes every aggregator panic; each section reports it.
	r := Assemble("x.py", nil, metrics.DefaultOptions())
	for name, status := range r.Statuses() {
		assert.Equal(t, report.StatusError, status, name)
	}
}

func TestAnalyzeFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	paths := []string{
		write("a.py", samples["branches"]),
		write("b.py", samples["branches"]),
		write("c.py", "def f(:\n"),
		filepath.Join(dir, "missing.py"),
		write("d.py", samples["loops"]),
	}

	a := New(WithWorkers(2))
	batch, err := a.AnalyzeFiles(context.Background(), paths)
	require.NoError(t, err)

	require.Len(t, batch.Reports, 4)
	assert.Equal(t, paths[0], batch.Reports[0].File)
	assert.Equal(t, paths[1], batch.Reports[1].File)
	assert.Equal(t, batch.Reports[0].Complexity, batch.Reports[1].Complexity)
	assert.Equal(t, 1, batch.Summary.Duplicates)
	assert.Equal(t, 1, batch.Summary.SyntaxErrors)
	assert.Equal(t, 3, batch.Summary.Cyclomatic.Count)
	require.Len(t, batch.Errors, 1)
	assert.Equal(t, paths[3], batch.Errors[0].Path)
}

func TestAnalyzeFile_MaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.py")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x = 1\n"), 100), 0o644))

	_, err := New(WithMaxFileSize(10)).AnalyzeFile(path)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	r, err := New().AnalyzeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 100, r.Size.Metrics.LogicalLines)
}

type mapSource map[string]string

func (m mapSource) Read(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(content), nil
}

func TestAnalyzeFiles_WithSource(t *testing.T) {
	src := mapSource{
		"pkg/a.py":   samples["branches"],
		"pkg/big.py": strings.Repeat("x = 1\n", 50),
	}
	a := New(WithSource(src), WithMaxFileSize(100))

	batch, err := a.AnalyzeFiles(context.Background(), []string{"pkg/a.py", "pkg/big.py", "pkg/gone.py"})
	require.NoError(t, err)
	require.Len(t, batch.Reports, 1)
	assert.Equal(t, "pkg/a.py", batch.Reports[0].File)
	require.Len(t, batch.Errors, 2)
	byPath := map[string]error{}
	for _, e := range batch.Errors {
		byPath[e.Path] = e.Err
	}
	assert.ErrorIs(t, byPath["pkg/big.py"], ErrFileTooLarge)
	assert.ErrorIs(t, byPath["pkg/gone.py"], os.ErrNotExist)
}

func TestAnalyze_UsesCache(t *testing.T) {
	c, err := cache.New(t.TempDir(), time.Hour)
	require.NoError(t, err)
	a := New(WithCache(c))

	first := a.Analyze([]byte(samples["try"]), "one.py")
	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)

	second := a.Analyze([]byte(samples["try"]), "two.py")
	assert.Equal(t, "two.py", second.File)
	assert.Equal(t, first.Complexity, second.Complexity)
	assert.Equal(t, first.Maintainability, second.Maintainability)
}

func TestAnalyzeFiles_CountsCacheHits(t *testing.T) {
	c, err := cache.New(t.TempDir(), time.Hour)
	require.NoError(t, err)
	src := mapSource{
		"a.py": samples["branches"],
		"b.py": samples["try"],
		"c.py": samples["try"],
	}
	a := New(WithSource(src), WithCache(c), WithWorkers(1))
	paths := []string{"a.py", "b.py", "c.py"}

	batch, err := a.AnalyzeFiles(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Cached)
	assert.Equal(t, 1, batch.Summary.Duplicates)
	assert.False(t, batch.AllCached())

	batch, err = a.AnalyzeFiles(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Cached)
	assert.True(t, batch.AllCached())

	src["a.py"] = "x = 1\n"
	batch, err = a.AnalyzeFiles(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Cached)
	assert.False(t, batch.AllCached())
}
