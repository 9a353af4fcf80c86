package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/pymetrics/pkg/parser"
	"github.com/panbanda/pymetrics/pkg/syntax"
)

func run(t *testing.T, code string) *Snapshot {
	t.Helper()
	p := parser.New()
	defer p.Close()

	res, err := p.Parse([]byte(code), "test.py")
	require.NoError(t, err)

	e := New()
	snap, err := e.Run(res.Root, res.Source)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Nesting(), "nesting must return to zero")
	return snap
}

func TestRun_SimpleFunction(t *testing.T) {
	snap := run(t, "def f():\n    pass\n")

	require.Len(t, snap.Functions, 1)
	assert.Empty(t, snap.Classes)
	assert.Equal(t, 1, snap.Cyclomatic)
	assert.Equal(t, 1, snap.Functions[0].Cyclomatic)
	assert.Equal(t, 0, snap.Functions[0].Cognitive)
	assert.Equal(t, 2, snap.Lines.Logical)
	assert.Equal(t, 2, snap.Lines.Physical)
}

func TestRun_ElifChain(t *testing.T) {
	code := `def g(x, y):
    if x:
        a = 1
    elif y:
        a = 2
    else:
        a = 3
`
	snap := run(t, code)

	require.Len(t, snap.Functions, 1)
	fn := snap.Functions[0]
	assert.Equal(t, 3, snap.Cyclomatic)
	assert.Equal(t, 3, fn.Cyclomatic)
	assert.Equal(t, 2, fn.Cognitive, "elif links sit on their head's level")
	assert.Equal(t, 1, fn.MaxNesting)
	assert.Equal(t, 2, fn.Params)
	assert.Equal(t, 3, snap.Counts.Assignments)
	assert.Equal(t, 2, snap.Counts.If)
	assert.Equal(t, 1, snap.Counts.Elif)
	assert.Equal(t, 1, snap.Counts.Else)
}

func TestRun_NestedLoops(t *testing.T) {
	code := `def f(R):
  for i in R:
    for j in R:
      pass
`
	snap := run(t, code)

	assert.Equal(t, 2, snap.MaxNesting)
	require.Len(t, snap.Functions, 1)
	assert.Equal(t, 2, snap.Functions[0].MaxNesting)
	assert.Equal(t, 3, snap.Functions[0].Cyclomatic)
	// 1 for the outer loop, 1 + 1 nesting bonus for the inner one.
	assert.Equal(t, 3, snap.Functions[0].Cognitive)
}

func TestRun_NestingResetsPerFunction(t *testing.T) {
	code := `if True:
    def f():
        if x:
            pass
`
	snap := run(t, code)

	require.Len(t, snap.Functions, 1)
	assert.Equal(t, 1, snap.Functions[0].MaxNesting)
	assert.Equal(t, 1, snap.Functions[0].Cognitive)
	assert.Equal(t, 1, snap.MaxNesting)
}

func TestRun_LambdaRaisesCognitiveNesting(t *testing.T) {
	code := `def f(xs):
    if xs:
        return sorted(xs, key=lambda x: x and x.k)
`
	snap := run(t, code)

	fn := snap.Functions[0]
	assert.Equal(t, 3, fn.Cyclomatic)
	assert.Equal(t, 4, fn.Cognitive, "the boolean operator sits one level deeper inside the lambda")
	assert.Equal(t, 1, fn.MaxNesting, "lambdas do not count as blocks")

	snap = run(t, "key = lambda x: x and x.k\n")
	assert.Equal(t, 2, snap.Cognitive)
}

func TestRun_Try(t *testing.T) {
	code := `def f():
    try:
        pass
    except ValueError:
        pass
    except KeyError as err:
        pass
    finally:
        pass
`
	snap := run(t, code)

	fn := snap.Functions[0]
	assert.Equal(t, 4, fn.Cyclomatic)
	assert.Equal(t, 3, fn.Cognitive)
	assert.Equal(t, 1, snap.Counts.Try)
	assert.Equal(t, 2, snap.Counts.Except)
	assert.Equal(t, 1, snap.Counts.Finally)
	assert.Contains(t, snap.Variables, "err")
}

func TestRun_BoolOp(t *testing.T) {
	snap := run(t, "x = a and b and c\ny = a or b\n")

	assert.Equal(t, 4, snap.Cyclomatic)
	assert.Equal(t, 3, snap.Counts.BoolOps)
	assert.Equal(t, 1, snap.Operators["And"])
	assert.Equal(t, 1, snap.Operators["Or"])
}

func TestRun_Halstead(t *testing.T) {
	snap := run(t, "x = a + b * c\nif x > None:\n    y = -x\n")

	assert.Equal(t, 1, snap.Operators["Add"])
	assert.Equal(t, 1, snap.Operators["Mult"])
	assert.Equal(t, 1, snap.Operators["Gt"])
	assert.Equal(t, 1, snap.Operators["USub"])
	assert.Equal(t, 3, snap.Operands["x"])
	assert.Equal(t, 1, snap.Operands["a"])
	assert.NotContains(t, snap.Operands, "None")
}

func TestRun_Classes(t *testing.T) {
	code := `class A(Base, mod.Mixin):
    """Doc."""

    def m(self):
        return helper(1)

    async def n(self):
        yield 1


class B(A):
    pass
`
	snap := run(t, code)

	require.Len(t, snap.Classes, 2)
	a := snap.Classes[0]
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, []string{"Base", "mod.Mixin"}, a.Bases)
	assert.Equal(t, 2, a.Methods)
	assert.True(t, a.HasDocstring)
	assert.Contains(t, a.References, "helper")

	require.Len(t, snap.Functions, 2)
	assert.True(t, snap.Functions[0].IsMethod)
	assert.Equal(t, "A", snap.Functions[0].Class)
	assert.True(t, snap.Functions[1].IsAsync)
	assert.True(t, snap.Functions[1].IsGenerator)
	assert.Equal(t, 1, snap.Lines.Docstring)
}

func TestRun_Lines(t *testing.T) {
	code := "\"\"\"Module.\n\nMore.\n\"\"\"\n# comment\n\nx = 1  # trailing\n"
	snap := run(t, code)

	assert.Equal(t, LineCounts{Physical: 7, Logical: 1, Comment: 1, Blank: 1, Docstring: 4}, snap.Lines)
	assert.Equal(t, 1, snap.Counts.Docstrings)
}

func TestRun_LinesInsideStrings(t *testing.T) {
	tests := []struct {
		name string
		code string
		want LineCounts
	}{
		{
			name: "triple quoted assignment",
			code: "s = \"\"\"\n# not comment\n\n\"\"\"\n# real\n\n",
			want: LineCounts{Physical: 6, Logical: 4, Comment: 1, Blank: 1},
		},
		{
			name: "formatted string",
			code: "y = 1\nx = f\"\"\"\n  # {y}\n\"\"\"\n",
			want: LineCounts{Physical: 4, Logical: 4},
		},
		{
			name: "bytes",
			code: "b = b'''\n\n'''\n",
			want: LineCounts{Physical: 3, Logical: 3},
		},
		{
			name: "argument inside function",
			code: "def f():\n    \"\"\"Doc.\"\"\"\n    g(\"\"\"\n    # text\n    \"\"\")\n",
			want: LineCounts{Physical: 5, Logical: 4, Docstring: 1},
		},
		{
			name: "single line triple quoted",
			code: "x = \"\"\"a\"\"\"\n# c\n",
			want: LineCounts{Physical: 2, Logical: 1, Comment: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, tt.code).Lines)
		})
	}
}

func TestRun_Imports(t *testing.T) {
	snap := run(t, "import os, sys\nfrom . import sibling\nfrom collections import OrderedDict as OD\n")

	require.Len(t, snap.Imports, 4)
	assert.Equal(t, "os", snap.Imports[0].Module)
	assert.Equal(t, "sys", snap.Imports[1].Module)
	assert.Equal(t, 1, snap.Imports[2].Level)
	assert.True(t, snap.Imports[3].From)
	assert.Equal(t, "collections", snap.Imports[3].Module)
}

func TestRun_Empty(t *testing.T) {
	snap := run(t, "")

	assert.True(t, snap.Empty())
	assert.Equal(t, 1, snap.Cyclomatic)
	assert.Equal(t, 1, snap.NodeCount)
	assert.Equal(t, 1, snap.MaxDepth)
	assert.NotNil(t, snap.Functions)
	assert.NotNil(t, snap.Imports)
	assert.Equal(t, LineCounts{}, snap.Lines)
}

func TestRun_LinePartition(t *testing.T) {
	code := strings.Join([]string{
		"def f(x):",
		`    """Docstring`,
		`    spanning lines."""`,
		"",
		"    # note",
		"    return x",
		"",
	}, "\n")
	snap := run(t, code)

	l := snap.Lines
	assert.Equal(t, l.Physical, l.Logical+l.Comment+l.Blank+l.Docstring)
	assert.Equal(t, 2, l.Docstring)
}

func TestEngine_ReuseRequiresReset(t *testing.T) {
	p := parser.New()
	defer p.Close()
	res, err := p.Parse([]byte("x = 1\n"), "")
	require.NoError(t, err)

	e := New()
	first, err := e.Run(res.Root, res.Source)
	require.NoError(t, err)

	_, err = e.Run(res.Root, res.Source)
	assert.ErrorIs(t, err, ErrEngineUsed)

	e.Reset()
	second, err := e.Run(res.Root, res.Source)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRun_Faults(t *testing.T) {
	tests := []struct {
		name string
		root func() *syntax.Node
	}{
		{
			name: "unnamed function",
			root: func() *syntax.Node {
				fn := syntax.New(syntax.KindFunctionDef, syntax.Span{StartLine: 3})
				fn.Args = syntax.New(syntax.KindArguments, syntax.Span{})
				fn.Add(fn.Args)
				return syntax.New(syntax.KindModule, syntax.Span{}).Add(fn)
			},
		},
		{
			name: "invalid kind",
			root: func() *syntax.Node {
				return syntax.New(syntax.KindModule, syntax.Span{}).Add(syntax.New(syntax.KindInvalid, syntax.Span{}))
			},
		},
		{
			name: "short boolop",
			root: func() *syntax.Node {
				b := syntax.New(syntax.KindBoolOp, syntax.Span{})
				b.Op = "And"
				return syntax.New(syntax.KindModule, syntax.Span{}).Add(b)
			},
		},
		{
			name: "not a module",
			root: func() *syntax.Node {
				return syntax.New(syntax.KindPass, syntax.Span{})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.root(), nil)
			require.Error(t, err)
			var fault *Fault
			assert.True(t, errors.As(err, &fault))
		})
	}
}
