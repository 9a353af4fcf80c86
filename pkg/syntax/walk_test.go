package syntax

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []string
	failOn Kind
}

func (r *recorder) Enter(n *Node, depth int) error {
	if n.Kind == r.failOn {
		return errors.New("boom")
	}
	r.events = append(r.events, "+"+n.Kind.String())
	return nil
}

func (r *recorder) Exit(n *Node, _ int) error {
	r.events = append(r.events, "-"+n.Kind.String())
	return nil
}

func sampleTree() *Node {
	fn := New(KindFunctionDef, Span{StartLine: 1})
	fn.Add(New(KindPass, Span{StartLine: 2}))
	return New(KindModule, Span{}).Add(fn, New(KindExpr, Span{StartLine: 3}))
}

func TestWalk_Order(t *testing.T) {
	r := &recorder{}
	require.NoError(t, Walk(sampleTree(), r))
	assert.Equal(t, []string{
		"+Module", "+FunctionDef", "+Pass", "-Pass", "-FunctionDef",
		"+Expr", "-Expr", "-Module",
	}, r.events)
}

func TestWalk_StopsOnError(t *testing.T) {
	r := &recorder{failOn: KindPass}
	err := Walk(sampleTree(), r)
	require.Error(t, err)
	assert.Equal(t, []string{"+Module", "+FunctionDef"}, r.events)
}

func TestWalk_DeepTree(t *testing.T) {
	root := New(KindModule, Span{})
	cur := root
	for i := 0; i < 100000; i++ {
		next := New(KindBinOp, Span{})
		cur.Add(next)
		cur = next
	}
	assert.Equal(t, 100001, Count(root))

	maxDepth := 0
	v := &depthVisitor{max: &maxDepth}
	require.NoError(t, Walk(root, v))
	assert.Equal(t, 100000, maxDepth)
}

type depthVisitor struct{ max *int }

func (d *depthVisitor) Enter(_ *Node, depth int) error {
	if depth > *d.max {
		*d.max = depth
	}
	return nil
}

func (d *depthVisitor) Exit(*Node, int) error { return nil }

func TestKindString(t *testing.T) {
	assert.Equal(t, "FunctionDef", KindFunctionDef.String())
	assert.Equal(t, "comprehension", KindComprehension.String())
	assert.Equal(t, "Invalid", Kind(250).String())
	assert.False(t, KindInvalid.Valid())
	assert.True(t, KindArg.Valid())
	for k := KindModule; k < kindCount; k++ {
		assert.NotEmpty(t, k.String(), "kind %d has no name", k)
	}
}

func TestDocstring(t *testing.T) {
	doc := New(KindConstant, Span{StartLine: 2})
	doc.Literal = LiteralString
	expr := New(KindExpr, Span{StartLine: 2}).Add(doc)
	fn := New(KindFunctionDef, Span{StartLine: 1}).Add(expr)
	fn.Body = []*Node{expr}

	assert.Same(t, doc, fn.Docstring())

	doc.Literal = LiteralNumber
	assert.Nil(t, fn.Docstring())
	assert.Nil(t, New(KindIf, Span{}).Docstring())
}
