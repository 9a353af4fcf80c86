package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	values := []float64{4, 1, 3, 2, 5}
	s := Summarize(values)

	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 3.0, s.Mean, 1e-9)
	assert.InDelta(t, 1.5811, s.StdDev, 1e-4)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 3.0, s.Median)
	assert.Equal(t, 5.0, s.P90)
	assert.Equal(t, []float64{4, 1, 3, 2, 5}, values, "input must not be reordered")
}

func TestSummarize_Edges(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	one := Summarize([]float64{7})
	assert.Equal(t, 1, one.Count)
	assert.Equal(t, 7.0, one.Mean)
	assert.Zero(t, one.StdDev)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, 6.0, Percentile(sorted, 50))
	assert.Equal(t, 10.0, Percentile(sorted, 100))
	assert.Zero(t, Percentile(nil, 50))
}
