package stats

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeKnownValues(t *testing.T) {
	draws := []float64{5, 1, 3, 2, 4}
	s, err := Summarize(draws, 0.95)
	require.NoError(t, err)

	assert.Equal(t, 3.0, s.Median)
	// |x-3| = 2,2,0,1,1 -> median 1
	assert.InDelta(t, 1.4826, s.MAD, 1e-12)
	assert.Equal(t, 1.0, s.Lower)
	assert.Equal(t, 5.0, s.Upper)
	assert.Equal(t, []float64{5, 1, 3, 2, 4}, draws, "input must not be reordered")
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(nil, 0.95)
	assert.ErrorIs(t, err, ErrNoDraws)

	_, err = Summarize([]float64{1, math.NaN()}, 0.95)
	assert.Error(t, err)
}

func TestHDIPicksNarrowestWindow(t *testing.T) {
	// a long right tail: the HDI should hug the dense left region
	draws := make([]float64, 0, 100)
	for i := 0; i < 95; i++ {
		draws = append(draws, float64(i)/100)
	}
	for i := 0; i < 5; i++ {
		draws = append(draws, 50+float64(i))
	}

	lo, hi, err := HDI(draws, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 0.94, hi)
}

func TestHDIContainsMedian(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 50; trial++ {
		draws := make([]float64, 400)
		for i := range draws {
			// skewed draws in (0,1)
			x := r.ExpFloat64()
			draws[i] = x / (1 + x)
		}
		pass, run, err := PassRun(draws, DefaultMass)
		require.NoError(t, err)

		assert.LessOrEqual(t, pass.Lower, pass.Median)
		assert.LessOrEqual(t, pass.Median, pass.Upper)
		assert.LessOrEqual(t, run.Lower, run.Median)
		assert.LessOrEqual(t, run.Median, run.Upper)
		assert.InDelta(t, 100, pass.Median+run.Median, 1e-9)
	}
}

func TestComplementSwapsInterval(t *testing.T) {
	pass, run, err := PassRun([]float64{0.6, 0.7, 0.8}, 0.5)
	require.NoError(t, err)

	assert.InDelta(t, 70, pass.Median, 1e-9)
	assert.InDelta(t, 30, run.Median, 1e-9)
	assert.InDelta(t, 100-pass.Upper, run.Lower, 1e-9)
	assert.InDelta(t, 100-pass.Lower, run.Upper, 1e-9)
	assert.Equal(t, pass.MAD, run.MAD)
}

func TestHistogram(t *testing.T) {
	draws := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	bins := Histogram(draws, 5)
	require.Len(t, bins, 5)

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, len(draws), total)
	assert.Equal(t, 0.0, bins[0].Lower)
	assert.Equal(t, 10.0, bins[4].Upper)
	assert.Equal(t, 3, bins[4].Count, "8, 9 and the closed right edge 10")

	flat := Histogram([]float64{2, 2, 2}, 10)
	require.Len(t, flat, 1)
	assert.Equal(t, 3, flat[0].Count)

	assert.Nil(t, Histogram(nil, 10))
}
