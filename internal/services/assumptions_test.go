package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAssumptionsTinyGroup(t *testing.T) {
	a := CheckAssumptions([][]float64{{3}, {1, 2, 3, 4}, {2, 3, 4}})
	assert.False(t, a.SampleSize.Passed)
	assert.False(t, a.OverallValid)
	assert.Contains(t, a.SampleSize.Details, "smallest group n=1")
}

func TestCheckAssumptionsSingleGroup(t *testing.T) {
	g := make([]float64, 25)
	for i := range g {
		g[i] = float64(i%5 + 1)
	}
	a := CheckAssumptions([][]float64{g})
	assert.False(t, a.SampleSize.Passed)
	assert.True(t, a.Homogeneity.Passed)
	assert.Contains(t, a.Homogeneity.Details, "not applicable")
	assert.False(t, a.OverallValid)
}

func bellish(shift float64) []float64 {
	base := []float64{2, 2.5, 3, 3, 3, 3.5, 3.5, 4, 2.5, 3, 3.5, 3}
	out := make([]float64, len(base))
	for i, v := range base {
		out[i] = v + shift
	}
	return out
}

func TestCheckAssumptionsValid(t *testing.T) {
	a := CheckAssumptions([][]float64{bellish(0), bellish(0.2)})
	assert.True(t, a.SampleSize.Passed, a.SampleSize.Details)
	assert.True(t, a.Normality.Passed, a.Normality.Details)
	assert.True(t, a.Homogeneity.Passed, a.Homogeneity.Details)
	assert.True(t, a.OverallValid)
}

func TestNormalityW(t *testing.T) {
	assert.Equal(t, 1.0, NormalityW([]float64{1, 2}))
	assert.Equal(t, 1.0, NormalityW([]float64{3, 3, 3, 3}))

	w := NormalityW(bellish(0))
	assert.Greater(t, w, 0.9)
	assert.LessOrEqual(t, w, 1.0)

	// one large outlier
	skewed := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 5}
	assert.Less(t, NormalityW(skewed), NormalityThreshold(len(skewed)))
}

func TestCheckNormalityFails(t *testing.T) {
	skewed := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 5}
	a := CheckAssumptions([][]float64{skewed, bellish(0)})
	assert.False(t, a.Normality.Passed)
	assert.Contains(t, a.Normality.Details, "group 1")
	assert.False(t, a.OverallValid)
}

func TestNormalityThreshold(t *testing.T) {
	assert.Equal(t, 0.81, NormalityThreshold(9))
	assert.Equal(t, 0.90, NormalityThreshold(10))
	assert.Equal(t, 0.90, NormalityThreshold(29))
	assert.Equal(t, 0.95, NormalityThreshold(30))
}

func TestLeveneF(t *testing.T) {
	f, ok := LeveneF([][]float64{{2, 2, 2}, {4, 4, 4}})
	require.True(t, ok)
	assert.Equal(t, 0.0, f)

	f, ok = LeveneF([][]float64{{2, 2, 4, 4}, {3, 3, 3, 3}})
	require.True(t, ok)
	assert.True(t, math.IsInf(f, 1))

	a := CheckAssumptions([][]float64{{2, 2, 4, 4}, {3, 3, 3, 3}})
	assert.False(t, a.Homogeneity.Passed)
	assert.Nil(t, a.Homogeneity.Statistic)

	_, ok = LeveneF([][]float64{{1, 2}, {}})
	assert.False(t, ok)
}
