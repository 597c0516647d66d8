package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPearsonTestPerfect(t *testing.T) {
	r := PearsonTest([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 6, 8, 10})
	assert.InDelta(t, 1.0, r.Correlation, 1e-9)
	assert.Less(t, r.PValue, 1e-6)
	assert.True(t, r.Significant)
	assert.Equal(t, 5, r.N)
}

func TestPearsonTestKnownValue(t *testing.T) {
	// r = 0.8, n = 5: t = 0.8*sqrt(3/0.36) = 2.309, two-sided p ~ 0.104
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 1, 4, 3, 5}
	r := PearsonTest(x, y)
	assert.InDelta(t, 0.8, r.Correlation, 1e-9)
	assert.InDelta(t, 0.104, r.PValue, 0.002)
	assert.False(t, r.Significant)
}

func TestPearsonTestDegenerate(t *testing.T) {
	r := PearsonTest([]float64{1}, []float64{2})
	assert.Equal(t, CorrelationResult{PValue: 1}, r)

	r = PearsonTest([]float64{1, 2}, []float64{3, 5})
	assert.Equal(t, 2, r.N)
	assert.Equal(t, 1.0, r.PValue)
	assert.False(t, r.Significant)

	r = PearsonTest([]float64{3, 3, 3}, []float64{1, 2, 3})
	assert.Equal(t, 0.0, r.Correlation)
	assert.Equal(t, 1.0, r.PValue)
}

func TestCategoryToNumber(t *testing.T) {
	cases := []struct {
		in   string
		v    Variable
		want float64
	}{
		{"unter 25", VariableAge, 20},
		{"25-34", VariableAge, 29.5},
		{"65+", VariableAge, 65},
		{"0-5", VariableExperience, 2.5},
		{"21-30", VariableExperience, 25.5},
		{"31+", VariableExperience, 31},
		{"unbekannt", VariableAge, 0},
		{"", VariableExperience, 0},
		{"25-34", VariableRole, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CategoryToNumber(c.in, c.v), c.in)
	}
}
