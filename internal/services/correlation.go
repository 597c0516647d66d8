package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Alpha is the significance level used by every test in the package.
const Alpha = 0.05

// Anchors for open-ended brackets.
const (
	AgeLowAnchor         = 20
	AgeHighAnchor        = 65
	ExperienceHighAnchor = 31
)

// CorrelationResult is a Pearson correlation with its two-sided t test.
type CorrelationResult struct {
	Correlation float64 `json:"correlation"`
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`
	N           int     `json:"n"`
}

// PearsonTest correlates x and y and tests r against zero with a t test
// on n-2 degrees of freedom. Fewer than 2 pairs yield the zero result with
// p=1 and n=0. Undefined correlations (constant series) report r=0, p=1.
func PearsonTest(x, y []float64) CorrelationResult {
	if len(x) < 2 || len(y) < 2 || len(x) != len(y) {
		return CorrelationResult{PValue: 1}
	}
	n := len(x)
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return CorrelationResult{PValue: 1, N: n}
	}
	p := correlationPValue(r, n)
	return CorrelationResult{
		Correlation: r,
		PValue:      p,
		Significant: p < Alpha,
		N:           n,
	}
}

func correlationPValue(r float64, n int) float64 {
	df := float64(n - 2)
	if df <= 0 {
		return 1
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	t := r * math.Sqrt(df/(1-r*r))
	p := 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(t))
	if math.IsNaN(p) {
		return 1
	}
	return math.Min(p, 1)
}

var bracketRange = regexp.MustCompile(`(\d+)-(\d+)`)

// CategoryToNumber converts an age or experience bracket to a
// representative number: the midpoint of a closed range, a fixed anchor
// for open brackets, and 0 when the label cannot be read.
func CategoryToNumber(category string, v Variable) float64 {
	switch v {
	case VariableAge:
		if strings.HasPrefix(category, "unter") || strings.HasPrefix(strings.ToLower(category), "under") {
			return AgeLowAnchor
		}
		if strings.HasSuffix(category, "+") {
			return AgeHighAnchor
		}
	case VariableExperience:
		if strings.HasSuffix(category, "+") {
			return ExperienceHighAnchor
		}
	default:
		return 0
	}
	m := bracketRange.FindStringSubmatch(category)
	if m == nil {
		return 0
	}
	lo, _ := strconv.Atoi(m[1])
	hi, _ := strconv.Atoi(m[2])
	return float64(lo+hi) / 2
}
