package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Assumption thresholds for the parametric group comparison.
const (
	MinTotalN           = 20
	MinGroupSize        = 3
	MinGroups           = 2
	HomogeneityCritical = 2.5
)

// TestResult is the verdict of one assumption check. Statistic is omitted
// when it is not finite or not applicable.
type TestResult struct {
	Passed    bool     `json:"passed"`
	Details   string   `json:"details"`
	Statistic *float64 `json:"statistic,omitempty"`
}

// AssumptionResult gates whether ANOVA output may be read inferentially.
type AssumptionResult struct {
	SampleSize   TestResult `json:"sample_size_test"`
	Normality    TestResult `json:"normality_test"`
	Homogeneity  TestResult `json:"homogeneity_test"`
	OverallValid bool       `json:"overall_valid"`
}

// CheckAssumptions runs the sample-size, normality and homogeneity checks
// over groups of scale scores.
func CheckAssumptions(groups [][]float64) AssumptionResult {
	res := AssumptionResult{
		SampleSize:  checkSampleSize(groups),
		Normality:   checkNormality(groups),
		Homogeneity: checkHomogeneity(groups),
	}
	res.OverallValid = res.SampleSize.Passed && res.Normality.Passed && res.Homogeneity.Passed
	return res
}

func checkSampleSize(groups [][]float64) TestResult {
	total := 0
	smallest := 0
	for i, g := range groups {
		total += len(g)
		if i == 0 || len(g) < smallest {
			smallest = len(g)
		}
	}
	passed := total >= MinTotalN && smallest >= MinGroupSize && len(groups) >= MinGroups
	return TestResult{
		Passed: passed,
		Details: fmt.Sprintf("N=%d (min %d), smallest group n=%d (min %d), groups=%d (min %d)",
			total, MinTotalN, smallest, MinGroupSize, len(groups), MinGroups),
	}
}

// NormalityThreshold is the minimum W accepted for a group of size n.
func NormalityThreshold(n int) float64 {
	switch {
	case n < 10:
		return 0.81
	case n < 30:
		return 0.90
	}
	return 0.95
}

// NormalityW approximates the Shapiro-Wilk W with the Shapiro-Francia
// form: coefficients are normalised Blom scores of the expected normal
// order statistics. A constant series returns 1.
func NormalityW(values []float64) float64 {
	n := len(values)
	if n < 3 {
		return 1
	}
	x := append([]float64(nil), values...)
	sort.Float64s(x)
	ss := stat.PopVariance(x, nil) * float64(n)
	if ss <= 0 {
		return 1
	}
	m := make([]float64, n)
	var norm float64
	for i := range m {
		p := (float64(i+1) - 0.375) / (float64(n) + 0.25)
		m[i] = distuv.UnitNormal.Quantile(p)
		norm += m[i] * m[i]
	}
	norm = math.Sqrt(norm)
	var num float64
	for i := range x {
		num += m[i] / norm * x[i]
	}
	w := num * num / ss
	if w > 1 {
		w = 1
	}
	return w
}

func checkNormality(groups [][]float64) TestResult {
	var failures []string
	worst := 1.0
	for i, g := range groups {
		if len(g) < 3 {
			continue
		}
		w := NormalityW(g)
		if w < worst {
			worst = w
		}
		if th := NormalityThreshold(len(g)); w < th {
			failures = append(failures, fmt.Sprintf("group %d (n=%d): W=%.3f < %.2f", i+1, len(g), w, th))
		}
	}
	if len(failures) > 0 {
		return TestResult{Passed: false, Details: "not normal: " + strings.Join(failures, "; "), Statistic: &worst}
	}
	return TestResult{Passed: true, Details: fmt.Sprintf("all groups within thresholds (min W=%.3f)", worst), Statistic: &worst}
}

// oneWay holds the sums of squares of a one-way layout.
type oneWay struct {
	ssb, ssw float64
	dfb, dfw int
}

func decompose(groups [][]float64) oneWay {
	var ow oneWay
	total := 0
	var grand float64
	for _, g := range groups {
		total += len(g)
		for _, v := range g {
			grand += v
		}
	}
	if total > 0 {
		grand /= float64(total)
	}
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		gm := stat.Mean(g, nil)
		ow.ssb += float64(len(g)) * (gm - grand) * (gm - grand)
		for _, v := range g {
			ow.ssw += (v - gm) * (v - gm)
		}
	}
	ow.dfb = len(groups) - 1
	ow.dfw = total - len(groups)
	return ow
}

// LeveneF is the F ratio of absolute deviations from group means. Empty
// groups are skipped. With no within-group spread the ratio is 0 when the
// groups also agree and +Inf otherwise.
func LeveneF(groups [][]float64) (float64, bool) {
	var devs [][]float64
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		gm := stat.Mean(g, nil)
		d := make([]float64, len(g))
		for i, v := range g {
			d[i] = math.Abs(v - gm)
		}
		devs = append(devs, d)
	}
	if len(devs) < 2 {
		return 0, false
	}
	ow := decompose(devs)
	const eps = 1e-12
	if ow.dfw <= 0 || ow.ssw < eps {
		if ow.ssb < eps {
			return 0, true
		}
		return math.Inf(1), true
	}
	return (ow.ssb / float64(ow.dfb)) / (ow.ssw / float64(ow.dfw)), true
}

func checkHomogeneity(groups [][]float64) TestResult {
	f, ok := LeveneF(groups)
	if !ok {
		return TestResult{Passed: true, Details: "not applicable (fewer than 2 groups)"}
	}
	passed := f <= HomogeneityCritical
	res := TestResult{Passed: passed, Details: fmt.Sprintf("Levene F=%.3f (critical %.1f)", f, HomogeneityCritical)}
	if !math.IsInf(f, 0) {
		res.Statistic = &f
	} else {
		res.Details = "Levene F unbounded: no spread within groups but spread differs between groups"
	}
	return res
}
