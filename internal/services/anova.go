package services

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// AnovaResult is a one-way ANOVA. Every field is nil when the layout is
// degenerate. PValue is bucketed from F at fixed cut points; ExactPValue
// is the upper tail of the F distribution and is reported for reference
// only, Significant always follows the bucketed value.
type AnovaResult struct {
	FStatistic  *float64 `json:"f_statistic"`
	PValue      *float64 `json:"p_value"`
	ExactPValue *float64 `json:"exact_p_value"`
	DFBetween   *int     `json:"df_between"`
	DFWithin    *int     `json:"df_within"`
	Significant *bool    `json:"significant"`
}

// Defined reports whether the ANOVA could be computed.
func (r AnovaResult) Defined() bool { return r.FStatistic != nil }

// BucketPValue maps an F ratio to its approximate p-value.
func BucketPValue(f float64) float64 {
	switch {
	case f > 3.84:
		return 0.01
	case f > 2.71:
		return 0.05
	}
	return 0.1
}

// OneWayAnova runs an ungated ANOVA across groups.
func OneWayAnova(groups [][]float64) AnovaResult {
	return runAnova(groups, true)
}

// GatedAnova runs an ANOVA whose significance also requires the
// assumption checks to hold.
func GatedAnova(groups [][]float64, assumptions AssumptionResult) AnovaResult {
	return runAnova(groups, assumptions.OverallValid)
}

func runAnova(groups [][]float64, valid bool) AnovaResult {
	if len(groups) < 2 {
		return AnovaResult{}
	}
	for _, g := range groups {
		if len(g) == 0 {
			return AnovaResult{}
		}
	}
	ow := decompose(groups)
	if ow.dfb <= 0 || ow.dfw <= 0 || ow.ssw == 0 {
		return AnovaResult{}
	}
	f := (ow.ssb / float64(ow.dfb)) / (ow.ssw / float64(ow.dfw))
	p := BucketPValue(f)
	exact := distuv.F{D1: float64(ow.dfb), D2: float64(ow.dfw)}.Survival(f)
	sig := p < 0.05 && valid
	dfb, dfw := ow.dfb, ow.dfw
	return AnovaResult{
		FStatistic:  &f,
		PValue:      &p,
		ExactPValue: &exact,
		DFBetween:   &dfb,
		DFWithin:    &dfw,
		Significant: &sig,
	}
}
