package services

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DemographicComparison places one score within a reference population.
//
// Percentile is the share of the population scoring strictly lower,
// rounded to a whole percent. Ties rank below the participant and no
// interpolation is applied, so the lowest scorer is always at 0 and a
// unique maximum reaches round(100*(n-1)/n), never 100.
type DemographicComparison struct {
	UserScore         float64 `json:"user_score"`
	PopulationAverage float64 `json:"population_average"`
	Rank              int     `json:"rank"`
	TotalResponses    int     `json:"total_responses"`
	Percentile        int     `json:"percentile"`
	Band              Band    `json:"band"`
}

// Band is a coarse reading of a percentile.
type Band string

const (
	BandTop    Band = "top"
	BandUpper  Band = "upper"
	BandMiddle Band = "middle"
	BandLower  Band = "lower"
)

// BandFor maps a percentile to its interpretation band.
func BandFor(percentile int) Band {
	switch {
	case percentile >= 75:
		return BandTop
	case percentile >= 50:
		return BandUpper
	case percentile >= 25:
		return BandMiddle
	}
	return BandLower
}

// RankAmong returns 1 + the number of population members strictly below score.
func RankAmong(score float64, population []float64) int {
	rank := 1
	for _, v := range population {
		if v < score {
			rank++
		}
	}
	return rank
}

// CompareToPopulation ranks score against population. ok is false for an
// empty population.
func CompareToPopulation(score float64, population []float64) (DemographicComparison, bool) {
	n := len(population)
	if n == 0 {
		return DemographicComparison{}, false
	}
	sorted := append([]float64(nil), population...)
	sort.Float64s(sorted)
	rank := RankAmong(score, sorted)
	pct := int(math.Round(100 * float64(rank-1) / float64(n)))
	return DemographicComparison{
		UserScore:         score,
		PopulationAverage: stat.Mean(sorted, nil),
		Rank:              rank,
		TotalResponses:    n,
		Percentile:        pct,
		Band:              BandFor(pct),
	}, true
}
