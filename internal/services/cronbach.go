package services

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MinVarianceForCorrelation is the population variance below which a
// series is treated as constant for item-total correlation.
const MinVarianceForCorrelation = 0.01

// CronbachAlpha computes Cronbach's alpha for a matrix of item responses.
// The matrix is shaped as [nParticipants][nItems].
// This implementation uses population variance (divide by N) consistently.
// It needs at least 2 items and 2 participants; ragged rows are rejected.
// A zero total-score variance yields alpha=1. Alpha is not clamped and
// may be negative for items that do not hang together.
func CronbachAlpha(matrix [][]float64) (float64, bool) {
	n := len(matrix)
	if n < 2 {
		return 0, false
	}
	k := len(matrix[0])
	if k < 2 {
		return 0, false
	}

	totals := make([]float64, n)
	column := make([]float64, n)
	for i, row := range matrix {
		if len(row) != k {
			return 0, false
		}
		for _, v := range row {
			totals[i] += v
		}
	}

	var sumItemVars float64
	for j := 0; j < k; j++ {
		for i := 0; i < n; i++ {
			column[i] = matrix[i][j]
		}
		sumItemVars += stat.PopVariance(column, nil)
	}

	totalVar := stat.PopVariance(totals, nil)
	if totalVar == 0 {
		return 1, true
	}
	kf := float64(k)
	return (kf / (kf - 1.0)) * (1.0 - (sumItemVars / totalVar)), true
}

// ItemTotalCorrelation correlates an item's values with the mean of the
// same participants' other items on the scale. It needs at least 3 pairs
// and non-trivial variance in both series.
func ItemTotalCorrelation(item, restMean []float64) (float64, bool) {
	if len(item) != len(restMean) || len(item) < 3 {
		return 0, false
	}
	if stat.PopVariance(item, nil) <= MinVarianceForCorrelation ||
		stat.PopVariance(restMean, nil) <= MinVarianceForCorrelation {
		return 0, false
	}
	r := stat.Correlation(item, restMean, nil)
	if math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

// ItemTotalPairs builds the (item, mean of other items) series for column
// j of a participant-by-item matrix. Rows with fewer than 2 items are skipped.
func ItemTotalPairs(matrix [][]float64, j int) (item, restMean []float64) {
	for _, row := range matrix {
		if j >= len(row) || len(row) < 2 {
			continue
		}
		var rest float64
		for c, v := range row {
			if c != j {
				rest += v
			}
		}
		item = append(item, row[j])
		restMean = append(restMean, rest/float64(len(row)-1))
	}
	return item, restMean
}
