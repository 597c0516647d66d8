package services

// ReverseScore maps a raw Likert value to its reverse-scored value
// given the number of points in the scale (e.g., 5 or 7).
// raw is expected to be within [1, points]. Out-of-range values are clamped.
func ReverseScore(raw, points int) int {
	if points < 2 {
		return raw
	}
	if raw < 1 {
		raw = 1
	}
	if raw > points {
		raw = points
	}
	return (points + 1) - raw
}

// ScoredAnswer pairs an answer value with the category of its item.
type ScoredAnswer struct {
	Category Category
	Value    int
}

// Profile holds a participant's scale scores. A nil score means the
// participant answered no item of that scale; it is never zero.
type Profile struct {
	Optimism   *float64 `json:"optimism"`
	Skepticism *float64 `json:"skepticism"`
}

// Score returns the score for s and whether it is defined.
func (p Profile) Score(s Scale) (float64, bool) {
	var v *float64
	switch s {
	case ScaleOptimism:
		v = p.Optimism
	case ScaleSkepticism:
		v = p.Skepticism
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Complete reports whether both scales are defined.
func (p Profile) Complete() bool {
	return p.Optimism != nil && p.Skepticism != nil
}

// ItemScore returns the value an answer contributes to its scale:
// negatively keyed items are reverse-scored, positive ones pass through.
func ItemScore(c Category, value int) (float64, bool) {
	switch c {
	case CategoryPositive:
		return float64(value), true
	case CategoryNegative:
		return float64(ReverseScore(value, LikertPoints)), true
	}
	return 0, false
}

// CalculateProfile averages a participant's answers per scale. Control
// items and unknown categories are ignored.
func CalculateProfile(answers []ScoredAnswer) Profile {
	var sums, counts [2]float64
	for _, a := range answers {
		v, ok := ItemScore(a.Category, a.Value)
		if !ok {
			continue
		}
		idx := 0
		if a.Category == CategoryNegative {
			idx = 1
		}
		sums[idx] += v
		counts[idx]++
	}
	var p Profile
	if counts[0] > 0 {
		m := sums[0] / counts[0]
		p.Optimism = &m
	}
	if counts[1] > 0 {
		m := sums[1] / counts[1]
		p.Skepticism = &m
	}
	return p
}
