package services

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Summary holds descriptive statistics of one series. All fields are nil
// when the series is empty; Q1 and Q3 stay nil below two values. SD is the population standard deviation.
type Summary struct {
	N      int      `json:"n"`
	Mean   *float64 `json:"mean"`
	SD     *float64 `json:"sd"`
	Median *float64 `json:"median"`
	Q1     *float64 `json:"q1"`
	Q3     *float64 `json:"q3"`
}

// Summarize describes data.
func Summarize(data []float64) Summary {
	s := Summary{N: len(data)}
	if len(data) == 0 {
		return s
	}
	mean, _ := stats.Mean(data)
	sd, _ := stats.StandardDeviationPopulation(data)
	median, _ := stats.Median(data)
	s.Mean, s.SD, s.Median = finite(mean), finite(sd), finite(median)
	// quartiles need two values; a single one leaves both halves empty
	if len(data) >= 2 {
		q, _ := stats.Quartile(data)
		s.Q1, s.Q3 = finite(q.Q1), finite(q.Q3)
	}
	return s
}

// finite returns &v, or nil for NaN and infinities, which JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ItemStat describes the raw answers to one scored item.
type ItemStat struct {
	ID        int64    `json:"id"`
	Text      string   `json:"text"`
	Category  Category `json:"category"`
	Histogram []int    `json:"histogram"`
	Summary
}

// ItemStats describes every scored item in id order. Values are the raw
// answers, not reverse-scored. An item nobody answered keeps nil statistics.
func ItemStats(ds *Dataset) []ItemStat {
	values := make(map[int64][]float64)
	for _, p := range ds.Participants {
		for _, a := range ds.Answers(p.ID) {
			values[a.ItemID] = append(values[a.ItemID], float64(a.Value))
		}
	}
	var out []ItemStat
	for _, it := range ds.ScoredItems() {
		hist := make([]int, LikertPoints)
		for _, v := range values[it.ID] {
			hist[int(v)-1]++
		}
		out = append(out, ItemStat{
			ID:        it.ID,
			Text:      it.Text,
			Category:  it.Category,
			Histogram: hist,
			Summary:   Summarize(values[it.ID]),
		})
	}
	return out
}

// DailyCount is the number of participants who started on one day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Timeseries counts participants per UTC creation day in date order.
func Timeseries(ds *Dataset) []DailyCount {
	counts := map[string]int{}
	for _, p := range ds.Participants {
		if p.CreatedAt.IsZero() {
			continue
		}
		counts[p.CreatedAt.UTC().Format("2006-01-02")]++
	}
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]DailyCount, 0, len(days))
	for _, d := range days {
		out = append(out, DailyCount{Date: d, Count: counts[d]})
	}
	return out
}

// CategoryCount is one option of a demographic distribution.
type CategoryCount struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// Distribution counts the answers to one demographic variable.
type Distribution struct {
	Variable Variable        `json:"variable"`
	Counts   []CategoryCount `json:"counts"`
	Missing  int             `json:"missing"`
}

// Distributions counts every variable over all participants. Shares are
// relative to the number of participants.
func Distributions(ds *Dataset) []Distribution {
	n := len(ds.Participants)
	out := make([]Distribution, 0, len(Variables))
	for _, v := range Variables {
		counts := map[string]int{}
		d := Distribution{Variable: v}
		for _, p := range ds.Participants {
			label := p.Demographics.Value(v)
			if label == "" {
				d.Missing++
				continue
			}
			counts[label]++
		}
		for label, c := range counts {
			d.Counts = append(d.Counts, CategoryCount{Label: label, Count: c, Share: float64(c) / float64(n)})
		}
		sort.Slice(d.Counts, func(i, j int) bool {
			ri, rj := vocabularyRank(v, d.Counts[i].Label), vocabularyRank(v, d.Counts[j].Label)
			if ri != rj {
				return ri < rj
			}
			return d.Counts[i].Label < d.Counts[j].Label
		})
		out = append(out, d)
	}
	return out
}

// BracketSummary describes age or experience through bracket midpoints.
// Participants whose bracket cannot be read are left out.
func BracketSummary(ds *Dataset, v Variable) Summary {
	var xs []float64
	for _, p := range ds.Participants {
		if x := CategoryToNumber(p.Demographics.Value(v), v); x > 0 {
			xs = append(xs, x)
		}
	}
	return Summarize(xs)
}

// CompletenessCounts tallies participants per completeness class.
func CompletenessCounts(ds *Dataset) map[Completeness]int {
	out := map[Completeness]int{
		CompletenessComplete:         0,
		CompletenessPartial:          0,
		CompletenessDemographicsOnly: 0,
	}
	for _, p := range ds.Participants {
		out[ds.Completeness(p.ID)]++
	}
	return out
}

// OverallAttitude is the mean of all scored item values of a participant,
// negatives reverse-scored.
func OverallAttitude(ds *Dataset, participantID string) (float64, bool) {
	var sum float64
	var n int
	for _, a := range ds.Answers(participantID) {
		it, _ := ds.Item(a.ItemID)
		if v, ok := ItemScore(it.Category, a.Value); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// WelchResult is a two-sample Welch t test.
type WelchResult struct {
	GroupA      string   `json:"group_a"`
	GroupB      string   `json:"group_b"`
	NA          int      `json:"n_a"`
	NB          int      `json:"n_b"`
	MeanA       *float64 `json:"mean_a"`
	MeanB       *float64 `json:"mean_b"`
	T           *float64 `json:"t"`
	DF          *float64 `json:"df"`
	PValue      *float64 `json:"p_value"`
	Significant bool     `json:"significant"`
}

// Available reports whether the test statistic could be computed.
func (w WelchResult) Available() bool { return w.T != nil }

// WelchTest compares the means of a and b. Each side needs at least 2
// values and the pooled standard error must be positive.
func WelchTest(a, b []float64) WelchResult {
	res := WelchResult{NA: len(a), NB: len(b)}
	if len(a) > 0 {
		m := stat.Mean(a, nil)
		res.MeanA = &m
	}
	if len(b) > 0 {
		m := stat.Mean(b, nil)
		res.MeanB = &m
	}
	if len(a) < 2 || len(b) < 2 {
		return res
	}
	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))
	sa, sb := va/na, vb/nb
	se := sa + sb
	if se <= 0 {
		return res
	}
	t := (ma - mb) / math.Sqrt(se)
	df := se * se / (sa*sa/(na-1) + sb*sb/(nb-1))
	p := 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(t))
	res.T, res.DF, res.PValue = &t, &df, &p
	res.Significant = p < Alpha
	return res
}

// Gender labels compared by the gender contrast.
const (
	GenderMale   = "männlich"
	GenderFemale = "weiblich"
)

// GenderContrast runs the Welch test on overall attitude between male and
// female participants.
func GenderContrast(ds *Dataset) WelchResult {
	var male, female []float64
	for _, p := range ds.Participants {
		v, ok := OverallAttitude(ds, p.ID)
		if !ok {
			continue
		}
		switch p.Demographics.Gender {
		case GenderMale:
			male = append(male, v)
		case GenderFemale:
			female = append(female, v)
		}
	}
	res := WelchTest(male, female)
	res.GroupA, res.GroupB = GenderMale, GenderFemale
	return res
}
