package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kihaltung/attitude/internal/logger"
	"github.com/kihaltung/attitude/internal/utils"
)

// MinCorrelationN is the sample size from which correlations are reported
// as sufficient.
const MinCorrelationN = 10

// AnalyticsService loads snapshots and runs the analysis pipeline. Individual
// feedback uses every participant; research output uses consented
// participants only.
type AnalyticsService struct {
	loader *SnapshotLoader
	log    *logger.Logger
	now    func() time.Time
}

func NewAnalyticsService(source SnapshotSource, pageSize int, log *logger.Logger) *AnalyticsService {
	if log == nil {
		log = logger.Discard()
	}
	return &AnalyticsService{
		loader: NewSnapshotLoader(source, pageSize, log),
		log:    log,
		now:    time.Now,
	}
}

// Snapshot loads the full, unfiltered dataset.
func (s *AnalyticsService) Snapshot(ctx context.Context) (*Dataset, error) {
	return s.loader.Load(ctx)
}

// Research loads the consented subset used by every research output.
func (s *AnalyticsService) Research(ctx context.Context) (*Dataset, error) {
	ds, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Consented(), nil
}

// GroupSlice compares a score with the participants sharing one demographic value.
type GroupSlice struct {
	Variable   Variable              `json:"variable"`
	Group      string                `json:"group"`
	Comparison DemographicComparison `json:"comparison"`
}

// ScaleFeedback is the individual result on one scale. Overall is nil when
// the participant has no score on the scale.
type ScaleFeedback struct {
	Scale   Scale                  `json:"scale"`
	Score   *float64               `json:"score"`
	Overall *DemographicComparison `json:"overall"`
	Groups  []GroupSlice           `json:"groups"`
	Text    string                 `json:"text,omitempty"`
}

// Feedback is the individual result page of one participant.
type Feedback struct {
	ParticipantID  string          `json:"participant_id"`
	Locale         string          `json:"locale"`
	Demographics   Demographics    `json:"demographics"`
	Completeness   Completeness    `json:"completeness"`
	Profile        Profile         `json:"profile"`
	Scales         []ScaleFeedback `json:"scales"`
	Insights       *InsightData    `json:"insights"`
	AttitudeLabel  string          `json:"attitude_label,omitempty"`
	ExtremeLabels  []string        `json:"extreme_labels,omitempty"`
	ExperienceText string          `json:"experience_text,omitempty"`
	RarityText     string          `json:"rarity_text,omitempty"`
}

// Feedback computes the individual feedback of a participant against the
// full population.
func (s *AnalyticsService) Feedback(ctx context.Context, participantID, locale string) (*Feedback, error) {
	ds, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return FeedbackFor(ds, participantID, locale)
}

// FeedbackFor computes feedback from an already loaded dataset.
func FeedbackFor(ds *Dataset, participantID, locale string) (*Feedback, error) {
	p, ok := ds.Find(participantID)
	if !ok {
		return nil, ErrParticipantNotFound
	}
	profile := ds.Profile(p.ID)
	fb := &Feedback{
		ParticipantID: p.ID,
		Locale:        locale,
		Demographics:  p.Demographics,
		Completeness:  ds.Completeness(p.ID),
		Profile:       profile,
	}
	profiles := ds.Profiles()
	for _, sc := range Scales {
		sf := ScaleFeedback{Scale: sc, Groups: []GroupSlice{}}
		score, ok := profile.Score(sc)
		if ok {
			sf.Score = &score
			if c, ok := CompareToPopulation(score, scoresWhere(profiles, sc, "", "")); ok {
				sf.Overall = &c
				sf.Text = utils.Tf(locale, "band."+string(c.Band), utils.T(locale, "scale."+string(sc)), c.Percentile)
			}
			for _, v := range Variables {
				group := p.Demographics.Value(v)
				if group == "" {
					continue
				}
				if c, ok := CompareToPopulation(score, scoresWhere(profiles, sc, v, group)); ok {
					sf.Groups = append(sf.Groups, GroupSlice{Variable: v, Group: group, Comparison: c})
				}
			}
		}
		fb.Scales = append(fb.Scales, sf)
	}
	if profile.Complete() {
		in := SynthesizeInsights(*profile.Optimism, *profile.Skepticism, p.Demographics, ds.PeerProfiles())
		fb.Insights = &in
		fb.AttitudeLabel = utils.T(locale, in.LabelKey)
		fb.ExtremeLabels = []string{}
		for _, f := range in.ExtremeFlags {
			fb.ExtremeLabels = append(fb.ExtremeLabels, utils.T(locale, "extreme."+string(f)))
		}
		fb.ExperienceText = utils.T(locale, "effect."+string(in.ExperienceEffect))
		fb.RarityText = utils.Tf(locale, "rarity.text", 100-in.RarityScore)
	}
	return fb, nil
}

// scoresWhere collects defined scores on sc, optionally restricted to
// participants whose variable v equals group.
func scoresWhere(profiles []ParticipantProfile, sc Scale, v Variable, group string) []float64 {
	var out []float64
	for _, pp := range profiles {
		if v != "" && pp.Participant.Demographics.Value(v) != group {
			continue
		}
		if score, ok := pp.Profile.Score(sc); ok {
			out = append(out, score)
		}
	}
	return out
}

// GroupStat describes one demographic group on one scale.
type GroupStat struct {
	Label string  `json:"label"`
	N     int     `json:"n"`
	Mean  float64 `json:"mean"`
	SD    float64 `json:"sd"`
}

// ScaleComparison is the group comparison of one scale. Inferential is false
// when the assumptions fail or the ANOVA is undefined; the group
// descriptives are still reported.
type ScaleComparison struct {
	Scale       Scale            `json:"scale"`
	Groups      []GroupStat      `json:"groups"`
	Assumptions AssumptionResult `json:"assumptions"`
	Anova       AnovaResult      `json:"anova"`
	Inferential bool             `json:"inferential"`
}

// GroupComparisonResult compares the groups of one demographic variable.
type GroupComparisonResult struct {
	Variable Variable          `json:"variable"`
	Scales   []ScaleComparison `json:"scales"`
}

// CompareGroups runs the assumption checks and gated ANOVA per scale.
func CompareGroups(ds *Dataset, v Variable) GroupComparisonResult {
	res := GroupComparisonResult{Variable: v}
	for _, sc := range Scales {
		groups := ds.GroupScores(v, sc)
		values := make([][]float64, len(groups))
		described := make([]GroupStat, len(groups))
		for i, g := range groups {
			values[i] = g.Values
			sum := Summarize(g.Values)
			described[i] = GroupStat{Label: g.Label, N: sum.N, Mean: *sum.Mean, SD: *sum.SD}
		}
		a := CheckAssumptions(values)
		an := GatedAnova(values, a)
		res.Scales = append(res.Scales, ScaleComparison{
			Scale:       sc,
			Groups:      described,
			Assumptions: a,
			Anova:       an,
			Inferential: a.OverallValid && an.Defined(),
		})
	}
	return res
}

// CompareAllGroups fans the group comparison out over every variable.
func CompareAllGroups(ctx context.Context, ds *Dataset) ([]GroupComparisonResult, error) {
	out := make([]GroupComparisonResult, len(Variables))
	g, ctx := errgroup.WithContext(ctx)
	for i, v := range Variables {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = CompareGroups(ds, v)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CorrelationReport relates the scales with each other and with age and
// experience. Only participants with both scales and readable brackets count.
type CorrelationReport struct {
	N                    int               `json:"n"`
	Sufficient           bool              `json:"sufficient"`
	OptimismSkepticism   CorrelationResult `json:"optimism_skepticism"`
	AgeOptimism          CorrelationResult `json:"age_optimism"`
	AgeSkepticism        CorrelationResult `json:"age_skepticism"`
	ExperienceOptimism   CorrelationResult `json:"experience_optimism"`
	ExperienceSkepticism CorrelationResult `json:"experience_skepticism"`
}

// Correlations computes the correlation report.
func Correlations(ds *Dataset) CorrelationReport {
	var opt, skep, age, exp []float64
	for _, pp := range ds.PeerProfiles() {
		a := CategoryToNumber(pp.Demographics.Age, VariableAge)
		e := CategoryToNumber(pp.Demographics.Experience, VariableExperience)
		if a <= 0 || e <= 0 {
			continue
		}
		opt = append(opt, pp.Optimism)
		skep = append(skep, pp.Skepticism)
		age = append(age, a)
		exp = append(exp, e)
	}
	return CorrelationReport{
		N:                    len(opt),
		Sufficient:           len(opt) >= MinCorrelationN,
		OptimismSkepticism:   PearsonTest(opt, skep),
		AgeOptimism:          PearsonTest(age, opt),
		AgeSkepticism:        PearsonTest(age, skep),
		ExperienceOptimism:   PearsonTest(exp, opt),
		ExperienceSkepticism: PearsonTest(exp, skep),
	}
}

// ItemReliability is the item-total correlation of one item. ItemTotal is
// nil when the item has too few pairs or too little variance.
type ItemReliability struct {
	ID        int64    `json:"id"`
	Text      string   `json:"text"`
	ItemTotal *float64 `json:"item_total"`
	Pairs     int      `json:"pairs"`
}

// ScaleReliability is Cronbach's alpha over the complete cases of a scale.
type ScaleReliability struct {
	Scale        Scale             `json:"scale"`
	Alpha        *float64          `json:"alpha"`
	Participants int               `json:"participants"`
	Items        []ItemReliability `json:"items"`
}

// Reliability computes alpha and item-total correlations per scale. Rows
// without enough data are kept with nil values.
func Reliability(ctx context.Context, ds *Dataset) ([]ScaleReliability, error) {
	out := make([]ScaleReliability, len(Scales))
	g, ctx := errgroup.WithContext(ctx)
	for i, sc := range Scales {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = scaleReliability(ds, sc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func scaleReliability(ds *Dataset, sc Scale) ScaleReliability {
	items, matrix := ds.ScaleMatrix(sc)
	res := ScaleReliability{Scale: sc, Participants: len(matrix), Items: []ItemReliability{}}
	if alpha, ok := CronbachAlpha(matrix); ok {
		res.Alpha = &alpha
	}
	for _, it := range items {
		x, rest := itemTotalSeries(ds, items, it.ID)
		row := ItemReliability{ID: it.ID, Text: it.Text, Pairs: len(x)}
		if r, ok := ItemTotalCorrelation(x, rest); ok {
			row.ItemTotal = &r
		}
		res.Items = append(res.Items, row)
	}
	return res
}

// itemTotalSeries pairs each participant's score on target with the mean of
// their other answered items of the same scale.
func itemTotalSeries(ds *Dataset, items []Item, target int64) (x, rest []float64) {
	inScale := make(map[int64]Category, len(items))
	for _, it := range items {
		inScale[it.ID] = it.Category
	}
	for _, p := range ds.Participants {
		var own float64
		var hasOwn bool
		var sum float64
		var n int
		for _, a := range ds.Answers(p.ID) {
			c, ok := inScale[a.ItemID]
			if !ok {
				continue
			}
			v, _ := ItemScore(c, a.Value)
			if a.ItemID == target {
				own, hasOwn = v, true
				continue
			}
			sum += v
			n++
		}
		if hasOwn && n > 0 {
			x = append(x, own)
			rest = append(rest, sum/float64(n))
		}
	}
	return x, rest
}

// Descriptives summarises the sample.
type Descriptives struct {
	Participants   int                  `json:"participants"`
	Completeness   map[Completeness]int `json:"completeness"`
	Items          []ItemStat           `json:"items"`
	Distributions  []Distribution       `json:"distributions"`
	Age            Summary              `json:"age"`
	Experience     Summary              `json:"experience"`
	GenderContrast WelchResult          `json:"gender_contrast"`
	Timeseries     []DailyCount         `json:"timeseries"`
	Rejected       Rejected             `json:"rejected"`
}

// Describe builds the descriptive section.
func Describe(ds *Dataset) Descriptives {
	return Descriptives{
		Participants:   len(ds.Participants),
		Completeness:   CompletenessCounts(ds),
		Items:          ItemStats(ds),
		Distributions:  Distributions(ds),
		Age:            BracketSummary(ds, VariableAge),
		Experience:     BracketSummary(ds, VariableExperience),
		GenderContrast: GenderContrast(ds),
		Timeseries:     Timeseries(ds),
		Rejected:       ds.Rejected,
	}
}

// ResearchReport bundles every aggregate analysis over consented participants.
type ResearchReport struct {
	GeneratedAt  time.Time               `json:"generated_at"`
	Descriptives Descriptives            `json:"descriptives"`
	Reliability  []ScaleReliability      `json:"reliability"`
	Correlations CorrelationReport       `json:"correlations"`
	Groups       []GroupComparisonResult `json:"groups"`
}

// BuildReport runs the full research pipeline over ds. The sections are
// independent and computed concurrently.
func BuildReport(ctx context.Context, ds *Dataset, now time.Time) (*ResearchReport, error) {
	rep := &ResearchReport{GeneratedAt: now.UTC()}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d := Describe(ds)
		mu.Lock()
		rep.Descriptives = d
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		c := Correlations(ds)
		mu.Lock()
		rep.Correlations = c
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		r, err := Reliability(gctx, ds)
		if err != nil {
			return err
		}
		mu.Lock()
		rep.Reliability = r
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		groups, err := CompareAllGroups(gctx, ds)
		if err != nil {
			return err
		}
		mu.Lock()
		rep.Groups = groups
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rep, nil
}

// Report loads a snapshot and builds the research report.
func (s *AnalyticsService) Report(ctx context.Context) (*ResearchReport, error) {
	ds, err := s.Research(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("research report over %d consented participants", len(ds.Participants))
	return BuildReport(ctx, ds, s.now())
}

// GroupComparison compares the groups of one variable.
func (s *AnalyticsService) GroupComparison(ctx context.Context, variable string) (*GroupComparisonResult, error) {
	v, ok := ParseVariable(variable)
	if !ok {
		return nil, NewInvalidError("unknown variable " + variable)
	}
	ds, err := s.Research(ctx)
	if err != nil {
		return nil, err
	}
	res := CompareGroups(ds, v)
	return &res, nil
}

// Correlations computes the correlation report.
func (s *AnalyticsService) Correlations(ctx context.Context) (*CorrelationReport, error) {
	ds, err := s.Research(ctx)
	if err != nil {
		return nil, err
	}
	res := Correlations(ds)
	return &res, nil
}

// Reliability computes the reliability report.
func (s *AnalyticsService) Reliability(ctx context.Context) ([]ScaleReliability, error) {
	ds, err := s.Research(ctx)
	if err != nil {
		return nil, err
	}
	return Reliability(ctx, ds)
}

// Descriptives summarises the consented sample.
func (s *AnalyticsService) Descriptives(ctx context.Context) (*Descriptives, error) {
	ds, err := s.Research(ctx)
	if err != nil {
		return nil, err
	}
	d := Describe(ds)
	return &d, nil
}
