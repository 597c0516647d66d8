package services

import (
	"math"
)

// AttitudeType is the categorical reading of a participant's two scales.
type AttitudeType string

const (
	AttitudeComplex   AttitudeType = "complex"
	AttitudeOptimist  AttitudeType = "optimist"
	AttitudeSkeptic   AttitudeType = "skeptic"
	AttitudeUndecided AttitudeType = "undecided"
	AttitudeBalanced  AttitudeType = "balanced"
	AttitudeHopeful   AttitudeType = "hopeful"
	AttitudeCautious  AttitudeType = "cautious"
)

// Thresholds for insight synthesis.
const (
	SimilarityRadius   = 0.5
	UniqueRarity       = 85
	ExtremeHigh        = 4.5
	ExtremeLow         = 1.5
	DefaultAttitudeKey = "attitude.default"
)

// ClassifyAttitude applies the attitude rules in priority order and
// returns the matching type with the 1-based number of the rule that fired.
// Ranges overlap, so order matters. Rule 8 is the generic fallback.
func ClassifyAttitude(optimism, skepticism float64) (AttitudeType, int) {
	o, s := optimism, skepticism
	switch {
	case o > 4 && s > 4:
		return AttitudeComplex, 1
	case o > 4 && s < 2.5:
		return AttitudeOptimist, 2
	case o < 2.5 && s > 4:
		return AttitudeSkeptic, 3
	case o < 2.5 && s < 2.5:
		return AttitudeUndecided, 4
	case math.Abs(o-s) < 0.5:
		return AttitudeBalanced, 5
	case o > s+1:
		return AttitudeHopeful, 6
	case s > o+1:
		return AttitudeCautious, 7
	}
	return AttitudeBalanced, 8
}

// AttitudeLabelKey is the message key for a classification. The fallback
// rule has its own generic label.
func AttitudeLabelKey(t AttitudeType, rule int) string {
	if rule == 8 {
		return DefaultAttitudeKey
	}
	return "attitude." + string(t)
}

// PeerProfile is one population member with both scales defined.
type PeerProfile struct {
	ParticipantID string
	Optimism      float64
	Skepticism    float64
	Demographics  Demographics
}

// ExtremeFlag marks a scale score at the edge of the range.
type ExtremeFlag string

const (
	ExtremeOptimismHigh   ExtremeFlag = "optimism_high"
	ExtremeSkepticismHigh ExtremeFlag = "skepticism_high"
	ExtremeOptimismLow    ExtremeFlag = "optimism_low"
	ExtremeSkepticismLow  ExtremeFlag = "skepticism_low"
)

// ExtremeFlags lists the flags raised by a profile, high flags first.
func ExtremeFlags(optimism, skepticism float64) []ExtremeFlag {
	flags := []ExtremeFlag{}
	if optimism >= ExtremeHigh {
		flags = append(flags, ExtremeOptimismHigh)
	}
	if skepticism >= ExtremeHigh {
		flags = append(flags, ExtremeSkepticismHigh)
	}
	if optimism <= ExtremeLow {
		flags = append(flags, ExtremeOptimismLow)
	}
	if skepticism <= ExtremeLow {
		flags = append(flags, ExtremeSkepticismLow)
	}
	return flags
}

// Rarity counts population members within SimilarityRadius on both
// scales and turns the share into a 0..100 rarity score.
func Rarity(optimism, skepticism float64, population []PeerProfile) (score, similar int) {
	if len(population) == 0 {
		return 0, 0
	}
	for _, p := range population {
		if math.Abs(p.Optimism-optimism) < SimilarityRadius && math.Abs(p.Skepticism-skepticism) < SimilarityRadius {
			similar++
		}
	}
	score = int(math.Round(100 * (1 - float64(similar)/float64(len(population)))))
	return score, similar
}

// ConsistencyScore is high when the two scales are close together. It
// measures scale convergence, not response-pattern stability.
func ConsistencyScore(optimism, skepticism float64) int {
	return int(math.Round(100 * (5 - math.Abs(optimism-skepticism)) / 5))
}

// PolarityIndex is the scale gap scaled to 0..80.
func PolarityIndex(optimism, skepticism float64) int {
	return int(math.Round(math.Abs(optimism-skepticism) * 20))
}

// ExperienceEffect describes how attitude lines up with teaching experience.
type ExperienceEffect string

const (
	EffectNeutral            ExperienceEffect = "neutral"
	EffectYoungOptimist      ExperienceEffect = "young-optimist"
	EffectExperiencedSkeptic ExperienceEffect = "experienced-skeptic"
	EffectWiseOptimist       ExperienceEffect = "wise-optimist"
)

var experienceLevels = map[string]int{
	"0-5": 1, "6-10": 2, "11-15": 3, "16-20": 4, "21-30": 5, "31+": 6,
}

// ExperienceLevel maps an experience bracket to 1..6; unknown brackets are 3.
func ExperienceLevel(bracket string) int {
	if l, ok := experienceLevels[bracket]; ok {
		return l
	}
	return 3
}

// ClassifyExperienceEffect applies the experience rules in order.
func ClassifyExperienceEffect(experience string, optimism, skepticism float64) ExperienceEffect {
	level := ExperienceLevel(experience)
	switch {
	case level <= 2 && optimism > 3.5:
		return EffectYoungOptimist
	case level >= 5 && skepticism > 3.5:
		return EffectExperiencedSkeptic
	case level >= 4 && optimism > 3.8:
		return EffectWiseOptimist
	}
	return EffectNeutral
}

// ScaleRank is a rank within a peer group on one scale.
type ScaleRank struct {
	Rank int `json:"rank"`
	Of   int `json:"of"`
}

// PeerRank ranks a participant within the members sharing one demographic value.
type PeerRank struct {
	Variable   Variable  `json:"variable"`
	Group      string    `json:"group"`
	Optimism   ScaleRank `json:"optimism"`
	Skepticism ScaleRank `json:"skepticism"`
}

// PeerRankVariables are the demographics used for peer ranks.
var PeerRankVariables = []Variable{VariableAge, VariableRole, VariableExperience}

// PeerRanks ranks the participant per scale within each peer group. A
// variable the participant left blank is skipped.
func PeerRanks(optimism, skepticism float64, d Demographics, population []PeerProfile) []PeerRank {
	ranks := []PeerRank{}
	for _, v := range PeerRankVariables {
		group := d.Value(v)
		if group == "" {
			continue
		}
		var opt, skep []float64
		for _, p := range population {
			if p.Demographics.Value(v) == group {
				opt = append(opt, p.Optimism)
				skep = append(skep, p.Skepticism)
			}
		}
		ranks = append(ranks, PeerRank{
			Variable:   v,
			Group:      group,
			Optimism:   ScaleRank{Rank: RankAmong(optimism, opt), Of: len(opt)},
			Skepticism: ScaleRank{Rank: RankAmong(skepticism, skep), Of: len(skep)},
		})
	}
	return ranks
}

// InsightData is the individual feedback derived from a complete profile.
type InsightData struct {
	AttitudeType        AttitudeType     `json:"attitude_type"`
	Rule                int              `json:"rule"`
	LabelKey            string           `json:"label_key"`
	RarityScore         int              `json:"rarity_score"`
	SimilarCount        int              `json:"similar_count"`
	TotalCount          int              `json:"total_count"`
	UniqueCombination   bool             `json:"unique_combination"`
	ConsistencyScore    int              `json:"consistency_score"`
	ExtremeFlags        []ExtremeFlag    `json:"extreme_flags"`
	PeerRanks           []PeerRank       `json:"peer_ranks"`
	PolarityIndex       int              `json:"polarity_index"`
	StrongestPercentile int              `json:"strongest_percentile"`
	ExperienceEffect    ExperienceEffect `json:"experience_effect"`
}

// SynthesizeInsights derives the insight block for one participant against
// a population of complete profiles, which normally includes the participant.
func SynthesizeInsights(optimism, skepticism float64, d Demographics, population []PeerProfile) InsightData {
	typ, rule := ClassifyAttitude(optimism, skepticism)
	rarity, similar := Rarity(optimism, skepticism, population)

	opt := make([]float64, len(population))
	skep := make([]float64, len(population))
	for i, p := range population {
		opt[i] = p.Optimism
		skep[i] = p.Skepticism
	}
	strongest := 0
	if c, ok := CompareToPopulation(optimism, opt); ok {
		strongest = c.Percentile
	}
	if c, ok := CompareToPopulation(skepticism, skep); ok && c.Percentile > strongest {
		strongest = c.Percentile
	}

	return InsightData{
		AttitudeType:        typ,
		Rule:                rule,
		LabelKey:            AttitudeLabelKey(typ, rule),
		RarityScore:         rarity,
		SimilarCount:        similar,
		TotalCount:          len(population),
		UniqueCombination:   rarity >= UniqueRarity,
		ConsistencyScore:    ConsistencyScore(optimism, skepticism),
		ExtremeFlags:        ExtremeFlags(optimism, skepticism),
		PeerRanks:           PeerRanks(optimism, skepticism, d, population),
		PolarityIndex:       PolarityIndex(optimism, skepticism),
		StrongestPercentile: strongest,
		ExperienceEffect:    ClassifyExperienceEffect(d.Experience, optimism, skepticism),
	}
}
