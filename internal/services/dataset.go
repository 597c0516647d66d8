package services

import (
	"sort"
	"strings"

	"github.com/kihaltung/attitude/internal/models"
)

// Rejected counts rows dropped while parsing a snapshot.
type Rejected struct {
	Items        int `json:"items"`
	Participants int `json:"participants"`
	Answers      int `json:"answers"`
	Duplicates   int `json:"duplicates"`
}

// Total is the number of dropped rows of any kind.
func (r Rejected) Total() int { return r.Items + r.Participants + r.Answers + r.Duplicates }

// Dataset is a validated, read-only snapshot of items, participants and
// answers. Kernels only ever see values taken from a Dataset.
type Dataset struct {
	Items        []Item
	Participants []Participant
	Rejected     Rejected

	items   map[int64]Item
	byID    map[string]int
	answers map[string][]Answer
}

// ParseSnapshot validates raw rows. Items with an unknown category,
// participants without id, answers outside 1..5 and answers referring to
// unknown items or participants are dropped and counted. For repeated
// (participant, item) answers the last row wins.
func ParseSnapshot(itemRows []models.ItemRow, responseRows []models.ResponseRow, answerRows []models.AnswerRow) *Dataset {
	ds := &Dataset{
		items:   make(map[int64]Item, len(itemRows)),
		byID:    make(map[string]int, len(responseRows)),
		answers: make(map[string][]Answer),
	}
	for _, r := range itemRows {
		c, ok := ParseCategory(r.Category)
		if !ok {
			ds.Rejected.Items++
			continue
		}
		if _, dup := ds.items[r.ID]; dup {
			ds.Rejected.Duplicates++
		}
		ds.items[r.ID] = Item{ID: r.ID, Text: strings.TrimSpace(r.Text), Category: c}
	}
	for _, it := range ds.items {
		ds.Items = append(ds.Items, it)
	}
	sort.Slice(ds.Items, func(i, j int) bool { return ds.Items[i].ID < ds.Items[j].ID })

	for _, r := range responseRows {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			ds.Rejected.Participants++
			continue
		}
		p := Participant{
			ID: id,
			Demographics: Demographics{
				Gender:      strings.TrimSpace(r.Gender),
				Age:         strings.TrimSpace(r.Age),
				Experience:  strings.TrimSpace(r.Experience),
				Role:        strings.TrimSpace(r.Role),
				SchoolLevel: strings.TrimSpace(r.SchoolLevel),
			},
			Consent:   ParseConsent(r.Consent),
			CreatedAt: r.CreatedAt,
		}
		if idx, dup := ds.byID[id]; dup {
			ds.Rejected.Duplicates++
			ds.Participants[idx] = p
			continue
		}
		ds.byID[id] = len(ds.Participants)
		ds.Participants = append(ds.Participants, p)
	}

	seen := make(map[string]map[int64]int)
	for _, r := range answerRows {
		pid := strings.TrimSpace(r.ResponseID)
		if _, ok := ds.byID[pid]; !ok {
			ds.Rejected.Answers++
			continue
		}
		if _, ok := ds.items[r.ItemID]; !ok || r.Value < 1 || r.Value > LikertPoints {
			ds.Rejected.Answers++
			continue
		}
		a := Answer{ParticipantID: pid, ItemID: r.ItemID, Value: r.Value}
		if seen[pid] == nil {
			seen[pid] = make(map[int64]int)
		}
		if idx, dup := seen[pid][r.ItemID]; dup {
			ds.Rejected.Duplicates++
			ds.answers[pid][idx] = a
			continue
		}
		seen[pid][r.ItemID] = len(ds.answers[pid])
		ds.answers[pid] = append(ds.answers[pid], a)
	}
	for pid := range ds.answers {
		as := ds.answers[pid]
		sort.Slice(as, func(i, j int) bool { return as[i].ItemID < as[j].ItemID })
	}
	return ds
}

// Item looks up an item by id.
func (d *Dataset) Item(id int64) (Item, bool) {
	it, ok := d.items[id]
	return it, ok
}

// Find looks up a participant by id.
func (d *Dataset) Find(id string) (Participant, bool) {
	idx, ok := d.byID[id]
	if !ok {
		return Participant{}, false
	}
	return d.Participants[idx], true
}

// Answers returns a participant's answers ordered by item id.
func (d *Dataset) Answers(participantID string) []Answer {
	return d.answers[participantID]
}

// ScoredItems returns the Positive and Negative items in id order.
func (d *Dataset) ScoredItems() []Item {
	var out []Item
	for _, it := range d.Items {
		if it.Category != CategoryControl {
			out = append(out, it)
		}
	}
	return out
}

// ItemsOf returns the items contributing to scale s.
func (d *Dataset) ItemsOf(s Scale) []Item {
	var out []Item
	for _, it := range d.Items {
		if sc, ok := ScaleFor(it.Category); ok && sc == s {
			out = append(out, it)
		}
	}
	return out
}

// Profile computes the scale scores of one participant.
func (d *Dataset) Profile(participantID string) Profile {
	as := d.answers[participantID]
	scored := make([]ScoredAnswer, 0, len(as))
	for _, a := range as {
		scored = append(scored, ScoredAnswer{Category: d.items[a.ItemID].Category, Value: a.Value})
	}
	return CalculateProfile(scored)
}

// Consented returns the subset of participants who granted research use.
func (d *Dataset) Consented() *Dataset {
	out := &Dataset{
		Items:    d.Items,
		Rejected: d.Rejected,
		items:    d.items,
		byID:     make(map[string]int),
		answers:  make(map[string][]Answer),
	}
	for _, p := range d.Participants {
		if !p.Consent {
			continue
		}
		out.byID[p.ID] = len(out.Participants)
		out.Participants = append(out.Participants, p)
		if as, ok := d.answers[p.ID]; ok {
			out.answers[p.ID] = as
		}
	}
	return out
}

// ParticipantProfile pairs a participant with their scale scores.
type ParticipantProfile struct {
	Participant Participant
	Profile     Profile
}

// Profiles scores every participant in snapshot order.
func (d *Dataset) Profiles() []ParticipantProfile {
	out := make([]ParticipantProfile, 0, len(d.Participants))
	for _, p := range d.Participants {
		out = append(out, ParticipantProfile{Participant: p, Profile: d.Profile(p.ID)})
	}
	return out
}

// PeerProfiles returns the participants whose two scales are both defined.
func (d *Dataset) PeerProfiles() []PeerProfile {
	var out []PeerProfile
	for _, pp := range d.Profiles() {
		if !pp.Profile.Complete() {
			continue
		}
		out = append(out, PeerProfile{
			ParticipantID: pp.Participant.ID,
			Optimism:      *pp.Profile.Optimism,
			Skepticism:    *pp.Profile.Skepticism,
			Demographics:  pp.Participant.Demographics,
		})
	}
	return out
}

// ScaleScores returns every defined score on scale s.
func (d *Dataset) ScaleScores(s Scale) []float64 {
	var out []float64
	for _, pp := range d.Profiles() {
		if v, ok := pp.Profile.Score(s); ok {
			out = append(out, v)
		}
	}
	return out
}

// ScoreGroup is the set of scores of participants sharing one demographic value.
type ScoreGroup struct {
	Label  string
	Values []float64
}

// GroupScores splits the defined scores on s by variable v. Participants
// who left v blank are left out. Groups follow vocabulary order, unknown
// labels last in alphabetical order.
func (d *Dataset) GroupScores(v Variable, s Scale) []ScoreGroup {
	idx := map[string]int{}
	var groups []ScoreGroup
	for _, pp := range d.Profiles() {
		label := pp.Participant.Demographics.Value(v)
		if label == "" {
			continue
		}
		score, ok := pp.Profile.Score(s)
		if !ok {
			continue
		}
		i, seen := idx[label]
		if !seen {
			i = len(groups)
			idx[label] = i
			groups = append(groups, ScoreGroup{Label: label})
		}
		groups[i].Values = append(groups[i].Values, score)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := vocabularyRank(v, groups[i].Label), vocabularyRank(v, groups[j].Label)
		if ri != rj {
			return ri < rj
		}
		return groups[i].Label < groups[j].Label
	})
	return groups
}

// ScaleMatrix builds the participant-by-item matrix of item scores for
// scale s, keeping only participants who answered every item of it.
func (d *Dataset) ScaleMatrix(s Scale) ([]Item, [][]float64) {
	items := d.ItemsOf(s)
	if len(items) == 0 {
		return items, nil
	}
	var matrix [][]float64
	for _, p := range d.Participants {
		byItem := make(map[int64]int, len(d.answers[p.ID]))
		for _, a := range d.answers[p.ID] {
			byItem[a.ItemID] = a.Value
		}
		row := make([]float64, 0, len(items))
		for _, it := range items {
			v, ok := byItem[it.ID]
			if !ok {
				break
			}
			score, _ := ItemScore(it.Category, v)
			row = append(row, score)
		}
		if len(row) == len(items) {
			matrix = append(matrix, row)
		}
	}
	return items, matrix
}

// Completeness describes how much of the questionnaire a participant answered.
type Completeness string

const (
	CompletenessComplete         Completeness = "complete"
	CompletenessPartial          Completeness = "partial"
	CompletenessDemographicsOnly Completeness = "demographics_only"
)

// CompleteShare is the share of scored items needed to count as complete.
const CompleteShare = 0.8

// Completeness classifies a participant by their share of answered scored items.
func (d *Dataset) Completeness(participantID string) Completeness {
	scored := 0
	for _, a := range d.answers[participantID] {
		if d.items[a.ItemID].Category != CategoryControl {
			scored++
		}
	}
	total := len(d.ScoredItems())
	switch {
	case total > 0 && float64(scored) >= CompleteShare*float64(total):
		return CompletenessComplete
	case len(d.answers[participantID]) > 0:
		return CompletenessPartial
	}
	return CompletenessDemographicsOnly
}
