package services

import (
	"strings"
	"time"
)

// LikertPoints is the number of answer options on every survey item.
const LikertPoints = 5

// Category is the keying of a questionnaire item.
type Category string

const (
	CategoryPositive Category = "Positive"
	CategoryNegative Category = "Negative"
	CategoryControl  Category = "Control"
)

// ParseCategory accepts the English and the stored German labels.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "positiv":
		return CategoryPositive, true
	case "negative", "negativ":
		return CategoryNegative, true
	case "control", "kontrolle":
		return CategoryControl, true
	}
	return "", false
}

// Scale is one of the two attitude scales derived from item categories.
type Scale string

const (
	ScaleOptimism   Scale = "optimism"
	ScaleSkepticism Scale = "skepticism"
)

// Scales lists the scales in reporting order.
var Scales = []Scale{ScaleOptimism, ScaleSkepticism}

// ScaleFor maps an item category to the scale it contributes to.
func ScaleFor(c Category) (Scale, bool) {
	switch c {
	case CategoryPositive:
		return ScaleOptimism, true
	case CategoryNegative:
		return ScaleSkepticism, true
	}
	return "", false
}

// Item is a validated questionnaire statement.
type Item struct {
	ID       int64    `json:"id"`
	Text     string   `json:"text"`
	Category Category `json:"category"`
}

// Answer is a validated rating (1..5) of one item.
type Answer struct {
	ParticipantID string `json:"participant_id"`
	ItemID        int64  `json:"item_id"`
	Value         int    `json:"value"`
}

// Demographics holds the bracketed self-descriptions of a participant.
type Demographics struct {
	Gender      string `json:"gender,omitempty"`
	Age         string `json:"age,omitempty"`
	Experience  string `json:"experience,omitempty"`
	Role        string `json:"role,omitempty"`
	SchoolLevel string `json:"school_level,omitempty"`
}

// Participant is one survey session. Consent gates research use only.
type Participant struct {
	ID           string       `json:"id"`
	Demographics Demographics `json:"demographics"`
	Consent      bool         `json:"consent"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Variable names a demographic attribute used for grouping.
type Variable string

const (
	VariableGender      Variable = "gender"
	VariableAge         Variable = "age"
	VariableExperience  Variable = "experience"
	VariableRole        Variable = "role"
	VariableSchoolLevel Variable = "school_level"
)

// Variables lists the grouping variables in reporting order.
var Variables = []Variable{VariableGender, VariableAge, VariableExperience, VariableRole, VariableSchoolLevel}

// ParseVariable validates a grouping variable name.
func ParseVariable(s string) (Variable, bool) {
	v := Variable(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Variables {
		if v == known {
			return v, true
		}
	}
	return "", false
}

// Value returns the participant's answer for the variable.
func (d Demographics) Value(v Variable) string {
	switch v {
	case VariableGender:
		return d.Gender
	case VariableAge:
		return d.Age
	case VariableExperience:
		return d.Experience
	case VariableRole:
		return d.Role
	case VariableSchoolLevel:
		return d.SchoolLevel
	}
	return ""
}

// Vocabularies are the accepted intake options per variable, in display order.
var Vocabularies = map[Variable][]string{
	VariableRole:        {"Lehrperson", "Dozent:in", "Schulleiter:in", "Wissenschaftler:in", "sonstiges"},
	VariableSchoolLevel: {"Basisstufe", "Primarschule", "Sekundarstufe 1", "Sekundarstufe 2", "Hochschule", "Universität"},
	VariableExperience:  {"0-5", "6-10", "11-15", "16-20", "21-30", "31+"},
	VariableGender:      {"weiblich", "männlich", "divers", "keine Angabe"},
	VariableAge:         {"unter 25", "25-34", "35-44", "45-54", "55-64", "65+"},
}

// ConsentOptions are the accepted intake answers to the research-consent question.
var ConsentOptions = []string{"ja", "nein"}

// ParseConsent reports whether a stored consent answer grants research use.
func ParseConsent(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ja", "yes", "true", "1":
		return true
	}
	return false
}

func inVocabulary(v Variable, value string) bool {
	for _, opt := range Vocabularies[v] {
		if opt == value {
			return true
		}
	}
	return false
}

// vocabularyRank orders values by their position in the vocabulary;
// unknown values sort after all known ones.
func vocabularyRank(v Variable, value string) int {
	for i, opt := range Vocabularies[v] {
		if opt == value {
			return i
		}
	}
	return len(Vocabularies[v])
}
