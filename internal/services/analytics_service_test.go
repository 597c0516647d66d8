package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kihaltung/attitude/internal/models"
)

// studyRows builds n participants answering two positive and two negative
// items. Participants with an even index consent.
func studyRows(n int) *pagedStub {
	items := []models.ItemRow{
		{ID: 1, Text: "P1", Category: "Positiv"},
		{ID: 2, Text: "P2", Category: "Positiv"},
		{ID: 3, Text: "N1", Category: "Negativ"},
		{ID: 4, Text: "N2", Category: "Negativ"},
		{ID: 5, Text: "K1", Category: "Kontrolle"},
	}
	genders := []string{"weiblich", "männlich"}
	ages := []string{"unter 25", "25-34", "35-44", "45-54", "55-64", "65+"}
	exps := []string{"0-5", "6-10", "11-15", "16-20", "21-30", "31+"}
	roles := []string{"Lehrperson", "Dozent:in", "Schulleiter:in"}
	created := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	var responses []models.ResponseRow
	var answers []models.AnswerRow
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("p%02d", i)
		consent := "nein"
		if i%2 == 0 {
			consent = "ja"
		}
		responses = append(responses, models.ResponseRow{
			ID:         id,
			Gender:     genders[i%2],
			Age:        ages[i%len(ages)],
			Experience: exps[(i/2)%len(exps)],
			Role:       roles[i%len(roles)],
			Consent:    consent,
			CreatedAt:  created.Add(time.Duration(i) * 6 * time.Hour),
		})
		pos := 1 + i%5
		neg := 1 + (i/2)%5
		answers = append(answers,
			models.AnswerRow{ResponseID: id, ItemID: 1, Value: pos},
			models.AnswerRow{ResponseID: id, ItemID: 2, Value: 1 + (pos+i%2)%5},
			models.AnswerRow{ResponseID: id, ItemID: 3, Value: neg},
			models.AnswerRow{ResponseID: id, ItemID: 4, Value: 1 + (neg+i%3)%5},
			models.AnswerRow{ResponseID: id, ItemID: 5, Value: 3},
		)
	}
	return &pagedStub{items: items, responses: responses, answers: answers}
}

func TestFeedbackUsesFullPopulation(t *testing.T) {
	svc := NewAnalyticsService(studyRows(30), 7, nil)
	fb, err := svc.Feedback(context.Background(), "p01", "de")
	require.NoError(t, err)

	assert.Equal(t, "p01", fb.ParticipantID)
	assert.Equal(t, CompletenessComplete, fb.Completeness)
	require.Len(t, fb.Scales, 2)
	require.NotNil(t, fb.Scales[0].Overall)
	// p01 has not consented but still gets feedback against all 30
	assert.Equal(t, 30, fb.Scales[0].Overall.TotalResponses)
	assert.NotEmpty(t, fb.Scales[0].Text)
	// school level was left blank
	assert.Len(t, fb.Scales[0].Groups, 4)
	require.NotNil(t, fb.Insights)
	assert.Equal(t, 30, fb.Insights.TotalCount)
	assert.NotEmpty(t, fb.AttitudeLabel)
	assert.NotEmpty(t, fb.RarityText)
}

func TestFeedbackUnknownParticipant(t *testing.T) {
	svc := NewAnalyticsService(studyRows(3), 0, nil)
	_, err := svc.Feedback(context.Background(), "nope", "de")
	assert.ErrorIs(t, err, ErrParticipantNotFound)
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorNotFound, se.Code)
}

func TestFeedbackMissingScale(t *testing.T) {
	ds := ParseSnapshot(sampleRows())
	fb, err := FeedbackFor(ds, "b", "en")
	require.NoError(t, err)
	require.NotNil(t, fb.Scales[0].Overall)
	assert.Nil(t, fb.Scales[1].Score)
	assert.Nil(t, fb.Scales[1].Overall)
	assert.Nil(t, fb.Insights)
}

func TestResearchReportIsConsentFiltered(t *testing.T) {
	svc := NewAnalyticsService(studyRows(40), 0, nil)
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	rep, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixed, rep.GeneratedAt)
	assert.Equal(t, 20, rep.Descriptives.Participants)
	assert.Len(t, rep.Descriptives.Items, 4)
	require.Len(t, rep.Groups, len(Variables))
	for i, g := range rep.Groups {
		assert.Equal(t, Variables[i], g.Variable)
		assert.Len(t, g.Scales, 2)
	}
	require.Len(t, rep.Reliability, 2)
	assert.Equal(t, 20, rep.Reliability[0].Participants)
	assert.NotNil(t, rep.Reliability[0].Alpha)
	assert.Len(t, rep.Reliability[0].Items, 2)
	assert.Equal(t, 20, rep.Correlations.N)
	assert.True(t, rep.Correlations.Sufficient)
}

func TestGroupComparisonGender(t *testing.T) {
	svc := NewAnalyticsService(studyRows(40), 0, nil)
	res, err := svc.GroupComparison(context.Background(), "gender")
	require.NoError(t, err)
	// only even participants consent, and those are all "weiblich"
	require.Len(t, res.Scales, 2)
	assert.Len(t, res.Scales[0].Groups, 1)
	assert.False(t, res.Scales[0].Assumptions.SampleSize.Passed)
	assert.False(t, res.Scales[0].Inferential)
	assert.False(t, res.Scales[0].Anova.Defined())

	_, err = svc.GroupComparison(context.Background(), "shoe_size")
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorInvalid, se.Code)
}

func TestCompareGroupsDescriptiveOnly(t *testing.T) {
	src := studyRows(40)
	ds := ParseSnapshot(src.items, src.responses, src.answers)
	res := CompareGroups(ds, VariableGender)
	require.Len(t, res.Scales, 2)
	sc := res.Scales[0]
	require.Len(t, sc.Groups, 2)
	assert.Equal(t, "weiblich", sc.Groups[0].Label)
	assert.Equal(t, 20, sc.Groups[0].N)
	assert.True(t, sc.Assumptions.SampleSize.Passed)
	if !sc.Assumptions.OverallValid {
		assert.False(t, sc.Inferential)
		if sc.Anova.Defined() {
			assert.False(t, *sc.Anova.Significant)
		}
	}
}

func TestCorrelationsInsufficient(t *testing.T) {
	ds := ParseSnapshot(sampleRows())
	rep := Correlations(ds)
	assert.Equal(t, 1, rep.N)
	assert.False(t, rep.Sufficient)
	assert.Equal(t, 0, rep.AgeOptimism.N)
	assert.Equal(t, 1.0, rep.AgeOptimism.PValue)
}

func TestReliabilityRowsDegradeToNil(t *testing.T) {
	ds := ParseSnapshot(sampleRows())
	rel, err := Reliability(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, rel, 2)
	for _, r := range rel {
		assert.Nil(t, r.Alpha)
		for _, it := range r.Items {
			assert.Nil(t, it.ItemTotal)
		}
	}
}

func TestCompareAllGroupsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CompareAllGroups(ctx, ParseSnapshot(sampleRows()))
	assert.ErrorIs(t, err, context.Canceled)
}
