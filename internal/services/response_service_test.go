package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kihaltung/attitude/internal/models"
)

type stubSubmissionStore struct {
	items     map[int64]models.ItemRow
	responses []models.ResponseRow
	answers   []models.AnswerRow
	err       error
}

func (s *stubSubmissionStore) GetItem(_ context.Context, id int64) (*models.ItemRow, error) {
	if it, ok := s.items[id]; ok {
		return &it, nil
	}
	return nil, nil
}

func (s *stubSubmissionStore) CreateResponse(_ context.Context, r models.ResponseRow, answers []models.AnswerRow) error {
	if s.err != nil {
		return s.err
	}
	s.responses = append(s.responses, r)
	s.answers = append(s.answers, answers...)
	return nil
}

type stubIssuer struct{}

func (stubIssuer) Issue(id string) (string, error) { return "tok-" + id, nil }

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }

func newSubmissionStore() *stubSubmissionStore {
	return &stubSubmissionStore{items: map[int64]models.ItemRow{
		1: {ID: 1, Text: "P", Category: "Positiv"},
		2: {ID: 2, Text: "N", Category: "Negativ"},
		3: {ID: 3, Text: "K", Category: "Kontrolle"},
	}}
}

func validRequest() SubmitRequest {
	four := 4
	return SubmitRequest{
		ClientKey: "10.0.0.1",
		Demographics: Demographics{
			Gender:      " weiblich ",
			Age:         "35-44",
			Experience:  "11-15",
			Role:        "Lehrperson",
			SchoolLevel: "Primarschule",
		},
		Consent: "ja",
		Answers: []SubmittedAnswer{
			{ItemID: 1, Raw: json.RawMessage(`"3"`)},
			{ItemID: 2, RawInt: &four},
			{ItemID: 3, Raw: json.RawMessage(`5`)},
		},
	}
}

func TestSubmitSuccess(t *testing.T) {
	store := newSubmissionStore()
	svc := NewResponseService(store, NewKeyedLimiter(10, 10), stubIssuer{})
	svc.now = func() time.Time { return time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC) }
	svc.idGenerator = func() string { return "PID123456789" }

	res, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "PID123456789", res.ParticipantID)
	assert.Equal(t, 3, res.AnswersCount)
	assert.Equal(t, "tok-PID123456789", res.SelfToken)

	require.Len(t, store.responses, 1)
	assert.Equal(t, "weiblich", store.responses[0].Gender)
	assert.Equal(t, "ja", store.responses[0].Consent)
	assert.Equal(t, []models.AnswerRow{
		{ResponseID: "PID123456789", ItemID: 1, Value: 3},
		{ResponseID: "PID123456789", ItemID: 2, Value: 4},
		{ResponseID: "PID123456789", ItemID: 3, Value: 5},
	}, store.answers)
}

func TestSubmitValidation(t *testing.T) {
	cases := map[string]func(*SubmitRequest){
		"missing role":      func(r *SubmitRequest) { r.Demographics.Role = "" },
		"unknown age":       func(r *SubmitRequest) { r.Demographics.Age = "99" },
		"bad consent":       func(r *SubmitRequest) { r.Consent = "vielleicht" },
		"no answers":        func(r *SubmitRequest) { r.Answers = nil },
		"unknown item":      func(r *SubmitRequest) { r.Answers[0].ItemID = 42 },
		"value too high":    func(r *SubmitRequest) { r.Answers[0].Raw = json.RawMessage(`6`) },
		"fractional value":  func(r *SubmitRequest) { r.Answers[0].Raw = json.RawMessage(`2.5`) },
		"free text value":   func(r *SubmitRequest) { r.Answers[0].Raw = json.RawMessage(`"viel"`) },
		"duplicate item":    func(r *SubmitRequest) { r.Answers[1].ItemID = 1 },
		"missing raw value": func(r *SubmitRequest) { r.Answers[1].RawInt = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			store := newSubmissionStore()
			req := validRequest()
			mutate(&req)
			_, err := NewResponseService(store, nil, nil).Submit(context.Background(), req)
			se, ok := AsServiceError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, ErrorInvalid, se.Code)
			assert.Empty(t, store.responses)
		})
	}
}

func TestSubmitRateLimited(t *testing.T) {
	store := newSubmissionStore()
	_, err := NewResponseService(store, denyLimiter{}, nil).Submit(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Empty(t, store.responses)
}

func TestSubmitStoreFailure(t *testing.T) {
	store := newSubmissionStore()
	store.err = errors.New("disk full")
	_, err := NewResponseService(store, nil, nil).Submit(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSanitize(t *testing.T) {
	long := make([]rune, 250)
	for i := range long {
		long[i] = 'ä'
	}
	assert.Equal(t, "x", Sanitize("  x \n"))
	assert.Len(t, []rune(Sanitize(string(long))), MaxFieldLength)
}
