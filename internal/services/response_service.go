package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kihaltung/attitude/internal/models"
)

// MaxFieldLength bounds every free-text intake field.
const MaxFieldLength = 200

// SubmissionStore abstracts persistence operations required by ResponseService.
type SubmissionStore interface {
	// GetItem returns nil without error when the item does not exist.
	GetItem(ctx context.Context, id int64) (*models.ItemRow, error)
	// CreateResponse stores the participant and all answers or nothing.
	CreateResponse(ctx context.Context, r models.ResponseRow, answers []models.AnswerRow) error
}

// Limiter decides whether a client may submit now.
type Limiter interface {
	Allow(key string) bool
}

// TokenIssuer signs the self-service token handed back after submission.
type TokenIssuer interface {
	Issue(participantID string) (string, error)
}

// SubmittedAnswer mirrors the inbound payload for each answer. Raw accepts a
// JSON number or a numeric string.
type SubmittedAnswer struct {
	ItemID int64
	Raw    json.RawMessage
	RawInt *int
}

// SubmitRequest transports the sanitized handler input into the service layer.
type SubmitRequest struct {
	ClientKey    string
	Demographics Demographics
	Consent      string
	Answers      []SubmittedAnswer
}

// SubmitResult collects the data needed to emit the HTTP response.
type SubmitResult struct {
	ParticipantID string `json:"participant_id"`
	AnswersCount  int    `json:"answers_count"`
	SelfToken     string `json:"self_token,omitempty"`
}

// ResponseService hosts the submission workflow.
type ResponseService struct {
	store       SubmissionStore
	limiter     Limiter
	tokens      TokenIssuer
	now         func() time.Time
	idGenerator func() string
}

// NewResponseService constructs a service bound to the provided persistence
// interface. limiter and tokens may be nil.
func NewResponseService(store SubmissionStore, limiter Limiter, tokens TokenIssuer) *ResponseService {
	return &ResponseService{
		store:       store,
		limiter:     limiter,
		tokens:      tokens,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: defaultParticipantID,
	}
}

func defaultParticipantID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Sanitize trims s and cuts it to MaxFieldLength runes.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxFieldLength {
		return s
	}
	return string([]rune(s)[:MaxFieldLength])
}

// answerValue extracts an integer from a JSON number, a numeric string, or
// the typed field.
func answerValue(ans SubmittedAnswer) (int, bool) {
	if ans.RawInt != nil {
		return *ans.RawInt, true
	}
	if len(ans.Raw) == 0 {
		return 0, false
	}
	var num float64
	if err := json.Unmarshal(ans.Raw, &num); err == nil {
		if num != float64(int(num)) {
			return 0, false
		}
		return int(num), true
	}
	var sval string
	if err := json.Unmarshal(ans.Raw, &sval); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(sval)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func validateDemographics(d Demographics, consent string) (Demographics, string, error) {
	d = Demographics{
		Gender:      Sanitize(d.Gender),
		Age:         Sanitize(d.Age),
		Experience:  Sanitize(d.Experience),
		Role:        Sanitize(d.Role),
		SchoolLevel: Sanitize(d.SchoolLevel),
	}
	for _, v := range Variables {
		val := d.Value(v)
		if val == "" {
			return d, "", NewInvalidError(fmt.Sprintf("%s is required", v))
		}
		if !inVocabulary(v, val) {
			return d, "", NewInvalidError(fmt.Sprintf("%s: unknown option %q", v, val))
		}
	}
	consent = Sanitize(consent)
	for _, opt := range ConsentOptions {
		if consent == opt {
			return d, consent, nil
		}
	}
	return d, "", NewInvalidError("consent must be one of ja, nein")
}

// Submit validates and stores one questionnaire session.
func (s *ResponseService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if s.store == nil {
		return nil, errors.New("response service store is nil")
	}
	key := strings.TrimSpace(req.ClientKey)
	if key == "" {
		key = "anonymous"
	}
	if s.limiter != nil && !s.limiter.Allow(key) {
		return nil, ErrRateLimited
	}

	demo, consent, err := validateDemographics(req.Demographics, req.Consent)
	if err != nil {
		return nil, err
	}
	if len(req.Answers) == 0 {
		return nil, NewInvalidError("at least one answer is required")
	}

	participantID := s.idGenerator()
	seen := make(map[int64]bool, len(req.Answers))
	answers := make([]models.AnswerRow, 0, len(req.Answers))
	for _, ans := range req.Answers {
		if seen[ans.ItemID] {
			return nil, NewInvalidError(fmt.Sprintf("item %d answered twice", ans.ItemID))
		}
		seen[ans.ItemID] = true
		item, err := s.store.GetItem(ctx, ans.ItemID)
		if err != nil {
			return nil, fmt.Errorf("get item %d: %w", ans.ItemID, err)
		}
		if item == nil {
			return nil, NewInvalidError(fmt.Sprintf("unknown item %d", ans.ItemID))
		}
		value, ok := answerValue(ans)
		if !ok || value < 1 || value > LikertPoints {
			return nil, NewInvalidError(fmt.Sprintf("item %d: value must be an integer 1..%d", ans.ItemID, LikertPoints))
		}
		answers = append(answers, models.AnswerRow{ResponseID: participantID, ItemID: ans.ItemID, Value: value})
	}

	row := models.ResponseRow{
		ID:          participantID,
		Gender:      demo.Gender,
		Age:         demo.Age,
		Experience:  demo.Experience,
		Role:        demo.Role,
		SchoolLevel: demo.SchoolLevel,
		Consent:     consent,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateResponse(ctx, row, answers); err != nil {
		return nil, fmt.Errorf("create response: %w", err)
	}

	res := &SubmitResult{ParticipantID: participantID, AnswersCount: len(answers)}
	if s.tokens != nil {
		tok, err := s.tokens.Issue(participantID)
		if err != nil {
			return nil, fmt.Errorf("issue token: %w", err)
		}
		res.SelfToken = tok
	}
	return res, nil
}
