package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"gonum.org/v1/gonum/stat"

	"github.com/kihaltung/attitude/internal/models"
)

type ChallengeStatus string

const (
	ChallengePending  ChallengeStatus = "pending"
	ChallengeApproved ChallengeStatus = "approved"
	ChallengeRejected ChallengeStatus = "rejected"
)

func ParseChallengeStatus(s string) (ChallengeStatus, bool) {
	switch st := ChallengeStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case ChallengePending, ChallengeApproved, ChallengeRejected:
		return st, true
	}
	return "", false
}

const (
	MaxChallengeSeconds = 60
	MaxRating           = 100
	DeckSize            = 50
)

type ChallengeStore interface {
	CreateChallenge(ctx context.Context, c models.ChallengeRow) error
	GetChallenge(ctx context.Context, id string) (*models.ChallengeRow, error)
	ListChallenges(ctx context.Context, status string) ([]models.ChallengeRow, error)
	ListRatings(ctx context.Context) ([]models.ChallengeRatingRow, error)
	UpsertRating(ctx context.Context, r models.ChallengeRatingRow) error
	// SetChallengeStatus updates the status; report also bumps the spam counter.
	SetChallengeStatus(ctx context.Context, id, status string, report bool) (bool, error)
	AddAudit(ctx context.Context, entry models.AuditEntry) error
}

// DeviceHasher pseudonymises client device ids with keyed BLAKE2b-256.
type DeviceHasher struct {
	key []byte
}

// NewDeviceHasher keys the hash with salt, cut to the 64 bytes BLAKE2b accepts.
func NewDeviceHasher(salt string) *DeviceHasher {
	key := []byte(salt)
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	return &DeviceHasher{key: key}
}

func (h *DeviceHasher) Hash(deviceID string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// only reachable with a key longer than 64 bytes
		panic(err)
	}
	mac.Write([]byte(deviceID))
	return hex.EncodeToString(mac.Sum(nil))
}

// ChallengeWithStats is a challenge with its rating aggregates. Averages are
// nil until the first rating.
type ChallengeWithStats struct {
	models.ChallengeRow
	AvgImpact     *float64 `json:"avg_impact"`
	AvgDifficulty *float64 `json:"avg_difficulty"`
	RatingCount   int      `json:"rating_count"`
}

type NewChallengeRequest struct {
	AudioPath    string
	DurationSec  float64
	DeviceID     string
	CreatorRole  string
	CreatorLevel string
}

type RatingRequest struct {
	ChallengeID string
	DeviceID    string
	Impact      int
	Difficulty  int
}

type ChallengeService struct {
	store       ChallengeStore
	hasher      *DeviceHasher
	autoApprove bool
	now         func() time.Time
	idGen       func() string
}

func NewChallengeService(store ChallengeStore, hasher *DeviceHasher, autoApprove bool) *ChallengeService {
	if hasher == nil {
		hasher = NewDeviceHasher("")
	}
	return &ChallengeService{
		store:       store,
		hasher:      hasher,
		autoApprove: autoApprove,
		now:         func() time.Time { return time.Now().UTC() },
		idGen:       uuid.NewString,
	}
}

// Register records an audio challenge whose file was already uploaded.
func (s *ChallengeService) Register(ctx context.Context, req NewChallengeRequest) (*models.ChallengeRow, error) {
	path := Sanitize(req.AudioPath)
	if path == "" {
		return nil, NewInvalidError("audio_path required")
	}
	if req.DurationSec <= 0 || req.DurationSec > MaxChallengeSeconds {
		return nil, NewInvalidError(fmt.Sprintf("duration must be in (0, %d] seconds", MaxChallengeSeconds))
	}
	device := strings.TrimSpace(req.DeviceID)
	if device == "" {
		return nil, NewInvalidError("device_id required")
	}
	role, level := Sanitize(req.CreatorRole), Sanitize(req.CreatorLevel)
	if role != "" && !inVocabulary(VariableRole, role) {
		return nil, NewInvalidError(fmt.Sprintf("unknown role %q", role))
	}
	if level != "" && !inVocabulary(VariableSchoolLevel, level) {
		return nil, NewInvalidError(fmt.Sprintf("unknown school level %q", level))
	}
	status := ChallengePending
	if s.autoApprove {
		status = ChallengeApproved
	}
	c := models.ChallengeRow{
		ID:           s.idGen(),
		AudioPath:    path,
		DurationSec:  req.DurationSec,
		Status:       string(status),
		DeviceHash:   s.hasher.Hash(device),
		CreatorRole:  role,
		CreatorLevel: level,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateChallenge(ctx, c); err != nil {
		return nil, fmt.Errorf("create challenge: %w", err)
	}
	return &c, nil
}

// Rate stores one device's rating, replacing an earlier one.
func (s *ChallengeService) Rate(ctx context.Context, req RatingRequest) error {
	if req.Impact < 0 || req.Impact > MaxRating || req.Difficulty < 0 || req.Difficulty > MaxRating {
		return NewInvalidError(fmt.Sprintf("impact and difficulty must be in 0..%d", MaxRating))
	}
	device := strings.TrimSpace(req.DeviceID)
	if device == "" {
		return NewInvalidError("device_id required")
	}
	c, err := s.store.GetChallenge(ctx, req.ChallengeID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrChallengeNotFound
	}
	return s.store.UpsertRating(ctx, models.ChallengeRatingRow{
		ChallengeID: c.ID,
		DeviceHash:  s.hasher.Hash(device),
		Impact:      req.Impact,
		Difficulty:  req.Difficulty,
		CreatedAt:   s.now(),
	})
}

// Aggregate attaches rating statistics to each challenge.
func Aggregate(challenges []models.ChallengeRow, ratings []models.ChallengeRatingRow) []ChallengeWithStats {
	impact := map[string][]float64{}
	difficulty := map[string][]float64{}
	for _, r := range ratings {
		impact[r.ChallengeID] = append(impact[r.ChallengeID], float64(r.Impact))
		difficulty[r.ChallengeID] = append(difficulty[r.ChallengeID], float64(r.Difficulty))
	}
	out := make([]ChallengeWithStats, 0, len(challenges))
	for _, c := range challenges {
		cs := ChallengeWithStats{ChallengeRow: c, RatingCount: len(impact[c.ID])}
		if cs.RatingCount > 0 {
			ai := stat.Mean(impact[c.ID], nil)
			ad := stat.Mean(difficulty[c.ID], nil)
			cs.AvgImpact, cs.AvgDifficulty = &ai, &ad
		}
		out = append(out, cs)
	}
	return out
}

// Deck returns up to DeckSize approved challenges: least rated first, then
// newest, with challenges from the requester's school level moved forward.
func (s *ChallengeService) Deck(ctx context.Context, level string) ([]ChallengeWithStats, error) {
	challenges, err := s.store.ListChallenges(ctx, string(ChallengeApproved))
	if err != nil {
		return nil, err
	}
	ratings, err := s.store.ListRatings(ctx)
	if err != nil {
		return nil, err
	}
	deck := Aggregate(challenges, ratings)
	sort.SliceStable(deck, func(i, j int) bool {
		if deck[i].RatingCount != deck[j].RatingCount {
			return deck[i].RatingCount < deck[j].RatingCount
		}
		return deck[i].CreatedAt.After(deck[j].CreatedAt)
	})
	if len(deck) > DeckSize {
		deck = deck[:DeckSize]
	}
	if level = strings.TrimSpace(level); level != "" {
		sort.SliceStable(deck, func(i, j int) bool {
			return deck[i].CreatorLevel == level && deck[j].CreatorLevel != level
		})
	}
	return deck, nil
}

// Report flags a challenge as spam and returns it to moderation.
func (s *ChallengeService) Report(ctx context.Context, id, deviceID string) error {
	ok, err := s.store.SetChallengeStatus(ctx, id, string(ChallengePending), true)
	if err != nil {
		return err
	}
	if !ok {
		return ErrChallengeNotFound
	}
	actor := "anonymous"
	if d := strings.TrimSpace(deviceID); d != "" {
		actor = s.hasher.Hash(d)
	}
	return s.store.AddAudit(ctx, models.AuditEntry{Time: s.now(), Actor: actor, Action: "challenge_report", Target: id})
}

// SetStatus is the moderation decision on a challenge.
func (s *ChallengeService) SetStatus(ctx context.Context, id, status, actor string) error {
	st, ok := ParseChallengeStatus(status)
	if !ok {
		return NewInvalidError("status must be pending, approved or rejected")
	}
	found, err := s.store.SetChallengeStatus(ctx, id, string(st), false)
	if err != nil {
		return err
	}
	if !found {
		return ErrChallengeNotFound
	}
	if actor == "" {
		actor = "moderator"
	}
	return s.store.AddAudit(ctx, models.AuditEntry{Time: s.now(), Actor: actor, Action: "challenge_status", Target: id, Note: string(st)})
}
