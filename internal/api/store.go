package api

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kihaltung/attitude/internal/models"
)

// MemoryStore keeps everything in process memory. It backs the "memory"
// driver and the HTTP tests.
type MemoryStore struct {
	mu          sync.RWMutex
	nextItemID  int64
	items       map[int64]*models.ItemRow
	responses   map[string]*models.ResponseRow
	answers     map[string][]models.AnswerRow
	challenges  map[string]*models.ChallengeRow
	ratings     map[string]models.ChallengeRatingRow
	researchers map[string]*models.ResearcherRow
	audit       []models.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:       map[int64]*models.ItemRow{},
		responses:   map[string]*models.ResponseRow{},
		answers:     map[string][]models.AnswerRow{},
		challenges:  map[string]*models.ChallengeRow{},
		ratings:     map[string]models.ChallengeRatingRow{},
		researchers: map[string]*models.ResearcherRow{},
		audit:       []models.AuditEntry{},
	}
}

func (s *MemoryStore) ListItems(_ context.Context) ([]models.ItemRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ItemRow, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetItem(_ context.Context, id int64) (*models.ItemRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (s *MemoryStore) CreateItem(_ context.Context, it models.ItemRow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextItemID++
	it.ID = s.nextItemID
	s.items[it.ID] = &it
	return it.ID, nil
}

// sortedResponses returns responses in insertion-time order; callers hold the lock.
func (s *MemoryStore) sortedResponses() []*models.ResponseRow {
	out := make([]*models.ResponseRow, 0, len(s.responses))
	for _, r := range s.responses {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func page[T any](rows []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []T{}
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}

func (s *MemoryStore) ListResponsesPage(_ context.Context, offset, limit int) ([]models.ResponseRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sorted := s.sortedResponses()
	out := make([]models.ResponseRow, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, *r)
	}
	return page(out, offset, limit), nil
}

func (s *MemoryStore) ListAnswersPage(_ context.Context, offset, limit int) ([]models.AnswerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AnswerRow
	for _, r := range s.sortedResponses() {
		out = append(out, s.answers[r.ID]...)
	}
	return page(out, offset, limit), nil
}

func (s *MemoryStore) CreateResponse(_ context.Context, r models.ResponseRow, answers []models.AnswerRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.responses[r.ID]; ok {
		return fmt.Errorf("response %s already exists", r.ID)
	}
	for _, a := range answers {
		if _, ok := s.items[a.ItemID]; !ok {
			return fmt.Errorf("unknown item %d", a.ItemID)
		}
	}
	s.responses[r.ID] = &r
	cp := make([]models.AnswerRow, len(answers))
	copy(cp, answers)
	sort.Slice(cp, func(i, j int) bool { return cp[i].ItemID < cp[j].ItemID })
	s.answers[r.ID] = cp
	return nil
}

func (s *MemoryStore) GetResponse(_ context.Context, id string) (*models.ResponseRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.responses[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListAnswersByResponse(_ context.Context, id string) ([]models.AnswerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AnswerRow, len(s.answers[id]))
	copy(out, s.answers[id])
	return out, nil
}

func (s *MemoryStore) DeleteResponse(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.responses[id]; !ok {
		return false, nil
	}
	delete(s.responses, id)
	delete(s.answers, id)
	return true, nil
}

func (s *MemoryStore) SetConsent(_ context.Context, id, consent string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.responses[id]
	if !ok {
		return false, nil
	}
	r.Consent = consent
	return true, nil
}

func (s *MemoryStore) CreateChallenge(_ context.Context, c models.ChallengeRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.challenges[c.ID]; ok {
		return fmt.Errorf("challenge %s already exists", c.ID)
	}
	s.challenges[c.ID] = &c
	return nil
}

func (s *MemoryStore) GetChallenge(_ context.Context, id string) (*models.ChallengeRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// ListChallenges filters by status; an empty status lists all.
func (s *MemoryStore) ListChallenges(_ context.Context, status string) ([]models.ChallengeRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChallengeRow, 0, len(s.challenges))
	for _, c := range s.challenges {
		if status == "" || c.Status == status {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListRatings(_ context.Context) ([]models.ChallengeRatingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChallengeRatingRow, 0, len(s.ratings))
	for _, r := range s.ratings {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChallengeID != out[j].ChallengeID {
			return out[i].ChallengeID < out[j].ChallengeID
		}
		return out[i].DeviceHash < out[j].DeviceHash
	})
	return out, nil
}

func (s *MemoryStore) UpsertRating(_ context.Context, r models.ChallengeRatingRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.challenges[r.ChallengeID]; !ok {
		return fmt.Errorf("unknown challenge %s", r.ChallengeID)
	}
	s.ratings[r.ChallengeID+"/"+r.DeviceHash] = r
	return nil
}

func (s *MemoryStore) SetChallengeStatus(_ context.Context, id, status string, report bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return false, nil
	}
	c.Status = status
	if report {
		c.Reports++
	}
	return true, nil
}

func (s *MemoryStore) FindResearcherByEmail(_ context.Context, email string) (*models.ResearcherRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.researchers[email]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) CountResearchers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.researchers), nil
}

func (s *MemoryStore) AddResearcher(_ context.Context, r models.ResearcherRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.researchers[r.Email]; ok {
		return fmt.Errorf("researcher %s already exists", r.Email)
	}
	s.researchers[r.Email] = &r
	return nil
}

func (s *MemoryStore) AddAudit(_ context.Context, e models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

// ListAudit returns the newest entries first.
func (s *MemoryStore) ListAudit(_ context.Context, limit int) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuditEntry, 0, len(s.audit))
	for i := len(s.audit) - 1; i >= 0; i-- {
		out = append(out, s.audit[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
