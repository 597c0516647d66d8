package services

import (
	"context"
	"time"

	"github.com/kihaltung/attitude/internal/models"
)

// ParticipantStore is the persistence needed for participant self-service.
type ParticipantStore interface {
	GetResponse(ctx context.Context, id string) (*models.ResponseRow, error)
	ListAnswersByResponse(ctx context.Context, id string) ([]models.AnswerRow, error)
	DeleteResponse(ctx context.Context, id string) (bool, error)
	AddAudit(ctx context.Context, entry models.AuditEntry) error
}

// TokenVerifier resolves a self-service token to the participant it was
// issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// authorizeSelf checks that token was issued for pid.
func authorizeSelf(tokens TokenVerifier, pid, token string) error {
	if pid == "" || token == "" {
		return NewInvalidError("pid/token required")
	}
	if tokens == nil {
		return NewForbiddenError("forbidden")
	}
	owner, err := tokens.Verify(token)
	if err != nil || owner != pid {
		return NewForbiddenError("forbidden")
	}
	return nil
}

type ParticipantDataService struct {
	store  ParticipantStore
	tokens TokenVerifier
	now    func() time.Time
}

func NewParticipantDataService(store ParticipantStore, tokens TokenVerifier) *ParticipantDataService {
	return &ParticipantDataService{store: store, tokens: tokens, now: func() time.Time { return time.Now().UTC() }}
}

type ParticipantExport struct {
	Participant models.ResponseRow `json:"participant"`
	Answers     []models.AnswerRow `json:"answers"`
}

func (s *ParticipantDataService) ExportParticipant(ctx context.Context, pid, token string) (*ParticipantExport, error) {
	if err := authorizeSelf(s.tokens, pid, token); err != nil {
		return nil, err
	}
	p, err := s.store.GetResponse(ctx, pid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrParticipantNotFound
	}
	answers, err := s.store.ListAnswersByResponse(ctx, pid)
	if err != nil {
		return nil, err
	}
	if answers == nil {
		answers = []models.AnswerRow{}
	}
	if err := s.store.AddAudit(ctx, models.AuditEntry{Time: s.now(), Actor: "participant", Action: "self_export", Target: pid}); err != nil {
		return nil, err
	}
	return &ParticipantExport{Participant: *p, Answers: answers}, nil
}

// DeleteParticipant removes the participant together with all answers.
func (s *ParticipantDataService) DeleteParticipant(ctx context.Context, pid, token string) error {
	if err := authorizeSelf(s.tokens, pid, token); err != nil {
		return err
	}
	ok, err := s.store.DeleteResponse(ctx, pid)
	if err != nil {
		return err
	}
	if !ok {
		return ErrParticipantNotFound
	}
	return s.store.AddAudit(ctx, models.AuditEntry{Time: s.now(), Actor: "participant", Action: "self_delete", Target: pid})
}
