package services

import (
	"context"
	"time"

	"github.com/kihaltung/attitude/internal/models"
)

type ConsentStore interface {
	SetConsent(ctx context.Context, id, consent string) (bool, error)
	AddAudit(ctx context.Context, entry models.AuditEntry) error
}

// ConsentService lets a participant grant or withdraw research use of their
// answers after submission.
type ConsentService struct {
	store  ConsentStore
	tokens TokenVerifier
	now    func() time.Time
}

type ConsentChangeResult struct {
	ParticipantID string `json:"participant_id"`
	Consent       bool   `json:"consent"`
}

func NewConsentService(store ConsentStore, tokens TokenVerifier) *ConsentService {
	return &ConsentService{
		store:  store,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *ConsentService) SetConsent(ctx context.Context, pid, token string, grant bool) (*ConsentChangeResult, error) {
	if err := authorizeSelf(s.tokens, pid, token); err != nil {
		return nil, err
	}
	value, action := "nein", "consent_withdraw"
	if grant {
		value, action = "ja", "consent_grant"
	}
	ok, err := s.store.SetConsent(ctx, pid, value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrParticipantNotFound
	}
	if err := s.store.AddAudit(ctx, models.AuditEntry{Time: s.now(), Actor: "participant", Action: action, Target: pid}); err != nil {
		return nil, err
	}
	return &ConsentChangeResult{ParticipantID: pid, Consent: grant}, nil
}
