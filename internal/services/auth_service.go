package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kihaltung/attitude/internal/models"
)

// MinPasswordLength applies to researcher accounts.
const MinPasswordLength = 8

type AuthStore interface {
	FindResearcherByEmail(ctx context.Context, email string) (*models.ResearcherRow, error)
	CountResearchers(ctx context.Context) (int, error)
	AddResearcher(ctx context.Context, r models.ResearcherRow) error
}

type TokenSigner func(uid, email string, ttl time.Duration) (string, error)

// AuthService manages researcher accounts. Registration is open while no
// account exists, afterwards only when explicitly allowed.
type AuthService struct {
	store         AuthStore
	now           func() time.Time
	idGen         func(prefix string, n int) string
	signToken     TokenSigner
	tokenTTL      time.Duration
	allowRegister bool
}

type AuthResult struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

func NewAuthService(store AuthStore, signer TokenSigner, allowRegister bool) *AuthService {
	return &AuthService{
		store:         store,
		now:           func() time.Time { return time.Now().UTC() },
		idGen:         func(prefix string, n int) string { return prefix + defaultParticipantID()[:n] },
		signToken:     signer,
		tokenTTL:      24 * time.Hour,
		allowRegister: allowRegister,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("email/password required")
	}
	if len(password) < MinPasswordLength {
		return nil, NewInvalidError("password too short")
	}
	if !s.allowRegister {
		n, err := s.store.CountResearchers(ctx)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, NewForbiddenError("registration closed")
		}
	}
	existing, err := s.store.FindResearcherByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("email exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	userID := s.idGen("r", 7)
	if err := s.store.AddResearcher(ctx, models.ResearcherRow{ID: userID, Email: email, PassHash: hash, CreatedAt: s.now()}); err != nil {
		return nil, err
	}
	return s.issue(userID, email)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("email/password required")
	}
	u, err := s.store.FindResearcherByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	return s.issue(u.ID, u.Email)
}

func (s *AuthService) issue(uid, email string) (*AuthResult, error) {
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(uid, email, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, UserID: uid}, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
