package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type authCtxKey int

const authKey authCtxKey = 7

// Token kinds.
const (
	KindParticipant = "participant"
	KindResearcher  = "researcher"
)

type Claims struct {
	Kind  string `json:"kind"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenSigner issues and checks HS256 tokens for participants (self-service
// links) and researchers (bearer login).
type TokenSigner struct {
	secret         []byte
	participantTTL time.Duration
	now            func() time.Time
}

func NewTokenSigner(secret string, participantTTL time.Duration) *TokenSigner {
	if secret == "" {
		secret = "attitude-dev-secret"
	}
	return &TokenSigner{secret: []byte(secret), participantTTL: participantTTL, now: time.Now}
}

func (s *TokenSigner) sign(kind, subject, email string, ttl time.Duration) (string, error) {
	now := s.now()
	rc := jwt.RegisteredClaims{Subject: subject, IssuedAt: jwt.NewNumericDate(now)}
	if ttl > 0 {
		rc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Kind: kind, Email: email, RegisteredClaims: rc})
	return token.SignedString(s.secret)
}

func (s *TokenSigner) parse(tok string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// Issue signs a self-service token for a participant.
func (s *TokenSigner) Issue(participantID string) (string, error) {
	return s.sign(KindParticipant, participantID, "", s.participantTTL)
}

// Verify returns the participant a self-service token was issued for.
func (s *TokenSigner) Verify(token string) (string, error) {
	c, err := s.parse(token)
	if err != nil {
		return "", err
	}
	if c.Kind != KindParticipant || c.Subject == "" {
		return "", errors.New("not a participant token")
	}
	return c.Subject, nil
}

// SignResearcher signs a researcher login token.
func (s *TokenSigner) SignResearcher(uid, email string, ttl time.Duration) (string, error) {
	return s.sign(KindResearcher, uid, email, ttl)
}

// BearerToken reads the Authorization header, falling back to the token query
// parameter used by feedback links.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// WithAuth attaches researcher claims to the context when the request carries
// a valid researcher token.
func (s *TokenSigner) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if strings.HasPrefix(h, "Bearer ") {
			tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			if c, err := s.parse(tok); err == nil && c.Kind == KindResearcher {
				ctx := context.WithValue(r.Context(), authKey, c)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func RequireResearcher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Value(authKey).(*Claims); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ResearcherFromContext returns the researcher id set by WithAuth.
func ResearcherFromContext(ctx context.Context) (string, bool) {
	if c, ok := ctx.Value(authKey).(*Claims); ok && c.Subject != "" {
		return c.Subject, true
	}
	return "", false
}
