package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantTokenRoundTrip(t *testing.T) {
	s := NewTokenSigner("secret", time.Hour)
	tok, err := s.Issue("p1")
	require.NoError(t, err)
	pid, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "p1", pid)

	other := NewTokenSigner("other", time.Hour)
	_, err = other.Verify(tok)
	assert.Error(t, err)

	rt, err := s.SignResearcher("r1", "r@example.com", time.Hour)
	require.NoError(t, err)
	_, err = s.Verify(rt)
	assert.Error(t, err, "researcher token must not unlock participant data")
}

func TestParticipantTokenExpiry(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewTokenSigner("secret", time.Hour)
	s.now = func() time.Time { return clock }
	tok, err := s.Issue("p1")
	require.NoError(t, err)
	clock = clock.Add(2 * time.Hour)
	_, err = s.Verify(tok)
	assert.Error(t, err)
}

func TestRequireResearcher(t *testing.T) {
	s := NewTokenSigner("secret", time.Hour)
	h := s.WithAuth(RequireResearcher(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := ResearcherFromContext(r.Context())
		_, _ = w.Write([]byte(id))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ptok, _ := s.Issue("p1")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+ptok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rtok, _ := s.SignResearcher("r1", "r@example.com", time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+rtok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "r1", rec.Body.String())
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/feedback/p1?token=abc", nil)
	assert.Equal(t, "abc", BearerToken(req))
	req.Header.Set("Authorization", "Bearer xyz")
	assert.Equal(t, "xyz", BearerToken(req))
}

func TestLocaleMiddleware(t *testing.T) {
	var got string
	h := LocaleMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))
	cases := []struct {
		query, accept, want string
	}{
		{"", "", "de"},
		{"en", "de", "en"},
		{"", "en-GB,en;q=0.9", "en"},
		{"", "fr", "de"},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/?lang="+c.query, nil)
		if c.accept != "" {
			req.Header.Set("Accept-Language", c.accept)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, c.want, got, "query=%q accept=%q", c.query, c.accept)
		assert.Equal(t, c.want, rec.Header().Get("Content-Language"))
	}
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := CORS([]string{"https://umfrage.example"})(ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://umfrage.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://umfrage.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	CORS(nil)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHeaders(t *testing.T) {
	h := Headers(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	cases := map[string]bool{
		"/api/feedback/p1": true,
		"/health":          true,
		"/index.html":      false,
		"/assets/app.js":   false,
	}
	for path, noStore := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"), path)
		assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"), path)
		assert.Contains(t, rec.Header().Get("Permissions-Policy"), "microphone=(self)", path)
		if noStore {
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"), path)
		} else {
			assert.Empty(t, rec.Header().Get("Cache-Control"), path)
		}
	}
}
