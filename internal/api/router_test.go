package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kihaltung/attitude/internal/middleware"
	"github.com/kihaltung/attitude/internal/services"
)

type testServer struct {
	h http.Handler
}

func newTestServer(t *testing.T, mutate func(*Options)) *testServer {
	t.Helper()
	opts := Options{
		Store:  NewMemoryStore(),
		Tokens: middleware.NewTokenSigner("test-secret", time.Hour),
		Hasher: services.NewDeviceHasher("salt"),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return &testServer{h: NewRouter(opts).Handler(nil)}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// researcher registers the first account and seeds the default catalogue.
func (ts *testServer) researcher(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "lead@example.org", "password": "correct horse"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tok := decode[services.AuthResult](t, rec).Token
	require.NotEmpty(t, tok)
	rec = ts.do(t, http.MethodPost, "/api/seed", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return tok
}

func submission(consent string, positive, negative int) map[string]any {
	answers := []map[string]any{}
	for id := 1; id <= 12; id++ {
		v := any(positive)
		switch {
		case id > 5 && id <= 10:
			v = fmt.Sprint(negative)
		case id > 10:
			v = 3
		}
		answers = append(answers, map[string]any{"item_id": id, "value": v})
	}
	return map[string]any{
		"demographics": map[string]string{
			"gender":       "weiblich",
			"age":          "25-34",
			"experience":   "0-5",
			"role":         "Lehrperson",
			"school_level": "Primarschule",
		},
		"consent": consent,
		"answers": answers,
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/health?lang=en", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "en", body["locale"])
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
}

func TestResearchRoutesRequireResearcher(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, path := range []string{"/api/research/report", "/api/research/correlations", "/api/export?format=score", "/api/research/audit"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := ts.do(t, http.MethodPost, "/api/seed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegistrationClosesAfterFirstAccount(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.researcher(t)
	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "second@example.org", "password": "another secret"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "LEAD@example.org", "password": "correct horse"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "lead@example.org", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitFeedbackAndSelfService(t *testing.T) {
	ts := newTestServer(t, nil)
	rtok := ts.researcher(t)

	rec := ts.do(t, http.MethodGet, "/api/items", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[struct {
		Items []services.Item `json:"items"`
	}](t, rec)
	assert.Len(t, items.Items, 12)

	var pids, toks []string
	for i := 0; i < 4; i++ {
		rec = ts.do(t, http.MethodPost, "/api/responses", "", submission("ja", 2+i%3, 4-i%3))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		res := decode[services.SubmitResult](t, rec)
		assert.Equal(t, 12, res.AnswersCount)
		pids = append(pids, res.ParticipantID)
		toks = append(toks, res.SelfToken)
	}

	rec = ts.do(t, http.MethodGet, "/api/feedback/"+pids[0]+"?lang=en", toks[0], nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fb := decode[map[string]any](t, rec)
	assert.Equal(t, pids[0], fb["participant_id"])
	assert.Equal(t, "en", fb["locale"])

	rec = ts.do(t, http.MethodGet, "/api/feedback/"+pids[0], toks[1], nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/feedback/"+pids[0]+"?token="+toks[0], "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/participants/"+pids[1]+"/export", toks[1], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	exp := decode[services.ParticipantExport](t, rec)
	assert.Len(t, exp.Answers, 12)

	rec = ts.do(t, http.MethodPost, "/api/participants/"+pids[2]+"/consent", toks[2], map[string]bool{"consent": false})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/participants/"+pids[2]+"/consent", toks[2], map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/participants/"+pids[3], toks[3], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/feedback/"+pids[3], toks[3], nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/export?format=score", rtok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 3, "header plus the two consented participants still present")

	rec = ts.do(t, http.MethodGet, "/api/research/audit", rtok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "self_delete")
	assert.Contains(t, rec.Body.String(), "consent_withdraw")
}

func TestSubmitValidationAndRateLimit(t *testing.T) {
	ts := newTestServer(t, func(o *Options) { o.Limiter = services.NewKeyedLimiter(2, 2) })
	ts.researcher(t)

	bad := submission("ja", 4, 2)
	bad["demographics"].(map[string]string)["role"] = "Astronaut"
	rec := ts.do(t, http.MethodPost, "/api/responses", "", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/responses", "", submission("ja", 4, 2))
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/responses", "", submission("ja", 4, 2))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/responses", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForwardingHeadersIgnoredWithoutTrustedProxy(t *testing.T) {
	submit := func(ts *testServer, forwarded string) int {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(submission("ja", 4, 2)))
		req := httptest.NewRequest(http.MethodPost, "/api/responses", &buf)
		req.RemoteAddr = "198.51.100.7:40000"
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)
		rec := httptest.NewRecorder()
		ts.h.ServeHTTP(rec, req)
		return rec.Code
	}

	ts := newTestServer(t, func(o *Options) { o.Limiter = services.NewKeyedLimiter(1, 1) })
	ts.researcher(t)
	assert.Equal(t, http.StatusCreated, submit(ts, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, submit(ts, "203.0.113.2"), "rotated header must not open a new bucket")

	proxied := newTestServer(t, func(o *Options) {
		o.Limiter = services.NewKeyedLimiter(1, 1)
		o.TrustProxy = true
	})
	proxied.researcher(t)
	assert.Equal(t, http.StatusCreated, submit(proxied, "203.0.113.1"))
	assert.Equal(t, http.StatusCreated, submit(proxied, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, submit(proxied, "203.0.113.1"))
}

func TestSingleParticipantDescriptives(t *testing.T) {
	ts := newTestServer(t, nil)
	rtok := ts.researcher(t)
	rec := ts.do(t, http.MethodPost, "/api/responses", "", submission("ja", 4, 2))
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, path := range []string{"/api/research/descriptives", "/api/research/report"} {
		rec = ts.do(t, http.MethodGet, path, rtok, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		body := decode[map[string]any](t, rec)
		assert.NotEmpty(t, body, path)
	}
}

func TestWriteJSONUnencodableValue(t *testing.T) {
	rt := NewRouter(Options{})
	req := httptest.NewRequest(http.MethodGet, "/api/research/descriptives", nil)
	rec := httptest.NewRecorder()
	rt.writeJSON(rec, req, http.StatusOK, map[string]float64{"q1": math.NaN()})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode[map[string]string](t, rec)["error"])
}

func TestResearchOutputs(t *testing.T) {
	ts := newTestServer(t, nil)
	rtok := ts.researcher(t)
	for i := 0; i < 6; i++ {
		rec := ts.do(t, http.MethodPost, "/api/responses", "", submission("ja", 1+i%5, 5-i%5))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := ts.do(t, http.MethodGet, "/api/research/report?format=md", rtok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# Research report")

	rec = ts.do(t, http.MethodGet, "/api/research/report?format=html", rtok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<table>")

	rec = ts.do(t, http.MethodGet, "/api/research/report?format=pdf", rtok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/research/groups/gender", rtok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/research/groups/shoe_size", rtok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, path := range []string{"/api/research/correlations", "/api/research/reliability", "/api/research/descriptives", "/api/research/report"} {
		rec = ts.do(t, http.MethodGet, path, rtok, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), path)
	}

	rec = ts.do(t, http.MethodGet, "/api/export?format=xlsx", rtok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestCreateItem(t *testing.T) {
	ts := newTestServer(t, nil)
	rtok := ts.researcher(t)
	rec := ts.do(t, http.MethodPost, "/api/items", rtok, map[string]string{"text": "KI entlastet mich.", "category": "positive"})
	require.Equal(t, http.StatusCreated, rec.Code)
	it := decode[services.Item](t, rec)
	assert.Equal(t, int64(13), it.ID)

	rec = ts.do(t, http.MethodPost, "/api/items", rtok, map[string]string{"text": "x", "category": "neutral"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChallengeFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	rtok := ts.researcher(t)

	rec := ts.do(t, http.MethodPost, "/api/challenges", "", map[string]any{
		"audio_path": "audio/c1.webm", "duration_sec": 42, "device_id": "dev-a", "creator_level": "Primarschule",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	id := created["id"].(string)
	assert.Equal(t, "pending", created["status"])
	assert.NotContains(t, rec.Body.String(), "dev-a")

	type deck struct {
		Challenges []services.ChallengeWithStats `json:"challenges"`
	}
	rec = ts.do(t, http.MethodGet, "/api/challenges", "", nil)
	assert.Empty(t, decode[deck](t, rec).Challenges)

	rec = ts.do(t, http.MethodPost, "/api/challenges/"+id+"/status", "", map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/challenges/"+id+"/status", rtok, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, r := range []struct {
		device string
		impact int
	}{{"dev-b", 80}, {"dev-c", 40}, {"dev-b", 60}} {
		rec = ts.do(t, http.MethodPost, "/api/challenges/"+id+"/ratings", "", map[string]any{"device_id": r.device, "impact": r.impact, "difficulty": 50})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/challenges/"+id+"/ratings", "", map[string]any{"device_id": "dev-d", "impact": 101})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/challenges?level=Primarschule", "", nil)
	d := decode[deck](t, rec)
	require.Len(t, d.Challenges, 1)
	assert.Equal(t, 2, d.Challenges[0].RatingCount)
	require.NotNil(t, d.Challenges[0].AvgImpact)
	assert.InDelta(t, 50, *d.Challenges[0].AvgImpact, 1e-9)

	rec = ts.do(t, http.MethodPost, "/api/challenges/"+id+"/report", "", map[string]string{"device_id": "dev-c"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/challenges", "", nil)
	assert.Empty(t, decode[deck](t, rec).Challenges)

	rec = ts.do(t, http.MethodPost, "/api/challenges/missing/report", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
