package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kihaltung/attitude/internal/middleware"
	"github.com/kihaltung/attitude/internal/services"
)

// GET /api/challenges?level=
func (rt *Router) handleDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := rt.challenges.Deck(r.Context(), r.URL.Query().Get("level"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, map[string]any{"challenges": deck})
}

// POST /api/challenges
func (rt *Router) handleRegisterChallenge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AudioPath    string  `json:"audio_path"`
		DurationSec  float64 `json:"duration_sec"`
		DeviceID     string  `json:"device_id"`
		CreatorRole  string  `json:"creator_role"`
		CreatorLevel string  `json:"creator_level"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		rt.writeError(w, r, err)
		return
	}
	c, err := rt.challenges.Register(r.Context(), services.NewChallengeRequest{
		AudioPath:    body.AudioPath,
		DurationSec:  body.DurationSec,
		DeviceID:     body.DeviceID,
		CreatorRole:  body.CreatorRole,
		CreatorLevel: body.CreatorLevel,
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusCreated, c)
}

// POST /api/challenges/{id}/ratings
func (rt *Router) handleRate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeviceID   string `json:"device_id"`
		Impact     int    `json:"impact"`
		Difficulty int    `json:"difficulty"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		rt.writeError(w, r, err)
		return
	}
	err := rt.challenges.Rate(r.Context(), services.RatingRequest{
		ChallengeID: chi.URLParam(r, "id"),
		DeviceID:    body.DeviceID,
		Impact:      body.Impact,
		Difficulty:  body.Difficulty,
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, map[string]any{"ok": true})
}

// POST /api/challenges/{id}/report
func (rt *Router) handleReportChallenge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeviceID string `json:"device_id"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &body); err != nil {
			rt.writeError(w, r, err)
			return
		}
	}
	if err := rt.challenges.Report(r.Context(), chi.URLParam(r, "id"), body.DeviceID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, map[string]any{"ok": true})
}

// POST /api/challenges/{id}/status {"status": "approved"}
func (rt *Router) handleChallengeStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		rt.writeError(w, r, err)
		return
	}
	actor, _ := middleware.ResearcherFromContext(r.Context())
	if err := rt.challenges.SetStatus(r.Context(), chi.URLParam(r, "id"), body.Status, actor); err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, map[string]any{"ok": true, "status": body.Status})
}
