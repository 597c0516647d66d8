package api

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kihaltung/attitude/internal/middleware"
	"github.com/kihaltung/attitude/internal/services"
)

type submitAnswer struct {
	ItemID int64           `json:"item_id"`
	Value  json.RawMessage `json:"value"`
}

type submitBody struct {
	Demographics services.Demographics `json:"demographics"`
	Consent      string                `json:"consent"`
	Answers      []submitAnswer        `json:"answers"`
}

// clientKey identifies the submitter for rate limiting: the peer address, or
// the forwarded one when the router trusts its proxy.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// POST /api/responses
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := decodeJSON(w, r, &body); err != nil {
		rt.writeError(w, r, err)
		return
	}
	req := services.SubmitRequest{
		ClientKey:    clientKey(r),
		Demographics: body.Demographics,
		Consent:      body.Consent,
		Answers:      make([]services.SubmittedAnswer, 0, len(body.Answers)),
	}
	for _, a := range body.Answers {
		req.Answers = append(req.Answers, services.SubmittedAnswer{ItemID: a.ItemID, Raw: a.Value})
	}
	res, err := rt.responses.Submit(r.Context(), req)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusCreated, res)
}

// GET /api/feedback/{id}?token=
func (rt *Router) handleFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	owner, err := rt.tokens.Verify(middleware.BearerToken(r))
	if err != nil || owner != id {
		rt.writeError(w, r, services.NewForbiddenError("invalid feedback token"))
		return
	}
	fb, err := rt.analytics.Feedback(r.Context(), id, middleware.LocaleFromContext(r.Context()))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, fb)
}

// GET /api/participants/{id}/export
func (rt *Router) handleParticipantExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, err := rt.participant.ExportParticipant(r.Context(), id, middleware.BearerToken(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\"participant_"+id+".json\"")
	rt.writeJSON(w, r, http.StatusOK, out)
}

// DELETE /api/participants/{id}
func (rt *Router) handleParticipantDelete(w http.ResponseWriter, r *http.Request) {
	if err := rt.participant.DeleteParticipant(r.Context(), chi.URLParam(r, "id"), middleware.BearerToken(r)); err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, map[string]any{"ok": true})
}

// POST /api/participants/{id}/consent {"consent": true|false}
func (rt *Router) handleConsent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Consent *bool `json:"consent"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		rt.writeError(w, r, err)
		return
	}
	if body.Consent == nil {
		rt.writeError(w, r, services.NewInvalidError("consent required"))
		return
	}
	res, err := rt.consent.SetConsent(r.Context(), chi.URLParam(r, "id"), middleware.BearerToken(r), *body.Consent)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, res)
}

// GET /api/items
func (rt *Router) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := rt.items.List(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, map[string]any{"items": items})
}

// POST /api/items
func (rt *Router) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text     string `json:"text"`
		Category string `json:"category"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		rt.writeError(w, r, err)
		return
	}
	it, err := rt.items.Create(r.Context(), services.CreateItemRequest{Text: body.Text, Category: body.Category})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusCreated, it)
}

// POST /api/seed loads the built-in catalogue.
func (rt *Router) handleSeed(w http.ResponseWriter, r *http.Request) {
	res, err := rt.items.Seed(r.Context(), services.DefaultCatalog())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, res)
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		rt.writeError(w, r, err)
		return
	}
	res, err := rt.auth.Register(r.Context(), body.Email, body.Password)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusCreated, res)
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		rt.writeError(w, r, err)
		return
	}
	res, err := rt.auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, res)
}
