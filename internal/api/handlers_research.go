package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kihaltung/attitude/internal/services"
)

// GET /api/research/report?format=json|md|html
func (rt *Router) handleReport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	switch format {
	case "", "json", "md", "markdown", "html":
	default:
		rt.writeError(w, r, services.NewInvalidError("unsupported format"))
		return
	}
	rep, err := rt.analytics.Report(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	switch format {
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write(services.RenderReportMarkdown(rep))
	case "html":
		b, err := services.RenderReportHTML(rep)
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(b)
	default:
		rt.writeJSON(w, r, http.StatusOK, rep)
	}
}

// GET /api/research/groups/{variable}
func (rt *Router) handleGroups(w http.ResponseWriter, r *http.Request) {
	res, err := rt.analytics.GroupComparison(r.Context(), chi.URLParam(r, "variable"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, res)
}

func (rt *Router) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	res, err := rt.analytics.Correlations(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, res)
}

func (rt *Router) handleReliability(w http.ResponseWriter, r *http.Request) {
	res, err := rt.analytics.Reliability(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, map[string]any{"scales": res})
}

func (rt *Router) handleDescriptives(w http.ResponseWriter, r *http.Request) {
	res, err := rt.analytics.Descriptives(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, res)
}

// GET /api/research/audit?limit=
func (rt *Router) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			rt.writeError(w, r, services.NewInvalidError("limit must be a positive integer"))
			return
		}
		limit = n
	}
	entries, err := rt.store.ListAudit(r.Context(), limit)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, map[string]any{"entries": entries})
}

// GET /api/export?format=long|wide|score|items|xlsx
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	res, err := rt.exports.Export(r.Context(), services.ExportParams{Format: r.URL.Query().Get("format")})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+res.Filename)
	_, _ = w.Write(res.Data)
}
