package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kihaltung/attitude/internal/logger"
	"github.com/kihaltung/attitude/internal/middleware"
	"github.com/kihaltung/attitude/internal/services"
	"github.com/kihaltung/attitude/internal/utils"
)

var _ Store = (*MemoryStore)(nil)

// Options wires the router to its collaborators. Zero values fall back to
// development defaults.
type Options struct {
	Store          Store
	Tokens         *middleware.TokenSigner
	Limiter        services.Limiter
	Hasher         *services.DeviceHasher
	PageSize       int
	AllowRegister  bool
	AutoApprove    bool
	AllowedOrigins []string
	TrustProxy     bool
	Log            *logger.Logger
	Commit         string
	BuildTime      string
}

type Router struct {
	store       Store
	tokens      *middleware.TokenSigner
	log         *logger.Logger
	commit      string
	buildTime   string
	origins     []string
	trustProxy  bool
	responses   *services.ResponseService
	analytics   *services.AnalyticsService
	participant *services.ParticipantDataService
	consent     *services.ConsentService
	challenges  *services.ChallengeService
	items       *services.ItemService
	auth        *services.AuthService
	exports     *services.ExportService
}

func NewRouter(opts Options) *Router {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Tokens == nil {
		opts.Tokens = middleware.NewTokenSigner("", 720*time.Hour)
	}
	if opts.Limiter == nil {
		opts.Limiter = services.NewKeyedLimiter(services.DefaultSubmissionsPerHour, services.DefaultSubmissionBurst)
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	analytics := services.NewAnalyticsService(opts.Store, opts.PageSize, opts.Log)
	return &Router{
		store:       opts.Store,
		tokens:      opts.Tokens,
		log:         opts.Log,
		commit:      opts.Commit,
		buildTime:   opts.BuildTime,
		origins:     opts.AllowedOrigins,
		trustProxy:  opts.TrustProxy,
		responses:   services.NewResponseService(opts.Store, opts.Limiter, opts.Tokens),
		analytics:   analytics,
		participant: services.NewParticipantDataService(opts.Store, opts.Tokens),
		consent:     services.NewConsentService(opts.Store, opts.Tokens),
		challenges:  services.NewChallengeService(opts.Store, opts.Hasher, opts.AutoApprove),
		items:       services.NewItemService(opts.Store, opts.Log),
		auth:        services.NewAuthService(opts.Store, opts.Tokens.SignResearcher, opts.AllowRegister),
		exports:     services.NewExportService(analytics),
	}
}

// Handler builds the complete HTTP handler. static, when non-nil, serves
// everything outside /api.
func (rt *Router) Handler(static http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if rt.trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(rt.requestLog)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(rt.origins))
	r.Use(middleware.Headers)
	r.Use(middleware.LocaleMiddleware)
	r.Use(rt.tokens.WithAuth)

	r.Get("/health", rt.handleHealth)
	r.Get("/version", rt.handleVersion)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", rt.handleRegister)
		r.Post("/auth/login", rt.handleLogin)

		r.Get("/items", rt.handleListItems)
		r.Post("/responses", rt.handleSubmit)
		r.Get("/feedback/{id}", rt.handleFeedback)

		r.Get("/participants/{id}/export", rt.handleParticipantExport)
		r.Delete("/participants/{id}", rt.handleParticipantDelete)
		r.Post("/participants/{id}/consent", rt.handleConsent)

		r.Get("/challenges", rt.handleDeck)
		r.Post("/challenges", rt.handleRegisterChallenge)
		r.Post("/challenges/{id}/ratings", rt.handleRate)
		r.Post("/challenges/{id}/report", rt.handleReportChallenge)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireResearcher)
			r.Post("/items", rt.handleCreateItem)
			r.Post("/seed", rt.handleSeed)
			r.Post("/challenges/{id}/status", rt.handleChallengeStatus)
			r.Get("/export", rt.handleExport)
			r.Get("/research/report", rt.handleReport)
			r.Get("/research/groups/{variable}", rt.handleGroups)
			r.Get("/research/correlations", rt.handleCorrelations)
			r.Get("/research/reliability", rt.handleReliability)
			r.Get("/research/descriptives", rt.handleDescriptives)
			r.Get("/research/audit", rt.handleAudit)
		})
	})

	if static != nil {
		r.Handle("/*", static)
	}
	return r
}

func (rt *Router) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		rt.log.Debug("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond), chimw.GetReqID(r.Context()))
	})
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	rt.writeJSON(w, r, http.StatusOK, map[string]any{
		"ok":         true,
		"name":       "attitude",
		"locale":     locale,
		"msg":        utils.T(locale, "health.ok"),
		"commit":     rt.commit,
		"build_time": rt.buildTime,
	})
}

func (rt *Router) handleVersion(w http.ResponseWriter, r *http.Request) {
	rt.writeJSON(w, r, http.StatusOK, map[string]any{"commit": rt.commit, "build_time": rt.buildTime})
}

// writeJSON encodes v before sending the status, so an unencodable value
// becomes a logged 500 rather than a truncated success.
func (rt *Router) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	var buf bytes.Buffer
	if v != nil {
		if err := json.NewEncoder(&buf).Encode(v); err != nil {
			rt.log.Error("%s %s: encode response: %v", r.Method, r.URL.Path, err)
			buf.Reset()
			buf.WriteString(`{"error":"internal error"}` + "\n")
			status = http.StatusInternalServerError
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// statusFor maps a service error code to an HTTP status.
func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorTooManyRequests:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if se, ok := services.AsServiceError(err); ok {
		rt.writeJSON(w, r, statusFor(se.Code), map[string]string{"error": se.Message, "code": string(se.Code)})
		return
	}
	rt.log.Error("%s %s: %v", r.Method, r.URL.Path, err)
	rt.writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return services.NewInvalidError("request body too large")
		}
		return services.NewInvalidError("invalid JSON body")
	}
	return nil
}
