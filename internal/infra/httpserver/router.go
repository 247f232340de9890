package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appassess "github.com/bryanwahyu/automaton-risk/internal/application/assessments"
	appstats "github.com/bryanwahyu/automaton-risk/internal/application/stats"
	"github.com/bryanwahyu/automaton-risk/internal/domain/ai"
	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
	"github.com/bryanwahyu/automaton-risk/internal/logging"
	"github.com/bryanwahyu/automaton-risk/internal/middleware"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 2 << 20

// Options carries the optional edges of the HTTP surface.
type Options struct {
	APIKeys        map[string]string
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	Metrics        middleware.HTTPObserver
	MetricsHandler http.Handler
	HealthCheckers map[string]middleware.HealthChecker
	Log            *logging.Logger
}

type Router struct {
	assessSvc *appassess.Service
	statsSvc  *appstats.Service
	log       *logging.Logger
}

func NewRouter(assessSvc *appassess.Service, statsSvc *appstats.Service, opts Options) http.Handler {
	r := &Router{assessSvc: assessSvc, statsSvc: statsSvc, log: logging.OrNop(opts.Log).Named("router")}
	mux := chi.NewRouter()

	mux.Use(middleware.Logging(opts.Log), middleware.Metrics(opts.Metrics))
	if len(opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	}

	mux.Route("/v1", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(opts.APIKeys))
		if opts.RateLimiter != nil {
			rt.Use(middleware.RateLimit(opts.RateLimiter))
		}

		rt.Post("/questionnaire/process", r.wrap(r.handleProcess))
		rt.Get("/questionnaire/status/{sessionId}", r.wrap(r.handleStatus))

		rt.Route("/risks", func(rr chi.Router) {
			rr.Get("/", r.wrap(r.handleListRisks))
			rr.Post("/bulk", r.wrap(r.handleStoreRisks))
			rr.Get("/assessment/{id}", r.wrap(r.handleRisksByAssessment))
			rr.Get("/session/{sessionId}", r.wrap(r.handleRisksBySession))
			rr.Get("/project/{projectId}", r.wrap(r.handleRisksByProject))
			rr.Put("/{id}", r.wrap(r.handleUpdateRisk))
			rr.Delete("/{id}", r.wrap(r.handleDeleteRisk))
		})

		rt.Route("/controls", func(rc chi.Router) {
			rc.Post("/", r.wrap(r.handleStoreControls))
			rc.Get("/all", r.wrap(r.handleAllControls))
			rc.Get("/assessment/{id}", r.wrap(r.handleControlsByAssessment))
			rc.Get("/session/{sessionId}", r.wrap(r.handleControlsBySession))
			rc.Get("/project/{projectId}", r.wrap(r.handleControlsByProject))
			rc.Put("/{id}", r.wrap(r.handleUpdateControl))
			rc.Delete("/{id}", r.wrap(r.handleDeleteControl))
		})

		rt.Route("/results", func(rs chi.Router) {
			rs.Post("/", r.wrap(r.handleCreateResult))
			rs.Get("/", r.wrap(r.handleListResults))
			rs.Get("/stats/summary", r.wrap(r.handleStats))
			rs.Get("/session/{sessionId}", r.wrap(r.handleResultBySession))
			rs.Get("/{id}", r.wrap(r.handleGetResult))
			rs.Put("/{id}", r.wrap(r.handleUpdateResult))
			rs.Delete("/{id}", r.wrap(r.handleDeleteResult))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorBody struct {
	Error string `json:"error"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case assessment.IsValidation(err):
			writeJSON(w, http.StatusBadRequest, errorBody{err.Error()})
		case errors.Is(err, assessment.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			writeJSON(w, http.StatusNotFound, errorBody{"not found"})
		case errors.Is(err, assessment.ErrDuplicateIdentifier), errors.Is(err, assessment.ErrDuplicateSession):
			writeJSON(w, http.StatusConflict, errorBody{err.Error()})
		case errors.Is(err, ai.ErrQuotaExceeded):
			writeJSON(w, http.StatusTooManyRequests, errorBody{"ai quota exceeded"})
		default:
			r.log.Error("request failed", "route", req.URL.Path, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{"internal server error"})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, req *http.Request, dst any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", assessment.ErrValidation, err)
	}
	return nil
}

func urlID(req *http.Request, param, kind string) (string, error) {
	id := chi.URLParam(req, param)
	if err := middleware.ValidateID(kind, id); err != nil {
		return "", err
	}
	return id, nil
}

// optionalID validates an identifier from a body or query when present.
func optionalID(kind, id string) error {
	if id == "" {
		return nil
	}
	return middleware.ValidateID(kind, id)
}

func principal(req *http.Request) string {
	return middleware.GetPrincipalFromContext(req.Context())
}

// POST /v1/questionnaire/process
func (r *Router) handleProcess(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		QuestionnaireResponses appassess.Answers `json:"questionnaireResponses"`
		ProjectID              string            `json:"projectId"`
		UseCaseType            string            `json:"useCaseType"`
	}
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	useCase := assessment.UseCaseType(strings.ToLower(strings.TrimSpace(body.UseCaseType)))
	switch useCase {
	case "", assessment.UseCaseHuman, assessment.UseCaseBot:
	default:
		return fmt.Errorf("%w: useCaseType must be human or bot", assessment.ErrValidation)
	}

	res, err := r.assessSvc.Process(req.Context(), appassess.ProcessCommand{
		Responses:   body.QuestionnaireResponses,
		ProjectID:   middleware.SanitizeString(body.ProjectID),
		UseCaseType: useCase,
	}, principal(req))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, res)
	return nil
}

// GET /v1/questionnaire/status/{sessionId}
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	sessionID, err := urlID(req, "sessionId", "session id")
	if err != nil {
		return err
	}
	res, err := r.assessSvc.Status(req.Context(), sessionID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/risks?page=&limit=&projectId=&sessionId=&severity=&search=
func (r *Router) handleListRisks(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	f := assessment.RiskFilter{ProjectID: q.Get("projectId"), SessionID: q.Get("sessionId")}
	if err := optionalID("project id", f.ProjectID); err != nil {
		return err
	}
	if err := optionalID("session id", f.SessionID); err != nil {
		return err
	}
	page := middleware.ParsePage(q.Get("page"), q.Get("limit"))
	page.Search = middleware.SanitizeString(q.Get("search"))
	var err error
	if page.Severity, err = middleware.ParseSeverity(q.Get("severity")); err != nil {
		return err
	}
	res, err := r.assessSvc.ListRisks(req.Context(), f, page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// POST /v1/risks/bulk
func (r *Router) handleStoreRisks(w http.ResponseWriter, req *http.Request) error {
	var cmd appassess.StoreRisksCommand
	if err := decodeBody(w, req, &cmd); err != nil {
		return err
	}
	if err := optionalID("session id", cmd.SessionID); err != nil {
		return err
	}
	res, err := r.assessSvc.StoreRisks(req.Context(), cmd, principal(req))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, res)
	return nil
}

// GET /v1/risks/assessment/{id}
func (r *Router) handleRisksByAssessment(w http.ResponseWriter, req *http.Request) error {
	id, err := urlID(req, "id", "risk assessment id")
	if err != nil {
		return err
	}
	risks, err := r.assessSvc.RisksByAssessment(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, risks)
	return nil
}

// GET /v1/risks/session/{sessionId}
func (r *Router) handleRisksBySession(w http.ResponseWriter, req *http.Request) error {
	id, err := urlID(req, "sessionId", "session id")
	if err != nil {
		return err
	}
	risks, err := r.assessSvc.RisksBySession(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, risks)
	return nil
}

// GET /v1/risks/project/{projectId}?page=&limit=&severity=
func (r *Router) handleRisksByProject(w http.ResponseWriter, req *http.Request) error {
	projectID, err := urlID(req, "projectId", "project id")
	if err != nil {
		return err
	}
	q := req.URL.Query()
	page := middleware.ParsePage(q.Get("page"), q.Get("limit"))
	if page.Severity, err = middleware.ParseSeverity(q.Get("severity")); err != nil {
		return err
	}
	res, err := r.assessSvc.RisksByProject(req.Context(), projectID, page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// PUT /v1/risks/{id}
func (r *Router) handleUpdateRisk(w http.ResponseWriter, req *http.Request) error {
	id, err := urlID(req, "id", "risk id")
	if err != nil {
		return err
	}
	var u assessment.RiskUpdate
	if err := decodeBody(w, req, &u); err != nil {
		return err
	}
	risk, err := r.assessSvc.UpdateRisk(req.Context(), id, u)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, risk)
	return nil
}

// DELETE /v1/risks/{id}
func (r *Router) handleDeleteRisk(w http.ResponseWriter, req *http.Request) error {
	id, err := urlID(req, "id", "risk id")
	if err != nil {
		return err
	}
	if err := r.assessSvc.DeleteRisk(req.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/controls
func (r *Router) handleStoreControls(w http.ResponseWriter, req *http.Request) error {
	var cmd appassess.StoreControlsCommand
	if err := decodeBody(w, req, &cmd); err != nil {
		return err
	}
	if err := optionalID("session id", cmd.SessionID); err != nil {
		return err
	}
	res, err := r.assessSvc.StoreControls(req.Context(), cmd, principal(req))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, res)
	return nil
}

// GET /v1/controls/all
func (r *Router) handleAllControls(w http.ResponseWriter, req *http.Request) error {
	controls, err := r.assessSvc.AllControls(req.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"controls": controls})
	return nil
}

// GET /v1/controls/assessment/{id}
func (r *Router) handleControlsByAssessment(w http.ResponseWriter, req *http.Request) error {
	id, err := urlID(req, "id", "risk assessment id")
	if err != nil {
		return err
	}
	controls, err := r.assessSvc.ControlsByAssessment(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, controls)
	return nil
}

// GET /v1/controls/session/{sessionId}
func (r *Router) handleControlsBySession(w http.ResponseWriter, req *http.Request) error {
	id, err := urlID(req, "sessionId", "session id")
	if err != nil {
		return err
	}
	controls, err := r.assessSvc.ControlsBySession(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, controls)
	return nil
}

// GET /v1/controls/project/{projectId}?page=&limit=&status=
func (r *Router) handleControlsByProject(w http.ResponseWriter, req *http.Request) error {
	projectID, err := urlID(req, "projectId", "project id")
	if err != nil {
		return err
	}
	q := req.URL.Query()
	page := middleware.ParsePage(q.Get("page"), q.Get("limit"))
	page.Status = middleware.SanitizeString(q.Get("status"))
	res, err := r.assessSvc.ControlsByProject(req.Context(), projectID, page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// PUT /v1/controls/{id}
func (r *Router) handleUpdateControl(w http.ResponseWriter, req *http.Request) error {
	id, err := urlID(req, "id", "control id")
	if err != nil {
		return err
	}
	var u assessment.ControlUpdate
	if err := decodeBody(w, req, &u); err != nil {
		return err
	}
	c, err := r.assessSvc.UpdateControl(req.Context(), id, u)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, c)
	return nil
}

// DELETE /v1/controls/{id}
func (r *Router) handleDeleteControl(w http.ResponseWriter, req *http.Request) error {
	id, err := urlID(req, "id", "control id")
	if err != nil {
		return err
	}
	if err := r.assessSvc.DeleteControl(req.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/results
func (r *Router) handleCreateResult(w http.ResponseWriter, req *http.Request) error {
	var cmd appassess.CreateResultCommand
	if err := decodeBody(w, req, &cmd); err != nil {
		return err
	}
	if err := optionalID("session id", cmd.SessionID); err != nil {
		return err
	}
	res, err := r.assessSvc.CreateResult(req.Context(), cmd, principal(req))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, res)
	return nil
}

// GET /v1/results?page=&limit=&projectId=&search=
func (r *Router) handleListResults(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	page := middleware.ParsePage(q.Get("page"), q.Get("limit"))
	page.Search = middleware.SanitizeString(q.Get("search"))
	res, err := r.assessSvc.ListResults(req.Context(), middleware.SanitizeString(q.Get("projectId")), page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/results/stats/summary?projectId=
func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) error {
	st, err := r.statsSvc.Summarize(req.Context(), middleware.SanitizeString(req.URL.Query().Get("projectId")))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, st)
	return nil
}

// GET /v1/results/session/{sessionId}
func (r *Router) handleResultBySession(w http.ResponseWriter, req *http.Request) error {
	id, err := urlID(req, "sessionId", "session id")
	if err != nil {
		return err
	}
	res, err := r.assessSvc.ResultBySession(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/results/{id}
func (r *Router) handleGetResult(w http.ResponseWriter, req *http.Request) error {
	id, err := urlID(req, "id", "result id")
	if err != nil {
		return err
	}
	res, err := r.assessSvc.GetResult(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// PUT /v1/results/{id}
func (r *Router) handleUpdateResult(w http.ResponseWriter, req *http.Request) error {
	id, err := urlID(req, "id", "result id")
	if err != nil {
		return err
	}
	var u assessment.ResultUpdate
	if err := decodeBody(w, req, &u); err != nil {
		return err
	}
	res, err := r.assessSvc.UpdateResult(req.Context(), id, u)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// DELETE /v1/results/{id}
func (r *Router) handleDeleteResult(w http.ResponseWriter, req *http.Request) error {
	id, err := urlID(req, "id", "result id")
	if err != nil {
		return err
	}
	if err := r.assessSvc.DeleteResult(req.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
