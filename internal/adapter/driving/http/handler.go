package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/credreview/internal/application"
	"github.com/ericfisherdev/credreview/internal/domain/port/driven"
)

const (
	// maxCheckBody bounds the check-pwned request body.
	maxCheckBody = 4 << 20

	// maxProbeBody bounds the probe request body.
	maxProbeBody = 16 << 10
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	checker  *application.BreachChecker
	probes   *application.ProbeService
	history  driven.ProbeHistoryStore
	identity driven.IdentityProvider
	health   *application.HealthService
	logger   *slog.Logger
}

// NewHandler creates a Handler. history, identity and health may be nil;
// the corresponding endpoints then degrade to empty or not-configured
// responses.
func NewHandler(
	checker *application.BreachChecker,
	probes *application.ProbeService,
	history driven.ProbeHistoryStore,
	identity driven.IdentityProvider,
	health *application.HealthService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		checker:  checker,
		probes:   probes,
		history:  history,
		identity: identity,
		health:   health,
		logger:   logger,
	}
}

// RegisterAPIRoutes registers all JSON API routes on mux. Method-qualified
// patterns make the mux answer other methods with 405.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /api/check-pwned", h.CheckPwned)
	mux.HandleFunc("POST /api/probe", h.Probe)
	mux.HandleFunc("GET /api/probe/history", h.ProbeHistory)
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/auth/url", h.AuthURL)
	mux.HandleFunc("GET /api/auth/callback", h.AuthCallback)
}

// ApplyMiddleware wraps handler with recovery (innermost) and request
// logging.
func ApplyMiddleware(handler http.Handler, logger *slog.Logger) http.Handler {
	wrapped := recoveryMiddleware(logger, handler)
	return loggingMiddleware(logger, wrapped)
}

// CheckPwned returns positional breach counts for a batch of secrets. The
// secrets are never logged or stored.
func (h *Handler) CheckPwned(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCheckBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "passwords required")
		return
	}

	var secrets []string
	switch {
	case req.Passwords != nil:
		secrets = *req.Passwords
	case req.Password != nil:
		secrets = []string{*req.Password}
	default:
		writeError(w, http.StatusBadRequest, "passwords required")
		return
	}

	counts, err := h.checker.CountSecrets(r.Context(), secrets)
	switch {
	case errors.Is(err, application.ErrEmptyBatch), errors.Is(err, application.ErrBatchTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("breach check failed", "batch", len(secrets), "error", err)
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}

	writeJSON(w, http.StatusOK, CheckResponse{Counts: counts})
}

// Probe classifies a single site. Any probe outcome, including failure, is
// reported with status 200.
func (h *Handler) Probe(w http.ResponseWriter, r *http.Request) {
	var req ProbeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProbeBody)).Decode(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "Missing url")
		return
	}

	// The request context aborts the probe when the client disconnects.
	result := h.probes.ProbeSite(r.Context(), req.URL)
	writeJSON(w, http.StatusOK, result)
}

// ProbeHistory lists recent probe outcomes, optionally for one site.
func (h *Handler) ProbeHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, []ProbeHistoryResponse{})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	site := strings.TrimSpace(r.URL.Query().Get("site"))
	entries, err := h.history.ListRecent(r.Context(), site, limit)
	if err != nil {
		h.logger.Error("failed to list probe history", "site", site, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ProbeHistoryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toProbeHistoryResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health reports service health. A failing dependency turns the response
// into 503 so container health checks restart the service.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report := application.HealthReport{Status: application.HealthOK}
	if h.health != nil {
		report = h.health.Report(r.Context())
	}

	resp := toHealthResponse(report, time.Now())
	if report.Status != application.HealthOK {
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
