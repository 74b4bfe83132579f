package collector

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	store "github.com/daoscope/govcollector/pkg/db"
)

const (
	defaultListLimit = 10
	maxListLimit     = 500
)

// SetupServer sets up the HTTP server.
func (a *App) SetupServer() {
	a.Server = &http.Server{
		Addr:              a.Config.Addr,
		Handler:           WithCORS(a.NewRouter()),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter returns the HTTP API: probes, the manual trigger and read-only
// access to organizations, proposals and metrics snapshots.
func (a *App) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", a.HandleIndex).Methods(http.MethodGet)
	r.HandleFunc("/healthz", a.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health", a.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.HandleReady).Methods(http.MethodGet)

	r.HandleFunc("/trigger-governance", a.HandleTriggerGovernance).Methods(http.MethodGet, http.MethodPost)

	r.HandleFunc("/api/status", a.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/organizations", a.HandleOrganizations).Methods(http.MethodGet)
	r.HandleFunc("/api/organizations/{id}/metrics", a.HandleOrganizationMetrics).Methods(http.MethodGet)
	r.HandleFunc("/api/organizations/{id}/proposals", a.HandleOrganizationProposals).Methods(http.MethodGet)

	return r
}

// WithCORS is a middleware that adds CORS headers to the response.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *App) HandleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Governance metrics collector",
		"endpoints": map[string]string{
			"health":            "/healthz",
			"ready":             "/readyz",
			"triggerGovernance": "/trigger-governance",
			"status":            "/api/status",
			"organizations":     "/api/organizations",
			"metrics":           "/api/organizations/{id}/metrics?limit=N",
			"proposals":         "/api/organizations/{id}/proposals?limit=N",
		},
	})
}

func (a *App) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "timestamp": time.Now().UnixMilli()})
}

func (a *App) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.Ready(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleTriggerGovernance runs one governance pass synchronously.
func (a *App) HandleTriggerGovernance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.runTimeout())
	defer cancel()

	summary, err := a.RunGovernance(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		a.Logger.Error("Manual governance run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Governance collection completed",
			"summary": summary,
		})
	}
}

func (a *App) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	jobs := map[string]RunSummary{}
	a.LastRuns.Range(func(name string, s RunSummary) bool {
		jobs[name] = s
		return true
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"running":       a.Running(),
		"jobs":          jobs,
		"organizations": a.Statuses(),
	})
}

func (a *App) HandleOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := a.Store.ListOrganizations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (a *App) HandleOrganizationMetrics(w http.ResponseWriter, r *http.Request) {
	id, limit, ok := a.organizationQuery(w, r)
	if !ok {
		return
	}
	metrics, err := a.Store.LatestMetrics(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (a *App) HandleOrganizationProposals(w http.ResponseWriter, r *http.Request) {
	id, limit, ok := a.organizationQuery(w, r)
	if !ok {
		return
	}
	proposals, err := a.Store.ListProposals(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, proposals)
}

// organizationQuery validates {id} and ?limit, writing the error response itself.
func (a *App) organizationQuery(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	id := mux.Vars(r)["id"]

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return "", 0, false
		}
		limit = min(n, maxListLimit)
	}

	if _, err := a.Store.GetOrganization(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "organization not found")
			return "", 0, false
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return "", 0, false
	}
	return id, limit, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
