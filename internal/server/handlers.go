package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/tempolab/podtempo/internal/jobs"
	"github.com/tempolab/podtempo/internal/shared"
)

// Authenticator exchanges publish API credentials for a cached token.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) error
}

// API serves the processing trigger surface: the storage webhook, manual
// checks, and job inspection.
type API struct {
	watcher *jobs.Watcher
	orch    *jobs.Orchestrator
	auth    Authenticator
	secret  string
	logger  *log.Logger
	mux     *http.ServeMux
}

// NewAPI creates the handler set. The secret must match the webhook
// channel token; auth may be nil to disable /auth/publish.
func NewAPI(watcher *jobs.Watcher, orch *jobs.Orchestrator, auth Authenticator, secret string, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	a := &API{watcher: watcher, orch: orch, auth: auth, secret: secret, logger: logger}

	a.mux = http.NewServeMux()
	a.mux.HandleFunc("POST /webhook/drive", a.handleWebhook)
	a.mux.HandleFunc("POST /manual-check", a.handleManualCheck)
	a.mux.HandleFunc("GET /status", a.handleStatus)
	a.mux.HandleFunc("GET /jobs", a.handleJobs)
	a.mux.HandleFunc("GET /jobs/{id}", a.handleJob)
	a.mux.HandleFunc("POST /auth/publish", a.handlePublishAuth)
	return a
}

// Routes implements [Handler].
func (a *API) Routes() []string {
	return []string{
		"POST /webhook/drive",
		"POST /manual-check",
		"GET /status",
		"GET /jobs",
		"GET /jobs/{id}",
		"POST /auth/publish",
	}
}

// ServeHTTP implements [Handler].
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// handleWebhook receives storage change notifications. The channel token
// set at registration time authenticates the caller.
func (a *API) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if a.secret != "" && r.Header.Get("X-Goog-Channel-Token") != a.secret {
		a.logger.Warn("webhook rejected: bad channel token")
		writeError(w, http.StatusForbidden, "invalid channel token")
		return
	}

	// The sync message confirms registration; only change states matter.
	if state := r.Header.Get("X-Goog-Resource-State"); state == "sync" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
		return
	}

	started, err := a.watcher.Check(r.Context())
	if err != nil {
		a.logger.Error("webhook check failed", "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"started": started})
}

func (a *API) handleManualCheck(w http.ResponseWriter, r *http.Request) {
	started, err := a.watcher.Check(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"started": started})
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts := a.orch.StatusCounts()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"jobs":   counts,
	})
}

func (a *API) handleJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": a.orch.Jobs()})
}

func (a *API) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.orch.Job(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, shared.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *API) handlePublishAuth(w http.ResponseWriter, r *http.Request) {
	if a.auth == nil {
		writeError(w, http.StatusNotImplemented, "publish API not configured")
		return
	}

	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	if err := a.auth.Authenticate(r.Context(), creds.Email, creds.Password); err != nil {
		if errors.Is(err, shared.ErrAuthFailed) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "authenticated"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
