package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"sportsync/ingestion/internal/jobs"
)

const defaultRunsLimit = 50

type handler struct {
	op       Operator
	assessor Assessor
	db       Pinger
	tokenTTL time.Duration
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":    "unhealthy",
				"database":  "disconnected",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) listJobs(w http.ResponseWriter, r *http.Request) {
	list, err := h.op.Jobs(r.Context(), principalFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobViews(list)})
}

func (h *handler) listRuns(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if !p.Elevated {
		writeDenied(w)
		return
	}

	id, ok := jobID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "job id must be a positive integer")
		return
	}
	limit := defaultRunsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.op.Runs(r.Context(), p, id, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runViews(runs)})
}

type tokenRequest struct {
	Action string `json:"action"`
}

func (h *handler) issueToken(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(r)
	if !ok {
		writeDenied(w)
		return
	}
	var req tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeDenied(w)
		return
	}

	token, err := h.op.IssueToken(r.Context(), principalFrom(r.Context()), jobs.Action(req.Action), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token":              token,
		"action":             req.Action,
		"job_id":             id,
		"expires_in_seconds": int(h.tokenTTL.Seconds()),
	})
}

func (h *handler) perform(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(r)
	if !ok {
		writeDenied(w)
		return
	}
	action := jobs.Action(chi.URLParam(r, "action"))
	token := r.Header.Get("X-Confirm-Token")

	if err := h.op.Perform(r.Context(), principalFrom(r.Context()), action, id, token); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"action": action,
		"job_id": id,
	})
}

func (h *handler) seed(w http.ResponseWriter, r *http.Request) {
	report, err := h.op.SeedCatalog(r.Context(), principalFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handler) dispatch(w http.ResponseWriter, r *http.Request) {
	lease, err := strconv.Atoi(r.URL.Query().Get("lease_seconds"))
	if err != nil {
		writeDenied(w)
		return
	}

	outcome, err := h.op.DispatchOnce(r.Context(), principalFrom(r.Context()), lease)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"outcome": outcome,
		"summary": outcome.Summary(),
	})
}

func (h *handler) seasonHealth(w http.ResponseWriter, r *http.Request) {
	if !principalFrom(r.Context()).Elevated {
		writeDenied(w)
		return
	}
	season, err := strconv.Atoi(chi.URLParam(r, "season"))
	if err != nil || season <= 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "season must be a year")
		return
	}

	health, err := h.assessor.Assess(r.Context(), chi.URLParam(r, "league"), season)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, health)
}

// fail maps an operator error to a response. Denials carry no detail.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, jobs.ErrDenied) {
		writeDenied(w)
		return
	}
	log.Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Admin request failed")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}

func jobID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
