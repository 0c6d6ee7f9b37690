package httpapi

import (
	"net/http"
	"strings"

	"nexchat.app/internal/session"
)

func (a *API) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.requirePermission(w, r, session.PermViewAnalytics) {
		return
	}
	overview, err := a.analytics.Overview(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (a *API) handleAuditEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.requirePermission(w, r, session.PermViewLogs) {
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 50, 1, 500)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	events, err := a.recorder.Trail(r.Context(), strings.TrimSpace(r.URL.Query().Get("admin")), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "audit trail unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}
