// Package httpapi is the HTTP surface of the admin console backend.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"nexchat.app/internal/analytics"
	"nexchat.app/internal/audit"
	"nexchat.app/internal/content"
	"nexchat.app/internal/directory"
	"nexchat.app/internal/ledger"
	"nexchat.app/internal/moderation"
	"nexchat.app/internal/obs"
	"nexchat.app/internal/session"
	"nexchat.app/internal/stream"
)

// ReadyProbe checks backing stores before the instance accepts traffic.
type ReadyProbe struct {
	DB   *sql.DB
	Ping func(ctx context.Context) error
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return err
		}
	}
	if rp.Ping != nil {
		return rp.Ping(ctx)
	}
	return nil
}

// Deps carries the services the API dispatches to.
type Deps struct {
	Sessions   *session.Manager
	Directory  *directory.Service
	Moderation *moderation.Workflow
	Ledger     *ledger.Service
	Analytics  *analytics.Service
	Recorder   *audit.Recorder
	Content    content.Store
	Changes    *stream.Stream
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	sessions   *session.Manager
	directory  *directory.Service
	moderation *moderation.Workflow
	ledger     *ledger.Service
	analytics  *analytics.Service
	recorder   *audit.Recorder
	content    content.Store
	changes    *stream.Stream

	rateBurst    int
	ratePerSec   int
	maxBodyBytes int64
}

func New(rp ReadyProbe, version string, deps Deps) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,

		sessions:   deps.Sessions,
		directory:  deps.Directory,
		moderation: deps.Moderation,
		ledger:     deps.Ledger,
		analytics:  deps.Analytics,
		recorder:   deps.Recorder,
		content:    deps.Content,
		changes:    deps.Changes,

		rateBurst:    40,
		ratePerSec:   20,
		maxBodyBytes: 1 << 20,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// session lifecycle
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/session", a.handleSessionInfo)

	// moderation surfaces
	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)
	a.mux.HandleFunc("/v1/videos", a.handleVideosCollection)
	a.mux.HandleFunc("/v1/videos/", a.handleVideoResource)
	a.mux.HandleFunc("/v1/reports", a.handleReportsCollection)
	a.mux.HandleFunc("/v1/reports/", a.handleReportResource)

	// admin directory
	a.mux.HandleFunc("/v1/admins", a.handleAdminsCollection)
	a.mux.HandleFunc("/v1/admins/", a.handleAdminResource)

	// token ledger
	a.mux.HandleFunc("/v1/tokens/mint", a.handleMint)
	a.mux.HandleFunc("/v1/tokens/balance", a.handleBalance)
	a.mux.HandleFunc("/v1/tokens/transactions", a.handleTransactions)

	// observability surfaces
	a.mux.HandleFunc("/v1/analytics/overview", a.handleAnalyticsOverview)
	a.mux.HandleFunc("/v1/audit/events", a.handleAuditEvents)
	a.mux.HandleFunc("/v1/stream", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "nexchat-admin-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "nexchat-admin-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
