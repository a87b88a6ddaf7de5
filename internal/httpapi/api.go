// Package httpapi is the HTTP surface: routing, middleware, request/response
// shaping. Authorization decisions live in internal/auth; this layer composes
// them per route and translates errors to status codes.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"time"

	"docuvault.org/internal/audit"
	"docuvault.org/internal/auth"
	"docuvault.org/internal/docs"
	"docuvault.org/internal/obs"
)

// IdentityExchanger turns an OAuth authorization code into a verified
// identity. The wire exchange with the provider happens behind this
// interface.
type IdentityExchanger interface {
	Exchange(ctx context.Context, code string) (auth.ExternalIdentity, error)
}

// ReadyProbe reports whether the backing store answers.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API wires the route table.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	authz      *auth.Authorizer
	docs       *docs.Service
	recorder   *audit.Recorder
	auditLog   audit.Store
	exchanger  IdentityExchanger
	readyProbe ReadyProbe
	version    string
	rateBurst  int
	ratePerSec int
	stop       chan struct{}
	stopOnce   sync.Once
}

// Options carries the API's collaborators.
type Options struct {
	Auth      *auth.Service
	Authz     *auth.Authorizer
	Docs      *docs.Service
	Recorder  *audit.Recorder
	AuditLog  audit.Store
	Exchanger IdentityExchanger
	Ready     ReadyProbe
	Version   string
	// RateBurst/RatePerSec configure the per-IP limiter; zero means the
	// defaults.
	RateBurst  int
	RatePerSec int
}

func New(opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       opts.Auth,
		authz:      opts.Authz,
		docs:       opts.Docs,
		recorder:   opts.Recorder,
		auditLog:   opts.AuditLog,
		exchanger:  opts.Exchanger,
		readyProbe: opts.Ready,
		version:    opts.Version,
		rateBurst:  opts.RateBurst,
		ratePerSec: opts.RatePerSec,
		stop:       make(chan struct{}),
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/google/callback", a.handleGoogleCallback)

	a.mux.HandleFunc("/v1/profile", a.handleProfile)

	a.mux.HandleFunc("/v1/documents", a.handleDocumentsCollection)
	a.mux.HandleFunc("/v1/documents/", a.handleDocumentResource)

	a.mux.HandleFunc("/v1/admin/users", a.handleAdminUsers)
	a.mux.HandleFunc("/v1/admin/users/", a.handleAdminUserResource)
	a.mux.HandleFunc("/v1/admin/audit-logs", a.handleAuditLogs)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware stack around the route table.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = Logging(h)
	h = obs.Instrument(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec, a.stop)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return h
}

// Close stops the background goroutines started by Handler.
func (a *API) Close() {
	a.stopOnce.Do(func() { close(a.stop) })
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "docuvault-api",
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
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "docuvault-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
