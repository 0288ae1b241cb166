package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/auth"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	// StorePing backs /healthz; nil reports healthy.
	StorePing func(context.Context) error

	// UI serves every path outside /v1, /healthz and /metrics.
	UI http.Handler

	Sessions     *service.SessionService
	Applications *service.ApplicationService
	CookieCodec  auth.CookieCodec

	// FrontendOrigins may call /v1 cross-origin with credentials.
	FrontendOrigins []string
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:         logger,
		storePing:      opts.StorePing,
		sessionSvc:     opts.Sessions,
		applicationSvc: opts.Applications,
		cookieCodec:    opts.CookieCodec,
	}

	apiMux := http.NewServeMux()
	if api.sessionSvc == nil || api.applicationSvc == nil {
		apiMux.HandleFunc("GET /v1/users/me", handleNotImplemented)
	} else {
		apiMux.HandleFunc("GET /v1/users/me", api.requireAuth(api.handleUsersMe))
		apiMux.HandleFunc("GET /v1/applications", api.requireAuth(api.handleApplicationsList))
		apiMux.HandleFunc("POST /v1/applications", api.requireAuth(api.handleApplicationsCreate))
		apiMux.HandleFunc("GET /v1/applications/{id}", api.requireAuth(api.handleApplicationsGet))
		apiMux.HandleFunc("PATCH /v1/applications/{id}", api.requireAuth(api.handleApplicationsUpdate))
		apiMux.HandleFunc("DELETE /v1/applications/{id}", api.requireAuth(api.handleApplicationsDelete))
	}

	apiHandler := CORS(opts.FrontendOrigins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := apiMux.Handler(r)
		if pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	}))

	ui := opts.UI
	if ui == nil {
		ui = http.NotFoundHandler()
	}
	metrics := promhttp.Handler()

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1":
			apiHandler.ServeHTTP(w, r)
		case r.URL.Path == "/healthz" && (r.Method == http.MethodGet || r.Method == http.MethodHead):
			api.handleHealthz(w, r)
		case r.URL.Path == "/metrics" && r.Method == http.MethodGet:
			metrics.ServeHTTP(w, r)
		default:
			ui.ServeHTTP(w, r)
		}
	})

	var h http.Handler = root
	h = Metrics()(h)
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger

	storePing func(context.Context) error

	sessionSvc     *service.SessionService
	applicationSvc *service.ApplicationService
	cookieCodec    auth.CookieCodec
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.storePing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.storePing(ctx); err != nil {
			a.logger.Warn("healthz: store ping failed", "err", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
