// Package userui serves the server-rendered Career Pointer site: accounts,
// sessions, password flows, profile and the job application tracker.
package userui

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sort"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/auth"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/oauth"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/service"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/upload"

	"github.com/go-playground/validator/v10"
)

type Opts struct {
	Logger *slog.Logger

	Sessions     *service.SessionService
	Auth         *service.AuthService
	Reset        *service.PasswordResetService
	Profiles     *service.ProfileService
	Applications *service.ApplicationService

	OAuth  map[domain.Provider]oauth.Provider
	State  *auth.StateCodec
	Upload upload.Store

	CookieCodec  auth.CookieCodec
	CookieSecure bool

	// LoginRate is a ulule rate such as "10-M"; empty disables throttling.
	LoginRate string
	// ShowErrorDetail puts the error text on 500 pages.
	ShowErrorDetail bool
	// ShowResetLink echoes the reset link in the flash when no mailer is set up.
	ShowResetLink bool
}

func New(opts Opts) (http.Handler, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Sessions == nil || opts.Auth == nil || opts.Reset == nil || opts.Profiles == nil || opts.Applications == nil {
		return nil, errors.New("userui: missing services")
	}
	if opts.Upload == nil {
		return nil, errors.New("userui: missing upload store")
	}
	if len(opts.OAuth) > 0 && opts.State == nil {
		return nil, errors.New("userui: oauth providers need a state codec")
	}

	a := &app{
		logger:          logger,
		sessionSvc:      opts.Sessions,
		authSvc:         opts.Auth,
		resetSvc:        opts.Reset,
		profileSvc:      opts.Profiles,
		applicationSvc:  opts.Applications,
		providers:       opts.OAuth,
		state:           opts.State,
		uploads:         opts.Upload,
		cookieCodec:     opts.CookieCodec,
		cookieSecure:    opts.CookieSecure,
		showErrorDetail: opts.ShowErrorDetail,
		showResetLink:   opts.ShowResetLink,
		validate:        newValidator(),
	}
	for p := range opts.OAuth {
		a.providerList = append(a.providerList, p)
	}
	sort.Slice(a.providerList, func(i, j int) bool { return a.providerList[i] < a.providerList[j] })

	if opts.LoginRate != "" {
		t, err := newThrottle(opts.LoginRate, logger)
		if err != nil {
			return nil, err
		}
		a.throttle = t
	}

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	a.templates = t

	pages := http.NewServeMux()
	pages.HandleFunc("GET /{$}", a.handleHome)
	pages.HandleFunc("GET /about", a.handleAbout)
	pages.HandleFunc("GET /aboutus", a.handleAbout)
	pages.HandleFunc("GET /contact", a.handleContact)

	pages.HandleFunc("GET /login", a.handleLoginGet)
	pages.HandleFunc("POST /login", a.handleLoginPost)
	pages.HandleFunc("GET /register", a.handleRegisterGet)
	pages.HandleFunc("POST /register", a.handleRegisterPost)
	pages.HandleFunc("GET /logout", a.handleLogout)
	pages.HandleFunc("POST /logout", a.handleLogout)
	pages.HandleFunc("GET /auth/{provider}", a.handleOAuthStart)
	pages.HandleFunc("GET /auth/{provider}/callback", a.handleOAuthCallback)

	pages.HandleFunc("GET /profile", a.requireAuth(a.handleProfileGet))
	pages.HandleFunc("POST /profile", a.requireAuth(a.handleProfilePost))
	pages.HandleFunc("POST /profile/photo", a.requireAuth(a.handleProfilePhoto))

	pages.HandleFunc("GET /password", a.handlePasswordGet)
	pages.HandleFunc("POST /password/change", a.requireAuth(a.handlePasswordChange))
	pages.HandleFunc("POST /password/forgot", a.handlePasswordForgot)
	pages.HandleFunc("GET /password/reset/{token}", a.handleResetGet)
	pages.HandleFunc("POST /password/reset/{token}", a.handleResetPost)

	pages.HandleFunc("GET /applications", a.requireAuth(a.handleApplicationsList))
	pages.HandleFunc("GET /applications/add", a.requireAuth(a.handleApplicationAddGet))
	pages.HandleFunc("POST /applications/add", a.requireAuth(a.handleApplicationAddPost))
	pages.HandleFunc("GET /applications/edit/{id}", a.requireAuth(a.handleApplicationEditGet))
	pages.HandleFunc("POST /applications/edit/{id}", a.requireAuth(a.handleApplicationEditPost))
	pages.HandleFunc("GET /applications/delete/{id}", a.requireAuth(a.handleApplicationDelete))
	pages.HandleFunc("POST /applications/delete/{id}", a.requireAuth(a.handleApplicationDelete))

	pages.HandleFunc("/", a.handleNotFound)

	staticFS, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, err
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))

	mux := http.NewServeMux()
	mux.Handle("GET /static/", static)
	mux.Handle("GET /uploads/{name}", a.recoverPanics(http.HandlerFunc(a.handleUpload)))
	mux.Handle("/", a.loadSession(a.recoverPanics(pages)))
	return mux, nil
}

type app struct {
	logger *slog.Logger

	sessionSvc     *service.SessionService
	authSvc        *service.AuthService
	resetSvc       *service.PasswordResetService
	profileSvc     *service.ProfileService
	applicationSvc *service.ApplicationService

	providers    map[domain.Provider]oauth.Provider
	providerList []domain.Provider
	state        *auth.StateCodec
	uploads      upload.Store

	cookieCodec  auth.CookieCodec
	cookieSecure bool

	showErrorDetail bool
	showResetLink   bool

	throttle  *throttle
	validate  *validator.Validate
	templates *templates
}

func (a *app) base(r *http.Request, title string) baseView {
	return baseView{Title: title, User: IdentityFrom(r.Context()).User}
}

func (a *app) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if err := a.templates.render(w, status, name, data); err != nil {
		a.logger.Error("userui: render failed", "page", name, "path", r.URL.Path, "err", err)
	}
}

func (a *app) renderError(w http.ResponseWriter, r *http.Request, status int, title, msg string) {
	a.render(w, r, status, "error", errorView{
		baseView: a.base(r, title),
		Status:   status,
		Message:  msg,
	})
}

func (a *app) renderServerError(w http.ResponseWriter, r *http.Request, err error) {
	v := errorView{
		baseView: a.base(r, "Something went wrong"),
		Status:   http.StatusInternalServerError,
		Message:  "Something went wrong on our side. Please try again.",
	}
	if a.showErrorDetail && err != nil {
		v.Detail = err.Error()
	}
	a.render(w, r, http.StatusInternalServerError, "error", v)
}

// recoverPanics turns a handler panic into the rendered 500 page. It sits
// inside loadSession so the page still knows who is signed in.
func (a *app) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			a.logger.Error("userui: panic", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
			a.renderServerError(w, r, fmt.Errorf("panic: %v", rec))
		}()
		next.ServeHTTP(w, r)
	})
}

func (a *app) handleNotFound(w http.ResponseWriter, r *http.Request) {
	a.renderError(w, r, http.StatusNotFound, "Not Found", "The page you are looking for does not exist.")
}
