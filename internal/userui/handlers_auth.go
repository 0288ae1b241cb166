package userui

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/auth"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

const (
	msgLoginFailed     = "Invalid username or password."
	msgUserExists      = "Registration Error: User already exists."
	msgTooManyAttempts = "Too many attempts. Please wait a minute and try again."
	msgOAuthFailed     = "Sign-in failed. Please try again."
	msgOAuthCancelled  = "Sign-in was cancelled."
)

func (a *app) authView(r *http.Request, title string) authView {
	return authView{baseView: a.base(r, title), Providers: a.providerList}
}

func (a *app) handleLoginGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.currentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	v := a.authView(r, "Login")
	v.Messages = a.flashes(r, flashLogin)
	a.render(w, r, http.StatusOK, "login", v)
}

func (a *app) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.currentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if !a.throttle.allow(r.Context(), throttleKey("login", r)) {
		v := a.authView(r, "Login")
		v.Errors = []string{msgTooManyAttempts}
		a.render(w, r, http.StatusTooManyRequests, "login", v)
		return
	}
	if err := r.ParseForm(); err != nil {
		a.flash(w, r, flashLogin, "Invalid form submission.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	form := loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	if err := a.validate.Struct(form); err != nil {
		for _, msg := range formMessages(err) {
			a.flash(w, r, flashLogin, msg)
		}
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	user, err := a.authSvc.VerifyLocal(r.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			a.logger.Info("userui: login rejected", "username", form.Username, "ip", clientAddr(r))
			a.flash(w, r, flashLogin, msgLoginFailed)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		a.logger.Error("userui: login failed", "err", err)
		a.renderServerError(w, r, err)
		return
	}

	if err := a.signIn(w, r, user); err != nil {
		a.logger.Error("userui: bind session failed", "user_id", user.ID, "err", err)
		a.renderServerError(w, r, err)
		return
	}
	http.Redirect(w, r, "/applications", http.StatusFound)
}

func (a *app) handleRegisterGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.currentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	v := a.authView(r, "Register")
	v.Messages = a.flashes(r, flashRegister)
	a.render(w, r, http.StatusOK, "register", v)
}

func (a *app) handleRegisterPost(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.currentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		a.flash(w, r, flashRegister, "Invalid form submission.")
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}

	form := registerForm{
		Username:    strings.TrimSpace(r.PostFormValue("username")),
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		DisplayName: strings.TrimSpace(r.PostFormValue("displayName")),
		Password:    r.PostFormValue("password"),
	}
	v := a.authView(r, "Register")
	v.Username, v.Email, v.Display = form.Username, form.Email, form.DisplayName

	if err := a.validate.Struct(form); err != nil {
		v.Errors = formMessages(err)
		a.render(w, r, http.StatusOK, "register", v)
		return
	}

	user, err := a.authSvc.Register(r.Context(), form.Username, form.Email, form.DisplayName, form.Password)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.Is(err, domain.ErrUsernameTaken):
			v.Errors = []string{msgUserExists}
			a.render(w, r, http.StatusOK, "register", v)
		case errors.As(err, &verr):
			v.Errors = validationMessages(verr)
			a.render(w, r, http.StatusOK, "register", v)
		default:
			a.logger.Error("userui: register failed", "err", err)
			a.renderServerError(w, r, err)
		}
		return
	}

	a.logger.Info("userui: registered", "user_id", user.ID)
	if err := a.signIn(w, r, user); err != nil {
		a.logger.Error("userui: bind session failed", "user_id", user.ID, "err", err)
		a.renderServerError(w, r, err)
		return
	}
	http.Redirect(w, r, "/applications", http.StatusFound)
}

func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	if err := a.sessionSvc.Logout(r.Context(), id.SessionID); err != nil {
		a.logger.Error("userui: logout failed", "err", err)
		a.renderServerError(w, r, err)
		return
	}
	auth.ClearSessionCookie(w, a.cookieSecure)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *app) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	prov, ok := domain.ParseProvider(r.PathValue("provider"))
	p, enabled := a.providers[prov]
	if !ok || !enabled {
		a.handleNotFound(w, r)
		return
	}
	state, err := a.state.Issue(string(prov))
	if err != nil {
		a.logger.Error("userui: issue oauth state failed", "provider", prov, "err", err)
		a.renderServerError(w, r, err)
		return
	}
	auth.SetStateCookie(w, state, a.state.TTL(), a.cookieSecure)
	http.Redirect(w, r, p.AuthCodeURL(state), http.StatusFound)
}

func (a *app) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	prov, ok := domain.ParseProvider(r.PathValue("provider"))
	p, enabled := a.providers[prov]
	if !ok || !enabled {
		a.handleNotFound(w, r)
		return
	}

	q := r.URL.Query()
	state := q.Get("state")
	ck, err := r.Cookie(auth.OAuthStateCookieName)
	auth.ClearStateCookie(w, a.cookieSecure)

	fail := func(msg string, err error) {
		if err != nil {
			a.logger.Warn("userui: oauth callback failed", "provider", prov, "err", err)
		}
		a.flash(w, r, flashLogin, msg)
		http.Redirect(w, r, "/login", http.StatusFound)
	}

	if q.Get("error") != "" {
		fail(msgOAuthCancelled, nil)
		return
	}
	if err != nil || ck.Value == "" || ck.Value != state {
		fail(msgOAuthFailed, errors.New("state cookie mismatch"))
		return
	}
	if err := a.state.Verify(state, string(prov)); err != nil {
		fail(msgOAuthFailed, err)
		return
	}

	profile, err := p.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		fail(msgOAuthFailed, err)
		return
	}
	user, err := a.authSvc.FindOrCreateOAuth(r.Context(), profile)
	if err != nil {
		a.logger.Error("userui: oauth account lookup failed", "provider", prov, "err", err)
		fail(msgOAuthFailed, nil)
		return
	}
	if err := a.signIn(w, r, user); err != nil {
		a.logger.Error("userui: bind session failed", "user_id", user.ID, "err", err)
		a.renderServerError(w, r, err)
		return
	}
	http.Redirect(w, r, "/applications", http.StatusFound)
}
