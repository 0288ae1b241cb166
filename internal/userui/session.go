package userui

import (
	"context"
	"errors"
	"net/http"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/auth"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

// Flash queue keys, one per page that shows messages.
const (
	flashLogin        = "loginMessage"
	flashRegister     = "registerMessage"
	flashChange       = "changeMessage"
	flashReset        = "resetMessage"
	flashProfile      = "profileMessage"
	flashApplications = "applicationsMessage"
)

// RequestIdentity is resolved once per request by loadSession. SessionID is
// empty until the visitor has a session; User is nil for anonymous visitors.
type RequestIdentity struct {
	SessionID string
	User      *domain.User
}

func (id *RequestIdentity) Authenticated() bool { return id != nil && id.User != nil }

type identityKey struct{}

// IdentityFrom returns the identity stored by loadSession. It never returns nil.
func IdentityFrom(ctx context.Context) *RequestIdentity {
	if id, ok := ctx.Value(identityKey{}).(*RequestIdentity); ok {
		return id
	}
	return &RequestIdentity{}
}

func withIdentity(ctx context.Context, id *RequestIdentity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func (a *app) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := &RequestIdentity{}
		if sessID, ok := a.cookieCodec.SessionIDFromRequest(r); ok {
			sess, user, err := a.sessionSvc.Resolve(r.Context(), sessID)
			switch {
			case err == nil:
				id.SessionID = sess.ID
				id.User = user
			case errors.Is(err, domain.ErrUnauthorized):
				auth.ClearSessionCookie(w, a.cookieSecure)
			default:
				a.logger.Error("userui: resolve session failed", "err", err)
				a.renderServerError(w, r, err)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

func (a *app) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFrom(r.Context()).Authenticated() {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (a *app) currentUser(r *http.Request) (domain.User, bool) {
	id := IdentityFrom(r.Context())
	if !id.Authenticated() {
		return domain.User{}, false
	}
	return *id.User, true
}

// ensureSession starts an anonymous session when the visitor has none.
func (a *app) ensureSession(w http.ResponseWriter, r *http.Request) (string, error) {
	id := IdentityFrom(r.Context())
	if id.SessionID != "" {
		return id.SessionID, nil
	}
	sess, err := a.sessionSvc.Start(r.Context())
	if err != nil {
		return "", err
	}
	auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sess.ID), a.sessionSvc.TTL, a.cookieSecure)
	id.SessionID = sess.ID
	return sess.ID, nil
}

// signIn binds userID to a fresh session id and drops the previous one.
func (a *app) signIn(w http.ResponseWriter, r *http.Request, user domain.User) error {
	id := IdentityFrom(r.Context())
	sess, err := a.sessionSvc.Login(r.Context(), id.SessionID, user.ID)
	if err != nil {
		return err
	}
	auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sess.ID), a.sessionSvc.TTL, a.cookieSecure)
	id.SessionID = sess.ID
	id.User = &user
	return nil
}

// flash queues msg for the next page that reads key. Failures are logged;
// losing a message is not worth failing the request over.
func (a *app) flash(w http.ResponseWriter, r *http.Request, key, msg string) {
	sessID, err := a.ensureSession(w, r)
	if err == nil {
		err = a.sessionSvc.AddFlash(r.Context(), sessID, key, msg)
	}
	if err != nil {
		a.logger.Warn("userui: flash dropped", "key", key, "err", err)
	}
}

func (a *app) flashes(r *http.Request, key string) []string {
	id := IdentityFrom(r.Context())
	if id.SessionID == "" {
		return nil
	}
	msgs, err := a.sessionSvc.Flashes(r.Context(), id.SessionID, key)
	if err != nil {
		a.logger.Warn("userui: read flashes failed", "key", key, "err", err)
		return nil
	}
	return msgs
}
