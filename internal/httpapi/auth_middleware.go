package httpapi

import (
	"context"
	"net/http"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type authCtxKey int

const (
	authUserKey authCtxKey = iota
	authSessionKey
)

// requireAuth accepts the same session cookie as the HTML site. Anonymous
// sessions are rejected.
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessID, ok := a.cookieCodec.SessionIDFromRequest(r)
		if !ok {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		sess, u, err := a.sessionSvc.Resolve(r.Context(), sessID)
		if err != nil {
			if !isClientError(err) {
				a.logger.Error("api: resolve session failed", "err", err)
			}
			WriteDomainError(w, err)
			return
		}
		if u == nil {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), authUserKey, *u)
		ctx = context.WithValue(ctx, authSessionKey, sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func CurrentUser(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(authUserKey).(domain.User)
	return u, ok
}

func CurrentSessionID(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(authSessionKey).(string)
	return s, ok
}
