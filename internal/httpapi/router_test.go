package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/auth"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/service"
	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/store/memory"
)

type apiFixture struct {
	t        *testing.T
	handler  http.Handler
	store    *memory.Store
	sessions *service.SessionService
	codec    auth.CookieCodec
}

func newAPIFixture(t *testing.T, tweak func(*RouterOpts)) *apiFixture {
	t.Helper()
	st := memory.New()
	f := &apiFixture{
		t:        t,
		store:    st,
		sessions: &service.SessionService{Store: st, Users: st, TTL: time.Hour},
		codec:    auth.NewCookieCodec([]byte("cookie-secret")),
	}
	opts := RouterOpts{
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		StorePing:       st.Ping,
		UI:              http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "ui:"+r.URL.Path) }),
		Sessions:        f.sessions,
		Applications:    &service.ApplicationService{Store: st},
		CookieCodec:     f.codec,
		FrontendOrigins: []string{"https://app.example.com"},
	}
	if tweak != nil {
		tweak(&opts)
	}
	f.handler = NewRouter(opts)
	return f
}

// login creates a user and returns a cookie for a session bound to it.
func (f *apiFixture) login(username string) (*http.Cookie, domain.User) {
	f.t.Helper()
	ctx := context.Background()
	u, err := f.store.CreateUser(ctx, domain.NewUser{Username: username, DisplayName: username})
	require.NoError(f.t, err)
	sess, err := f.sessions.Login(ctx, "", u.ID)
	require.NoError(f.t, err)
	return &http.Cookie{Name: auth.SessionCookieName, Value: f.codec.EncodeSessionID(sess.ID)}, u
}

func (f *apiFixture) do(method, path, body string, ck *http.Cookie) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if ck != nil {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestV1RequiresAuthenticatedSession(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodGet, "/v1/applications", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeBody[errorEnvelope](t, rec)
	assert.Equal(t, "unauthorized", env.Error.Code)

	anon, err := f.sessions.Start(context.Background())
	require.NoError(t, err)
	ck := &http.Cookie{Name: auth.SessionCookieName, Value: f.codec.EncodeSessionID(anon.ID)}
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/v1/users/me", "", ck).Code)

	tampered := &http.Cookie{Name: auth.SessionCookieName, Value: anon.ID + ".bogus"}
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/v1/users/me", "", tampered).Code)
}

func TestUsersMe(t *testing.T) {
	f := newAPIFixture(t, nil)
	ck, u := f.login("alice")

	rec := f.do(http.MethodGet, "/v1/users/me", "", ck)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[userResponse](t, rec)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, domain.DefaultAvatarURL, got.AvatarURL)
	assert.Empty(t, got.LinkedAccounts)

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	req.AddCookie(ck)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestApplicationsCRUD(t *testing.T) {
	f := newAPIFixture(t, nil)
	ck, _ := f.login("alice")

	rec := f.do(http.MethodPost, "/v1/applications", `{"company":" Acme ","position":"Engineer","date_applied":"2025-10-01","status":"applied","notes":"n"}`, ck)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[applicationResponse](t, rec)
	assert.Equal(t, "Acme", created.Company)
	require.NotNil(t, created.DateApplied)
	assert.Equal(t, "2025-10-01", *created.DateApplied)
	assert.Equal(t, "/v1/applications/"+created.ID, rec.Header().Get("Location"))

	rec = f.do(http.MethodGet, "/v1/applications", "", ck)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Applications []applicationResponse `json:"applications"`
	}](t, rec)
	require.Len(t, list.Applications, 1)

	rec = f.do(http.MethodPatch, "/v1/applications/"+created.ID, `{"status":"interview","date_applied":null}`, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[applicationResponse](t, rec)
	assert.Equal(t, "interview", updated.Status)
	assert.Equal(t, "Acme", updated.Company)
	assert.Equal(t, "n", updated.Notes)
	assert.Nil(t, updated.DateApplied)

	rec = f.do(http.MethodPatch, "/v1/applications/"+created.ID, `{"position":"Senior Engineer"}`, ck)
	require.Equal(t, http.StatusOK, rec.Code)
	updated = decodeBody[applicationResponse](t, rec)
	assert.Equal(t, "Senior Engineer", updated.Position)
	assert.Equal(t, "interview", updated.Status)

	rec = f.do(http.MethodPatch, "/v1/applications/"+created.ID, `{"date_applied":"yesterday"}`, ck)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeBody[errorEnvelope](t, rec)
	assert.Equal(t, "validation_error", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "date_applied")

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, "/v1/applications/"+created.ID, `{"salary":1}`, ck).Code)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/v1/applications/"+created.ID, "", ck).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/v1/applications/"+created.ID, "", ck).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/applications/"+created.ID, "", ck).Code)
}

func TestApplicationsOwnerScoped(t *testing.T) {
	f := newAPIFixture(t, nil)
	alice, _ := f.login("alice")
	bob, _ := f.login("bob")

	rec := f.do(http.MethodPost, "/v1/applications", `{"company":"Acme"}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody[applicationResponse](t, rec).ID

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/applications/"+id, "", bob).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPatch, "/v1/applications/"+id, `{"company":"Evil"}`, bob).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/v1/applications/"+id, "", bob).Code)

	rec = f.do(http.MethodGet, "/v1/applications", "", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"applications":[]}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/v1/applications/"+id, "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme", decodeBody[applicationResponse](t, rec).Company)
}

func TestUnknownV1PathIsJSON404(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(http.MethodGet, "/v1/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody[errorEnvelope](t, rec).Error.Code)
}

func TestNonAPIPathsGoToUI(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(http.MethodGet, "/applications", "", nil)
	assert.Equal(t, "ui:/applications", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t, nil)
	rec := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	down := newAPIFixture(t, func(o *RouterOpts) {
		o.StorePing = func(context.Context) error { return errors.New("connection refused") }
	})
	rec = down.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.do(http.MethodGet, "/v1/applications", "", nil)

	rec := f.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "careerpointer_http_requests_total")
	assert.Contains(t, body, `route="/v1/applications"`)
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/":                      "/",
		"/v1/applications/abc":   "/v1/applications",
		"/v1/users/me":           "/v1/users",
		"/v1/other":              "/v1",
		"/applications/edit/123": "/applications",
		"/password/reset/tok":    "/password",
		"/uploads/u-1.png":       "/uploads",
		"/wp-admin/setup.php":    "other",
		"/applicationsx":         "other",
		"/auth/github/callback":  "/auth",
		"/static/css/site.css":   "/static",
	}
	for path, want := range cases {
		assert.Equal(t, want, routeLabel(path), path)
	}
}

func TestCORSForFrontendOrigin(t *testing.T) {
	f := newAPIFixture(t, nil)
	ck, _ := f.login("alice")

	req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.AddCookie(ck)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/v1/applications", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)

	req = httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovererReturns500(t *testing.T) {
	f := newAPIFixture(t, func(o *RouterOpts) {
		o.UI = http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	})
	rec := f.do(http.MethodGet, "/profile", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
}

func TestApplicationsRejectsBadBodies(t *testing.T) {
	f := newAPIFixture(t, nil)
	ck, _ := f.login("alice")

	rec := f.do(http.MethodPost, "/v1/applications", `{"company":`, ck)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_json", decodeBody[errorEnvelope](t, rec).Error.Code)

	rec = f.do(http.MethodPost, "/v1/applications", `{"company":"A"}{"company":"B"}`, ck)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/v1/applications", `{"company":7}`, ck)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorEnvelope](t, rec).Error.Message, "company")

	big := `{"notes":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	assert.Equal(t, http.StatusRequestEntityTooLarge, f.do(http.MethodPost, "/v1/applications", big, ck).Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/applications", strings.NewReader(`{"company":"Acme"}`))
	req.Header.Set("Content-Type", "text/plain")
	req.AddCookie(ck)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	list := decodeBody[struct {
		Applications []applicationResponse `json:"applications"`
	}](t, f.do(http.MethodGet, "/v1/applications", "", ck))
	assert.Empty(t, list.Applications)
}
