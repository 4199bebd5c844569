package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/service"
)

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandlers_Login(t *testing.T) {
	auth := newStubAuth()
	auth.begin = &service.BeginLoginResult{AuthURL: "https://idp.example/authorize?x=1", State: "st", Nonce: "nn"}
	h := &AuthHandlers{Svc: auth, Logger: discardLogger()}

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=/clientes", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://idp.example/authorize?x=1", rec.Header().Get("Location"))
	require.NotNil(t, cookieByName(rec, oauthStateCookie))
	assert.Equal(t, "st", cookieByName(rec, oauthStateCookie).Value)
	assert.Equal(t, "nn", cookieByName(rec, oauthNonceCookie).Value)
	assert.Equal(t, "/clientes", cookieByName(rec, postLoginCookie).Value)
	assert.True(t, cookieByName(rec, oauthStateCookie).HttpOnly)
}

func TestAuthHandlers_LoginRejectsOffsiteRedirect(t *testing.T) {
	auth := newStubAuth()
	auth.begin = &service.BeginLoginResult{AuthURL: "https://idp.example/authorize", State: "st", Nonce: "nn"}
	h := &AuthHandlers{Svc: auth}

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=https://evil.example", nil))
	assert.Equal(t, "/", cookieByName(rec, postLoginCookie).Value)
}

func TestAuthHandlers_LoginFailure(t *testing.T) {
	auth := newStubAuth()
	auth.beginErr = errors.New("idp down")
	h := &AuthHandlers{Svc: auth, Logger: discardLogger()}

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "login_failed")
}

func TestAuthHandlers_Callback(t *testing.T) {
	expires := time.Now().Add(8 * time.Hour)

	tests := []struct {
		name        string
		query       string
		cookies     []*http.Cookie
		completeErr error
		wantStatus  int
		wantCode    string
		wantTo      string
	}{
		{name: "missing code", query: "state=st", wantStatus: http.StatusBadRequest, wantCode: "missing_code"},
		{name: "missing state", query: "code=c", wantStatus: http.StatusBadRequest, wantCode: "missing_state"},
		{
			name:       "state mismatch",
			query:      "code=c&state=st",
			cookies:    []*http.Cookie{{Name: oauthStateCookie, Value: "other"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_state",
		},
		{
			name:       "missing nonce",
			query:      "code=c&state=st",
			cookies:    []*http.Cookie{{Name: oauthStateCookie, Value: "st"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "missing_nonce",
		},
		{
			name:        "exchange fails",
			query:       "code=c&state=st",
			cookies:     []*http.Cookie{{Name: oauthStateCookie, Value: "st"}, {Name: oauthNonceCookie, Value: "nn"}},
			completeErr: errors.New("bad code"),
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "login_completion_failed",
		},
		{
			name:  "success",
			query: "code=c&state=st",
			cookies: []*http.Cookie{
				{Name: oauthStateCookie, Value: "st"},
				{Name: oauthNonceCookie, Value: "nn"},
				{Name: postLoginCookie, Value: "/ordenes"},
			},
			wantStatus: http.StatusFound,
			wantTo:     "/ordenes",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := newStubAuth()
			auth.complete = &domainauth.Session{ID: "new-session", UserID: testUserID, ExpiresAt: expires}
			auth.completeErr = tt.completeErr
			h := &AuthHandlers{Svc: auth, Logger: discardLogger()}

			req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+tt.query, nil)
			for _, c := range tt.cookies {
				req.AddCookie(c)
			}
			rec := httptest.NewRecorder()
			h.Callback(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Contains(t, rec.Body.String(), tt.wantCode)
				return
			}
			assert.Equal(t, tt.wantTo, rec.Header().Get("Location"))
			assert.Equal(t, service.CompleteLoginInput{Code: "c", State: "st", Nonce: "nn"}, auth.lastInput)

			sess := cookieByName(rec, sessionCookieName)
			require.NotNil(t, sess)
			assert.Equal(t, "new-session", sess.Value)
			assert.InDelta(t, (8 * time.Hour).Seconds(), float64(sess.MaxAge), 5)
			assert.Equal(t, -1, cookieByName(rec, oauthStateCookie).MaxAge)
		})
	}
}

func TestAuthHandlers_Logout(t *testing.T) {
	t.Run("browser redirect", func(t *testing.T) {
		auth := newStubAuth()
		h := &AuthHandlers{Svc: auth}
		req := httptest.NewRequest(http.MethodPost, "/auth/logout?redirect_uri=/kanban", nil)
		req.AddCookie(sessionCookie())
		rec := httptest.NewRecorder()
		h.Logout(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/signed-out?redirect_uri=%2Fkanban", rec.Header().Get("Location"))
		assert.Equal(t, []string{testSessionID}, auth.loggedOut)
		assert.Equal(t, -1, cookieByName(rec, sessionCookieName).MaxAge)
	})

	t.Run("htmx", func(t *testing.T) {
		h := &AuthHandlers{Svc: newStubAuth()}
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.Header.Set("Hx-Request", "true")
		rec := httptest.NewRecorder()
		h.Logout(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/auth/signed-out?redirect_uri=%2F", rec.Header().Get("Hx-Redirect"))
	})

	t.Run("json", func(t *testing.T) {
		h := &AuthHandlers{Svc: newStubAuth()}
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		h.Logout(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"success","redirect_to":"/auth/signed-out?redirect_uri=%2F"}`, rec.Body.String())
	})
}

func TestAuthHandlers_SignedOut(t *testing.T) {
	h := &AuthHandlers{Svc: newStubAuth(), Renderer: newTestRenderer(t)}
	rec := httptest.NewRecorder()
	h.SignedOut(rec, httptest.NewRequest(http.MethodGet, "/auth/signed-out?redirect_uri=/kanban", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Has cerrado sesión")
	assert.Contains(t, rec.Body.String(), `href="/auth/login?redirect_uri=%2Fkanban"`)
}
