// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/webauth/internal/auth"
	"github.com/holomush/webauth/internal/web"
	"github.com/holomush/webauth/pkg/errutil"
)

func TestNewRouter_RequiresAccounts(t *testing.T) {
	_, err := web.NewRouter(web.Options{})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "WEB_CONFIG_INVALID")
}

func TestRequestID(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("propagates caller id", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/logout", nil, func(r *http.Request) {
			r.Header.Set("X-Request-ID", "req-123")
		})
		assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("assigns one when missing", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/logout", nil)
		assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
	})

	t.Run("replaces oversized ids", func(t *testing.T) {
		long := string(bytes.Repeat([]byte("a"), 200))
		rec := f.do(t, http.MethodGet, "/api/logout", nil, func(r *http.Request) {
			r.Header.Set("X-Request-ID", long)
		})
		assert.NotEqual(t, long, rec.Header().Get("X-Request-ID"))
	})
}

func TestRequestLogger(t *testing.T) {
	f := newAPIFixture(t)
	f.do(t, http.MethodGet, "/api/logout", nil)

	logs := f.logs.String()
	assert.Contains(t, logs, `"msg":"http request"`)
	assert.Contains(t, logs, `"path":"/api/logout"`)
	assert.Contains(t, logs, `"status":200`)
}

func TestObserveRequests(t *testing.T) {
	f := newAPIFixture(t)
	f.do(t, http.MethodGet, "/api/logout", nil)
	f.do(t, http.MethodGet, "/api/nope", nil)

	f.request.mu.Lock()
	defer f.request.mu.Unlock()
	assert.Equal(t, []observation{
		{method: http.MethodGet, route: "/api/logout", code: http.StatusOK},
		{method: http.MethodGet, route: "unmatched", code: http.StatusNotFound},
	}, f.request.seen)
}

func TestObserveRequests_FoldsUnknownMethods(t *testing.T) {
	f := newAPIFixture(t)
	f.do(t, "PROPFIND", "/api/nope", nil)
	f.do(t, "X-RANDOM-1", "/api/nope", nil)

	f.request.mu.Lock()
	defer f.request.mu.Unlock()
	assert.Equal(t, []observation{
		{method: "other", route: "unmatched", code: http.StatusNotFound},
		{method: "other", route: "unmatched", code: http.StatusNotFound},
	}, f.request.seen)
}

func TestCORS(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodOptions, "/api/login", nil, func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:3000")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	})
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = f.do(t, http.MethodOptions, "/api/login", nil, func(r *http.Request) {
		r.Header.Set("Origin", "http://evil.example")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// panickingAccounts panics on Register and rejects everything else.
type panickingAccounts struct{}

func (panickingAccounts) Register(context.Context, auth.RegisterInput) (*auth.User, error) {
	panic("boom")
}

func (panickingAccounts) Login(context.Context, string, string) (*auth.Session, error) {
	return nil, errBackend
}

func (panickingAccounts) Authenticate(string) (auth.Principal, error) {
	return auth.Principal{}, auth.ErrInvalidToken
}

func (panickingAccounts) CurrentUser(context.Context, auth.Principal) (*auth.User, error) {
	return nil, errBackend
}

func (panickingAccounts) ForgotPassword(context.Context, string) error { return errBackend }

func (panickingAccounts) ResetPassword(context.Context, auth.ResetInput) error { return errBackend }

func (panickingAccounts) SendTestEmail(context.Context) {}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	router, err := web.NewRouter(web.Options{
		Accounts: panickingAccounts{},
		Logger:   slog.New(slog.NewJSONHandler(&logs, nil)),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/register", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), "panic in handler")
	assert.Contains(t, logs.String(), "boom")
}

func TestRequireSignin_RejectsWithoutCallingHandler(t *testing.T) {
	router, err := web.NewRouter(web.Options{Accounts: panickingAccounts{}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/current-user", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
