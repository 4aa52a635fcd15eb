// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web exposes the account flows as a JSON API under /api.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/holomush/webauth/internal/auth"
)

// Accounts is the account API served by the router. *auth.Service satisfies it.
type Accounts interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.User, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Authenticate(token string) (auth.Principal, error)
	CurrentUser(ctx context.Context, p auth.Principal) (*auth.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in auth.ResetInput) error
	SendTestEmail(ctx context.Context)
}

// RequestObserver records request latency. *observability.Metrics satisfies it.
type RequestObserver interface {
	ObserveRequest(method, route string, code int, elapsed time.Duration)
}

// CookieOptions configures the session cookie.
type CookieOptions struct {
	Secure bool
	Domain string
}

// Options configures NewRouter. Observer and Logger are optional.
type Options struct {
	Accounts    Accounts
	Cookie      CookieOptions
	CORSOrigins []string
	Observer    RequestObserver
	Logger      *slog.Logger
}

// NewRouter builds the API engine.
func NewRouter(opts Options) (*gin.Engine, error) {
	if opts.Accounts == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("accounts service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(requestID(), requestLogger(logger), recovery(logger))
	if opts.Observer != nil {
		r.Use(observeRequests(opts.Observer))
	}
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	h := &handlers{accounts: opts.Accounts, cookie: opts.Cookie, logger: logger}

	api := r.Group("/api")
	api.POST("/register", h.register)
	api.POST("/login", h.login)
	api.GET("/logout", h.logout)
	api.GET("/current-user", requireSignin(opts.Accounts, logger), withPrincipal(h.currentUser))
	api.POST("/forgot-password", h.forgotPassword)
	api.POST("/reset-password", h.resetPassword)
	api.GET("/send-email", h.sendTestEmail)

	return r, nil
}
