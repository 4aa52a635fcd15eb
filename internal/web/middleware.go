// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/holomush/webauth/internal/auth"
	"github.com/holomush/webauth/internal/logging"
)

const (
	tokenCookie     = "token"
	requestIDHeader = "X-Request-ID"
	principalKey    = "webauth.principal"
)

// requestID propagates the caller's X-Request-ID or assigns a new one, and
// puts it on the request context for logging.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.LogAttrs(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.ErrorContext(c.Request.Context(), "panic in handler",
			"path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

func observeRequests(o RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		o.ObserveRequest(metricMethod(c.Request.Method), route, c.Writer.Status(), time.Since(start))
	}
}

// metricMethod bounds the method label so arbitrary verbs cannot grow the series set.
func metricMethod(m string) string {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions:
		return m
	default:
		return "other"
	}
}

// requireSignin rejects requests without a valid session token and stores
// the resolved principal for withPrincipal.
func requireSignin(accounts Accounts, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			unauthorized(c)
			return
		}
		p, err := accounts.Authenticate(token)
		if err != nil {
			logger.DebugContext(c.Request.Context(), "session token rejected", "error", err)
			unauthorized(c)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// withPrincipal adapts a handler that needs the signed-in principal.
func withPrincipal(h func(c *gin.Context, p auth.Principal)) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get(principalKey)
		p, ok := v.(auth.Principal)
		if !ok {
			unauthorized(c)
			return
		}
		h(c, p)
	}
}

// sessionToken reads the token cookie, falling back to a bearer header.
func sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(tokenCookie); err == nil && token != "" {
		return token
	}
	if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func unauthorized(c *gin.Context) {
	c.String(http.StatusUnauthorized, "Unauthorized")
	c.Abort()
}
