// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/holomush/webauth/internal/auth"
	"github.com/holomush/webauth/pkg/errutil"
)

// operation holds the plain-text failure responses of one endpoint. Errors
// whose code is not in texts get the fallback.
type operation struct {
	name     string
	fallback string
	texts    map[string]string
}

var (
	opRegister = operation{
		name:     "register",
		fallback: "Error, Try again",
		texts: map[string]string{
			auth.CodeNameRequired:     "Name is required",
			auth.CodePasswordTooShort: "Password is required and should be at least 6 characters",
			auth.CodeDuplicateEmail:   "Email is already taken",
		},
	}
	opLogin = operation{
		name:     "login",
		fallback: "Error. Try again.",
		texts: map[string]string{
			auth.CodeUserNotFound:  "User not found",
			auth.CodeWrongPassword: "Wrong password",
		},
	}
	opCurrentUser = operation{name: "current_user", fallback: "Error. Try again."}
	opForgot      = operation{
		name:     "forgot_password",
		fallback: "Error! Try again.",
		texts: map[string]string{
			auth.CodeUserNotFound: "User not found",
		},
	}
	opReset = operation{name: "reset_password", fallback: "Error! Try again."}
)

type handlers struct {
	accounts Accounts
	cookie   CookieOptions
	logger   *slog.Logger
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

var okResponse = gin.H{"ok": true}

func (h *handlers) register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, opRegister, err)
		return
	}
	_, err := h.accounts.Register(c.Request.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, opRegister, err)
		return
	}
	c.JSON(http.StatusOK, okResponse)
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, opLogin, err)
		return
	}
	session, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, opLogin, err)
		return
	}

	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, session.Token, maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
	c.JSON(http.StatusOK, session.User.Public())
}

func (h *handlers) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Sign out success"})
}

func (h *handlers) currentUser(c *gin.Context, p auth.Principal) {
	if _, err := h.accounts.CurrentUser(c.Request.Context(), p); err != nil {
		h.fail(c, opCurrentUser, err)
		return
	}
	c.JSON(http.StatusOK, okResponse)
}

func (h *handlers) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, opForgot, err)
		return
	}
	if err := h.accounts.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.fail(c, opForgot, err)
		return
	}
	c.JSON(http.StatusOK, okResponse)
}

func (h *handlers) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, opReset, err)
		return
	}
	err := h.accounts.ResetPassword(c.Request.Context(), auth.ResetInput{
		Email:       req.Email,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.fail(c, opReset, err)
		return
	}
	c.JSON(http.StatusOK, okResponse)
}

func (h *handlers) sendTestEmail(c *gin.Context) {
	h.accounts.SendTestEmail(c.Request.Context())
	c.JSON(http.StatusOK, okResponse)
}

// bindJSON decodes the request body into dst. An empty body leaves dst zero.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return oops.Code("HTTP_BAD_REQUEST").With("path", c.Request.URL.Path).Wrap(err)
	}
	return nil
}

// fail answers 400 with the operation's text for err. Expected rejections
// are logged at info; anything else is logged as an error and answered with
// the generic text.
func (h *handlers) fail(c *gin.Context, op operation, err error) {
	ctx := c.Request.Context()
	code := errutil.Code(err)
	text, known := op.texts[code]
	if known {
		h.logger.InfoContext(ctx, "request rejected", "operation", op.name, "code", code)
	} else {
		text = op.fallback
		errutil.LogErrorContext(ctx, h.logger.With("operation", op.name), "request failed", err)
	}
	c.String(http.StatusBadRequest, text)
}
