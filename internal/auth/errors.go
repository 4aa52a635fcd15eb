// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when a user with the same e-mail already exists.
var ErrDuplicateEmail = errors.New("email already taken")

// ErrInvalidToken is returned when a session token fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Error codes attached to errors returned by Service.
const (
	CodeNameRequired     = "AUTH_NAME_REQUIRED"
	CodePasswordTooShort = "AUTH_PASSWORD_TOO_SHORT"
	CodeInvalidInput     = "AUTH_INVALID_INPUT"
	CodeDuplicateEmail   = "USER_DUPLICATE_EMAIL"
	CodeUserNotFound     = "AUTH_USER_NOT_FOUND"
	CodeWrongPassword    = "AUTH_WRONG_PASSWORD"
	CodeInvalidToken     = "AUTH_INVALID_TOKEN"

	CodeRegisterFailed       = "REGISTER_FAILED"
	CodeLoginFailed          = "LOGIN_FAILED"
	CodeCurrentUserFailed    = "CURRENT_USER_FAILED"
	CodeForgotPasswordFailed = "FORGOT_PASSWORD_FAILED"
	CodeResetPasswordFailed  = "RESET_PASSWORD_FAILED"
)
