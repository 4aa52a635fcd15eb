// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinPasswordLength is the minimum number of characters in a password.
const MinPasswordLength = 6

// User is a registered account.
type User struct {
	ID                ulid.ULID
	Name              string
	Email             string
	PasswordHash      string
	PasswordResetCode *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PublicUser is the view of a User returned to clients.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public strips credential material from the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// HasResetCode reports whether a reset code is pending.
func (u *User) HasResetCode() bool {
	return u.PasswordResetCode != nil && *u.PasswordResetCode != ""
}

// NewUser creates a User with a fresh ID. name is trimmed and email is normalized.
func NewUser(name, email, passwordHash string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, oops.Code(CodeNameRequired).Errorf("name is required")
	}
	email = NormalizeEmail(email)
	if email == "" {
		return nil, oops.Code(CodeInvalidInput).With("field", "email").Errorf("email is required")
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeInvalidInput).With("field", "password_hash").Errorf("password hash is required")
	}

	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword enforces the password length policy. Length is counted in characters.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return oops.Code(CodePasswordTooShort).
			With("min_length", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// UserDirectory stores users. Implementations receive normalized e-mails.
type UserDirectory interface {
	// FindByEmail returns ErrNotFound if no user has the address.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID returns ErrNotFound if the user does not exist.
	FindByID(ctx context.Context, id ulid.ULID) (*User, error)

	// Insert returns ErrDuplicateEmail when the address is taken.
	Insert(ctx context.Context, user *User) error

	// SetResetCode stores code on the user with the address, replacing any
	// previous code, and returns the updated user. Returns ErrNotFound if no
	// user matched.
	SetResetCode(ctx context.Context, email, code string) (*User, error)

	// ResetPassword replaces the password hash and clears the reset code of
	// the user matching both email and code in a single write. It reports
	// whether a user matched.
	ResetPassword(ctx context.Context, email, code, passwordHash string) (bool, error)

	// UpdatePasswordHash replaces the stored hash, used to upgrade legacy hashes.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error
}
