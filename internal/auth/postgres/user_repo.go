// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements auth storage on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/webauth/internal/auth"
)

// poolIface is the subset of *pgxpool.Pool used here. pgxmock.PgxPoolIface satisfies it.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, name, email, password_hash, password_reset_code, created_at, updated_at`

// UserDirectory implements auth.UserDirectory using PostgreSQL.
type UserDirectory struct {
	pool poolIface
}

// NewUserDirectory creates a new UserDirectory.
func NewUserDirectory(pool poolIface) *UserDirectory {
	return &UserDirectory{pool: pool}
}

// FindByEmail retrieves a user by email (case-insensitive).
func (r *UserDirectory) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// FindByID retrieves a user by ID.
func (r *UserDirectory) FindByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// Insert stores a new user. A unique violation on the email index maps to auth.ErrDuplicateEmail.
func (r *UserDirectory) Insert(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		user.ID.String(),
		user.Name,
		user.Email,
		user.PasswordHash,
		user.PasswordResetCode,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_DUPLICATE_EMAIL").
				With("email", user.Email).
				With("constraint", pgErr.ConstraintName).
				Wrap(auth.ErrDuplicateEmail)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// SetResetCode stores a reset code and returns the updated user.
func (r *UserDirectory) SetResetCode(ctx context.Context, email, code string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET password_reset_code = $2, updated_at = $3
		WHERE LOWER(email) = LOWER($1)
		RETURNING `+userColumns,
		email, code, time.Now().UTC())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_SET_RESET_CODE_FAILED").
			With("operation", "set reset code").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// ResetPassword writes the new hash and clears the reset code in one statement,
// so a code can be consumed at most once.
func (r *UserDirectory) ResetPassword(ctx context.Context, email, code, passwordHash string) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $3, password_reset_code = NULL, updated_at = $4
		WHERE LOWER(email) = LOWER($1) AND password_reset_code = $2
	`, email, code, passwordHash, time.Now().UTC())
	if err != nil {
		return false, oops.Code("USER_RESET_PASSWORD_FAILED").
			With("operation", "reset password").
			With("email", email).
			Wrap(err)
	}
	return result.RowsAffected() > 0, nil
}

// UpdatePasswordHash updates only the password hash for a user.
func (r *UserDirectory) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now().UTC())
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password hash").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr string
		user  auth.User
	)
	err := row.Scan(
		&idStr,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.PasswordResetCode,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}

	user.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_CORRUPT_ID").With("id", idStr).Wrap(err)
	}
	return &user, nil
}

var _ auth.UserDirectory = (*UserDirectory)(nil)
