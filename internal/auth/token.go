// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultTokenTTL is how long an issued session token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// MinTokenSecretLength is the minimum signing secret length in bytes.
const MinTokenSecretLength = 32

// TokenIssuer signs and verifies HS256 session tokens whose subject is a user ID.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. issuer may be empty.
func NewTokenIssuer(secret string, ttl time.Duration, issuer string) (*TokenIssuer, error) {
	if len(secret) < MinTokenSecretLength {
		return nil, oops.Code("AUTH_TOKEN_CONFIG").
			With("min_length", MinTokenSecretLength).
			Errorf("token secret must be at least %d bytes", MinTokenSecretLength)
	}
	if ttl <= 0 {
		return nil, oops.Code("AUTH_TOKEN_CONFIG").With("ttl", ttl.String()).Errorf("token ttl must be positive")
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for subject and returns it with its expiry.
func (i *TokenIssuer) Issue(subject ulid.ULID) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject.String(),
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("AUTH_TOKEN_SIGN_FAILED").With("subject", subject.String()).Wrap(err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature, algorithm and expiry of raw and returns its subject.
// Every failure wraps ErrInvalidToken.
func (i *TokenIssuer) Verify(raw string) (ulid.ULID, error) {
	if raw == "" {
		return ulid.ULID{}, oops.Code(CodeInvalidToken).With("reason", "empty").Wrap(ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeInvalidToken).With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	if !token.Valid {
		return ulid.ULID{}, oops.Code(CodeInvalidToken).With("reason", "invalid").Wrap(ErrInvalidToken)
	}

	id, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeInvalidToken).With("reason", "bad subject").Wrap(ErrInvalidToken)
	}
	return id, nil
}
