// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements account registration, sign-in and password reset.
//
// # Domain Types
//
// A User is created with NewUser, which validates the name and e-mail and
// assigns a ULID. Emails are normalized with NormalizeEmail before they reach
// a UserDirectory, so directory lookups are case-insensitive.
//
// # Primitives
//
//   - PasswordHasher - argon2id hashing with legacy bcrypt verification
//   - TokenIssuer - HS256 session tokens carrying the user ID
//   - GenerateResetCode - six character one-time reset codes
//
// # Services
//
// Service coordinates the flows (register, login, current user, forgot and
// reset password, test e-mail). It is created with NewService, which validates
// its dependencies. Every failure it returns carries one of the Code* values
// declared in errors.go so transports can map it without string matching.
package auth
