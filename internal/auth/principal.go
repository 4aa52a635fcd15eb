// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "github.com/oklog/ulid/v2"

// Principal identifies the authenticated caller of a request.
type Principal struct {
	UserID ulid.ULID
}
