// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"

	"github.com/holomush/webauth/pkg/errutil"
)

var errSentinel = errors.New("sentinel")

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	errutil.AssertErrorCode(t, oops.Code("MY_CODE").Errorf("test error"), "MY_CODE")
}

func TestAssertErrorCode_DeepestCodeWins(t *testing.T) {
	inner := oops.Code("USER_NOT_FOUND").Wrap(errSentinel)
	outer := oops.Code("LOGIN_FAILED").Wrap(inner)
	errutil.AssertErrorCode(t, outer, "USER_NOT_FOUND")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	errutil.AssertErrorContext(t, oops.With("user_id", "123").Errorf("test error"), "user_id", "123")
}

func TestAssertCodedSentinel(t *testing.T) {
	err := oops.Code("USER_DUPLICATE_EMAIL").With("email", "a@example.com").Wrap(errSentinel)
	errutil.AssertCodedSentinel(t, err, "USER_DUPLICATE_EMAIL", errSentinel)
	errutil.AssertErrorContext(t, err, "email", "a@example.com")
}
