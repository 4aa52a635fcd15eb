// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireOops fails the test immediately unless err carries oops metadata.
func requireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode asserts that the deepest code on err's chain is code, the
// same value transports see through Code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	requireOops(t, err)
	assert.Equal(t, code, Code(err), "error: %v", err)
}

// AssertErrorContext asserts that err carries key=value in its oops context.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	ctx := requireOops(t, err).Context()
	if assert.Contains(t, ctx, key, "error: %v", err) {
		assert.Equal(t, value, ctx[key])
	}
}

// AssertCodedSentinel asserts that err wraps target and reports code, the
// shape repositories use when mapping driver errors onto domain sentinels.
func AssertCodedSentinel(t *testing.T, err error, code string, target error) {
	t.Helper()
	AssertErrorCode(t, err, code)
	assert.True(t, errors.Is(err, target), "expected %v in chain of %v", target, err)
}
