// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"math/big"

	"github.com/samber/oops"
)

const (
	// ResetCodeLength is the number of characters in a reset code.
	ResetCodeLength = 6

	resetCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateResetCode returns a random code drawn uniformly from A-Z and 0-9.
func GenerateResetCode() (string, error) {
	limit := big.NewInt(int64(len(resetCodeAlphabet)))
	code := make([]byte, ResetCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", oops.Code("RESET_CODE_GENERATE_FAILED").Wrap(err)
		}
		code[i] = resetCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
