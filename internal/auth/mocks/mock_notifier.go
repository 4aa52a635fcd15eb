// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/webauth/internal/auth"
)

// MockNotifier is a mock of auth.Notifier.
type MockNotifier struct {
	mock.Mock
}

// NewMockNotifier creates a MockNotifier that asserts its expectations on cleanup.
func NewMockNotifier(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// SendResetCode provides a mock function.
func (m *MockNotifier) SendResetCode(ctx context.Context, to, code string) error {
	return m.Called(ctx, to, code).Error(0)
}

// SendTestEmail provides a mock function.
func (m *MockNotifier) SendTestEmail(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ auth.Notifier = (*MockNotifier)(nil)
