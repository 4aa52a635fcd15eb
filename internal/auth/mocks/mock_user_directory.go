// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks for the auth interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/webauth/internal/auth"
)

// MockUserDirectory is a mock of auth.UserDirectory.
type MockUserDirectory struct {
	mock.Mock
}

// NewMockUserDirectory creates a MockUserDirectory that asserts its expectations on cleanup.
func NewMockUserDirectory(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockUserDirectory {
	m := &MockUserDirectory{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// FindByEmail provides a mock function.
func (m *MockUserDirectory) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	ret := m.Called(ctx, email)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

// FindByID provides a mock function.
func (m *MockUserDirectory) FindByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	ret := m.Called(ctx, id)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

// Insert provides a mock function.
func (m *MockUserDirectory) Insert(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

// SetResetCode provides a mock function.
func (m *MockUserDirectory) SetResetCode(ctx context.Context, email, code string) (*auth.User, error) {
	ret := m.Called(ctx, email, code)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

// ResetPassword provides a mock function.
func (m *MockUserDirectory) ResetPassword(ctx context.Context, email, code, passwordHash string) (bool, error) {
	ret := m.Called(ctx, email, code, passwordHash)
	return ret.Bool(0), ret.Error(1)
}

// UpdatePasswordHash provides a mock function.
func (m *MockUserDirectory) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

var _ auth.UserDirectory = (*MockUserDirectory)(nil)
