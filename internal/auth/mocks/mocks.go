// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

// Package mocks provides testify mocks for the auth collaborator
// interfaces.
package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/taskhive/taskhive/internal/auth"
)

// MockUserRepository mocks auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock that asserts its expectations on
// test cleanup.
func NewMockUserRepository(t *testing.T) *MockUserRepository {
	t.Helper()
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

// MockSessionStore mocks auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

// NewMockSessionStore creates a mock that asserts its expectations on
// test cleanup.
func NewMockSessionStore(t *testing.T) *MockSessionStore {
	t.Helper()
	m := &MockSessionStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionStore) Set(ctx context.Context, sessionID string, record *auth.SessionRecord, ttl time.Duration) error {
	return m.Called(ctx, sessionID, record, ttl).Error(0)
}

func (m *MockSessionStore) Get(ctx context.Context, sessionID string) (*auth.SessionRecord, error) {
	args := m.Called(ctx, sessionID)
	record, _ := args.Get(0).(*auth.SessionRecord)
	return record, args.Error(1)
}

func (m *MockSessionStore) Delete(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockSessionStore) Extend(ctx context.Context, sessionID string, extra time.Duration) error {
	return m.Called(ctx, sessionID, extra).Error(0)
}

func (m *MockSessionStore) PutChallenge(ctx context.Context, email string, challenge *auth.OtpChallenge, ttl time.Duration) error {
	return m.Called(ctx, email, challenge, ttl).Error(0)
}

func (m *MockSessionStore) GetChallenge(ctx context.Context, email string) (*auth.OtpChallenge, error) {
	args := m.Called(ctx, email)
	challenge, _ := args.Get(0).(*auth.OtpChallenge)
	return challenge, args.Error(1)
}

func (m *MockSessionStore) DeleteChallenge(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockSessionStore) SetMarker(ctx context.Context, key string, ttl time.Duration) error {
	return m.Called(ctx, key, ttl).Error(0)
}

func (m *MockSessionStore) HasMarker(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// MockPasswordHasher mocks auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on
// test cleanup.
func NewMockPasswordHasher(t *testing.T) *MockPasswordHasher {
	t.Helper()
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Compare(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// MockOtpGenerator mocks auth.OtpGenerator.
type MockOtpGenerator struct {
	mock.Mock
}

// NewMockOtpGenerator creates a mock that asserts its expectations on
// test cleanup.
func NewMockOtpGenerator(t *testing.T) *MockOtpGenerator {
	t.Helper()
	m := &MockOtpGenerator{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockOtpGenerator) Generate(length int) (string, error) {
	args := m.Called(length)
	return args.String(0), args.Error(1)
}

// MockEmailSender mocks auth.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

// NewMockEmailSender creates a mock that asserts its expectations on
// test cleanup.
func NewMockEmailSender(t *testing.T) *MockEmailSender {
	t.Helper()
	m := &MockEmailSender{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEmailSender) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}
