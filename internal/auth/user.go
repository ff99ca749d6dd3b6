// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is a coarse authorization level carried in token claims.
type Role string

// Known roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// MinPasswordLength is the registration/reset password policy floor.
const MinPasswordLength = 8

// User represents a user account. The password hash is never the
// plaintext password.
type User struct {
	ID           ulid.ULID
	Name         string
	Email        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User. The email is normalized to lower
// case; an empty role defaults to RoleUser.
func NewUser(name, email, passwordHash string, role Role) (*User, error) {
	if name == "" {
		return nil, oops.Code(CodeValidation).Errorf("name cannot be empty")
	}
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, oops.Code(CodeValidation).Errorf("invalid email address")
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeValidation).Errorf("password hash cannot be empty")
	}
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return nil, oops.Code(CodeValidation).With("role", string(role)).Errorf("unknown role")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail lowercases and trims an email address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword enforces the registration/reset password policy:
// at least MinPasswordLength characters with one uppercase letter, one
// lowercase letter, and one digit. Login does not use this; it accepts
// any non-empty password.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code(CodeValidation).
			With("min_length", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return oops.Code(CodeValidation).
			Errorf("password must contain an uppercase letter, a lowercase letter, and a digit")
	}
	return nil
}

// UserRepository manages durable user persistence. Implementations must
// wrap driver failures; the services treat anything that is not
// ErrNotFound or a conflict as an opaque repository error.
type UserRepository interface {
	// Create stores a new user. A duplicate email fails with an
	// AUTH_CONFLICT-coded error.
	Create(ctx context.Context, user *User) error

	// FindByID retrieves a user by ID.
	FindByID(ctx context.Context, id ulid.ULID) (*User, error)

	// FindByEmail retrieves a user by normalized email.
	// Returns ErrNotFound (wrapped) when no user has the address.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePasswordHash replaces only the password hash for a user.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error
}
