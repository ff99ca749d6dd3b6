// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the fixed work factor for password hashing.
const BcryptCost = 12

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code(CodeValidation).Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted one-way hash of the password. The same
	// password hashes to a different string on every call.
	Hash(password string) (string, error)

	// Compare checks the password against a stored hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an
	// error when the stored hash itself is unusable.
	Compare(password, hash string) (bool, error)
}

// BcryptHasher implements PasswordHasher using bcrypt with BcryptCost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with the standard work factor.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: BcryptCost}
}

// Hash produces a bcrypt hash of the password. The random salt is
// embedded in the output string.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code(CodeRepository).With("operation", "bcrypt hash").Wrap(err)
	}
	return string(hashed), nil
}

// Compare checks the password against a stored bcrypt hash. Mismatch is
// not an error; only a malformed hash is.
func (h *BcryptHasher) Compare(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, oops.Code(CodeRepository).With("operation", "bcrypt compare").Wrap(err)
}
