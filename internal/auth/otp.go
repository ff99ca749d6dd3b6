// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"time"

	"github.com/samber/oops"
)

// DefaultOTPLength is the number of digits in a one-time code.
const DefaultOTPLength = 6

// OtpGenerator produces short numeric one-time codes. Implementations
// are stateless; expiry is assigned by the caller.
type OtpGenerator interface {
	Generate(length int) (string, error)
}

// CryptoOtpGenerator draws uniformly random digits from crypto/rand.
type CryptoOtpGenerator struct{}

// NewOtpGenerator creates a CryptoOtpGenerator.
func NewOtpGenerator() *CryptoOtpGenerator {
	return &CryptoOtpGenerator{}
}

// Generate returns a numeric string of the given length. A non-positive
// length falls back to DefaultOTPLength.
func (g *CryptoOtpGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultOTPLength
	}

	// Rejection sampling keeps the digit distribution uniform.
	digits := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(digits) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", oops.Code(CodeRepository).With("operation", "crypto/rand.Read").Wrap(err)
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			digits = append(digits, '0'+b%10)
			if len(digits) == length {
				break
			}
		}
	}
	return string(digits), nil
}

// OtpChallenge is a pending forgot-password challenge. It is single-use:
// a successful verification consumes it.
type OtpChallenge struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewOtpChallenge creates a validated OtpChallenge.
func NewOtpChallenge(email, code string, expiresAt time.Time) (*OtpChallenge, error) {
	if email == "" {
		return nil, oops.Code(CodeValidation).Errorf("challenge email cannot be empty")
	}
	if code == "" {
		return nil, oops.Code(CodeValidation).Errorf("challenge code cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code(CodeValidation).Errorf("challenge expiry cannot be zero")
	}
	return &OtpChallenge{
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpired returns true if the challenge has expired.
func (c *OtpChallenge) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Matches compares a submitted code in constant time.
func (c *OtpChallenge) Matches(code string) bool {
	if code == "" || len(code) != len(c.Code) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(c.Code)) == 1
}
