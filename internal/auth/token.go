// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token purposes. A reset token can never be replayed as an access token
// and vice versa.
const (
	PurposeAccess = "access"
	PurposeReset  = "password_reset"
)

// MinTokenSecretLen is the minimum accepted signing secret length.
const MinTokenSecretLen = 32

// Claims are the identity claims carried by a signed token.
type Claims struct {
	Email   string `json:"email"`
	Role    Role   `json:"role,omitempty"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim parsed as a ULID.
func (c *Claims) UserID() (ulid.ULID, error) {
	id, err := ulid.Parse(c.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeInvalidToken).Errorf("invalid or expired token")
	}
	return id, nil
}

// TokenService issues and verifies signed, time-limited tokens.
// Tokens are stateless: nothing is persisted server-side, and revocation
// happens only through session deletion or short TTLs.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given signing secret.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < MinTokenSecretLen {
		return nil, oops.Code(CodeValidation).
			With("min_length", MinTokenSecretLen).
			Errorf("token secret must be at least %d bytes", MinTokenSecretLen)
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Issue creates a signed access token for the given identity.
func (s *TokenService) Issue(userID ulid.ULID, email string, role Role, ttl time.Duration) (string, error) {
	return s.sign(Claims{
		Email:   email,
		Role:    role,
		Purpose: PurposeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
}

// IssueResetToken creates a short-lived token proving that an OTP was
// verified for the given email. The token id (jti) is used by the caller
// to enforce single use.
func (s *TokenService) IssueResetToken(email string, ttl time.Duration) (string, error) {
	return s.sign(Claims{
		Email:   email,
		Purpose: PurposeReset,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
}

// Verify checks an access token and returns its claims.
func (s *TokenService) Verify(token string) (*Claims, error) {
	return s.parse(token, PurposeAccess)
}

// VerifyResetToken checks a reset token and returns its claims.
func (s *TokenService) VerifyResetToken(token string) (*Claims, error) {
	return s.parse(token, PurposeReset)
}

func (s *TokenService) sign(claims Claims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code(CodeRepository).With("operation", "sign token").Wrap(err)
	}
	return token, nil
}

// parse verifies signature, shape, purpose, and expiry. All failure modes
// return the same error so callers cannot distinguish a tampered token
// from an expired one.
func (s *TokenService) parse(token, purpose string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || claims.Purpose != purpose {
		return nil, oops.Code(CodeInvalidToken).Errorf("invalid or expired token")
	}
	return claims, nil
}
