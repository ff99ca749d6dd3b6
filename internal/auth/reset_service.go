// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/taskhive/taskhive/internal/observability"
)

// EmailSender delivers mail to a user. Delivery is a collaborator
// concern; a send failure is surfaced as a soft warning, never as a
// failed reset request.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// PasswordResetService handles the forgot-password flow: OTP issuance,
// OTP verification, and setting a new password with a single-use reset
// token.
type PasswordResetService struct {
	users  UserRepository
	store  SessionStore
	hasher PasswordHasher
	tokens *TokenService
	otp    OtpGenerator
	mail   EmailSender
	logger *slog.Logger

	otpTTL   time.Duration
	resetTTL time.Duration
}

// NewPasswordResetService creates a PasswordResetService, validating
// every dependency.
func NewPasswordResetService(
	users UserRepository,
	store SessionStore,
	hasher PasswordHasher,
	tokens *TokenService,
	otp OtpGenerator,
	mail EmailSender,
	logger *slog.Logger,
) (*PasswordResetService, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if store == nil {
		return nil, oops.Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}
	if otp == nil {
		return nil, oops.Errorf("otp generator is required")
	}
	if mail == nil {
		return nil, oops.Errorf("email sender is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &PasswordResetService{
		users:    users,
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		otp:      otp,
		mail:     mail,
		logger:   logger,
		otpTTL:   OTPChallengeTTL,
		resetTTL: ResetTokenTTL,
	}, nil
}

// ForgotPassword starts a password reset. It returns success whether or
// not the email is registered, to prevent account enumeration; a
// challenge is created and mailed only when the user exists.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	_, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Same outcome as the known-email path.
			return nil
		}
		return oops.Code(CodeRepository).With("operation", "find user by email").Wrap(err)
	}

	code, err := s.otp.Generate(DefaultOTPLength)
	if err != nil {
		return err
	}

	challenge, err := NewOtpChallenge(email, code, time.Now().Add(s.otpTTL))
	if err != nil {
		return err
	}
	if err := s.store.PutChallenge(ctx, email, challenge, s.otpTTL); err != nil {
		return err
	}

	// Delivery failure does not revoke the challenge; the user may
	// retry and the code stays valid until expiry.
	subject := "Your password reset code"
	body := fmt.Sprintf("Your one-time code is %s. It expires in %d minutes.",
		code, int(s.otpTTL.Minutes()))
	if err := s.mail.Send(ctx, email, subject, body); err != nil {
		s.logger.Warn("failed to deliver OTP email", "error", err)
	}

	observability.RecordAuthAttempt("forgot_password", "ok")
	return nil
}

// VerifyOTP checks a submitted code against the pending challenge for
// the email. Success consumes the challenge and returns a short-lived
// reset token; a wrong code leaves the challenge in place so the user
// can retry until expiry.
func (s *PasswordResetService) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	email = NormalizeEmail(email)

	challenge, err := s.store.GetChallenge(ctx, email)
	if err != nil {
		return "", err
	}
	if challenge == nil {
		observability.RecordAuthAttempt("verify_otp", "not_found")
		return "", oops.Code(CodeNotFound).Errorf("no pending password reset for this email")
	}
	if challenge.IsExpired() {
		// The store TTL normally evicts this first; the check covers
		// clock skew between TTL and the embedded expiry.
		_ = s.store.DeleteChallenge(ctx, email) //nolint:errcheck // best effort cleanup
		observability.RecordAuthAttempt("verify_otp", "expired")
		return "", oops.Code(CodeOTPExpired).Errorf("one-time code has expired")
	}
	if !challenge.Matches(code) {
		observability.RecordAuthAttempt("verify_otp", "invalid")
		return "", oops.Code(CodeInvalidOTP).Errorf("one-time code is incorrect")
	}

	// Single use: consume before handing out the reset token.
	if err := s.store.DeleteChallenge(ctx, email); err != nil {
		return "", err
	}

	token, err := s.tokens.IssueResetToken(email, s.resetTTL)
	if err != nil {
		return "", err
	}

	observability.RecordAuthAttempt("verify_otp", "ok")
	return token, nil
}

// SetNewPassword sets a new password using a reset token from VerifyOTP.
// The token is consumed exactly once; any reuse, tampering, or expiry
// fails with AUTH_INVALID_TOKEN.
func (s *PasswordResetService) SetNewPassword(ctx context.Context, resetToken, newPassword string) error {
	claims, err := s.tokens.VerifyResetToken(resetToken)
	if err != nil {
		observability.RecordAuthAttempt("set_new_password", "invalid_token")
		return err
	}

	consumed, err := s.store.HasMarker(ctx, ResetConsumedKey(claims.ID))
	if err != nil {
		return err
	}
	if consumed {
		observability.RecordAuthAttempt("set_new_password", "invalid_token")
		return oops.Code(CodeInvalidToken).Errorf("invalid or expired token")
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeNotFound).Errorf("user not found")
		}
		return oops.Code(CodeRepository).With("operation", "find user by email").Wrap(err)
	}

	// Claim the token before writing the new hash so a concurrent
	// second use fails even if the update below is still in flight.
	if err := s.store.SetMarker(ctx, ResetConsumedKey(claims.ID), s.resetTTL); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return oops.Code(CodeRepository).With("operation", "update password hash").Wrap(err)
	}

	observability.RecordAuthAttempt("set_new_password", "ok")
	return nil
}
