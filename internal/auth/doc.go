// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

// Package auth provides the authentication and session lifecycle for
// Taskhive.
//
// # Domain Types
//
// Domain types (User, SessionRecord, OtpChallenge) should be created
// using their respective constructors:
//   - NewUser - creates a User with a validated email and password hash
//   - NewSessionRecord - creates a SessionRecord with validated identity and TTL
//   - NewOtpChallenge - creates an OtpChallenge with validated code and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Store and repository implementations receive pre-validated types
// from these constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - register, login, logout, session management, password change
//   - PasswordResetService - OTP-based forgot-password flow
//
// Services are created with New*Service constructors that validate
// dependencies.
//
// # Revocation
//
// Access tokens are stateless. Revocation happens only through session
// deletion in the SessionStore or through token expiry; changing a
// password does not invalidate sessions that are already live.
package auth
