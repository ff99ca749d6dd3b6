// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/taskhive/taskhive/internal/observability"
)

// Service provides registration, login, logout, session validation, and
// password change.
type Service struct {
	users  UserRepository
	store  SessionStore
	hasher PasswordHasher
	tokens *TokenService
	logger *slog.Logger

	accessTTL  time.Duration
	sessionTTL time.Duration
}

// dummyPasswordHash is compared against when a user doesn't exist so the
// unknown-email path costs the same as a real verification. It is a hash
// of nothing anyone will guess, not a credential.
//
//nolint:gosec // G101: intentionally fake hash for timing-attack prevention.
const dummyPasswordHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// NewAuthService creates a Service with the default slog logger.
func NewAuthService(users UserRepository, store SessionStore, hasher PasswordHasher, tokens *TokenService) (*Service, error) {
	return NewAuthServiceWithLogger(users, store, hasher, tokens, slog.Default())
}

// NewAuthServiceWithLogger creates a Service, validating every dependency.
func NewAuthServiceWithLogger(users UserRepository, store SessionStore, hasher PasswordHasher, tokens *TokenService, logger *slog.Logger) (*Service, error) {
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
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		users:      users,
		store:      store,
		hasher:     hasher,
		tokens:     tokens,
		logger:     logger,
		accessTTL:  SessionTTL,
		sessionTTL: SessionTTL,
	}, nil
}

// LoginResult is returned by Register and Login.
type LoginResult struct {
	User      *User
	Token     string
	SessionID string // empty when no session was created
}

// Register creates a new user account and issues an access token.
// A duplicate email fails with AUTH_CONFLICT; a password failing policy
// fails with AUTH_VALIDATION. Registration does not create a session;
// clients start one by logging in.
func (s *Service) Register(ctx context.Context, name, email, password string, role Role) (*LoginResult, error) {
	if err := ValidatePassword(password); err != nil {
		observability.RecordAuthAttempt("register", "validation")
		return nil, err
	}

	email = NormalizeEmail(email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		observability.RecordAuthAttempt("register", "conflict")
		return nil, oops.Code(CodeConflict).Errorf("email is already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodeRepository).With("operation", "find user by email").Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := NewUser(name, email, hash, role)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		// The repository maps a unique violation to AUTH_CONFLICT for
		// the race where two registrations pass the lookup above.
		if ErrorCode(err) == CodeConflict {
			observability.RecordAuthAttempt("register", "conflict")
			return nil, err
		}
		return nil, oops.Code(CodeRepository).With("operation", "create user").Wrap(err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role, s.accessTTL)
	if err != nil {
		return nil, err
	}

	observability.RecordAuthAttempt("register", "ok")
	return &LoginResult{User: user, Token: token}, nil
}

// Login verifies credentials, issues an access token, and creates a
// session record. Unknown email and wrong password fail identically so
// responses carry no user-existence oracle. When the session store is
// unavailable, login degrades: the token is still issued and the
// returned session id is empty.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		observability.RecordAuthAttempt("login", "validation")
		return nil, oops.Code(CodeValidation).Errorf("email and password are required")
	}

	user, lookupErr := s.users.FindByEmail(ctx, NormalizeEmail(email))

	// Verify against a dummy hash when the user is unknown so both
	// failure paths take the same time.
	targetHash := dummyPasswordHash
	userExists := false
	if lookupErr == nil {
		targetHash = user.PasswordHash
		userExists = true
	} else if !errors.Is(lookupErr, ErrNotFound) {
		return nil, oops.Code(CodeRepository).With("operation", "find user by email").Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Compare(password, targetHash)
	if verifyErr != nil && userExists {
		return nil, oops.Code(CodeRepository).With("operation", "compare password").Wrap(verifyErr)
	}
	if !userExists || !valid {
		observability.RecordAuthAttempt("login", "unauthorized")
		return nil, oops.Code(CodeUnauthorized).Errorf("invalid email or password")
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role, s.accessTTL)
	if err != nil {
		return nil, err
	}

	record, err := NewSessionRecord(user.ID, user.Email, user.Role, s.sessionTTL)
	if err != nil {
		return nil, err
	}

	sessionID := NewSessionID()
	if err := s.store.Set(ctx, sessionID, record, s.sessionTTL); err != nil {
		if ErrorCode(err) == CodeStoreDown {
			// Degraded mode: stateless token auth still works.
			s.logger.Warn("session store unavailable, login degraded to token-only",
				"user_id", user.ID.String())
			observability.RecordAuthAttempt("login", "degraded")
			return &LoginResult{User: user, Token: token}, nil
		}
		return nil, oops.Code(CodeRepository).With("operation", "create session").Wrap(err)
	}

	observability.RecordAuthAttempt("login", "ok")
	observability.RecordSessionCreated()
	return &LoginResult{User: user, Token: token, SessionID: sessionID}, nil
}

// Logout deletes the session record. Logging out an absent session is
// not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return oops.Code(CodeValidation).Errorf("session id cannot be empty")
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	observability.RecordSessionDeleted()
	return nil
}

// ValidateToken verifies an access token and returns its claims.
func (s *Service) ValidateToken(token string) (*Claims, error) {
	return s.tokens.Verify(token)
}

// ValidateSession returns the session record for a live session.
// A missing or expired record fails with AUTH_UNAUTHORIZED.
func (s *Service) ValidateSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	if sessionID == "" {
		return nil, oops.Code(CodeValidation).Errorf("session id cannot be empty")
	}
	record, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil || record.IsExpired() {
		return nil, oops.Code(CodeUnauthorized).Errorf("session is invalid or expired")
	}
	return record, nil
}

// ExtendSession pushes a live session's expiry out by extra. Extending a
// session that is already gone is a no-op.
func (s *Service) ExtendSession(ctx context.Context, sessionID string, extra time.Duration) error {
	if sessionID == "" {
		return oops.Code(CodeValidation).Errorf("session id cannot be empty")
	}
	if extra <= 0 {
		return oops.Code(CodeValidation).Errorf("extension must be positive")
	}
	return s.store.Extend(ctx, sessionID, extra)
}

// ChangePassword verifies the current password and persists a new one.
// Other active sessions stay valid; revocation is by session deletion or
// token expiry only.
func (s *Service) ChangePassword(ctx context.Context, userID ulid.ULID, current, newPassword string) error {
	if current == newPassword {
		return oops.Code(CodeValidation).Errorf("new password must differ from the current password")
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeNotFound).Errorf("user not found")
		}
		return oops.Code(CodeRepository).With("operation", "find user by id").Wrap(err)
	}

	valid, err := s.hasher.Compare(current, user.PasswordHash)
	if err != nil {
		return oops.Code(CodeRepository).With("operation", "compare password").Wrap(err)
	}
	if !valid {
		return oops.Code(CodeUnauthorized).Errorf("current password is incorrect")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return oops.Code(CodeRepository).With("operation", "update password hash").Wrap(err)
	}
	return nil
}
