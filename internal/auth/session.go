// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Default lifetimes for ephemeral auth state.
const (
	SessionTTL      = 24 * time.Hour
	OTPChallengeTTL = 10 * time.Minute
	ResetTokenTTL   = 15 * time.Minute
	ReminderTTL     = 30 * 24 * time.Hour
)

// SessionRecord is the server-side record of an authenticated session,
// stored under its session id with a TTL equal to the session lifetime.
type SessionRecord struct {
	UserID    ulid.ULID `json:"user_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSessionRecord creates a validated SessionRecord expiring after ttl.
func NewSessionRecord(userID ulid.ULID, email string, role Role, ttl time.Duration) (*SessionRecord, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code(CodeValidation).Errorf("session user ID cannot be zero")
	}
	if email == "" {
		return nil, oops.Code(CodeValidation).Errorf("session email cannot be empty")
	}
	if ttl <= 0 {
		return nil, oops.Code(CodeValidation).Errorf("session TTL must be positive")
	}

	now := time.Now()
	return &SessionRecord{
		UserID:    userID,
		Email:     email,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpired returns true if the session has expired.
func (r *SessionRecord) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// NewSessionID generates a session identifier. Two concurrent logins for
// the same user get distinct ids; multi-device login is intentional.
func NewSessionID() string {
	return ulid.Make().String()
}

// ResetConsumedKey is the marker key recording that the reset token with
// the given token id was already used.
func ResetConsumedKey(tokenID string) string {
	return "reset:consumed:" + tokenID
}

// ReminderKey is the idempotency marker key for a task reminder that was
// already sent.
func ReminderKey(taskID string, hoursBefore int) string {
	return "reminder:" + taskID + ":" + strconv.Itoa(hoursBefore)
}

// SessionStore is an ephemeral key-value store (Redis) holding session
// records, OTP challenges, and idempotency markers, each with a TTL.
//
// Implementations keep a single persistent connection per process. When
// the connection is down, every operation fails fast with a
// STORE_UNAVAILABLE-coded error instead of hanging; reconnection is the
// surrounding process supervisor's job.
type SessionStore interface {
	// Set upserts a session record with the given TTL, overwriting any
	// existing record and TTL.
	Set(ctx context.Context, sessionID string, record *SessionRecord, ttl time.Duration) error

	// Get returns the record, or nil on miss. A corrupt record is
	// treated as absent, not as an error.
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)

	// Delete removes a session. Deleting an absent key is not an error.
	Delete(ctx context.Context, sessionID string) error

	// Extend pushes the record's expiry and TTL out by extra. If the
	// record is already gone this is a no-op: extending a dead session
	// must not resurrect it. Best-effort under concurrent delete.
	Extend(ctx context.Context, sessionID string, extra time.Duration) error

	// PutChallenge stores the pending OTP challenge for an email,
	// replacing any previous one.
	PutChallenge(ctx context.Context, email string, challenge *OtpChallenge, ttl time.Duration) error

	// GetChallenge returns the pending challenge, or nil on miss.
	GetChallenge(ctx context.Context, email string) (*OtpChallenge, error)

	// DeleteChallenge consumes the pending challenge. Idempotent.
	DeleteChallenge(ctx context.Context, email string) error

	// SetMarker records an idempotency marker with a TTL.
	SetMarker(ctx context.Context, key string, ttl time.Duration) error

	// HasMarker reports whether a marker exists.
	HasMarker(ctx context.Context, key string) (bool, error)
}
