// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

// Package redis implements auth.SessionStore on a Redis backend.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/observability"
)

// Key namespaces. Marker keys arrive pre-namespaced from auth helpers.
const (
	sessionPrefix   = "session:"
	challengePrefix = "otp:"
)

// Initial connect backoff parameters.
const (
	connectBackoff  = 500 * time.Millisecond
	connectAttempts = 5
)

// Store holds one persistent Redis client for the whole process. After a
// connection failure it marks itself disconnected and every operation
// fails fast with STORE_UNAVAILABLE until the supervisor reconnects it.
type Store struct {
	client    *redis.Client
	logger    *slog.Logger
	connected atomic.Bool
}

// NewStore creates a Store from a redis:// URL. The store starts
// disconnected; call Connect before use.
func NewStore(url string, logger *slog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code(auth.CodeValidation).With("operation", "parse redis url").Wrap(err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client: redis.NewClient(opts),
		logger: logger,
	}, nil
}

// Connect pings the server with exponential backoff until it answers or
// the attempts run out.
func (s *Store) Connect(ctx context.Context) error {
	backoff := retry.WithMaxRetries(connectAttempts, retry.NewExponential(connectBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := s.client.Ping(ctx).Err(); pingErr != nil {
			s.logger.Warn("session store ping failed, retrying", "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		return oops.Code(auth.CodeStoreDown).With("operation", "connect").Wrap(err)
	}
	s.connected.Store(true)
	return nil
}

// Close tears down the connection. The store refuses further operations.
func (s *Store) Close() error {
	s.connected.Store(false)
	if err := s.client.Close(); err != nil {
		return oops.Code(auth.CodeStoreDown).With("operation", "close").Wrap(err)
	}
	return nil
}

// Connected reports whether the store believes its connection is up.
func (s *Store) Connected() bool {
	return s.connected.Load()
}

// guard fails fast when the store is disconnected.
func (s *Store) guard() error {
	if !s.connected.Load() {
		return oops.Code(auth.CodeStoreDown).Errorf("session store is disconnected")
	}
	return nil
}

// fail wraps a driver error. Everything except a plain miss goes through
// here. Connection-level failures also latch the store disconnected so
// later calls fail fast; a caller canceling its own context is a
// per-request condition and must not take the store down for everyone.
func (s *Store) fail(operation string, err error) error {
	observability.RecordStoreError(operation)
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.connected.Store(false)
	}
	return oops.Code(auth.CodeStoreDown).With("operation", operation).Wrap(err)
}

// Set upserts a session record with the given TTL.
func (s *Store) Set(ctx context.Context, sessionID string, record *auth.SessionRecord, ttl time.Duration) error {
	if err := s.guard(); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return oops.Code(auth.CodeRepository).With("operation", "marshal session").Wrap(err)
	}
	if err := s.client.Set(ctx, sessionPrefix+sessionID, data, ttl).Err(); err != nil {
		return s.fail("set session", err)
	}
	return nil
}

// Get returns the session record, or nil on miss. A record that fails to
// deserialize is treated as absent and evicted.
func (s *Store) Get(ctx context.Context, sessionID string) (*auth.SessionRecord, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, sessionPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("get session", err)
	}

	var record auth.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.Warn("evicting corrupt session record", "session_id", sessionID, "error", err)
		_ = s.client.Del(ctx, sessionPrefix+sessionID).Err() //nolint:errcheck // best effort eviction
		return nil, nil
	}
	return &record, nil
}

// Delete removes a session. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.client.Del(ctx, sessionPrefix+sessionID).Err(); err != nil {
		return s.fail("delete session", err)
	}
	return nil
}

// Extend pushes a session's expiry and TTL out by extra inside an
// optimistic transaction (WATCH). If the key is gone the call is a
// no-op; if a concurrent write races the extension, the loser gives up
// rather than resurrecting stale data.
func (s *Store) Extend(ctx context.Context, sessionID string, extra time.Duration) error {
	if err := s.guard(); err != nil {
		return err
	}
	key := sessionPrefix + sessionID

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil // session already gone, do not resurrect
		}
		if err != nil {
			return err
		}

		var record auth.SessionRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil // corrupt record, treat as absent
		}
		record.ExpiresAt = record.ExpiresAt.Add(extra)

		updated, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, time.Until(record.ExpiresAt))
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// Concurrent extend or delete won the race; best effort.
		s.logger.Debug("session extend lost optimistic transaction", "session_id", sessionID)
		return nil
	}
	if err != nil {
		return s.fail("extend session", err)
	}
	return nil
}

// PutChallenge stores the pending OTP challenge for an email.
func (s *Store) PutChallenge(ctx context.Context, email string, challenge *auth.OtpChallenge, ttl time.Duration) error {
	if err := s.guard(); err != nil {
		return err
	}
	data, err := json.Marshal(challenge)
	if err != nil {
		return oops.Code(auth.CodeRepository).With("operation", "marshal challenge").Wrap(err)
	}
	if err := s.client.Set(ctx, challengePrefix+email, data, ttl).Err(); err != nil {
		return s.fail("put challenge", err)
	}
	return nil
}

// GetChallenge returns the pending challenge, or nil on miss.
func (s *Store) GetChallenge(ctx context.Context, email string) (*auth.OtpChallenge, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, challengePrefix+email).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("get challenge", err)
	}

	var challenge auth.OtpChallenge
	if err := json.Unmarshal(data, &challenge); err != nil {
		s.logger.Warn("evicting corrupt otp challenge", "error", err)
		_ = s.client.Del(ctx, challengePrefix+email).Err() //nolint:errcheck // best effort eviction
		return nil, nil
	}
	return &challenge, nil
}

// DeleteChallenge consumes the pending challenge. Idempotent.
func (s *Store) DeleteChallenge(ctx context.Context, email string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.client.Del(ctx, challengePrefix+email).Err(); err != nil {
		return s.fail("delete challenge", err)
	}
	return nil
}

// SetMarker records an idempotency marker with a TTL.
func (s *Store) SetMarker(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, "sent", ttl).Err(); err != nil {
		return s.fail("set marker", err)
	}
	return nil
}

// HasMarker reports whether a marker exists.
func (s *Store) HasMarker(ctx context.Context, key string) (bool, error) {
	if err := s.guard(); err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, s.fail("has marker", err)
	}
	return n > 0, nil
}
