// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/auth/mocks"
	"github.com/taskhive/taskhive/pkg/errutil"
)

func newTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(testTokenSecret)
	require.NoError(t, err)
	return tokens
}

func TestNewAuthService_NilDependencies(t *testing.T) {
	tokens := newTokenService(t)

	tests := []struct {
		name        string
		users       auth.UserRepository
		store       auth.SessionStore
		hasher      auth.PasswordHasher
		tokens      *auth.TokenService
		expectError string
	}{
		{
			name:        "nil users repository",
			users:       nil,
			store:       mocks.NewMockSessionStore(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			tokens:      tokens,
			expectError: "users repository is required",
		},
		{
			name:        "nil session store",
			users:       mocks.NewMockUserRepository(t),
			store:       nil,
			hasher:      mocks.NewMockPasswordHasher(t),
			tokens:      tokens,
			expectError: "session store is required",
		},
		{
			name:        "nil password hasher",
			users:       mocks.NewMockUserRepository(t),
			store:       mocks.NewMockSessionStore(t),
			hasher:      nil,
			tokens:      tokens,
			expectError: "password hasher is required",
		},
		{
			name:        "nil token service",
			users:       mocks.NewMockUserRepository(t),
			store:       mocks.NewMockSessionStore(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			tokens:      nil,
			expectError: "token service is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewAuthService(tt.users, tt.store, tt.hasher, tt.tokens)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestNewAuthServiceWithLogger_NilLogger(t *testing.T) {
	svc, err := auth.NewAuthServiceWithLogger(
		mocks.NewMockUserRepository(t),
		mocks.NewMockSessionStore(t),
		mocks.NewMockPasswordHasher(t),
		newTokenService(t),
		nil,
	)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "logger")
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("successful registration issues token without session", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		store := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		tokens := newTokenService(t)
		svc, err := auth.NewAuthService(users, store, hasher, tokens)
		require.NoError(t, err)

		users.On("FindByEmail", ctx, "alice@example.com").Return(nil, auth.ErrNotFound)
		hasher.On("Hash", "Password1").Return("hashed", nil)
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(nil)

		result, err := svc.Register(ctx, "Alice", "Alice@Example.com", "Password1", auth.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", result.User.Email)
		assert.Equal(t, "hashed", result.User.PasswordHash)
		assert.Empty(t, result.SessionID)

		claims, err := tokens.Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", claims.Email)
	})

	t.Run("weak password fails before any lookup", func(t *testing.T) {
		svc, err := auth.NewAuthService(
			mocks.NewMockUserRepository(t),
			mocks.NewMockSessionStore(t),
			mocks.NewMockPasswordHasher(t),
			newTokenService(t),
		)
		require.NoError(t, err)

		result, err := svc.Register(ctx, "Alice", "alice@example.com", "weak", auth.RoleUser)
		require.Error(t, err)
		assert.Nil(t, result)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	})

	t.Run("existing email conflicts", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		svc, err := auth.NewAuthService(
			users,
			mocks.NewMockSessionStore(t),
			mocks.NewMockPasswordHasher(t),
			newTokenService(t),
		)
		require.NoError(t, err)

		existing, err := auth.NewUser("Alice", "alice@example.com", "hash", auth.RoleUser)
		require.NoError(t, err)
		users.On("FindByEmail", ctx, "alice@example.com").Return(existing, nil)

		result, err := svc.Register(ctx, "Alice", "alice@example.com", "Password1", auth.RoleUser)
		require.Error(t, err)
		assert.Nil(t, result)
		errutil.AssertErrorCode(t, err, auth.CodeConflict)
	})

	t.Run("create race surfaces conflict from repository", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewAuthService(
			users,
			mocks.NewMockSessionStore(t),
			hasher,
			newTokenService(t),
		)
		require.NoError(t, err)

		users.On("FindByEmail", ctx, "alice@example.com").Return(nil, auth.ErrNotFound)
		hasher.On("Hash", "Password1").Return("hashed", nil)
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).
			Return(oops.Code(auth.CodeConflict).Errorf("email is already registered"))

		result, err := svc.Register(ctx, "Alice", "alice@example.com", "Password1", auth.RoleUser)
		require.Error(t, err)
		assert.Nil(t, result)
		errutil.AssertErrorCode(t, err, auth.CodeConflict)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login creates session", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		store := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		tokens := newTokenService(t)
		svc, err := auth.NewAuthService(users, store, hasher, tokens)
		require.NoError(t, err)

		user, err := auth.NewUser("Alice", "alice@example.com", "stored-hash", auth.RoleUser)
		require.NoError(t, err)

		users.On("FindByEmail", ctx, "alice@example.com").Return(user, nil)
		hasher.On("Compare", "Password1", "stored-hash").Return(true, nil)
		store.On("Set", ctx, mock.AnythingOfType("string"),
			mock.AnythingOfType("*auth.SessionRecord"), auth.SessionTTL).Return(nil)

		result, err := svc.Login(ctx, "Alice@Example.com", "Password1")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.NotEmpty(t, result.SessionID)
		assert.Equal(t, user.ID, result.User.ID)
	})

	t.Run("unknown email still runs a hash comparison", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		store := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewAuthService(users, store, hasher, newTokenService(t))
		require.NoError(t, err)

		users.On("FindByEmail", ctx, "unknown@example.com").Return(nil, auth.ErrNotFound)
		hasher.On("Compare", "Password1", mock.AnythingOfType("string")).Return(false, nil)

		result, err := svc.Login(ctx, "unknown@example.com", "Password1")
		require.Error(t, err)
		assert.Nil(t, result)
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})

	t.Run("unknown email and wrong password fail identically", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		store := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewAuthService(users, store, hasher, newTokenService(t))
		require.NoError(t, err)

		user, err := auth.NewUser("Alice", "alice@example.com", "stored-hash", auth.RoleUser)
		require.NoError(t, err)

		users.On("FindByEmail", ctx, "alice@example.com").Return(user, nil)
		users.On("FindByEmail", ctx, "unknown@example.com").Return(nil, auth.ErrNotFound)
		hasher.On("Compare", "wrong", mock.AnythingOfType("string")).Return(false, nil)

		_, wrongPassErr := svc.Login(ctx, "alice@example.com", "wrong")
		_, unknownErr := svc.Login(ctx, "unknown@example.com", "wrong")
		require.Error(t, wrongPassErr)
		require.Error(t, unknownErr)
		assert.Equal(t, wrongPassErr.Error(), unknownErr.Error())
		assert.Equal(t, auth.ErrorCode(wrongPassErr), auth.ErrorCode(unknownErr))
	})

	t.Run("degrades to token-only when store is down", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		store := mocks.NewMockSessionStore(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewAuthService(users, store, hasher, newTokenService(t))
		require.NoError(t, err)

		user, err := auth.NewUser("Alice", "alice@example.com", "stored-hash", auth.RoleUser)
		require.NoError(t, err)

		users.On("FindByEmail", ctx, "alice@example.com").Return(user, nil)
		hasher.On("Compare", "Password1", "stored-hash").Return(true, nil)
		store.On("Set", ctx, mock.AnythingOfType("string"),
			mock.AnythingOfType("*auth.SessionRecord"), auth.SessionTTL).
			Return(oops.Code(auth.CodeStoreDown).Errorf("session store unavailable"))

		result, err := svc.Login(ctx, "alice@example.com", "Password1")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Empty(t, result.SessionID)
	})

	t.Run("empty credentials fail validation", func(t *testing.T) {
		svc, err := auth.NewAuthService(
			mocks.NewMockUserRepository(t),
			mocks.NewMockSessionStore(t),
			mocks.NewMockPasswordHasher(t),
			newTokenService(t),
		)
		require.NoError(t, err)

		_, err = svc.Login(ctx, "", "Password1")
		errutil.AssertErrorCode(t, err, auth.CodeValidation)

		_, err = svc.Login(ctx, "alice@example.com", "")
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the session", func(t *testing.T) {
		store := mocks.NewMockSessionStore(t)
		svc, err := auth.NewAuthService(
			mocks.NewMockUserRepository(t), store,
			mocks.NewMockPasswordHasher(t), newTokenService(t),
		)
		require.NoError(t, err)

		store.On("Delete", ctx, "session-1").Return(nil)
		assert.NoError(t, svc.Logout(ctx, "session-1"))
	})

	t.Run("rejects empty session id", func(t *testing.T) {
		svc, err := auth.NewAuthService(
			mocks.NewMockUserRepository(t),
			mocks.NewMockSessionStore(t),
			mocks.NewMockPasswordHasher(t), newTokenService(t),
		)
		require.NoError(t, err)

		err = svc.Logout(ctx, "")
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	})

	t.Run("propagates store unavailability", func(t *testing.T) {
		store := mocks.NewMockSessionStore(t)
		svc, err := auth.NewAuthService(
			mocks.NewMockUserRepository(t), store,
			mocks.NewMockPasswordHasher(t), newTokenService(t),
		)
		require.NoError(t, err)

		store.On("Delete", ctx, "session-1").
			Return(oops.Code(auth.CodeStoreDown).Errorf("session store unavailable"))

		err = svc.Logout(ctx, "session-1")
		errutil.AssertErrorCode(t, err, auth.CodeStoreDown)
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	ctx := context.Background()

	newSvc := func(t *testing.T, store auth.SessionStore) *auth.Service {
		t.Helper()
		svc, err := auth.NewAuthService(
			mocks.NewMockUserRepository(t), store,
			mocks.NewMockPasswordHasher(t), newTokenService(t),
		)
		require.NoError(t, err)
		return svc
	}

	t.Run("returns live session record", func(t *testing.T) {
		store := mocks.NewMockSessionStore(t)
		svc := newSvc(t, store)

		record, err := auth.NewSessionRecord(ulid.Make(), "alice@example.com", auth.RoleUser, time.Hour)
		require.NoError(t, err)
		store.On("Get", ctx, "session-1").Return(record, nil)

		got, err := svc.ValidateSession(ctx, "session-1")
		require.NoError(t, err)
		assert.Equal(t, record, got)
	})

	t.Run("missing session is unauthorized", func(t *testing.T) {
		store := mocks.NewMockSessionStore(t)
		svc := newSvc(t, store)

		store.On("Get", ctx, "session-1").Return(nil, nil)

		_, err := svc.ValidateSession(ctx, "session-1")
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})

	t.Run("expired record is unauthorized", func(t *testing.T) {
		store := mocks.NewMockSessionStore(t)
		svc := newSvc(t, store)

		expired := &auth.SessionRecord{
			UserID:    ulid.Make(),
			Email:     "alice@example.com",
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		store.On("Get", ctx, "session-1").Return(expired, nil)

		_, err := svc.ValidateSession(ctx, "session-1")
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		store := mocks.NewMockSessionStore(t)
		svc := newSvc(t, store)

		store.On("Get", ctx, "session-1").
			Return(nil, oops.Code(auth.CodeStoreDown).Errorf("session store unavailable"))

		_, err := svc.ValidateSession(ctx, "session-1")
		errutil.AssertErrorCode(t, err, auth.CodeStoreDown)
	})

	t.Run("rejects empty session id", func(t *testing.T) {
		svc := newSvc(t, mocks.NewMockSessionStore(t))

		_, err := svc.ValidateSession(ctx, "")
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	})
}

func TestAuthService_ValidateToken(t *testing.T) {
	tokens := newTokenService(t)
	svc, err := auth.NewAuthService(
		mocks.NewMockUserRepository(t),
		mocks.NewMockSessionStore(t),
		mocks.NewMockPasswordHasher(t), tokens,
	)
	require.NoError(t, err)

	userID := ulid.Make()
	token, err := tokens.Issue(userID, "alice@example.com", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)

	_, err = svc.ValidateToken("garbage")
	errutil.AssertErrorCode(t, err, auth.CodeInvalidToken)
}

func TestAuthService_ExtendSession(t *testing.T) {
	ctx := context.Background()

	t.Run("delegates to the store", func(t *testing.T) {
		store := mocks.NewMockSessionStore(t)
		svc, err := auth.NewAuthService(
			mocks.NewMockUserRepository(t), store,
			mocks.NewMockPasswordHasher(t), newTokenService(t),
		)
		require.NoError(t, err)

		store.On("Extend", ctx, "session-1", time.Hour).Return(nil)
		assert.NoError(t, svc.ExtendSession(ctx, "session-1", time.Hour))
	})

	t.Run("rejects bad input", func(t *testing.T) {
		svc, err := auth.NewAuthService(
			mocks.NewMockUserRepository(t),
			mocks.NewMockSessionStore(t),
			mocks.NewMockPasswordHasher(t), newTokenService(t),
		)
		require.NoError(t, err)

		err = svc.ExtendSession(ctx, "", time.Hour)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)

		err = svc.ExtendSession(ctx, "session-1", 0)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	})
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("changes password after verifying current", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewAuthService(
			users, mocks.NewMockSessionStore(t), hasher, newTokenService(t),
		)
		require.NoError(t, err)

		user, err := auth.NewUser("Alice", "alice@example.com", "old-hash", auth.RoleUser)
		require.NoError(t, err)

		users.On("FindByID", ctx, user.ID).Return(user, nil)
		hasher.On("Compare", "OldPass1", "old-hash").Return(true, nil)
		hasher.On("Hash", "NewPass1").Return("new-hash", nil)
		users.On("UpdatePasswordHash", ctx, user.ID, "new-hash").Return(nil)

		assert.NoError(t, svc.ChangePassword(ctx, user.ID, "OldPass1", "NewPass1"))
	})

	t.Run("new password must differ", func(t *testing.T) {
		svc, err := auth.NewAuthService(
			mocks.NewMockUserRepository(t),
			mocks.NewMockSessionStore(t),
			mocks.NewMockPasswordHasher(t), newTokenService(t),
		)
		require.NoError(t, err)

		err = svc.ChangePassword(ctx, ulid.Make(), "SamePass1", "SamePass1")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
		assert.Contains(t, err.Error(), "differ")
	})

	t.Run("new password must pass policy", func(t *testing.T) {
		svc, err := auth.NewAuthService(
			mocks.NewMockUserRepository(t),
			mocks.NewMockSessionStore(t),
			mocks.NewMockPasswordHasher(t), newTokenService(t),
		)
		require.NoError(t, err)

		err = svc.ChangePassword(ctx, ulid.Make(), "OldPass1", "weak")
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	})

	t.Run("wrong current password is unauthorized", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewAuthService(
			users, mocks.NewMockSessionStore(t), hasher, newTokenService(t),
		)
		require.NoError(t, err)

		user, err := auth.NewUser("Alice", "alice@example.com", "old-hash", auth.RoleUser)
		require.NoError(t, err)

		users.On("FindByID", ctx, user.ID).Return(user, nil)
		hasher.On("Compare", "WrongPass1", "old-hash").Return(false, nil)

		err = svc.ChangePassword(ctx, user.ID, "WrongPass1", "NewPass1")
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		svc, err := auth.NewAuthService(
			users, mocks.NewMockSessionStore(t),
			mocks.NewMockPasswordHasher(t), newTokenService(t),
		)
		require.NoError(t, err)

		id := ulid.Make()
		users.On("FindByID", ctx, id).Return(nil, auth.ErrNotFound)

		err = svc.ChangePassword(ctx, id, "OldPass1", "NewPass1")
		errutil.AssertErrorCode(t, err, auth.CodeNotFound)
	})
}
