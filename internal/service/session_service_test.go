package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/repository/postgres"
	"github.com/arjun/temporary-social/internal/service"
	"github.com/arjun/temporary-social/internal/testutil"
)

func TestSessionService_Register(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	sessionService := service.NewSessionService(repos.User, cfg)
	ctx := context.Background()

	tests := []struct {
		name    string
		phone   string
		user    string
		setup   func()
		wantErr error
	}{
		{
			name:  "successful registration",
			phone: "+919876543210",
			user:  "alice",
		},
		{
			name:    "invalid phone number",
			phone:   "abc",
			user:    "alice",
			wantErr: &domain.ValidationError{},
		},
		{
			name:    "username too short",
			phone:   "+919876543210",
			user:    "ab",
			wantErr: &domain.ValidationError{},
		},
		{
			name:  "duplicate username",
			phone: "+919876543211",
			user:  "taken",
			setup: func() {
				testutil.NewUserBuilder().WithUsername("taken").Build(t, testDB.DB)
			},
			wantErr: domain.ErrUsernameTaken,
		},
		{
			name:  "duplicate phone number",
			phone: "+919876543212",
			user:  "fresh",
			setup: func() {
				testutil.NewUserBuilder().WithPhoneNumber("+919876543212").Build(t, testDB.DB)
			},
			wantErr: domain.ErrPhoneTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testDB.Truncate(t)

			if tt.setup != nil {
				tt.setup()
			}

			user, err := sessionService.Register(ctx, tt.phone, tt.user)

			if tt.wantErr != nil {
				if _, isValidation := tt.wantErr.(*domain.ValidationError); isValidation {
					var vErr *domain.ValidationError
					assert.ErrorAs(t, err, &vErr)
				} else {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}

			require.NoError(t, err)
			assert.True(t, user.IsActive)
			assert.Equal(t, cfg.SessionDuration, user.SessionEnd.Sub(user.SessionStart))

			remaining := user.TimeRemaining(time.Now())
			assert.Greater(t, remaining, cfg.SessionDuration-time.Minute)
			assert.LessOrEqual(t, remaining, cfg.SessionDuration)
		})
	}
}

func TestSessionService_Extend(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	sessionService := service.NewSessionService(repos.User, cfg)
	ctx := context.Background()

	t.Run("extend resets the full window", func(t *testing.T) {
		testDB.Truncate(t)

		// A session with only an hour left
		user := testutil.NewUserBuilder().
			WithSessionEnd(time.Now().Add(time.Hour)).
			Build(t, testDB.DB)

		extended, err := sessionService.Extend(ctx, user.ID)
		require.NoError(t, err)

		assert.Equal(t, cfg.SessionDuration, extended.SessionEnd.Sub(extended.SessionStart))
		assert.True(t, extended.SessionEnd.After(user.SessionEnd))
	})

	t.Run("extend reactivates a logged-out identity", func(t *testing.T) {
		testDB.Truncate(t)

		user := testutil.NewUserBuilder().Inactive().Build(t, testDB.DB)

		extended, err := sessionService.Extend(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, extended.IsActive)
	})

	t.Run("unknown user", func(t *testing.T) {
		testDB.Truncate(t)

		_, err := sessionService.Extend(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestSessionService_Touch(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	sessionService := service.NewSessionService(repos.User, cfg)
	ctx := context.Background()

	t.Run("touch with a stale snapshot keeps a concurrent extension", func(t *testing.T) {
		testDB.Truncate(t)

		user := testutil.NewUserBuilder().
			WithSessionEnd(time.Now().Add(time.Hour)).
			Build(t, testDB.DB)

		// Another request read the user before the extension committed.
		stale, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)

		extended, err := sessionService.Extend(ctx, user.ID)
		require.NoError(t, err)

		sessionService.Touch(ctx, stale)

		fresh, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.WithinDuration(t, extended.SessionEnd, fresh.SessionEnd, time.Second)
		assert.True(t, fresh.LastActive.After(user.LastActive))
	})

	t.Run("touch with a stale snapshot keeps a concurrent logout", func(t *testing.T) {
		testDB.Truncate(t)

		user := testutil.NewUserBuilder().Build(t, testDB.DB)

		stale, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)

		require.NoError(t, sessionService.Logout(ctx, user.ID))
		sessionService.Touch(ctx, stale)

		fresh, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, fresh.IsActive)
	})
}

func TestSessionService_ResumeOrExtend(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	sessionService := service.NewSessionService(repos.User, cfg)
	ctx := context.Background()

	t.Run("unknown phone requires registration", func(t *testing.T) {
		testDB.Truncate(t)

		_, err := sessionService.ResumeOrExtend(ctx, "+911234567890")
		assert.ErrorIs(t, err, domain.ErrRegistrationRequired)
	})

	t.Run("known phone resumes with full window", func(t *testing.T) {
		testDB.Truncate(t)

		user := testutil.NewUserBuilder().
			WithSessionEnd(time.Now().Add(-time.Minute)). // already expired
			Build(t, testDB.DB)

		resumed, err := sessionService.ResumeOrExtend(ctx, user.PhoneNumber)
		require.NoError(t, err)
		assert.True(t, resumed.Live(time.Now()))
		assert.Equal(t, cfg.SessionDuration, resumed.SessionEnd.Sub(resumed.SessionStart))
	})
}

func TestSessionService_Classify(t *testing.T) {
	cfg := testutil.TestConfig()
	sessionService := service.NewSessionService(nil, cfg)
	now := time.Now()

	tests := []struct {
		name      string
		remaining time.Duration
		want      service.SessionState
	}{
		{"fresh session", 4 * time.Hour, service.SessionStateOK},
		{"inside warning window", 20 * time.Minute, service.SessionStateExpiringSoon},
		{"inside critical window", 5 * time.Minute, service.SessionStateCritical},
		{"expired", -time.Minute, service.SessionStateExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &domain.User{
				IsActive:   true,
				SessionEnd: now.Add(tt.remaining),
			}
			assert.Equal(t, tt.want, sessionService.Classify(user, now))
		})
	}
}

func TestSessionService_Tokens(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	sessionService := service.NewSessionService(repos.User, cfg)
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		testDB.Truncate(t)

		user := testutil.NewUserBuilder().Build(t, testDB.DB)

		token, err := sessionService.GenerateToken(user)
		require.NoError(t, err)

		got, err := sessionService.ValidateToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("token rejected after session expiry", func(t *testing.T) {
		testDB.Truncate(t)

		user := testutil.NewUserBuilder().Build(t, testDB.DB)
		token, err := sessionService.GenerateToken(user)
		require.NoError(t, err)

		// Session ends while the token itself is still within its lifetime
		require.NoError(t, testDB.DB.Model(&domain.User{}).
			Where("id = ?", user.ID).
			Update("session_end", time.Now().Add(-time.Second)).Error)

		_, err = sessionService.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, domain.ErrSessionExpired)
	})

	t.Run("token rejected after logout", func(t *testing.T) {
		testDB.Truncate(t)

		user := testutil.NewUserBuilder().Build(t, testDB.DB)
		token, err := sessionService.GenerateToken(user)
		require.NoError(t, err)

		require.NoError(t, sessionService.Logout(ctx, user.ID))

		_, err = sessionService.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, domain.ErrSessionExpired)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := sessionService.ValidateToken(ctx, "not.a.token")
		assert.Error(t, err)
	})
}
