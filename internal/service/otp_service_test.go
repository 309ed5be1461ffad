package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/notify"
	"github.com/arjun/temporary-social/internal/repository/postgres"
	"github.com/arjun/temporary-social/internal/service"
	"github.com/arjun/temporary-social/internal/testutil"
)

func TestOTPService_Issue(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	otpService := service.NewOTPService(repos.OTP, notify.NewLogNotifier(), cfg)
	ctx := context.Background()

	t.Run("valid phone number", func(t *testing.T) {
		testDB.Truncate(t)

		challenge, code, err := otpService.Issue(ctx, "+919876543210")
		require.NoError(t, err)

		assert.Len(t, code, 6)
		assert.Equal(t, "+919876543210", challenge.PhoneNumber)
		assert.WithinDuration(t, time.Now().Add(cfg.OTPExpiry), challenge.ExpiresAt, 5*time.Second)

		// Only the hash is stored
		assert.NotContains(t, challenge.CodeHash, code)
	})

	t.Run("invalid phone number", func(t *testing.T) {
		testDB.Truncate(t)

		_, _, err := otpService.Issue(ctx, "not-a-phone")
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("reissue invalidates previous code", func(t *testing.T) {
		testDB.Truncate(t)

		_, oldCode, err := otpService.Issue(ctx, "+919876543210")
		require.NoError(t, err)

		_, newCode, err := otpService.Issue(ctx, "+919876543210")
		require.NoError(t, err)

		// The superseded code no longer matches anything verifiable
		err = otpService.Verify(ctx, "+919876543210", oldCode)
		if oldCode != newCode {
			var mismatch *domain.OTPMismatchError
			assert.ErrorAs(t, err, &mismatch)
		}

		assert.NoError(t, otpService.Verify(ctx, "+919876543210", newCode))
	})
}

func TestOTPService_Verify(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	cfg := testutil.TestConfig()
	otpService := service.NewOTPService(repos.OTP, notify.NewLogNotifier(), cfg)
	ctx := context.Background()

	const phone = "+919876543210"

	t.Run("correct code on third attempt succeeds", func(t *testing.T) {
		testDB.Truncate(t)

		challenge, code, err := otpService.Issue(ctx, phone)
		require.NoError(t, err)

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		var mismatch *domain.OTPMismatchError
		err = otpService.Verify(ctx, phone, wrong)
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, 2, mismatch.Remaining)

		err = otpService.Verify(ctx, phone, wrong)
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, 1, mismatch.Remaining)

		// The bound is checked before counting, so the third attempt with
		// the right code still wins
		require.NoError(t, otpService.Verify(ctx, phone, code))

		var stored domain.OTPChallenge
		require.NoError(t, testDB.DB.First(&stored, "id = ?", challenge.ID).Error)
		assert.True(t, stored.Verified)
		assert.Equal(t, 3, stored.Attempts)
	})

	t.Run("attempts exhausted", func(t *testing.T) {
		testDB.Truncate(t)

		_, code, err := otpService.Issue(ctx, phone)
		require.NoError(t, err)

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		for i := 0; i < cfg.OTPMaxAttempts; i++ {
			var mismatch *domain.OTPMismatchError
			require.ErrorAs(t, otpService.Verify(ctx, phone, wrong), &mismatch)
		}

		// Even the correct code is rejected once the budget is spent
		assert.ErrorIs(t, otpService.Verify(ctx, phone, code), domain.ErrOTPAttemptsExhausted)
	})

	t.Run("no challenge issued", func(t *testing.T) {
		testDB.Truncate(t)

		assert.ErrorIs(t, otpService.Verify(ctx, phone, "123456"), domain.ErrOTPNotFound)
	})

	t.Run("expired challenge", func(t *testing.T) {
		testDB.Truncate(t)

		challenge, code, err := otpService.Issue(ctx, phone)
		require.NoError(t, err)

		require.NoError(t, testDB.DB.Model(&domain.OTPChallenge{}).
			Where("id = ?", challenge.ID).
			Update("expires_at", time.Now().Add(-time.Minute)).Error)

		assert.ErrorIs(t, otpService.Verify(ctx, phone, code), domain.ErrOTPExpired)
	})

	t.Run("verified challenge cannot be replayed", func(t *testing.T) {
		testDB.Truncate(t)

		_, code, err := otpService.Issue(ctx, phone)
		require.NoError(t, err)

		require.NoError(t, otpService.Verify(ctx, phone, code))

		// A verified challenge no longer matches as "latest unverified"
		assert.ErrorIs(t, otpService.Verify(ctx, phone, code), domain.ErrOTPNotFound)
	})
}
