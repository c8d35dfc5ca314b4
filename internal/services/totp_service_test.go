package services

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/auth"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/repositories/memory"
)

func newTOTPFixture(t *testing.T) (*TOTPService, *repositories.Store, *models.User) {
	t.Helper()
	store := memory.NewStore()

	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-1",
		Name:         "Priya Rao",
		Email:        "priya@example.com",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
		CreatedAt:    istDate(2026, time.January, 1),
		UpdatedAt:    istDate(2026, time.January, 1),
	}
	require.NoError(t, store.Users.Save(context.Background(), user))
	return NewTOTPService(store), store, user
}

// enroll2FA walks the full setup flow and returns the shared secret and the
// plaintext backup codes
func enroll2FA(t *testing.T, svc *TOTPService, userID string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := svc.GenerateSetup(ctx, userID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	resp, err := svc.VerifyAndEnable(ctx, userID, code)
	require.NoError(t, err)
	return setup.Secret, resp.Codes
}

func TestTOTPSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("Setup stores a pending secret with a scannable QR", func(t *testing.T) {
		svc, store, user := newTOTPFixture(t)

		setup, err := svc.GenerateSetup(ctx, user.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, setup.Secret)
		assert.Contains(t, setup.QRCode, "data:image/png;base64,")
		assert.Equal(t, "RentLedger", setup.Issuer)
		assert.Equal(t, "priya@example.com", setup.AccountName)

		stored, err := store.Users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, setup.Secret, stored.TOTPSecret)
		assert.False(t, stored.TOTPEnabled)

		status, err := svc.GetStatus(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, status.Enabled)
	})

	t.Run("Setup is rejected once 2FA is on", func(t *testing.T) {
		svc, _, user := newTOTPFixture(t)
		enroll2FA(t, svc, user.ID)

		_, err := svc.GenerateSetup(ctx, user.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "already enabled")
	})

	t.Run("Unknown user is not found", func(t *testing.T) {
		svc, _, _ := newTOTPFixture(t)
		_, err := svc.GenerateSetup(ctx, "ghost")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestVerifyAndEnable(t *testing.T) {
	ctx := context.Background()

	t.Run("First valid code turns 2FA on and issues backup codes", func(t *testing.T) {
		svc, store, user := newTOTPFixture(t)

		setup, err := svc.GenerateSetup(ctx, user.ID)
		require.NoError(t, err)
		code, err := totp.GenerateCode(setup.Secret, time.Now())
		require.NoError(t, err)

		resp, err := svc.VerifyAndEnable(ctx, user.ID, code)
		require.NoError(t, err)
		require.Len(t, resp.Codes, 10)
		for _, backup := range resp.Codes {
			assert.Regexp(t, "^[A-HJ-NP-Z2-9]{8}$", backup)
		}

		stored, err := store.Users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, stored.TOTPEnabled)

		status, err := svc.GetStatus(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, status.Enabled)
		assert.Equal(t, 10, status.BackupCodesLeft)
	})

	t.Run("Wrong code keeps 2FA off", func(t *testing.T) {
		svc, store, user := newTOTPFixture(t)
		_, err := svc.GenerateSetup(ctx, user.ID)
		require.NoError(t, err)

		_, err = svc.VerifyAndEnable(ctx, user.ID, "abcdef")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))

		stored, err := store.Users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, stored.TOTPEnabled)
	})

	t.Run("Enable before setup is rejected", func(t *testing.T) {
		svc, _, user := newTOTPFixture(t)
		_, err := svc.VerifyAndEnable(ctx, user.ID, "123456")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "setup has not been started")
	})

	t.Run("Enable twice is rejected", func(t *testing.T) {
		svc, _, user := newTOTPFixture(t)
		secret, _ := enroll2FA(t, svc, user.ID)

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)
		_, err = svc.VerifyAndEnable(ctx, user.ID, code)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already enabled")
	})
}

func TestTOTPVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("Current authenticator code passes", func(t *testing.T) {
		svc, _, user := newTOTPFixture(t)
		secret, _ := enroll2FA(t, svc, user.ID)

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)
		assert.NoError(t, svc.Verify(ctx, user.ID, code))
	})

	t.Run("Backup code passes once and is burned", func(t *testing.T) {
		svc, _, user := newTOTPFixture(t)
		_, codes := enroll2FA(t, svc, user.ID)

		require.NoError(t, svc.Verify(ctx, user.ID, codes[0]))

		status, err := svc.GetStatus(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 9, status.BackupCodesLeft)

		err = svc.Verify(ctx, user.ID, codes[0])
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "invalid verification code")
	})

	t.Run("Wrong code is rejected", func(t *testing.T) {
		svc, _, user := newTOTPFixture(t)
		enroll2FA(t, svc, user.ID)

		err := svc.Verify(ctx, user.ID, "abcdef")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Verify with 2FA off is rejected", func(t *testing.T) {
		svc, _, user := newTOTPFixture(t)
		err := svc.Verify(ctx, user.ID, "123456")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2FA is not enabled")
	})
}

func TestTOTPDisable(t *testing.T) {
	ctx := context.Background()

	t.Run("Disable requires the password and a current code", func(t *testing.T) {
		svc, store, user := newTOTPFixture(t)
		secret, _ := enroll2FA(t, svc, user.ID)

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		err = svc.Disable(ctx, user.ID, "wrong-pass", code)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid password")

		err = svc.Disable(ctx, user.ID, "s3cret-pass", "abcdef")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid verification code")

		code, err = totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)
		require.NoError(t, svc.Disable(ctx, user.ID, "s3cret-pass", code))

		stored, err := store.Users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, stored.TOTPEnabled)
		assert.Empty(t, stored.TOTPSecret)

		remaining, err := store.TOTP.GetUnusedBackupCodes(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, remaining)
	})

	t.Run("Disable accepts a backup code", func(t *testing.T) {
		svc, store, user := newTOTPFixture(t)
		_, codes := enroll2FA(t, svc, user.ID)

		require.NoError(t, svc.Disable(ctx, user.ID, "s3cret-pass", codes[3]))
		stored, err := store.Users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, stored.TOTPEnabled)
	})

	t.Run("Disable with 2FA off is rejected", func(t *testing.T) {
		svc, _, user := newTOTPFixture(t)
		err := svc.Disable(ctx, user.ID, "s3cret-pass", "123456")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2FA is not enabled")
	})
}

func TestRegenerateBackupCodes(t *testing.T) {
	ctx := context.Background()

	t.Run("Regeneration invalidates the old set", func(t *testing.T) {
		svc, _, user := newTOTPFixture(t)
		_, oldCodes := enroll2FA(t, svc, user.ID)

		resp, err := svc.RegenerateBackupCodes(ctx, user.ID, "s3cret-pass")
		require.NoError(t, err)
		require.Len(t, resp.Codes, 10)

		err = svc.Verify(ctx, user.ID, oldCodes[0])
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))

		assert.NoError(t, svc.Verify(ctx, user.ID, resp.Codes[0]))
	})

	t.Run("Regeneration requires the password", func(t *testing.T) {
		svc, _, user := newTOTPFixture(t)
		enroll2FA(t, svc, user.ID)

		_, err := svc.RegenerateBackupCodes(ctx, user.ID, "wrong-pass")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid password")
	})

	t.Run("Regeneration with 2FA off is rejected", func(t *testing.T) {
		svc, _, user := newTOTPFixture(t)
		_, err := svc.RegenerateBackupCodes(ctx, user.ID, "s3cret-pass")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2FA is not enabled")
	})
}
