package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentledger-backend/internal/apperrors"
	"rentledger-backend/internal/auth"
	"rentledger-backend/internal/config"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/repositories/memory"
)

func newUserFixture(t *testing.T) (*UserService, *repositories.Store) {
	t.Helper()
	store := memory.NewStore()

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-jwt-secret"
	cfg.JWT.ExpirationHours = 24
	cfg.JWT.Issuer = "rentledger-test"

	svc := NewUserService(store, auth.NewJWTManager(cfg))
	svc.nowFn = testClock(istDate(2026, time.January, 10))
	return svc, store
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("First account becomes the admin", func(t *testing.T) {
		svc, _ := newUserFixture(t)

		resp, err := svc.Signup(ctx, &models.SignupRequest{
			Name:     "Priya Rao",
			Email:    " Priya@Example.COM ",
			Password: "s3cret-pass",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, models.RoleAdmin, resp.User.Role)
		assert.Equal(t, "priya@example.com", resp.User.Email)
		assert.True(t, resp.User.IsActive)

		claims, err := svc.JWTManager.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, claims.UserID)
	})

	t.Run("Later signups default to viewer", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		_, err := svc.Signup(ctx, &models.SignupRequest{Name: "Priya Rao", Email: "priya@example.com", Password: "s3cret-pass"})
		require.NoError(t, err)

		resp, err := svc.Signup(ctx, &models.SignupRequest{Name: "Rahul Shah", Email: "rahul@example.com", Password: "another-pass"})
		require.NoError(t, err)
		assert.Equal(t, models.RoleViewer, resp.User.Role)
	})

	t.Run("Duplicate email is rejected regardless of case", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		_, err := svc.Signup(ctx, &models.SignupRequest{Name: "Priya Rao", Email: "priya@example.com", Password: "s3cret-pass"})
		require.NoError(t, err)

		_, err = svc.Signup(ctx, &models.SignupRequest{Name: "Impostor", Email: "PRIYA@example.com", Password: "whatever"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("Signup requires name, email and password", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		for _, req := range []*models.SignupRequest{
			{Email: "a@example.com", Password: "pass"},
			{Name: "A", Password: "pass"},
			{Name: "A", Email: "a@example.com"},
		} {
			_, err := svc.Signup(ctx, req)
			assert.True(t, apperrors.IsValidation(err))
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	signup := func(t *testing.T, svc *UserService) *models.User {
		t.Helper()
		resp, err := svc.Signup(ctx, &models.SignupRequest{
			Name:     "Priya Rao",
			Email:    "priya@example.com",
			Password: "s3cret-pass",
		})
		require.NoError(t, err)
		return resp.User
	}

	t.Run("Valid credentials return a session token", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		user := signup(t, svc)

		resp, step1, err := svc.Login(ctx, &models.LoginRequest{Email: " Priya@Example.com ", Password: "s3cret-pass"})
		require.NoError(t, err)
		assert.Nil(t, step1)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, user.ID, resp.User.ID)
	})

	t.Run("Wrong password is rejected", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		signup(t, svc)

		_, _, err := svc.Login(ctx, &models.LoginRequest{Email: "priya@example.com", Password: "wrong"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "invalid email or password")
	})

	t.Run("Unknown email gets the same rejection", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		_, _, err := svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "invalid email or password")
	})

	t.Run("Deactivated accounts cannot log in", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		user := signup(t, svc)
		inactive := false
		_, err := svc.UpdateUser(ctx, user.ID, &models.UpdateUserRequest{IsActive: &inactive})
		require.NoError(t, err)

		_, _, err = svc.Login(ctx, &models.LoginRequest{Email: "priya@example.com", Password: "s3cret-pass"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "account is deactivated")
	})

	t.Run("Two-factor accounts get a challenge instead of a session", func(t *testing.T) {
		svc, store := newUserFixture(t)
		user := signup(t, svc)
		require.NoError(t, store.Users.SetTOTPSecret(ctx, user.ID, "JBSWY3DPEHPK3PXP"))
		require.NoError(t, store.Users.SetTOTPEnabled(ctx, user.ID, true))

		resp, step1, err := svc.Login(ctx, &models.LoginRequest{Email: "priya@example.com", Password: "s3cret-pass"})
		require.NoError(t, err)
		assert.Nil(t, resp)
		require.NotNil(t, step1)
		assert.True(t, step1.Requires2FA)
		assert.NotEmpty(t, step1.TempToken)
		assert.Contains(t, step1.Message, "authenticator")

		claims, err := svc.JWTManager.ValidateTempToken(step1.TempToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("Login requires email and password", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		_, _, err := svc.Login(ctx, &models.LoginRequest{Email: "priya@example.com"})
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestCompleteTOTPLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Verified challenge exchanges for a session token", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		created, err := svc.Signup(ctx, &models.SignupRequest{Name: "Priya Rao", Email: "priya@example.com", Password: "s3cret-pass"})
		require.NoError(t, err)

		resp, err := svc.CompleteTOTPLogin(ctx, created.User.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, created.User.ID, resp.User.ID)
	})

	t.Run("Deactivated accounts cannot finish the challenge", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		created, err := svc.Signup(ctx, &models.SignupRequest{Name: "Priya Rao", Email: "priya@example.com", Password: "s3cret-pass"})
		require.NoError(t, err)
		inactive := false
		_, err = svc.UpdateUser(ctx, created.User.ID, &models.UpdateUserRequest{IsActive: &inactive})
		require.NoError(t, err)

		_, err = svc.CompleteTOTPLogin(ctx, created.User.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Unknown user is not found", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		_, err := svc.CompleteTOTPLogin(ctx, "ghost")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Role defaults to viewer and the password is hashed", func(t *testing.T) {
		svc, _ := newUserFixture(t)

		user, err := svc.CreateUser(ctx, &models.CreateUserRequest{
			Name:     "Meena Iyer",
			Email:    "Meena@Example.com",
			Phone:    "9812345678",
			Password: "collect0r",
		})
		require.NoError(t, err)
		assert.Equal(t, models.RoleViewer, user.Role)
		assert.Equal(t, "meena@example.com", user.Email)
		assert.True(t, user.IsActive)
		assert.NotEqual(t, "collect0r", user.PasswordHash)
		assert.True(t, auth.VerifyPassword(user.PasswordHash, "collect0r"))
	})

	t.Run("Explicit role is kept", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		user, err := svc.CreateUser(ctx, &models.CreateUserRequest{
			Name:     "Meena Iyer",
			Email:    "meena@example.com",
			Password: "collect0r",
			Role:     models.RoleManager,
		})
		require.NoError(t, err)
		assert.Equal(t, models.RoleManager, user.Role)
	})

	t.Run("Unknown role is rejected", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		_, err := svc.CreateUser(ctx, &models.CreateUserRequest{
			Name:     "Meena Iyer",
			Email:    "meena@example.com",
			Password: "collect0r",
			Role:     "superadmin",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "admin, manager or viewer")
	})

	t.Run("Duplicate email is rejected", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		_, err := svc.CreateUser(ctx, &models.CreateUserRequest{Name: "Meena Iyer", Email: "meena@example.com", Password: "collect0r"})
		require.NoError(t, err)

		_, err = svc.CreateUser(ctx, &models.CreateUserRequest{Name: "Other", Email: "MEENA@example.com", Password: "other"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Name, email and password are required", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		_, err := svc.CreateUser(ctx, &models.CreateUserRequest{Name: "Meena Iyer", Email: "meena@example.com"})
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, svc *UserService, email string) *models.User {
		t.Helper()
		user, err := svc.CreateUser(ctx, &models.CreateUserRequest{
			Name:     "Meena Iyer",
			Email:    email,
			Password: "collect0r",
			Role:     models.RoleManager,
		})
		require.NoError(t, err)
		return user
	}

	t.Run("Empty fields keep the stored values", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		user := seed(t, svc, "meena@example.com")

		updated, err := svc.UpdateUser(ctx, user.ID, &models.UpdateUserRequest{Phone: "9800000000"})
		require.NoError(t, err)
		assert.Equal(t, "9800000000", updated.Phone)
		assert.Equal(t, "Meena Iyer", updated.Name)
		assert.Equal(t, "meena@example.com", updated.Email)
		assert.Equal(t, models.RoleManager, updated.Role)
	})

	t.Run("Email change to a taken address is rejected", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		user := seed(t, svc, "meena@example.com")
		seed(t, svc, "rahul@example.com")

		_, err := svc.UpdateUser(ctx, user.ID, &models.UpdateUserRequest{Email: "Rahul@Example.com"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("Email change to a free address is normalized", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		user := seed(t, svc, "meena@example.com")

		updated, err := svc.UpdateUser(ctx, user.ID, &models.UpdateUserRequest{Email: " Meena.Iyer@Example.com "})
		require.NoError(t, err)
		assert.Equal(t, "meena.iyer@example.com", updated.Email)
	})

	t.Run("Password change re-hashes", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		user := seed(t, svc, "meena@example.com")

		updated, err := svc.UpdateUser(ctx, user.ID, &models.UpdateUserRequest{Password: "new-secret"})
		require.NoError(t, err)
		assert.True(t, auth.VerifyPassword(updated.PasswordHash, "new-secret"))
		assert.False(t, auth.VerifyPassword(updated.PasswordHash, "collect0r"))
	})

	t.Run("Unknown role is rejected", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		user := seed(t, svc, "meena@example.com")
		_, err := svc.UpdateUser(ctx, user.ID, &models.UpdateUserRequest{Role: "owner"})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Unknown user is not found", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		_, err := svc.UpdateUser(ctx, "ghost", &models.UpdateUserRequest{Name: "X"})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Deleted accounts disappear", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		user, err := svc.CreateUser(ctx, &models.CreateUserRequest{Name: "Meena Iyer", Email: "meena@example.com", Password: "collect0r"})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteUser(ctx, user.ID))
		_, err = svc.GetUser(ctx, user.ID)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Deleting an unknown account is not found", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		err := svc.DeleteUser(ctx, "ghost")
		assert.True(t, apperrors.IsNotFound(err))
	})
}
