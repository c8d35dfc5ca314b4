package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentledger-backend/internal/config"
	"rentledger-backend/internal/models"
)

func newManager() *JWTManager {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-jwt-secret"
	cfg.JWT.ExpirationHours = 24
	cfg.JWT.Issuer = "rentledger-test"
	return NewJWTManager(cfg)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, VerifyPassword(hash, "wrong-pass"))
	assert.False(t, VerifyPassword("not-a-hash", "s3cret-pass"))
}

func TestStaffTokens(t *testing.T) {
	mgr := newManager()
	user := &models.User{ID: "user-1", Email: "priya@example.com", Role: models.RoleAdmin, IsActive: true}

	t.Run("Round trip carries the claims", func(t *testing.T) {
		token, err := mgr.GenerateToken(user)
		require.NoError(t, err)

		claims, err := mgr.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "priya@example.com", claims.Email)
		assert.Equal(t, models.RoleAdmin, claims.Role)
		assert.True(t, claims.IsActive)
		assert.Equal(t, "rentledger-test", claims.Issuer)
	})

	t.Run("Tampered tokens are rejected", func(t *testing.T) {
		token, err := mgr.GenerateToken(user)
		require.NoError(t, err)

		_, err = mgr.ValidateToken(token + "x")
		assert.Error(t, err)
	})

	t.Run("Tokens signed with another secret are rejected", func(t *testing.T) {
		other := &config.Config{}
		other.JWT.Secret = "different-secret"
		other.JWT.ExpirationHours = 24
		other.JWT.Issuer = "rentledger-test"
		token, err := NewJWTManager(other).GenerateToken(user)
		require.NoError(t, err)

		_, err = mgr.ValidateToken(token)
		assert.Error(t, err)
	})
}

func TestTempTokens(t *testing.T) {
	mgr := newManager()
	user := &models.User{ID: "user-1", Email: "priya@example.com", Role: models.RoleAdmin, IsActive: true}

	token, err := mgr.GenerateTempToken(user)
	require.NoError(t, err)

	claims, err := mgr.ValidateTempToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "2fa_pending", claims.Type)

	// a full session token never doubles as a 2FA handoff token
	session, err := mgr.GenerateToken(user)
	require.NoError(t, err)
	_, err = mgr.ValidateTempToken(session)
	assert.Error(t, err)
}

func TestTenantTokens(t *testing.T) {
	mgr := newManager()
	tenant := &models.Tenant{ID: "tenant-1", Name: "Asha Verma", Phone: "9876543210"}

	t.Run("Round trip carries the claims", func(t *testing.T) {
		token, err := mgr.GenerateTenantToken(tenant, false)
		require.NoError(t, err)

		claims, err := mgr.ValidateTenantToken(token)
		require.NoError(t, err)
		assert.Equal(t, "tenant-1", claims.TenantID)
		assert.Equal(t, "9876543210", claims.Phone)
		assert.Equal(t, "Asha Verma", claims.Name)
		assert.True(t, claims.IsTenant)
	})

	t.Run("Remember me extends the expiry", func(t *testing.T) {
		short, err := mgr.GenerateTenantToken(tenant, false)
		require.NoError(t, err)
		long, err := mgr.GenerateTenantToken(tenant, true)
		require.NoError(t, err)

		shortClaims, err := mgr.ValidateTenantToken(short)
		require.NoError(t, err)
		longClaims, err := mgr.ValidateTenantToken(long)
		require.NoError(t, err)
		assert.True(t, longClaims.ExpiresAt.After(shortClaims.ExpiresAt.Time))
	})

	t.Run("Staff tokens never pass the tenant gate", func(t *testing.T) {
		user := &models.User{ID: "user-1", Email: "priya@example.com", Role: models.RoleAdmin, IsActive: true}
		staff, err := mgr.GenerateToken(user)
		require.NoError(t, err)

		_, err = mgr.ValidateTenantToken(staff)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a tenant token")
	})
}
