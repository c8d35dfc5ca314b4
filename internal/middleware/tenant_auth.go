package middleware

import (
	"context"
	"net/http"

	"rentledger-backend/internal/auth"
	"rentledger-backend/internal/repositories"
)

const TenantIDKey contextKey = "tenant_id"
const TenantPhoneKey contextKey = "tenant_phone"

type TenantAuthMiddleware struct {
	jwtManager *auth.JWTManager
	tenantRepo repositories.TenantRepository
}

func NewTenantAuthMiddleware(jwtManager *auth.JWTManager, tenantRepo repositories.TenantRepository) *TenantAuthMiddleware {
	return &TenantAuthMiddleware{
		jwtManager: jwtManager,
		tenantRepo: tenantRepo,
	}
}

// Authenticate validates a tenant portal token. The tenant record is
// reloaded so a deactivated tenant loses access before the token expires.
func (m *TenantAuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtManager.ValidateTenantToken(token)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		tenant, err := m.tenantRepo.GetByID(r.Context(), claims.TenantID)
		if err != nil {
			http.Error(w, "Tenant not found", http.StatusUnauthorized)
			return
		}
		if !tenant.IsActive {
			http.Error(w, "This tenant account is inactive", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), TenantIDKey, tenant.ID)
		ctx = context.WithValue(ctx, TenantPhoneKey, tenant.Phone)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTenantIDFromContext extracts the tenant ID from request context
func GetTenantIDFromContext(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(string)
	return tenantID, ok
}
