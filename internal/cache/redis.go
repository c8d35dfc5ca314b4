package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// AnalyticsKeyFmt keys a cached analytics window: analytics:<start>:<end>
const AnalyticsKeyFmt = "analytics:%s:%s"

var client *redis.Client

// Init initializes the Redis connection
func Init() error {
	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	host := os.Getenv("REDIS_SERVICE_HOST")
	if host == "" {
		host = "redis" // fallback to service name
	}
	port := os.Getenv("REDIS_SERVICE_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

// authKey derives the cache key for a login attempt. The email hash comes
// first so every entry for one account can be dropped by pattern when its
// password changes.
func authKey(email, password string) string {
	e := sha256.Sum256([]byte(email))
	c := sha256.Sum256([]byte(email + ":" + password))
	return "auth:" + hex.EncodeToString(e[:])[:16] + ":" + hex.EncodeToString(c[:])[:32]
}

// GetCachedAuth checks if credentials are cached and valid
func GetCachedAuth(ctx context.Context, email, password string) (string, bool) {
	if client == nil {
		return "", false
	}
	userID, err := client.Get(ctx, authKey(email, password)).Result()
	if err != nil {
		return "", false
	}
	return userID, true
}

// CacheAuth caches valid credentials for 15 minutes
func CacheAuth(ctx context.Context, email, password, userID string) {
	if client == nil {
		return
	}
	client.Set(ctx, authKey(email, password), userID, 15*time.Minute)
}

// InvalidateAuthForEmail drops every cached login for one account
// Called when: UpdateUser rotates a password, DeleteUser
func InvalidateAuthForEmail(ctx context.Context, email string) {
	e := sha256.Sum256([]byte(email))
	InvalidatePattern(ctx, "auth:"+hex.EncodeToString(e[:])[:16]+":*")
}

// ============================================
// Analytics Cache Functions
// ============================================

// AnalyticsKey builds the cache key for an analytics window
func AnalyticsKey(start, end time.Time) string {
	return fmt.Sprintf(AnalyticsKeyFmt, start.Format("20060102"), end.Format("20060102"))
}

// GetCachedAnalytics returns a cached analytics payload if available
func GetCachedAnalytics(ctx context.Context, start, end time.Time) ([]byte, bool) {
	return GetCached(ctx, AnalyticsKey(start, end))
}

// CacheAnalytics stores an analytics payload for 5 minutes. Analytics reads
// happen on every dashboard load while the underlying ledger changes rarely.
func CacheAnalytics(ctx context.Context, start, end time.Time, data []byte) {
	SetCached(ctx, AnalyticsKey(start, end), data, 5*time.Minute)
}

// ============================================
// Generic Cache Functions
// ============================================

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// ============================================
// Cache Invalidation Functions
// ============================================

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	keys, err := client.Keys(ctx, pattern).Result()
	if err == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// ============================================
// Entity-Based Cache Invalidators
// ============================================

// InvalidatePaymentCaches clears ledger-derived caches
// Called when: CreateRentPayment, UpdateRentPayment, MarkAsPaid, recordPartial,
// DeleteRentPayment, the overdue sweep and monthly generation
func InvalidatePaymentCaches(ctx context.Context) {
	InvalidatePattern(ctx, "payments:*")
	InvalidatePattern(ctx, "analytics:*")
	InvalidatePattern(ctx, "upcoming:*")
}

// InvalidateTenantCaches clears tenant directory caches
// Called when: CreateTenant, UpdateTenant, DeleteTenant, move-in, move-out
func InvalidateTenantCaches(ctx context.Context) {
	InvalidatePattern(ctx, "tenants:*")
	InvalidatePattern(ctx, "payments:tenant:*")
}

// InvalidatePropertyCaches clears property directory caches
// Called when: property create/update, occupancy changes
func InvalidatePropertyCaches(ctx context.Context) {
	InvalidatePattern(ctx, "properties:*")
}

// InvalidateDepositCaches clears deposit caches
// Called when: CreateSecurityDeposit, AddDeduction, Refund, Forfeit
func InvalidateDepositCaches(ctx context.Context) {
	InvalidatePattern(ctx, "deposits:*")
}

// InvalidateSettingCaches clears setting caches
// Called when: UpdateSetting
func InvalidateSettingCaches(ctx context.Context) {
	InvalidatePattern(ctx, "settings:*")
	// Fee settings feed checkout amounts
	InvalidatePattern(ctx, "analytics:*")
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
