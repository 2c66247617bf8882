package http

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"trailhead/internal/config"
	"trailhead/internal/store"
)

// Keys are issued with a service-specific prefix so that credentials
// meant for other services fail fast, without a database lookup.
const apiKeyPrefix = "th_"

// bearerToken pulls the raw bearer credential from the Authorization
// header, if any.
func bearerToken(c *fiber.Ctx) (string, bool) {
	const scheme = "Bearer "
	raw := c.Get("Authorization")
	if !strings.HasPrefix(raw, scheme) {
		return "", false
	}
	token := strings.TrimSpace(raw[len(scheme):])
	return token, token != ""
}

// apiKeyFromCtx returns the API key resolved by authMiddleware, if
// auth ran on this request.
func apiKeyFromCtx(c *fiber.Ctx) (store.APIKey, bool) {
	key, ok := c.Locals("apiKey").(store.APIKey)
	return key, ok
}

func unauthenticated(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Success: false,
		Code:    "UNAUTHENTICATED",
		Error:   msg,
	})
}

// authMiddleware resolves the bearer credential to a stored API key
// and attaches it to the context as "apiKey".
func authMiddleware(cfg *config.Config, st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Auth.Enabled {
			return c.Next()
		}

		token, ok := bearerToken(c)
		if !ok {
			return unauthenticated(c, "missing bearer token")
		}
		if !strings.HasPrefix(token, apiKeyPrefix) {
			return unauthenticated(c, "not a trailhead API key")
		}

		key, err := st.GetAPIKeyByRawKey(c.Context(), token)
		switch {
		case err == sql.ErrNoRows:
			return unauthenticated(c, "unknown or revoked API key")
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Success: false,
				Code:    "INTERNAL_ERROR",
				Error:   fmt.Sprintf("API key lookup failed: %v", err),
			})
		}

		c.Locals("apiKey", key)
		return c.Next()
	}
}

// rateLimitMiddleware enforces a per-key, per-minute fixed window in
// Redis. A per-key override on the api_keys row wins over the
// configured default; Redis being unreachable fails open so the
// ledger stays queryable.
func rateLimitMiddleware(cfg *config.Config, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Auth.Enabled {
			return c.Next()
		}

		key, ok := apiKeyFromCtx(c)
		if !ok {
			return unauthenticated(c, "API key not resolved")
		}

		limit := cfg.RateLimit.DefaultPerMinute
		if key.RateLimitPerMinute.Valid && key.RateLimitPerMinute.Int32 > 0 {
			limit = int(key.RateLimitPerMinute.Int32)
		}
		if limit <= 0 {
			return c.Next()
		}

		minute := time.Now().UTC().Unix() / 60
		bucket := fmt.Sprintf("trailhead:ratelimit:%s:%d", key.ID, minute)

		ctx := c.Context()
		count, err := rdb.Incr(ctx, bucket).Result()
		if err != nil {
			return c.Next()
		}
		if count == 1 {
			// Buckets outlive their window slightly; they are keyed by
			// minute so stale ones are never read again.
			_ = rdb.Expire(ctx, bucket, 2*time.Minute)
		}

		if count > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Success: false,
				Code:    "RATE_LIMIT_EXCEEDED",
				Error:   fmt.Sprintf("rate limit of %d requests per minute exceeded", limit),
			})
		}

		return c.Next()
	}
}

// adminOnlyMiddleware gates the /admin group on the resolved key's
// admin flag.
func adminOnlyMiddleware(c *fiber.Ctx) error {
	key, ok := apiKeyFromCtx(c)
	if !ok {
		return unauthenticated(c, "API key not resolved")
	}
	if !key.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Success: false,
			Code:    "FORBIDDEN",
			Error:   "admin key required",
		})
	}
	return c.Next()
}
