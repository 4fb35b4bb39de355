package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	loginRateKeyPrefix = "rl:login:"
	loginRateWindow    = time.Minute
)

// LoginRateLimit caps login attempts per email (or client IP when the body
// carries none) inside a fixed one-minute window. Without Redis, or when
// Redis errors, the limiter fails open.
func LoginRateLimit(cache *redis.Client, maxPerWindow int) fiber.Handler {
	if maxPerWindow <= 0 {
		maxPerWindow = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}

		key := loginRateKeyPrefix + loginRateSubject(c)
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, loginRateWindow)
		}
		if cnt > int64(maxPerWindow) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(loginRateWindow.Seconds())))
			return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}

func loginRateSubject(c *fiber.Ctx) string {
	var req struct {
		Email string `json:"email"`
	}
	_ = c.BodyParser(&req)
	if subject := strings.ToLower(strings.TrimSpace(req.Email)); subject != "" {
		return subject
	}
	return c.IP()
}
