package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/UniClips/internal/pkg/config"
	"github.com/ManuelReschke/UniClips/internal/pkg/usercontext"
)

// rateLimitDatabase keeps limiter counters apart from the cache keys.
const rateLimitDatabase = 1

// NewRateLimitStorage returns the redis backed storage shared by all
// instances so limits hold across replicas.
func NewRateLimitStorage(cfg config.CacheConfig) fiber.Storage {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		port = 6379
	}
	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     port,
		Password: cfg.Password,
		Database: rateLimitDatabase,
		Reset:    false,
	})
}

// RateLimit limits requests per user, or per IP for anonymous callers. A
// nil storage keeps the counters in memory.
func RateLimit(storage fiber.Storage, max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id := usercontext.GetUserID(c); id != 0 {
				return "user:" + strconv.FormatUint(uint64(id), 10)
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "too_many_requests",
				"message": "Too many requests, please try again later",
			})
		},
	})
}
