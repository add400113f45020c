package ratelimit

import "github.com/gofiber/fiber/v2"

// Middleware adapts the sliding window to fiber, keyed by client IP.
func Middleware(limiter *SlidingWindow) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !limiter.Allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
			})
		}

		return c.Next()
	}
}
