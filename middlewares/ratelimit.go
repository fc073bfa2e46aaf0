package middlewares

import (
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/shubhamforall/petstore-api/apperror"
	"github.com/shubhamforall/petstore-api/metrics"
	"github.com/shubhamforall/petstore-api/ratelimit"
)

// RateLimit counts every request by client address, before anything else looks at it.
func RateLimit(l *ratelimit.Limiter, m *metrics.Metrics, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "ip:" + strings.Clone(c.IP())
		d, err := l.Allow(c.UserContext(), key)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("rate limiter unavailable, allowing request")
			return c.Next()
		}

		reset := strconv.Itoa(int(math.Ceil(d.ResetIn.Seconds())))
		c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Set("X-RateLimit-Reset", reset)
		if !d.Allowed {
			m.RateLimitRejected()
			c.Set(fiber.HeaderRetryAfter, reset)
			return apperror.RateLimited()
		}
		return c.Next()
	}
}
