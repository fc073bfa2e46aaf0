package middlewares

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/shubhamforall/petstore-api/cache"
	"github.com/shubhamforall/petstore-api/metrics"
	"github.com/shubhamforall/petstore-api/response"
)

const (
	CacheHeader    = "X-Cache"
	CacheNamespace = "resp:"
)

// CachedResponse is what a cache entry holds; the envelope is rebuilt from it on a hit.
type CachedResponse struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ResponseCacheKey is the namespace plus path and query string.
func ResponseCacheKey(c *fiber.Ctx) string {
	return CacheNamespace + strings.Clone(c.OriginalURL())
}

// ResponseCache serves GETs from store when it can. A hit never reaches the handler.
// Backend failures count as misses.
func ResponseCache(store cache.Store, m *metrics.Metrics, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet {
			return c.Next()
		}
		key := ResponseCacheKey(c)

		raw, ok, err := store.Get(c.UserContext(), key)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("cache read failed")
			ok = false
		}
		if ok {
			var cached CachedResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				body, err := response.Success(cached.Status, cached.Message, cached.Data)
				if err == nil {
					m.CacheLookup(metrics.CacheHit)
					c.Set(CacheHeader, "HIT")
					return response.Write(c, cached.Status, body)
				}
			}
			log.WithField("key", key).Warn("discarding unreadable cache entry")
		}

		m.CacheLookup(metrics.CacheMiss)
		c.Set(CacheHeader, "MISS")
		c.Locals(cacheKeyKey, key)
		return c.Next()
	}
}
