package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/shubhamforall/petstore-api/apperror"
	"github.com/shubhamforall/petstore-api/database"
	"github.com/shubhamforall/petstore-api/models"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 128
)

// Idempotency processes Idempotency-Key for POST requests. It must run after Authenticate:
// keys are scoped per user.
// A completed key replays the stored response without running the handler.
// The same key with a different request, or while the first one is still running, is a conflict.
// Only 2xx responses are recorded; anything else frees the key for a retry.
func Idempotency(repo database.IdempotencyRepository, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}
		key := strings.TrimSpace(c.Get(IdempotencyHeader))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKey {
			return apperror.BadRequest("Idempotency-Key too long")
		}
		key = strings.Clone(key)

		id, ok := IdentityFrom(c)
		if !ok {
			return apperror.TokenMissing()
		}

		path := strings.Clone(c.OriginalURL())
		reqHash := requestHash(c.Method(), path, c.Body(), id.UserID)

		rec := &models.IdempotencyKey{
			UserID:      id.UserID,
			Key:         key,
			RequestHash: reqHash,
			Method:      c.Method(),
			Path:        path,
		}
		existing, err := repo.Reserve(c.UserContext(), rec)
		if err != nil {
			return err
		}
		if existing.RequestHash != reqHash {
			return apperror.Conflict("Idempotency-Key reuse with different request")
		}
		if existing.Completed() {
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
			return c.Status(existing.ResponseStatus).Send(existing.ResponseBody)
		}
		if existing != rec {
			return apperror.Conflict("A request with this Idempotency-Key is still in progress")
		}

		if err := c.Next(); err != nil {
			release(c, repo, log, id.UserID, key)
			return err
		}

		status := c.Response().StatusCode()
		if status < 200 || status >= 300 {
			release(c, repo, log, id.UserID, key)
			return nil
		}
		body := append([]byte(nil), c.Response().Body()...)
		if err := repo.Complete(c.UserContext(), id.UserID, key, status, body); err != nil {
			log.WithError(err).WithField("key", key).Warn("store idempotent response")
		}
		return nil
	}
}

func release(c *fiber.Ctx, repo database.IdempotencyRepository, log logrus.FieldLogger, userID, key string) {
	if err := repo.Release(c.UserContext(), userID, key); err != nil {
		log.WithError(err).WithField("key", key).Warn("release idempotency key")
	}
}

// requestHash is sha256 over method|path|body|user.
func requestHash(method, path string, body []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	h.Write([]byte{'\n'})
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}
