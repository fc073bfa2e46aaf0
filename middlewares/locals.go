package middlewares

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/shubhamforall/petstore-api/auth"
	"github.com/shubhamforall/petstore-api/validation"
)

const (
	identityKey = "identity"
	uploadsKey  = "uploads"
	cacheKeyKey = "cacheKey"
)

func inputKey(source validation.Source) string {
	return "input." + string(source)
}

// IdentityFrom returns the principal stored by Authenticate.
func IdentityFrom(c *fiber.Ctx) (auth.Identity, bool) {
	id, ok := c.Locals(identityKey).(auth.Identity)
	return id, ok
}

// Input returns the validated object for source. It is nil when the route declared no schema of type T.
func Input[T any](c *fiber.Ctx, source validation.Source) *T {
	v, _ := c.Locals(inputKey(source)).(*T)
	return v
}

// Uploads returns the files accepted by the body validation stage.
func Uploads(c *fiber.Ctx) []*multipart.FileHeader {
	files, _ := c.Locals(uploadsKey).([]*multipart.FileHeader)
	return files
}

// CacheKey is set by ResponseCache on a miss so the response can be stored.
func CacheKey(c *fiber.Ctx) (string, bool) {
	key, ok := c.Locals(cacheKeyKey).(string)
	return key, ok && key != ""
}
