package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shubhamforall/petstore-api/apperror"
	"github.com/shubhamforall/petstore-api/auth"
	"github.com/shubhamforall/petstore-api/permissions"
)

// Authenticate validates a Bearer token and stores the identity in c.Locals.
func Authenticate(tokens *auth.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}
		id, err := tokens.Verify(raw)
		if err != nil {
			return err
		}
		c.Locals(identityKey, id)
		return c.Next()
	}
}

// Authorize lets the request through only if the caller's role may perform action.
// It must run after Authenticate.
func Authorize(table *permissions.Table, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return apperror.TokenMissing()
		}
		if !table.Allows(id.Role, action) {
			return apperror.Forbidden(action)
		}
		return c.Next()
	}
}
