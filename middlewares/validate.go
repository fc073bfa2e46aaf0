package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shubhamforall/petstore-api/apperror"
	"github.com/shubhamforall/petstore-api/validation"
)

// Validate decodes the declared source into a fresh schema object and stores it for Input.
// For the body source an optional file rule checks uploads, and its findings
// land in the same error list as the field checks.
func Validate(v *validation.Validator, source validation.Source, schema func() any, files *validation.FileRule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var raw map[string]any
		switch source {
		case validation.SourceParams:
			raw = validation.Params(c)
		case validation.SourceQuery:
			raw = validation.Query(c)
		default:
			body, err := validation.Body(c)
			if err != nil {
				return err
			}
			raw = body
		}

		var extra []apperror.FieldError
		if files != nil && source == validation.SourceBody {
			uploads := validation.Files(c, files.Field)
			extra = files.Check(uploads)
			c.Locals(uploadsKey, uploads)
		}

		dst := schema()
		if err := v.ValidateWith(raw, dst, extra); err != nil {
			return err
		}
		c.Locals(inputKey(source), dst)
		return c.Next()
	}
}
